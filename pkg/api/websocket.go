package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"lecture-notes/pkg/models"
	"lecture-notes/pkg/pipeline"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type StatusEvent struct {
	Type         string               `json:"type"`
	LectureID    string               `json:"lecture_id"`
	Status       models.LectureStatus `json:"status,omitempty"`
	ErrorMessage *string              `json:"error_message"`
	Error        string               `json:"error,omitempty"`
}

// EventsHandler streams status changes of one lecture until it reaches
// COMPLETED or ERROR, or the client goes away.
func (h *Handlers) EventsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.manager.Get(id); err != nil {
		writePipelineError(w, h.log, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "lecture_id", id, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends anything meaningful; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.monitorLecture(ctx, conn, id)
}

func (h *Handlers) monitorLecture(ctx context.Context, conn *websocket.Conn, id string) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var lastStatus models.LectureStatus
	var lastUpdate time.Time
	for {
		lecture, err := h.manager.Get(id)
		if err != nil {
			msg := "lecture no longer available"
			if !errors.Is(err, pipeline.ErrNotFound) {
				msg = "failed to read lecture"
				h.log.Error("status stream read failed", "lecture_id", id, "error", err)
			}
			h.sendEvent(conn, StatusEvent{Type: "error", LectureID: id, Error: msg})
			h.closeStream(conn)
			return
		}

		if lecture.Status != lastStatus || !lecture.UpdatedAt.Equal(lastUpdate) {
			lastStatus, lastUpdate = lecture.Status, lecture.UpdatedAt
			if err := h.sendEvent(conn, StatusEvent{
				Type:         "status_update",
				LectureID:    id,
				Status:       lecture.Status,
				ErrorMessage: lecture.ErrorMessage,
			}); err != nil {
				return
			}
		}

		if lecture.Status.Terminal() {
			h.log.Debug("status stream finished", "lecture_id", id, "status", string(lecture.Status))
			h.closeStream(conn)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Handlers) sendEvent(conn *websocket.Conn, event StatusEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		h.log.Debug("status stream write failed", "lecture_id", event.LectureID, "error", err)
		return err
	}
	return nil
}

func (h *Handlers) closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
