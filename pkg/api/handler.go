package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lecture-notes/pkg/logger"
	"lecture-notes/pkg/models"
	"lecture-notes/pkg/pipeline"

	"github.com/gorilla/mux"
)

// Multipart parts beyond this are spooled to temporary files.
const multipartMemory = 32 << 20

type Handlers struct {
	manager        *pipeline.Manager
	log            *logger.Logger
	maxUploadBytes int64
	pollInterval   time.Duration
}

func NewHandlers(manager *pipeline.Manager, log *logger.Logger, maxUploadBytes int64) *Handlers {
	return &Handlers{
		manager:        manager,
		log:            log,
		maxUploadBytes: maxUploadBytes,
		pollInterval:   500 * time.Millisecond,
	}
}

// NewRouter registers the lecture routes under basePath and /healthz at the
// root.
func NewRouter(h *Handlers, basePath string) http.Handler {
	router := mux.NewRouter()
	router.Use(requestLogger(h.log))
	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)

	api := router
	if basePath != "" {
		api = router.PathPrefix(basePath).Subrouter()
	}
	api.HandleFunc("/lectures", h.UploadHandler).Methods(http.MethodPost)
	api.HandleFunc("/lectures", h.ListHandler).Methods(http.MethodGet)
	api.HandleFunc("/lectures/{id}", h.GetHandler).Methods(http.MethodGet)
	api.HandleFunc("/lectures/{id}", h.DeleteHandler).Methods(http.MethodDelete)
	api.HandleFunc("/lectures/{id}/generate-notes", h.GenerateNotesHandler).Methods(http.MethodPost)
	api.HandleFunc("/lectures/{id}/export", h.ExportHandler).Methods(http.MethodGet)
	api.HandleFunc("/lectures/{id}/events", h.EventsHandler).Methods(http.MethodGet)

	return withCORS(router)
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UploadHandler ingests a lecture recording and returns the record once
// transcription has finished or failed.
func (h *Handlers) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large",
				fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_form", "Failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "audio_file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "Failed to read audio file")
		return
	}

	lecture, err := h.manager.Ingest(r.Context(), pipeline.IngestRequest{
		Metadata: models.LectureMetadata{
			Title:       r.FormValue("title"),
			Course:      formValue(r, "course"),
			Lecturer:    formValue(r, "lecturer"),
			LectureDate: formValue(r, "lecture_date"),
		},
		Audio:    audio,
		Filename: header.Filename,
	})
	if err != nil {
		writePipelineError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lecture)
}

func (h *Handlers) ListHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.manager.List()
	if err != nil {
		writePipelineError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handlers) GetHandler(w http.ResponseWriter, r *http.Request) {
	lecture, err := h.manager.Get(mux.Vars(r)["id"])
	if err != nil {
		writePipelineError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lecture)
}

func (h *Handlers) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(mux.Vars(r)["id"]); err != nil {
		writePipelineError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GenerateNotesHandler(w http.ResponseWriter, r *http.Request) {
	lecture, err := h.manager.GenerateNotes(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writePipelineError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NotesGenerationResponse{
		NotesText: *lecture.NotesText,
		Status:    lecture.Status,
	})
}

// ExportHandler streams the notes as an attachment; format defaults to pdf.
func (h *Handlers) ExportHandler(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}

	artifact, err := h.manager.Export(r.Context(), mux.Vars(r)["id"], format)
	if err != nil {
		writePipelineError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", artifact.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		h.log.Warn("export write failed", "error", err)
	}
}

func formValue(r *http.Request, key string) *string {
	return models.StringPtr(strings.TrimSpace(r.FormValue(key)))
}
