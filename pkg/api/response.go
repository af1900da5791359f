package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"lecture-notes/pkg/export"
	"lecture-notes/pkg/logger"
	"lecture-notes/pkg/pipeline"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	LectureID string `json:"lecture_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorEnvelope{Error: APIError{Message: message, Code: code}})
}

// writePipelineError maps a pipeline failure onto a status and a client-safe
// message. Stage failures are reported generically; the cause is logged.
func writePipelineError(w http.ResponseWriter, log *logger.Logger, err error) {
	status, apiErr := classify(err)

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		apiErr.LectureID = stageErr.LectureID
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "code", apiErr.Code, "error", err)
	}
	writeJSON(w, status, ErrorEnvelope{Error: apiErr})
}

func classify(err error) (int, APIError) {
	switch pipeline.Kind(err) {
	case pipeline.KindValidation:
		switch {
		case errors.Is(err, pipeline.ErrInvalidID):
			return http.StatusBadRequest, APIError{Code: "invalid_id", Message: "Invalid lecture id"}
		case errors.Is(err, pipeline.ErrNoTranscript):
			return http.StatusBadRequest, APIError{Code: "no_transcript", Message: "Transcript not available. Cannot generate notes."}
		case errors.Is(err, pipeline.ErrNoNotes):
			return http.StatusBadRequest, APIError{Code: "no_notes", Message: "Notes not available for this lecture"}
		case errors.Is(err, export.ErrUnsupportedFormat):
			return http.StatusBadRequest, APIError{Code: "unsupported_format", Message: "Unsupported export format"}
		default:
			return http.StatusBadRequest, APIError{Code: "invalid_input", Message: err.Error()}
		}
	case pipeline.KindNotFound:
		return http.StatusNotFound, APIError{Code: "not_found", Message: "Lecture not found"}
	case pipeline.KindEngine:
		if errors.Is(err, pipeline.ErrTranscription) {
			return http.StatusInternalServerError, APIError{Code: "transcription_failed", Message: "Transcription failed"}
		}
		return http.StatusInternalServerError, APIError{Code: "notes_generation_failed", Message: "Notes generation failed"}
	case pipeline.KindStorage:
		return http.StatusInternalServerError, APIError{Code: "storage_error", Message: "Storage failure"}
	default:
		return http.StatusInternalServerError, APIError{Code: "internal_error", Message: "Internal server error"}
	}
}
