// ABOUTME: JSON response writers and diary error to HTTP status mapping.
// ABOUTME: Unexpected errors are logged and answered with a generic message.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/harperreed/painlog/internal/diary"
)

// Error codes carried next to the localized message.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeConflict       = "CONFLICT"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeInternal       = "INTERNAL"
)

const (
	msgInvalidRequest  = "Requisição inválida"
	msgUnauthorized    = "Sessão inválida ou ausente"
	msgInvalidTimeZone = "Fuso horário inválido"
	msgInvalidLimit    = "Limite inválido"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, CodeValidation, message)
}

// writeServiceError maps diary errors to responses.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *diary.ValidationError
	switch {
	case errors.As(err, &ve):
		writeBadRequest(w, ve.Message)
	case errors.Is(err, diary.ErrKeyReused):
		writeError(w, http.StatusConflict, CodeConflict, diary.MsgKeyReused)
	case errors.Is(err, diary.ErrConflict):
		writeError(w, http.StatusConflict, CodeConflict, diary.MsgPhoneTaken)
	case errors.Is(err, diary.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, diary.MsgUserNotFound)
	case errors.Is(err, diary.ErrForbidden):
		writeError(w, http.StatusForbidden, CodeForbidden, diary.MsgForbidden)
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, diary.MsgInternal)
	}
}
