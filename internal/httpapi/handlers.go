// ABOUTME: Handlers for registration, login, users, pain entries, and history.
// ABOUTME: Each handler decodes input, calls the diary service, and writes JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/harperreed/painlog/internal/diary"
	"github.com/harperreed/painlog/internal/history"
	"github.com/harperreed/painlog/internal/models"
	"github.com/harperreed/painlog/internal/session"
)

// IdempotencyHeader carries the client's submission key.
const IdempotencyHeader = "Idempotency-Key"

type handler struct {
	service  *diary.Service
	sessions *session.Manager
	log      *zap.Logger
	loc      *time.Location
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, msgInvalidRequest)
		return
	}

	user, err := h.service.Register(r.Context(), req.Name, req.Phone)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeAuth(w, r, http.StatusCreated, user)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, msgInvalidRequest)
		return
	}

	user, err := h.service.Login(r.Context(), req.Phone)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeAuth(w, r, http.StatusOK, user)
}

func (h *handler) writeAuth(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	resp := AuthResponse{User: user}
	if h.sessions != nil {
		token, expiresAt, err := h.sessions.Issue(user.ID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		resp.Token = token
		resp.ExpiresAt = &expiresAt
	}
	writeJSON(w, status, resp)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeBadRequest(w, diary.MsgInvalidUserID)
		return
	}
	// IDs start at 1, so a non-positive one names nobody.
	if id <= 0 {
		writeError(w, http.StatusNotFound, CodeNotFound, diary.MsgUserNotFound)
		return
	}
	if !h.authorize(w, r, id) {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

func (h *handler) submitEntry(w http.ResponseWriter, r *http.Request) {
	var req SubmitEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, msgInvalidRequest)
		return
	}
	if req.UserID > 0 && !h.authorize(w, r, req.UserID) {
		return
	}

	entry, err := h.service.SubmitEntry(r.Context(), diary.SubmitRequest{
		UserID:         req.UserID,
		BodyPart:       req.BodyPart,
		PainLevel:      req.PainLevel,
		FormData:       req.FormData,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitEntryResponse{Success: true, PainEntry: entry})
}

func (h *handler) listEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(chi.URLParam(r, "userId"))
	if !ok {
		writeBadRequest(w, diary.MsgInvalidUserID)
		return
	}
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		writeBadRequest(w, msgInvalidLimit)
		return
	}
	if userID <= 0 {
		writeJSON(w, http.StatusOK, EntriesResponse{Entries: []*models.PainEntry{}})
		return
	}
	if !h.authorize(w, r, userID) {
		return
	}

	entries, err := h.service.ListEntries(r.Context(), userID, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Entries: entries})
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(chi.URLParam(r, "userId"))
	if !ok {
		writeBadRequest(w, diary.MsgInvalidUserID)
		return
	}
	loc := h.loc
	if tz := r.URL.Query().Get("tz"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			writeBadRequest(w, msgInvalidTimeZone)
			return
		}
		loc = parsed
	}
	if userID <= 0 {
		writeJSON(w, http.StatusOK, SummaryResponse{Summary: history.Summarize(nil, history.Options{Location: loc})})
		return
	}
	if !h.authorize(w, r, userID) {
		return
	}

	sum, err := h.service.Summary(r.Context(), userID, loc)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Summary: sum})
}

func (h *handler) vocabulary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, VocabularyResponse{
		Vocabulary: models.Vocabulary(),
		MinLevel:   models.MinPainLevel,
		MaxLevel:   models.MaxPainLevel,
	})
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authorize rejects a signed-in caller touching another user's data.
func (h *handler) authorize(w http.ResponseWriter, r *http.Request, userID int64) bool {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		return true
	}
	if err := diary.EnsureOwner(identity.UserID, userID); err != nil {
		h.writeServiceError(w, r, err)
		return false
	}
	return true
}

var errTrailingData = errors.New("unexpected data after JSON body")

// decodeJSON reads exactly one JSON value from the body.
func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(target); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
