package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yanizio/storefront/internal/auth"
	"github.com/yanizio/storefront/internal/collection"
	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/notify"
	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/reorder"
	"github.com/yanizio/storefront/internal/settings"
	"github.com/yanizio/storefront/internal/store"
)

// ConfirmHeader must be "yes" for a destructive request to run.
const ConfirmHeader = "X-Confirm"

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

// envelope is the common response shape.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// reply writes body plus the current banner.
func (h *Handler) reply(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	if b, ok := h.notifier.Current(); ok {
		body["notice"] = b
	} else {
		body["notice"] = (*notify.Banner)(nil)
	}
	writeJSON(w, status, body)
}

// replyErr maps err to a status and writes it with the banner.
func (h *Handler) replyErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= 500 {
		logger.FromContext(r.Context()).Errorw("admin request failed", "err", err)
	}
	body := envelope{"error": err.Error()}
	var ve *record.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
		body["error"] = ve.Message
	}
	h.reply(w, status, body)
}

func statusOf(err error) int {
	switch {
	case record.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, collection.ErrBusy), errors.Is(err, settings.ErrBusy),
		errors.Is(err, collection.ErrNoPending), errors.Is(err, collection.ErrFormOpen):
		return http.StatusConflict
	case errors.Is(err, reorder.ErrDuplicateID), errors.Is(err, reorder.ErrEmptyID),
		errors.Is(err, settings.ErrConfirmationMismatch), errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

var errBadBody = errors.New("request body is not valid JSON")

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

func confirmed(r *http.Request) bool { return r.Header.Get(ConfirmHeader) == "yes" }
