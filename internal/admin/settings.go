package admin

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/settings"
	"github.com/yanizio/storefront/internal/store"
)

func (h *Handler) singleton(w http.ResponseWriter, r *http.Request) (*settings.Controller, bool) {
	name := chi.URLParam(r, "resource")
	c, ok := h.singletons[name]
	if !ok {
		h.replyErr(w, r, fmt.Errorf("settings %q: %w", name, store.ErrNotFound))
		return nil, false
	}
	return c, true
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := h.singleton(w, r)
	if !ok {
		return
	}
	rec, err := c.Load(r.Context())
	if err != nil {
		h.replyErr(w, r, err)
		return
	}
	_, stored := c.Current()
	h.reply(w, http.StatusOK, envelope{"settings": rec, "stored": stored})
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := h.singleton(w, r)
	if !ok {
		return
	}
	var in map[string]any
	if err := decode(r, &in); err != nil {
		h.replyErr(w, r, err)
		return
	}
	rec, err := c.Save(r.Context(), in)
	if err != nil {
		h.replyErr(w, r, err)
		return
	}
	h.reply(w, http.StatusOK, envelope{"settings": rec, "stored": true})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Confirm string `json:"confirm"`
	}
	if err := decode(r, &in); err != nil {
		h.replyErr(w, r, err)
		return
	}
	res, err := h.singletons[MaintenanceResource].ResetAll(r.Context(), in.Confirm)
	if err != nil {
		status := statusOf(err)
		h.reply(w, status, envelope{"error": err.Error(), "result": res})
		return
	}
	for _, c := range h.singletons {
		c.Invalidate()
	}
	for _, c := range h.collections {
		c.Cancel()
		c.Dismiss()
		_, _ = c.Load(r.Context())
	}
	h.reply(w, http.StatusOK, envelope{"result": res})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.singletons[MaintenanceResource].ExportAll(r.Context())
	if err != nil {
		h.replyErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.Filename()))
	if err := snap.WriteJSON(w); err != nil {
		h.log.Warnw("export write failed", "err", err)
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	s, ok := h.readonly["orders"]
	if !ok {
		h.replyErr(w, r, fmt.Errorf("orders: %w", store.ErrNotFound))
		return
	}
	rows, err := h.store.Select(r.Context(), s.Resource, store.Query{
		Order: []store.Order{{Column: record.KeyCreatedAt, Desc: true}, {Column: record.KeyID}},
	})
	if err != nil {
		h.notifier.Error(err.Error())
		h.replyErr(w, r, err)
		return
	}
	out := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.Decode(row))
	}
	h.reply(w, http.StatusOK, envelope{"items": out, "empty": len(out) == 0})
}
