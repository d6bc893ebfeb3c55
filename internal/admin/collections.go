package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/storefront/internal/collection"
	"github.com/yanizio/storefront/internal/store"
)

// controller resolves {resource} to an ordered-collection controller.
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*collection.Controller, bool) {
	name := chi.URLParam(r, "resource")
	c, ok := h.collections[name]
	if !ok {
		h.replyErr(w, r, fmt.Errorf("collection %q: %w", name, store.ErrNotFound))
		return nil, false
	}
	return c, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	status := http.StatusOK
	if _, err := c.Load(r.Context()); err != nil {
		// The view still carries the previously loaded items.
		status = statusOf(err)
	}
	h.reply(w, status, envelope{"view": c.View()})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var in map[string]any
	if err := decode(r, &in); err != nil {
		h.replyErr(w, r, err)
		return
	}
	rec, err := c.Create(r.Context(), in)
	if err != nil {
		h.replyErr(w, r, err)
		return
	}
	h.reply(w, http.StatusCreated, envelope{"item": rec, "view": c.View()})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var in map[string]any
	if err := decode(r, &in); err != nil {
		h.replyErr(w, r, err)
		return
	}
	rec, err := c.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.replyErr(w, r, err)
		return
	}
	h.reply(w, http.StatusOK, envelope{"item": rec, "view": c.View()})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.confirmable(w, r, c, func(ctx context.Context) (collection.Pending, error) {
		return c.Delete(ctx, chi.URLParam(r, "id"))
	})
}

func (h *Handler) toggleActive(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var in struct {
		Active *bool `json:"active"`
	}
	if err := decode(r, &in); err != nil || in.Active == nil {
		h.replyErr(w, r, errBadBody)
		return
	}
	h.confirmable(w, r, c, func(ctx context.Context) (collection.Pending, error) {
		return c.ToggleActive(ctx, chi.URLParam(r, "id"), *in.Active)
	})
}

// confirmable stages an action and either runs it (X-Confirm: yes) or
// answers 428 with the prompt.
func (h *Handler) confirmable(w http.ResponseWriter, r *http.Request, c *collection.Controller,
	stage func(context.Context) (collection.Pending, error)) {
	p, err := stage(r.Context())
	if err != nil {
		h.replyErr(w, r, err)
		return
	}
	if !confirmed(r) {
		h.reply(w, http.StatusPreconditionRequired, envelope{"pending": p, "confirm_header": ConfirmHeader})
		return
	}
	if err := c.Confirm(r.Context()); err != nil {
		h.replyErr(w, r, err)
		return
	}
	h.reply(w, http.StatusOK, envelope{"view": c.View()})
}

func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if !c.Dismiss() {
		h.replyErr(w, r, collection.ErrNoPending)
		return
	}
	h.reply(w, http.StatusOK, envelope{"view": c.View()})
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var in struct {
		IDs []string `json:"ids"`
	}
	if err := decode(r, &in); err != nil {
		h.replyErr(w, r, err)
		return
	}
	if err := c.Reorder(r.Context(), in.IDs); err != nil {
		h.replyErr(w, r, err)
		return
	}
	h.reply(w, http.StatusOK, envelope{"view": c.View()})
}

func (h *Handler) openForm(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var in struct {
		Mode collection.FormMode `json:"mode"`
		ID   string              `json:"id"`
	}
	if err := decode(r, &in); err != nil {
		h.replyErr(w, r, err)
		return
	}
	var err error
	switch in.Mode {
	case collection.FormCreate:
		err = c.OpenCreate()
	case collection.FormEdit:
		err = c.OpenEdit(r.Context(), in.ID)
	default:
		err = errBadBody
	}
	if err != nil {
		if errors.Is(err, collection.ErrFormOpen) {
			h.reply(w, http.StatusConflict, envelope{"error": err.Error(), "view": c.View()})
			return
		}
		h.replyErr(w, r, err)
		return
	}
	h.reply(w, http.StatusOK, envelope{"view": c.View()})
}

func (h *Handler) cancelForm(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.Cancel()
	h.reply(w, http.StatusOK, envelope{"view": c.View()})
}
