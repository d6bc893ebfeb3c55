package admin

import (
	"net/http"

	"github.com/yanizio/storefront/internal/auth"
	"github.com/yanizio/storefront/internal/session"
)

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request) {
	tok, err := h.csrf.Issue()
	if err != nil {
		h.replyErr(w, r, err)
		return
	}
	h.reply(w, http.StatusOK, envelope{"csrf_token": tok})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		h.replyErr(w, r, err)
		return
	}

	res := h.guard.Login(r.Context(), in.Email, in.Password, auth.MetaFromRequest(r))
	if res.Err != nil {
		h.replyErr(w, r, res.Err)
		return
	}
	session.Set(w, r, res.Session.Token, res.Session.ExpiresAt)
	h.reply(w, http.StatusOK, envelope{
		"redirect":          res.Redirect,
		"redirect_after_ms": res.RedirectAfter.Milliseconds(),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	d := h.guard.Logout(r.Context(), session.Token(r))
	session.Clear(w, r)
	h.reply(w, http.StatusOK, envelope{"redirect": d.Redirect})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Compute(r.Context())
	if err != nil {
		h.notifier.Error(err.Error())
		h.replyErr(w, r, err)
		return
	}
	tok, err := h.csrf.Issue()
	if err != nil {
		h.replyErr(w, r, err)
		return
	}
	sess, _ := auth.FromContext(r.Context())
	h.reply(w, http.StatusOK, envelope{
		"user":       sess.Email,
		"stats":      stats,
		"resources":  h.order,
		"csrf_token": tok,
	})
}
