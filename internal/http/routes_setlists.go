package httpapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/http/dto"
)

func (h *Handler) ListSetlists(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParseSetlistQuery(r.URL.Query())
	if err != nil {
		h.fail(w, err)
		return
	}
	setlists, err := h.Offline.GetSetlists(q)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, setlists)
}

func (h *Handler) GetSetlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	setlist, err := h.Offline.GetSetlist(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if setlist == nil {
		h.notFound(w, "setlist", id)
		return
	}
	h.ok(w, setlist)
}

func (h *Handler) SaveSetlist(w http.ResponseWriter, r *http.Request) {
	setlist := &domain.CachedSetlist{}
	if !h.decode(w, r, setlist) {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		setlist.ID = id
	}
	if setlist.CreatedBy == "" {
		setlist.CreatedBy = h.UserID
	}
	saved, err := h.Offline.SaveSetlist(setlist)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, saved)
}

func (h *Handler) DeleteSetlist(w http.ResponseWriter, r *http.Request) {
	if err := h.Offline.DeleteSetlist(chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, nil)
}

func (h *Handler) AddSongToSetlist(w http.ResponseWriter, r *http.Request) {
	req := &dto.AddSongRequest{Position: -1}
	if !h.decode(w, r, req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, err)
		return
	}
	setlist, err := h.Offline.AddSongToSetlist(chi.URLParam(r, "id"), req.Item(), req.Position)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, setlist)
}

func (h *Handler) RemoveSongFromSetlist(w http.ResponseWriter, r *http.Request) {
	setlist, err := h.Offline.RemoveSongFromSetlist(chi.URLParam(r, "id"), chi.URLParam(r, "songID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, setlist)
}

func (h *Handler) MoveSetlistSong(w http.ResponseWriter, r *http.Request) {
	req := &dto.MoveSongRequest{}
	if !h.decode(w, r, req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, err)
		return
	}
	setlist, err := h.Offline.MoveSetlistSong(chi.URLParam(r, "id"), req.From, req.To)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, setlist)
}

func (h *Handler) DuplicateSetlist(w http.ResponseWriter, r *http.Request) {
	req := &dto.DuplicateRequest{}
	if !h.decode(w, r, req) {
		return
	}
	setlist, err := h.Offline.DuplicateSetlist(chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, setlist)
}

func (h *Handler) RecordSetlistUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.Offline.RecordSetlistUsage(chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, nil)
}

func (h *Handler) UndoSetlist(w http.ResponseWriter, r *http.Request) {
	setlist, err := h.Offline.UndoSetlist(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, setlist)
}
