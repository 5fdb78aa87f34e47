package httpapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/http/dto"
)

func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	q, err := dto.ParseSongQuery(r.URL.Query())
	if err != nil {
		h.fail(w, err)
		return
	}
	songs, err := h.Offline.GetSongs(q)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, songs)
}

func (h *Handler) GetSong(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	song, err := h.Offline.GetSong(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if song == nil {
		h.notFound(w, "song", id)
		return
	}
	h.ok(w, song)
}

func (h *Handler) SaveSong(w http.ResponseWriter, r *http.Request) {
	song := &domain.CachedSong{}
	if !h.decode(w, r, song) {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		song.ID = id
	}
	saved, err := h.Offline.SaveSong(song)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, saved)
}

func (h *Handler) DeleteSong(w http.ResponseWriter, r *http.Request) {
	if err := h.Offline.DeleteSong(chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, nil)
}

func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	song, err := h.Offline.ToggleFavorite(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, song)
}

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.Offline.GetPreferences(h.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if prefs == nil {
		h.notFound(w, "preferences", h.UserID)
		return
	}
	h.ok(w, prefs)
}

func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	prefs := &domain.UserPreferences{}
	if !h.decode(w, r, prefs) {
		return
	}
	if prefs.UserID == "" {
		prefs.UserID = h.UserID
	}
	saved, err := h.Offline.SavePreferences(prefs)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, saved)
}
