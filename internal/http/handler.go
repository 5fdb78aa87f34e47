package httpapp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kuebic/songbook-offline/internal/http/dto"
	"github.com/Kuebic/songbook-offline/internal/logger"
	"github.com/Kuebic/songbook-offline/internal/netmon"
	"github.com/Kuebic/songbook-offline/internal/offline"
	"github.com/Kuebic/songbook-offline/internal/syncqueue"
)

type Handler struct {
	Offline *offline.Service
	Queue   *syncqueue.Queue
	Worker  *syncqueue.Worker
	Monitor *netmon.Monitor
	UserID  string
	Logger  *logger.Logger
}

func NewHandler(svc *offline.Service, queue *syncqueue.Queue, worker *syncqueue.Worker, monitor *netmon.Monitor, userID string, log *logger.Logger) *Handler {
	return &Handler{
		Offline: svc,
		Queue:   queue,
		Worker:  worker,
		Monitor: monitor,
		UserID:  userID,
		Logger:  log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/songs", func(r chi.Router) {
		r.Get("/", h.ListSongs)
		r.Post("/", h.SaveSong)
		r.Get("/{id}", h.GetSong)
		r.Put("/{id}", h.SaveSong)
		r.Delete("/{id}", h.DeleteSong)
		r.Post("/{id}/favorite", h.ToggleFavorite)
	})

	r.Route("/api/setlists", func(r chi.Router) {
		r.Get("/", h.ListSetlists)
		r.Post("/", h.SaveSetlist)
		r.Get("/{id}", h.GetSetlist)
		r.Put("/{id}", h.SaveSetlist)
		r.Delete("/{id}", h.DeleteSetlist)
		r.Post("/{id}/songs", h.AddSongToSetlist)
		r.Delete("/{id}/songs/{songID}", h.RemoveSongFromSetlist)
		r.Post("/{id}/move", h.MoveSetlistSong)
		r.Post("/{id}/duplicate", h.DuplicateSetlist)
		r.Post("/{id}/use", h.RecordSetlistUsage)
		r.Post("/{id}/undo", h.UndoSetlist)
	})

	r.Get("/api/preferences", h.GetPreferences)
	r.Put("/api/preferences", h.SavePreferences)

	r.Route("/api/storage", func(r chi.Router) {
		r.Get("/stats", h.GetStorageStats)
		r.Get("/quota", h.CheckQuota)
		r.Post("/cleanup", h.Cleanup)
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)
		r.Get("/backups/{id}", h.GetBackup)
	})

	r.Route("/api/sync", func(r chi.Router) {
		r.Get("/queue", h.ListQueue)
		r.Get("/stats", h.QueueStats)
		r.Post("/retry", h.RetryFailed)
		r.Post("/clear-completed", h.ClearCompleted)
		r.Post("/clear-all", h.ClearAll)
	})

	r.Get("/api/network/status", h.NetworkStatus)
	r.Post("/api/network/link", h.SetLinkState)
}

func (h *Handler) respond(w http.ResponseWriter, status int, result dto.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Logger.Warn("Failed to encode response", "error", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, data any) {
	h.respond(w, http.StatusOK, dto.OK(data))
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status, code := dto.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed", "code", code, "error", err)
	}
	h.respond(w, status, dto.Err(code, err.Error()))
}

func (h *Handler) notFound(w http.ResponseWriter, resource, id string) {
	h.respond(w, http.StatusNotFound, dto.Err("not_found", resource+" "+id+" not found"))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respond(w, http.StatusBadRequest, dto.Err("validation_error", "invalid JSON body: "+err.Error()))
		return false
	}
	return true
}
