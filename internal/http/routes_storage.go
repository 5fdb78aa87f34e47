package httpapp

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/http/dto"
	"github.com/Kuebic/songbook-offline/internal/offline"
)

func (h *Handler) GetStorageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Offline.GetStorageStats()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, stats)
}

func (h *Handler) CheckQuota(w http.ResponseWriter, r *http.Request) {
	status, err := h.Offline.CheckStorageQuota()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, status)
}

func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	cfg := offline.CleanupConfig{}
	if !h.decode(w, r, &cfg) {
		return
	}
	result, err := h.Offline.Cleanup(cfg)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, result)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	opts, err := dto.ParseExportOptions(r.URL.Query(), h.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	data, err := h.Offline.ExportData(opts)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, data)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	req := &dto.ImportRequest{}
	if !h.decode(w, r, req) {
		return
	}
	result, err := h.Offline.ImportData(req.Data, offline.ImportOptions{
		Strategy:     req.Strategy,
		CreateBackup: req.Backup,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, result)
}

func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.Offline.GetBackup(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if data == nil {
		h.notFound(w, "backup", id)
		return
	}
	h.ok(w, data)
}

func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	ops, err := h.Queue.List(domain.OperationStatus(r.URL.Query().Get("status")), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, ops)
}

func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Queue.Stats()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, stats)
}

func (h *Handler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	n, err := h.Queue.RetryFailed()
	if err != nil {
		h.fail(w, err)
		return
	}
	if h.Worker != nil {
		h.Worker.Kick()
	}
	h.ok(w, map[string]int64{"reset": n})
}

func (h *Handler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	n, err := h.Queue.ClearCompleted()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, map[string]int64{"cleared": n})
}

func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.ClearAll(); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, nil)
}

func (h *Handler) NetworkStatus(w http.ResponseWriter, r *http.Request) {
	h.ok(w, map[string]string{"status": string(h.Monitor.EffectiveStatus())})
}

func (h *Handler) SetLinkState(w http.ResponseWriter, r *http.Request) {
	req := &dto.LinkStateRequest{}
	if !h.decode(w, r, req) {
		return
	}
	h.Monitor.SetLinkUp(req.Up)
	h.ok(w, map[string]string{"status": string(h.Monitor.EffectiveStatus())})
}
