package offline

import (
	"sync"

	"github.com/Kuebic/songbook-offline/internal/constants"
	"github.com/Kuebic/songbook-offline/internal/domain"
)

// setlistHistory holds per-setlist undo snapshots. Capped and in-memory
// only; durable entities never carry edit history.
type setlistHistory struct {
	mu     sync.Mutex
	stacks map[string][]*domain.CachedSetlist
}

func (h *setlistHistory) push(id string, snapshot *domain.CachedSetlist) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stacks == nil {
		h.stacks = make(map[string][]*domain.CachedSetlist)
	}
	stack := append(h.stacks[id], snapshot)
	if len(stack) > constants.MaxUndoHistory {
		stack = stack[len(stack)-constants.MaxUndoHistory:]
	}
	h.stacks[id] = stack
}

func (h *setlistHistory) pop(id string) *domain.CachedSetlist {
	h.mu.Lock()
	defer h.mu.Unlock()

	stack := h.stacks[id]
	if len(stack) == 0 {
		return nil
	}
	top := stack[len(stack)-1]
	h.stacks[id] = stack[:len(stack)-1]
	return top
}

func (h *setlistHistory) drop(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.stacks, id)
}
