package syncqueue

import (
	"context"
	"sync"
	"time"

	"github.com/Kuebic/songbook-offline/internal/netmon"
)

// Worker triggers drains: on online transitions (after a settle delay so a
// flapping link does not thrash) and on a slow poll while online.
type Worker struct {
	queue   *Queue
	monitor *netmon.Monitor

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()

	kick chan struct{}
}

func NewWorker(queue *Queue, monitor *netmon.Monitor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		queue:   queue,
		monitor: monitor,
		ctx:     ctx,
		cancel:  cancel,
		kick:    make(chan struct{}, 1),
	}
}

func (w *Worker) Start() {
	w.queue.log.Info("Starting sync worker")

	// Operations stuck in syncing were interrupted, not confirmed.
	if err := w.queue.db.ResetStuckOperations(); err != nil {
		w.queue.log.Warn("Failed to reset stuck operations", "error", err)
	}

	if w.monitor != nil {
		w.unsub = w.monitor.OnChange(func(status netmon.Status) {
			if status != netmon.StatusOnline {
				return
			}
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(w.queue.cfg.SettleDelay):
				}
				w.Kick()
			}()
		})
	}

	w.wg.Add(1)
	go w.run()
}

func (w *Worker) Stop() {
	w.queue.log.Info("Stopping sync worker")
	if w.unsub != nil {
		w.unsub()
	}
	w.cancel()
	w.wg.Wait()
}

// Kick requests a drain pass without waiting for the next poll.
func (w *Worker) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *Worker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.queue.cfg.DrainPoll)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
		case <-w.kick:
		}

		if w.monitor != nil && w.monitor.EffectiveStatus() != netmon.StatusOnline {
			continue
		}
		if _, err := w.queue.Drain(w.ctx); err != nil && w.ctx.Err() == nil {
			w.queue.log.Warn("Drain pass failed", "error", err)
		}
	}
}
