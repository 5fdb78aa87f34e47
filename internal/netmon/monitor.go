// Package netmon derives effective connectivity from two independent
// signals: the app-reported link state (immediate, event-driven) and a
// periodic active probe of the remote API.
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/Kuebic/songbook-offline/internal/logger"
)

// Status is the derived connectivity state. Online requires both signals
// positive; limited is link-up but probe-failing (captive portal and the
// like); offline is link-down.
type Status string

const (
	StatusOnline  Status = "online"
	StatusLimited Status = "limited"
	StatusOffline Status = "offline"
)

// Prober checks application-level reachability of the remote API.
type Prober interface {
	Probe(ctx context.Context) error
}

type Monitor struct {
	prober   Prober
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	linkUp  bool
	probeOK bool
	nextID  int
	subs    map[int]func(Status)

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewMonitor(prober Prober, interval time.Duration, log *logger.Logger) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		prober:   prober,
		interval: interval,
		log:      log.WithComponent("netmon"),
		// Optimistic until the first probe says otherwise.
		probeOK: true,
		subs:    make(map[int]func(Status)),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the probe loop. Probes only run while the link is up.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.probeLoop()
}

func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

// SetLinkUp reports the platform link signal (the browser online/offline
// event analogue).
func (m *Monitor) SetLinkUp(up bool) {
	m.mu.Lock()
	before := m.statusLocked()
	m.linkUp = up
	if up && !m.probeOK {
		// Give the new link the benefit of the doubt until probed.
		m.probeOK = true
	}
	after := m.statusLocked()
	subs := m.subscribersLocked()
	m.mu.Unlock()

	if before != after {
		m.log.Info("Connectivity changed", "status", after)
		notify(subs, after)
	}
}

// EffectiveStatus returns the derived connectivity state.
func (m *Monitor) EffectiveStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// OnChange registers a callback for status transitions and returns an
// unsubscribe func.
func (m *Monitor) OnChange(fn func(Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Monitor) statusLocked() Status {
	switch {
	case !m.linkUp:
		return StatusOffline
	case !m.probeOK:
		return StatusLimited
	default:
		return StatusOnline
	}
}

func (m *Monitor) subscribersLocked() []func(Status) {
	subs := make([]func(Status), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}

func (m *Monitor) probeLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.runProbe()
		}
	}
}

func (m *Monitor) runProbe() {
	m.mu.Lock()
	up := m.linkUp
	m.mu.Unlock()
	if !up || m.prober == nil {
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.interval/2)
	err := m.prober.Probe(ctx)
	cancel()

	m.mu.Lock()
	before := m.statusLocked()
	m.probeOK = err == nil
	after := m.statusLocked()
	subs := m.subscribersLocked()
	m.mu.Unlock()

	if before != after {
		if err != nil {
			m.log.Warn("Reachability probe failed", "error", err)
		}
		m.log.Info("Connectivity changed", "status", after)
		notify(subs, after)
	}
}

func notify(subs []func(Status), status Status) {
	for _, fn := range subs {
		fn(status)
	}
}
