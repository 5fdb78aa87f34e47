package netmon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Kuebic/songbook-offline/internal/logger"
)

// fakeProber toggles application-level reachability.
type fakeProber struct {
	mu  sync.Mutex
	err error
}

func (p *fakeProber) Probe(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProber) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error"})
}

func waitForStatus(t *testing.T, m *Monitor, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.EffectiveStatus() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for status %s, have %s", want, m.EffectiveStatus())
}

func TestMonitor_StatusDerivation(t *testing.T) {
	m := NewMonitor(nil, time.Hour, testLogger())

	// Link starts down.
	if got := m.EffectiveStatus(); got != StatusOffline {
		t.Errorf("Expected offline initially, got %s", got)
	}

	m.SetLinkUp(true)
	if got := m.EffectiveStatus(); got != StatusOnline {
		t.Errorf("Expected online with link up, got %s", got)
	}

	m.SetLinkUp(false)
	if got := m.EffectiveStatus(); got != StatusOffline {
		t.Errorf("Expected offline with link down, got %s", got)
	}
}

func TestMonitor_OnChangeNotifications(t *testing.T) {
	m := NewMonitor(nil, time.Hour, testLogger())

	var mu sync.Mutex
	var seen []Status
	unsub := m.OnChange(func(s Status) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	m.SetLinkUp(true)
	m.SetLinkUp(true) // no transition, no callback
	m.SetLinkUp(false)

	mu.Lock()
	got := append([]Status(nil), seen...)
	mu.Unlock()
	if len(got) != 2 || got[0] != StatusOnline || got[1] != StatusOffline {
		t.Errorf("Expected [online offline], got %v", got)
	}

	unsub()
	m.SetLinkUp(true)
	mu.Lock()
	after := len(seen)
	mu.Unlock()
	if after != 2 {
		t.Errorf("Expected no callbacks after unsubscribe, got %d", after)
	}
}

func TestMonitor_ProbeFailureMeansLimited(t *testing.T) {
	prober := &fakeProber{err: errors.New("captive portal")}
	m := NewMonitor(prober, 10*time.Millisecond, testLogger())
	defer m.Stop()

	m.SetLinkUp(true)
	if got := m.EffectiveStatus(); got != StatusOnline {
		t.Fatalf("Expected optimistic online before probing, got %s", got)
	}

	m.Start()
	waitForStatus(t, m, StatusLimited)

	prober.setErr(nil)
	waitForStatus(t, m, StatusOnline)
}

func TestMonitor_LinkUpResetsProbeOptimism(t *testing.T) {
	prober := &fakeProber{err: errors.New("unreachable")}
	m := NewMonitor(prober, 10*time.Millisecond, testLogger())

	m.SetLinkUp(true)
	m.Start()
	waitForStatus(t, m, StatusLimited)
	m.Stop()

	// A fresh link gets the benefit of the doubt until probed again.
	m.SetLinkUp(false)
	m.SetLinkUp(true)
	if got := m.EffectiveStatus(); got != StatusOnline {
		t.Errorf("Expected online on fresh link, got %s", got)
	}
}
