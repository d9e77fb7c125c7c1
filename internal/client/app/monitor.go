package app

import (
	"context"
	"sync"
	"time"

	"github.com/mpetrovs/tabchat/internal/logging"
)

// Pinger probes backend reachability with a cheap read.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor owns the single process-wide online flag. It probes the backend
// on an interval (and accepts an external reachability signal) and fires
// the replay callback exactly once per offline→online edge — repeated
// online ticks must not retrigger it. The callback runs on its own
// goroutine so a replay never blocks the caller.
type Monitor struct {
	pinger      Pinger
	interval    time.Duration
	pingTimeout time.Duration
	log         logging.Logger
	onOnline    func(ctx context.Context)

	mu     sync.Mutex
	online bool
}

// NewMonitor starts in the offline state; the first successful probe is an
// edge and drains whatever queued up before launch.
func NewMonitor(pinger Pinger, interval time.Duration, log logging.Logger, onOnline func(ctx context.Context)) *Monitor {
	return &Monitor{
		pinger:      pinger,
		interval:    interval,
		pingTimeout: 3 * time.Second,
		log:         log,
		onOnline:    onOnline,
	}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline feeds an external reachability signal (e.g. an OS network
// change event) into the monitor. Edge detection applies the same way as
// for probed state.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	m.transition(ctx, online)
}

// Run probes reachability until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.pingTimeout)
	err := m.pinger.Ping(pingCtx)
	cancel()
	m.transition(ctx, err == nil)
}

func (m *Monitor) transition(ctx context.Context, online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	if online == wasOnline {
		return
	}

	if online {
		m.log.Info(ctx, "connectivity restored")
		if m.onOnline != nil {
			go m.onOnline(ctx)
		}
	} else {
		m.log.Warn(ctx, "connectivity lost, sends will be queued")
	}
}
