// Package connectivity tracks whether the backend is reachable and fires a
// trigger when the link comes back after an outage.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Probe reports whether the backend is reachable right now.
type Probe func(ctx context.Context) bool

// HTTPProbe returns a Probe that issues a HEAD request against url and
// treats any response below 500 as reachable.
func HTTPProbe(url string, timeout time.Duration) Probe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode < 500
	}
}

// Config controls probe cadence and debounce.
type Config struct {
	// Interval between probes.
	Interval time.Duration
	// Debounce holds a state flip until it has been stable this long.
	Debounce time.Duration
}

// DefaultConfig probes every 10s and debounces flips for 300ms.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Second,
		Debounce: 300 * time.Millisecond,
	}
}

// Monitor polls a Probe and publishes deduplicated online/offline
// transitions. An offline to online transition invokes the trigger, which is
// how a drained device catches up as soon as the network returns.
type Monitor struct {
	probe   Probe
	config  Config
	logger  *zap.Logger
	trigger func()

	mu        sync.Mutex
	online    bool
	candidate bool
	flipSeen  time.Time
	started   bool

	updates chan bool
}

// NewMonitor creates a Monitor. trigger may be nil. The monitor starts in
// the online state so a device that boots with connectivity does not fire a
// spurious recovery trigger.
func NewMonitor(probe Probe, config Config, trigger func(), logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	return &Monitor{
		probe:     probe,
		config:    config,
		logger:    logger,
		trigger:   trigger,
		online:    true,
		candidate: true,
		updates:   make(chan bool, 8),
	}
}

// Online reports the current debounced state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Updates returns a channel carrying deduplicated state transitions. Slow
// consumers drop updates rather than stall the monitor.
func (m *Monitor) Updates() <-chan bool {
	return m.updates
}

// Start polls until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.observe(m.probe(ctx), time.Now())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.observe(m.probe(ctx), time.Now())
		}
	}
}

// observe feeds one probe result into the debounce state machine. A raw
// reading that differs from the published state must hold steady for the
// debounce window before the flip is published.
func (m *Monitor) observe(online bool, at time.Time) {
	m.mu.Lock()

	if !m.started {
		m.started = true
		m.candidate = online
		m.flipSeen = at
		if online == m.online {
			m.mu.Unlock()
			return
		}
	}

	if online == m.online {
		m.candidate = online
		m.mu.Unlock()
		return
	}

	if online != m.candidate {
		m.candidate = online
		m.flipSeen = at
		m.mu.Unlock()
		return
	}

	if at.Sub(m.flipSeen) < m.config.Debounce {
		m.mu.Unlock()
		return
	}

	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	if online {
		m.logger.Info("connectivity restored")
	} else {
		m.logger.Warn("connectivity lost")
	}

	select {
	case m.updates <- online:
	default:
	}

	if !wasOnline && online && m.trigger != nil {
		m.trigger()
	}
}
