package postsync

import (
	"context"
	"sync"
)

const defaultFailureThreshold = 3

// Prober checks whether the API is reachable.
type Prober interface {
	Health(ctx context.Context) error
}

// Monitor tracks connectivity from three inputs: a simulated-offline switch,
// the host's network signal and recent API call outcomes.
type Monitor struct {
	prober    Prober
	threshold int

	mu              sync.Mutex
	simulateOffline bool
	networkUp       bool
	failures        int
}

// NewMonitor returns an online monitor. After threshold consecutive
// transport failures it reports offline until a call succeeds again.
func NewMonitor(prober Prober, threshold int) *Monitor {
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	return &Monitor{prober: prober, threshold: threshold, networkUp: true}
}

func (m *Monitor) SetSimulateOffline(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulateOffline = v
}

func (m *Monitor) SimulateOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.simulateOffline
}

func (m *Monitor) SetNetworkUp(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkUp = v
}

func (m *Monitor) ReportSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = 0
}

func (m *Monitor) ReportFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *Monitor) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.simulateOffline || !m.networkUp || m.failures >= m.threshold
}

// Check probes the API and records the outcome. It reports whether the API
// is reachable; a simulated outage is never probed.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.SimulateOffline() {
		return false
	}
	if m.prober == nil {
		return !m.Offline()
	}
	if err := m.prober.Health(ctx); err != nil {
		m.ReportFailure()
		return false
	}
	m.ReportSuccess()
	return true
}
