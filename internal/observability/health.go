package observability

import (
	"context"
	"sync"
	"time"
)

// ComponentStatus grades one component's health.
type ComponentStatus string

const (
	StatusHealthy   ComponentStatus = "healthy"
	StatusDegraded  ComponentStatus = "degraded"
	StatusUnhealthy ComponentStatus = "unhealthy"
)

// severity orders statuses so the aggregate can take the worst.
func severity(s ComponentStatus) int {
	switch s {
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	default:
		return 0
	}
}

// HealthCheck probes one component. Checks should respect the context
// deadline and report rather than block.
type HealthCheck func(ctx context.Context) ComponentHealth

// ComponentHealth is one component's report. Name, LastChecked and
// Latency are filled in by the monitor.
type ComponentHealth struct {
	Name        string          `json:"name"`
	Status      ComponentStatus `json:"status"`
	Message     string          `json:"message,omitempty"`
	LastChecked time.Time       `json:"last_checked"`
	Latency     time.Duration   `json:"latency_ms"`
	Details     map[string]any  `json:"details,omitempty"`
}

// SystemHealth aggregates every component; Status is the worst of them.
type SystemHealth struct {
	Status     ComponentStatus            `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  time.Time                  `json:"ts"`
	Uptime     time.Duration              `json:"uptime"`
}

// Alert is emitted when a component changes status.
type Alert struct {
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"ts"`
}

// HealthMonitor runs registered checks on an interval and emits an
// Alert whenever a component's status changes.
type HealthMonitor struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	results map[string]ComponentHealth

	started  time.Time
	interval time.Duration
	alerts   chan Alert
}

func NewHealthMonitor(interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		checks:   make(map[string]HealthCheck),
		results:  make(map[string]ComponentHealth),
		started:  time.Now(),
		interval: interval,
		alerts:   make(chan Alert, 256),
	}
}

// Register adds a named check. Call before Start.
func (m *HealthMonitor) Register(name string, check HealthCheck) {
	m.mu.Lock()
	m.checks[name] = check
	m.mu.Unlock()
}

// Start probes immediately, then on every interval tick until the
// context is cancelled.
func (m *HealthMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// Check probes on demand and returns the aggregate, for the /health
// handler.
func (m *HealthMonitor) Check(ctx context.Context) SystemHealth {
	m.probe(ctx)

	m.mu.RLock()
	defer m.mu.RUnlock()

	components := make(map[string]ComponentHealth, len(m.results))
	worst := StatusHealthy
	for name, h := range m.results {
		components[name] = h
		if severity(h.Status) > severity(worst) {
			worst = h.Status
		}
	}

	return SystemHealth{
		Status:     worst,
		Components: components,
		Timestamp:  time.Now(),
		Uptime:     time.Since(m.started),
	}
}

// Alerts is the stream of status transitions. The channel is buffered;
// alerts are dropped rather than blocking a probe when nobody reads.
func (m *HealthMonitor) Alerts() <-chan Alert {
	return m.alerts
}

func (m *HealthMonitor) probe(ctx context.Context) {
	m.mu.RLock()
	checks := make(map[string]HealthCheck, len(m.checks))
	for name, fn := range m.checks {
		checks[name] = fn
	}
	m.mu.RUnlock()

	fresh := make(map[string]ComponentHealth, len(checks))
	for name, fn := range checks {
		start := time.Now()
		result := fn(ctx)
		result.Name = name
		result.LastChecked = time.Now()
		result.Latency = time.Since(start)
		fresh[name] = result
	}

	m.mu.Lock()
	prev := m.results
	m.results = fresh
	m.mu.Unlock()

	for name, cur := range fresh {
		old, known := prev[name]
		if !known || old.Status != cur.Status {
			m.alert(name, cur)
		}
	}
}

func (m *HealthMonitor) alert(name string, h ComponentHealth) {
	level := "info"
	switch h.Status {
	case StatusDegraded:
		level = "warn"
	case StatusUnhealthy:
		level = "critical"
	}

	msg := h.Message
	if msg == "" {
		msg = "status changed to " + string(h.Status)
	}

	select {
	case m.alerts <- Alert{Level: level, Component: name, Message: msg, Timestamp: time.Now()}:
	default:
	}
}
