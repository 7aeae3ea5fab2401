// Package sync watches whether the API server is reachable and reports
// changes to the terminal UI.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// checkTimeout bounds a single health check.
const checkTimeout = 5 * time.Second

// defaultInterval applies when no poll interval is configured.
const defaultInterval = 15 * time.Second

// HealthChecker checks whether the server answers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ConnectivityMsg is a tea.Msg sent when the monitor's view of the server
// changes between reachable and unreachable.
type ConnectivityMsg struct {
	Online bool
	// Simulated is set when the change came from SetOnline.
	Simulated bool
	Err       error
}

// Status is a point-in-time view of the monitor.
type Status struct {
	Online    bool
	Simulated bool
	LastCheck time.Time
	Err       error
}

// Monitor polls the server in the background and tracks connectivity.
// Online satisfies client.Connectivity.
type Monitor struct {
	checker   HealthChecker
	interval  time.Duration
	resultCh  chan ConnectivityMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu        gosync.Mutex
	running   bool
	online    bool
	forced    bool
	lastCheck time.Time
	lastErr   error
}

// New creates a Monitor that assumes the server is reachable until a check
// says otherwise.
func New(p HealthChecker, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Monitor{
		checker:   p,
		interval:  interval,
		resultCh:  make(chan ConnectivityMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		online:    true,
	}
}

// Online reports whether requests should be attempted.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online && !m.forced
}

// Status returns the current connectivity status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Online:    m.online && !m.forced,
		Simulated: m.forced,
		LastCheck: m.lastCheck,
		Err:       m.lastErr,
	}
}

// SetOnline overrides connectivity. false simulates being offline until
// SetOnline(true) hands control back to the poll loop and triggers one.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	was := m.online && !m.forced
	m.forced = !online
	now := m.online && !m.forced
	m.mu.Unlock()

	if was != now {
		m.sendResult(ConnectivityMsg{Online: now, Simulated: true})
	}
	if online {
		m.Refresh()
	}
}

// Start returns a tea.Cmd that starts the poll loop and waits for the
// first connectivity change.
func (m *Monitor) Start() tea.Cmd {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.mu.Unlock()

	go m.loop()
	return m.waitForResult()
}

// Stop halts the poll loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	close(m.stopCh)
	m.running = false
}

// Refresh asks the loop for an immediate check.
func (m *Monitor) Refresh() {
	select {
	case m.triggerCh <- struct{}{}:
	default:
	}
}

// Check asks the server once and records the result. It reports the new state.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := m.checker.Health(ctx)

	m.mu.Lock()
	was := m.online && !m.forced
	m.online = err == nil
	m.lastErr = err
	m.lastCheck = time.Now()
	now := m.online && !m.forced
	m.mu.Unlock()

	if was != now {
		m.sendResult(ConnectivityMsg{Online: now, Err: err})
	}
	return now
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(context.Background())
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Check(context.Background())
		case <-m.triggerCh:
			m.Check(context.Background())
		}
	}
}

// sendResult sends without blocking; changes are dropped when nobody reads.
func (m *Monitor) sendResult(msg ConnectivityMsg) {
	select {
	case m.resultCh <- msg:
	default:
	}
}

func (m *Monitor) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.resultCh:
			return msg
		case <-m.stopCh:
			return nil
		}
	}
}

// WaitForNext returns a tea.Cmd that waits for the next connectivity change.
// Call it after handling each ConnectivityMsg to keep listening.
func (m *Monitor) WaitForNext() tea.Cmd {
	return m.waitForResult()
}
