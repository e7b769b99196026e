package briefing

import (
	"sync"
	"time"
)

// State is the position of the briefing cycle state machine.
type State string

const (
	StateIdle        State = "idle"
	StateAssembling  State = "assembling"
	StateSummarizing State = "summarizing"
	StateDelivering  State = "delivering"
	StateMarking     State = "marking"
)

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerOnDemand  Trigger = "on_demand"
)

// Outcome is how a cycle ended.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeNoNews    Outcome = "no_news"
	OutcomeFailed    Outcome = "failed"
)

// Status is a point-in-time snapshot of the cycle machine.
type Status struct {
	State          State     `json:"state"`
	Cycles         int       `json:"cycles"`
	LastCycleID    string    `json:"last_cycle_id,omitempty"`
	LastTrigger    Trigger   `json:"last_trigger,omitempty"`
	LastOutcome    Outcome   `json:"last_outcome,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	LastArticles   int       `json:"last_articles"`
	LastFinishedAt time.Time `json:"last_finished_at,omitempty"`
}

// Manager holds the cycle state with thread-safe access.
type Manager struct {
	mu     sync.RWMutex
	status Status
}

// NewManager returns a manager in the idle state.
func NewManager() *Manager {
	return &Manager{status: Status{State: StateIdle}}
}

// SetState moves the machine to s.
func (m *Manager) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.State = s
}

// GetState returns the current state.
func (m *Manager) GetState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.State
}

// Finish records the result of a cycle and returns the machine to idle.
func (m *Manager) Finish(res Result, err error, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.State = StateIdle
	m.status.Cycles++
	m.status.LastCycleID = res.ID
	m.status.LastTrigger = res.Trigger
	m.status.LastOutcome = res.Outcome
	m.status.LastArticles = res.Articles
	m.status.LastFinishedAt = at
	m.status.LastError = ""
	if err != nil {
		m.status.LastError = err.Error()
	}
}

// GetStatus returns a copy of the current status.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
