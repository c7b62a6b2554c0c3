// Package wizard owns the in-memory wizard sessions and runs the single
// message exchange each of them is allowed at a time. Sessions live only in
// memory; there is no persistence, and an idle sweeper keeps the registry
// bounded.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/research-wizard/internal/completion"
	"github.com/ashureev/research-wizard/internal/domain"
	"github.com/ashureev/research-wizard/internal/flow"
	"github.com/google/uuid"
)

// ErrBusy is returned when a message arrives while the session's previous
// completion call is still in flight. One session, one exchange at a time.
var ErrBusy = errors.New("session has a message in flight")

// Event is pushed to live listeners after anything that changes what the
// student should see: stage entries and refreshed summaries.
type Event struct {
	Type        string `json:"type"` // "stage" or "summary"
	Step        string `json:"step"`
	SubStep     string `json:"sub_step,omitempty"`
	Instruction string `json:"instruction,omitempty"`
	Summary     string `json:"summary"`
}

// Notifier delivers events to whoever is watching a session (the websocket
// layer). Implementations must not block.
type Notifier interface {
	Notify(key string, ev Event)
}

// entry wraps one session with its exchange guard. The mutex protects the
// session fields; busy is true while a completion call is outstanding, so
// the lock is never held across the network.
type entry struct {
	mu      sync.Mutex
	busy    bool
	session *domain.Session
}

// Manager is the in-memory session registry keyed by identity (user+tab).
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	completer  completion.Completer
	controller *flow.Controller
	notifier   Notifier
	ttl        time.Duration
}

// NewManager creates a session manager.
func NewManager(completer completion.Completer, controller *flow.Controller, ttl time.Duration) *Manager {
	return &Manager{
		sessions:   make(map[string]*entry),
		completer:  completer,
		controller: controller,
		ttl:        ttl,
	}
}

// SetNotifier attaches the live event sink. Must be called before serving.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

func (m *Manager) getOrCreate(key string) *entry {
	m.mu.RLock()
	e, ok := m.sessions[key]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[key]; ok {
		return e
	}
	e = &entry{session: domain.NewSession(uuid.NewString())}
	m.sessions[key] = e
	slog.Info("wizard session created", "key", key, "session_id", e.session.ID)
	return e
}

// SendMessage runs one exchange for the session: build the completion
// request, call the provider, then commit, extract and advance. The entry
// lock is released while the provider call is outstanding; the busy flag
// rejects overlapping sends and the controller's stage guard discards a
// reply that arrives after the student navigated away.
func (m *Manager) SendMessage(ctx context.Context, key, text string) (flow.Result, error) {
	e := m.getOrCreate(key)

	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return flow.Result{}, ErrBusy
	}
	e.busy = true
	e.session.Touch()
	sentStage := e.session.Stage
	msgs := m.controller.BuildMessages(e.session, text)
	e.mu.Unlock()

	reply, err := m.completer.Complete(ctx, msgs)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false

	if err != nil {
		slog.Warn("completion failed, returning fallback",
			"session_id", e.session.ID,
			"stage", sentStage.String(),
			"error", err,
		)
		return m.controller.Fallback(e.session), nil
	}

	res := m.controller.ProcessReply(e.session, sentStage, text, reply)
	if res.Dropped {
		return res, nil
	}

	summary := domain.RenderSummary(e.session)
	m.notify(key, Event{
		Type:        "summary",
		Step:        res.Step,
		SubStep:     res.SubStep,
		Instruction: res.Instruction,
		Summary:     summary,
	})
	return res, nil
}

// Select navigates the session to a step explicitly. Allowed at any time,
// including while a completion call is in flight; the stage guard protects
// the destination from the late reply.
func (m *Manager) Select(key string, stage domain.Stage) flow.Result {
	e := m.getOrCreate(key)

	e.mu.Lock()
	e.session.Touch()
	res := m.controller.Select(e.session, stage)
	summary := domain.RenderSummary(e.session)
	e.mu.Unlock()

	m.notify(key, Event{
		Type:        "stage",
		Step:        res.Step,
		SubStep:     res.SubStep,
		Instruction: res.Instruction,
		Summary:     summary,
	})
	return res
}

// State is a read-only view of a session for the API.
type State struct {
	SessionID               string   `json:"session_id"`
	Step                    string   `json:"step"`
	SubStep                 string   `json:"sub_step,omitempty"`
	Instruction             string   `json:"instruction"`
	Topic                   string   `json:"topic"`
	ResearchQuestion        string   `json:"research_question"`
	ProfileQuestions        []string `json:"profile_questions"`
	MultipleChoiceQuestions []string `json:"multiple_choice_questions"`
	LikertQuestions         []string `json:"likert_questions"`
	Hypothesis              string   `json:"hypothesis"`
	SlidePlan               []string `json:"slide_plan"`
	ExportSummary           string   `json:"export_summary"`
	Summary                 string   `json:"summary"`
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot(key string) State {
	e := m.getOrCreate(key)

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	s.Touch()
	return State{
		SessionID:               s.ID,
		Step:                    s.Stage.Step(),
		SubStep:                 s.Stage.SubStep(),
		Instruction:             m.controller.Instruction(s),
		Topic:                   s.Topic,
		ResearchQuestion:        s.ResearchQuestion,
		ProfileQuestions:        s.ProfileQuestions,
		MultipleChoiceQuestions: s.MultipleChoiceQuestions,
		LikertQuestions:         s.LikertQuestions,
		Hypothesis:              s.Hypothesis,
		SlidePlan:               s.SlidePlan,
		ExportSummary:           s.ExportSummary,
		Summary:                 domain.RenderSummary(s),
	}
}

// Summary returns the derived export text for a session.
func (m *Manager) Summary(key string) string {
	e := m.getOrCreate(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.RenderSummary(e.session)
}

func (m *Manager) notify(key string, ev Event) {
	if m.notifier != nil {
		m.notifier.Notify(key, ev)
	}
}

const sweepInterval = 5 * time.Minute

// StartSweeper runs a background goroutine that evicts sessions idle longer
// than the TTL, keeping the in-memory registry bounded.
func (m *Manager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("session sweeper started", "interval", sweepInterval, "ttl", m.ttl)

		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-ctx.Done():
				slog.Info("session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for key, e := range m.sessions {
		e.mu.Lock()
		idle := e.session.IdleFor()
		busy := e.busy
		e.mu.Unlock()

		if !busy && idle > m.ttl {
			delete(m.sessions, key)
			evicted++
		}
	}

	if evicted > 0 {
		slog.Info("session sweeper evicted idle sessions", "count", evicted)
	}
}

// Len returns the number of live sessions, for the health endpoint.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
