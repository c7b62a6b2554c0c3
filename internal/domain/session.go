// Package domain contains core domain types for the research plan wizard.
package domain

import (
	"time"
)

// Message roles used in transcripts and completion requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged chat entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session holds the accumulated project state for one student.
//
// A Session must not be mutated from two in-flight operations at once; the
// wizard manager serializes access with a per-session exchange guard.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastSeenAt time.Time

	Stage Stage

	Topic                   string
	ResearchQuestion        string
	ProfileQuestions        []string
	MultipleChoiceQuestions []string
	LikertQuestions         []string
	Hypothesis              string
	SlidePlan               []string
	ExportSummary           string

	// transcripts holds the per-stage conversation history. Only the active
	// stage's transcript is ever appended to, and it is cleared whenever the
	// wizard enters a stage.
	transcripts map[Stage][]Message
}

// NewSession creates an empty session starting at the topic stage.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		CreatedAt:   now,
		LastSeenAt:  now,
		Stage:       StageTopic,
		transcripts: make(map[Stage][]Message),
	}
}

// Touch updates the last-seen timestamp used by the idle sweeper.
func (s *Session) Touch() {
	s.LastSeenAt = time.Now()
}

// IdleFor returns how long the session has been idle.
func (s *Session) IdleFor() time.Duration {
	return time.Since(s.LastSeenAt)
}

// Transcript returns the active stage's transcript.
func (s *Session) Transcript() []Message {
	return s.transcripts[s.Stage]
}

// BoundedTranscript returns the most recent limit entries of the active
// stage's transcript. limit <= 0 means no bound.
func (s *Session) BoundedTranscript(limit int) []Message {
	t := s.transcripts[s.Stage]
	if limit <= 0 || len(t) <= limit {
		return t
	}
	return t[len(t)-limit:]
}

// AppendExchange records one completed user/assistant exchange on the active
// stage's transcript. Exchanges are committed only after the model reply
// arrives, so a failed completion leaves the session untouched.
func (s *Session) AppendExchange(userText, assistantText string) {
	s.transcripts[s.Stage] = append(s.transcripts[s.Stage],
		Message{Role: RoleUser, Content: userText},
		Message{Role: RoleAssistant, Content: assistantText},
	)
}

// LastUserMessage returns the newest user-roled entry of the active stage's
// transcript, or "" if there is none.
func (s *Session) LastUserMessage() string {
	t := s.transcripts[s.Stage]
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == RoleUser {
			return t[i].Content
		}
	}
	return ""
}

// EnterStage moves the session to the given stage. The transcript of the
// stage being left is cleared, and the destination starts empty as well, so
// re-entering a stage never resurrects an old conversation.
func (s *Session) EnterStage(stage Stage) {
	delete(s.transcripts, s.Stage)
	delete(s.transcripts, stage)
	s.Stage = stage
}

// CommitTopic sets the topic. The commit is accepted only while the topic
// stage is active: later stages can never clobber a committed field, while
// re-entering the owning stage may revise it.
func (s *Session) CommitTopic(topic string) {
	if s.Stage == StageTopic && topic != "" {
		s.Topic = topic
	}
}

// CommitResearchQuestion sets the research question while its stage is active.
func (s *Session) CommitResearchQuestion(q string) {
	if s.Stage == StageQuestion && q != "" {
		s.ResearchQuestion = q
	}
}
