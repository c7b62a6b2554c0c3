package flow

import (
	"log/slog"

	"github.com/ashureev/research-wizard/internal/domain"
	"github.com/ashureev/research-wizard/internal/extract"
	"github.com/ashureev/research-wizard/internal/prompt"
)

// FallbackReply is shown in the chat when the completion provider fails. The
// session is left untouched so the student can simply send again.
const FallbackReply = "Sorry, I couldn't reach your research teacher just now. Please try sending that again."

// Result describes the outcome of processing one exchange.
type Result struct {
	// Reply is the assistant text to show, the fallback message on failure.
	Reply string `json:"reply"`
	// Step and SubStep describe the stage after processing.
	Step    string `json:"step"`
	SubStep string `json:"sub_step,omitempty"`
	// Advanced is true when the reply triggered an automatic transition.
	Advanced bool `json:"advanced"`
	// Instruction is the destination stage's user-facing message, set only
	// on stage entry (automatic or navigated).
	Instruction string `json:"instruction,omitempty"`
	// Failed is true when the reply is the completion-failure fallback.
	Failed bool `json:"failed,omitempty"`
	// Dropped is true when a late reply arrived for a stage that is no
	// longer active and was discarded.
	Dropped bool `json:"-"`
}

// Controller implements the step-flow logic over a session. It holds no
// session state itself; callers own the session and its locking discipline.
type Controller struct {
	catalog         *prompt.Catalog
	detector        AdvanceDetector
	transcriptLimit int
}

// NewController creates a controller. transcriptLimit bounds how many
// transcript entries are replayed to the model per call (<= 0 disables the
// bound).
func NewController(catalog *prompt.Catalog, detector AdvanceDetector, transcriptLimit int) *Controller {
	return &Controller{
		catalog:         catalog,
		detector:        detector,
		transcriptLimit: transcriptLimit,
	}
}

// BuildMessages assembles the completion request for a pending user message:
// one system entry, the bounded transcript, then the new user entry. The
// pending message is not committed to the transcript here; that happens only
// once the reply has arrived.
func (c *Controller) BuildMessages(s *domain.Session, userText string) []domain.Message {
	history := s.BoundedTranscript(c.transcriptLimit)
	msgs := make([]domain.Message, 0, len(history)+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: c.catalog.System(s.Stage, s)})
	msgs = append(msgs, history...)
	msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: userText})
	return msgs
}

// ProcessReply commits a completed exchange, runs extraction, and applies at
// most one automatic transition. sentStage is the stage that was active when
// the completion call went out: if the student navigated away while the call
// was in flight, the late reply must not touch the now-active stage and is
// dropped.
func (c *Controller) ProcessReply(s *domain.Session, sentStage domain.Stage, userText, reply string) Result {
	if s.Stage != sentStage {
		slog.Info("dropping late reply for inactive stage",
			"session_id", s.ID,
			"sent_stage", sentStage.String(),
			"active_stage", s.Stage.String(),
		)
		return Result{Dropped: true, Step: s.Stage.Step(), SubStep: s.Stage.SubStep()}
	}

	s.AppendExchange(userText, reply)
	extract.Apply(s, reply)

	res := Result{Reply: reply}

	if next, ok := c.detector.Next(s.Stage, reply); ok {
		instruction := c.enter(s, next)
		res.Advanced = true
		res.Instruction = instruction
		slog.Info("wizard stage advanced",
			"session_id", s.ID,
			"from", sentStage.String(),
			"to", next.String(),
		)
	}

	res.Step = s.Stage.Step()
	res.SubStep = s.Stage.SubStep()
	return res
}

// Fallback returns the completion-failure result for the active stage.
func (c *Controller) Fallback(s *domain.Session) Result {
	return Result{
		Reply:   FallbackReply,
		Step:    s.Stage.Step(),
		SubStep: s.Stage.SubStep(),
		Failed:  true,
	}
}

// Select performs an explicit navigation to the given stage, available from
// every stage to every stage. The destination starts with a fresh transcript
// and its instruction message.
func (c *Controller) Select(s *domain.Session, stage domain.Stage) Result {
	instruction := c.enter(s, stage)
	return Result{
		Step:        s.Stage.Step(),
		SubStep:     s.Stage.SubStep(),
		Instruction: instruction,
	}
}

// Instruction returns the active stage's user-facing message, used when a
// brand-new session says hello.
func (c *Controller) Instruction(s *domain.Session) string {
	return c.catalog.Instruction(s.Stage, s)
}

func (c *Controller) enter(s *domain.Session, stage domain.Stage) string {
	s.EnterStage(stage)
	return c.catalog.Instruction(stage, s)
}
