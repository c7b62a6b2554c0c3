package prompt

import (
	"strings"
	"testing"

	"github.com/ashureev/research-wizard/internal/domain"
)

func newTestSession() *domain.Session {
	s := domain.NewSession("sess-1")
	s.CommitTopic("money")
	s.EnterStage(domain.StageQuestion)
	s.CommitResearchQuestion("Do part-time jobs affect spending habits?")
	return s
}

func TestNewCatalogCoversAllStages(t *testing.T) {
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	for stage := domain.StageTopic; stage <= domain.StageSummary; stage++ {
		if c.System(stage, nil) == "" {
			t.Errorf("stage %s: empty system prompt", stage)
		}
		if c.Instruction(stage, nil) == "" {
			t.Errorf("stage %s: empty instruction", stage)
		}
	}
}

func TestSystemInterpolatesSessionFields(t *testing.T) {
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	s := newTestSession()

	got := c.System(domain.StageQuestion, s)
	if !strings.Contains(got, "money") {
		t.Errorf("question system prompt should mention the topic: %q", got)
	}

	s.EnterStage(domain.StageSurveyLikert)
	got = c.System(domain.StageSurveyLikert, s)
	if !strings.Contains(got, "Do part-time jobs affect spending habits?") {
		t.Errorf("likert system prompt should mention the research question: %q", got)
	}
}

func TestInstructionInterpolatesSessionFields(t *testing.T) {
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	s := newTestSession()

	got := c.Instruction(domain.StageQuestion, s)
	if !strings.Contains(got, `"money"`) {
		t.Errorf("question instruction should echo the chosen topic: %q", got)
	}
}

func TestUnknownStageFallsBack(t *testing.T) {
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	got := c.System(domain.Stage(99), nil)
	if got == "" {
		t.Error("expected generic fallback prompt for unknown stage")
	}
}
