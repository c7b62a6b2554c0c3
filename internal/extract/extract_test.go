package extract

import (
	"reflect"
	"testing"

	"github.com/ashureev/research-wizard/internal/domain"
)

func sessionAt(stage domain.Stage) *domain.Session {
	s := domain.NewSession("sess-1")
	s.EnterStage(stage)
	return s
}

func TestTopicCommitsStudentsOwnMessage(t *testing.T) {
	s := sessionAt(domain.StageTopic)
	s.AppendExchange("money", "Money is a great topic! Now press 'Research Question' to continue.")

	Apply(s, "Money is a great topic! Now press 'Research Question' to continue.")

	if s.Topic != "money" {
		t.Errorf("expected topic from student message, got %q", s.Topic)
	}
}

func TestQuestionTakesFirstNumberedItem(t *testing.T) {
	s := sessionAt(domain.StageQuestion)
	reply := "1. Do part-time jobs affect spending habits?\nGreat - we can use that as your research question!"
	s.AppendExchange("part time jobs and money", reply)

	Apply(s, reply)

	if s.ResearchQuestion != "Do part-time jobs affect spending habits?" {
		t.Errorf("unexpected research question: %q", s.ResearchQuestion)
	}
}

func TestQuestionFallsBackToStudentMessage(t *testing.T) {
	s := sessionAt(domain.StageQuestion)
	reply := "That sounds like a solid question to me!"
	s.AppendExchange("Do phones hurt sleep?", reply)

	Apply(s, reply)

	if s.ResearchQuestion != "Do phones hurt sleep?" {
		t.Errorf("expected fallback to student message, got %q", s.ResearchQuestion)
	}
}

func TestBulletListExtraction(t *testing.T) {
	s := sessionAt(domain.StageSurveyProfile)
	reply := "Here are some profile questions:\n- What is your age?\n- What club are you in?\nPick your favorites."

	Apply(s, reply)

	want := []string{"What is your age?", "What club are you in?"}
	if !reflect.DeepEqual(s.ProfileQuestions, want) {
		t.Errorf("profile questions = %v, want %v", s.ProfileQuestions, want)
	}
}

func TestBulletMissLeavesListUnchanged(t *testing.T) {
	s := sessionAt(domain.StageSurveyProfile)
	s.ProfileQuestions = []string{"What is your age?"}

	Apply(s, "Those look good to me, nothing to add!")

	want := []string{"What is your age?"}
	if !reflect.DeepEqual(s.ProfileQuestions, want) {
		t.Errorf("empty match should not clear the list: %v", s.ProfileQuestions)
	}
}

func TestMultipleChoiceBlocks(t *testing.T) {
	s := sessionAt(domain.StageSurveyMultipleChoice)
	reply := "Try these:\n" +
		"1. How do you get your spending money?\n" +
		"   a) Allowance\n" +
		"   b) Part-time job\n" +
		"\n" +
		"2. What do you spend most on?\n" +
		"   a) Food\n" +
		"   b) Games\n"

	Apply(s, reply)

	if len(s.MultipleChoiceQuestions) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %v", len(s.MultipleChoiceQuestions), s.MultipleChoiceQuestions)
	}
	if s.MultipleChoiceQuestions[0] != "1. How do you get your spending money?\n   a) Allowance\n   b) Part-time job" {
		t.Errorf("unexpected first block: %q", s.MultipleChoiceQuestions[0])
	}
}

func TestHypothesisOverwritesAndIsIdempotent(t *testing.T) {
	s := sessionAt(domain.StageHypothesis)
	s.Hypothesis = "old hypothesis"

	reply := "Students who have part-time jobs tend to spend more on entertainment."
	Apply(s, reply)
	first := s.Hypothesis
	Apply(s, reply)

	if first != reply {
		t.Errorf("expected verbatim overwrite, got %q", first)
	}
	if s.Hypothesis != first {
		t.Errorf("re-running extraction changed the value: %q", s.Hypothesis)
	}
}

func TestSlidesSplitIntoNonEmptyLines(t *testing.T) {
	s := sessionAt(domain.StageSlides)
	reply := "Slide 1: Introduction\n\nSlide 2: Research Question\nSlide 3: Results\n"

	Apply(s, reply)

	want := []string{"Slide 1: Introduction", "Slide 2: Research Question", "Slide 3: Results"}
	if !reflect.DeepEqual(s.SlidePlan, want) {
		t.Errorf("slide plan = %v, want %v", s.SlidePlan, want)
	}
}

func TestSummaryStoredVerbatim(t *testing.T) {
	s := sessionAt(domain.StageSummary)
	reply := "Your research plan:\nTopic: money\nEnjoy presenting!"

	Apply(s, reply)

	if s.ExportSummary != reply {
		t.Errorf("expected verbatim summary, got %q", s.ExportSummary)
	}
}
