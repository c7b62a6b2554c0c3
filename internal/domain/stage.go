package domain

import (
	"fmt"
	"strings"
)

// Stage identifies one state of the wizard. Survey is split into three
// stages so that sub-step transitions behave exactly like step transitions
// (own transcript, own prompt, own cue phrase).
type Stage int

const (
	StageTopic Stage = iota
	StageQuestion
	StageSurveyProfile
	StageSurveyMultipleChoice
	StageSurveyLikert
	StageHypothesis
	StageSlides
	StageSummary
)

// Step names as they appear on the wire and in the UI step buttons.
const (
	StepTopic      = "topic"
	StepQuestion   = "question"
	StepSurvey     = "survey"
	StepHypothesis = "hypothesis"
	StepSlides     = "slides"
	StepSummary    = "summary"
)

// Sub-step names within the survey step.
const (
	SubStepProfile        = "profile"
	SubStepMultipleChoice = "multiple_choice"
	SubStepLikert         = "likert"
)

// Step returns the macro step name for the stage.
func (s Stage) Step() string {
	switch s {
	case StageTopic:
		return StepTopic
	case StageQuestion:
		return StepQuestion
	case StageSurveyProfile, StageSurveyMultipleChoice, StageSurveyLikert:
		return StepSurvey
	case StageHypothesis:
		return StepHypothesis
	case StageSlides:
		return StepSlides
	case StageSummary:
		return StepSummary
	}
	return ""
}

// SubStep returns the survey sub-step name, or "" outside the survey step.
func (s Stage) SubStep() string {
	switch s {
	case StageSurveyProfile:
		return SubStepProfile
	case StageSurveyMultipleChoice:
		return SubStepMultipleChoice
	case StageSurveyLikert:
		return SubStepLikert
	}
	return ""
}

// String returns a stable identifier, step or step/sub_step.
func (s Stage) String() string {
	if sub := s.SubStep(); sub != "" {
		return s.Step() + "/" + sub
	}
	return s.Step()
}

// Valid reports whether the stage is one of the defined states.
func (s Stage) Valid() bool {
	return s >= StageTopic && s <= StageSummary
}

// ParseStage maps a wire step name (optionally "step/sub_step") to a Stage.
// A bare "survey" selects the profile sub-step, which is where the survey
// conversation starts.
func ParseStage(name string) (Stage, error) {
	step := strings.ToLower(strings.TrimSpace(name))
	sub := ""
	if i := strings.IndexByte(step, '/'); i >= 0 {
		step, sub = step[:i], step[i+1:]
	}

	switch step {
	case StepTopic:
		return StageTopic, nil
	case StepQuestion:
		return StageQuestion, nil
	case StepSurvey:
		switch sub {
		case "", SubStepProfile:
			return StageSurveyProfile, nil
		case SubStepMultipleChoice:
			return StageSurveyMultipleChoice, nil
		case SubStepLikert:
			return StageSurveyLikert, nil
		}
		return 0, fmt.Errorf("unknown survey sub-step %q", sub)
	case StepHypothesis:
		return StageHypothesis, nil
	case StepSlides:
		return StageSlides, nil
	case StepSummary:
		return StageSummary, nil
	}
	return 0, fmt.Errorf("unknown step %q", name)
}
