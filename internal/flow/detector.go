// Package flow decides how the wizard moves between stages: cue-phrase
// detection over model replies for automatic advance, and explicit step
// selection for out-of-band navigation.
package flow

import (
	"strings"

	"github.com/ashureev/research-wizard/internal/domain"
)

// AdvanceDetector decides whether a model reply completes the active stage.
// Matching is textual and the model's phrasing is not machine-checkable, so
// implementations are isolated behind this interface; a structured-output
// contract (e.g. a terminal marker token) can replace cue phrases later
// without touching the controller.
type AdvanceDetector interface {
	// Next returns the destination stage and true when the reply signals
	// that the active stage is complete.
	Next(stage domain.Stage, reply string) (domain.Stage, bool)
}

// cue maps a stage to the phrase that signals its completion.
type cue struct {
	phrase string
	next   domain.Stage
}

var cues = map[domain.Stage]cue{
	domain.StageTopic:                {"let's move on to making your research question", domain.StageQuestion},
	domain.StageQuestion:             {"let's move on to building your questionnaire", domain.StageSurveyProfile},
	domain.StageSurveyProfile:        {"multiple-choice questions", domain.StageSurveyMultipleChoice},
	domain.StageSurveyMultipleChoice: {"likert scale questions", domain.StageSurveyLikert},
	domain.StageSurveyLikert:         {"let's move on to writing your hypothesis", domain.StageHypothesis},
}

// CueDetector matches the fixed cue-phrase table, case-insensitively. No cue
// for a stage (hypothesis onward) means the student advances by navigation
// only.
type CueDetector struct{}

// NewCueDetector returns the cue-phrase detector.
func NewCueDetector() CueDetector {
	return CueDetector{}
}

// Next implements AdvanceDetector. The phrase may appear any number of times;
// the transition fires at most once per reply.
func (CueDetector) Next(stage domain.Stage, reply string) (domain.Stage, bool) {
	c, ok := cues[stage]
	if !ok {
		return stage, false
	}
	if strings.Contains(normalize(reply), c.phrase) {
		return c.next, true
	}
	return stage, false
}

// normalize lowercases the reply and folds typographic apostrophes, which
// models frequently emit in place of ASCII ones.
func normalize(reply string) string {
	return strings.ToLower(strings.ReplaceAll(reply, "’", "'"))
}
