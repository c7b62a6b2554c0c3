// Package extract derives structured session fields from free-text model
// replies. One small heuristic per stage; a miss is a normal, silent outcome
// and never raises an error.
package extract

import (
	"regexp"
	"strings"

	"github.com/ashureev/research-wizard/internal/domain"
)

var (
	numberedItemRe  = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+)$`)
	bulletLineRe    = regexp.MustCompile(`(?m)^\s*-\s+(.+)$`)
	numberedStartRe = regexp.MustCompile(`^\d+[.)]\s+`)
)

// Apply updates the session's fields from the latest assistant reply,
// according to the heuristic for the active stage.
//
// List-valued fields are enriched monotonically: when a heuristic finds no
// matches the previous value is kept, never replaced with an empty result.
// Hypothesis and the export summary always overwrite with the latest reply.
func Apply(s *domain.Session, reply string) {
	switch s.Stage {
	case domain.StageTopic:
		// The model only confirms here; the committed topic is the
		// student's own last message.
		s.CommitTopic(strings.TrimSpace(s.LastUserMessage()))

	case domain.StageQuestion:
		if q := firstNumberedItem(reply); q != "" {
			s.CommitResearchQuestion(q)
		} else if last := strings.TrimSpace(s.LastUserMessage()); last != "" {
			s.CommitResearchQuestion(last)
		}

	case domain.StageSurveyProfile:
		if items := bulletLines(reply); len(items) > 0 {
			s.ProfileQuestions = items
		}

	case domain.StageSurveyMultipleChoice:
		if blocks := numberedBlocks(reply); len(blocks) > 0 {
			s.MultipleChoiceQuestions = blocks
		}

	case domain.StageSurveyLikert:
		if items := bulletLines(reply); len(items) > 0 {
			s.LikertQuestions = items
		}

	case domain.StageHypothesis:
		if text := strings.TrimSpace(reply); text != "" {
			s.Hypothesis = text
		}

	case domain.StageSlides:
		if lines := nonEmptyLines(reply); len(lines) > 0 {
			s.SlidePlan = lines
		}

	case domain.StageSummary:
		if text := strings.TrimSpace(reply); text != "" {
			s.ExportSummary = text
		}
	}
}

// firstNumberedItem returns the text of the first "1. <text>" style item.
func firstNumberedItem(reply string) string {
	m := numberedItemRe.FindStringSubmatch(reply)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// bulletLines collects "- " lines with the marker stripped.
func bulletLines(reply string) []string {
	var items []string
	for _, m := range bulletLineRe.FindAllStringSubmatch(reply, -1) {
		items = append(items, strings.TrimSpace(m[1]))
	}
	return items
}

// numberedBlocks collects contiguous blocks that start with a numbered line,
// keeping each block verbatim as one question-with-options entry. Indented
// or bulleted continuation lines belong to the current block; a blank line
// or a new numbered line ends it.
func numberedBlocks(reply string) []string {
	var blocks []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case numberedStartRe.MatchString(trimmed):
			flush()
			current = []string{trimmed}
		case trimmed == "":
			flush()
		case len(current) > 0 && isContinuation(line):
			current = append(current, strings.TrimRight(line, " \t"))
		default:
			flush()
		}
	}
	flush()

	return blocks
}

func isContinuation(line string) bool {
	if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
		return true
	}
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ")
}

// nonEmptyLines splits the reply into trimmed, non-empty lines.
func nonEmptyLines(reply string) []string {
	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
