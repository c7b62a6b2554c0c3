package domain

import (
	"strings"
)

// RenderSummary derives the plain-text research plan summary from the
// committed session fields. It is a pure function of the fields and is safe
// to recompute after every exchange; the rendered text is never stored back
// into the session as a source of truth.
//
// The export artifact is exactly these bytes (one labeled section per field),
// so the downloaded file always round-trips with the summary shown.
func RenderSummary(s *Session) string {
	var b strings.Builder

	section(&b, "Topic", s.Topic)
	section(&b, "Research Question", s.ResearchQuestion)
	listSection(&b, "Profile Questions", s.ProfileQuestions)
	listSection(&b, "Multiple-Choice Questions", s.MultipleChoiceQuestions)
	listSection(&b, "Likert Questions", s.LikertQuestions)
	section(&b, "Hypothesis", s.Hypothesis)
	listSection(&b, "Slide Plan", s.SlidePlan)

	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, label, value string) {
	b.WriteString(label)
	b.WriteString(":")
	if value != "" {
		b.WriteString(" ")
		b.WriteString(value)
	}
	b.WriteString("\n\n")
}

func listSection(b *strings.Builder, label string, values []string) {
	b.WriteString(label)
	b.WriteString(":")
	b.WriteString("\n")
	for _, v := range values {
		b.WriteString("- ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
