// Package prompt maps wizard stages to the instructional templates sent to
// the language model and shown to the student.
package prompt

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/ashureev/research-wizard/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

type stageEntry struct {
	System      string `yaml:"system"`
	Instruction string `yaml:"instruction"`
}

type catalogFile struct {
	Stages   map[string]stageEntry `yaml:"stages"`
	Fallback stageEntry            `yaml:"fallback"`
}

type stageTemplates struct {
	system      *template.Template
	instruction *template.Template
}

// Catalog resolves stage prompts with committed session fields interpolated.
// It is immutable after construction and safe for concurrent use.
type Catalog struct {
	stages   map[domain.Stage]stageTemplates
	fallback stageTemplates
}

// templateData exposes the committed fields available to templates.
type templateData struct {
	Topic            string
	ResearchQuestion string
	Hypothesis       string
}

// NewCatalog parses the embedded prompt catalog.
func NewCatalog() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(promptsYAML, &file); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}

	c := &Catalog{stages: make(map[domain.Stage]stageTemplates)}

	for name, entry := range file.Stages {
		stage, err := domain.ParseStage(name)
		if err != nil {
			return nil, fmt.Errorf("prompt catalog: %w", err)
		}
		ts, err := parseEntry(name, entry)
		if err != nil {
			return nil, err
		}
		c.stages[stage] = ts
	}

	for stage := domain.StageTopic; stage <= domain.StageSummary; stage++ {
		if _, ok := c.stages[stage]; !ok {
			return nil, fmt.Errorf("prompt catalog: no entry for stage %s", stage)
		}
	}

	fallback, err := parseEntry("fallback", file.Fallback)
	if err != nil {
		return nil, err
	}
	c.fallback = fallback

	return c, nil
}

func parseEntry(name string, entry stageEntry) (stageTemplates, error) {
	sys, err := template.New(name + "/system").Parse(strings.TrimSpace(entry.System))
	if err != nil {
		return stageTemplates{}, fmt.Errorf("parse %s system template: %w", name, err)
	}
	instr, err := template.New(name + "/instruction").Parse(strings.TrimSpace(entry.Instruction))
	if err != nil {
		return stageTemplates{}, fmt.Errorf("parse %s instruction template: %w", name, err)
	}
	return stageTemplates{system: sys, instruction: instr}, nil
}

// System returns the system prompt for the stage with session fields filled
// in. Unknown stages get the generic fallback prompt.
func (c *Catalog) System(stage domain.Stage, s *domain.Session) string {
	return c.render(stage, s, func(ts stageTemplates) *template.Template { return ts.system })
}

// Instruction returns the user-facing message emitted when the wizard enters
// the stage.
func (c *Catalog) Instruction(stage domain.Stage, s *domain.Session) string {
	return c.render(stage, s, func(ts stageTemplates) *template.Template { return ts.instruction })
}

func (c *Catalog) render(stage domain.Stage, s *domain.Session, pick func(stageTemplates) *template.Template) string {
	ts, ok := c.stages[stage]
	if !ok {
		ts = c.fallback
	}

	data := templateData{}
	if s != nil {
		data = templateData{
			Topic:            s.Topic,
			ResearchQuestion: s.ResearchQuestion,
			Hypothesis:       s.Hypothesis,
		}
	}

	var b strings.Builder
	if err := pick(ts).Execute(&b, data); err != nil {
		// Templates are parsed at startup; an execution failure means a bad
		// field reference and should not take the conversation down.
		slog.Warn("prompt template execution failed", "stage", stage.String(), "error", err)
		return ""
	}
	return b.String()
}
