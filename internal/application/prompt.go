// Package application wires the evaluation pipeline: prompt assembly,
// generation, concurrent judge fan-out, and report construction.
package application

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-evalflow/internal/domain"
)

// systemInstructions is the fixed instruction block prepended to every
// generation prompt. Changing it changes every rendered prompt, which
// invalidates downstream response caches, so treat edits as breaking.
const systemInstructions = `You are a helpful assistant. Answer the user's question using the ` +
	`conversation history and the retrieved context below. Base factual claims ` +
	`on the retrieved context; if the context does not cover the question, say so.`

// generationPromptText renders the normalized request into a single
// generation prompt: system block, history in original order, ranked
// context, and the current query last.
const generationPromptText = `{{.System}}

Conversation history:
{{- range .History}}
{{.Role}}: {{.Content}}
{{- end}}

Retrieved context:
{{- if .Context}}
{{- range $i, $c := .Context}}
[{{add1 $i}}] {{$c.Text}}{{if $c.SourceURL}} (source: {{$c.SourceURL}}){{end}}
{{- end}}
{{- else}}
(no context retrieved)
{{- end}}

Question: {{.Query}}`

// PromptAssembler deterministically renders a NormalizedRequest into a
// generation prompt. Identical requests always yield byte-identical
// prompts, which callers rely on for reproducibility and response caching.
// The assembler is stateless and safe for concurrent use.
type PromptAssembler struct {
	config AssemblerConfig
	tmpl   *template.Template
}

// AssemblerConfig bounds how much of the request the assembler renders.
type AssemblerConfig struct {
	// MaxContextItems caps how many context items are rendered, taking the
	// first N in their given order (highest ranked first when the caller
	// pre-sorted). Zero means no cap.
	MaxContextItems int `yaml:"max_context_items" json:"max_context_items" validate:"min=0,max=100"`
}

// NewPromptAssembler creates a PromptAssembler with the given bounds.
func NewPromptAssembler(config AssemblerConfig) (*PromptAssembler, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("assembler configuration invalid: %w", err)
	}

	tmpl, err := template.New("generation").Funcs(template.FuncMap{
		"add1": func(i int) int { return i + 1 },
	}).Parse(generationPromptText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generation template: %w", err)
	}

	return &PromptAssembler{config: config, tmpl: tmpl}, nil
}

// Render produces the generation prompt for a normalized request.
func (pa *PromptAssembler) Render(req domain.NormalizedRequest) (string, error) {
	items := req.ContextItems
	if pa.config.MaxContextItems > 0 && len(items) > pa.config.MaxContextItems {
		items = items[:pa.config.MaxContextItems]
	}

	data := struct {
		System  string
		History []domain.ConversationTurn
		Context []domain.ContextItem
		Query   string
	}{
		System:  systemInstructions,
		History: req.History,
		Context: items,
		Query:   req.CurrentQuery,
	}

	var buf bytes.Buffer
	if err := pa.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render generation prompt: %w", err)
	}
	return buf.String(), nil
}
