package application

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-evalflow/internal/domain"
)

func sampleRequest() domain.NormalizedRequest {
	score := 0.93
	return domain.NormalizedRequest{
		History: []domain.ConversationTurn{
			{Role: domain.RoleSystem, Content: "Be concise."},
			{Role: domain.RoleUser, Content: "What is Go?"},
			{Role: domain.RoleAssistant, Content: "A programming language."},
		},
		CurrentQuery: "Who created it?",
		ContextItems: []domain.ContextItem{
			{Text: "Go was designed at Google.", SourceURL: "https://go.dev", SimilarityScore: &score},
			{Text: "Go appeared in 2009."},
		},
	}
}

func TestPromptAssemblerRender(t *testing.T) {
	asm, err := NewPromptAssembler(AssemblerConfig{})
	require.NoError(t, err)

	prompt, err := asm.Render(sampleRequest())
	require.NoError(t, err)

	// Structural expectations: system block first, query last, history in
	// order, context items numbered with sources.
	assert.True(t, strings.HasPrefix(prompt, systemInstructions))
	assert.True(t, strings.HasSuffix(prompt, "Question: Who created it?"))
	assert.Contains(t, prompt, "user: What is Go?")
	assert.Contains(t, prompt, "assistant: A programming language.")
	assert.Contains(t, prompt, "[1] Go was designed at Google. (source: https://go.dev)")
	assert.Contains(t, prompt, "[2] Go appeared in 2009.")
	assert.Less(t,
		strings.Index(prompt, "user: What is Go?"),
		strings.Index(prompt, "assistant: A programming language."),
		"history must keep its original order",
	)
}

func TestPromptAssemblerIsDeterministic(t *testing.T) {
	asm, err := NewPromptAssembler(AssemblerConfig{})
	require.NoError(t, err)

	req := sampleRequest()
	first, err := asm.Render(req)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		again, err := asm.Render(req)
		require.NoError(t, err)
		require.Equal(t, first, again, "render %d differed", i)
	}
}

func TestPromptAssemblerContextLimit(t *testing.T) {
	asm, err := NewPromptAssembler(AssemblerConfig{MaxContextItems: 1})
	require.NoError(t, err)

	prompt, err := asm.Render(sampleRequest())
	require.NoError(t, err)

	assert.Contains(t, prompt, "[1] Go was designed at Google.")
	assert.NotContains(t, prompt, "Go appeared in 2009.",
		"items beyond the cap must not be rendered")
}

func TestPromptAssemblerEmptyContext(t *testing.T) {
	asm, err := NewPromptAssembler(AssemblerConfig{})
	require.NoError(t, err)

	req := sampleRequest()
	req.ContextItems = nil

	prompt, err := asm.Render(req)
	require.NoError(t, err)
	assert.Contains(t, prompt, "(no context retrieved)")
}
