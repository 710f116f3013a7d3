// Package domain contains the pure domain models and transformations for
// the evaluation pipeline.
package domain

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles recognized by the pipeline.
const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"

	// RoleAssistant marks a turn produced by the model under evaluation.
	RoleAssistant Role = "assistant"

	// RoleSystem marks an instruction turn injected by the application.
	RoleSystem Role = "system"
)

// Valid reports whether the role is one of the recognized conversation roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// ConversationTurn is a single utterance in a conversation.
// Turn order is chronological and semantically significant; turns are
// immutable once loaded.
type ConversationTurn struct {
	// Role identifies who authored this turn.
	Role Role `json:"role"`

	// Content is the turn's text.
	Content string `json:"content"`
}

// ContextItem is one retrieved context chunk supplied alongside the
// conversation. Callers are expected to pre-sort items by similarity,
// highest ranked first; the pipeline preserves the given order.
type ContextItem struct {
	// Text is the retrieved passage. It is the only required field.
	Text string `json:"text"`

	// SourceURL points at the document the passage was retrieved from,
	// when known.
	SourceURL string `json:"source_url,omitempty"`

	// SimilarityScore is the retrieval ranking score, when known.
	// A nil value means the retriever did not report one.
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
}

// NormalizedRequest is the validated, immutable form of the two raw inputs.
// History excludes the trailing user turn, whose content becomes CurrentQuery.
type NormalizedRequest struct {
	// History holds the conversation turns preceding the current query,
	// in their original order.
	History []ConversationTurn

	// CurrentQuery is the content of the conversation's trailing user turn.
	// It is always non-empty for a successfully normalized request.
	CurrentQuery string

	// ContextItems holds the retrieved context in caller-supplied ranking
	// order.
	ContextItems []ContextItem
}
