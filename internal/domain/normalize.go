package domain

import "fmt"

// Normalize validates and shapes raw conversation and context payloads into
// a NormalizedRequest. Both inputs arrive as decoded JSON (nested maps and
// slices) and are not guaranteed well-typed.
//
// The conversation may be a bare turn list or an object wrapping one under a
// "turns", "messages", or "conversation" key. The context may be a bare item
// list or an object wrapping one under a "vectors", "chunks", "results", or
// "context" key. Every turn needs a non-empty "content" string; every
// context item needs a non-empty "text" string.
//
// Normalize is a pure transformation: it performs no remote calls and
// returns an error wrapping ErrInvalidInput on malformed input. A
// conversation ending on a non-user turn also matches ErrNoUserTurn.
func Normalize(conversation, contextData any) (NormalizedRequest, error) {
	turns, err := coerceTurns(conversation)
	if err != nil {
		return NormalizedRequest{}, err
	}
	if len(turns) == 0 {
		return NormalizedRequest{}, NewInputError("conversation", "no turns")
	}

	last := turns[len(turns)-1]
	if last.Role != RoleUser {
		return NormalizedRequest{}, ErrNoUserTurn
	}

	items, err := coerceContextItems(contextData)
	if err != nil {
		return NormalizedRequest{}, err
	}

	return NormalizedRequest{
		History:      turns[:len(turns)-1],
		CurrentQuery: last.Content,
		ContextItems: items,
	}, nil
}

// conversationKeys are the wrapper keys accepted for a turn list, tried in
// order.
var conversationKeys = []string{"turns", "messages", "conversation"}

// contextKeys are the wrapper keys accepted for a context item list, tried
// in order.
var contextKeys = []string{"vectors", "chunks", "results", "context"}

// unwrapList accepts either a bare list or a map wrapping a list under one
// of the given keys.
func unwrapList(raw any, keys []string, field string) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, k := range keys {
			if inner, ok := v[k]; ok {
				list, ok := inner.([]any)
				if !ok {
					return nil, NewInputError(field+"."+k, "not a list")
				}
				return list, nil
			}
		}
		return nil, NewInputError(field, "no recognized list key")
	case nil:
		return nil, NewInputError(field, "missing")
	default:
		return nil, NewInputError(field, fmt.Sprintf("unexpected type %T", raw))
	}
}

func coerceTurns(raw any) ([]ConversationTurn, error) {
	list, err := unwrapList(raw, conversationKeys, "conversation")
	if err != nil {
		return nil, err
	}

	turns := make([]ConversationTurn, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, NewInputError(fmt.Sprintf("conversation[%d]", i), "turn is not an object")
		}

		content, ok := m["content"].(string)
		if !ok || content == "" {
			return nil, NewInputError(fmt.Sprintf("conversation[%d].content", i), "missing or empty")
		}

		// A missing role defaults to user, matching what chat exports
		// commonly omit for the first turn.
		role := RoleUser
		if rawRole, ok := m["role"]; ok {
			s, ok := rawRole.(string)
			if !ok || !Role(s).Valid() {
				return nil, NewInputError(fmt.Sprintf("conversation[%d].role", i),
					fmt.Sprintf("unrecognized role %v", rawRole))
			}
			role = Role(s)
		}

		turns = append(turns, ConversationTurn{Role: role, Content: content})
	}

	return turns, nil
}

func coerceContextItems(raw any) ([]ContextItem, error) {
	if raw == nil {
		// Absent context is legal: the generator answers from history alone
		// and the grounding judge sees an empty reference set.
		return nil, nil
	}

	list, err := unwrapList(raw, contextKeys, "context")
	if err != nil {
		return nil, err
	}

	items := make([]ContextItem, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, NewInputError(fmt.Sprintf("context[%d]", i), "item is not an object")
		}

		text, ok := m["text"].(string)
		if !ok || text == "" {
			return nil, NewInputError(fmt.Sprintf("context[%d].text", i), "missing or empty")
		}

		item := ContextItem{Text: text}

		if src, ok := m["source_url"].(string); ok {
			item.SourceURL = src
		} else if src, ok := m["source"].(string); ok {
			item.SourceURL = src
		}

		if score, ok := numericField(m, "similarity_score"); ok {
			item.SimilarityScore = &score
		} else if score, ok := numericField(m, "score"); ok {
			item.SimilarityScore = &score
		}

		items = append(items, item)
	}

	return items, nil
}

// numericField reads a float-valued field, tolerating the int decoding some
// JSON libraries produce for whole numbers.
func numericField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
