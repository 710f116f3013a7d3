package evaluators

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahrav/go-evalflow/internal/domain"
)

// ExtractJudgeJSON pulls the JSON object out of a judge reply. Models
// wrap their JSON in prose or markdown fences despite instructions, so
// extraction tries progressively looser strategies:
//
//  1. the whole trimmed reply as JSON,
//  2. the contents of a markdown code fence,
//  3. the first balanced brace-delimited object in the text.
//
// A reply yielding no parseable object fails with an error wrapping
// domain.ErrUnparseableJudgeOutput.
func ExtractJudgeJSON(response string) (string, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrUnparseableJudgeOutput)
	}

	// A reply that already is a JSON object is authoritative; no further
	// searching can do better.
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	if fenced := extractFenced(trimmed); fenced != "" && json.Valid([]byte(fenced)) {
		return fenced, nil
	}

	if obj := extractBalancedObject(trimmed); obj != "" && json.Valid([]byte(obj)) {
		return obj, nil
	}

	return "", fmt.Errorf("%w: no JSON object in %d-char response", domain.ErrUnparseableJudgeOutput, len(response))
}

// extractFenced returns the contents of the first markdown code fence
// that looks like a JSON object, handling both ```json and bare ```
// fences.
func extractFenced(response string) string {
	start := strings.Index(response, "```")
	if start == -1 {
		return ""
	}
	start += 3

	// Skip a language tag like "json" up to the first newline.
	if nl := strings.Index(response[start:], "\n"); nl != -1 {
		firstLine := strings.TrimSpace(response[start : start+nl])
		if firstLine != "" && !strings.HasPrefix(firstLine, "{") {
			start += nl + 1
		}
	}

	end := strings.Index(response[start:], "```")
	if end == -1 {
		return ""
	}

	candidate := strings.TrimSpace(response[start : start+end])
	if strings.HasPrefix(candidate, "{") {
		return candidate
	}
	return ""
}

// extractBalancedObject returns the first brace-balanced object in the
// text, tracking string literals and escapes so braces inside quoted
// values do not break the count.
func extractBalancedObject(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(response); i++ {
		c := response[i]

		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}

// decodeJudgeReply extracts, unmarshals, and validates a judge reply into
// out, which must carry validator tags.
func decodeJudgeReply(response string, out any) error {
	jsonStr, err := ExtractJudgeJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnparseableJudgeOutput, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: reply failed validation: %v", domain.ErrUnparseableJudgeOutput, err)
	}
	return nil
}
