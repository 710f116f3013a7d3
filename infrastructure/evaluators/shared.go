// Package evaluators provides the judge implementations that score
// generated responses. Each judge implements ports.Evaluator, consults an
// LLM with a structured prompt, and parses the scores out of the reply.
package evaluators

import (
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
)

// Metric names reported by the shipped judges.
const (
	// MetricRelevance measures how well the response addresses the query.
	MetricRelevance = "relevance"

	// MetricCompleteness measures whether the response covers the whole
	// query.
	MetricCompleteness = "completeness"

	// MetricFactualAccuracy measures whether the response is supported by
	// the retrieved context.
	MetricFactualAccuracy = "factual_accuracy"
)

// Judge scoring defaults. Temperature zero keeps repeated judgments of
// the same response consistent.
const (
	DefaultJudgeTemperature = 0.0
	DefaultJudgeMaxTokens   = 512

	// MinScore and MaxScore bound every judge scale.
	MinScore = 1.0
	MaxScore = 10.0
)

// Package-level validator for config structs and decoded judge replies.
var validate = validator.New()

// foldCaser is a package-level Unicode case folder, shared because caser
// construction is not free.
var foldCaser = cases.Fold()
