package desk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"servicedesk/internal/config"
	sderrors "servicedesk/internal/errors"
	"servicedesk/internal/llm"
	"servicedesk/internal/logging"
)

// GreetingReply is the canned response for the greeting fast path.
const GreetingReply = "Hello! I am your Enterprise Service Assistant. How can I help you today?"

// greetingMarkers trigger the fast path by substring, matching the behavior
// callers depend on ("hi" inside a longer word also matches; documented).
var greetingMarkers = []string{"hi", "hello", "hey"}

// ClientProvider resolves a completion client for a pipeline node, applying
// per-request overrides. Satisfied by llm.Factory.
type ClientProvider interface {
	ClientFor(node config.NodeType, override llm.Override) llm.Client
}

// Classification is the classifier's always-well-formed result.
type Classification struct {
	Intent     Intent
	Confidence float64
	// Reply is set only for the greeting fast path.
	Reply string
}

const classifySystemPrompt = "You are a supervisor for an enterprise service desk."

const classifyPromptTemplate = `Analyze the following user query for an enterprise service desk.
Classify it into exactly one intent:

- HR: questions about leave, payroll, policy, benefits.
- IT: technical issues, software, hardware, tickets.
- Finance: reimbursements, expenses, claims.
- Multi-intent: the query contains more than one request.
- Unknown: anything else.

Query: "%s"

Return ONLY a JSON object:
{"intent": "HR" | "IT" | "Finance" | "Multi-intent" | "Unknown", "confidence": <float 0.0 to 1.0>}`

// Classifier assigns an intent and confidence to a request, or short-circuits
// greetings without touching the completion capability.
type Classifier struct {
	provider ClientProvider
	logger   logging.Logger
}

// NewClassifier builds a classifier over the client provider.
func NewClassifier(provider ClientProvider) *Classifier {
	return &Classifier{
		provider: provider,
		logger:   logging.NewComponentLogger("Classifier"),
	}
}

// IsGreeting reports whether text trips the greeting fast path.
func IsGreeting(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range greetingMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Classify never returns an error: capability failures and malformed output
// both degrade to Unknown with confidence 0.0, which the router escalates.
func (c *Classifier) Classify(ctx context.Context, text string, override llm.Override) Classification {
	if IsGreeting(text) {
		return Classification{Intent: IntentGreeting, Confidence: 1.0, Reply: GreetingReply}
	}

	client := c.provider.ClientFor(config.NodeClassifier, override)
	raw, err := client.Complete(ctx, llm.Request{
		System: classifySystemPrompt,
		User:   fmt.Sprintf(classifyPromptTemplate, text),
	})
	if err != nil {
		c.logger.Warn("classification capability unavailable, degrading to Unknown: %v", err)
		return Classification{Intent: IntentUnknown, Confidence: 0}
	}

	result, err := parseClassification(raw)
	if err != nil {
		c.logger.Warn("%v", err)
		return Classification{Intent: IntentUnknown, Confidence: 0}
	}
	return result
}

// classificationSchema is the strict shape expected from the model.
type classificationSchema struct {
	Intent     string   `json:"intent"`
	Confidence *float64 `json:"confidence"`
}

func parseClassification(raw string) (Classification, error) {
	cleaned := StripCodeFences(raw)

	var parsed classificationSchema
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return Classification{}, sderrors.MalformedOutput("classifier", raw, err)
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return Classification{}, sderrors.MalformedOutput("classifier", raw, err)
		}
	}

	if parsed.Intent == "" || parsed.Confidence == nil {
		return Classification{}, sderrors.MalformedOutput("classifier", raw,
			fmt.Errorf("missing intent or confidence"))
	}
	confidence := *parsed.Confidence
	if confidence < 0 || confidence > 1 {
		return Classification{}, sderrors.MalformedOutput("classifier", raw,
			fmt.Errorf("confidence %v outside [0,1]", confidence))
	}

	return Classification{
		Intent:     ParseIntent(parsed.Intent),
		Confidence: confidence,
	}, nil
}

// StripCodeFences removes a surrounding markdown code fence from model
// output, if present.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
