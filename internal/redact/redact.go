// Package redact implements the privacy filter that runs ahead of all other
// request processing. A deterministic regex pass removes well-known PII
// shapes; an optional model pass catches free-form leaks. The filter fails
// open: when the model capability is unavailable the deterministic result is
// returned rather than blocking the pipeline. That fail-open choice is a
// documented risk, not an accident.
package redact

import (
	"context"
	"regexp"
	"strings"

	"servicedesk/internal/llm"
	"servicedesk/internal/logging"
)

const (
	placeholderEmail      = "[REDACTED_EMAIL]"
	placeholderSSN        = "[REDACTED_SSN]"
	placeholderCard       = "[REDACTED_CARD]"
	placeholderCredential = "[REDACTED_CREDENTIAL]"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	ssnRe   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardRe  = regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`)
	// credential pairs like "password: hunter2" or "api key = sk-abc123"
	credentialRe = regexp.MustCompile(`(?i)\b(password|passwd|api[ _-]?key|secret|token)\s*[:=]\s*\S+`)
)

// Scrub applies the deterministic redaction rules. It is a pure function and
// idempotent: a rule either no longer matches its own placeholder or, as with
// the credential rule, re-matches and replaces with identical text, so
// scrubbing twice yields the same text as scrubbing once.
func Scrub(text string) string {
	out := credentialRe.ReplaceAllStringFunc(text, func(match string) string {
		idx := strings.IndexAny(match, ":=")
		return strings.TrimSpace(match[:idx+1]) + " " + placeholderCredential
	})
	out = emailRe.ReplaceAllString(out, placeholderEmail)
	out = ssnRe.ReplaceAllString(out, placeholderSSN)
	out = cardRe.ReplaceAllString(out, placeholderCard)
	return out
}

// ContainsPII reports whether any deterministic rule matches the text.
func ContainsPII(text string) bool {
	return emailRe.MatchString(text) ||
		ssnRe.MatchString(text) ||
		cardRe.MatchString(text) ||
		credentialRe.MatchString(text)
}

const redactSystemPrompt = "You are a privacy shield for an enterprise service desk."

const redactPromptTemplate = `Act as a PII redactor. Replace any remaining sensitive information
(emails, passwords, SSNs, credit card numbers) with [REDACTED].
If no sensitive data is found, return the text exactly as is.

Query: "%s"

Return ONLY the redacted text.`

// Filter redacts sensitive content before classification.
type Filter struct {
	client llm.Client
	logger logging.Logger
}

// NewFilter builds a privacy filter over the given completion client. A nil
// client keeps only the deterministic pass.
func NewFilter(client llm.Client) *Filter {
	return &Filter{
		client: client,
		logger: logging.NewComponentLogger("PrivacyFilter"),
	}
}

// Redact returns the redacted form of text. Never returns an error: model
// failures fall back to the deterministic result (fail open).
func (f *Filter) Redact(ctx context.Context, text string) string {
	scrubbed := Scrub(text)
	if f.client == nil {
		return scrubbed
	}

	reply, err := f.client.Complete(ctx, llm.Request{
		System: redactSystemPrompt,
		User:   redactPrompt(scrubbed),
	})
	if err != nil {
		f.logger.Warn("redaction capability unavailable, failing open: %v", err)
		return scrubbed
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return scrubbed
	}
	// Run the deterministic pass once more so a model echo can never
	// reintroduce a pattern the rules would have caught.
	return Scrub(reply)
}

func redactPrompt(text string) string {
	return strings.Replace(redactPromptTemplate, "%s", text, 1)
}
