// Package errors defines the error taxonomy shared across the service desk
// core. Every external capability failure is classified here so callers can
// pick the documented degradation path instead of propagating raw faults.
package errors

import (
	"errors"
	"fmt"
)

// CapabilityError reports that an external capability (LLM, retrieval, tool)
// call failed or timed out. Components recover from it locally with their
// documented fallback and never surface it raw to a caller.
type CapabilityError struct {
	Capability string // "llm", "retrieval", "tool"
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s unavailable: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// CapabilityUnavailable wraps err as a capability failure.
func CapabilityUnavailable(capability string, err error) error {
	return &CapabilityError{Capability: capability, Err: err}
}

// IsCapabilityUnavailable reports whether err is a capability failure.
func IsCapabilityUnavailable(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}

// MalformedOutputError reports that structured LLM output (classification or
// planning JSON) could not be parsed even after repair. The recovery policy
// is fixed: classifiers degrade to Unknown/0.0, planners to an empty plan.
type MalformedOutputError struct {
	Component string // "classifier", "planner"
	Raw       string // offending model output, truncated for logs
	Err       error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s produced malformed structured output: %v", e.Component, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// MalformedOutput wraps a parse failure of model output.
func MalformedOutput(component, raw string, err error) error {
	if len(raw) > 256 {
		raw = raw[:256]
	}
	return &MalformedOutputError{Component: component, Raw: raw, Err: err}
}

// IsMalformedOutput reports whether err is a structured-output parse failure.
func IsMalformedOutput(err error) bool {
	var me *MalformedOutputError
	return errors.As(err, &me)
}

// ErrNotPaused is returned when resume is requested for a thread that is not
// awaiting human approval. It is a client error, never a crash.
var ErrNotPaused = errors.New("thread is not paused for approval")

// AuditError reports a failed write to the audit journal. It is logged and
// swallowed; it must never propagate into a conversation's result path.
type AuditError struct {
	Err error
}

func (e *AuditError) Error() string { return fmt.Sprintf("audit write failed: %v", e.Err) }

func (e *AuditError) Unwrap() error { return e.Err }
