package desk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Phase is the explicit lifecycle flag that makes pause/resume idempotent.
// Transitions only move forward: Running → PausedAtEscalation → Completed,
// or Running → Completed.
type Phase int

const (
	PhaseRunning Phase = iota
	PhasePausedAtEscalation
	PhaseCompleted
)

var phaseNames = map[Phase]string{
	PhaseRunning:            "running",
	PhasePausedAtEscalation: "paused_at_escalation",
	PhaseCompleted:          "completed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "running"
}

// MarshalJSON serializes the phase as its name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses a phase name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("phase name: %w", err)
	}
	switch name {
	case "paused_at_escalation":
		*p = PhasePausedAtEscalation
	case "completed":
		*p = PhaseCompleted
	default:
		*p = PhaseRunning
	}
	return nil
}

// Task is one (agent, description) unit of work produced by the planner.
type Task struct {
	Agent       Intent `json:"agent"`
	Description string `json:"description"`
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationState is the per-thread state owned exclusively by the
// orchestrator during a run. The store's per-thread lock enforces the
// single-writer invariant.
type ConversationState struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages"`

	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Classified bool    `json:"classified"`

	TaskQueue   []Task `json:"task_queue"`
	CurrentTask *Task  `json:"current_task,omitempty"`

	TicketID           string   `json:"ticket_id,omitempty"`
	CollectedResponses []string `json:"collected_responses"`
	FinalResponse      string   `json:"final_response,omitempty"`
	Escalated          bool     `json:"escalated"`
	Phase              Phase    `json:"execution_phase"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationState creates a fresh state for a thread.
func NewConversationState(threadID string) *ConversationState {
	now := time.Now()
	return &ConversationState{
		ThreadID:  threadID,
		Phase:     PhaseRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BeginRun resets the run-scoped fields for a new turn on an existing
// thread. Message history is preserved.
func (s *ConversationState) BeginRun() {
	s.Intent = IntentUnset
	s.Confidence = 0
	s.Classified = false
	s.TaskQueue = nil
	s.CurrentTask = nil
	s.TicketID = ""
	s.CollectedResponses = nil
	s.FinalResponse = ""
	s.Escalated = false
	s.Phase = PhaseRunning
}

// LastUserMessage returns the content of the most recent user turn.
func (s *ConversationState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Query returns the text a domain agent should act on: the current sub-task
// when one is assigned, otherwise the raw user message.
func (s *ConversationState) Query() string {
	if s.CurrentTask != nil && s.CurrentTask.Description != "" {
		return s.CurrentTask.Description
	}
	return s.LastUserMessage()
}

// ErrThreadNotFound is returned by stores when no state exists for a thread.
var ErrThreadNotFound = errors.New("thread not found")

// Store persists per-thread conversation state. Implementations must make
// Save atomic (a reader never observes a partially written snapshot) and
// Acquire must serialize writers per thread without cross-thread locking.
type Store interface {
	Load(ctx context.Context, threadID string) (*ConversationState, error)
	Save(ctx context.Context, state *ConversationState) error

	// Acquire blocks until the thread's writer slot is free and returns the
	// release function. Distinct threads never contend.
	Acquire(threadID string) (release func())
}
