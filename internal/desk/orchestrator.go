// Package desk implements the service-desk orchestration core: intent
// routing, multi-intent task planning and sequential consumption, response
// aggregation, and the human-in-the-loop escalation protocol, over persisted
// per-thread conversation state.
package desk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"servicedesk/internal/audit"
	"servicedesk/internal/config"
	sderrors "servicedesk/internal/errors"
	"servicedesk/internal/llm"
	"servicedesk/internal/logging"
	"servicedesk/internal/metrics"
	"servicedesk/internal/rag"
	"servicedesk/internal/redact"
	"servicedesk/internal/tools"
)

// EscalationNotice is the fixed reply produced when a paused thread is
// approved by a human.
const EscalationNotice = "Your request has been escalated to a human support representative."

// ErrAwaitingApproval is returned when a new message arrives for a thread
// that is paused at escalation; the thread must be approved first.
var ErrAwaitingApproval = errors.New("thread is paused awaiting human approval")

// Result is the outcome of a run or a resume.
type Result struct {
	ThreadID  string
	Response  string
	TicketID  string
	Escalated bool
	// Paused means the run suspended at escalation and produced no final
	// response yet.
	Paused bool
}

// Params wires an Orchestrator.
type Params struct {
	Provider            ClientProvider
	Store               Store
	Retriever           rag.Retriever
	Toolset             tools.Toolset
	Journal             *audit.Journal
	Metrics             *metrics.Metrics
	ConfidenceThreshold float64
}

// Orchestrator is the single authoritative routing decision point. One
// instance serves many threads concurrently; per-thread mutual exclusion
// comes from the store's Acquire.
type Orchestrator struct {
	provider   ClientProvider
	classifier *Classifier
	planner    *Planner
	agents     map[Intent]*DomainAgent
	store      Store
	journal    *audit.Journal
	metrics    *metrics.Metrics
	threshold  float64
	logger     logging.Logger
}

// New constructs the orchestrator and its domain agents.
func New(p Params) *Orchestrator {
	threshold := p.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Orchestrator{
		provider:   p.Provider,
		classifier: NewClassifier(p.Provider),
		planner:    NewPlanner(p.Provider),
		agents: map[Intent]*DomainAgent{
			IntentHR:      NewHRAgent(p.Retriever, p.Provider),
			IntentIT:      NewITAgent(p.Retriever, p.Provider, p.Toolset),
			IntentFinance: NewFinanceAgent(p.Retriever, p.Provider, p.Toolset),
		},
		store:     p.Store,
		journal:   p.Journal,
		metrics:   p.Metrics,
		threshold: threshold,
		logger:    logging.NewComponentLogger("Orchestrator"),
	}
}

// Threshold returns the configured confidence threshold.
func (o *Orchestrator) Threshold() float64 { return o.threshold }

// Run executes one conversation turn for a thread. Events are emitted in
// transition order; exactly one final_response is emitted per completed run
// and none for a paused run. Any unexpected fault is caught at this
// boundary: the caller gets an error event and the persisted state stays at
// the last completed transition.
func (o *Orchestrator) Run(ctx context.Context, threadID, message string, override llm.Override, emit Emitter) (result *Result, err error) {
	emit = orNop(emit)
	runDone := o.metrics.RunStarted()
	defer runDone()

	release := o.store.Acquire(threadID)
	defer release()

	state, loadErr := o.store.Load(ctx, threadID)
	switch {
	case errors.Is(loadErr, ErrThreadNotFound):
		state = NewConversationState(threadID)
	case loadErr != nil:
		emit.Emit(Event{Type: EventError, Message: "could not load conversation state"})
		return nil, loadErr
	}

	if state.Phase == PhasePausedAtEscalation {
		emit.Emit(Event{Type: EventError, Message: ErrAwaitingApproval.Error()})
		return nil, ErrAwaitingApproval
	}
	// Any other loaded state starts a fresh turn; only message history
	// survives. This also clears leftovers persisted by a run that aborted
	// mid-flight, so stale tasks and fragments never leak into the new turn.
	state.BeginRun()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("run panic for thread %s: %v", threadID, r)
			emit.Emit(Event{Type: EventError, Message: fmt.Sprintf("internal error: %v", r)})
			result = nil
			err = fmt.Errorf("run failed: %v", r)
		}
	}()

	// Filtering.
	nodeStart := time.Now()
	filter := redact.NewFilter(o.provider.ClientFor(config.NodePrivacy, override))
	redacted := filter.Redact(ctx, message)
	state.Messages = append(state.Messages, Message{Role: "user", Content: redacted})
	o.metrics.ObserveNode("privacy_shield", nodeStart)
	emit.Emit(Event{Type: EventNodeUpdate, Node: "privacy_shield", Status: "completed"})
	o.journal.Record(threadID, "privacy_shield", "")
	if err := o.persist(ctx, state, emit); err != nil {
		return nil, err
	}

	// Classifying.
	nodeStart = time.Now()
	cls := o.classifier.Classify(ctx, redacted, override)
	state.Intent = cls.Intent
	state.Confidence = cls.Confidence
	state.Classified = true
	o.metrics.ObserveNode("supervisor", nodeStart)
	emit.Emit(Event{
		Type:       EventNodeUpdate,
		Node:       "supervisor",
		Status:     "completed",
		Intent:     cls.Intent.String(),
		Confidence: confidencePtr(cls.Confidence),
	})
	o.journal.Record(threadID, "supervisor", fmt.Sprintf("intent=%s confidence=%.2f", cls.Intent, cls.Confidence))
	if err := o.persist(ctx, state, emit); err != nil {
		return nil, err
	}

	// Routing. Low confidence escalates before intent is even considered.
	if state.Confidence < o.threshold {
		return o.escalate(ctx, state, emit)
	}

	switch state.Intent {
	case IntentGreeting:
		state.CollectedResponses = append(state.CollectedResponses, "Assistant: "+cls.Reply)
		return o.complete(ctx, state, cls.Reply, emit)

	case IntentHR, IntentIT, IntentFinance:
		// Single task, empty queue; the consumption loop runs once.

	case IntentMultiIntent:
		nodeStart = time.Now()
		tasks := o.planner.Plan(ctx, redacted, override)
		o.metrics.ObserveNode("planner", nodeStart)
		emit.Emit(Event{Type: EventNodeUpdate, Node: "planner", Status: "completed"})
		o.journal.Record(threadID, "planner", fmt.Sprintf("%d tasks", len(tasks)))
		if len(tasks) == 0 {
			o.metrics.NodeFallback("planner", "empty_plan")
			return o.escalate(ctx, state, emit)
		}
		state.TaskQueue = tasks
		first := tasks[0]
		state.CurrentTask = &first
		state.Intent = first.Agent
		if err := o.persist(ctx, state, emit); err != nil {
			return nil, err
		}

	default:
		return o.escalate(ctx, state, emit)
	}

	// Consuming. Each iteration serves the front task (or the sole implied
	// task for single-intent runs), then pops it.
	for {
		agent, ok := o.agents[state.Intent]
		if !ok {
			return o.escalate(ctx, state, emit)
		}

		nodeStart = time.Now()
		res := agent.Execute(ctx, state, override, emit)
		o.metrics.ObserveNode(strings.ToLower(agent.Label()), nodeStart)
		o.metrics.TaskServed()

		state.CollectedResponses = append(state.CollectedResponses, res.Fragment)
		if res.TicketID != "" {
			state.TicketID = res.TicketID
		}
		emit.Emit(Event{
			Type:       EventNodeUpdate,
			Node:       strings.ToLower(agent.Label()),
			Status:     "completed",
			Intent:     state.Intent.String(),
			Confidence: confidencePtr(state.Confidence),
			TicketID:   state.TicketID,
		})
		emit.Emit(Event{Type: EventAgentThought, Node: strings.ToLower(agent.Label()), Output: res.Reply})
		o.journal.Record(threadID, strings.ToLower(agent.Label()), fmt.Sprintf("served %q", state.Query()))

		if len(state.TaskQueue) > 0 {
			state.TaskQueue = state.TaskQueue[1:]
		}
		if len(state.TaskQueue) == 0 {
			state.CurrentTask = nil
			if err := o.persist(ctx, state, emit); err != nil {
				return nil, err
			}
			break
		}
		next := state.TaskQueue[0]
		state.CurrentTask = &next
		state.Intent = next.Agent
		if err := o.persist(ctx, state, emit); err != nil {
			return nil, err
		}
	}

	// Merging.
	final := Merge(state.CollectedResponses)
	emit.Emit(Event{Type: EventNodeUpdate, Node: "merge", Status: "completed"})
	o.journal.Record(threadID, "merge", "")
	return o.complete(ctx, state, final, emit)
}

// Resume finalizes a thread paused at escalation. It is idempotent: resuming
// an already-resumed thread returns the previously computed result. Resuming
// a thread that is not awaiting approval fails with ErrNotPaused.
func (o *Orchestrator) Resume(ctx context.Context, threadID string) (*Result, error) {
	release := o.store.Acquire(threadID)
	defer release()

	state, err := o.store.Load(ctx, threadID)
	if errors.Is(err, ErrThreadNotFound) {
		return nil, sderrors.ErrNotPaused
	}
	if err != nil {
		return nil, err
	}

	switch state.Phase {
	case PhasePausedAtEscalation:
		state.Escalated = true
		state.FinalResponse = EscalationNotice
		state.CollectedResponses = append(state.CollectedResponses, "System: "+EscalationNotice)
		state.Phase = PhaseCompleted
		if err := o.store.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("persist resumed state: %w", err)
		}
		o.journal.Record(threadID, "escalation", "resumed by human approval")
		return resultFrom(state), nil

	case PhaseCompleted:
		if state.Escalated {
			return resultFrom(state), nil
		}
		return nil, sderrors.ErrNotPaused

	default:
		return nil, sderrors.ErrNotPaused
	}
}

// escalate suspends the run at the durable interruption point. No final
// response is produced; a later Resume finalizes the thread.
func (o *Orchestrator) escalate(ctx context.Context, state *ConversationState, emit Emitter) (*Result, error) {
	state.Phase = PhasePausedAtEscalation
	if err := o.persist(ctx, state, emit); err != nil {
		return nil, err
	}
	o.metrics.Escalated()
	emit.Emit(Event{Type: EventNodeUpdate, Node: "escalation", Status: "paused"})
	o.journal.Record(state.ThreadID, "escalation", "paused for human approval")
	o.logger.Info("thread %s paused for approval (intent=%s confidence=%.2f)",
		state.ThreadID, state.Intent, state.Confidence)
	return &Result{ThreadID: state.ThreadID, Paused: true}, nil
}

// complete finalizes the run. The final_response event is emitted exactly
// once, only after the completed state is durably persisted.
func (o *Orchestrator) complete(ctx context.Context, state *ConversationState, response string, emit Emitter) (*Result, error) {
	state.FinalResponse = response
	state.Phase = PhaseCompleted
	state.Messages = append(state.Messages, Message{Role: "assistant", Content: response})
	if err := o.persist(ctx, state, emit); err != nil {
		return nil, err
	}
	emit.Emit(Event{
		Type:      EventFinalResponse,
		Response:  response,
		TicketID:  state.TicketID,
		Escalated: state.Escalated,
	})
	o.journal.Record(state.ThreadID, "completed", "")
	return resultFrom(state), nil
}

func (o *Orchestrator) persist(ctx context.Context, state *ConversationState, emit Emitter) error {
	if err := o.store.Save(ctx, state); err != nil {
		o.logger.Error("persist thread %s failed: %v", state.ThreadID, err)
		emit.Emit(Event{Type: EventError, Message: "could not persist conversation state"})
		return fmt.Errorf("persist thread %s: %w", state.ThreadID, err)
	}
	return nil
}

func resultFrom(state *ConversationState) *Result {
	return &Result{
		ThreadID:  state.ThreadID,
		Response:  state.FinalResponse,
		TicketID:  state.TicketID,
		Escalated: state.Escalated,
		Paused:    state.Phase == PhasePausedAtEscalation,
	}
}
