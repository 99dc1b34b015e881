package desk

import (
	"context"
	"fmt"
	"strings"

	"servicedesk/internal/config"
	"servicedesk/internal/llm"
	"servicedesk/internal/logging"
	"servicedesk/internal/rag"
	"servicedesk/internal/tools"
)

// agentUnavailableReply is the documented degradation when both streaming
// and blocking completion fail for an agent step.
const agentUnavailableReply = "I could not reach the knowledge service for this request. A support specialist will follow up with you directly."

const hrPromptTemplate = `You are an HR Specialist. Use the following policy documents to answer the query.
If the answer is not in the documents, say you don't know.

Context:
%s

User Query: %s`

const itPromptTemplate = `You are an IT Support Agent. Use the context to solve the user's technical issue.
If a ticket needs to be created, state clearly: "I will create a ticket for you."

Context:
%s

User Query: %s`

const financePromptTemplate = `You are a Finance Specialist. Use the context to answer questions about reimbursements and expenses.

Context:
%s

User Query: %s`

// DomainAgent serves one task for its domain: retrieve context, generate a
// grounded reply, and conditionally fire the domain tool. It never mutates
// the task queue; consumption is the orchestrator's job.
type DomainAgent struct {
	domain         Intent
	label          string
	systemPrompt   string
	promptTemplate string
	retriever      rag.Retriever
	provider       ClientProvider
	toolset        tools.Toolset
	logger         logging.Logger
}

// AgentResult is the outcome of one agent execution.
type AgentResult struct {
	Reply    string // generated text plus any tool output
	Fragment string // labeled form appended to collected responses
	TicketID string // set when the ticket tool fired
}

// NewHRAgent builds the HR domain agent.
func NewHRAgent(retriever rag.Retriever, provider ClientProvider) *DomainAgent {
	return &DomainAgent{
		domain:         IntentHR,
		label:          "HR",
		systemPrompt:   "You are a helpful HR agent.",
		promptTemplate: hrPromptTemplate,
		retriever:      retriever,
		provider:       provider,
		logger:         logging.NewComponentLogger("HRAgent"),
	}
}

// NewITAgent builds the IT domain agent with the ticketing tool.
func NewITAgent(retriever rag.Retriever, provider ClientProvider, toolset tools.Toolset) *DomainAgent {
	return &DomainAgent{
		domain:         IntentIT,
		label:          "IT",
		systemPrompt:   "You are a helpful IT Support agent.",
		promptTemplate: itPromptTemplate,
		retriever:      retriever,
		provider:       provider,
		toolset:        toolset,
		logger:         logging.NewComponentLogger("ITAgent"),
	}
}

// NewFinanceAgent builds the Finance domain agent with the reimbursement
// validation tool.
func NewFinanceAgent(retriever rag.Retriever, provider ClientProvider, toolset tools.Toolset) *DomainAgent {
	return &DomainAgent{
		domain:         IntentFinance,
		label:          "Finance",
		systemPrompt:   "You are a helpful Finance agent.",
		promptTemplate: financePromptTemplate,
		retriever:      retriever,
		provider:       provider,
		toolset:        toolset,
		logger:         logging.NewComponentLogger("FinanceAgent"),
	}
}

// Domain returns the intent this agent serves.
func (a *DomainAgent) Domain() Intent { return a.domain }

// Label returns the fragment prefix for this agent.
func (a *DomainAgent) Label() string { return a.label }

// Execute serves the current task (or the raw message when no task is
// assigned). Capability failures degrade to documented fallbacks; Execute
// itself never fails the run.
func (a *DomainAgent) Execute(ctx context.Context, state *ConversationState, override llm.Override, emit Emitter) AgentResult {
	emit = orNop(emit)
	query := state.Query()

	docContext := a.retrieveContext(ctx, query)
	reply := a.generate(ctx, query, docContext, override, emit)

	result := AgentResult{Reply: reply}

	switch a.domain {
	case IntentIT:
		if a.toolset != nil && WantsTicket(reply) {
			ticketID, err := a.toolset.CreateTicket(ctx, query)
			if err != nil {
				a.logger.Warn("ticket tool unavailable, continuing without ticket: %v", err)
			} else {
				result.TicketID = ticketID
				result.Reply = fmt.Sprintf("%s\n\n[System Output] Ticket ID: %s", reply, ticketID)
			}
		}
	case IntentFinance:
		if a.toolset != nil {
			if amount, ok := ReimbursementAmount(query); ok {
				decision, err := a.toolset.ValidateReimbursement(ctx, amount, "General Expense")
				if err != nil {
					a.logger.Warn("reimbursement tool unavailable: %v", err)
				} else {
					result.Reply = fmt.Sprintf("%s\n\n[Validation] %s", reply, decision)
				}
			}
		}
	}

	result.Fragment = fmt.Sprintf("%s: %s", a.label, result.Reply)
	a.logger.Info("served query %.50q", query)
	return result
}

func (a *DomainAgent) retrieveContext(ctx context.Context, query string) string {
	snippets, err := a.retriever.Search(ctx, a.label, query, 4)
	if err != nil {
		a.logger.Warn("retrieval unavailable for %s, generating without context: %v", a.label, err)
		return "No documentation is currently available."
	}
	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "\n\n")
}

// generate streams the grounded reply, emitting token events as deltas
// arrive. Stream failure falls back to a blocking completion, then to the
// canned unavailable reply.
func (a *DomainAgent) generate(ctx context.Context, query, docContext string, override llm.Override, emit Emitter) string {
	client := a.provider.ClientFor(config.NodeAgent, override)
	req := llm.Request{
		System: a.systemPrompt,
		User:   fmt.Sprintf(a.promptTemplate, docContext, query),
	}

	deltas, err := client.CompleteStream(ctx, req)
	if err == nil {
		var sb strings.Builder
		streamOK := true
		for delta := range deltas {
			if delta.Err != nil {
				a.logger.Warn("stream interrupted: %v", delta.Err)
				streamOK = false
				break
			}
			if delta.Content != "" {
				sb.WriteString(delta.Content)
				emit.Emit(Event{Type: EventToken, Node: strings.ToLower(a.label), Text: delta.Content})
			}
		}
		if streamOK && sb.Len() > 0 {
			return sb.String()
		}
	} else {
		a.logger.Warn("streaming unavailable: %v", err)
	}

	reply, err := client.Complete(ctx, req)
	if err != nil {
		a.logger.Warn("completion unavailable, using canned reply: %v", err)
		return agentUnavailableReply
	}
	return reply
}
