package desk

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"

	"servicedesk/internal/config"
	sderrors "servicedesk/internal/errors"
	"servicedesk/internal/llm"
	"servicedesk/internal/logging"
)

const planSystemPrompt = "You are a task planner for a service desk."

const planPromptTemplate = `Break the following multi-intent user query into a list of tasks.
Each task must specify the target agent: HR, IT, or Finance.

Query: "%s"

Return ONLY a JSON array of objects:
[{"agent": "IT", "task": "troubleshoot laptop"}, {"agent": "Finance", "task": "reimbursement procedure"}]`

// Planner decomposes a multi-intent request into an ordered task queue.
type Planner struct {
	provider ClientProvider
	logger   logging.Logger
}

// NewPlanner builds a planner over the client provider.
func NewPlanner(provider ClientProvider) *Planner {
	return &Planner{
		provider: provider,
		logger:   logging.NewComponentLogger("Planner"),
	}
}

// Plan returns the ordered sub-tasks for a multi-intent query. Tasks naming
// an agent outside {HR, IT, Finance} are dropped (lossy, documented). Any
// capability or parse failure yields an empty list, which the router treats
// like Unknown and escalates.
func (p *Planner) Plan(ctx context.Context, text string, override llm.Override) []Task {
	client := p.provider.ClientFor(config.NodePlanner, override)
	raw, err := client.Complete(ctx, llm.Request{
		System: planSystemPrompt,
		User:   fmt.Sprintf(planPromptTemplate, text),
	})
	if err != nil {
		p.logger.Warn("planning capability unavailable, returning empty plan: %v", err)
		return nil
	}

	tasks, err := parsePlan(raw)
	if err != nil {
		p.logger.Warn("%v", err)
		return nil
	}
	return tasks
}

// planItemSchema is the strict shape of one planned task.
type planItemSchema struct {
	Agent string `json:"agent"`
	Task  string `json:"task"`
}

func parsePlan(raw string) ([]Task, error) {
	cleaned := StripCodeFences(raw)

	var items []planItemSchema
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return nil, sderrors.MalformedOutput("planner", raw, err)
		}
		if err := json.Unmarshal([]byte(repaired), &items); err != nil {
			return nil, sderrors.MalformedOutput("planner", raw, err)
		}
	}

	tasks := make([]Task, 0, len(items))
	for _, item := range items {
		agent := ParseIntent(item.Agent)
		if !agent.IsDomain() {
			continue
		}
		tasks = append(tasks, Task{Agent: agent, Description: item.Task})
	}
	return tasks, nil
}
