// Package wizard is the command agent: it turns a manager's free-text request
// plus an organizational snapshot into either a natural-language answer or a
// list of proposed actions, by delegating to a tool-calling language model.
// The agent itself never touches storage; proposed mutations are executed
// elsewhere, after human confirmation.
package wizard

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/crewplan/crewplan/internal/classifier"
	"github.com/crewplan/crewplan/internal/executor"
	"github.com/crewplan/crewplan/internal/llm"
	"github.com/crewplan/crewplan/pkg/models"
)

var tracer = otel.Tracer("crewplan-wizard")

// Response is the agent's reply to one command: a user-facing message (IDs
// already stripped) and zero or more proposed actions.
type Response struct {
	Message string
	Actions []models.ActionCall
}

// HasMutations reports whether any proposed action writes state.
func (r *Response) HasMutations() bool {
	for _, a := range r.Actions {
		if executor.IsMutating(a.Tool) {
			return true
		}
	}
	return false
}

// Agent drives the language model for wizard commands.
type Agent struct {
	provider llm.Provider
	model    string
}

// NewAgent creates a command agent. An empty model uses the provider default.
func NewAgent(provider llm.Provider, model string) *Agent {
	return &Agent{provider: provider, model: model}
}

// Process sends one command through the model. A provider failure or a
// malformed reply fails the whole turn; no partial action list is ever
// returned.
func (a *Agent) Process(ctx context.Context, text string, snap *models.OrgSnapshot, hint classifier.Classification) (*Response, error) {
	ctx, span := tracer.Start(ctx, "wizard.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("wizard.category", string(hint.Category)),
		attribute.Float64("wizard.confidence", hint.Confidence),
		attribute.Int("wizard.history_turns", len(snap.History)),
	)

	messages := []llm.Message{{Role: "system", Content: systemPrompt(snap, hint)}}
	for _, turn := range snap.History {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: text})

	reply, err := a.provider.Chat(ctx, &llm.ChatRequest{
		Model:       a.model,
		Messages:    messages,
		Tools:       ToolSchemas(),
		Temperature: 0.2,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("language model: %w", err)
	}

	actions := make([]models.ActionCall, 0, len(reply.ToolCalls))
	for _, tc := range reply.ToolCalls {
		if !executor.IsKnownTool(tc.Name) {
			err := fmt.Errorf("model proposed unknown tool %q", tc.Name)
			span.RecordError(err)
			return nil, err
		}
		actions = append(actions, models.ActionCall{
			Tool:        tc.Name,
			Params:      tc.Arguments,
			Description: describeAction(tc.Name, tc.Arguments, snap),
		})
	}
	span.SetAttributes(attribute.Int("wizard.actions", len(actions)))

	message := StripIDs(reply.Content)
	if message == "" && len(actions) > 0 {
		message = fmt.Sprintf("I have %d change(s) ready for your review.", len(actions))
	}
	return &Response{Message: message, Actions: actions}, nil
}

// describeAction renders a short human-readable summary of an action, using
// snapshot names where the IDs resolve.
func describeAction(tool string, params map[string]any, snap *models.OrgSnapshot) string {
	name := func(kind, id string) string {
		switch kind {
		case "user":
			if u := snap.UserByID(id); u != nil {
				return u.Name
			}
		case "project":
			if p := snap.ProjectByID(id); p != nil {
				return p.Name
			}
		}
		return id
	}
	str := func(key string) string { s, _ := params[key].(string); return s }
	hours, _ := params["hours"].(float64)

	switch tool {
	case executor.ToolAddAllocation:
		return fmt.Sprintf("Add %gh for %s on %s (week of %s)",
			hours, name("user", str("user_id")), name("project", str("project_id")), str("week_start"))
	case executor.ToolRemoveAllocation:
		return fmt.Sprintf("Remove %s from %s (week of %s)",
			name("user", str("user_id")), name("project", str("project_id")), str("week_start"))
	case executor.ToolMoveAllocation:
		from := str("from_user_id")
		if from == "" {
			return fmt.Sprintf("Add %gh for %s on %s (week of %s)",
				hours, name("user", str("to_user_id")), name("project", str("project_id")), str("week_start"))
		}
		return fmt.Sprintf("Move %gh from %s to %s on %s (week of %s)",
			hours, name("user", from), name("user", str("to_user_id")),
			name("project", str("project_id")), str("week_start"))
	case executor.ToolBulkUpdate:
		if changes, ok := params["changes"].([]any); ok {
			return fmt.Sprintf("Apply %d allocation change(s)", len(changes))
		}
		return "Apply bulk allocation changes"
	case executor.ToolAvailability:
		return fmt.Sprintf("Check availability for %s", name("user", str("user_id")))
	case executor.ToolUserAllocations:
		return fmt.Sprintf("List allocations for %s", name("user", str("user_id")))
	case executor.ToolProjectStatus:
		return fmt.Sprintf("Check status of %s", name("project", str("project_id")))
	case executor.ToolSuggestCoverage:
		return fmt.Sprintf("Suggest coverage for %s (week of %s)", name("user", str("user_id")), str("week_start"))
	}
	return tool
}
