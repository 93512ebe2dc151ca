package engine

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/guidedconv/agenda"
	"github.com/hupe1980/guidedconv/model"
)

// Decision shape names exposed to the model as invocable tools.
const (
	toolUpdateArtifact  = "update_artifact"
	toolUpdateAgenda    = "update_agenda"
	toolSendMessage     = "send_message"
	toolEndConversation = "end_conversation"
)

// artifactUpdate is one proposed field update extracted from an
// update_artifact invocation.
type artifactUpdate struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// decision is the parsed outcome of one reasoning step. Artifact updates may
// be combined with at most one of replan / message / end; anything the parser
// could not make sense of lands in rejected and is logged, never fatal.
type decision struct {
	updates    []artifactUpdate
	replan     []agenda.Item
	hasReplan  bool
	message    string
	hasMessage bool
	end        bool
	rejected   []string
}

// noToolInvoked reports whether the completion carried no actionable decision.
func (d *decision) noToolInvoked() bool {
	return len(d.updates) == 0 && !d.hasReplan && !d.hasMessage && !d.end
}

// decisionTools declares the decision shapes for a regular turn.
func decisionTools(unit string) []model.ToolDefinition {
	return []model.ToolDefinition{
		artifactTool(),
		{
			Name: toolUpdateAgenda,
			Description: "Replace the conversation agenda with a new ordered plan. " +
				"The total cost must fit the remaining budget; the previous agenda is kept if the plan is invalid.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"items": map[string]any{
						"type":        "array",
						"description": "Ordered agenda items replacing the current plan",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"description": map[string]any{
									"type":        "string",
									"description": "What this part of the conversation should accomplish",
								},
								"turns_cost": map[string]any{
									"type":        "integer",
									"description": fmt.Sprintf("Estimated cost in %s, at least 1", unit),
								},
							},
							"required": []string{"description", "turns_cost"},
						},
					},
				},
				"required": []string{"items"},
			},
		},
		{
			Name:        toolSendMessage,
			Description: "Send the next message to the user and wait for their reply.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "The message to send",
					},
				},
				"required": []string{"message"},
			},
		},
		{
			Name:        toolEndConversation,
			Description: "End the conversation. Use only when the artifact is as complete as it can be or the budget is spent.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// artifactTool is the update_artifact decision shape. During the terminal
// cleanup pass it is the only tool offered.
func artifactTool() model.ToolDefinition {
	return model.ToolDefinition{
		Name: toolUpdateArtifact,
		Description: "Write one or more artifact fields. Each value must match the declared field type; " +
			"mismatched updates are rejected individually.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"updates": map[string]any{
					"type":        "array",
					"description": "Field updates to apply, in order",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"field": map[string]any{
								"type":        "string",
								"description": "Artifact field name",
							},
							"value": map[string]any{
								"description": "New value for the field (type must match the schema)",
							},
						},
						"required": []string{"field", "value"},
					},
				},
			},
			"required": []string{"updates"},
		},
	}
}

// parseDecision folds the completion's tool calls into a decision. Unknown
// tools and undecodable arguments are recorded as rejections; when several
// terminal actions are proposed the first one wins and the rest are rejected.
func parseDecision(resp *model.Response) *decision {
	d := &decision{}
	for _, tc := range resp.ToolCalls {
		switch tc.Name {
		case toolUpdateArtifact:
			var args struct {
				Updates []artifactUpdate `json:"updates"`
			}
			if err := decodeArgs(tc.Arguments, &args); err != nil {
				d.reject(tc.Name, err)
				continue
			}
			d.updates = append(d.updates, args.Updates...)
		case toolUpdateAgenda:
			var args struct {
				Items []agenda.Item `json:"items"`
			}
			if err := decodeArgs(tc.Arguments, &args); err != nil {
				d.reject(tc.Name, err)
				continue
			}
			if d.terminalTaken(tc.Name) {
				continue
			}
			d.replan = args.Items
			d.hasReplan = true
		case toolSendMessage:
			var args struct {
				Message string `json:"message"`
			}
			if err := decodeArgs(tc.Arguments, &args); err != nil {
				d.reject(tc.Name, err)
				continue
			}
			if d.terminalTaken(tc.Name) {
				continue
			}
			d.message = args.Message
			d.hasMessage = true
		case toolEndConversation:
			if d.terminalTaken(tc.Name) {
				continue
			}
			d.end = true
		default:
			d.reject(tc.Name, fmt.Errorf("unknown decision shape"))
		}
	}
	return d
}

// terminalTaken records a rejection when a second replan/message/end action is
// proposed in the same step.
func (d *decision) terminalTaken(name string) bool {
	if d.hasReplan || d.hasMessage || d.end {
		d.rejected = append(d.rejected, fmt.Sprintf("%s: only one of agenda replan, message or end per step", name))
		return true
	}
	return false
}

func (d *decision) reject(name string, err error) {
	d.rejected = append(d.rejected, fmt.Sprintf("%s: %v", name, err))
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty arguments")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("malformed arguments: %w", err)
	}
	return nil
}
