package engine

import (
	"fmt"
	"strings"

	"github.com/hupe1980/guidedconv/model"
	"github.com/hupe1980/guidedconv/resource"
	"github.com/hupe1980/guidedconv/transcript"
)

// buildRequest assembles the reasoning request for one step: standing
// instructions (context, rules, flow, artifact schema and state, agenda,
// budget), the dialogue window, the not-yet-committed user message and the
// decision shapes. Rules are included verbatim; they are advisory inputs to
// the reasoning step, not enforced constraints.
func (c *Conversation) buildRequest(pendingUser string, terminal bool) model.Request {
	var b strings.Builder
	b.WriteString("You are conducting a guided conversation. Work toward completing the artifact below, " +
		"one turn at a time, while following the rules and staying within the budget.\n")

	if c.def.Context != "" {
		b.WriteString("\n## Context\n")
		b.WriteString(c.def.Context)
		b.WriteString("\n")
	}
	if len(c.def.Rules) > 0 {
		b.WriteString("\n## Rules\n")
		for _, rule := range c.def.Rules {
			b.WriteString("- ")
			b.WriteString(rule)
			b.WriteString("\n")
		}
	}
	if c.def.Flow != "" {
		b.WriteString("\n## Conversation flow\n")
		b.WriteString(c.def.Flow)
		b.WriteString("\n")
	}

	b.WriteString("\n## Artifact fields\n")
	b.WriteString(c.store.RenderSchemaForPrompt())
	b.WriteString("\n\n## Current artifact\n")
	b.WriteString(c.store.RenderForPrompt())
	b.WriteString("\n\n## Current agenda\n")
	b.WriteString(c.planner.RenderForPrompt())
	b.WriteString("\n")

	if c.tracker != nil {
		b.WriteString("\n## Budget\n")
		b.WriteString(c.tracker.StatusLine())
		b.WriteString("\n")
	}

	if terminal {
		b.WriteString("\nThe conversation is ending now. Apply any final artifact updates " +
			"(for example summary or feedback fields); do not send another message.\n")
	} else if c.log.Len() == 0 && pendingUser == "" {
		b.WriteString("\nThis is the first turn: open the conversation with a message to the user.\n")
	}

	req := model.Request{
		Instructions: b.String(),
		Messages:     c.dialogueWindow(pendingUser),
	}
	if terminal {
		req.Tools = []model.ToolDefinition{artifactTool()}
	} else {
		req.Tools = decisionTools(c.budgetUnit())
	}
	return req
}

// dialogueWindow converts the bounded transcript window plus the pending user
// message into chat messages.
func (c *Conversation) dialogueWindow(pendingUser string) []model.Message {
	var messages []model.Message
	for entry := range c.log.RenderForPrompt(c.historyWindow) {
		role := "user"
		if entry.Type == transcript.EntryAssistant {
			role = "assistant"
		}
		messages = append(messages, model.Message{Role: role, Text: entry.Content})
	}
	if pendingUser != "" {
		messages = append(messages, model.Message{Role: "user", Text: pendingUser})
	}
	if len(messages) == 0 {
		// Providers reject empty message lists; seed the opening turn.
		messages = append(messages, model.Message{Role: "user", Text: "(begin the conversation)"})
	}
	return messages
}

func (c *Conversation) budgetUnit() string {
	if c.tracker == nil {
		return string(resource.UnitTurns)
	}
	return string(c.tracker.Constraint().Unit)
}

// AgendaForPrompt returns the deterministic human-readable agenda rendering.
func (c *Conversation) AgendaForPrompt() string { return c.planner.RenderForPrompt() }

// ArtifactForPrompt returns the deterministic artifact rendering with the
// Unanswered sentinel shown verbatim.
func (c *Conversation) ArtifactForPrompt() string { return c.store.RenderForPrompt() }

// describeRejection renders a rejected sub-step for the reasoning log.
func describeRejection(kind string, err error) string {
	return fmt.Sprintf("rejected %s: %v", kind, err)
}
