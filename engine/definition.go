package engine

import (
	"fmt"

	"github.com/hupe1980/guidedconv/artifact"
	"github.com/hupe1980/guidedconv/resource"
)

// Definition is everything a guided conversation is constructed with: the
// artifact schema to fill in, the behavioral rules, optional conversation-flow
// guidance and context text, and an optional resource constraint. All of it is
// fixed for the life of the conversation.
type Definition struct {
	// Schema declares the artifact fields the conversation works toward
	// filling in.
	Schema artifact.Schema `json:"schema" yaml:"schema"`

	// Rules are natural-language behavioral rules. They are surfaced to the
	// reasoning step verbatim every turn; the engine does not (and cannot)
	// enforce them algorithmically.
	Rules []string `json:"rules" yaml:"rules"`

	// Flow optionally describes how the conversation should progress.
	Flow string `json:"flow,omitempty" yaml:"flow,omitempty"`

	// Context optionally sets the scene for the reasoning step.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`

	// Constraint optionally budgets the conversation. Nil means unbounded:
	// no agenda budget checks and no forced termination.
	Constraint *resource.Constraint `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

// Validate checks the definition is well formed.
func (d Definition) Validate() error {
	if err := d.Schema.Validate(); err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}
	if d.Constraint != nil {
		if err := d.Constraint.Validate(); err != nil {
			return fmt.Errorf("invalid definition: %w", err)
		}
	}
	return nil
}
