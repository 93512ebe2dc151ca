// Package guidedconv provides a high-level façade over the guided conversation
// engine: a turn-based orchestrator that drives a language model through a
// long-horizon interaction toward filling in a structured artifact, under a
// resource budget and a replannable agenda. Most applications interact with
// this package by:
//  1. Authoring a Definition (artifact schema, rules, flow, context,
//     constraint) in code or loading it from YAML
//  2. Creating a Conversation via New() with a model backend
//     (model/openai, model/anthropic, or any model.Model)
//  3. Calling Step() once per turn — first with no input to receive the
//     opening message, then with each user reply — until
//     Output.IsConversationOver, and finally reading the artifact
//
// The façade delegates orchestration to engine.Conversation while keeping
// setup ergonomics concise. Defaults (NoOp logger, bounded retries, dialogue
// window) are safe for local development and testing.
package guidedconv

import (
	"github.com/hupe1980/guidedconv/engine"
	"github.com/hupe1980/guidedconv/model"
)

// Re-exported engine types so simple hosts only import this package.
type (
	// Definition is everything a guided conversation is constructed with.
	Definition = engine.Definition
	// Conversation is one guided conversation session.
	Conversation = engine.Conversation
	// Options configures a Conversation.
	Options = engine.Options
	// Output is the caller-facing result of one Step.
	Output = engine.Output
	// Snapshot is the complete serializable session state.
	Snapshot = engine.Snapshot
)

// New constructs a conversation session in state INIT.
func New(def Definition, m model.Model, optFns ...func(o *Options)) (*Conversation, error) {
	return engine.NewConversation(def, m, optFns...)
}

// Resume rebuilds a session from a snapshot with a fresh model and options.
func Resume(snap *Snapshot, m model.Model, optFns ...func(o *Options)) (*Conversation, error) {
	return engine.Resume(snap, m, optFns...)
}
