// Package engine implements the per-turn orchestration loop of a guided
// conversation: a small state machine (INIT, ACTIVE, TERMINATING, TERMINATED)
// that drives a completion-capable model toward filling in a structured
// artifact while respecting a resource budget and an adaptive agenda.
//
// Each Step performs a fixed sequence: record the incoming user message,
// consult the budget, assemble a reasoning request (context, rules, flow
// guidance, artifact schema and state, agenda, budget status, dialogue
// window), invoke the model once with the declared decision shapes, then
// apply what came back in order — artifact updates first, agenda replan
// second, message or termination last. Validation failures in any sub-step
// are recorded as reasoning transcript entries and degrade to a no-op for
// that sub-step; they never abort the turn or escape to the caller.
//
// The engine buffers all container mutations until the completion call has
// returned successfully, so cancelling an in-flight Step leaves the session
// exactly as it was. Only capability unavailability (after bounded retries)
// and caller misuse (ErrSessionBusy, ErrConversationTerminated) surface as
// errors.
//
// The rules and flow guidance carried in the Definition are advisory: the
// engine makes them maximally visible to the reasoning step every turn but
// does not enforce them algorithmically.
package engine
