// Package resource implements the conversation budget tracker. A guided
// conversation is constructed with a single Constraint (a quantity of turns,
// seconds or minutes plus a discipline mode) and the Tracker meters consumption
// against it one orchestrator step at a time. The planner consults the tracker
// before accepting an agenda; the engine consults it to decide when the
// conversation must wind down.
package resource

import (
	"errors"
	"fmt"
	"time"
)

// Unit is the measure a conversation budget is expressed in.
type Unit string

const (
	// UnitSeconds budgets wall-clock seconds.
	UnitSeconds Unit = "seconds"
	// UnitMinutes budgets wall-clock minutes.
	UnitMinutes Unit = "minutes"
	// UnitTurns budgets completed orchestrator steps.
	UnitTurns Unit = "turns"
)

// Mode selects the budget discipline.
type Mode string

const (
	// ModeExact targets consuming the whole budget: the agenda must account
	// for every remaining unit and the conversation should end exactly on
	// budget.
	ModeExact Mode = "exact"
	// ModeMaximum treats the budget as a ceiling: the agenda may plan less,
	// never more.
	ModeMaximum Mode = "maximum"
)

// ErrResourceExhausted is returned when an allocation request exceeds the
// remaining budget. It is a planning signal, never surfaced to the end user.
var ErrResourceExhausted = errors.New("resource constraint exhausted")

// Constraint declares the budget a conversation was constructed with. It is
// immutable for the life of the conversation.
type Constraint struct {
	Quantity float64 `json:"quantity" yaml:"quantity"`
	Unit     Unit    `json:"unit" yaml:"unit"`
	Mode     Mode    `json:"mode" yaml:"mode"`
}

// Validate reports whether the constraint is well formed.
func (c Constraint) Validate() error {
	if c.Quantity <= 0 {
		return fmt.Errorf("constraint quantity must be positive, got %v", c.Quantity)
	}
	switch c.Unit {
	case UnitSeconds, UnitMinutes, UnitTurns:
	default:
		return fmt.Errorf("unknown constraint unit %q", c.Unit)
	}
	switch c.Mode {
	case ModeExact, ModeMaximum:
	default:
		return fmt.Errorf("unknown constraint mode %q", c.Mode)
	}
	return nil
}

// Tracker meters consumption against a Constraint. It is advanced exactly once
// per orchestrator step and is not safe for concurrent use; a session owns its
// tracker exclusively.
type Tracker struct {
	constraint Constraint
	consumed   float64
	lastTick   time.Time
	now        func() time.Time
}

// NewTracker creates a tracker for the given constraint. The constraint must
// already have been validated.
func NewTracker(c Constraint) *Tracker {
	return &Tracker{constraint: c, now: time.Now, lastTick: time.Now()}
}

// Constraint returns the immutable constraint the tracker was built with.
func (t *Tracker) Constraint() Constraint { return t.constraint }

// Consumed returns the budget consumed so far in the declared unit.
func (t *Tracker) Consumed() float64 { return t.consumed }

// Remaining returns the unconsumed budget in the declared unit. It can go
// negative for time units when a turn overruns the budget.
func (t *Tracker) Remaining() float64 { return t.constraint.Quantity - t.consumed }

// Exhausted reports whether no budget remains.
func (t *Tracker) Exhausted() bool { return t.Remaining() <= 0 }

// CheckAllocation verifies that amount units could still be spent under the
// active discipline. It returns ErrResourceExhausted (wrapped with the
// requested amount) when the allocation would overdraw the budget.
func (t *Tracker) CheckAllocation(amount float64) error {
	if amount > t.Remaining() {
		return fmt.Errorf("%w: requested %v %s, %v remaining", ErrResourceExhausted, amount, t.constraint.Unit, t.Remaining())
	}
	return nil
}

// Advance records one completed orchestrator step. For turn budgets it always
// consumes exactly one turn; for time budgets it consumes the wall-clock time
// elapsed since the previous call (or since construction for the first step).
func (t *Tracker) Advance() {
	switch t.constraint.Unit {
	case UnitTurns:
		t.consumed++
	case UnitSeconds:
		t.consumed += t.tick().Seconds()
	case UnitMinutes:
		t.consumed += t.tick().Minutes()
	}
}

func (t *Tracker) tick() time.Duration {
	now := t.now()
	elapsed := now.Sub(t.lastTick)
	t.lastTick = now
	return elapsed
}

// Restore rebuilds a tracker from a persisted consumed amount. Used by session
// snapshots; the time baseline restarts at the moment of restoration.
func Restore(c Constraint, consumed float64) *Tracker {
	t := NewTracker(c)
	t.consumed = consumed
	return t
}

// StatusLine renders the budget state for inclusion in a reasoning prompt,
// e.g. "7 of 10 turns remaining (exact)".
func (t *Tracker) StatusLine() string {
	return fmt.Sprintf("%s of %s %s remaining (%s)",
		formatQuantity(t.Remaining()), formatQuantity(t.constraint.Quantity), t.constraint.Unit, t.constraint.Mode)
}

func formatQuantity(q float64) string {
	if q == float64(int64(q)) {
		return fmt.Sprintf("%d", int64(q))
	}
	return fmt.Sprintf("%.1f", q)
}
