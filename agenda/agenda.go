// Package agenda implements the turn-budgeted conversation plan. The reasoning
// step replans the agenda as the conversation evolves; every replan is checked
// against the resource tracker so the plan can never promise more turns than
// the budget allows. Replans are all-or-nothing: a rejected plan leaves the
// previous agenda untouched.
package agenda

import (
	"fmt"
	"strings"

	"github.com/hupe1980/guidedconv/resource"
)

// Item is one planned conversational goal with its turn cost.
type Item struct {
	Description string `json:"description" yaml:"description"`
	TurnsCost   int    `json:"turns_cost" yaml:"turns_cost"`
}

// InconsistencyError reports a rejected replan: malformed items or a total that
// violates the budget discipline. The prior agenda is retained when this error
// is returned.
type InconsistencyError struct {
	Reason string `json:"reason"`
	Total  int    `json:"total"`
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("agenda inconsistency: %s (total %d)", e.Reason, e.Total)
}

// Planner holds the current agenda for one session. Access is sequential; the
// owning session never shares it.
type Planner struct {
	items   []Item
	tracker *resource.Tracker
}

// NewPlanner creates an empty planner bound to the session's tracker. A nil
// tracker disables budget checks (unbounded conversations).
func NewPlanner(tracker *resource.Tracker) *Planner {
	return &Planner{tracker: tracker}
}

// Current returns a copy of the ordered items and their total turn cost.
func (p *Planner) Current() ([]Item, int) {
	items := make([]Item, len(p.items))
	copy(items, p.items)
	return items, total(p.items)
}

// Empty reports whether no items are planned.
func (p *Planner) Empty() bool { return len(p.items) == 0 }

// Replan replaces the whole agenda with items after validating it. terminal
// relaxes the non-empty requirement for the conversation's final step. The
// replacement is all-or-nothing: on any validation failure the previous agenda
// is kept and an *InconsistencyError is returned.
func (p *Planner) Replan(items []Item, terminal bool) error {
	if len(items) == 0 && !terminal {
		return &InconsistencyError{Reason: "agenda must not be empty before the terminal step"}
	}
	for i, item := range items {
		if item.TurnsCost < 1 {
			return &InconsistencyError{
				Reason: fmt.Sprintf("item %d (%q) has turn cost %d, must be >= 1", i+1, item.Description, item.TurnsCost),
				Total:  total(items),
			}
		}
	}
	sum := total(items)
	if p.tracker == nil {
		replacement := make([]Item, len(items))
		copy(replacement, items)
		p.items = replacement
		return nil
	}
	remaining := p.tracker.Remaining()
	c := p.tracker.Constraint()
	if c.Unit == resource.UnitTurns {
		switch c.Mode {
		case resource.ModeExact:
			if float64(sum) != remaining {
				return &InconsistencyError{
					Reason: fmt.Sprintf("total must equal the %s remaining turns exactly", formatRemaining(remaining)),
					Total:  sum,
				}
			}
		case resource.ModeMaximum:
			if err := p.tracker.CheckAllocation(float64(sum)); err != nil {
				return &InconsistencyError{
					Reason: fmt.Sprintf("total exceeds the %s remaining turns", formatRemaining(remaining)),
					Total:  sum,
				}
			}
		}
	}
	replacement := make([]Item, len(items))
	copy(replacement, items)
	p.items = replacement
	return nil
}

// AdvanceOneTurn consumes one turn from the front of the agenda. It is invoked
// once per orchestrator step so that, absent an explicit replan, the agenda's
// total shrinks in lockstep with the budget. An empty agenda is a no-op.
func (p *Planner) AdvanceOneTurn() {
	if len(p.items) == 0 {
		return
	}
	if p.items[0].TurnsCost > 1 {
		p.items[0].TurnsCost--
		return
	}
	p.items = p.items[1:]
}

// Restore replaces the agenda from a session snapshot without budget checks;
// the snapshot was validated when the items were first accepted.
func (p *Planner) Restore(items []Item) {
	p.items = make([]Item, len(items))
	copy(p.items, items)
}

// RenderForPrompt produces the deterministic agenda listing shown to the
// model: "N. [cost unit] description" lines plus a total. An empty agenda
// renders as a single placeholder line.
func (p *Planner) RenderForPrompt() string {
	if len(p.items) == 0 {
		return "(no agenda planned)"
	}
	unit := string(resource.UnitTurns)
	if p.tracker != nil {
		unit = string(p.tracker.Constraint().Unit)
	}
	var b strings.Builder
	for i, item := range p.items {
		fmt.Fprintf(&b, "%d. [%d %s] %s\n", i+1, item.TurnsCost, unit, item.Description)
	}
	fmt.Fprintf(&b, "Total: %d %s", total(p.items), unit)
	return b.String()
}

func total(items []Item) int {
	sum := 0
	for _, item := range items {
		sum += item.TurnsCost
	}
	return sum
}

func formatRemaining(r float64) string {
	if r == float64(int64(r)) {
		return fmt.Sprintf("%d", int64(r))
	}
	return fmt.Sprintf("%.1f", r)
}
