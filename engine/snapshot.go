package engine

import (
	"fmt"

	"github.com/hupe1980/guidedconv/agenda"
	"github.com/hupe1980/guidedconv/artifact"
	"github.com/hupe1980/guidedconv/model"
	"github.com/hupe1980/guidedconv/resource"
	"github.com/hupe1980/guidedconv/transcript"
)

// Snapshot is the complete serializable state of a conversation session:
// enough to resume with no information loss. Values marshal to JSON; the
// session package persists them.
type Snapshot struct {
	ID         string                    `json:"id"`
	State      State                     `json:"state"`
	Turn       int                       `json:"turn"`
	Definition Definition                `json:"definition"`
	Consumed   float64                   `json:"consumed"`
	Agenda     []agenda.Item             `json:"agenda"`
	Artifact   map[string]artifact.Value `json:"artifact"`
	Transcript []transcript.Entry        `json:"transcript"`
}

// Snapshot captures the session's current state. Call between steps; the
// result is independent of the live session.
func (c *Conversation) Snapshot() *Snapshot {
	items, _ := c.planner.Current()
	consumed := 0.0
	if c.tracker != nil {
		consumed = c.tracker.Consumed()
	}
	return &Snapshot{
		ID:         c.id,
		State:      c.state,
		Turn:       c.turn,
		Definition: c.def,
		Consumed:   consumed,
		Agenda:     items,
		Artifact:   c.store.Values(),
		Transcript: c.log.Entries(),
	}
}

// Resume rebuilds a conversation from a snapshot. The model and options are
// supplied fresh; everything else round-trips from the snapshot.
func Resume(snap *Snapshot, m model.Model, optFns ...func(o *Options)) (*Conversation, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	c, err := NewConversation(snap.Definition, m, optFns...)
	if err != nil {
		return nil, err
	}
	switch snap.State {
	case StateInit, StateActive, StateTerminated:
	case StateTerminating:
		return nil, fmt.Errorf("cannot resume from transient state %q", snap.State)
	default:
		return nil, fmt.Errorf("unknown conversation state %q", snap.State)
	}
	c.id = snap.ID
	c.state = snap.State
	c.turn = snap.Turn
	if c.tracker != nil {
		c.tracker = resource.Restore(*snap.Definition.Constraint, snap.Consumed)
		c.planner = agenda.NewPlanner(c.tracker)
	}
	c.planner.Restore(snap.Agenda)
	if err := c.store.RestoreValues(snap.Artifact); err != nil {
		return nil, fmt.Errorf("snapshot artifact values: %w", err)
	}
	c.log.Restore(snap.Transcript)
	return c, nil
}
