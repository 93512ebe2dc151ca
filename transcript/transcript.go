// Package transcript implements the append-only conversation history. Every
// message exchanged plus the engine's internal reasoning notes are recorded as
// typed entries with strictly increasing sequence positions. Entries are never
// mutated or deleted; prompt construction reads a filtered window of them.
package transcript

import (
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
)

// EntryType tags the origin of a transcript entry.
type EntryType string

const (
	// EntryUser is a message from the conversation counterpart.
	EntryUser EntryType = "user"
	// EntryAssistant is a message produced by the engine.
	EntryAssistant EntryType = "assistant"
	// EntryReasoning is an internal note (decision outcomes, rejected
	// updates). Never shown to the model as dialogue.
	EntryReasoning EntryType = "reasoning"
	// EntrySystem is an internal lifecycle marker.
	EntrySystem EntryType = "system"
)

// InvalidEntryTypeError reports an append with a type tag outside the closed
// set.
type InvalidEntryTypeError struct {
	Type EntryType
}

func (e *InvalidEntryTypeError) Error() string {
	return fmt.Sprintf("invalid transcript entry type %q", e.Type)
}

// Entry is one immutable transcript record.
type Entry struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Type      EntryType `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is the append-only, ordered entry history for one session. Access is
// sequential; the owning session never shares it.
type Log struct {
	entries []Entry
}

// NewLog creates an empty transcript.
func NewLog() *Log { return &Log{} }

// Append records content at the next sequence position. It fails only on a
// malformed type tag.
func (l *Log) Append(content string, typ EntryType) (Entry, error) {
	switch typ {
	case EntryUser, EntryAssistant, EntryReasoning, EntrySystem:
	default:
		return Entry{}, &InvalidEntryTypeError{Type: typ}
	}
	e := Entry{
		ID:        uuid.NewString(),
		Seq:       len(l.entries),
		Type:      typ,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	l.entries = append(l.entries, e)
	return e, nil
}

// Len returns the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// Entries returns a defensive copy of the full history, for diagnostics and
// session snapshots.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// RenderForPrompt yields the most recent window user/assistant entries in
// order. Reasoning and system entries are internal-only and excluded from what
// the model sees as prior dialogue. The sequence is lazy and restartable;
// window <= 0 means no limit.
func (l *Log) RenderForPrompt(window int) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		start := 0
		if window > 0 {
			count := 0
			for i := len(l.entries) - 1; i >= 0; i-- {
				if !dialogue(l.entries[i].Type) {
					continue
				}
				count++
				if count == window {
					start = i
					break
				}
			}
		}
		for _, e := range l.entries[start:] {
			if !dialogue(e.Type) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// LastOfType returns the most recent entry with the given type, or false when
// none exists. Intended for introspection, not protocol logic.
func (l *Log) LastOfType(typ EntryType) (Entry, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Type == typ {
			return l.entries[i], true
		}
	}
	return Entry{}, false
}

// Restore replaces the history from a session snapshot.
func (l *Log) Restore(entries []Entry) {
	l.entries = make([]Entry, len(entries))
	copy(l.entries, entries)
}

func dialogue(t EntryType) bool { return t == EntryUser || t == EntryAssistant }
