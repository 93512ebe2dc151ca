package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/guidedconv/agenda"
	"github.com/hupe1980/guidedconv/artifact"
	"github.com/hupe1980/guidedconv/logging"
	"github.com/hupe1980/guidedconv/model"
	"github.com/hupe1980/guidedconv/resource"
	"github.com/hupe1980/guidedconv/transcript"
)

// State is the conversation lifecycle position.
type State string

const (
	// StateInit is the constructed-but-not-started state.
	StateInit State = "init"
	// StateActive is the normal turn-taking state.
	StateActive State = "active"
	// StateTerminating is the transient final-cleanup state.
	StateTerminating State = "terminating"
	// StateTerminated is the absorbing end state.
	StateTerminated State = "terminated"
)

// fallbackMessage is sent when the completion returned no actionable decision
// and no assistant message exists for the turn yet.
const fallbackMessage = "Let's pick up where we left off. Could you tell me more?"

// terminationNotice is the closing message recorded when the conversation ends.
const terminationNotice = "Thank you for your time. This conversation is now complete."

// Options configures a Conversation.
type Options struct {
	// Logger receives structured engine logs. Defaults to NoOpLogger.
	Logger logging.Logger

	// MaxRetries is how often a failed completion call is retried with the
	// same request before the step fails with CompletionUnavailableError.
	MaxRetries int

	// HistoryWindow bounds how many dialogue entries are shown to the model
	// per turn. Zero or negative means the full history.
	HistoryWindow int
}

// Output is the caller-facing result of one Step.
type Output struct {
	// Message is the assistant's reply for this turn, or the termination
	// notice. May be empty when the reasoning step only updated state.
	Message string `json:"message"`

	// IsConversationOver reports whether the conversation has terminated.
	// Once true, further Step calls fail with ErrConversationTerminated.
	IsConversationOver bool `json:"is_conversation_over"`
}

// Conversation is one guided conversation session: the orchestrator state
// machine plus the four state containers it exclusively owns. A Conversation
// is driven strictly sequentially; concurrent Step calls fail with
// ErrSessionBusy rather than interleaving.
type Conversation struct {
	id      string
	def     Definition
	state   State
	turn    int
	tracker *resource.Tracker // nil when unconstrained
	store   *artifact.Store
	planner *agenda.Planner
	log     *transcript.Log
	model   model.Model
	logger  logging.Logger

	maxRetries    int
	historyWindow int
	busy          atomic.Bool
}

// NewConversation constructs a session in state INIT. The first Step call
// (with no user message) produces the opening message: the engine, not the
// counterpart, initiates dialogue.
func NewConversation(def Definition, m model.Model, optFns ...func(o *Options)) (*Conversation, error) {
	if m == nil {
		return nil, fmt.Errorf("conversation requires a model")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	opts := Options{
		Logger:        logging.NoOpLogger{},
		MaxRetries:    2,
		HistoryWindow: 40,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	store, err := artifact.NewStore(def.Schema)
	if err != nil {
		return nil, err
	}
	var tracker *resource.Tracker
	if def.Constraint != nil {
		tracker = resource.NewTracker(*def.Constraint)
	}
	return &Conversation{
		id:            uuid.NewString(),
		def:           def,
		state:         StateInit,
		tracker:       tracker,
		store:         store,
		planner:       agenda.NewPlanner(tracker),
		log:           transcript.NewLog(),
		model:         m,
		logger:        opts.Logger,
		maxRetries:    opts.MaxRetries,
		historyWindow: opts.HistoryWindow,
	}, nil
}

// ID returns the session identifier.
func (c *Conversation) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Conversation) State() State { return c.state }

// Definition returns the immutable definition the session was built with.
func (c *Conversation) Definition() Definition { return c.def }

// Remaining returns the unconsumed budget, or false when the conversation is
// unconstrained.
func (c *Conversation) Remaining() (float64, bool) {
	if c.tracker == nil {
		return 0, false
	}
	return c.tracker.Remaining(), true
}

// Artifact returns the artifact store for inspection after termination.
func (c *Conversation) Artifact() *artifact.Store { return c.store }

// Transcript returns the transcript log for diagnostics.
func (c *Conversation) Transcript() *transcript.Log { return c.log }

// Step runs one orchestrator turn: record the user message, reason against the
// completion capability, apply validated updates, reply or terminate, and
// advance the budget. All container mutations are buffered until the
// completion call has returned successfully, so a cancelled or failed step
// leaves the session exactly as it was.
func (c *Conversation) Step(ctx context.Context, userMessage string) (*Output, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrSessionBusy
	}
	defer c.busy.Store(false)

	if c.state == StateTerminating || c.state == StateTerminated {
		return nil, ErrConversationTerminated
	}

	forced := c.tracker != nil && c.tracker.Exhausted()
	req := c.buildRequest(userMessage, false)

	resp, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	// Completion succeeded: commit phase.
	if c.state == StateInit {
		c.state = StateActive
	}
	c.turn++
	if userMessage != "" {
		c.mustAppend(userMessage, transcript.EntryUser)
	}

	d := parseDecision(resp)
	for _, rej := range d.rejected {
		c.logger.Warn("decision rejected", "turn", c.turn, "reason", rej)
		c.mustAppend(describeRejection("decision", errors.New(rej)), transcript.EntryReasoning)
	}
	c.applyArtifactUpdates(d.updates)
	if d.hasReplan {
		if err := c.planner.Replan(d.replan, d.end || forced); err != nil {
			c.logger.Warn("agenda replan rejected", "turn", c.turn, "error", err)
			c.mustAppend(describeRejection("agenda replan", err), transcript.EntryReasoning)
		} else {
			c.logger.Debug("agenda replanned", "turn", c.turn, "items", len(d.replan))
		}
	}

	if d.end || forced {
		return c.terminate(ctx, forced)
	}

	msg := d.message
	if d.noToolInvoked() {
		note := "completion returned no actionable decision"
		if resp.Text != "" {
			note = fmt.Sprintf("%s; free text: %s", note, resp.Text)
		}
		c.mustAppend(note, transcript.EntryReasoning)
		msg = fallbackMessage
	}
	if msg != "" {
		c.mustAppend(msg, transcript.EntryAssistant)
	}

	c.planner.AdvanceOneTurn()
	if c.tracker != nil {
		c.tracker.Advance()
	}
	c.logger.Info("turn completed", "turn", c.turn, "message_len", len(msg))
	return &Output{Message: msg}, nil
}

// terminate performs the TERMINATING phase: one best-effort artifact cleanup
// pass against the same completion machinery, then the absorbing transition to
// TERMINATED.
func (c *Conversation) terminate(ctx context.Context, forced bool) (*Output, error) {
	c.state = StateTerminating
	reason := "reasoning step ended the conversation"
	if forced {
		reason = "budget exhausted, conversation forced to end"
	}
	c.mustAppend(reason, transcript.EntrySystem)
	c.logger.Info("terminating conversation", "turn", c.turn, "forced", forced)

	req := c.buildRequest("", true)
	if resp, err := c.complete(ctx, req); err != nil {
		c.mustAppend(fmt.Sprintf("final artifact pass skipped: %v", err), transcript.EntryReasoning)
	} else {
		c.applyArtifactUpdates(parseDecision(resp).updates)
	}

	c.mustAppend(terminationNotice, transcript.EntryAssistant)
	c.state = StateTerminated
	return &Output{Message: terminationNotice, IsConversationOver: true}, nil
}

// applyArtifactUpdates applies each proposed field update independently; a
// rejected update is logged as a reasoning entry and does not affect the
// others.
func (c *Conversation) applyArtifactUpdates(updates []artifactUpdate) {
	for _, u := range updates {
		if err := c.store.ApplyUpdate(u.Field, u.Value); err != nil {
			c.logger.Warn("artifact update rejected", "turn", c.turn, "field", u.Field, "error", err)
			c.mustAppend(describeRejection("artifact update", err), transcript.EntryReasoning)
			continue
		}
		c.logger.Debug("artifact field updated", "turn", c.turn, "field", u.Field)
	}
}

// complete invokes the completion capability with bounded retries. A context
// cancellation is returned as-is so the caller observes its own cancellation;
// any other failure after the final attempt is wrapped as
// CompletionUnavailableError.
func (c *Conversation) complete(ctx context.Context, req model.Request) (*model.Response, error) {
	attempts := c.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		resp, err := c.model.Generate(ctx, req)
		if err == nil {
			tokens := 0
			if resp.Usage != nil {
				tokens = resp.Usage.TotalTokens
			}
			c.logger.Debug("completion succeeded",
				"model", c.model.Info().Name, "attempt", attempt,
				"duration", time.Since(start), "tokens", tokens)
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		c.logger.Warn("completion attempt failed", "attempt", attempt, "error", err)
	}
	return nil, &CompletionUnavailableError{Attempts: attempts, Err: lastErr}
}

// mustAppend appends a transcript entry with an engine-controlled type tag;
// the only append failure mode is a malformed tag, which cannot happen here.
func (c *Conversation) mustAppend(content string, typ transcript.EntryType) {
	if _, err := c.log.Append(content, typ); err != nil {
		c.logger.Error("transcript append failed", "error", err)
	}
}
