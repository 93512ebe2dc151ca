package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/guidedconv/artifact"
	"github.com/hupe1980/guidedconv/model"
	"github.com/hupe1980/guidedconv/resource"
	"github.com/hupe1980/guidedconv/transcript"
)

const noPoemRule = "DO NOT write the poem for the student."

func lessonDefinition(quantity float64, mode resource.Mode) Definition {
	return Definition{
		Schema: artifact.Schema{
			{Name: "student_poem", Type: artifact.FieldString, Description: "The student's poem"},
			{Name: "final_feedback", Type: artifact.FieldString, Description: "Final feedback"},
			{Name: "inappropriate_behavior", Type: artifact.FieldStringList, Description: "Flagged messages"},
		},
		Rules:      []string{noPoemRule},
		Flow:       "Explain, practice, collect a draft, give feedback.",
		Context:    "You are teaching a 4th grader to write an acrostic poem.",
		Constraint: &resource.Constraint{Quantity: quantity, Unit: resource.UnitTurns, Mode: mode},
	}
}

func call(name string, args map[string]any) model.ToolCall {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return model.ToolCall{ID: "tc", Name: name, Arguments: raw}
}

func sendMessage(text string) model.Response {
	return model.Response{ToolCalls: []model.ToolCall{
		call(toolSendMessage, map[string]any{"message": text}),
	}}
}

func newLesson(t *testing.T, m model.Model, quantity float64, mode resource.Mode) *Conversation {
	t.Helper()
	conv, err := NewConversation(lessonDefinition(quantity, mode), m)
	require.NoError(t, err)
	return conv
}

func TestOpeningMessage(t *testing.T) {
	mock := model.NewMockModel().Enqueue(sendMessage("Welcome! Today we write an acrostic poem."))
	conv := newLesson(t, mock, 10, resource.ModeExact)
	assert.Equal(t, StateInit, conv.State())

	out, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Welcome! Today we write an acrostic poem.", out.Message)
	assert.False(t, out.IsConversationOver)
	assert.Equal(t, StateActive, conv.State())

	remaining, ok := conv.Remaining()
	require.True(t, ok)
	assert.Equal(t, 9.0, remaining)
}

func TestArtifactUpdateVerbatim(t *testing.T) {
	draft := "Fun friends\nOutside games\nUnder sunny skies\nRhymes"
	mock := model.NewMockModel().
		Enqueue(sendMessage("Welcome!")).
		Enqueue(model.Response{ToolCalls: []model.ToolCall{
			call(toolUpdateArtifact, map[string]any{
				"updates": []map[string]any{{"field": "student_poem", "value": draft}},
			}),
			call(toolSendMessage, map[string]any{"message": "Nice start! One line seems to be missing."}),
		}})
	conv := newLesson(t, mock, 10, resource.ModeExact)

	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	out, err := conv.Step(context.Background(), "here is my draft: "+draft)
	require.NoError(t, err)
	assert.Equal(t, "Nice start! One line seems to be missing.", out.Message)

	v, ok := conv.Artifact().Get("student_poem")
	require.True(t, ok)
	got, _ := v.AsString()
	assert.Equal(t, draft, got)

	remaining, _ := conv.Remaining()
	assert.Equal(t, 8.0, remaining)
}

func TestRuleTextAppearsVerbatimInRequest(t *testing.T) {
	mock := model.NewMockModel().Enqueue(sendMessage("ok"))
	conv := newLesson(t, mock, 10, resource.ModeExact)

	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)

	req, ok := mock.LastRequest()
	require.True(t, ok)
	assert.Contains(t, req.Instructions, noPoemRule)
	assert.Contains(t, req.Instructions, "student_poem")
	assert.Contains(t, req.Instructions, artifact.Unanswered)
}

func TestAgendaReplanThroughDecision(t *testing.T) {
	mock := model.NewMockModel().
		Enqueue(sendMessage("Welcome!")).
		Enqueue(model.Response{ToolCalls: []model.ToolCall{
			call(toolUpdateAgenda, map[string]any{
				"items": []map[string]any{
					{"description": "explain the assignment", "turns_cost": 2},
					{"description": "work an example", "turns_cost": 2},
					{"description": "coach the draft", "turns_cost": 3},
					{"description": "final feedback", "turns_cost": 2},
				},
			}),
		}})
	conv := newLesson(t, mock, 10, resource.ModeExact)

	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	_, err = conv.Step(context.Background(), "sounds good")
	require.NoError(t, err)

	// The plan totaled 9 against the 9 turns remaining at decision time;
	// after this step both budget and agenda have shrunk by one in lockstep.
	remaining, _ := conv.Remaining()
	assert.Equal(t, 8.0, remaining)
	assert.Contains(t, conv.AgendaForPrompt(), "Total: 8 turns")
}

func TestOverBudgetReplanRetainsPriorAgenda(t *testing.T) {
	mock := model.NewMockModel().
		Enqueue(sendMessage("Welcome!")).
		Enqueue(model.Response{ToolCalls: []model.ToolCall{
			call(toolUpdateAgenda, map[string]any{
				"items": []map[string]any{{"description": "everything", "turns_cost": 10}},
			}),
		}})
	conv := newLesson(t, mock, 10, resource.ModeExact)

	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	_, err = conv.Step(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, "(no agenda planned)", conv.AgendaForPrompt())
	entry, ok := conv.Transcript().LastOfType(transcript.EntryReasoning)
	require.True(t, ok)
	assert.Contains(t, entry.Content, "agenda replan")
}

func TestRejectedArtifactUpdateDoesNotAbortStep(t *testing.T) {
	mock := model.NewMockModel().
		Enqueue(sendMessage("Welcome!")).
		Enqueue(model.Response{ToolCalls: []model.ToolCall{
			call(toolUpdateArtifact, map[string]any{
				"updates": []map[string]any{
					{"field": "inappropriate_behavior", "value": 42},
					{"field": "student_poem", "value": "a good draft"},
				},
			}),
			call(toolSendMessage, map[string]any{"message": "Noted!"}),
		}})
	conv := newLesson(t, mock, 10, resource.ModeExact)

	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	out, err := conv.Step(context.Background(), "here you go")
	require.NoError(t, err)
	assert.Equal(t, "Noted!", out.Message)

	// The type-mismatched update was rejected and logged; the valid one
	// landed.
	_, ok := conv.Artifact().Get("inappropriate_behavior")
	assert.False(t, ok)
	v, ok := conv.Artifact().Get("student_poem")
	require.True(t, ok)
	got, _ := v.AsString()
	assert.Equal(t, "a good draft", got)

	entry, ok := conv.Transcript().LastOfType(transcript.EntryReasoning)
	require.True(t, ok)
	assert.Contains(t, entry.Content, "artifact update")
}

func TestNoToolInvokedFallback(t *testing.T) {
	mock := model.NewMockModel().Enqueue(model.Response{Text: "I think we should keep going."})
	conv := newLesson(t, mock, 10, resource.ModeExact)

	out, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, fallbackMessage, out.Message)

	entry, ok := conv.Transcript().LastOfType(transcript.EntryReasoning)
	require.True(t, ok)
	assert.Contains(t, entry.Content, "no actionable decision")
}

func TestEndConversationDecision(t *testing.T) {
	mock := model.NewMockModel().
		Enqueue(sendMessage("Welcome!")).
		Enqueue(model.Response{ToolCalls: []model.ToolCall{
			call(toolEndConversation, nil),
		}}).
		// Terminal cleanup pass fills the feedback field.
		Enqueue(model.Response{ToolCalls: []model.ToolCall{
			call(toolUpdateArtifact, map[string]any{
				"updates": []map[string]any{{"field": "final_feedback", "value": "Great effort today."}},
			}),
		}})
	conv := newLesson(t, mock, 10, resource.ModeMaximum)

	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	out, err := conv.Step(context.Background(), "bye!")
	require.NoError(t, err)
	assert.True(t, out.IsConversationOver)
	assert.Equal(t, terminationNotice, out.Message)
	assert.Equal(t, StateTerminated, conv.State())

	v, ok := conv.Artifact().Get("final_feedback")
	require.True(t, ok)
	got, _ := v.AsString()
	assert.Equal(t, "Great effort today.", got)

	// The cleanup pass only offers the artifact tool.
	reqs := mock.Requests()
	require.Len(t, reqs, 3)
	require.Len(t, reqs[2].Tools, 1)
	assert.Equal(t, toolUpdateArtifact, reqs[2].Tools[0].Name)
}

func TestForcedTerminationOnExhaustedBudget(t *testing.T) {
	mock := model.NewMockModel().
		Enqueue(sendMessage("Welcome!")).
		Enqueue(sendMessage("Last turn!")).
		Enqueue(sendMessage("One more thing...")). // ignored: budget is spent
		Enqueue(model.Response{})                  // cleanup pass proposes nothing
	conv := newLesson(t, mock, 2, resource.ModeExact)

	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	_, err = conv.Step(context.Background(), "hi")
	require.NoError(t, err)
	remaining, _ := conv.Remaining()
	require.Equal(t, 0.0, remaining)

	out, err := conv.Step(context.Background(), "can we keep going?")
	require.NoError(t, err)
	assert.True(t, out.IsConversationOver)
	assert.Equal(t, StateTerminated, conv.State())
}

func TestTerminationIsAbsorbing(t *testing.T) {
	mock := model.NewMockModel().
		Enqueue(model.Response{ToolCalls: []model.ToolCall{call(toolEndConversation, nil)}}).
		Enqueue(model.Response{})
	conv := newLesson(t, mock, 10, resource.ModeMaximum)

	out, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	require.True(t, out.IsConversationOver)

	before := conv.Transcript().Len()
	_, err = conv.Step(context.Background(), "hello?")
	assert.ErrorIs(t, err, ErrConversationTerminated)
	assert.Equal(t, before, conv.Transcript().Len())
}

func TestCompletionUnavailableLeavesStateUntouched(t *testing.T) {
	boom := errors.New("rate limited")
	mock := model.NewMockModel().
		EnqueueError(boom).EnqueueError(boom).EnqueueError(boom).
		Enqueue(sendMessage("Welcome!"))
	conv := newLesson(t, mock, 10, resource.ModeExact)

	_, err := conv.Step(context.Background(), "")
	var unavailable *CompletionUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.ErrorIs(t, err, boom)

	// Pre-step consistent: nothing committed, budget untouched, still INIT.
	assert.Equal(t, StateInit, conv.State())
	assert.Equal(t, 0, conv.Transcript().Len())
	remaining, _ := conv.Remaining()
	assert.Equal(t, 10.0, remaining)

	// The whole turn can be retried.
	out, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Welcome!", out.Message)
}

func TestCancellationLeavesStateUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := model.NewMockModel().Enqueue(sendMessage("never delivered"))
	conv := newLesson(t, mock, 10, resource.ModeExact)

	_, err := conv.Step(ctx, "hello")
	require.Error(t, err)
	assert.Equal(t, StateInit, conv.State())
	assert.Equal(t, 0, conv.Transcript().Len())
}

// modelFunc adapts a function to model.Model for reentrancy tests.
type modelFunc func(ctx context.Context, req model.Request) (*model.Response, error)

func (f modelFunc) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	return f(ctx, req)
}

func (modelFunc) Info() model.Info { return model.Info{Name: "func", Provider: "test"} }

func TestSessionBusy(t *testing.T) {
	var conv *Conversation
	var innerErr error
	m := modelFunc(func(ctx context.Context, req model.Request) (*model.Response, error) {
		_, innerErr = conv.Step(ctx, "reentrant")
		return &model.Response{ToolCalls: []model.ToolCall{
			call(toolSendMessage, map[string]any{"message": "ok"}),
		}}, nil
	})
	conv = newLesson(t, m, 10, resource.ModeExact)

	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)
	assert.ErrorIs(t, innerErr, ErrSessionBusy)
}

func TestRenderingIdempotent(t *testing.T) {
	mock := model.NewMockModel().Enqueue(sendMessage("hi"))
	conv := newLesson(t, mock, 10, resource.ModeExact)
	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, conv.AgendaForPrompt(), conv.AgendaForPrompt())
	assert.Equal(t, conv.ArtifactForPrompt(), conv.ArtifactForPrompt())
}

func TestUnconstrainedConversation(t *testing.T) {
	def := lessonDefinition(10, resource.ModeExact)
	def.Constraint = nil
	mock := model.NewMockModel().Enqueue(sendMessage("hi"))
	conv, err := NewConversation(def, mock)
	require.NoError(t, err)

	_, err = conv.Step(context.Background(), "")
	require.NoError(t, err)
	_, ok := conv.Remaining()
	assert.False(t, ok)
}

func TestNewConversationValidation(t *testing.T) {
	_, err := NewConversation(lessonDefinition(10, resource.ModeExact), nil)
	assert.Error(t, err)

	def := lessonDefinition(10, resource.ModeExact)
	def.Schema = nil
	_, err = NewConversation(def, model.NewMockModel())
	assert.Error(t, err)

	def = lessonDefinition(10, resource.ModeExact)
	def.Constraint = &resource.Constraint{Quantity: -1, Unit: resource.UnitTurns, Mode: resource.ModeExact}
	_, err = NewConversation(def, model.NewMockModel())
	assert.Error(t, err)
}

func TestDecisionParserRejections(t *testing.T) {
	resp := &model.Response{ToolCalls: []model.ToolCall{
		{Name: "mystery_tool", Arguments: []byte(`{}`)},
		{Name: toolSendMessage, Arguments: []byte(`{"message": "first"}`)},
		{Name: toolEndConversation, Arguments: []byte(`{}`)},
		{Name: toolUpdateArtifact, Arguments: []byte(`not json`)},
	}}
	d := parseDecision(resp)
	assert.True(t, d.hasMessage)
	assert.Equal(t, "first", d.message)
	assert.False(t, d.end) // second terminal action rejected
	assert.Len(t, d.rejected, 3)
}

func TestDecisionToolsDeclareAllShapes(t *testing.T) {
	tools := decisionTools("turns")
	names := make([]string, len(tools))
	for i, td := range tools {
		names[i] = td.Name
	}
	assert.ElementsMatch(t, names, []string{
		toolUpdateArtifact, toolUpdateAgenda, toolSendMessage, toolEndConversation,
	})
	for _, td := range tools {
		assert.NotEmpty(t, td.Description, td.Name)
		assert.Equal(t, "object", td.Parameters["type"], td.Name)
	}
}

func TestTerminalPromptMentionsCleanup(t *testing.T) {
	mock := model.NewMockModel().
		Enqueue(model.Response{ToolCalls: []model.ToolCall{call(toolEndConversation, nil)}}).
		Enqueue(model.Response{})
	conv := newLesson(t, mock, 10, resource.ModeMaximum)

	_, err := conv.Step(context.Background(), "")
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[1].Instructions, "conversation is ending")
}

func TestStepOutputErrorsAreTyped(t *testing.T) {
	err := &CompletionUnavailableError{Attempts: 3, Err: fmt.Errorf("timeout")}
	assert.Contains(t, err.Error(), "3 attempts")
	assert.Contains(t, err.Error(), "timeout")
}
