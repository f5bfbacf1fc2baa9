package suggest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inkling "github.com/Paranoid-AF/inkling"
	"github.com/Paranoid-AF/inkling/complete"
	"github.com/Paranoid-AF/inkling/surface"
)

type completerFunc func(context.Context, *inkling.Request) (string, error)

func (f completerFunc) Complete(ctx context.Context, req *inkling.Request) (string, error) {
	return f(ctx, req)
}

func reply(text string) completerFunc {
	return func(context.Context, *inkling.Request) (string, error) { return text, nil }
}

var (
	ctrlDot = surface.KeyEvent{Key: ".", Ctrl: true}
	tab     = surface.KeyEvent{Key: "Tab"}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setup focuses a plain field holding text and activates suggestions on it.
func setup(t *testing.T, text string, c complete.Completer) (*surface.Document, *surface.PlainField, *Controller) {
	t.Helper()
	doc := surface.NewDocument()
	field := surface.NewPlainField(text)
	doc.Focus(field)
	ctrl, err := Activate(context.Background(), doc, Options{
		Completer:       c,
		CheckCredential: RequireKey("sk-test"),
		Logger:          quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	return doc, field, ctrl
}

func await(t *testing.T, ctrl *Controller) Settlement {
	t.Helper()
	select {
	case s := <-ctrl.Settlements():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
		return Settlement{}
	}
}

// suggestNow triggers a completion and applies its outcome.
func suggestNow(t *testing.T, doc *surface.Document, ctrl *Controller) {
	t.Helper()
	require.True(t, doc.DispatchKey(ctrlDot))
	require.True(t, ctrl.Settle(await(t, ctrl)))
}

func TestSuggestAndAccept(t *testing.T) {
	doc, field, ctrl := setup(t, "The quick brown ", reply("fox"))

	assert.True(t, doc.DispatchKey(ctrlDot), "trigger must be suppressed")
	assert.Equal(t, AwaitingResponse, ctrl.Phase())

	s := await(t, ctrl)
	assert.Equal(t, "The quick brown ", s.Ticket.Prompt)
	assert.Equal(t, 16, s.Ticket.Offset)
	require.True(t, ctrl.Settle(s))

	assert.Equal(t, "The quick brown fox", field.Text())
	assert.Equal(t, 19, field.Cursor())
	assert.Equal(t, Suggesting, ctrl.Phase())
	assert.Equal(t, State{
		PriorText:      "The quick brown ",
		ComposedText:   "The quick brown fox",
		SuggestionText: "fox",
		PromptText:     "The quick brown ",
		Offset:         16,
		Pending:        true,
	}, ctrl.State())

	assert.True(t, doc.DispatchKey(tab), "accept must be suppressed")
	assert.Equal(t, "The quick brown fox", field.Text())
	assert.Equal(t, State{}, ctrl.State())
	assert.Equal(t, Idle, ctrl.Phase())
}

func TestAcceptKeys(t *testing.T) {
	for _, key := range []string{"Tab", "Enter", "ArrowRight"} {
		t.Run(key, func(t *testing.T) {
			doc, field, ctrl := setup(t, "Hello ", reply("world"))
			suggestNow(t, doc, ctrl)

			assert.True(t, doc.DispatchKey(surface.KeyEvent{Key: key}))
			assert.Equal(t, "Hello world", field.Text())
			assert.False(t, ctrl.Pending())
		})
	}
}

func TestRejectRestoresPriorText(t *testing.T) {
	doc, field, ctrl := setup(t, "The quick brown ", reply("fox"))
	suggestNow(t, doc, ctrl)

	assert.True(t, doc.DispatchKey(surface.KeyEvent{Key: "q"}))
	assert.Equal(t, "The quick brown ", field.Text())
	assert.Equal(t, 16, field.Cursor())
	assert.Equal(t, State{}, ctrl.State())
}

func TestRejectMidText(t *testing.T) {
	doc, field, ctrl := setup(t, "héllo wörld", reply("✨ "))
	field.SetCursor(6)
	suggestNow(t, doc, ctrl)

	assert.Equal(t, "héllo ✨ wörld", field.Text())
	assert.Equal(t, 8, field.Cursor())

	assert.True(t, doc.DispatchKey(surface.KeyEvent{Key: "Backspace"}))
	assert.Equal(t, "héllo wörld", field.Text())
	assert.Equal(t, 6, field.Cursor())
}

func TestTextboxSplicesAcrossBlocks(t *testing.T) {
	doc := surface.NewDocument()
	box := surface.NewTextbox("Dear Sam,\nThanks for ")
	doc.Focus(box)
	ctrl, err := Activate(context.Background(), doc, Options{
		Completer:       reply("the gift"),
		CheckCredential: RequireKey("sk-test"),
		Logger:          quietLogger(),
	})
	require.NoError(t, err)
	defer ctrl.Close()

	suggestNow(t, doc, ctrl)
	assert.Equal(t, []string{"Dear Sam,", "Thanks for the gift"}, box.Blocks())

	doc.DispatchKey(surface.KeyEvent{Key: "x"})
	assert.Equal(t, []string{"Dear Sam,", "Thanks for "}, box.Blocks())
}

func TestPlainKeyWhileAwaitingIsNotIntercepted(t *testing.T) {
	release := make(chan struct{})
	doc, _, ctrl := setup(t, "Hi ", completerFunc(func(ctx context.Context, _ *inkling.Request) (string, error) {
		<-release
		return "there", nil
	}))

	require.True(t, doc.DispatchKey(ctrlDot))
	assert.False(t, doc.DispatchKey(surface.KeyEvent{Key: "a"}))
	assert.False(t, doc.DispatchKey(tab))
	assert.False(t, ctrl.Pending())
	assert.Equal(t, AwaitingResponse, ctrl.Phase())

	close(release)
	require.True(t, ctrl.Settle(await(t, ctrl)))
	assert.True(t, ctrl.Pending())
}

func TestPassThroughKeepsComposedText(t *testing.T) {
	doc, field, ctrl := setup(t, "Once upon ", reply("a time"))
	suggestNow(t, doc, ctrl)

	assert.False(t, doc.DispatchKey(surface.KeyEvent{Key: "z", Ctrl: true}), "undo must reach the host")
	assert.Equal(t, "Once upon a time", field.Text())
	assert.Equal(t, State{}, ctrl.State())

	// The next plain key is ordinary typing, not a rejection.
	assert.False(t, doc.DispatchKey(surface.KeyEvent{Key: "!"}))
	assert.Equal(t, "Once upon a time", field.Text())
}

func TestStaleResponseDiscarded(t *testing.T) {
	doc, field, ctrl := setup(t, "Roses are ", completerFunc(func(_ context.Context, req *inkling.Request) (string, error) {
		return fmt.Sprintf("reply-%d", req.RequestID), nil
	}))

	require.True(t, doc.DispatchKey(ctrlDot))
	require.True(t, doc.DispatchKey(ctrlDot))

	byID := map[int]Settlement{}
	for range 2 {
		s := await(t, ctrl)
		byID[s.Ticket.Seq] = s
	}
	require.Len(t, byID, 2)

	assert.False(t, ctrl.Settle(byID[1]), "superseded request must be dropped")
	assert.True(t, ctrl.Settle(byID[2]))
	assert.Equal(t, "Roses are reply-2", field.Text())

	// Late arrival after the latest one settled changes nothing.
	assert.False(t, ctrl.Settle(byID[1]))
	assert.Equal(t, "Roses are reply-2", field.Text())
}

func TestFailureReturnsToIdle(t *testing.T) {
	doc, field, ctrl := setup(t, "Hello ", completerFunc(func(context.Context, *inkling.Request) (string, error) {
		return "", &complete.APIError{StatusCode: 500, Body: "oops"}
	}))

	require.True(t, doc.DispatchKey(ctrlDot))
	require.True(t, ctrl.Settle(await(t, ctrl)))

	assert.Equal(t, Idle, ctrl.Phase())
	assert.Equal(t, "Hello ", field.Text())
	assert.Equal(t, State{}, ctrl.State())
}

func TestFailureKeepsPendingSuggestion(t *testing.T) {
	var calls atomic.Int32
	doc, field, ctrl := setup(t, "Hello ", completerFunc(func(context.Context, *inkling.Request) (string, error) {
		if calls.Add(1) == 1 {
			return "world", nil
		}
		return "", errors.New("connection refused")
	}))
	suggestNow(t, doc, ctrl)
	suggestNow(t, doc, ctrl)

	assert.Equal(t, Suggesting, ctrl.Phase())
	assert.Equal(t, "Hello world", field.Text())

	doc.DispatchKey(surface.KeyEvent{Key: "Escape"})
	assert.Equal(t, "Hello ", field.Text())
}

func TestTriggerWhileSuggesting(t *testing.T) {
	var calls atomic.Int32
	doc, field, ctrl := setup(t, "Hello ", completerFunc(func(context.Context, *inkling.Request) (string, error) {
		if calls.Add(1) == 1 {
			return "world", nil
		}
		return "!", nil
	}))
	suggestNow(t, doc, ctrl)
	suggestNow(t, doc, ctrl)

	assert.Equal(t, "Hello world!", field.Text())
	st := ctrl.State()
	assert.Equal(t, "Hello world", st.PriorText)
	assert.Equal(t, "Hello world", st.PromptText)
	assert.Equal(t, 11, st.Offset)

	doc.DispatchKey(surface.KeyEvent{Key: "Escape"})
	assert.Equal(t, "Hello world", field.Text())
}

func TestPlaceholderIsSpliced(t *testing.T) {
	doc, field, ctrl := setup(t, "Well ", reply(complete.Placeholder))
	suggestNow(t, doc, ctrl)
	assert.Equal(t, "Well ...", field.Text())
}

func TestTriggerOnEmptyTextDoesNothing(t *testing.T) {
	var calls atomic.Int32
	doc, field, ctrl := setup(t, "", completerFunc(func(context.Context, *inkling.Request) (string, error) {
		calls.Add(1)
		return "x", nil
	}))

	assert.True(t, doc.DispatchKey(ctrlDot))
	assert.Equal(t, Idle, ctrl.Phase())
	assert.Zero(t, calls.Load())
	assert.Equal(t, "", field.Text())
}

func TestSettleDropsSuggestionWhenTextCleared(t *testing.T) {
	release := make(chan struct{})
	doc, field, ctrl := setup(t, "draft", completerFunc(func(context.Context, *inkling.Request) (string, error) {
		<-release
		return " text", nil
	}))

	require.True(t, doc.DispatchKey(ctrlDot))
	field.SetText("")
	close(release)
	require.True(t, ctrl.Settle(await(t, ctrl)))

	assert.Equal(t, "", field.Text())
	assert.False(t, ctrl.Pending())
}

func TestSettleClampsOffsetToShorterText(t *testing.T) {
	release := make(chan struct{})
	doc, field, ctrl := setup(t, "abcdef", completerFunc(func(context.Context, *inkling.Request) (string, error) {
		<-release
		return "XY", nil
	}))

	require.True(t, doc.DispatchKey(ctrlDot))
	field.SetText("abc")
	close(release)
	require.True(t, ctrl.Settle(await(t, ctrl)))

	assert.Equal(t, "abcXY", field.Text())
	assert.Equal(t, 5, field.Cursor())
	assert.Equal(t, 3, ctrl.State().Offset)
}

func TestNonQualifyingTargetIgnored(t *testing.T) {
	var calls atomic.Int32
	doc, _, ctrl := setup(t, "Hi", completerFunc(func(context.Context, *inkling.Request) (string, error) {
		calls.Add(1)
		return "x", nil
	}))

	label := &surface.Static{Label: "Submit"}
	ev := ctrlDot
	ev.Target = label
	assert.False(t, doc.DispatchKey(ev))
	assert.Equal(t, Idle, ctrl.Phase())
	assert.Zero(t, calls.Load())
}

func TestCloseAbandonsInflightRequest(t *testing.T) {
	doc, _, ctrl := setup(t, "Hi", completerFunc(func(ctx context.Context, _ *inkling.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}))
	require.True(t, doc.DispatchKey(ctrlDot))
	ctrl.Close()

	select {
	case s := <-ctrl.Settlements():
		assert.ErrorIs(t, s.Err, context.Canceled)
	case <-time.After(100 * time.Millisecond):
	}
}

func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestEmptyTriggerLeavesStateMachineAlone(t *testing.T) {
	var buf bytes.Buffer
	doc := surface.NewDocument()
	doc.Focus(surface.NewPlainField(""))
	ctrl := NewController(context.Background(), doc, reply("x"), debugLogger(&buf))
	t.Cleanup(ctrl.Close)

	assert.True(t, ctrl.Apply(EventTrigger))
	assert.Equal(t, Idle, ctrl.Phase())
	assert.Contains(t, buf.String(), "nothing to complete")
	assert.NotContains(t, buf.String(), "transition")
}

func TestClearedTextSettlesAsFailure(t *testing.T) {
	var buf bytes.Buffer
	release := make(chan struct{})
	doc := surface.NewDocument()
	field := surface.NewPlainField("draft")
	doc.Focus(field)
	ctrl := NewController(context.Background(), doc, completerFunc(func(context.Context, *inkling.Request) (string, error) {
		<-release
		return " text", nil
	}), debugLogger(&buf))
	t.Cleanup(ctrl.Close)

	require.True(t, ctrl.Apply(EventTrigger))
	field.SetText("")
	close(release)
	require.True(t, ctrl.Settle(await(t, ctrl)))

	assert.Equal(t, Idle, ctrl.Phase())
	assert.Equal(t, "", field.Text())
	assert.Contains(t, buf.String(), "event=failure from=awaiting_response to=idle")
	assert.NotContains(t, buf.String(), "to=suggesting")
}
