package components

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/nexus-station/cortex/internal/errors"
	"github.com/nexus-station/cortex/internal/logging"
)

type fakeTimer struct {
	c       chan time.Time
	d       time.Duration
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (t *fakeTimer) fire() { t.c <- time.Now() }

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{c: make(chan time.Time, 1), d: d}
	c.timers = append(c.timers, t)
	return t
}

// stubClipboard swaps the clipboard writer for the duration of the test.
func stubClipboard(t *testing.T, fn func(string) error) {
	t.Helper()
	old := clipboardWriteAll
	clipboardWriteAll = fn
	t.Cleanup(func() { clipboardWriteAll = old })
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestAlert(t *testing.T, d errors.Description, opts ...AlertOption) *ErrorAlert {
	t.Helper()
	opts = append([]AlertOption{WithLogger(logging.NewFromZap(zaptest.NewLogger(t)))}, opts...)
	return NewErrorAlert(d, opts...)
}

// copySucceeded drives a copy activation through to the copied state and
// returns the pending revert command.
func copySucceeded(t *testing.T, a *ErrorAlert) tea.Cmd {
	t.Helper()
	_, cmd := a.Update(keyRunes("c"))
	require.NotNil(t, cmd, "copy key should start a clipboard write")
	msg := cmd()
	result, ok := msg.(CopyResultMsg)
	require.True(t, ok, "expected CopyResultMsg, got %T", msg)
	_, revert := a.Update(result)
	return revert
}

func TestStylesFor(t *testing.T) {
	user := StylesFor(errors.UserError)
	system := StylesFor(errors.SystemError)

	assert.Equal(t, "amber", user.Palette)
	assert.Equal(t, IconCircleAlert, user.Icon)
	assert.Equal(t, "red", system.Palette)
	assert.Equal(t, IconTriangleAlert, system.Icon)

	if diff := cmp.Diff(system, StylesFor(errors.Category(42))); diff != "" {
		t.Errorf("unknown category should fall back to the system profile (-want +got):\n%s", diff)
	}

	// Returned profiles are copies; editing one must not leak into the table.
	user.Palette = "green"
	assert.Equal(t, "amber", StylesFor(errors.UserError).Palette)
}

func TestErrorAlert_UserErrorHidesTrace(t *testing.T) {
	a := newTestAlert(t, errors.Description{
		Message: "Invalid section",
		TraceID: "abc-123",
		Status:  409,
	})

	assert.Equal(t, errors.UserError, a.Category())
	assert.Equal(t, "amber", a.Profile().Palette)
	assert.False(t, a.ShowsTrace())
	assert.Nil(t, a.Copy())

	view := a.View()
	assert.Contains(t, view, "Invalid section")
	assert.NotContains(t, view, "Trace ID")
	assert.NotContains(t, view, "abc-123")
}

func TestErrorAlert_SystemErrorShowsTrace(t *testing.T) {
	a := newTestAlert(t, errors.Description{
		Message: "Upstream timeout",
		TraceID: "abc-123",
		Status:  503,
	})

	assert.Equal(t, errors.SystemError, a.Category())
	assert.Equal(t, "red", a.Profile().Palette)
	assert.Equal(t, IconTriangleAlert, a.Profile().Icon)
	assert.True(t, a.ShowsTrace())

	view := a.View()
	assert.Contains(t, view, "Upstream timeout")
	assert.Contains(t, view, "Trace ID:")
	assert.Contains(t, view, "abc-123")
	assert.Contains(t, view, copyGlyph)
	assert.Contains(t, view, "copy trace id")
}

func TestErrorAlert_SystemErrorWithoutTrace(t *testing.T) {
	a := newTestAlert(t, errors.Description{Message: "Crash"})

	assert.Equal(t, errors.SystemError, a.Category())
	assert.False(t, a.ShowsTrace())

	view := a.View()
	assert.Contains(t, view, "Crash")
	assert.NotContains(t, view, "Trace ID")
	assert.Nil(t, a.Copy())
}

func TestErrorAlert_CopyRevertsAfterFeedbackWindow(t *testing.T) {
	var written []string
	stubClipboard(t, func(s string) error {
		written = append(written, s)
		return nil
	})

	clock := &fakeClock{}
	a := newTestAlert(t,
		errors.Description{Message: "Upstream timeout", TraceID: "abc-123", Status: 503},
		WithClock(clock),
	)

	revert := copySucceeded(t, a)
	require.NotNil(t, revert)

	assert.Equal(t, []string{"abc-123"}, written)
	assert.True(t, a.Copied())
	assert.Contains(t, a.View(), checkGlyph+" copied")

	require.Len(t, clock.timers, 1)
	assert.Equal(t, 2000*time.Millisecond, clock.timers[0].d)

	clock.timers[0].fire()
	_, cmd := a.Update(revert())
	assert.Nil(t, cmd)
	assert.False(t, a.Copied())
	assert.NotContains(t, a.View(), "copied")
}

func TestErrorAlert_CopyFeedbackOption(t *testing.T) {
	stubClipboard(t, func(string) error { return nil })

	clock := &fakeClock{}
	a := newTestAlert(t,
		errors.Description{Message: "boom", TraceID: "t-1", Status: 500},
		WithClock(clock),
		WithCopyFeedback(500*time.Millisecond),
	)

	copySucceeded(t, a)
	require.Len(t, clock.timers, 1)
	assert.Equal(t, 500*time.Millisecond, clock.timers[0].d)
}

func TestErrorAlert_CopyFailureIsSilent(t *testing.T) {
	stubClipboard(t, func(string) error {
		return stderrors.New("clipboard unavailable")
	})

	clock := &fakeClock{}
	a := newTestAlert(t,
		errors.Description{Message: "Upstream timeout", TraceID: "abc-123", Status: 503},
		WithClock(clock),
	)
	before := a.View()

	revert := copySucceeded(t, a)

	assert.Nil(t, revert)
	assert.False(t, a.Copied())
	assert.Empty(t, clock.timers)
	assert.Equal(t, before, a.View())
	assert.NotContains(t, strings.ToLower(a.View()), "unavailable")
}

func TestErrorAlert_CloseCancelsPendingRevert(t *testing.T) {
	stubClipboard(t, func(string) error { return nil })

	clock := &fakeClock{}
	a := newTestAlert(t,
		errors.Description{Message: "boom", TraceID: "abc-123", Status: 502},
		WithClock(clock),
	)

	revert := copySucceeded(t, a)
	require.NotNil(t, revert)

	a.Close()
	assert.True(t, a.Closed())
	assert.True(t, clock.timers[0].stopped)
	assert.Nil(t, revert(), "cancelled revert should resolve without a message")

	// A revert that slipped through must not touch a closed notice.
	_, cmd := a.Update(copyRevertMsg{alertID: a.ID(), generation: 1})
	assert.Nil(t, cmd)
	assert.True(t, a.Copied())

	// Closing twice is harmless.
	assert.NotPanics(t, a.Close)
}

func TestErrorAlert_CloseReleasesRevertGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	stubClipboard(t, func(string) error { return nil })

	a := newTestAlert(t, errors.Description{Message: "boom", TraceID: "abc-123"})
	revert := copySucceeded(t, a)
	require.NotNil(t, revert)

	result := make(chan tea.Msg, 1)
	go func() { result <- revert() }()

	a.Close()

	select {
	case msg := <-result:
		assert.Nil(t, msg)
	case <-time.After(time.Second):
		t.Fatal("revert command did not return after Close")
	}
}

func TestErrorAlert_RepeatedCopyRestartsWindow(t *testing.T) {
	stubClipboard(t, func(string) error { return nil })

	clock := &fakeClock{}
	a := newTestAlert(t,
		errors.Description{Message: "boom", TraceID: "abc-123", Status: 500},
		WithClock(clock),
	)

	first := copySucceeded(t, a)
	second := copySucceeded(t, a)

	require.Len(t, clock.timers, 2)
	assert.True(t, clock.timers[0].stopped)
	assert.Nil(t, first())

	// A stale revert from the first window is ignored.
	_, _ = a.Update(copyRevertMsg{alertID: a.ID(), generation: 1})
	assert.True(t, a.Copied())

	clock.timers[1].fire()
	_, _ = a.Update(second())
	assert.False(t, a.Copied())
}

func TestErrorAlert_DismissControl(t *testing.T) {
	t.Run("absent without callback", func(t *testing.T) {
		a := newTestAlert(t, errors.Description{Message: "Invalid section", Status: 400})

		assert.False(t, a.Dismissible())
		view := a.View()
		assert.NotContains(t, view, dismissGlyph)
		assert.NotContains(t, view, "dismiss")

		assert.NotPanics(t, func() {
			a.Update(keyRunes("x"))
			a.Dismiss()
		})
	})

	t.Run("one call per activation", func(t *testing.T) {
		calls := 0
		a := newTestAlert(t,
			errors.Description{Message: "Upstream timeout", TraceID: "abc-123", Status: 503},
			WithOnDismiss(func() { calls++ }),
		)

		assert.True(t, a.Dismissible())
		view := a.View()
		assert.Contains(t, view, dismissGlyph)
		assert.Contains(t, view, "dismiss")

		_, cmd := a.Update(keyRunes("x"))
		assert.Nil(t, cmd)
		assert.Equal(t, 1, calls)

		a.Update(tea.KeyMsg{Type: tea.KeyEsc})
		assert.Equal(t, 2, calls)

		a.Dismiss()
		assert.Equal(t, 3, calls)

		assert.False(t, a.Closed())
		assert.False(t, a.Copied())
	})
}

func TestErrorAlert_IgnoresOtherNoticesMessages(t *testing.T) {
	stubClipboard(t, func(string) error { return nil })

	d := errors.Description{Message: "boom", TraceID: "abc-123", Status: 500}
	a := newTestAlert(t, d, WithClock(&fakeClock{}))
	b := newTestAlert(t, d, WithClock(&fakeClock{}))
	require.NotEqual(t, a.ID(), b.ID())

	copySucceeded(t, a)
	_, cmd := b.Update(CopyResultMsg{AlertID: a.ID()})

	assert.Nil(t, cmd)
	assert.True(t, a.Copied())
	assert.False(t, b.Copied())
}

func TestErrorAlert_DoesNotModifyDescription(t *testing.T) {
	stubClipboard(t, func(string) error { return nil })

	d := errors.Description{Message: "boom", TraceID: "abc-123", Status: 500}
	a := newTestAlert(t, d, WithClock(&fakeClock{}))

	copySucceeded(t, a)
	_ = a.View()

	if diff := cmp.Diff(d, a.Description()); diff != "" {
		t.Errorf("description changed (-want +got):\n%s", diff)
	}
}
