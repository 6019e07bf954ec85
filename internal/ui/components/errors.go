// Package components provides shared, reusable interface elements for the
// Cortex console. This file implements the error notice: a dismissible,
// category-styled box that shows a failure message and, for system errors,
// the trace ID with a best-effort copy control.
package components

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/nexus-station/cortex/internal/errors"
	"github.com/nexus-station/cortex/internal/logging"
)

// DefaultCopyFeedback is how long the copied checkmark stays up.
const DefaultCopyFeedback = 2000 * time.Millisecond

const defaultNoticeWidth = 80

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// Timer is a stoppable one-shot timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock creates the timer behind the copied-state revert.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) NewTimer(d time.Duration) Timer { return realTimer{t: time.NewTimer(d)} }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// CopyResultMsg reports the outcome of a clipboard write for one notice.
type CopyResultMsg struct {
	AlertID string
	Err     error
}

// copyRevertMsg ends the copied window that opened at generation.
type copyRevertMsg struct {
	alertID    string
	generation int
}

type copyState int

const (
	copyIdle copyState = iota
	copyCopied
)

func (s copyState) String() string {
	if s == copyCopied {
		return "copied"
	}
	return "idle"
}

// pendingRevert is a scheduled return to copyIdle.
type pendingRevert struct {
	timer Timer
	stop  chan struct{}
}

// AlertOption configures an ErrorAlert during construction.
type AlertOption func(*ErrorAlert)

// WithOnDismiss supplies the dismiss callback and enables the dismiss control.
func WithOnDismiss(fn func()) AlertOption {
	return func(a *ErrorAlert) { a.onDismiss = fn }
}

// WithCopyFeedback overrides how long the copied state lasts.
func WithCopyFeedback(d time.Duration) AlertOption {
	return func(a *ErrorAlert) {
		if d > 0 {
			a.feedback = d
		}
	}
}

// WithWidth sets the rendering width in cells.
func WithWidth(width int) AlertOption {
	return func(a *ErrorAlert) { a.SetWidth(width) }
}

// WithClock replaces the timer source.
func WithClock(c Clock) AlertOption {
	return func(a *ErrorAlert) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithLogger sets the notice's logger.
func WithLogger(l *logging.Logger) AlertOption {
	return func(a *ErrorAlert) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithKeyMap replaces the default key bindings.
func WithKeyMap(k KeyMap) AlertOption {
	return func(a *ErrorAlert) { a.keys = k }
}

// ErrorAlert presents one error description. The only mutable state is the
// copy indicator and its revert timer; each instance owns its own.
type ErrorAlert struct {
	id        string
	desc      errors.Description
	category  errors.Category
	profile   StyleProfile
	onDismiss func()

	feedback time.Duration
	width    int
	focused  bool
	clock    Clock
	logger   *logging.Logger
	keys     KeyMap
	help     help.Model

	state      copyState
	generation int
	pending    *pendingRevert
	closed     bool
}

// NewErrorAlert classifies d and prepares a notice for it.
func NewErrorAlert(d errors.Description, opts ...AlertOption) *ErrorAlert {
	category := errors.Classify(d)
	a := &ErrorAlert{
		id:       uuid.NewString(),
		desc:     d,
		category: category,
		profile:  StylesFor(category),
		feedback: DefaultCopyFeedback,
		width:    defaultNoticeWidth,
		clock:    realClock{},
		logger:   logging.GetUILogger(),
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.keys.Copy.SetEnabled(a.ShowsTrace())
	a.keys.Dismiss.SetEnabled(a.Dismissible())

	return a
}

// ID returns the instance identifier used to address messages.
func (a *ErrorAlert) ID() string { return a.id }

// Description returns the presented description.
func (a *ErrorAlert) Description() errors.Description { return a.desc }

// Category returns the derived category.
func (a *ErrorAlert) Category() errors.Category { return a.category }

// Profile returns the style profile in use.
func (a *ErrorAlert) Profile() StyleProfile { return a.profile }

// Copied reports whether the copied checkmark is showing.
func (a *ErrorAlert) Copied() bool { return a.state == copyCopied }

// Closed reports whether Close has been called.
func (a *ErrorAlert) Closed() bool { return a.closed }

// ShowsTrace reports whether the trace row is rendered: system errors with a
// trace ID only. User errors explain themselves.
func (a *ErrorAlert) ShowsTrace() bool {
	return a.category == errors.SystemError && a.desc.HasTraceID()
}

// Dismissible reports whether a dismiss control is rendered.
func (a *ErrorAlert) Dismissible() bool { return a.onDismiss != nil }

// SetWidth sets the rendering width.
func (a *ErrorAlert) SetWidth(width int) {
	if width > 0 {
		a.width = width
		a.help.Width = width
	}
}

// SetFocused marks the notice as the one receiving keys.
func (a *ErrorAlert) SetFocused(focused bool) { a.focused = focused }

// Init implements the Bubble Tea contract.
func (a *ErrorAlert) Init() tea.Cmd { return nil }

// Update handles keys, clipboard results and the revert timer.
func (a *ErrorAlert) Update(msg tea.Msg) (*ErrorAlert, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Copy):
			return a, a.Copy()
		case key.Matches(msg, a.keys.Dismiss):
			a.Dismiss()
		}

	case tea.WindowSizeMsg:
		a.SetWidth(msg.Width)

	case CopyResultMsg:
		if msg.AlertID != a.id || a.closed {
			return a, nil
		}
		if msg.Err != nil {
			// Best effort: the trace ID text stays selectable in the terminal.
			a.logger.Debug("Clipboard write failed",
				"notice_id", a.id,
				"error", msg.Err.Error())
			return a, nil
		}
		return a, a.enterCopied()

	case copyRevertMsg:
		if msg.alertID != a.id || a.closed || msg.generation != a.generation {
			return a, nil
		}
		a.pending = nil
		a.setState(copyIdle, "feedback window elapsed")
	}

	return a, nil
}

// Copy starts a clipboard write of the trace ID. It returns nil when the
// trace row is hidden or the notice is closed.
func (a *ErrorAlert) Copy() tea.Cmd {
	if a.closed || !a.ShowsTrace() {
		return nil
	}
	id, traceID := a.id, a.desc.TraceID
	return func() tea.Msg {
		return CopyResultMsg{AlertID: id, Err: clipboardWriteAll(traceID)}
	}
}

// Dismiss invokes the dismiss callback once. Whether the notice disappears is
// up to the caller.
func (a *ErrorAlert) Dismiss() {
	if a.closed || a.onDismiss == nil {
		return
	}
	a.onDismiss()
}

// Close tears the notice down and cancels any pending revert. Messages that
// arrive afterwards are ignored.
func (a *ErrorAlert) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.cancelPending()
}

// enterCopied shows the checkmark and schedules the revert, replacing any
// revert that is still pending.
func (a *ErrorAlert) enterCopied() tea.Cmd {
	a.cancelPending()
	a.generation++
	a.setState(copyCopied, "clipboard write succeeded")

	timer := a.clock.NewTimer(a.feedback)
	stop := make(chan struct{})
	a.pending = &pendingRevert{timer: timer, stop: stop}

	id, generation := a.id, a.generation
	return func() tea.Msg {
		select {
		case <-timer.C():
			return copyRevertMsg{alertID: id, generation: generation}
		case <-stop:
			return nil
		}
	}
}

func (a *ErrorAlert) cancelPending() {
	if a.pending == nil {
		return
	}
	a.pending.timer.Stop()
	close(a.pending.stop)
	a.pending = nil
}

func (a *ErrorAlert) setState(next copyState, reason string) {
	if a.state == next {
		return
	}
	a.logger.LogUIStateChange(a.state.String(), next.String(), reason)
	a.state = next
}

// View renders the notice.
func (a *ErrorAlert) View() string {
	styles := newNoticeStyles(a.profile, a.focused)

	// Border and padding take four cells.
	inner := a.width - 4
	if inner < 10 {
		inner = 10
	}

	text := a.profile.Glyph + " " + a.desc.Message
	var header string
	if a.Dismissible() {
		control := styles.control.Render("[" + dismissGlyph + "]")
		messageWidth := inner - lipgloss.Width(control) - 1
		header = lipgloss.JoinHorizontal(lipgloss.Top,
			styles.message.Width(messageWidth).Render(text),
			" ",
			control,
		)
	} else {
		header = styles.message.Width(inner).Render(text)
	}

	lines := []string{header}

	if a.ShowsTrace() {
		indicator := styles.control.Render(copyGlyph)
		if a.Copied() {
			indicator = styles.copied.Render(checkGlyph + " copied")
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Center,
			styles.muted.Render("Trace ID:"),
			" ",
			styles.code.Render(a.desc.TraceID),
			" ",
			indicator,
		))
	}

	if hints := a.help.ShortHelpView(a.keys.ShortHelp()); hints != "" {
		lines = append(lines, hints)
	}

	return styles.box.Width(a.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
