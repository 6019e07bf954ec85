// Package app provides the notice board: the parent view that decides which
// error notices are on screen, routes keys to the focused one and tears
// notices down when they are dismissed or replaced.
package app

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-station/cortex/internal/config"
	"github.com/nexus-station/cortex/internal/errors"
	"github.com/nexus-station/cortex/internal/logging"
	"github.com/nexus-station/cortex/internal/ui/components"
)

// ShowNoticeMsg asks the board to show d in slot, replacing what is there.
type ShowNoticeMsg struct {
	Slot        string
	Description errors.Description
	Persistent  bool
}

// ClearNoticeMsg asks the board to remove the notice in slot.
type ClearNoticeMsg struct {
	Slot string
}

type boardKeys struct {
	Next key.Binding
	Prev key.Binding
	Quit key.Binding
}

func (k boardKeys) ShortHelp() []key.Binding  { return []key.Binding{k.Next, k.Quit} }
func (k boardKeys) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Next, k.Prev, k.Quit}} }

var emptyStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#6C7086")).
	Italic(true)

// NoticeBoard hosts zero or more notices keyed by slot, e.g. a page-level
// load failure and a failed action inside a modal.
type NoticeBoard struct {
	cfg    *config.Config
	logger *logging.Logger
	opts   []components.AlertOption

	notices map[string]*components.ErrorAlert
	order   []string
	focus   int

	width  int
	height int

	keys          boardKeys
	help          help.Model
	quitWhenEmpty bool
}

// BoardOption configures a NoticeBoard.
type BoardOption func(*NoticeBoard)

// WithAlertOptions appends options applied to every notice the board creates.
func WithAlertOptions(opts ...components.AlertOption) BoardOption {
	return func(b *NoticeBoard) { b.opts = append(b.opts, opts...) }
}

// QuitWhenEmpty makes the board end the program once the last notice goes.
func QuitWhenEmpty() BoardOption {
	return func(b *NoticeBoard) { b.quitWhenEmpty = true }
}

// NewNoticeBoard creates an empty board.
func NewNoticeBoard(cfg *config.Config, logger *logging.Logger, opts ...BoardOption) *NoticeBoard {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.GetUILogger()
	}

	b := &NoticeBoard{
		cfg:     cfg,
		logger:  logger,
		notices: make(map[string]*components.ErrorAlert),
		width:   cfg.Width,
		keys: boardKeys{
			Next: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next notice")),
			Prev: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous notice")),
			Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		},
		help: help.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Show presents d in slot with a dismiss control. Any notice already in the
// slot is closed first.
func (b *NoticeBoard) Show(slot string, d errors.Description) *components.ErrorAlert {
	return b.show(slot, d, false)
}

// ShowPersistent presents d in slot without a dismiss control.
func (b *NoticeBoard) ShowPersistent(slot string, d errors.Description) *components.ErrorAlert {
	return b.show(slot, d, true)
}

func (b *NoticeBoard) show(slot string, d errors.Description, persistent bool) *components.ErrorAlert {
	if old, ok := b.notices[slot]; ok {
		old.Close()
	} else {
		b.order = append(b.order, slot)
	}

	opts := []components.AlertOption{
		components.WithCopyFeedback(b.cfg.CopyFeedback()),
		components.WithWidth(b.width),
		components.WithLogger(b.logger),
	}
	var alert *components.ErrorAlert
	if !persistent {
		opts = append(opts, components.WithOnDismiss(func() {
			// Only the instance currently in the slot may clear it.
			if b.notices[slot] == alert {
				b.Remove(slot)
			}
		}))
	}
	opts = append(opts, b.opts...)

	alert = components.NewErrorAlert(d, opts...)
	b.notices[slot] = alert
	b.focus = b.indexOf(slot)
	b.syncFocus()

	b.logger.LogNotice(alert.ID(), alert.Category().String(), d.Status, d.TraceID)
	return alert
}

// Remove closes and drops the notice in slot, if any.
func (b *NoticeBoard) Remove(slot string) {
	alert, ok := b.notices[slot]
	if !ok {
		return
	}
	alert.Close()
	delete(b.notices, slot)

	i := b.indexOf(slot)
	b.order = append(b.order[:i], b.order[i+1:]...)
	if b.focus >= len(b.order) {
		b.focus = len(b.order) - 1
	}
	if b.focus < 0 {
		b.focus = 0
	}
	b.syncFocus()

	b.logger.Debug("Notice removed", "slot", slot, "notice_id", alert.ID())
}

// Notice returns the notice in slot.
func (b *NoticeBoard) Notice(slot string) (*components.ErrorAlert, bool) {
	alert, ok := b.notices[slot]
	return alert, ok
}

// Len returns the number of notices on the board.
func (b *NoticeBoard) Len() int { return len(b.order) }

// Focused returns the slot that receives keys, or "" when the board is empty.
func (b *NoticeBoard) Focused() string {
	if len(b.order) == 0 {
		return ""
	}
	return b.order[b.focus]
}

// Close tears down every notice.
func (b *NoticeBoard) Close() {
	for _, slot := range append([]string(nil), b.order...) {
		b.Remove(slot)
	}
}

// Init implements tea.Model.
func (b *NoticeBoard) Init() tea.Cmd {
	return nil
}

// Update routes keys to the focused notice and every other message to all
// notices; each notice ignores messages addressed to another instance.
func (b *NoticeBoard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, b.keys.Quit):
			b.Close()
			return b, tea.Quit
		case key.Matches(msg, b.keys.Next):
			b.cycleFocus(1)
		case key.Matches(msg, b.keys.Prev):
			b.cycleFocus(-1)
		default:
			if slot := b.Focused(); slot != "" {
				_, cmd := b.notices[slot].Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.help.Width = msg.Width
		for _, alert := range b.notices {
			alert.SetWidth(msg.Width)
		}

	case ShowNoticeMsg:
		b.show(msg.Slot, msg.Description, msg.Persistent)

	case ClearNoticeMsg:
		b.Remove(msg.Slot)

	default:
		for _, slot := range append([]string(nil), b.order...) {
			if alert, ok := b.notices[slot]; ok {
				_, cmd := alert.Update(msg)
				cmds = append(cmds, cmd)
			}
		}
	}

	if b.quitWhenEmpty && len(b.order) == 0 {
		cmds = append(cmds, tea.Quit)
	}

	return b, tea.Batch(cmds...)
}

// View stacks notices in the order they were first shown.
func (b *NoticeBoard) View() string {
	if len(b.order) == 0 {
		return emptyStyle.Render("No active notices.") + "\n" + b.help.ShortHelpView(b.keys.ShortHelp())
	}

	views := make([]string, 0, len(b.order)+1)
	for _, slot := range b.order {
		views = append(views, b.notices[slot].View())
	}
	views = append(views, b.help.ShortHelpView(b.keys.ShortHelp()))
	return lipgloss.JoinVertical(lipgloss.Left, views...)
}

func (b *NoticeBoard) cycleFocus(delta int) {
	if len(b.order) == 0 {
		return
	}
	from := b.Focused()
	b.focus = (b.focus + delta + len(b.order)) % len(b.order)
	b.syncFocus()
	b.logger.LogUIStateChange(from, b.Focused(), "focus cycled")
}

func (b *NoticeBoard) syncFocus() {
	for i, slot := range b.order {
		b.notices[slot].SetFocused(i == b.focus)
	}
}

func (b *NoticeBoard) indexOf(slot string) int {
	for i, s := range b.order {
		if s == slot {
			return i
		}
	}
	return -1
}
