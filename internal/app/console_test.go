package app

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nexus-station/cortex/internal/config"
	"github.com/nexus-station/cortex/internal/errors"
	"github.com/nexus-station/cortex/internal/logging"
)

func newTestBoard(t *testing.T, opts ...BoardOption) *NoticeBoard {
	t.Helper()
	return NewNoticeBoard(config.Default(), logging.NewFromZap(zaptest.NewLogger(t)), opts...)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// isQuit reports whether running cmd yields tea.QuitMsg, looking inside batches.
func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	switch msg := cmd().(type) {
	case tea.QuitMsg:
		return true
	case tea.BatchMsg:
		for _, c := range msg {
			if isQuit(c) {
				return true
			}
		}
	}
	return false
}

func TestNoticeBoard_ShowAndDismiss(t *testing.T) {
	b := newTestBoard(t)

	page := b.Show("page", errors.Description{Message: "Failed to load crew data"})
	b.Show("modal", errors.Description{Message: "Section at capacity", Status: 409})

	require.Equal(t, 2, b.Len())
	assert.Equal(t, "modal", b.Focused())

	view := b.View()
	assert.Contains(t, view, "Failed to load crew data")
	assert.Contains(t, view, "Section at capacity")

	// Dismissing the focused notice removes only that one.
	b.Update(keyRunes("x"))
	assert.Equal(t, 1, b.Len())
	_, ok := b.Notice("modal")
	assert.False(t, ok)
	assert.Equal(t, "page", b.Focused())
	assert.False(t, page.Closed())
}

func TestNoticeBoard_ReplaceClosesPrevious(t *testing.T) {
	b := newTestBoard(t)

	first := b.Show("page", errors.Description{Message: "first"})
	second := b.Show("page", errors.Description{Message: "second"})

	assert.True(t, first.Closed())
	assert.False(t, second.Closed())
	assert.Equal(t, 1, b.Len())

	// The stale instance's callback must not clear its replacement.
	first.Dismiss()
	got, ok := b.Notice("page")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestNoticeBoard_PersistentHasNoDismiss(t *testing.T) {
	b := newTestBoard(t)
	alert := b.ShowPersistent("page", errors.Description{Message: "Crash"})

	assert.False(t, alert.Dismissible())
	b.Update(keyRunes("x"))
	assert.Equal(t, 1, b.Len())
}

func TestNoticeBoard_FocusCycles(t *testing.T) {
	b := newTestBoard(t)
	b.Show("a", errors.Description{Message: "a"})
	b.Show("b", errors.Description{Message: "b"})
	b.Show("c", errors.Description{Message: "c"})

	assert.Equal(t, "c", b.Focused())
	b.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "a", b.Focused())
	b.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "c", b.Focused())
}

func TestNoticeBoard_Messages(t *testing.T) {
	b := newTestBoard(t)

	b.Update(ShowNoticeMsg{Slot: "power", Description: errors.Description{Message: "Grid offline", TraceID: "t-1", Status: 503}})
	alert, ok := b.Notice("power")
	require.True(t, ok)
	assert.True(t, alert.ShowsTrace())

	b.Update(ClearNoticeMsg{Slot: "power"})
	assert.Equal(t, 0, b.Len())
	assert.True(t, alert.Closed())
	assert.Contains(t, b.View(), "No active notices.")
}

func TestNoticeBoard_QuitWhenEmpty(t *testing.T) {
	b := newTestBoard(t, QuitWhenEmpty())
	b.Show("page", errors.Description{Message: "boom"})

	_, cmd := b.Update(keyRunes("x"))
	assert.True(t, isQuit(cmd))
}

func TestNoticeBoard_QuitClosesNotices(t *testing.T) {
	b := newTestBoard(t)
	alert := b.Show("page", errors.Description{Message: "boom"})

	_, cmd := b.Update(keyRunes("q"))
	assert.True(t, isQuit(cmd))
	assert.True(t, alert.Closed())
	assert.Equal(t, 0, b.Len())
}

func TestNoticeBoard_WindowSize(t *testing.T) {
	b := newTestBoard(t)
	b.Show("page", errors.Description{Message: "boom"})

	_, cmd := b.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.Nil(t, cmd)
	assert.NotEmpty(t, b.View())
}
