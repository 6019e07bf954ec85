// Package components provides shared, reusable interface elements for the
// Cortex console. This file holds the per-category style profiles used by
// error notices.
package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-station/cortex/internal/errors"
)

// Icon names, matching the dashboard's icon set.
const (
	IconCircleAlert   = "circle-alert"
	IconTriangleAlert = "triangle-alert"
)

// Glyphs shared by every profile.
const (
	copyGlyph    = "⎘"
	checkGlyph   = "✓"
	dismissGlyph = "✕"
)

// checkColor is used for the copied confirmation regardless of category.
var checkColor = lipgloss.Color("#34D399")

// StyleProfile is the immutable set of colors and icon for one category.
type StyleProfile struct {
	Palette        string
	Icon           string
	Glyph          string
	Foreground     lipgloss.Color
	Muted          lipgloss.Color
	Border         lipgloss.Color
	CodeForeground lipgloss.Color
	CodeBackground lipgloss.Color
}

// profiles maps each category to its style profile.
var profiles = map[errors.Category]StyleProfile{
	errors.UserError: {
		Palette:        "amber",
		Icon:           IconCircleAlert,
		Glyph:          "(!)",
		Foreground:     lipgloss.Color("#FBBF24"),
		Muted:          lipgloss.Color("#B8912A"),
		Border:         lipgloss.Color("#F59E0B"),
		CodeForeground: lipgloss.Color("#FCD34D"),
		CodeBackground: lipgloss.Color("#3A2E0C"),
	},
	errors.SystemError: {
		Palette:        "red",
		Icon:           IconTriangleAlert,
		Glyph:          "/!\\",
		Foreground:     lipgloss.Color("#F87171"),
		Muted:          lipgloss.Color("#B45858"),
		Border:         lipgloss.Color("#EF4444"),
		CodeForeground: lipgloss.Color("#FCA5A5"),
		CodeBackground: lipgloss.Color("#3B1515"),
	},
}

// StylesFor returns the style profile for c. Unknown categories get the
// system profile.
func StylesFor(c errors.Category) StyleProfile {
	if p, ok := profiles[c]; ok {
		return p
	}
	return profiles[errors.SystemError]
}

// noticeStyles are the lipgloss styles derived from a profile.
type noticeStyles struct {
	box     lipgloss.Style
	message lipgloss.Style
	muted   lipgloss.Style
	code    lipgloss.Style
	control lipgloss.Style
	copied  lipgloss.Style
}

func newNoticeStyles(p StyleProfile, focused bool) noticeStyles {
	border := lipgloss.RoundedBorder()
	if focused {
		border = lipgloss.ThickBorder()
	}

	return noticeStyles{
		box: lipgloss.NewStyle().
			Border(border).
			BorderForeground(p.Border).
			Foreground(p.Foreground).
			Padding(0, 1),
		message: lipgloss.NewStyle().
			Foreground(p.Foreground),
		muted: lipgloss.NewStyle().
			Foreground(p.Muted),
		code: lipgloss.NewStyle().
			Foreground(p.CodeForeground).
			Background(p.CodeBackground).
			Padding(0, 1),
		control: lipgloss.NewStyle().
			Foreground(p.Foreground).
			Bold(true),
		copied: lipgloss.NewStyle().
			Foreground(checkColor),
	}
}
