package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ThemeEnv overrides theme detection.
const ThemeEnv = "ENCLAVE_THEME"

// TermTheme holds the colours of a terminal theme.
type TermTheme struct {
	Name string

	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Dim       lipgloss.Color

	Border       lipgloss.Color
	ActiveBorder lipgloss.Color
}

// DarkTheme is the default theme.
var DarkTheme = TermTheme{
	Name:         "dark",
	Accent:       lipgloss.Color("#38bdf8"),
	Success:      lipgloss.Color("#22c55e"),
	Warning:      lipgloss.Color("#eab308"),
	Error:        lipgloss.Color("#ef4444"),
	Primary:      lipgloss.Color("#e0e0e8"),
	Secondary:    lipgloss.Color("#888888"),
	Dim:          lipgloss.Color("#5a5a70"),
	Border:       lipgloss.Color("#2a2a3a"),
	ActiveBorder: lipgloss.Color("#38bdf8"),
}

// LightTheme is used on light backgrounds.
var LightTheme = TermTheme{
	Name:         "light",
	Accent:       lipgloss.Color("#0369a1"),
	Success:      lipgloss.Color("#15803d"),
	Warning:      lipgloss.Color("#a16207"),
	Error:        lipgloss.Color("#b91c1c"),
	Primary:      lipgloss.Color("#0f172a"),
	Secondary:    lipgloss.Color("#374151"),
	Dim:          lipgloss.Color("#4b5563"),
	Border:       lipgloss.Color("#d1d5db"),
	ActiveBorder: lipgloss.Color("#0369a1"),
}

// DetectTheme picks a theme from name, then ENCLAVE_THEME, then the
// COLORFGBG hint. It falls back to DarkTheme.
func DetectTheme(name string) TermTheme {
	if t, ok := themeByName(name); ok {
		return t
	}
	if t, ok := themeByName(os.Getenv(ThemeEnv)); ok {
		return t
	}
	// COLORFGBG is "fg;bg"; 7 and 15 are light backgrounds.
	if v := os.Getenv("COLORFGBG"); v != "" {
		parts := strings.Split(v, ";")
		if bg := parts[len(parts)-1]; bg == "7" || bg == "15" {
			return LightTheme
		}
	}
	return DarkTheme
}

func themeByName(name string) (TermTheme, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dark":
		return DarkTheme, true
	case "light":
		return LightTheme, true
	}
	return TermTheme{}, false
}

// StyleSet holds the lipgloss styles derived from a theme.
type StyleSet struct {
	Theme TermTheme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	AccentTxt  lipgloss.Style
	DimTxt     lipgloss.Style
	SuccessTxt lipgloss.Style
	WarningTxt lipgloss.Style
	ErrorTxt   lipgloss.Style

	ActiveBorder   lipgloss.Style
	InactiveBorder lipgloss.Style

	SelectedItem   lipgloss.Style
	UnselectedItem lipgloss.Style
	Cursor         lipgloss.Style

	KbdKey  lipgloss.Style
	KbdDesc lipgloss.Style

	StepBadgeComplete lipgloss.Style
	StepBadgeActive   lipgloss.Style
	StepBadgePending  lipgloss.Style
}

// NewStyleSet builds the styles for theme.
func NewStyleSet(theme TermTheme) *StyleSet {
	badge := lipgloss.NewStyle().Padding(0, 1)
	return &StyleSet{
		Theme: theme,

		Title:      lipgloss.NewStyle().Foreground(theme.Accent).Bold(true),
		Subtitle:   lipgloss.NewStyle().Foreground(theme.Secondary),
		AccentTxt:  lipgloss.NewStyle().Foreground(theme.Accent),
		DimTxt:     lipgloss.NewStyle().Foreground(theme.Dim),
		SuccessTxt: lipgloss.NewStyle().Foreground(theme.Success),
		WarningTxt: lipgloss.NewStyle().Foreground(theme.Warning),
		ErrorTxt:   lipgloss.NewStyle().Foreground(theme.Error),

		ActiveBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.ActiveBorder),
		InactiveBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		SelectedItem:   lipgloss.NewStyle().Foreground(theme.Primary).Bold(true),
		UnselectedItem: lipgloss.NewStyle().Foreground(theme.Secondary),
		Cursor:         lipgloss.NewStyle().Foreground(theme.Accent),

		KbdKey:  lipgloss.NewStyle().Foreground(theme.Primary).Background(theme.Dim).Padding(0, 1),
		KbdDesc: lipgloss.NewStyle().Foreground(theme.Dim),

		StepBadgeComplete: badge.Background(theme.Success).Foreground(lipgloss.Color("#ffffff")).Bold(true),
		StepBadgeActive:   badge.Background(theme.Accent).Foreground(lipgloss.Color("#ffffff")).Bold(true),
		StepBadgePending:  badge.Background(theme.Border).Foreground(theme.Secondary),
	}
}
