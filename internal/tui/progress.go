package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"enclave/internal/wizard"
)

// RenderProgress renders one badge per step: completed steps in the success
// colour, the current one in the accent colour.
func RenderProgress(snap wizard.Snapshot, reg wizard.Registry, styles *StyleSet, width int) string {
	done := make(map[wizard.StepID]bool, len(snap.Completed))
	for _, id := range snap.Completed {
		done[id] = true
	}

	var badges []string
	for i, def := range reg {
		label := fmt.Sprintf("%d %s", i+1, def.Title)
		switch {
		case i == snap.Pointer && !snap.Terminal:
			badges = append(badges, styles.StepBadgeActive.Render(label))
		case done[def.ID]:
			badges = append(badges, styles.StepBadgeComplete.Render("✓ "+def.Title))
		default:
			badges = append(badges, styles.StepBadgePending.Render(label))
		}
	}

	// Wrap badges onto as many lines as the width needs.
	var lines []string
	var line []string
	used := 2
	for _, b := range badges {
		w := lipgloss.Width(b) + 1
		if len(line) > 0 && width > 0 && used+w > width {
			lines = append(lines, "  "+strings.Join(line, " "))
			line, used = nil, 2
		}
		line = append(line, b)
		used += w
	}
	if len(line) > 0 {
		lines = append(lines, "  "+strings.Join(line, " "))
	}
	return strings.Join(lines, "\n") + "\n"
}

type keyBinding struct {
	key  string
	desc string
}

func renderHints(styles *StyleSet, bindings []keyBinding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, styles.KbdKey.Render(b.key)+" "+styles.KbdDesc.Render(b.desc))
	}
	return "  " + strings.Join(parts, "    ")
}

func inputHints(canGoBack bool) []keyBinding {
	h := []keyBinding{{"⏎", "submit"}}
	if canGoBack {
		h = append(h, keyBinding{"shift+tab", "back"})
	}
	return append(h, keyBinding{"esc", "quit"})
}

func selectHints(canGoBack bool) []keyBinding {
	h := []keyBinding{{"↑↓", "navigate"}, {"⏎", "select"}}
	if canGoBack {
		h = append(h, keyBinding{"shift+tab", "back"})
	}
	return append(h, keyBinding{"esc", "quit"})
}
