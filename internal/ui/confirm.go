package ui

import (
	"bufio"
	"io"
	"strings"
)

// Confirm displays a warning box and asks the user to type phrase. Returns
// true only when the typed line equals phrase.
func (p *Printer) Confirm(in io.Reader, title string, warnings []string, phrase string) bool {
	lines := []string{
		"",
		ErrorTitleStyle.Foreground(WarningColor).Render(" " + WarningMarker + "  WARNING  ─  " + title),
		"",
	}
	for _, warning := range warnings {
		lines = append(lines, ResultValueStyle.Render(" • "+warning))
	}
	lines = append(lines, "")

	p.Println(WarningBoxStyle(p.width).Render(strings.Join(lines, "\n")))
	p.Newline()
	p.Print(SuccessTitleStyle.Foreground(WarningColor).Render("To proceed, type \"" + phrase + "\" and press Enter: "))

	input, err := bufio.NewReader(in).ReadString('\n')
	p.Newline()
	if err != nil && input == "" {
		return false
	}

	if strings.TrimSpace(input) == phrase {
		return true
	}

	p.Println(TroubleshootingItemStyle.Render("  Operation cancelled."))
	return false
}
