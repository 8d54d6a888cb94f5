package ui

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderHeader(t *testing.T) {
	got := RenderHeader("Credentials", "rtinspect keys", map[string]string{
		"Project": "abc",
		"Source":  "api:abc",
	}, 80)

	for _, want := range []string{"CREDENTIALS", "rtinspect keys", "Project:", "abc", "Source:"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderHeader() missing %q", want)
		}
	}
	if strings.Index(got, "Project:") > strings.Index(got, "Source:") {
		t.Error("RenderHeader() params should be sorted")
	}
}

func TestRenderHeaderWithoutParams(t *testing.T) {
	got := RenderHeader("Scan", "rtinspect scan", nil, 80)
	// Border, title, command, border
	if lines := strings.Count(got, "\n") + 1; lines != 4 {
		t.Errorf("RenderHeader() without params has %d lines, want 4", lines)
	}
}

func TestRenderErrorBox(t *testing.T) {
	got := RenderErrorBox("Fetch failed", errors.New("boom"), []string{"Check the token"}, 80)

	for _, want := range []string{FailureMarker, "Fetch failed", "Error: boom", "Troubleshooting:", "Check the token"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderErrorBox() missing %q", want)
		}
	}
}

func TestRenderSuccessBox(t *testing.T) {
	got := RenderSuccessBox("Saved", map[string]string{"Channel": "room-1"}, 80)

	for _, want := range []string{SuccessMarker, "Saved", "Channel:", "room-1"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderSuccessBox() missing %q", want)
		}
	}
}

func TestPrinterConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"agreed", "REVEAL\n", true},
		{"agreed without newline", "REVEAL", true},
		{"declined", "no\n", false},
		{"empty input", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			p := NewPrinter(&out).SetWidth(80)

			got := p.Confirm(strings.NewReader(tt.input), "Reveal keys", []string{"Keys are printed in clear"}, "REVEAL")
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "Keys are printed in clear") {
				t.Error("Confirm() should print the warnings")
			}
		})
	}
}
