package ui

import (
	"strings"
	"testing"
)

func TestRenderParam(t *testing.T) {
	tests := []struct {
		name        string
		param       Param
		contains    []string
		notContains []string
		wantLines   int
	}{
		{
			name:      "required with description",
			param:     Param{Name: "token", Type: "string", Description: "API key"},
			contains:  []string{"token", "REQUIRED", "string", "API key"},
			wantLines: 2,
		},
		{
			name:        "optional without description",
			param:       Param{Name: "bearer", Optional: true, Type: "JWT"},
			contains:    []string{"bearer", "Optional", "JWT"},
			notContains: []string{"REQUIRED"},
			wantLines:   1,
		},
		{
			name:      "missing name and type",
			param:     Param{},
			contains:  []string{NoName, NoType, "REQUIRED"},
			wantLines: 1,
		},
		{
			name:      "blank description is omitted",
			param:     Param{Name: "x", Type: "y", Description: "   "},
			wantLines: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderParam(tt.param)

			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("RenderParam() = %q, missing %q", got, want)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(got, unwanted) {
					t.Errorf("RenderParam() = %q, should not contain %q", got, unwanted)
				}
			}
			if lines := strings.Count(got, "\n") + 1; lines != tt.wantLines {
				t.Errorf("RenderParam() has %d lines, want %d", lines, tt.wantLines)
			}
		})
	}
}

func TestConfigParams(t *testing.T) {
	params := ConfigParams()

	required := map[string]bool{}
	for _, p := range params {
		if p.Name == "" || p.Type == "" || p.Description == "" {
			t.Errorf("incomplete param %+v", p)
		}
		required[p.Name] = !p.Optional
	}

	if !required["token"] {
		t.Error("token should be required")
	}
	if required["bearer"] {
		t.Error("bearer should be optional")
	}
}

func TestPrinterPrintParams(t *testing.T) {
	var b strings.Builder
	NewPrinter(&b).SetWidth(80).PrintParams([]Param{{Name: "a"}, {Name: "b", Optional: true}})

	out := b.String()
	if !strings.Contains(out, "a") || !strings.Contains(out, "Optional") {
		t.Errorf("PrintParams() output = %q", out)
	}
	if strings.Count(out, "─") < 3 {
		t.Error("PrintParams() should separate params with dividers")
	}
}
