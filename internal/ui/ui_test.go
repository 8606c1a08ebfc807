package ui

import (
	"strings"
	"testing"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"short line untouched", "pod ready", 80, "pod ready"},
		{"wraps at word boundary", "container gocd-agent restarted", 15, "container\ngocd-agent\nrestarted"},
		{"keeps long word", "supercalifragilistic word", 5, "supercalifragilistic\nword"},
		{"keeps line breaks", "a\nb", 80, "a\nb"},
		{"default width", strings.Repeat("x ", 50), 0, strings.TrimSpace(strings.Repeat("x ", 40)) + "\n" + strings.TrimSpace(strings.Repeat("x ", 10))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapText(tt.text, tt.width); got != tt.want {
				t.Errorf("WrapText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderMarkdown_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	md := "# Elastic agent k8s-ea-1\n"
	if got := RenderMarkdown(md); got != md {
		t.Errorf("RenderMarkdown() = %q, want input unchanged", got)
	}
}

func TestError(t *testing.T) {
	if got := Error("failed"); !strings.Contains(got, "failed") {
		t.Errorf("Error() = %q", got)
	}
}
