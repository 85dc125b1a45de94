package learning

import (
	"strings"
	"testing"

	"github.com/sakif/guitar-ai/internal/model"
)

func TestDefaultTemplate(t *testing.T) {
	for _, c := range model.Categories {
		tmpl := DefaultTemplate(c)
		if !strings.Contains(tmpl, ContextPlaceholder) || !strings.Contains(tmpl, InputPlaceholder) {
			t.Errorf("DefaultTemplate(%s) is missing a placeholder", c)
		}
	}
	if DefaultTemplate("bass") != "" {
		t.Error("DefaultTemplate of an unknown category should be empty")
	}
}

func TestRenderPrompt(t *testing.T) {
	tests := []struct {
		name     string
		template string
		context  string
		input    string
		want     string
	}{
		{
			name:     "both placeholders",
			template: "Describe.\n\n{context}\n\nInput: {input}",
			context:  "Example descriptions:\n- x",
			input:    "Les Paul",
			want:     "Describe.\n\nExample descriptions:\n- x\n\nInput: Les Paul",
		},
		{
			name:     "no placeholders",
			template: "Write about this guitar.\n",
			context:  "Model adjustments:\n- style: formal",
			input:    "Telecaster",
			want:     "Write about this guitar.\n\nModel adjustments:\n- style: formal\n\nInput information: Telecaster",
		},
		{
			name:     "no placeholders and empty context",
			template: "Write about this guitar.",
			input:    "Telecaster",
			want:     "Write about this guitar.\n\nInput information: Telecaster",
		},
		{
			name:     "placeholder text in input is left alone",
			template: "{context}|{input}",
			context:  "ctx",
			input:    "literal {context}",
			want:     "ctx|literal {context}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderPrompt(tt.template, tt.context, tt.input); got != tt.want {
				t.Errorf("RenderPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFallbackTable_Section(t *testing.T) {
	got := FallbackExamples.Section(model.CategoryCompany)
	if !strings.HasPrefix(got, "Example descriptions:\n- ") {
		t.Errorf("Section() = %q, want an Example descriptions block", got)
	}
	if strings.Count(got, "\n- ") != len(FallbackExamples[model.CategoryCompany]) {
		t.Errorf("Section() = %q, want one line per fallback example", got)
	}

	if got := (FallbackTable{}).Section(model.CategoryGuitar); got != "" {
		t.Errorf("empty table Section() = %q, want empty", got)
	}
}
