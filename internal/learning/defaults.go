package learning

import (
	"strings"

	"github.com/sakif/guitar-ai/internal/model"
)

// Placeholders recognised in prompt templates.
const (
	ContextPlaceholder = "{context}"
	InputPlaceholder   = "{input}"
)

// SystemPrompt is sent as the system message of every generation.
const SystemPrompt = "You are a knowledgeable guitar expert with deep understanding of guitars, guitar companies, and the music industry."

var defaultTemplates = map[model.Category]string{
	model.CategoryGuitar: `You are an expert guitar enthusiast. Create a detailed, engaging description of a guitar based on the following information.

{context}

Input information: {input}

Please provide a comprehensive description that includes:
- Technical specifications
- Sound characteristics
- Build quality and materials
- Target audience
- Historical context if relevant

Make the description informative yet accessible to both beginners and experienced players.`,

	model.CategoryCompany: `You are an expert in guitar manufacturing and company history. Create a detailed description of a guitar company based on the following information.

{context}

Input information: {input}

Please provide a comprehensive description that includes:
- Company history and founding
- Notable achievements and innovations
- Signature products and models
- Company philosophy and values
- Market position and reputation
- Key people and milestones

Make the description engaging and informative for guitar enthusiasts.`,
}

// DefaultTemplate returns the built-in prompt for c, used when the caller has
// no active template of their own.
func DefaultTemplate(c model.Category) string {
	return defaultTemplates[c]
}

// FallbackExample is one built-in reference description.
type FallbackExample struct {
	Title       string   `yaml:"title"`
	Content     string   `yaml:"content"`
	Subcategory string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
}

// FallbackTable holds the reference descriptions used when a generation
// would otherwise run without any context. The same table seeds the public
// examples of a fresh database.
type FallbackTable map[model.Category][]FallbackExample

// FallbackExamples is the built-in table. Config may replace it.
var FallbackExamples = FallbackTable{
	model.CategoryGuitar: {
		{
			Title:       "Fender Stratocaster",
			Content:     "Fender Stratocaster to ikoniczna gitara elektryczna z charakterystycznym dźwiękiem idealnym do bluesa i rocka.",
			Subcategory: "Elektryczna",
			Tags:        []string{"przykład", "polski", "gitara"},
		},
		{
			Title:       "Gibson Les Paul",
			Content:     "Gibson Les Paul to legenda wśród gitar elektrycznych znana z ciepłego, pełnego brzmienia.",
			Subcategory: "Elektryczna",
			Tags:        []string{"przykład", "polski", "gitara"},
		},
	},
	model.CategoryCompany: {
		{
			Title:       "Fender",
			Content:     "Fender to amerykański producent gitar elektrycznych znany z innowacyjnych rozwiązań.",
			Subcategory: "Producent",
			Tags:        []string{"przykład", "polski", "firma"},
		},
		{
			Title:       "Gibson",
			Content:     "Gibson to legenda wśród producentów gitar premium z długą tradycją.",
			Subcategory: "Producent",
			Tags:        []string{"przykład", "polski", "firma"},
		},
	},
}

// Section renders the fallback examples of c as an "Example descriptions:"
// block, or "" when the table has none for c.
func (t FallbackTable) Section(c model.Category) string {
	items := t[c]
	if len(items) == 0 {
		return ""
	}

	lines := make([]string, 0, len(items))
	for _, fe := range items {
		lines = append(lines, "- "+fe.Content)
	}
	return section(headerExamples, lines)
}

// RenderPrompt fills template with the assembled context and the user's
// input. A template missing a placeholder still gets the value: the context
// and then "Input information: <input>" are appended at the end.
func RenderPrompt(template, context, input string) string {
	hasContext := strings.Contains(template, ContextPlaceholder)
	hasInput := strings.Contains(template, InputPlaceholder)

	// One pass, so placeholder-like text inside context or input stays as is.
	out := strings.NewReplacer(ContextPlaceholder, context, InputPlaceholder, input).Replace(template)

	if !hasContext && context != "" {
		out = strings.TrimRight(out, "\n") + "\n\n" + context
	}
	if !hasInput {
		out = strings.TrimRight(out, "\n") + "\n\nInput information: " + input
	}
	return strings.TrimSpace(out)
}
