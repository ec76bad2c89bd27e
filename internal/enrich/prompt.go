package enrich

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/enrich.txt
var defaultPrompt string

// DefaultPrompt returns the embedded enrichment prompt template.
func DefaultPrompt() string {
	return defaultPrompt
}

// PromptData is the data an enrichment prompt template renders.
type PromptData struct {
	Title string
	Date  string
	URL   string
	Body  string
}

// ParsePrompt compiles a prompt template, falling back to the embedded
// default when text is empty.
func ParsePrompt(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = defaultPrompt
	}
	tmpl, err := template.New("prompt").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return tmpl, nil
}

// ExecutePrompt renders a prompt template with the given data
func ExecutePrompt(tmpl *template.Template, data PromptData) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
