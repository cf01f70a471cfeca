package rag

import (
	"strings"
	"text/template"
)

const promptTemplate = `You are a helpful AI assistant named Clara. Use the following context from previous conversations to answer the user's question.

Context:
{{.Context}}

User Question: {{.Query}}

Answer:
`

var prompt = template.Must(template.New("prompt").Parse(promptTemplate))

// BuildPrompt renders the assistant prompt. Contexts are joined by blank lines,
// most relevant first.
func BuildPrompt(query string, contexts []string) string {
	var sb strings.Builder
	// Execute only fails on writer errors; strings.Builder never returns one
	_ = prompt.Execute(&sb, struct {
		Context string
		Query   string
	}{
		Context: strings.Join(contexts, "\n\n"),
		Query:   query,
	})
	return sb.String()
}
