// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"fmt"
	"text/template"
)

const systemPrompt = `You are an assistant that helps software teams choose development tools.
Answer in markdown. Use only the information you are given; say so when something is unknown.`

var leadPromptTmpl = template.Must(template.New("lead").Parse(`The user asked:
{{.Question}}

The ranking, best first, is: {{range $i, $n := .Recommended}}{{if $i}}, {{end}}{{$n}}{{end}}.

Write one or two friendly sentences introducing this ranking. Name the top tool.
Do not repeat the full list and do not add facts.`))

var freeFormPromptTmpl = template.Must(template.New("freeform").Parse(`{{- if .History}}Conversation so far:
{{- range .History}}
{{.Role}}: {{.Content}}
{{- end}}

{{end -}}
Question:
{{.Question}}

Research findings:
{{.Findings}}
{{- if .Facts}}

Tools identified:
{{- range .Facts}}
- {{.Name}}{{if .Category}} ({{.Category}}){{end}}
{{- end}}
{{- end}}

Answer the question from the findings above. Be specific about prices, languages, integrations and data handling when the findings mention them.`))

var historyPromptTmpl = template.Must(template.New("history").Parse(`Conversation so far:
{{- range .History}}
{{.Role}}: {{.Content}}
{{- end}}

Follow-up question:
{{.Question}}

Answer the follow-up using only the conversation above. Do not introduce new tools.`))

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}
