package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var phaseTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/phase.html")
	if err != nil {
		phaseTemplate = template.Must(template.New("phase").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	phaseTemplate = template.Must(template.New("phase").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for phase template rendering
type TemplateData struct {
	ProjectName       string
	Description       string
	PhaseLabel        string
	External          bool
	GeneratedAt       time.Time
	Validated         bool
	ValidationComment string
	Sections          []TemplateSection
	Checklist         []TemplateChecklistItem
	Approvals         []TemplateApproval
	SelectedScenario  string
	ScenarioSections  []TemplateSection
}

type TemplateSection struct {
	Title       string
	ContentHTML template.HTML
}

type TemplateChecklistItem struct {
	Text    string
	Checked bool
}

type TemplateApproval struct {
	Name     string
	Role     string
	Company  string
	Approved bool
}

// RenderPhaseHTML renders the phase template with provided data
func RenderPhaseHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := phaseTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.ProjectName}} — {{.PhaseLabel}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .section { margin: 1.5rem 0; }
  </style>
</head>
<body>
  <h1>{{.ProjectName}} — {{.PhaseLabel}}</h1>
  <div class="meta">{{formatDate .GeneratedAt "02/01/2006"}}</div>
  {{range .Sections}}<div class="section"><h2>{{.Title}}</h2>{{.ContentHTML}}</div>{{end}}
</body>
</html>`
