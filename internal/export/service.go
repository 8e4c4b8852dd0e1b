package export

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"
	"unicode"

	"scopilot/api/internal/scoping"
)

// Service renders phase exports. It is stateless; the caller passes the
// loaded project.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Export generates an export in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	phaseData := req.Project.Data.PhaseData(req.Phase)
	if phaseData == nil {
		return nil, scoping.ErrUnknownPhase
	}

	generatedAt := req.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	html, err := RenderPhaseHTML(buildTemplateData(req.Project, req.Phase, *phaseData, req.External, generatedAt))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	basename := BaseFilename(req.Project.Name, req.Phase, req.External, generatedAt)
	switch req.Format {
	case FormatPDF:
		return exportPDF(ctx, html, basename)
	case FormatDOCX:
		return exportDOCX(html, basename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

func buildTemplateData(project scoping.Project, phase scoping.Phase, phaseData scoping.PhaseData, external bool, generatedAt time.Time) TemplateData {
	data := TemplateData{
		ProjectName:       project.Name,
		Description:       project.Description,
		PhaseLabel:        phase.Label(),
		External:          external,
		GeneratedAt:       generatedAt,
		Validated:         phaseData.Validated,
		ValidationComment: phaseData.ValidationComment,
	}

	sections := make([]scoping.ProjectSection, 0, len(phaseData.Sections))
	for _, section := range phaseData.Sections {
		if section.IsHidden {
			continue
		}
		if external && section.InternalOnly {
			continue
		}
		sections = append(sections, section)
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	for _, section := range sections {
		data.Sections = append(data.Sections, TemplateSection{
			Title:       section.Title,
			ContentHTML: template.HTML(section.Content),
		})
	}

	for _, item := range phaseData.Checklist {
		if item.IsHidden {
			continue
		}
		data.Checklist = append(data.Checklist, TemplateChecklistItem{
			Text:    item.Text,
			Checked: item.Checked,
		})
	}

	approved := make(map[string]bool, len(phaseData.ApprovedBy))
	for _, id := range phaseData.ApprovedBy {
		approved[id] = true
	}
	for _, st := range project.Data.Stakeholders {
		if !st.MandatoryFor(phase) {
			continue
		}
		data.Approvals = append(data.Approvals, TemplateApproval{
			Name:     strings.TrimSpace(st.FirstName + " " + st.LastName),
			Role:     st.Role,
			Company:  st.Company,
			Approved: approved[st.ID],
		})
	}

	// The selected scenario draft only appears on the options phase export.
	if phase == scoping.PhaseOptions && phaseData.SelectedScenarioID != "" {
		if slot, err := scoping.ParseSlot(phaseData.SelectedScenarioID); err == nil {
			data.SelectedScenario = string(slot)
			contents := phaseData.Scenarios.Slot(slot)
			for _, section := range sections {
				content, ok := contents.SectionContents[section.ID]
				if !ok {
					continue
				}
				if external && content.InternalOnly {
					continue
				}
				data.ScenarioSections = append(data.ScenarioSections, TemplateSection{
					Title:       section.Title,
					ContentHTML: template.HTML(content.Content),
				})
			}
		}
	}

	return data
}

// SanitizeProjectName strips everything but letters and digits, collapsing
// each whitespace run into a single underscore, capped at 50 bytes.
func SanitizeProjectName(name string) string {
	var b strings.Builder
	lastSep := false
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSep = false
		case unicode.IsSpace(r):
			if !lastSep {
				b.WriteRune('_')
				lastSep = true
			}
		}
	}
	result := b.String()
	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "projet"
	}
	return result
}

// BaseFilename builds the export filename stem:
// {Name}_{PhaseLabel}[_Externe]_{YYYY-MM-DD}.
func BaseFilename(projectName string, phase scoping.Phase, external bool, date time.Time) string {
	parts := []string{SanitizeProjectName(projectName), phase.Label()}
	if external {
		parts = append(parts, "Externe")
	}
	parts = append(parts, date.Format("2006-01-02"))
	return strings.Join(parts, "_")
}
