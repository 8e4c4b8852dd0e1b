package export

import (
	"strings"
	"testing"
	"time"

	"scopilot/api/internal/scoping"
)

func TestSanitizeProjectName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Refonte CRM", "Refonte_CRM"},
		{"Refonte  CRM", "Refonte_CRM"},
		{"Refonte \t\n CRM", "Refonte_CRM"},
		{"Projet: refonte (v2)!", "Projet_refonte_v2"},
		{"///", "projet"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
	}
	for _, tc := range cases {
		if got := SanitizeProjectName(tc.in); got != tc.want {
			t.Errorf("SanitizeProjectName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBaseFilename(t *testing.T) {
	date := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	got := BaseFilename("Refonte CRM", scoping.PhaseInitial, false, date)
	if got != "Refonte_CRM_Opportunite_2026-08-28" {
		t.Fatalf("unexpected filename %q", got)
	}

	got = BaseFilename("Refonte CRM", scoping.PhaseOptions, true, date)
	if got != "Refonte_CRM_Scenarios_Externe_2026-08-28" {
		t.Fatalf("unexpected external filename %q", got)
	}

	got = BaseFilename("x", scoping.PhaseFinal, false, date)
	if !strings.Contains(got, "_Engagement_") {
		t.Fatalf("final phase must use the Engagement label, got %q", got)
	}
}

func seedProject() scoping.Project {
	project := scoping.NewProject("Refonte CRM", "Modernisation du CRM", "u1")
	project.Data.Initial.Sections[0].Content = "<p>Contexte du projet</p>"
	project.Data.Initial.Sections[1].Content = "<p>Note interne</p>"
	project.Data.Initial.Sections[1].InternalOnly = true
	project.Data.Initial.Sections[2].IsHidden = true
	project.Data.Initial.Checklist[0].Checked = true
	project.Data.Stakeholders = []scoping.Stakeholder{
		{ID: "st1", FirstName: "Marie", LastName: "Dupont", Role: "Sponsor", MandatoryInitial: true},
	}
	project.Data.Initial.ApprovedBy = []string{"st1"}
	return project
}

func TestBuildTemplateDataInternalView(t *testing.T) {
	project := seedProject()
	data := buildTemplateData(project, scoping.PhaseInitial, project.Data.Initial, false, time.Now())

	if data.PhaseLabel != "Opportunite" {
		t.Fatalf("unexpected phase label %q", data.PhaseLabel)
	}
	// 5 defaults, one hidden.
	if len(data.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(data.Sections))
	}
	if len(data.Checklist) != 10 {
		t.Fatalf("expected full checklist, got %d", len(data.Checklist))
	}
	if len(data.Approvals) != 1 || !data.Approvals[0].Approved {
		t.Fatalf("unexpected approvals: %+v", data.Approvals)
	}
	if data.Approvals[0].Name != "Marie Dupont" {
		t.Fatalf("unexpected approver name %q", data.Approvals[0].Name)
	}
}

func TestBuildTemplateDataExternalStripsInternalSections(t *testing.T) {
	project := seedProject()
	data := buildTemplateData(project, scoping.PhaseInitial, project.Data.Initial, true, time.Now())

	if len(data.Sections) != 3 {
		t.Fatalf("expected internal-only section stripped, got %d sections", len(data.Sections))
	}
	for _, section := range data.Sections {
		if strings.Contains(string(section.ContentHTML), "Note interne") {
			t.Fatal("internal-only content must not leak into external exports")
		}
	}
}

func TestBuildTemplateDataScenarioSections(t *testing.T) {
	project := seedProject()
	project.Data.Options.SelectedScenarioID = "A"
	project.Data.Options.Scenarios.A.SectionContents["options-section-0"] = scoping.SectionContent{Content: "<p>scénario A</p>"}
	project.Data.Options.Scenarios.A.SectionContents["options-section-1"] = scoping.SectionContent{Content: "<p>interne</p>", InternalOnly: true}

	data := buildTemplateData(project, scoping.PhaseOptions, project.Data.Options, true, time.Now())
	if data.SelectedScenario != "A" {
		t.Fatalf("unexpected scenario %q", data.SelectedScenario)
	}
	for _, section := range data.ScenarioSections {
		if strings.Contains(string(section.ContentHTML), "interne") {
			t.Fatal("internal-only scenario content must be stripped externally")
		}
	}
}

func TestRenderPhaseHTML(t *testing.T) {
	project := seedProject()
	html, err := RenderPhaseHTML(buildTemplateData(project, scoping.PhaseInitial, project.Data.Initial, false, time.Now()))
	if err != nil {
		t.Fatalf("RenderPhaseHTML() error = %v", err)
	}
	if !strings.Contains(html, "Refonte CRM") {
		t.Error("rendered HTML should contain the project name")
	}
	if !strings.Contains(html, "Opportunite") {
		t.Error("rendered HTML should contain the phase label")
	}
	if !strings.Contains(html, "<p>Contexte du projet</p>") {
		t.Error("section markup must be rendered unescaped")
	}
	if !strings.Contains(html, "Marie Dupont") {
		t.Error("rendered HTML should list mandatory approvers")
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	encoded := percentEncodeForDataURL("<p>a b</p>")
	if strings.Contains(encoded, " ") || strings.Contains(encoded, "+") {
		t.Fatalf("spaces must be %%20-encoded, got %q", encoded)
	}
	if !strings.Contains(encoded, "%3C") {
		t.Fatalf("angle brackets must be percent-encoded, got %q", encoded)
	}
	if !strings.Contains(encoded, "a%20b") {
		t.Fatalf("expected a%%20b in %q", encoded)
	}
}
