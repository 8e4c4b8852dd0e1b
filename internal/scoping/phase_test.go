package scoping

import (
	"reflect"
	"testing"
)

func TestCurrentPhaseDerivation(t *testing.T) {
	data := NewProject("p", "", "u1").Data
	if got := CurrentPhase(data); got != PhaseInitial {
		t.Fatalf("expected initial, got %s", got)
	}

	data.Initial.Validated = true
	if got := CurrentPhase(data); got != PhaseOptions {
		t.Fatalf("expected options, got %s", got)
	}

	data.Options.Validated = true
	if got := CurrentPhase(data); got != PhaseFinal {
		t.Fatalf("expected final, got %s", got)
	}

	// Validated final does not change the derivation.
	data.Final.Validated = true
	if got := CurrentPhase(data); got != PhaseFinal {
		t.Fatalf("expected final, got %s", got)
	}
}

func TestAccessibleGate(t *testing.T) {
	data := NewProject("p", "", "u1").Data
	if !Accessible(data, PhaseInitial) {
		t.Fatal("initial must always be accessible")
	}
	if Accessible(data, PhaseOptions) || Accessible(data, PhaseFinal) {
		t.Fatal("options/final must be gated before validation")
	}

	data.Initial.Validated = true
	if !Accessible(data, PhaseOptions) {
		t.Fatal("options should open once initial is validated")
	}
	if Accessible(data, PhaseFinal) {
		t.Fatal("final should stay gated until options is validated")
	}

	data.Options.Validated = true
	if !Accessible(data, PhaseFinal) {
		t.Fatal("final should open once options is validated")
	}
}

func TestUnvalidateInitialCascades(t *testing.T) {
	data := NewProject("p", "", "u1").Data
	data.Initial.Validated = true
	data.Options.Validated = true
	data.Final.Validated = true

	if err := data.SetValidation(PhaseInitial, false); err != nil {
		t.Fatal(err)
	}
	if data.Initial.Validated || data.Options.Validated || data.Final.Validated {
		t.Fatalf("expected full cascade, got initial=%v options=%v final=%v",
			data.Initial.Validated, data.Options.Validated, data.Final.Validated)
	}
}

func TestUnvalidateOptionsCascadesToFinalOnly(t *testing.T) {
	data := NewProject("p", "", "u1").Data
	data.Initial.Validated = true
	data.Options.Validated = true
	data.Final.Validated = true

	if err := data.SetValidation(PhaseOptions, false); err != nil {
		t.Fatal(err)
	}
	if !data.Initial.Validated {
		t.Fatal("initial must stay validated")
	}
	if data.Options.Validated || data.Final.Validated {
		t.Fatal("options and final must both be reset")
	}
}

func TestUnvalidateFinalAffectsOnlyFinal(t *testing.T) {
	data := NewProject("p", "", "u1").Data
	data.Initial.Validated = true
	data.Options.Validated = true
	data.Final.Validated = true

	if err := data.SetValidation(PhaseFinal, false); err != nil {
		t.Fatal(err)
	}
	if !data.Initial.Validated || !data.Options.Validated {
		t.Fatal("lower phases must be untouched")
	}
	if data.Final.Validated {
		t.Fatal("final must be reset")
	}
}

func TestValidateOptionsWithoutScenarioLeavesFinalUntouched(t *testing.T) {
	data := NewProject("p", "", "u1").Data
	before := make([]ProjectSection, len(data.Final.Sections))
	copy(before, data.Final.Sections)

	if err := data.SetValidation(PhaseOptions, true); err != nil {
		t.Fatal(err)
	}
	if !data.Options.Validated {
		t.Fatal("validation must proceed without a selected scenario")
	}
	if !reflect.DeepEqual(before, data.Final.Sections) {
		t.Fatal("final sections must be untouched when no scenario is selected")
	}
}

func seedReplicationData(t *testing.T) ProjectData {
	t.Helper()
	data := NewProject("p", "", "u1").Data

	// Trim the options phase to two defaults plus one custom section so the
	// mapping, the title match and the synthesized branch are all exercised.
	data.Options.Sections = []ProjectSection{
		{ID: "options-section-0", Title: "Description & Périmètre du scénario", IsDefault: true, Order: 0},
		{ID: "options-section-1", Title: "Hypothèses & Contraintes", IsDefault: true, Order: 1},
		{ID: "options-custom-1", Title: "Analyse Make or Buy", Placeholder: "ph", TooltipContent: "tip", Order: 2},
	}
	data.Options.Scenarios = &ScenarioSet{
		A: ScenarioContent{SectionContents: map[string]SectionContent{
			"options-section-0": {Content: "<p>scope A</p>"},
			"options-section-1": {Content: "<p>constraints A</p>", InternalOnly: true},
			"options-custom-1":  {Content: "<p>make or buy A</p>"},
		}},
		B: ScenarioContent{SectionContents: map[string]SectionContent{
			"options-section-0": {Content: "<p>scope B</p>"},
		}},
	}
	data.Options.SelectedScenarioID = "A"
	return data
}

func TestScenarioReplication(t *testing.T) {
	data := seedReplicationData(t)
	// A stale custom final section whose title matches nothing visible must
	// be dropped from the array entirely, not hidden.
	data.Final.Sections = append(data.Final.Sections, ProjectSection{
		ID: "final-section-custom-old", Title: "Ancienne annexe", Order: 5,
	})

	if err := data.SetValidation(PhaseOptions, true); err != nil {
		t.Fatal(err)
	}

	sections := data.Final.Sections
	if len(sections) != 3 {
		t.Fatalf("expected 3 replicated sections, got %d", len(sections))
	}

	if sections[0].ID != "final-section-0" || sections[0].Content != "<p>scope A</p>" {
		t.Fatalf("unexpected first section: %+v", sections[0])
	}
	if sections[0].Title != "Description & Périmètre définitif" {
		t.Fatalf("mapped default must keep the final-phase title, got %q", sections[0].Title)
	}
	if sections[1].ID != "final-section-1" || !sections[1].InternalOnly {
		t.Fatalf("unexpected second section: %+v", sections[1])
	}
	if sections[2].Title != "Analyse Make or Buy" || sections[2].IsDefault {
		t.Fatalf("unexpected custom section: %+v", sections[2])
	}
	if sections[2].Content != "<p>make or buy A</p>" || sections[2].Placeholder != "ph" {
		t.Fatalf("custom section must inherit scenario content and placeholder: %+v", sections[2])
	}

	for i, section := range sections {
		if section.Order != i {
			t.Fatalf("order must be dense, got %d at index %d", section.Order, i)
		}
		if section.IsHidden {
			t.Fatalf("replicated sections must be visible: %+v", section)
		}
	}
	for _, section := range sections {
		if section.Title == "Ancienne annexe" {
			t.Fatal("stale custom final section must be dropped")
		}
	}
}

func TestScenarioReplicationSkipsHiddenSections(t *testing.T) {
	data := seedReplicationData(t)
	data.Options.Sections[1].IsHidden = true

	if err := data.SetValidation(PhaseOptions, true); err != nil {
		t.Fatal(err)
	}
	for _, section := range data.Final.Sections {
		if section.ID == "final-section-1" {
			t.Fatal("hidden options section must not be replicated")
		}
	}
	if len(data.Final.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(data.Final.Sections))
	}
}

func TestScenarioReplicationIsDeterministic(t *testing.T) {
	first := seedReplicationData(t)
	second := seedReplicationData(t)

	if err := first.SetValidation(PhaseOptions, true); err != nil {
		t.Fatal(err)
	}
	if err := second.SetValidation(PhaseOptions, true); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Final.Sections, second.Final.Sections) {
		t.Fatalf("replication must be deterministic:\n%+v\n%+v", first.Final.Sections, second.Final.Sections)
	}
}

func TestScenarioReplicationReusesMatchingCustomFinalSection(t *testing.T) {
	data := seedReplicationData(t)
	data.Final.Sections = append(data.Final.Sections, ProjectSection{
		ID:      "final-section-custom-kept",
		Title:   "Analyse Make or Buy",
		Content: "<p>stale</p>",
		Order:   5,
	})

	if err := data.SetValidation(PhaseOptions, true); err != nil {
		t.Fatal(err)
	}
	last := data.Final.Sections[len(data.Final.Sections)-1]
	if last.ID != "final-section-custom-kept" {
		t.Fatalf("title match must reuse the existing section, got id %s", last.ID)
	}
	if last.Content != "<p>make or buy A</p>" {
		t.Fatalf("matched section content must be overwritten, got %q", last.Content)
	}
}

func TestValidationReady(t *testing.T) {
	data := NewProject("p", "", "u1").Data
	if ValidationReady(data, PhaseInitial) {
		t.Fatal("fresh project must not be ready")
	}

	for i := range data.Initial.Checklist {
		data.Initial.Checklist[i].Checked = true
	}
	if !ValidationReady(data, PhaseInitial) {
		t.Fatal("all items checked, no mandatory stakeholders: ready")
	}

	data.Stakeholders = []Stakeholder{{ID: "st1", MandatoryInitial: true}}
	if ValidationReady(data, PhaseInitial) {
		t.Fatal("missing mandatory approval must block readiness")
	}
	data.Initial.ApprovedBy = []string{"st1"}
	if !ValidationReady(data, PhaseInitial) {
		t.Fatal("approved mandatory stakeholder must unblock readiness")
	}

	// Hidden unchecked items do not count.
	data.Initial.Checklist[0].Checked = false
	data.Initial.Checklist[0].IsHidden = true
	if !ValidationReady(data, PhaseInitial) {
		t.Fatal("hidden unchecked item must not block readiness")
	}
}

func TestValidationReadyOptionsRequiresScenario(t *testing.T) {
	data := NewProject("p", "", "u1").Data
	for i := range data.Options.Checklist {
		data.Options.Checklist[i].Checked = true
	}
	if ValidationReady(data, PhaseOptions) {
		t.Fatal("options must not be ready without a selected scenario")
	}
	data.Options.SelectedScenarioID = "B"
	if !ValidationReady(data, PhaseOptions) {
		t.Fatal("options should be ready once a scenario is selected")
	}
}
