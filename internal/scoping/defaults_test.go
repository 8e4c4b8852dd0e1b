package scoping

import "testing"

func TestNewProjectSeeds(t *testing.T) {
	project := NewProject("Refonte CRM", "desc", "u1")

	if project.CurrentPhase != PhaseInitial {
		t.Fatalf("new project must start in initial, got %s", project.CurrentPhase)
	}
	if got := len(project.Data.Initial.Checklist); got != 10 {
		t.Fatalf("initial checklist: expected 10 default items, got %d", got)
	}
	if got := len(project.Data.Options.Checklist); got != 9 {
		t.Fatalf("options checklist: expected 9 default items, got %d", got)
	}
	if got := len(project.Data.Final.Checklist); got != 10 {
		t.Fatalf("final checklist: expected 10 default items, got %d", got)
	}

	for _, phase := range Phases {
		pd := project.Data.PhaseData(phase)
		if got := len(pd.Sections); got != 5 {
			t.Fatalf("%s sections: expected 5 defaults, got %d", phase, got)
		}
		for _, item := range pd.Checklist {
			if !item.IsDefault || item.Checked || item.IsHidden {
				t.Fatalf("seed item must be default/unchecked/visible: %+v", item)
			}
		}
		for i, section := range pd.Sections {
			if !section.IsDefault || section.Order != i || section.Content != "" {
				t.Fatalf("seed section must be default with dense order and empty content: %+v", section)
			}
		}
		if pd.Validated || pd.ValidationComment != "" || len(pd.ApprovedBy) != 0 {
			t.Fatalf("%s phase must start unvalidated with no approvals", phase)
		}
	}
}

func TestNewProjectScenarioSlotsMirrorOptionsSections(t *testing.T) {
	project := NewProject("p", "", "u1")
	scenarios := project.Data.Options.Scenarios
	if scenarios == nil {
		t.Fatal("options phase must carry the two scenario drafts")
	}

	for _, slot := range []ScenarioSlot{SlotA, SlotB} {
		contents := scenarios.Slot(slot).SectionContents
		if len(contents) != 5 {
			t.Fatalf("scenario %s: expected 5 slots, got %d", slot, len(contents))
		}
		for _, section := range project.Data.Options.Sections {
			content, ok := contents[section.ID]
			if !ok {
				t.Fatalf("scenario %s missing slot for %s", slot, section.ID)
			}
			if content.Content != "" || content.InternalOnly {
				t.Fatalf("seed slot must be empty: %+v", content)
			}
		}
	}
}

func TestDefaultSectionIDsMatchReplicationMapping(t *testing.T) {
	options := DefaultSections(PhaseOptions)
	final := DefaultSections(PhaseFinal)
	for i := range options {
		target, ok := defaultSectionMapping[options[i].ID]
		if !ok {
			t.Fatalf("options default %s missing from mapping", options[i].ID)
		}
		if target != final[i].ID {
			t.Fatalf("mapping mismatch: %s -> %s, expected %s", options[i].ID, target, final[i].ID)
		}
	}
}
