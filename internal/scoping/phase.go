package scoping

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
)

// CurrentPhase derives the active phase from the validation flags. It is
// recomputed after every persisted mutation so the denormalized field on the
// project record can never drift from the data.
func CurrentPhase(data ProjectData) Phase {
	if !data.Initial.Validated {
		return PhaseInitial
	}
	if !data.Options.Validated {
		return PhaseOptions
	}
	return PhaseFinal
}

// Accessible reports whether a phase may be opened: initial always, options
// once initial is validated, final once options is validated. The gate is
// advisory; update operations do not re-check it.
func Accessible(data ProjectData, phase Phase) bool {
	switch phase {
	case PhaseInitial:
		return true
	case PhaseOptions:
		return data.Initial.Validated
	case PhaseFinal:
		return data.Options.Validated
	}
	return false
}

// ValidationReady reports whether the completion preconditions for marking a
// phase validated hold: every visible checklist item checked, every mandatory
// stakeholder in approvedBy, and (options only) a scenario selected. This is
// surfaced to callers for display; SetValidation does not enforce it.
func ValidationReady(data ProjectData, phase Phase) bool {
	pd := data.PhaseData(phase)
	if pd == nil {
		return false
	}
	for _, item := range pd.Checklist {
		if !item.IsHidden && !item.Checked {
			return false
		}
	}
	approved := make(map[string]bool, len(pd.ApprovedBy))
	for _, id := range pd.ApprovedBy {
		approved[id] = true
	}
	for _, stakeholder := range data.Stakeholders {
		if stakeholder.MandatoryFor(phase) && !approved[stakeholder.ID] {
			return false
		}
	}
	if phase == PhaseOptions && pd.SelectedScenarioID == "" {
		return false
	}
	return true
}

// defaultSectionMapping pairs the seeded options sections with their final
// counterparts for scenario replication.
var defaultSectionMapping = map[string]string{
	"options-section-0": "final-section-0",
	"options-section-1": "final-section-1",
	"options-section-2": "final-section-2",
	"options-section-3": "final-section-3",
	"options-section-4": "final-section-4",
}

// SetValidation flips a phase's validated flag and applies the transition
// rules in a single in-memory step so the caller persists one write:
//
//   - initial=false cascades to options and final,
//   - options=false cascades to final only,
//   - final affects only itself,
//   - options=true replicates the selected scenario into the final sections.
//
// Un-validating never restores previously replicated content.
func (d *ProjectData) SetValidation(phase Phase, validated bool) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}

	if !validated {
		pd.Validated = false
		switch phase {
		case PhaseInitial:
			d.Options.Validated = false
			d.Final.Validated = false
		case PhaseOptions:
			d.Final.Validated = false
		}
		return nil
	}

	if phase == PhaseOptions {
		d.replicateSelectedScenario()
	}
	pd.Validated = true
	return nil
}

// replicateSelectedScenario rebuilds final.sections from the visible options
// sections and the selected scenario's content. The resulting array replaces
// the previous one wholesale: a custom final section whose title matches no
// visible options section is dropped, not hidden. When no scenario is
// selected the final sections are left untouched (validation still proceeds).
func (d *ProjectData) replicateSelectedScenario() {
	slot, err := ParseSlot(d.Options.SelectedScenarioID)
	if err != nil {
		return
	}
	scenario := d.Options.Scenarios.Slot(slot)
	if scenario == nil {
		return
	}

	existingByID := make(map[string]ProjectSection)
	existingByTitle := make(map[string]ProjectSection)
	for _, section := range d.Final.Sections {
		if section.IsDefault {
			existingByID[section.ID] = section
		} else {
			existingByTitle[section.Title] = section
		}
	}

	sorted := make([]ProjectSection, len(d.Options.Sections))
	copy(sorted, d.Options.Sections)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	next := make([]ProjectSection, 0, len(sorted))
	order := 0
	for _, optSection := range sorted {
		if optSection.IsHidden {
			continue
		}
		content := scenario.SectionContents[optSection.ID]

		if optSection.IsDefault {
			finalID, mapped := defaultSectionMapping[optSection.ID]
			if !mapped {
				continue
			}
			existing, ok := existingByID[finalID]
			if !ok {
				continue
			}
			existing.Content = content.Content
			existing.InternalOnly = content.InternalOnly
			existing.IsHidden = false
			existing.Order = order
			next = append(next, existing)
			order++
			continue
		}

		// Custom sections carry over by title; a rename breaks continuity.
		if existing, ok := existingByTitle[optSection.Title]; ok {
			existing.Content = content.Content
			existing.InternalOnly = content.InternalOnly
			existing.IsHidden = false
			existing.Order = order
			next = append(next, existing)
			order++
			continue
		}
		next = append(next, ProjectSection{
			ID:             customFinalSectionID(optSection.Title),
			Title:          optSection.Title,
			Content:        content.Content,
			InternalOnly:   content.InternalOnly,
			Placeholder:    optSection.Placeholder,
			TooltipContent: optSection.TooltipContent,
			IsDefault:      false,
			IsHidden:       false,
			Order:          order,
		})
		order++
	}

	d.Final.Sections = next
}

// customFinalSectionID derives a stable id from the section title, the same
// key the title-match continuity rule already relies on.
func customFinalSectionID(title string) string {
	sum := sha1.Sum([]byte(title))
	return "final-section-custom-" + hex.EncodeToString(sum[:6])
}
