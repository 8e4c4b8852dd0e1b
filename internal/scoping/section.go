package scoping

import (
	"fmt"
	"strings"
	"time"
)

// NewSectionInput is the caller-supplied part of a section; id and order are
// assigned on add.
type NewSectionInput struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	InternalOnly   bool   `json:"internalOnly"`
	Placeholder    string `json:"placeholder"`
	TooltipContent string `json:"tooltipContent"`
	IsHidden       bool   `json:"isHidden"`
}

// AddSection appends a custom section at the next order slot. For the options
// phase an empty content entry is inserted into both scenario drafts so the
// slots stay in lockstep with the section list.
func (d *ProjectData) AddSection(phase Phase, input NewSectionInput) (string, error) {
	pd := d.PhaseData(phase)
	if pd == nil {
		return "", ErrUnknownPhase
	}
	maxOrder := -1
	for _, section := range pd.Sections {
		if section.Order > maxOrder {
			maxOrder = section.Order
		}
	}
	id := fmt.Sprintf("%s-section-%d", phase, time.Now().UnixNano())
	pd.Sections = append(pd.Sections, ProjectSection{
		ID:             id,
		Title:          strings.TrimSpace(input.Title),
		Content:        input.Content,
		InternalOnly:   input.InternalOnly,
		Placeholder:    input.Placeholder,
		TooltipContent: input.TooltipContent,
		IsDefault:      false,
		IsHidden:       input.IsHidden,
		Order:          maxOrder + 1,
	})
	if phase == PhaseOptions && d.Options.Scenarios != nil {
		for _, slot := range []ScenarioSlot{SlotA, SlotB} {
			scenario := d.Options.Scenarios.Slot(slot)
			if scenario.SectionContents == nil {
				scenario.SectionContents = make(map[string]SectionContent)
			}
			scenario.SectionContents[id] = SectionContent{}
		}
	}
	return id, nil
}

// UpdateSection merges the non-nil fields of the update into the matching
// section. Title, placeholder and tooltip stay editable on default sections.
func (d *ProjectData) UpdateSection(phase Phase, sectionID string, update SectionUpdate) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	for i := range pd.Sections {
		if pd.Sections[i].ID != sectionID {
			continue
		}
		if update.Title != nil {
			pd.Sections[i].Title = *update.Title
		}
		if update.Content != nil {
			pd.Sections[i].Content = *update.Content
		}
		if update.InternalOnly != nil {
			pd.Sections[i].InternalOnly = *update.InternalOnly
		}
		if update.Placeholder != nil {
			pd.Sections[i].Placeholder = *update.Placeholder
		}
		if update.TooltipContent != nil {
			pd.Sections[i].TooltipContent = *update.TooltipContent
		}
	}
	if update.IsHidden != nil {
		return d.SetSectionHidden(phase, sectionID, *update.IsHidden)
	}
	return nil
}

// DeleteSection removes a custom section; defaults are a silent no-op. For
// the options phase the matching scenario content entries are removed from
// both drafts in the same step.
func (d *ProjectData) DeleteSection(phase Phase, sectionID string) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	kept := pd.Sections[:0]
	removed := false
	for _, section := range pd.Sections {
		if section.ID == sectionID && !section.IsDefault {
			removed = true
			continue
		}
		kept = append(kept, section)
	}
	pd.Sections = kept
	if removed && phase == PhaseOptions && d.Options.Scenarios != nil {
		delete(d.Options.Scenarios.A.SectionContents, sectionID)
		delete(d.Options.Scenarios.B.SectionContents, sectionID)
	}
	return nil
}

// SetSectionHidden toggles a section's visibility flag.
func (d *ProjectData) SetSectionHidden(phase Phase, sectionID string, hidden bool) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	for i := range pd.Sections {
		if pd.Sections[i].ID == sectionID {
			pd.Sections[i].IsHidden = hidden
		}
	}
	return nil
}

// ReorderSections moves the section at source to destination and renumbers
// every section's order to its new 0-based array index. Unlike checklist
// items the dense order field is persisted; rendering and scenario
// replication both walk it.
func (d *ProjectData) ReorderSections(phase Phase, source, destination int) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	next := spliceReinsert(pd.Sections, source, destination)
	if next == nil {
		return ErrIndexOutOfRange
	}
	for i := range next {
		next[i].Order = i
	}
	pd.Sections = next
	return nil
}
