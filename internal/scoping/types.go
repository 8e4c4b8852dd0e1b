// Package scoping holds the project scoping domain model: phased project
// documents, checklists, free-form sections, two-slot scenarios and
// stakeholder approvals. Everything here is pure data and pure functions;
// persistence lives in the store package.
package scoping

import (
	"errors"
	"time"
)

// Phase is one of the three sequential stages a project moves through.
type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseOptions Phase = "options"
	PhaseFinal   Phase = "final"
)

// Phases lists the phases in progression order.
var Phases = []Phase{PhaseInitial, PhaseOptions, PhaseFinal}

var ErrUnknownPhase = errors.New("unknown phase")

// ParsePhase validates a phase name from an API path segment.
func ParsePhase(raw string) (Phase, error) {
	switch Phase(raw) {
	case PhaseInitial, PhaseOptions, PhaseFinal:
		return Phase(raw), nil
	}
	return "", ErrUnknownPhase
}

// Label returns the display name used in exports and filenames.
func (p Phase) Label() string {
	switch p {
	case PhaseInitial:
		return "Opportunite"
	case PhaseOptions:
		return "Scenarios"
	case PhaseFinal:
		return "Engagement"
	}
	return string(p)
}

// Project is the persisted aggregate. CurrentPhase is derived from the
// validation flags of Data and recomputed after every mutation; it is stored
// denormalized for dashboard queries but never settable on its own.
type Project struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	OwnerID      string      `json:"ownerId"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	CurrentPhase Phase       `json:"currentPhase"`
	Data         ProjectData `json:"data"`
}

// ProjectData is the whole-document blob persisted with the project record.
// Every mutation reads, transforms and rewrites it wholesale; there are no
// field-level patches (last-write-wins at document granularity).
type ProjectData struct {
	Initial      PhaseData     `json:"initial"`
	Options      PhaseData     `json:"options"`
	Final        PhaseData     `json:"final"`
	Stakeholders []Stakeholder `json:"stakeholders"`
	Notes        string        `json:"notes"`
}

// PhaseData is the common per-phase shape. SelectedScenarioID and Scenarios
// are populated for the options phase only.
type PhaseData struct {
	Checklist         []ChecklistItem  `json:"checklist"`
	Sections          []ProjectSection `json:"sections"`
	Validated         bool             `json:"validated"`
	ValidationComment string           `json:"validationComment"`
	ApprovedBy        []string         `json:"approvedBy"`

	SelectedScenarioID string       `json:"selectedScenarioId,omitempty"`
	Scenarios          *ScenarioSet `json:"scenarios,omitempty"`
}

// ChecklistItem ordering is array position; there is no stored order field.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Checked   bool   `json:"checked"`
	IsDefault bool   `json:"isDefault"`
	IsHidden  bool   `json:"isHidden"`
}

// ProjectSection carries rich text content as opaque serialized markup. Order
// is a dense integer renumbered to 0..n-1 after every reorder.
type ProjectSection struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	InternalOnly   bool   `json:"internalOnly"`
	Placeholder    string `json:"placeholder"`
	TooltipContent string `json:"tooltipContent,omitempty"`
	IsDefault      bool   `json:"isDefault"`
	IsHidden       bool   `json:"isHidden"`
	Order          int    `json:"order"`
}

// SectionUpdate is a partial section edit; nil fields are left untouched.
// Content is never deletion-protected, and title/placeholder/tooltip are
// editable even on default sections.
type SectionUpdate struct {
	Title          *string `json:"title"`
	Content        *string `json:"content"`
	InternalOnly   *bool   `json:"internalOnly"`
	Placeholder    *string `json:"placeholder"`
	TooltipContent *string `json:"tooltipContent"`
	IsHidden       *bool   `json:"isHidden"`
}

// ScenarioSlot names one of the exactly two scenario drafts.
type ScenarioSlot string

const (
	SlotA ScenarioSlot = "A"
	SlotB ScenarioSlot = "B"
)

var ErrUnknownSlot = errors.New("unknown scenario slot")

func ParseSlot(raw string) (ScenarioSlot, error) {
	switch ScenarioSlot(raw) {
	case SlotA, SlotB:
		return ScenarioSlot(raw), nil
	}
	return "", ErrUnknownSlot
}

// ScenarioSet holds the two parallel content drafts authored during the
// options phase. Fixed fields rather than a map so the "always exactly two
// scenarios" invariant is structural.
type ScenarioSet struct {
	A ScenarioContent `json:"A"`
	B ScenarioContent `json:"B"`
}

// Slot returns the addressed draft, or nil for an unknown slot.
func (s *ScenarioSet) Slot(slot ScenarioSlot) *ScenarioContent {
	if s == nil {
		return nil
	}
	switch slot {
	case SlotA:
		return &s.A
	case SlotB:
		return &s.B
	}
	return nil
}

// ScenarioContent keeps one content entry per options-phase section, created
// and removed in lockstep with section add/delete for both slots at once.
type ScenarioContent struct {
	SectionContents map[string]SectionContent `json:"sectionContents"`
}

type SectionContent struct {
	Content      string `json:"content"`
	InternalOnly bool   `json:"internalOnly"`
}

// Stakeholder is project-scoped, not phase-scoped. The mandatory flags decide
// inclusion in each phase's approval-gating set.
type Stakeholder struct {
	ID               string `json:"id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Company          string `json:"company"`
	Role             string `json:"role"`
	Email            string `json:"email"`
	IsExternal       bool   `json:"isExternal"`
	EngagementLevel  string `json:"engagementLevel"`
	MandatoryInitial bool   `json:"mandatoryInitial"`
	MandatoryOptions bool   `json:"mandatoryOptions"`
	MandatoryFinal   bool   `json:"mandatoryFinal"`
}

// MandatoryFor reports whether the stakeholder must approve the given phase.
func (s Stakeholder) MandatoryFor(phase Phase) bool {
	switch phase {
	case PhaseInitial:
		return s.MandatoryInitial
	case PhaseOptions:
		return s.MandatoryOptions
	case PhaseFinal:
		return s.MandatoryFinal
	}
	return false
}

// PhaseData returns the addressed phase record, or nil for an unknown phase.
func (d *ProjectData) PhaseData(phase Phase) *PhaseData {
	switch phase {
	case PhaseInitial:
		return &d.Initial
	case PhaseOptions:
		return &d.Options
	case PhaseFinal:
		return &d.Final
	}
	return nil
}
