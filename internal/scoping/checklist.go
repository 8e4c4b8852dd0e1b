package scoping

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// AddChecklistItem appends a custom item to the phase checklist.
func (d *ProjectData) AddChecklistItem(phase Phase, text string) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	pd.Checklist = append(pd.Checklist, ChecklistItem{
		ID:        fmt.Sprintf("%s-%d", phase, time.Now().UnixNano()),
		Text:      strings.TrimSpace(text),
		Checked:   false,
		IsDefault: false,
		IsHidden:  false,
	})
	return nil
}

// DeleteChecklistItem removes a custom item. Default items are protected: a
// delete against one is a silent no-op, not an error.
func (d *ProjectData) DeleteChecklistItem(phase Phase, itemID string) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	kept := pd.Checklist[:0]
	for _, item := range pd.Checklist {
		if item.ID == itemID && !item.IsDefault {
			continue
		}
		kept = append(kept, item)
	}
	pd.Checklist = kept
	return nil
}

// SetChecklistItemHidden toggles visibility. Hidden items stay persisted but
// drop out of completion and progress calculations.
func (d *ProjectData) SetChecklistItemHidden(phase Phase, itemID string, hidden bool) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	for i := range pd.Checklist {
		if pd.Checklist[i].ID == itemID {
			pd.Checklist[i].IsHidden = hidden
		}
	}
	return nil
}

// SetChecklistItemChecked updates one item's checked flag.
func (d *ProjectData) SetChecklistItemChecked(phase Phase, itemID string, checked bool) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	for i := range pd.Checklist {
		if pd.Checklist[i].ID == itemID {
			pd.Checklist[i].Checked = checked
		}
	}
	return nil
}

// ReorderChecklist moves the item at source to destination. Checklist order
// is array position; no order field is stored.
func (d *ProjectData) ReorderChecklist(phase Phase, source, destination int) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	next := spliceReinsert(pd.Checklist, source, destination)
	if next == nil {
		return ErrIndexOutOfRange
	}
	pd.Checklist = next
	return nil
}

// spliceReinsert removes items[source] and reinserts it at destination,
// returning nil when either index is out of range.
func spliceReinsert[T any](items []T, source, destination int) []T {
	if source < 0 || source >= len(items) || destination < 0 || destination >= len(items) {
		return nil
	}
	next := make([]T, 0, len(items))
	next = append(next, items[:source]...)
	next = append(next, items[source+1:]...)
	moved := items[source]
	next = append(next[:destination], append([]T{moved}, next[destination:]...)...)
	return next
}
