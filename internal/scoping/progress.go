package scoping

// Progress is the combined checklist/approval completion for one phase.
type Progress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// PhaseProgress combines the visible-checklist completion ratio with the
// mandatory-stakeholder approval ratio for one phase. A zero denominator
// yields 100%.
func PhaseProgress(data ProjectData, phase Phase) Progress {
	pd := data.PhaseData(phase)
	if pd == nil {
		return Progress{Percentage: 100}
	}

	checked := 0
	visible := 0
	for _, item := range pd.Checklist {
		if item.IsHidden {
			continue
		}
		visible++
		if item.Checked {
			checked++
		}
	}

	approved := make(map[string]bool, len(pd.ApprovedBy))
	for _, id := range pd.ApprovedBy {
		approved[id] = true
	}
	mandatory := 0
	approvedMandatory := 0
	for _, stakeholder := range data.Stakeholders {
		if !stakeholder.MandatoryFor(phase) {
			continue
		}
		mandatory++
		if approved[stakeholder.ID] {
			approvedMandatory++
		}
	}

	completed := checked + approvedMandatory
	total := visible + mandatory
	percentage := 100.0
	if total > 0 {
		percentage = float64(completed) / float64(total) * 100
	}
	return Progress{Completed: completed, Total: total, Percentage: percentage}
}

// CombinedProgress is the dashboard metric: progress of the project's current
// phase only, not an average over all three.
func CombinedProgress(data ProjectData) Progress {
	return PhaseProgress(data, CurrentPhase(data))
}
