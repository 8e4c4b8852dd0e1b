package scoping

// AddStakeholder appends a stakeholder to the project-scoped list. The id is
// assigned by the caller (service layer) so the pure layer stays
// deterministic.
func (d *ProjectData) AddStakeholder(stakeholder Stakeholder) {
	d.Stakeholders = append(d.Stakeholders, stakeholder)
}

// UpdateStakeholder replaces the stakeholder with a matching id.
func (d *ProjectData) UpdateStakeholder(stakeholder Stakeholder) bool {
	for i := range d.Stakeholders {
		if d.Stakeholders[i].ID == stakeholder.ID {
			d.Stakeholders[i] = stakeholder
			return true
		}
	}
	return false
}

// RemoveStakeholder deletes a stakeholder from the list. Approval ids already
// recorded in phase approvedBy lists are intentionally left behind; history
// is not rewritten.
func (d *ProjectData) RemoveStakeholder(stakeholderID string) {
	kept := d.Stakeholders[:0]
	for _, stakeholder := range d.Stakeholders {
		if stakeholder.ID == stakeholderID {
			continue
		}
		kept = append(kept, stakeholder)
	}
	d.Stakeholders = kept
}

// SetApproval adds or removes a stakeholder id from a phase's approvedBy
// list. The id is not checked against the stakeholder list; the original
// system allowed orphaned approvals and the behavior is preserved.
func (d *ProjectData) SetApproval(phase Phase, stakeholderID string, approved bool) error {
	pd := d.PhaseData(phase)
	if pd == nil {
		return ErrUnknownPhase
	}
	kept := pd.ApprovedBy[:0]
	for _, id := range pd.ApprovedBy {
		if id == stakeholderID {
			continue
		}
		kept = append(kept, id)
	}
	if approved {
		kept = append(kept, stakeholderID)
	}
	pd.ApprovedBy = kept
	return nil
}
