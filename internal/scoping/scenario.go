package scoping

// ScenarioContentUpdate is a partial edit of one section's draft content in a
// scenario slot.
type ScenarioContentUpdate struct {
	Content      *string `json:"content"`
	InternalOnly *bool   `json:"internalOnly"`
}

// UpdateScenarioSectionContent merges an edit into one scenario slot's entry
// for a section, creating the entry when missing.
func (d *ProjectData) UpdateScenarioSectionContent(slot ScenarioSlot, sectionID string, update ScenarioContentUpdate) error {
	if d.Options.Scenarios == nil {
		d.Options.Scenarios = &ScenarioSet{}
	}
	scenario := d.Options.Scenarios.Slot(slot)
	if scenario == nil {
		return ErrUnknownSlot
	}
	if scenario.SectionContents == nil {
		scenario.SectionContents = make(map[string]SectionContent)
	}
	current := scenario.SectionContents[sectionID]
	if update.Content != nil {
		current.Content = *update.Content
	}
	if update.InternalOnly != nil {
		current.InternalOnly = *update.InternalOnly
	}
	scenario.SectionContents[sectionID] = current
	return nil
}

// SelectScenario records which draft will seed the final phase. An empty id
// clears the selection.
func (d *ProjectData) SelectScenario(scenarioID string) error {
	if scenarioID != "" {
		if _, err := ParseSlot(scenarioID); err != nil {
			return err
		}
	}
	d.Options.SelectedScenarioID = scenarioID
	return nil
}
