package scoping

import "strings"

// SearchText flattens the document into the words search should match:
// visible section titles and contents across every phase, plus both scenario
// drafts, with markup stripped. The store persists it next to the blob so
// full-text queries can reach inside the document.
func SearchText(data ProjectData) string {
	var parts []string
	for _, phase := range Phases {
		for _, section := range data.PhaseData(phase).Sections {
			if section.IsHidden {
				continue
			}
			parts = append(parts, section.Title, stripMarkup(section.Content))
		}
	}
	if scenarios := data.Options.Scenarios; scenarios != nil {
		for _, slot := range []ScenarioSlot{SlotA, SlotB} {
			for _, content := range scenarios.Slot(slot).SectionContents {
				parts = append(parts, stripMarkup(content.Content))
			}
		}
	}
	return strings.Join(parts, " ")
}

// stripMarkup flattens rich-text markup to plain words.
func stripMarkup(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
