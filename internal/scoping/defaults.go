package scoping

import (
	"fmt"
	"time"
)

var defaultChecklists = map[Phase][]string{
	PhaseInitial: {
		"Désignation du porteur de projet",
		"Définition des objectifs généraux",
		"Critères de succès initiaux établis",
		"Identification des parties prenantes clés",
		"Alignement avec la stratégie confirmé",
		"Analyse préliminaire des risques",
		"Validation de la faisabilité technique",
		"Estimation budgétaire ±50%",
		"Ressources préliminaires identifiées",
		"Planning macro défini",
	},
	PhaseOptions: {
		"Comparaison des scénarios effectuée",
		"Budget estimé ±30%",
		"Scénario retenu défini",
		"Analyse coûts/bénéfices réalisée",
		"Contraintes techniques identifiées",
		"Plan de gestion des risques établi",
		"Ressources détaillées planifiées",
		"Jalons intermédiaires définis",
		"Critères d'acceptation validés",
	},
	PhaseFinal: {
		"Périmètre final validé",
		"Budget définitif approuvé",
		"Équipe projet constituée",
		"Planning détaillé établi",
		"Contrats et accords signés",
		"Gouvernance projet définie",
		"Plan de communication validé",
		"Critères de réussite finalisés",
		"Plan de gestion des risques approuvé",
		"Autorisation de lancement obtenue",
	},
}

type sectionSeed struct {
	title       string
	placeholder string
}

var defaultSectionSeeds = map[Phase][]sectionSeed{
	PhaseInitial: {
		{
			title: "Contexte & Objectifs",
			placeholder: `Donner du sens au projet et expliquer la valeur qu'il doit apporter :
- Décrivez pourquoi ce projet est lancé (ex : problème, demande…).
- Précisez les objectifs principaux attendus (ex : améliorer un processus, lancer un nouveau service).
- Formulez des objectifs mesurables et clairs (ex : réduire délais de 20% en 6 mois).`,
		},
		{
			title: "Périmètre préliminaire",
			placeholder: `Eviter les malentendus dès le départ, même si c'est encore approximatif :
- Indiquez ce que le projet couvre (inclusions) (ex : mise en place d'un nouveau module CRM).
- Et ce qu'il ne couvre pas (exclusions) (ex : migration complète de tous les systèmes historiques).`,
		},
		{
			title: "Risques majeurs",
			placeholder: `Identifier les principaux risques qui pourraient avoir un impact négatif sur le projet :
- Repérez les zones de fragilité (ex. disponibilité limitée d'une ressource clé).
- Identifiez les événements incertains (ex : incertitude sur un budget futur).`,
		},
		{
			title: "Budget estimatif (±50%)",
			placeholder: `Donner un ordre de grandeur du budget, avec une marge d'incertitude importante (±50%).
- Indiquez une enveloppe indicative (ex : 'entre 100K et 200K €' ou 'entre 50 et 100 Jours/homme')
- Vérifiez la cohérence avec les moyens disponibles.`,
		},
		{
			title: "Jalons principaux",
			placeholder: `Donner une première vision du calendrier global :
- Indiquez les grandes étapes ou dates clés prévues pour le projet, même de façon approximative.
- Il n'est pas nécessaire de donner des dates précises au jour près, mais une trajectoire.
- Des repères en mois ou trimestres suffisent (ex : 'Prototype en septembre, pilote en décembre…').`,
		},
	},
	PhaseOptions: {
		{
			title: "Description & Périmètre du scénario",
			placeholder: `Présenter clairement chaque scénario proposé et son périmètre :
- Décrivez l'approche et les caractéristiques (ex : intégration légère ou refonte complète).
- Indiquez ce qui est inclus et ce qui est exclu pour éviter toute ambiguïté.`,
		},
		{
			title: "Hypothèses & Contraintes",
			placeholder: `Clarifier les conditions de validité du scénario :
- Les hypothèses sont supposées vraies mais non vérifiées (ex : API livrée à temps).
- Les contraintes sont des limites à respecter (ex : budget maximal, compatibilité technique).`,
		},
		{
			title: "Livrables attendus",
			placeholder: `Identifier ce que le scénario doit concrètement produire :
- Listez les résultats tangibles attendus (ex : rapport, application web, base consolidée).
- Cela permet de comparer la valeur créée par chaque scénario.`,
		},
		{
			title: "Budget estimatif (±30%)",
			placeholder: `Préciser les coûts de chaque scénario avec une meilleure précision :
- Fournissez une estimation affinée avec une marge ±30%.
- Ex : "120K–160K €" ou "40–50 Jours/homme" selon la charge prévue.`,
		},
		{
			title: "Jalons du scénario",
			placeholder: `Donner une trajectoire temporelle pour chaque scénario :
- Définissez les principales étapes avec un niveau intermédiaire de détail.
- Ex : atelier en septembre, prototype en novembre, test en décembre, mise en production en mars.`,
		},
	},
	PhaseFinal: {
		{
			title: "Description & Périmètre définitif",
			placeholder: `Formaliser le scénario retenu et ses limites :
- Décrivez en détail le périmètre choisi, ses inclusions et exclusions.
- Ex : inclus = portail web avec 3 modules ; exclu = développement d'applications mobiles natives.`,
		},
		{
			title: "Hypothèses & Contraintes validées",
			placeholder: `Confirmer les conditions retenues pour la mise en œuvre :
- Listez les hypothèses confirmées (ex : disponibilité des ressources).
- Notez les contraintes incontournables (ex : normes de sécurité, délais légaux).`,
		},
		{
			title: "Livrables définitifs",
			placeholder: `Lister sans ambiguïté ce qui doit être livré :
- Énumérez les livrables finaux (ex : appli en prod, manuel utilisateur, formation).
- Sert de référence officielle et engageante pour le projet.`,
		},
		{
			title: "Budget validé (±15%)",
			placeholder: `Donner le budget final avec une incertitude réduite :
- Indiquez l'enveloppe validée avec une marge de ±15%.
- Ce budget devient engageant et toute variation devra être validée par une demande de changement.`,
		},
		{
			title: "Planning détaillé",
			placeholder: `Figurer le calendrier précis avec des jalons datés :
- Un jalon doit être un événement vérifiable (ex : prototype validé).
- Ex : phase de test du 1er au 15 février, déploiement prévu le 1er mars.`,
		},
	},
}

// DefaultChecklist seeds the protected checklist items for a phase. Item ids
// are positional ("initial-0"…), which keeps them stable across projects.
func DefaultChecklist(phase Phase) []ChecklistItem {
	texts := defaultChecklists[phase]
	items := make([]ChecklistItem, 0, len(texts))
	for i, text := range texts {
		items = append(items, ChecklistItem{
			ID:        fmt.Sprintf("%s-%d", phase, i),
			Text:      text,
			Checked:   false,
			IsDefault: true,
			IsHidden:  false,
		})
	}
	return items
}

// DefaultSections seeds the protected sections for a phase. The positional
// ids ("options-section-0"…) double as the replication mapping keys when the
// options phase is validated into the final phase.
func DefaultSections(phase Phase) []ProjectSection {
	seeds := defaultSectionSeeds[phase]
	sections := make([]ProjectSection, 0, len(seeds))
	for i, seed := range seeds {
		sections = append(sections, ProjectSection{
			ID:             fmt.Sprintf("%s-section-%d", phase, i),
			Title:          seed.title,
			Content:        "",
			InternalOnly:   false,
			Placeholder:    seed.placeholder,
			TooltipContent: seed.placeholder,
			IsDefault:      true,
			IsHidden:       false,
			Order:          i,
		})
	}
	return sections
}

func defaultScenarioContent(sections []ProjectSection) ScenarioContent {
	contents := make(map[string]SectionContent, len(sections))
	for _, section := range sections {
		contents[section.ID] = SectionContent{}
	}
	return ScenarioContent{SectionContents: contents}
}

// NewProject builds a freshly seeded project aggregate for an owner. Both
// scenario slots mirror the default options sections with empty content.
func NewProject(name, description, ownerID string) Project {
	optionsSections := DefaultSections(PhaseOptions)

	return Project{
		Name:         name,
		Description:  description,
		OwnerID:      ownerID,
		CreatedAt:    time.Now().UTC(),
		CurrentPhase: PhaseInitial,
		Data: ProjectData{
			Initial: PhaseData{
				Checklist:  DefaultChecklist(PhaseInitial),
				Sections:   DefaultSections(PhaseInitial),
				ApprovedBy: []string{},
			},
			Options: PhaseData{
				Checklist:  DefaultChecklist(PhaseOptions),
				Sections:   optionsSections,
				ApprovedBy: []string{},
				Scenarios: &ScenarioSet{
					A: defaultScenarioContent(optionsSections),
					B: defaultScenarioContent(optionsSections),
				},
			},
			Final: PhaseData{
				Checklist:  DefaultChecklist(PhaseFinal),
				Sections:   DefaultSections(PhaseFinal),
				ApprovedBy: []string{},
			},
			Stakeholders: []Stakeholder{},
			Notes:        "",
		},
	}
}
