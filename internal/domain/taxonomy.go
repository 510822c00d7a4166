package domain

import "strings"

// ApplicabilityCategory groups document types by their legal force.
type ApplicabilityCategory struct {
	Name  string
	Types []string
}

// ApplicabilityCategories is the closed classification vocabulary. Order
// matters: the fallback scan tries obligation and jurisprudence before
// information.
var ApplicabilityCategories = []ApplicabilityCategory{
	{
		Name: "information",
		Types: []string{
			"Directive européenne", "Circulaire", "Instruction", "Normes",
			"Communiqué", "Avis", "Recommandation", "Décision ou résumé de décisions",
			"Rapport",
		},
	},
	{
		Name:  "obligation",
		Types: []string{"Loi", "Règlement", "Décret", "Arrêté", "Convention"},
	},
	{
		Name: "jurisprudence",
		Types: []string{
			"Arrêt", "Décision", "Cour de cassation", "Conseil constitutionnel",
			"Cour de justice de l'union européenne", "Tribunal de l'union européenne",
		},
	},
}

// DefaultApplicability is the last-resort classification.
const DefaultApplicability = "information/Avis"

func ApplicabilityCategoryByName(name string) (ApplicabilityCategory, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range ApplicabilityCategories {
		if c.Name == name {
			return c, true
		}
	}
	return ApplicabilityCategory{}, false
}

// ThemeCategory groups health & safety theme labels.
type ThemeCategory struct {
	Name   string
	Themes []string
}

// DefaultTheme is used when classification fails.
const DefaultTheme = "Articles & Guides"

var ThemeCategories = []ThemeCategory{
	{Name: "Principes généraux", Themes: []string{
		"Principes de prévention", "Rôles & Responsabilités", "Affichage",
		"Signalisation", "Reporting",
	}},
	{Name: "Accidents & Maladies", Themes: []string{
		"AT & MP", "ATMP", "PARIPRAC", "T",
	}},
	{Name: "Santé", Themes: []string{
		"Inspections", "Santé publique", "Santé au travail", "SPST", "Secours",
	}},
	{Name: "Construction & Aménagement", Themes: []string{
		"Construction", "Démolition", "Aménagement", "ERP", "Stockage (non chimique)",
		"Chutes d'objet", "Amiante", "Chantiers", "CSPS", "Conception",
		"Accessibilité", "Urbanisme", "Infrastructures", "Réseaux",
	}},
	{Name: "Équipements & Protection", Themes: []string{
		"Machines", "Outils", "EPI", "Protection collective", "Equipements sous pression",
		"Equipements de froid", "Consignation", "Maintenance", "Contrôles", "Normes",
		"Ventilation", "Drones",
	}},
	{Name: "Conditions de travail", Themes: []string{
		"Bruit", "Vibrations", "Milieu hyperbare", "Travail en hauteur", "Ergonomie",
		"Eclairage", "Travail sur écran", "Manutention manuelle", "Manutention mécanique",
		"Espaces confinés", "Ambiances thermiques", "Travail tertiaire",
		"Milieu souterrain", "Travail en laboratoire",
	}},
	{Name: "Incendie & Urgences", Themes: []string{
		"Incendie", "Pyrotechnie", "ATEX", "Evacuation", "Situations d'urgence",
		"Extinction", "Résistance au feu", "Exercices",
	}},
	{Name: "Risques physiques", Themes: []string{
		"Risques électriques", "Rayonnements ionisants", "Rayonnements non ionisants",
		"Champs électromagnétiques", "Radon",
	}},
	{Name: "Risques chimiques", Themes: []string{
		"VLEP", "CLP", "REACH", "CMR", "ACD", "Biocides & Phytos", "Biocides", "Phytos",
		"Engrais", "POP", "Nano-matériaux", "Perturbateurs endocriniens", "Toxicologie",
		"Stockage (chimique)", "F-Gas", "PIC", "Substances vénéneuses",
		"Précurseurs stupéfiants", "Risque chimique",
	}},
	{Name: "Risques biologiques", Themes: []string{
		"Risque biologique", "COVID-19", "Grippe", "Légionelles",
	}},
	{Name: "Risques routiers", Themes: []string{
		"Risques routiers", "Chargement & Déchargement", "Piétons", "Circulation",
		"Poids lourds", "Transports en commun", "Automobiles", "Transport de marchandises",
	}},
	{Name: "Organisation du travail", Themes: []string{
		"Télétravail", "RPS", "Travail de nuit", "Travail posté", "Travail isolé",
		"Co-activité", "Entreprises extérieures", "Plan de prévention", "Sous-traitance",
		"Intérim",
	}},
	{Name: "Représentation", Themes: []string{
		"Représentants du personnel", "CSE & CSSCT", "CSE", "CSSCT", "Compétences",
		"Droits d'alerte et de retrait", "Droit d'alerte", "Droit de retrait",
	}},
	{Name: "Populations spécifiques", Themes: []string{
		"Travailleurs étrangers", "Travailleurs détachés", "Travailleurs mineurs",
		"Femmes enceintes et allaitantes", "Femmes enceintes", "Femmes allaitantes",
		"Stagiaires", "Apprentis", "Travailleurs handicapés",
	}},
	{Name: "Contrôle & Gouvernance", Themes: []string{
		"Inspection du travail", "DIRECCTE", "Assureurs", "Corporate",
		"Règlement intérieur",
	}},
	{Name: "Documentation", Themes: []string{
		DefaultTheme,
	}},
}

// AllThemes returns every theme label, flattened in category order.
func AllThemes() []string {
	var out []string
	for _, c := range ThemeCategories {
		out = append(out, c.Themes...)
	}
	return out
}

// IsKnownTheme reports whether label is in the taxonomy (exact match).
func IsKnownTheme(label string) bool {
	for _, c := range ThemeCategories {
		for _, t := range c.Themes {
			if t == label {
				return true
			}
		}
	}
	return false
}
