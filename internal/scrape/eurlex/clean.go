package eurlex

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Boilerplate that precedes the operative part of an act.
	phraseDebutRe = regexp.MustCompile(`(?i)(DÉCISION D'EXÉCUTION DE LA COMMISSION|LA COMMISSION EUROPÉENNE,|LE CONSEIL DE L'UNION EUROPÉENNE,|A ADOPTÉ LA PRÉSENTE DÉCISION:|A ADOPTÉ LE PRÉSENT RÈGLEMENT:)`)

	articlePointRe = regexp.MustCompile(`(Article \d+)(\s*\((?:\d+|[a-z])\))`)
	parenNumberRe  = regexp.MustCompile(`\(\s*(\d+)\s*\)`)
	acronymRe      = regexp.MustCompile(`([A-Z]{2,4})\s*\((.*?)\)`)

	pointBreakRe   = regexp.MustCompile(`\s*\((\d+|[a-z])\)`)
	dashBreakRe    = regexp.MustCompile(`\s*—\s*`)
	multiNewlineRe = regexp.MustCompile(`(\n\s*){2,}`)

	breakBeforeRes = compileBreakBefore()
)

func compileBreakBefore() []*regexp.Regexp {
	patterns := []string{
		regexp.QuoteMeta("LE CONSEIL DE L'UNION EUROPÉENNE,"),
		regexp.QuoteMeta("LA COMMISSION EUROPÉENNE,"),
		regexp.QuoteMeta("vu le traité sur le fonctionnement de l'Union européenne,"),
		regexp.QuoteMeta("considérant ce qui suit:"),
		regexp.QuoteMeta("A ADOPTÉ LA PRÉSENTE DÉCISION:"),
		regexp.QuoteMeta("A ADOPTÉ LE PRÉSENT RÈGLEMENT:"),
		`Article \d+`,
		regexp.QuoteMeta("ANNEXE"),
		regexp.QuoteMeta("DOCUMENT DE PROJET"),
	}
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(`(?i)\s*(`+p+`)`))
	}
	return res
}

// CleanContent reflows the text extracted from an EUR-Lex document
// page: boilerplate before the operative part is dropped, glued
// references are repaired and structural markers (articles, numbered
// points, dashes) are put back on their own paragraphs.
func CleanContent(text string) string {
	if text == "" {
		return ""
	}

	text = whitespaceRe.ReplaceAllString(text, " ")

	if loc := phraseDebutRe.FindStringIndex(text); loc != nil {
		text = text[loc[0]:]
	}

	// "Article 3 (2)" becomes "Article 3(2)".
	text = articlePointRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := articlePointRe.FindStringSubmatch(m)
		return sub[1] + strings.ReplaceAll(sub[2], " ", "")
	})
	text = parenNumberRe.ReplaceAllString(text, "($1)")
	text = acronymRe.ReplaceAllString(text, "$1($2)")

	for _, re := range breakBeforeRes {
		text = re.ReplaceAllString(text, "\n\n$1")
	}

	text = pointBreakRe.ReplaceAllString(text, "\n\n($1)")
	text = dashBreakRe.ReplaceAllString(text, "\n\n— ")

	text = multiNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
