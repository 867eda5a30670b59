package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

// articlePatterns match the citation styles found in EU regulatory texts,
// including the abbreviated "Art. 105" form and instrument numbers such as
// "Regulation 2015/35" or "Directive 2009/138/CE". Matching is
// case-insensitive; French prose cites articles in lowercase
// ("conformément à l'article 180").
var articlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Article\s+(\d+[a-z]?)\b`),
	regexp.MustCompile(`(?i)Art\.\s+(\d+[a-z]?)\b`),
	regexp.MustCompile(`(?i)Article\s+(\d+[a-z]?)\s*\([^)]+\)`),
	regexp.MustCompile(`(?i)(?:Règlement|Regulation).*?(\d+/\d+)`),
	regexp.MustCompile(`(?i)Directive.*?(\d+/\d+/CE)`),
}

// ExtractArticles returns the deduplicated article and instrument references
// cited in text. References longer than 10 characters are treated as pattern
// noise and discarded. Results are sorted by length then lexically, so plain
// article numbers come before instrument numbers.
func ExtractArticles(text string) []string {
	seen := make(map[string]bool)
	for _, pattern := range articlePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			ref := strings.TrimSpace(match[1])
			if ref == "" || len(ref) > 10 {
				continue
			}
			seen[ref] = true
		}
	}
	articles := make([]string, 0, len(seen))
	for ref := range seen {
		articles = append(articles, ref)
	}
	sort.Slice(articles, func(i, j int) bool {
		if len(articles[i]) != len(articles[j]) {
			return len(articles[i]) < len(articles[j])
		}
		return articles[i] < articles[j]
	})
	return articles
}

var reliabilityBase = map[model.DocType]float64{
	model.DocTypeRegulationEU:       1.0,
	model.DocTypeDirective:          0.95,
	model.DocTypeEIOPAGuidelines:    0.9,
	model.DocTypeTechnicalStandards: 0.85,
	model.DocTypeAcademicPaper:      0.75,
	model.DocTypeIndustryPaper:      0.7,
	model.DocTypeInternalDoc:        0.6,
}

// ReliabilityScore rates a document's trustworthiness from its type and
// content shape. Official instruments start high; density of article
// citations and overall length adjust the score, clamped to [0.1, 1.0].
func ReliabilityScore(docType model.DocType, text string) float64 {
	score, ok := reliabilityBase[docType]
	if !ok {
		score = 0.5
	}

	tokens := strings.Fields(text)
	articleTokens := 0
	for _, token := range tokens {
		if strings.Contains(strings.ToLower(token), "article") {
			articleTokens++
		}
	}
	if articleTokens > 10 {
		score += 0.1
	}
	if len(tokens) > 5000 {
		score += 0.05
	}
	if len(tokens) < 500 {
		score -= 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.1 {
		score = 0.1
	}
	return score
}

var (
	frenchMarkers  = []string{"règlement", "solvabilité", "assurance", "société", "européenne"}
	englishMarkers = []string{"regulation", "solvency", "insurance", "european", "commission"}
)

// DetectLanguage distinguishes French from English regulatory prose by
// counting marker words. Ties and empty text default to French, the working
// language of the corpus.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)
	french, english := 0, 0
	for _, marker := range frenchMarkers {
		if strings.Contains(lower, marker) {
			french++
		}
	}
	for _, marker := range englishMarkers {
		if strings.Contains(lower, marker) {
			english++
		}
	}
	if english > french {
		return "en"
	}
	return "fr"
}

var titleKeywords = []string{
	"règlement", "directive", "scr", "solvabilité", "solvency",
	"eiopa", "guidelines", "article", "commission", "délégué",
}

// FallbackTitle picks a document title when ingestion received none: the
// page metadata title if it carries enough text, otherwise the first of the
// leading lines that looks like a regulatory heading, otherwise defaultTitle.
func FallbackTitle(metaTitle, text, defaultTitle string) string {
	if t := strings.TrimSpace(metaTitle); len(t) > 5 {
		return t
	}

	lines := strings.Split(text, "\n")
	checked := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if checked++; checked > 15 {
			break
		}
		if len(line) < 10 || len(line) > 200 {
			continue
		}
		lower := strings.ToLower(line)
		for _, kw := range titleKeywords {
			if strings.Contains(lower, kw) {
				return line
			}
		}
	}
	return defaultTitle
}

var domainKeywords = []string{
	"SCR", "spread", "duration", "rating", "notation",
	"facteur de stress", "stress factor", "choc",
	"obligation", "bond", "crédit", "credit",
	"contrepartie", "counterparty", "concentration",
	"taux", "interest rate", "actions", "equity",
	"devise", "currency", "opérationnel", "operational",
}

// ExtractKeywords returns the domain vocabulary present in text, preserving
// the vocabulary order and casing.
func ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range domainKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}
	return found
}
