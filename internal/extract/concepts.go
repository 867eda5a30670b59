package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

// conceptPattern pairs a recognizer with how its captures map onto a
// concept. Formula patterns store the right-hand side as a formula as well
// as the definition; label patterns only define.
type conceptPattern struct {
	re        *regexp.Regexp
	isFormula bool
}

var conceptPatterns = []conceptPattern{
	{re: regexp.MustCompile(`(?i)SCR[_\s]*(\w+)\s*=\s*([^.\n]{10,100})`), isFormula: true},
	{re: regexp.MustCompile(`(?i)((?:facteur|coefficient)[^:]{0,30})\s*[:\-]\s*([^.\n]{10,80})`)},
	{re: regexp.MustCompile(`(?i)((?:duration|sensibilité)[^:]{0,30})\s*[:\-]\s*([^.\n]{10,80})`)},
	{re: regexp.MustCompile(`(?i)((?:notation|rating)[^:]{0,30})\s*[:\-]\s*([^.\n]{10,80})`)},
	{re: regexp.MustCompile(`(?i)((?:choc|stress)[^:]{0,30})\s*[:\-]\s*([^.\n]{10,80})`)},
}

var articleNearby = regexp.MustCompile(`[Aa]rticle\s+(\d+[a-z]?)`)

const articleWindow = 200

// Candidate is a mined concept before it is bound to a stored document.
type Candidate struct {
	Name       string
	Module     model.SCRModule
	Definition string
	Formula    string
	Article    string
	Confidence float64
}

// ConceptMiner scans extracted text for definitional patterns and fans each
// match out across the document's SCR modules.
type ConceptMiner struct{}

func NewConceptMiner() *ConceptMiner { return &ConceptMiner{} }

// Mine returns concept candidates found in text, one per (match, module)
// pair. Matches with suspicious names or definitions are dropped.
func (m *ConceptMiner) Mine(text string, modules []model.SCRModule) []Candidate {
	var candidates []Candidate
	for _, pattern := range conceptPatterns {
		for _, match := range pattern.re.FindAllStringSubmatchIndex(text, -1) {
			name := collapseSpaces(text[match[2]:match[3]])
			body := collapseSpaces(text[match[4]:match[5]])
			if !validConcept(name, body) {
				continue
			}

			article := nearbyArticle(text, match[0], match[1])
			for _, module := range modules {
				cand := Candidate{
					Name:       name,
					Module:     module,
					Definition: body,
					Article:    article,
					Confidence: model.DefaultConfidence,
				}
				if pattern.isFormula {
					cand.Name = "SCR " + name
					cand.Formula = body
				}
				candidates = append(candidates, cand)
			}
		}
	}
	if len(candidates) > 0 {
		zap.L().Debug("concepts: mined candidates", zap.Int("count", len(candidates)))
	}
	return candidates
}

// validConcept rejects names and definitions whose length or characters
// suggest the pattern latched onto markup or a formula fragment.
func validConcept(name, definition string) bool {
	if len(name) < 3 || len(name) > 50 {
		return false
	}
	if len(definition) < 10 || len(definition) > 150 {
		return false
	}
	return !strings.ContainsAny(name+definition, "<>{}")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// nearbyArticle looks for an article citation within a window around the
// match, so a concept inherits the article that introduced it.
func nearbyArticle(text string, start, end int) string {
	lo := start - articleWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + articleWindow
	if hi > len(text) {
		hi = len(text)
	}
	if m := articleNearby.FindStringSubmatch(text[lo:hi]); m != nil {
		return m[1]
	}
	return ""
}
