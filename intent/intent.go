// Package intent classifies queries into closed intent and subtype enums
// that drive routing, retrieval sizing, and template selection.
package intent

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Intent is the top-level query route.
type Intent int

const (
	Factual Intent = iota
	Thematic
	Generative
)

// String renders the intent for traces and audit lines.
func (i Intent) String() string {
	switch i {
	case Factual:
		return "factual"
	case Thematic:
		return "thematic"
	case Generative:
		return "generative"
	default:
		return "unknown"
	}
}

// Subtype refines thematic queries.
type Subtype int

const (
	SubtypeNone Subtype = iota
	Synthesis
	Enumerative
	Analytical
	Exploratory
)

func (s Subtype) String() string {
	switch s {
	case Synthesis:
		return "synthesis"
	case Enumerative:
		return "enumerative"
	case Analytical:
		return "analytical"
	case Exploratory:
		return "exploratory"
	default:
		return "none"
	}
}

// ErrAmbiguous is returned when no classification signal clears the
// confidence floor.
var ErrAmbiguous = errors.New("intent: no signal above confidence floor")

// confidenceFloor is the minimum signal strength for a classification.
const confidenceFloor = 0.35

// Classification is the classifier output.
type Classification struct {
	Intent       Intent   `json:"intent"`
	Confidence   float64  `json:"confidence"`
	MatchedTerms []string `json:"matched_terms"`
	ScopedEntity string   `json:"scoped_entity,omitempty"`
	Trace        []string `json:"trace"`
}

// Cue word lists. Kept small and literal; the taxonomy-based expander
// handles semantic breadth downstream.
var (
	generativeVerbs = []string{"write", "compose", "draft", "paraphrase", "rewrite", "generate"}

	pluralSubjects = []string{
		"laureates", "winners", "recipients", "authors", "writers",
		"they", "these voices", "nobelists",
	}

	reflectiveVerbs = []string{
		"think", "feel", "say", "reflect", "talk about", "treat",
		"explore", "approach", "address",
	}

	themeNouns = []string{"themes", "motifs", "patterns", "topics"}

	factualCues = []string{
		"who ", "when ", "what year", "where ", "country",
		"how many", "which year", "why did",
	}
)

// Classifier maps a query to an intent with confidence and a human-readable
// trace. The laureate name list enables scoped-entity detection.
type Classifier struct {
	fullNames []string
	lastNames []string
}

// NewClassifier builds a classifier over the known laureate names.
func NewClassifier(fullNames []string) *Classifier {
	c := &Classifier{fullNames: fullNames}
	for _, n := range fullNames {
		parts := strings.Fields(n)
		if len(parts) > 1 {
			last := parts[len(parts)-1]
			// Short last names produce too many false hits inside
			// ordinary words.
			if len(last) > 3 {
				c.lastNames = append(c.lastNames, last)
			}
		}
	}
	return c
}

// Classify applies the cue rules with generative > thematic > factual
// precedence. Returns ErrAmbiguous when no category clears the floor.
func (c *Classifier) Classify(query string) (*Classification, error) {
	lower := strings.ToLower(query)
	result := &Classification{}

	if IsBlank(query) {
		result.Trace = append(result.Trace, "query carries no letters or digits")
		return result, ErrAmbiguous
	}

	result.ScopedEntity = c.detectScopedEntity(query)
	if result.ScopedEntity != "" {
		result.Trace = append(result.Trace,
			fmt.Sprintf("laureate name %q found, scoping retrieval", result.ScopedEntity))
	}

	genScore := c.scoreGenerative(lower, result)
	themScore := c.scoreThematic(lower, result)
	factScore := c.scoreFactual(lower, result)

	switch {
	case genScore >= confidenceFloor:
		result.Intent = Generative
		result.Confidence = genScore
	case themScore >= confidenceFloor:
		result.Intent = Thematic
		result.Confidence = themScore
	case factScore >= confidenceFloor:
		result.Intent = Factual
		result.Confidence = factScore
	default:
		result.Trace = append(result.Trace, "no cue category cleared the confidence floor")
		return result, ErrAmbiguous
	}

	result.Trace = append(result.Trace,
		fmt.Sprintf("classified as %s (confidence %.2f)", result.Intent, result.Confidence))
	return result, nil
}

func (c *Classifier) scoreGenerative(lower string, out *Classification) float64 {
	score := 0.0
	for _, v := range generativeVerbs {
		if hasWord(lower, v) {
			score += 0.45
			out.MatchedTerms = append(out.MatchedTerms, v)
			out.Trace = append(out.Trace, fmt.Sprintf("generative verb %q", v))
		}
	}
	if strings.Contains(lower, "in the style of") {
		score += 0.35
		out.MatchedTerms = append(out.MatchedTerms, "in the style of")
		out.Trace = append(out.Trace, `stylistic phrasing "in the style of"`)
	}
	return capScore(score)
}

func (c *Classifier) scoreThematic(lower string, out *Classification) float64 {
	var subject, verb string
	for _, s := range pluralSubjects {
		if hasWord(lower, s) {
			subject = s
			break
		}
	}
	for _, v := range reflectiveVerbs {
		if strings.Contains(lower, v) {
			verb = v
			break
		}
	}

	score := 0.0
	if subject != "" && verb != "" {
		score = 0.75
		out.MatchedTerms = append(out.MatchedTerms, subject, verb)
		out.Trace = append(out.Trace,
			fmt.Sprintf("plural subject %q with reflective verb %q", subject, verb))
	} else if subject != "" {
		score = 0.25
		out.Trace = append(out.Trace,
			fmt.Sprintf("plural subject %q without reflective verb", subject))
	}

	for _, n := range themeNouns {
		if hasWord(lower, n) {
			if score < 0.6 {
				score = 0.6
			}
			out.MatchedTerms = append(out.MatchedTerms, n)
			out.Trace = append(out.Trace, fmt.Sprintf("theme noun %q", n))
			break
		}
	}
	return capScore(score)
}

func (c *Classifier) scoreFactual(lower string, out *Classification) float64 {
	score := 0.0
	for _, cue := range factualCues {
		if strings.Contains(lower, cue) {
			score += 0.5
			out.MatchedTerms = append(out.MatchedTerms, strings.TrimSpace(cue))
			out.Trace = append(out.Trace, fmt.Sprintf("factual interrogative %q", strings.TrimSpace(cue)))
			break
		}
	}
	if score > 0 && containsYear(lower) {
		score += 0.2
		out.Trace = append(out.Trace, "explicit year in query")
	}
	return capScore(score)
}

// detectScopedEntity returns the first laureate name appearing in the
// query, preferring full names over last names.
func (c *Classifier) detectScopedEntity(query string) string {
	lower := strings.ToLower(query)
	for _, n := range c.fullNames {
		if strings.Contains(lower, strings.ToLower(n)) {
			return n
		}
	}
	for _, last := range c.lastNames {
		if hasWord(lower, strings.ToLower(last)) {
			// Map the last name back to the full name it came from.
			for _, full := range c.fullNames {
				if strings.HasSuffix(full, last) {
					return full
				}
			}
		}
	}
	return ""
}

// hasWord reports whether w appears as a whole word in lower.
func hasWord(lower, w string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isWordChar(lower[start-1])
		afterOK := end == len(lower) || !isWordChar(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func containsYear(s string) bool {
	run := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			run++
			if run == 4 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func capScore(s float64) float64 {
	if s > 0.95 {
		return 0.95
	}
	return s
}

// IsBlank reports whether a query carries no classifiable content: empty
// after stripping punctuation and whitespace.
func IsBlank(query string) bool {
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
