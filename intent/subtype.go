package intent

import (
	"fmt"
	"strings"
)

// SubtypeResult is the thematic sub-classification.
type SubtypeResult struct {
	Subtype    Subtype  `json:"subtype"`
	Confidence float64  `json:"confidence"`
	Cues       []string `json:"cues"`
}

var (
	enumerativeCues = []string{"list ", "which ", "show "}
	analyticalCues  = []string{"compare", "contrast", "differ", " vs ", " versus "}
)

// DetectSubtype sub-classifies a thematic query. It scores each subtype's
// cues and picks the highest; ties resolve in the order synthesis,
// enumerative, analytical, exploratory. Only meaningful when the intent is
// thematic.
func DetectSubtype(query string) *SubtypeResult {
	lower := strings.ToLower(query)
	result := &SubtypeResult{Subtype: Exploratory, Confidence: 0.4}

	type candidate struct {
		subtype Subtype
		score   float64
		cue     string
	}
	var candidates []candidate

	// synthesis: the subject+verb frame ("how do laureates think about X").
	if subj, verb := thematicFrame(lower); subj != "" {
		candidates = append(candidates, candidate{
			Synthesis, 0.85, fmt.Sprintf("subject %q + verb %q frame", subj, verb),
		})
	}

	for _, cue := range enumerativeCues {
		if strings.Contains(lower, cue) {
			candidates = append(candidates, candidate{
				Enumerative, 0.7, fmt.Sprintf("enumerative cue %q", strings.TrimSpace(cue)),
			})
			break
		}
	}

	for _, cue := range analyticalCues {
		if strings.Contains(lower, cue) {
			candidates = append(candidates, candidate{
				Analytical, 0.75, fmt.Sprintf("analytical cue %q", strings.TrimSpace(cue)),
			})
			break
		}
	}

	if strings.HasPrefix(lower, "what") || strings.HasPrefix(lower, "how") {
		candidates = append(candidates, candidate{
			Exploratory, 0.5, "interrogative opener without stronger cue",
		})
	}

	// Highest score wins; earlier declaration order wins ties because the
	// comparison is strict.
	best := candidate{Exploratory, 0.4, "default exploratory"}
	for _, c := range candidates {
		if c.score > best.score {
			best = c
		}
	}

	result.Subtype = best.subtype
	result.Confidence = best.score
	for _, c := range candidates {
		result.Cues = append(result.Cues, c.cue)
	}
	if len(result.Cues) == 0 {
		result.Cues = []string{best.cue}
	}
	return result
}

// thematicFrame returns the plural subject and reflective verb if both are
// present, in that textual order.
func thematicFrame(lower string) (string, string) {
	var subj string
	var subjIdx int = -1
	for _, s := range pluralSubjects {
		if i := strings.Index(lower, s); i >= 0 {
			subj, subjIdx = s, i
			break
		}
	}
	if subj == "" {
		return "", ""
	}
	for _, v := range reflectiveVerbs {
		if i := strings.Index(lower, v); i > subjIdx {
			return subj, v
		}
	}
	return "", ""
}
