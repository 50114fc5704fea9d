package metadata

import (
	"fmt"
	"regexp"
	"strings"
)

// Answer is a factual result resolved entirely from laureate metadata.
type Answer struct {
	Answer     string `json:"answer"`
	RuleName   string `json:"rule_name"`
	AnswerType string `json:"answer_type"`

	// Structured fields for the metadata_answer response block. Set only
	// when the rule resolves a single laureate.
	Laureate        string `json:"laureate,omitempty"`
	YearAwarded     int    `json:"year_awarded,omitempty"`
	Country         string `json:"country,omitempty"`
	Category        string `json:"category,omitempty"`
	PrizeMotivation string `json:"prize_motivation,omitempty"`
}

// Handler resolves a regex match against the laureate table. Handlers never
// fail; returning ok=false means the rule cannot answer (e.g. unknown name)
// and scanning continues.
type Handler func(match []string, s *Store) (*Answer, bool)

// Rule pairs a case-insensitive pattern with its handler. First match wins
// in registry order.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Handler Handler
}

// Registry is the ordered factual rule list.
type Registry struct {
	rules []Rule
}

// Match scans the rules in order and invokes the handler of the first
// pattern that matches. Returns nil when no rule answers.
func (r *Registry) Match(query string, s *Store) *Answer {
	for _, rule := range r.rules {
		m := rule.Pattern.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		ans, ok := rule.Handler(m, s)
		if !ok {
			continue
		}
		ans.RuleName = rule.Name
		ans.AnswerType = "metadata"
		return ans
	}
	return nil
}

// Rules exposes the registry order, for diagnostics.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// trimName cleans a captured name fragment.
func trimName(s string) string {
	return strings.Trim(strings.TrimSpace(s), "?.!,'\"")
}

// single returns the first laureate matching name, preferring an exact
// full-name match over a last-name match.
func single(s *Store, name string) (Laureate, bool) {
	matches := s.FindByName(trimName(name))
	if len(matches) == 0 {
		return Laureate{}, false
	}
	return matches[0], true
}

// genderOf maps cue words to the stored gender values.
func genderOf(word string) string {
	switch strings.ToLower(word) {
	case "woman", "female", "women":
		return "female"
	default:
		return "male"
	}
}

// joinNames renders laureate names as "A", "A and B", or "A, B and C".
func joinNames(ls []Laureate) string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.FullName
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// NewRegistry builds the default factual rule set, in precedence order.
// Patterns are tested case-insensitively; handlers return deterministic
// strings.
func NewRegistry() *Registry {
	return &Registry{rules: []Rule{
		{
			Name:    "count-women-since-year",
			Pattern: regexp.MustCompile(`(?i)how many women\b.*?\bsince\s+(\d{4})`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				since := atoi(m[1])
				count := 0
				for _, l := range s.Laureates() {
					if l.Gender == "female" && l.YearAwarded >= since {
						count++
					}
				}
				return &Answer{
					Answer: fmt.Sprintf("%d women have won the Nobel Prize in Literature since %d.", count, since),
				}, true
			},
		},
		{
			Name:    "count-laureates-from-country",
			Pattern: regexp.MustCompile(`(?i)how many (?:laureates|winners|writers|authors)\b.*?\bfrom\s+(.+?)[?.!]?$`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				country := trimName(m[1])
				count := 0
				for _, l := range s.Laureates() {
					if strings.EqualFold(l.Country, country) {
						count++
					}
				}
				return &Answer{
					Answer:  fmt.Sprintf("%d laureates are from %s.", count, country),
					Country: country,
				}, true
			},
		},
		{
			Name:    "first-last-gender-laureate",
			Pattern: regexp.MustCompile(`(?i)\b(first|last)\s+(woman|female|man|male)\b`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				gender := genderOf(m[2])
				var pool []Laureate
				for _, l := range s.Laureates() {
					if l.Gender == gender {
						pool = append(pool, l)
					}
				}
				if len(pool) == 0 {
					return nil, false
				}
				ordered := sortByYear(pool, strings.EqualFold(m[1], "last"))
				pick := ordered[0]
				label := "female"
				if gender == "male" {
					label = "male"
				}
				return &Answer{
					Answer: fmt.Sprintf("The %s %s laureate was %s in %d.",
						strings.ToLower(m[1]), label, pick.FullName, pick.YearAwarded),
					Laureate:    pick.FullName,
					YearAwarded: pick.YearAwarded,
					Country:     pick.Country,
					Category:    pick.Category,
				}, true
			},
		},
		{
			Name:    "first-last-country-laureate",
			Pattern: regexp.MustCompile(`(?i)\b(first|last)\s+(?:laureate|winner)\s+from\s+(.+?)[?.!]?$`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				country := trimName(m[2])
				var pool []Laureate
				for _, l := range s.Laureates() {
					if strings.EqualFold(l.Country, country) {
						pool = append(pool, l)
					}
				}
				if len(pool) == 0 {
					return nil, false
				}
				ordered := sortByYear(pool, strings.EqualFold(m[1], "last"))
				pick := ordered[0]
				return &Answer{
					Answer: fmt.Sprintf("The %s laureate from %s was %s in %d.",
						strings.ToLower(m[1]), pick.Country, pick.FullName, pick.YearAwarded),
					Laureate:    pick.FullName,
					YearAwarded: pick.YearAwarded,
					Country:     pick.Country,
					Category:    pick.Category,
				}, true
			},
		},
		{
			Name:    "most-awarded-country",
			Pattern: regexp.MustCompile(`(?i)which country\b.*\bmost\b`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				counts := map[string]int{}
				for _, l := range s.Laureates() {
					if l.Country != "" {
						counts[l.Country]++
					}
				}
				best, bestN := "", 0
				for c, n := range counts {
					if n > bestN || (n == bestN && c < best) {
						best, bestN = c, n
					}
				}
				if best == "" {
					return nil, false
				}
				return &Answer{
					Answer:  fmt.Sprintf("%s has the most Nobel laureates in Literature with %d.", best, bestN),
					Country: best,
				}, true
			},
		},
		{
			Name:    "years-with-no-award",
			Pattern: regexp.MustCompile(`(?i)years\b.*\b(?:no|without|not)\b.*\b(?:award|prize|awarded)`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				missing := s.NoAwardYears()
				if len(missing) == 0 {
					return &Answer{Answer: "The Nobel Prize in Literature was awarded every year on record."}, true
				}
				parts := make([]string, len(missing))
				for i, y := range missing {
					parts[i] = fmt.Sprintf("%d", y)
				}
				return &Answer{
					Answer: fmt.Sprintf("No Nobel Prize in Literature was awarded in: %s.", strings.Join(parts, ", ")),
				}, true
			},
		},
		{
			Name:    "winner-in-year",
			Pattern: regexp.MustCompile(`(?i)\bwho\b.*\b(?:won|received|was awarded)\b.*\b(\d{4})\b`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				year := atoi(m[1])
				winners := s.ByYear(year)
				if len(winners) == 0 {
					return &Answer{
						Answer:      fmt.Sprintf("No Nobel Prize in Literature was awarded in %d.", year),
						YearAwarded: year,
					}, true
				}
				ans := &Answer{
					Answer: fmt.Sprintf("The Nobel Prize in Literature in %d was awarded to %s.",
						year, joinNames(winners)),
					YearAwarded: year,
				}
				if len(winners) == 1 {
					ans.Laureate = winners[0].FullName
					ans.Country = winners[0].Country
					ans.Category = winners[0].Category
				}
				return ans, true
			},
		},
		{
			Name:    "award-year-by-name",
			Pattern: regexp.MustCompile(`(?i)\b(?:what year|when)\s+did\s+(.+?)\s+(?:win|receive|get)\b`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				l, ok := single(s, m[1])
				if !ok {
					return nil, false
				}
				return &Answer{
					Answer:      fmt.Sprintf("%s won the Nobel Prize in Literature in %d.", l.FullName, l.YearAwarded),
					Laureate:    l.FullName,
					YearAwarded: l.YearAwarded,
					Country:     l.Country,
					Category:    l.Category,
				}, true
			},
		},
		{
			Name:    "country-of-laureate",
			Pattern: regexp.MustCompile(`(?i)\b(?:what country|where)\s+(?:is|was)\s+(.+?)\s+from\b`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				l, ok := single(s, m[1])
				if !ok {
					return nil, false
				}
				return &Answer{
					Answer:      fmt.Sprintf("%s was from %s.", l.FullName, l.Country),
					Laureate:    l.FullName,
					YearAwarded: l.YearAwarded,
					Country:     l.Country,
					Category:    l.Category,
				}, true
			},
		},
		{
			Name:    "prize-motivation-by-name",
			Pattern: regexp.MustCompile(`(?i)(?:why did\s+(.+?)\s+win\b|motivation\s+for\s+(.+?)[?.!]?$)`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				name := m[1]
				if name == "" {
					name = m[2]
				}
				l, ok := single(s, name)
				if !ok {
					return nil, false
				}
				return &Answer{
					Answer: fmt.Sprintf("%s won the Nobel Prize in Literature %d %s", l.FullName,
						l.YearAwarded, motivationClause(l.PrizeMotivation)),
					Laureate:        l.FullName,
					YearAwarded:     l.YearAwarded,
					Country:         l.Country,
					Category:        l.Category,
					PrizeMotivation: l.PrizeMotivation,
				}, true
			},
		},
		{
			Name:    "birth-date-by-name",
			Pattern: regexp.MustCompile(`(?i)\bwhen\s+was\s+(.+?)\s+born\b`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				l, ok := single(s, m[1])
				if !ok {
					return nil, false
				}
				if l.DateOfBirth == "" {
					return &Answer{
						Answer:   fmt.Sprintf("No birth date is recorded for %s.", l.FullName),
						Laureate: l.FullName,
					}, true
				}
				return &Answer{
					Answer:      fmt.Sprintf("%s was born on %s.", l.FullName, l.DateOfBirth),
					Laureate:    l.FullName,
					YearAwarded: l.YearAwarded,
					Country:     l.Country,
					Category:    l.Category,
				}, true
			},
		},
		{
			Name:    "death-date-by-name",
			Pattern: regexp.MustCompile(`(?i)\bwhen\s+did\s+(.+?)\s+die\b`),
			Handler: func(m []string, s *Store) (*Answer, bool) {
				l, ok := single(s, m[1])
				if !ok {
					return nil, false
				}
				if l.DateOfDeath == "" {
					return &Answer{
						Answer:   fmt.Sprintf("No death date is recorded for %s.", l.FullName),
						Laureate: l.FullName,
					}, true
				}
				return &Answer{
					Answer:      fmt.Sprintf("%s died on %s.", l.FullName, l.DateOfDeath),
					Laureate:    l.FullName,
					YearAwarded: l.YearAwarded,
					Country:     l.Country,
					Category:    l.Category,
				}, true
			},
		},
	}}
}

// motivationClause renders a prize motivation as a quoted clause, keeping
// the original wording.
func motivationClause(motivation string) string {
	m := strings.TrimSpace(motivation)
	if m == "" {
		return "for their literary work."
	}
	if !strings.HasSuffix(m, ".") {
		m += "."
	}
	return "“" + m + "”"
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
