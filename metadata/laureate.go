// Package metadata holds the flattened laureate records and the factual
// query registry that answers metadata questions without retrieval.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Laureate is a flat record for one prize recipient. A laureate belongs to
// exactly one year/category pair.
type Laureate struct {
	FullName        string `json:"full_name"`
	LastName        string `json:"last_name"`
	YearAwarded     int    `json:"year_awarded"`
	Category        string `json:"category"`
	Gender          string `json:"gender"` // female, male, unknown
	Country         string `json:"country"`
	PlaceOfBirth    string `json:"place_of_birth"`
	DateOfBirth     string `json:"date_of_birth"`
	DateOfDeath     string `json:"date_of_death,omitempty"`
	PrizeMotivation string `json:"prize_motivation"`
	Declined        bool   `json:"declined"`
	CitedWork       bool   `json:"cited_work"`
	CitedWorkTitle  string `json:"cited_work_title,omitempty"`
	Language        string `json:"language"`
	LifeBlurb       string `json:"life_blurb"`
	WorkBlurb       string `json:"work_blurb"`
	LectureTitle    string `json:"nobel_lecture_title,omitempty"`
	LectureRef      string `json:"lecture_ref,omitempty"`
	CeremonyRef     string `json:"ceremony_ref,omitempty"`
	AcceptanceRef   string `json:"acceptance_ref,omitempty"`
}

// YearRecord is one entry of the nested on-disk metadata layout.
type YearRecord struct {
	YearAwarded int        `json:"year_awarded"`
	Category    string     `json:"category"`
	Laureates   []Laureate `json:"laureates"`
}

// Store is the immutable laureate table, loaded once at start and shared
// read-only across concurrent queries.
type Store struct {
	laureates []Laureate
	minYear   int
	maxYear   int
}

// Load reads the nested year→laureates JSON file and flattens it.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading laureate metadata: %w", err)
	}

	var records []YearRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing laureate metadata: %w", err)
	}

	return NewStore(Flatten(records)), nil
}

// Flatten turns year records into the flat laureate list, copying year and
// category onto each record. Idempotent under equal input bytes.
func Flatten(records []YearRecord) []Laureate {
	var out []Laureate
	for _, rec := range records {
		for _, l := range rec.Laureates {
			l.YearAwarded = rec.YearAwarded
			l.Category = rec.Category
			if l.LastName == "" {
				parts := strings.Fields(l.FullName)
				if len(parts) > 0 {
					l.LastName = parts[len(parts)-1]
				}
			}
			out = append(out, l)
		}
	}
	return out
}

// NewStore builds a Store over an already-flat laureate list.
func NewStore(laureates []Laureate) *Store {
	s := &Store{laureates: laureates}
	for _, l := range laureates {
		if s.minYear == 0 || l.YearAwarded < s.minYear {
			s.minYear = l.YearAwarded
		}
		if l.YearAwarded > s.maxYear {
			s.maxYear = l.YearAwarded
		}
	}
	return s
}

// Laureates returns the flat record list. Callers must not mutate it.
func (s *Store) Laureates() []Laureate {
	return s.laureates
}

// Names returns every full name, for scoped-entity detection.
func (s *Store) Names() []string {
	names := make([]string, len(s.laureates))
	for i, l := range s.laureates {
		names[i] = l.FullName
	}
	return names
}

// YearRange returns the earliest and latest award years present.
func (s *Store) YearRange() (int, int) {
	return s.minYear, s.maxYear
}

// FindByName returns laureates whose full or last name equals name,
// case-insensitively.
func (s *Store) FindByName(name string) []Laureate {
	name = strings.TrimSpace(name)
	var out []Laureate
	for _, l := range s.laureates {
		if strings.EqualFold(l.FullName, name) || strings.EqualFold(l.LastName, name) {
			out = append(out, l)
		}
	}
	return out
}

// ByYear returns the laureates awarded in a given year, name ascending.
func (s *Store) ByYear(year int) []Laureate {
	var out []Laureate
	for _, l := range s.laureates {
		if l.YearAwarded == year {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// NoAwardYears returns the years in [minYear..maxYear] with no laureate,
// ascending.
func (s *Store) NoAwardYears() []int {
	awarded := make(map[int]bool, len(s.laureates))
	for _, l := range s.laureates {
		awarded[l.YearAwarded] = true
	}
	var missing []int
	for y := s.minYear; y <= s.maxYear; y++ {
		if !awarded[y] {
			missing = append(missing, y)
		}
	}
	return missing
}

// sortByYear orders laureates by year ascending (or descending), breaking
// ties by full name ascending. Used by the first/last rules.
func sortByYear(ls []Laureate, descending bool) []Laureate {
	out := make([]Laureate, len(ls))
	copy(out, ls)
	sort.Slice(out, func(i, j int) bool {
		if out[i].YearAwarded != out[j].YearAwarded {
			if descending {
				return out[i].YearAwarded > out[j].YearAwarded
			}
			return out[i].YearAwarded < out[j].YearAwarded
		}
		return out[i].FullName < out[j].FullName
	})
	return out
}
