package metadata

import (
	"reflect"
	"testing"
)

func TestFlatten(t *testing.T) {
	records := []YearRecord{
		{YearAwarded: 1982, Category: "Literature", Laureates: []Laureate{
			{FullName: "Gabriel García Márquez"},
		}},
		{YearAwarded: 1904, Category: "Literature", Laureates: []Laureate{
			{FullName: "Frédéric Mistral"},
			{FullName: "José Echegaray"},
		}},
	}

	flat := Flatten(records)
	if len(flat) != 3 {
		t.Fatalf("got %d laureates, want 3", len(flat))
	}
	if flat[0].YearAwarded != 1982 || flat[0].Category != "Literature" {
		t.Errorf("year/category not copied down: %+v", flat[0])
	}
	if flat[0].LastName != "Márquez" {
		t.Errorf("last name = %q, want Márquez", flat[0].LastName)
	}
	// Shared-year records each get the year.
	if flat[1].YearAwarded != 1904 || flat[2].YearAwarded != 1904 {
		t.Errorf("shared year not copied: %+v %+v", flat[1], flat[2])
	}

	// Same input, same output.
	again := Flatten(records)
	if !reflect.DeepEqual(flat, again) {
		t.Error("flatten is not deterministic")
	}
}

func TestFindByName(t *testing.T) {
	s := testStore()

	if got := s.FindByName("toni morrison"); len(got) != 1 {
		t.Errorf("full-name lookup got %d matches", len(got))
	}
	if got := s.FindByName("Morrison"); len(got) != 1 {
		t.Errorf("last-name lookup got %d matches", len(got))
	}
	if got := s.FindByName("Hemingway"); len(got) != 0 {
		t.Errorf("unknown name got %d matches", len(got))
	}
}

func TestByYearOrdering(t *testing.T) {
	s := NewStore([]Laureate{
		{FullName: "Nelly Sachs", YearAwarded: 1966},
		{FullName: "Shmuel Agnon", YearAwarded: 1966},
	})
	got := s.ByYear(1966)
	if len(got) != 2 {
		t.Fatalf("got %d laureates", len(got))
	}
	if got[0].FullName != "Nelly Sachs" || got[1].FullName != "Shmuel Agnon" {
		t.Errorf("shared year not name-ascending: %q, %q", got[0].FullName, got[1].FullName)
	}
}

func TestNoAwardYears(t *testing.T) {
	s := NewStore([]Laureate{
		{FullName: "A", YearAwarded: 2014},
		{FullName: "B", YearAwarded: 2016},
		{FullName: "C", YearAwarded: 2017},
	})
	got := s.NoAwardYears()
	if !reflect.DeepEqual(got, []int{2015}) {
		t.Errorf("no-award years = %v, want [2015]", got)
	}
}

func TestYearRange(t *testing.T) {
	minYear, maxYear := testStore().YearRange()
	if minYear != 1909 || maxYear != 2018 {
		t.Errorf("range = %d..%d, want 1909..2018", minYear, maxYear)
	}
}
