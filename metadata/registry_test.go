package metadata

import (
	"strings"
	"testing"
)

func testStore() *Store {
	return NewStore([]Laureate{
		{
			FullName: "Selma Lagerlöf", LastName: "Lagerlöf", YearAwarded: 1909,
			Category: "Literature", Gender: "female", Country: "Sweden",
			DateOfBirth: "1858-11-20", DateOfDeath: "1940-03-16",
			PrizeMotivation: "in appreciation of the lofty idealism, vivid imagination and spiritual perception that characterize her writings",
		},
		{
			FullName: "Gabriel García Márquez", LastName: "Márquez", YearAwarded: 1982,
			Category: "Literature", Gender: "male", Country: "Colombia",
			DateOfBirth: "1927-03-06", DateOfDeath: "2014-04-17",
			PrizeMotivation: "for his novels and short stories, in which the fantastic and the realistic are combined",
		},
		{
			FullName: "Toni Morrison", LastName: "Morrison", YearAwarded: 1993,
			Category: "Literature", Gender: "female", Country: "USA",
			DateOfBirth: "1931-02-18", DateOfDeath: "2019-08-05",
			PrizeMotivation: "who in novels characterized by visionary force and poetic import, gives life to an essential aspect of American reality",
		},
		{
			FullName: "Bob Dylan", LastName: "Dylan", YearAwarded: 2016,
			Category: "Literature", Gender: "male", Country: "USA",
			PrizeMotivation: "for having created new poetic expressions within the great American song tradition",
		},
		{
			FullName: "Olga Tokarczuk", LastName: "Tokarczuk", YearAwarded: 2018,
			Category: "Literature", Gender: "female", Country: "Poland",
			PrizeMotivation: "for a narrative imagination that with encyclopedic passion represents the crossing of boundaries as a form of life",
		},
	})
}

func TestRegistry_WinnerInYear(t *testing.T) {
	reg := NewRegistry()
	s := testStore()

	ans := reg.Match("Who won the Nobel Prize in Literature in 1982?", s)
	if ans == nil {
		t.Fatal("expected a metadata answer")
	}
	if ans.RuleName != "winner-in-year" {
		t.Errorf("rule = %q, want winner-in-year", ans.RuleName)
	}
	want := "The Nobel Prize in Literature in 1982 was awarded to Gabriel García Márquez."
	if ans.Answer != want {
		t.Errorf("answer = %q, want %q", ans.Answer, want)
	}
	if ans.Laureate != "Gabriel García Márquez" || ans.Country != "Colombia" {
		t.Errorf("structured fields = %q/%q", ans.Laureate, ans.Country)
	}
	if ans.AnswerType != "metadata" {
		t.Errorf("answer_type = %q, want metadata", ans.AnswerType)
	}
}

func TestRegistry_WinnerInYearNoAward(t *testing.T) {
	ans := NewRegistry().Match("Who received the prize in 1935?", testStore())
	if ans == nil {
		t.Fatal("expected a metadata answer")
	}
	if !strings.Contains(ans.Answer, "No Nobel Prize in Literature was awarded in 1935") {
		t.Errorf("answer = %q", ans.Answer)
	}
}

func TestRegistry_AwardYearByName(t *testing.T) {
	reg := NewRegistry()
	s := testStore()

	for _, q := range []string{
		"What year did Toni Morrison win the Nobel Prize?",
		"When did Morrison receive the prize?",
	} {
		ans := reg.Match(q, s)
		if ans == nil {
			t.Fatalf("query %q: expected an answer", q)
		}
		want := "Toni Morrison won the Nobel Prize in Literature in 1993."
		if ans.Answer != want {
			t.Errorf("query %q: answer = %q, want %q", q, ans.Answer, want)
		}
	}
}

func TestRegistry_CountWomenSinceYear(t *testing.T) {
	ans := NewRegistry().Match("How many women have won the prize since 1990?", testStore())
	if ans == nil {
		t.Fatal("expected a metadata answer")
	}
	want := "2 women have won the Nobel Prize in Literature since 1990."
	if ans.Answer != want {
		t.Errorf("answer = %q, want %q", ans.Answer, want)
	}
}

func TestRegistry_FirstFemaleLaureate(t *testing.T) {
	ans := NewRegistry().Match("Who was the first woman to win?", testStore())
	if ans == nil {
		t.Fatal("expected a metadata answer")
	}
	if !strings.Contains(ans.Answer, "Selma Lagerlöf") || !strings.Contains(ans.Answer, "1909") {
		t.Errorf("answer = %q", ans.Answer)
	}
}

func TestRegistry_LastMaleLaureate(t *testing.T) {
	ans := NewRegistry().Match("Who was the last male laureate?", testStore())
	if ans == nil {
		t.Fatal("expected a metadata answer")
	}
	if ans.Laureate != "Bob Dylan" || ans.YearAwarded != 2016 {
		t.Errorf("got %q in %d", ans.Laureate, ans.YearAwarded)
	}
}

func TestRegistry_CountryRules(t *testing.T) {
	reg := NewRegistry()
	s := testStore()

	ans := reg.Match("How many laureates are from USA?", s)
	if ans == nil || ans.Answer != "2 laureates are from USA." {
		t.Fatalf("country count answer = %+v", ans)
	}

	ans = reg.Match("Who was the first winner from USA?", s)
	if ans == nil || ans.Laureate != "Toni Morrison" {
		t.Fatalf("first-from-country answer = %+v", ans)
	}

	ans = reg.Match("Which country has produced the most laureates?", s)
	if ans == nil || ans.Country != "USA" {
		t.Fatalf("most-awarded-country answer = %+v", ans)
	}
}

func TestRegistry_CountryOfLaureate(t *testing.T) {
	ans := NewRegistry().Match("What country was Olga Tokarczuk from?", testStore())
	if ans == nil {
		t.Fatal("expected a metadata answer")
	}
	if ans.Answer != "Olga Tokarczuk was from Poland." {
		t.Errorf("answer = %q", ans.Answer)
	}
}

func TestRegistry_Motivation(t *testing.T) {
	ans := NewRegistry().Match("Why did Bob Dylan win the Nobel Prize?", testStore())
	if ans == nil {
		t.Fatal("expected a metadata answer")
	}
	if !strings.Contains(ans.Answer, "new poetic expressions") {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.PrizeMotivation == "" {
		t.Error("expected structured motivation field")
	}
}

func TestRegistry_BirthAndDeathDates(t *testing.T) {
	reg := NewRegistry()
	s := testStore()

	ans := reg.Match("When was Gabriel García Márquez born?", s)
	if ans == nil || ans.Answer != "Gabriel García Márquez was born on 1927-03-06." {
		t.Fatalf("birth answer = %+v", ans)
	}

	ans = reg.Match("When did Toni Morrison die?", s)
	if ans == nil || ans.Answer != "Toni Morrison died on 2019-08-05." {
		t.Fatalf("death answer = %+v", ans)
	}

	// No recorded death date.
	ans = reg.Match("When did Olga Tokarczuk die?", s)
	if ans == nil || !strings.Contains(ans.Answer, "No death date is recorded") {
		t.Fatalf("missing-death answer = %+v", ans)
	}
}

func TestRegistry_UnknownNameFallsThrough(t *testing.T) {
	ans := NewRegistry().Match("What year did Jorge Luis Borges win the prize?", testStore())
	if ans != nil {
		t.Errorf("expected nil for unknown laureate, got %+v", ans)
	}
}

func TestRegistry_NoMatch(t *testing.T) {
	ans := NewRegistry().Match("What do laureates say about exile?", testStore())
	if ans != nil {
		t.Errorf("expected nil for thematic query, got %+v", ans)
	}
}

func TestRegistry_Deterministic(t *testing.T) {
	reg := NewRegistry()
	s := testStore()
	q := "Who won the Nobel Prize in Literature in 1993?"

	first := reg.Match(q, s)
	for i := 0; i < 5; i++ {
		again := reg.Match(q, s)
		if again.Answer != first.Answer || again.RuleName != first.RuleName {
			t.Fatalf("answer changed across runs: %q vs %q", first.Answer, again.Answer)
		}
	}
}
