package intent

import (
	"errors"
	"testing"
)

var testNames = []string{
	"Toni Morrison",
	"Gabriel García Márquez",
	"Bob Dylan",
	"Olga Tokarczuk",
}

func TestClassify_Factual(t *testing.T) {
	c := NewClassifier(testNames)

	cls, err := c.Classify("Who won the Nobel Prize in Literature in 1982?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.Intent != Factual {
		t.Errorf("intent = %s, want factual", cls.Intent)
	}
	// Cue plus explicit year.
	if cls.Confidence < 0.7 {
		t.Errorf("confidence = %.2f, want >= 0.7", cls.Confidence)
	}
}

func TestClassify_Thematic(t *testing.T) {
	c := NewClassifier(testNames)

	for _, q := range []string{
		"What do laureates say about exile?",
		"How do the winners reflect on their childhood?",
		"What themes recur across the lectures?",
	} {
		cls, err := c.Classify(q)
		if err != nil {
			t.Fatalf("query %q: unexpected error: %v", q, err)
		}
		if cls.Intent != Thematic {
			t.Errorf("query %q: intent = %s, want thematic", q, cls.Intent)
		}
	}
}

func TestClassify_Generative(t *testing.T) {
	c := NewClassifier(testNames)

	cls, err := c.Classify("Write a short passage about rivers in the style of Toni Morrison")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.Intent != Generative {
		t.Errorf("intent = %s, want generative", cls.Intent)
	}
	if cls.ScopedEntity != "Toni Morrison" {
		t.Errorf("scoped entity = %q, want Toni Morrison", cls.ScopedEntity)
	}
}

func TestClassify_GenerativePrecedence(t *testing.T) {
	// Generative verb plus thematic frame: generative wins.
	c := NewClassifier(testNames)
	cls, err := c.Classify("Write about what laureates say about war")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.Intent != Generative {
		t.Errorf("intent = %s, want generative", cls.Intent)
	}
}

func TestClassify_Ambiguous(t *testing.T) {
	c := NewClassifier(testNames)

	for _, q := range []string{
		"banana",
		"the weather is nice today",
		"literature",
		"  ?!?  ",
	} {
		cls, err := c.Classify(q)
		if !errors.Is(err, ErrAmbiguous) {
			t.Errorf("query %q: err = %v, want ErrAmbiguous", q, err)
		}
		if cls == nil {
			t.Fatalf("query %q: classification should carry the trace even on error", q)
		}
	}
}

func TestClassify_ScopedEntityByLastName(t *testing.T) {
	c := NewClassifier(testNames)

	cls, err := c.Classify("What year did Morrison win the prize?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.Intent != Factual {
		t.Errorf("intent = %s, want factual", cls.Intent)
	}
	if cls.ScopedEntity != "Toni Morrison" {
		t.Errorf("scoped entity = %q, want Toni Morrison", cls.ScopedEntity)
	}
}

func TestClassify_ShortLastNameNotScoped(t *testing.T) {
	// "Dylan" qualifies (5 chars); a hypothetical 3-char name must not.
	c := NewClassifier([]string{"Ada Fu"})
	cls, _ := c.Classify("Who won in 1982 fu?")
	if cls.ScopedEntity != "" {
		t.Errorf("scoped entity = %q, want none for short last name", cls.ScopedEntity)
	}
}

func TestIsBlank(t *testing.T) {
	cases := []struct {
		query string
		blank bool
	}{
		{"", true},
		{"   ", true},
		{"?!...", true},
		{"a", false},
		{"1982", false},
		{"Olga Tokarczuk", false},
	}
	for _, tc := range cases {
		if got := IsBlank(tc.query); got != tc.blank {
			t.Errorf("IsBlank(%q) = %v, want %v", tc.query, got, tc.blank)
		}
	}
}

func TestHasWord(t *testing.T) {
	if !hasWord("the winners reflect", "winners") {
		t.Error("expected whole-word match")
	}
	if hasWord("prizewinners reflect", "winners") {
		t.Error("substring inside a word must not match")
	}
}
