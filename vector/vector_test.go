package vector

import (
	"errors"
	"testing"
)

func TestSortStable(t *testing.T) {
	results := []ScoredChunk{
		{Chunk: Chunk{ChunkID: "c"}, Score: 0.5},
		{Chunk: Chunk{ChunkID: "a"}, Score: 0.9},
		{Chunk: Chunk{ChunkID: "b"}, Score: 0.5},
		{Chunk: Chunk{ChunkID: "d"}, Score: 0.7},
	}
	SortStable(results)

	want := []string{"a", "d", "b", "c"}
	for i, id := range want {
		if results[i].ChunkID != id {
			t.Errorf("position %d = %s, want %s", i, results[i].ChunkID, id)
		}
		if results[i].Rank != i {
			t.Errorf("rank for %s = %d, want %d", results[i].ChunkID, results[i].Rank, i)
		}
	}
}

func TestSortStable_Empty(t *testing.T) {
	SortStable(nil)
	SortStable([]ScoredChunk{})
}

func TestValidateFilters(t *testing.T) {
	valid := Filters{"laureate": "Toni Morrison", "year": "1993", "source_type": SourceNobelLecture}
	if err := ValidateFilters(valid); err != nil {
		t.Errorf("valid filters rejected: %v", err)
	}
	if err := ValidateFilters(nil); err != nil {
		t.Errorf("nil filters rejected: %v", err)
	}

	invalid := Filters{"laureate": "Toni Morrison", "publisher": "Knopf"}
	err := ValidateFilters(invalid)
	if !errors.Is(err, ErrUnsupportedFilterField) {
		t.Errorf("err = %v, want ErrUnsupportedFilterField", err)
	}
}

func TestIndexedFields(t *testing.T) {
	fields := IndexedFields()
	if len(fields) != len(indexedFields) {
		t.Fatalf("IndexedFields has %d entries, map has %d", len(fields), len(indexedFields))
	}
	for _, f := range fields {
		if !indexedFields[f] {
			t.Errorf("field %q not in the indexed set", f)
		}
	}
}

func TestPointID(t *testing.T) {
	a := PointID("morrison_lecture_0003")
	b := PointID("morrison_lecture_0003")
	if a != b {
		t.Error("point id must be stable for the same chunk id")
	}
	if a == PointID("morrison_lecture_0004") {
		t.Error("distinct chunk ids must map to distinct point ids")
	}
	if len(a) != 36 {
		t.Errorf("point id %q is not a canonical UUID", a)
	}
}
