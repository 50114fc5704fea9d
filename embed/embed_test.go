package embed

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > normTolerance {
		t.Errorf("norm = %f, want 1", math.Sqrt(sum))
	}

	// Repeated normalization leaves the vector untouched.
	before := make([]float32, len(v))
	copy(before, v)
	Normalize(v)
	if !reflect.DeepEqual(before, v) {
		t.Error("normalize is not idempotent")
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	if !reflect.DeepEqual(v, []float32{0, 0, 0}) {
		t.Errorf("zero vector changed: %v", v)
	}
}

func TestCosine(t *testing.T) {
	a := Normalize([]float32{1, 0})
	b := Normalize([]float32{1, 0})
	if got := Cosine(a, b); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("identical vectors: cosine = %f, want 1", got)
	}

	c := Normalize([]float32{0, 1})
	if got := Cosine(a, c); math.Abs(got) > 1e-6 {
		t.Errorf("orthogonal vectors: cosine = %f, want 0", got)
	}

	if got := Cosine(a, []float32{1, 0, 0}); got != 0 {
		t.Errorf("mismatched dimensions: cosine = %f, want 0", got)
	}
}

func TestLocal_Deterministic(t *testing.T) {
	l := NewLocal(256)
	ctx := context.Background()

	a, err := l.Embed(ctx, "what do laureates say about exile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := l.Embed(ctx, "what do laureates say about exile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same text produced different embeddings")
	}
	if len(a) != 256 {
		t.Errorf("dimension = %d, want 256", len(a))
	}

	c, _ := l.Embed(ctx, "completely different text about music")
	if reflect.DeepEqual(a, c) {
		t.Error("different texts produced identical embeddings")
	}
}

func TestLocal_UnitNorm(t *testing.T) {
	l := NewLocal(128)
	v, err := l.Embed(context.Background(), "memory and silence")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > normTolerance {
		t.Errorf("norm = %f, want 1", math.Sqrt(sum))
	}
}

func TestLocal_EmptyText(t *testing.T) {
	l := NewLocal(64)
	if _, err := l.Embed(context.Background(), ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestLocal_BatchTooLarge(t *testing.T) {
	l := NewLocal(64)
	texts := make([]string, MaxBatchSize+1)
	for i := range texts {
		texts[i] = "text"
	}
	if _, err := l.EmbedBatch(context.Background(), texts); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("err = %v, want ErrBatchTooLarge", err)
	}
}

func TestLocal_BatchOrder(t *testing.T) {
	l := NewLocal(64)
	ctx := context.Background()
	texts := []string{"first text", "second text", "third text"}

	batch, err := l.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("got %d embeddings, want %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, _ := l.Embed(ctx, text)
		if !reflect.DeepEqual(batch[i], single) {
			t.Errorf("batch[%d] differs from single embedding of %q", i, text)
		}
	}
}
