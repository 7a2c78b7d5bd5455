package recall

import (
	"context"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float32
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
	}
	for _, c := range cases {
		got := cosineSimilarity(c.a, c.b)
		if math.Abs(float64(got-c.want)) > 1e-6 {
			t.Fatalf("cosine(%v, %v) = %f, want %f", c.a, c.b, got, c.want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3.125}
	got := decodeFloat32s(encodeFloat32s(v))
	if len(got) != len(v) {
		t.Fatalf("length mismatch: %d", len(got))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("value %d mismatch: %f != %f", i, got[i], v[i])
		}
	}
	if decodeFloat32s([]byte{1, 2, 3}) != nil {
		t.Fatal("truncated blob should decode to nil")
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	s, err := Open(":memory:", 3)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	chunks := map[string][]float32{
		"exact":      {1, 0, 0},
		"close":      {0.9, 0.1, 0},
		"orthogonal": {0, 1, 0},
	}
	for id, vec := range chunks {
		if err := s.Upsert(ctx, id, vec, map[string]any{"content": id}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "exact" || results[1].ID != "close" {
		t.Fatalf("wrong ranking: %+v", results)
	}
}

func TestSearchSkipsDimensionMismatch(t *testing.T) {
	s, err := Open(":memory:", 2)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Upsert(ctx, "short", []float32{1}, map[string]any{"content": "short"}); err != nil {
		t.Fatal(err)
	}
	results, err := s.Search(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("mismatched dimension should be skipped: %+v", results)
	}
}
