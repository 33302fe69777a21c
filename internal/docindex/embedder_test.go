package docindex

import (
	"context"
	"testing"
)

func TestKeywordEmbedderSimilarity(t *testing.T) {
	e := NewKeywordEmbedder(256)
	ctx := context.Background()

	query, err := e.Embed(ctx, "binary search trees")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	related, _ := e.Embed(ctx, "a binary search tree stores ordered keys")
	unrelated, _ := e.Embed(ctx, "the french revolution began in 1789")

	simRelated := CosineSimilarity(query, related)
	simUnrelated := CosineSimilarity(query, unrelated)
	if simRelated <= simUnrelated {
		t.Errorf("related similarity %v not above unrelated %v", simRelated, simUnrelated)
	}
}

func TestKeywordEmbedderNormalized(t *testing.T) {
	e := NewKeywordEmbedder(64)
	vec, _ := e.Embed(context.Background(), "sorting algorithms and complexity")

	var sum float32
	for _, v := range vec {
		sum += v * v
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("vector norm^2 = %v, want 1", sum)
	}
}

func TestKeywordEmbedderEmptyText(t *testing.T) {
	e := NewKeywordEmbedder(64)
	vec, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	for _, v := range vec {
		if v != 0 {
			t.Fatal("empty text should embed to zero vector")
		}
	}
}

func TestEncodeDecodeEmbedding(t *testing.T) {
	vec := []float32{0.1, -0.5, 3.25, 0}

	decoded := DecodeEmbedding(EncodeEmbedding(vec))
	if len(decoded) != len(vec) {
		t.Fatalf("decoded length %d, want %d", len(decoded), len(vec))
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, decoded[i], vec[i])
		}
	}
}

func TestDecodeEmbeddingBadLength(t *testing.T) {
	if DecodeEmbedding([]byte{1, 2, 3}) != nil {
		t.Error("expected nil for truncated data")
	}
}

func TestCosineSimilarityEdges(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("mismatched lengths = %v, want 0", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{0, 0}); got != 0 {
		t.Errorf("zero vectors = %v, want 0", got)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Binary-Search Trees, 2nd edition!")
	want := []string{"binary", "search", "trees", "2nd", "edition"}
	if len(got) != len(want) {
		t.Fatalf("tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
