package docindex

import (
	"context"
	"sort"
	"strings"
)

// Number of sections joined into tutoring context.
const ContextTopK = 3

// SearchResult is one scored section.
type SearchResult struct {
	SectionID  int64   `json:"section_id"`
	MaterialID string  `json:"material_id"`
	Heading    string  `json:"heading"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// Retriever performs similarity search over embedded sections.
type Retriever struct {
	index    *Index
	embedder Embedder
}

func NewRetriever(index *Index, embedder Embedder) *Retriever {
	return &Retriever{index: index, embedder: embedder}
}

// Search returns the topK most similar sections to the query.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	sections, err := r.index.ListEmbeddedSections()
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, section := range sections {
		vec := DecodeEmbedding(section.Embedding)
		if vec == nil {
			continue
		}

		results = append(results, SearchResult{
			SectionID:  section.ID,
			MaterialID: section.MaterialID,
			Heading:    section.Heading,
			Content:    section.Content,
			Score:      CosineSimilarity(queryVec, vec),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// RetrieveContext assembles tutoring context for a query: the top three
// matching sections joined by blank lines. An empty query retrieves
// nothing, and retrieval failures degrade to empty context rather than
// failing the chat turn.
func (r *Retriever) RetrieveContext(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}

	results, err := r.Search(ctx, query, ContextTopK)
	if err != nil {
		return ""
	}

	parts := make([]string, 0, len(results))
	for _, res := range results {
		parts = append(parts, res.Content)
	}
	return strings.Join(parts, "\n\n")
}
