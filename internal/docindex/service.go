package docindex

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Service runs the indexing pipeline over a materials directory and
// answers retrieval queries against the result.
type Service struct {
	index     *Index
	retriever *Retriever
	embedder  Embedder
	logger    *slog.Logger
}

func NewService(db *sql.DB, embedder Embedder, logger *slog.Logger) *Service {
	if embedder == nil {
		embedder = NewKeywordEmbedder(256)
	}
	if logger == nil {
		logger = slog.Default()
	}
	idx := NewIndex(db)

	return &Service{
		index:     idx,
		retriever: NewRetriever(idx, embedder),
		embedder:  embedder,
		logger:    logger,
	}
}

// IndexResult summarizes one indexing run.
type IndexResult struct {
	MaterialsFound   int `json:"materials_found"`
	MaterialsIndexed int `json:"materials_indexed"`
	MaterialsSkipped int `json:"materials_skipped"`
	SectionsEmbedded int `json:"sections_embedded"`
	Errors           int `json:"errors"`
}

// IndexDirectory discovers and indexes materials under basePath. Files
// whose content hash is already stored are skipped.
func (s *Service) IndexDirectory(ctx context.Context, basePath string) (*IndexResult, error) {
	result := &IndexResult{}

	materials, err := NewDiscoverer(basePath).Discover(DefaultDiscoverOptions())
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	result.MaterialsFound = len(materials)

	for i := range materials {
		m := &materials[i]

		if s.index.MaterialExists(m.Hash) {
			result.MaterialsSkipped++
			continue
		}

		if err := s.index.SaveMaterial(m); err != nil {
			s.logger.Error("failed to save material", "path", m.Path, "error", err)
			result.Errors++
			continue
		}
		result.MaterialsIndexed++

		embedded, err := s.embedSections(ctx, m.Hash)
		if err != nil {
			s.logger.Error("failed to embed sections", "path", m.Path, "error", err)
			result.Errors++
			continue
		}
		result.SectionsEmbedded += embedded

		s.index.MarkIndexed(m.Hash)
	}

	return result, nil
}

func (s *Service) embedSections(ctx context.Context, materialID string) (int, error) {
	sections, err := s.index.ListUnindexedSections()
	if err != nil {
		return 0, err
	}

	var toEmbed []SectionRow
	for _, sec := range sections {
		if sec.MaterialID == materialID {
			toEmbed = append(toEmbed, sec)
		}
	}
	if len(toEmbed) == 0 {
		return 0, nil
	}

	texts := make([]string, len(toEmbed))
	for i, sec := range toEmbed {
		// Heading plus body embeds better than either alone.
		texts[i] = sec.Heading + "\n" + sec.Content
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}

	count := 0
	for i, sec := range toEmbed {
		if err := s.index.UpdateSectionEmbedding(sec.ID, EncodeEmbedding(embeddings[i])); err != nil {
			s.logger.Error("failed to store embedding", "section_id", sec.ID, "error", err)
			continue
		}
		count++
	}

	return count, nil
}

// Search performs a topK similarity search.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	return s.retriever.Search(ctx, query, topK)
}

// RetrieveContext assembles tutoring context for a chat message.
func (s *Service) RetrieveContext(ctx context.Context, query string) string {
	return s.retriever.RetrieveContext(ctx, query)
}

// Stats returns index statistics.
func (s *Service) Stats() (*IndexStats, error) {
	return s.index.Stats()
}

// MaterialSummary is a lightweight listing row.
type MaterialSummary struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

// ListMaterials returns all indexed materials.
func (s *Service) ListMaterials() ([]MaterialSummary, error) {
	materials, err := s.index.ListMaterials()
	if err != nil {
		return nil, err
	}

	summaries := make([]MaterialSummary, len(materials))
	for i, m := range materials {
		summaries[i] = MaterialSummary{
			ID:    m.Hash,
			Path:  m.Path,
			Title: m.Title,
			Kind:  string(m.Kind),
		}
	}
	return summaries, nil
}
