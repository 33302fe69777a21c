package docindex

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

// Index stores materials and their section embeddings in SQLite.
type Index struct {
	db *sql.DB
}

func NewIndex(db *sql.DB) *Index {
	return &Index{db: db}
}

// SaveMaterial upserts a material and replaces its sections.
func (idx *Index) SaveMaterial(m *domain.Material) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO materials (id, path, title, kind, content, hash, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path=excluded.path, title=excluded.title, kind=excluded.kind,
			content=excluded.content, hash=excluded.hash, discovered_at=excluded.discovered_at`,
		m.Hash, m.Path, m.Title, string(m.Kind), m.Content, m.Hash, m.DiscoveredAt,
	)
	if err != nil {
		return fmt.Errorf("upsert material: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM material_sections WHERE material_id = ?", m.Hash); err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}

	for _, section := range m.Sections {
		_, err := tx.Exec(`
			INSERT INTO material_sections (material_id, heading, level, content)
			VALUES (?, ?, ?, ?)`,
			m.Hash, section.Heading, section.Level, section.Content,
		)
		if err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateSectionEmbedding stores the embedding for one section.
func (idx *Index) UpdateSectionEmbedding(sectionID int64, embedding []byte) error {
	if _, err := idx.db.Exec(
		"UPDATE material_sections SET embedding = ? WHERE id = ?",
		embedding, sectionID,
	); err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	return nil
}

// MarkIndexed records that a material's sections are embedded.
func (idx *Index) MarkIndexed(materialID string) error {
	_, err := idx.db.Exec(
		"UPDATE materials SET indexed_at = ? WHERE id = ?",
		time.Now(), materialID,
	)
	return err
}

// SectionRow is a section with its database id, for embedding updates.
type SectionRow struct {
	ID         int64
	MaterialID string
	Heading    string
	Level      int
	Content    string
	Embedding  []byte
}

// ListUnindexedSections returns sections that have no embedding yet.
func (idx *Index) ListUnindexedSections() ([]SectionRow, error) {
	rows, err := idx.db.Query(`
		SELECT id, material_id, heading, level, content
		FROM material_sections
		WHERE embedding IS NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query unindexed sections: %w", err)
	}
	defer rows.Close()

	var sections []SectionRow
	for rows.Next() {
		var s SectionRow
		if err := rows.Scan(&s.ID, &s.MaterialID, &s.Heading, &s.Level, &s.Content); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// ListEmbeddedSections returns all sections with embeddings.
func (idx *Index) ListEmbeddedSections() ([]SectionRow, error) {
	rows, err := idx.db.Query(`
		SELECT id, material_id, heading, level, content, embedding
		FROM material_sections
		WHERE embedding IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	var sections []SectionRow
	for rows.Next() {
		var s SectionRow
		if err := rows.Scan(&s.ID, &s.MaterialID, &s.Heading, &s.Level, &s.Content, &s.Embedding); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// GetMaterial retrieves a material with its sections.
func (idx *Index) GetMaterial(id string) (*domain.Material, error) {
	var m domain.Material
	var kind string

	err := idx.db.QueryRow(`
		SELECT id, path, title, kind, content, discovered_at
		FROM materials WHERE id = ?`, id).Scan(
		&m.Hash, &m.Path, &m.Title, &kind, &m.Content, &m.DiscoveredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}
	m.Kind = domain.MaterialKind(kind)

	rows, err := idx.db.Query(`
		SELECT heading, level, content FROM material_sections
		WHERE material_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.MaterialSection
		if err := rows.Scan(&s.Heading, &s.Level, &s.Content); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		m.Sections = append(m.Sections, s)
	}

	return &m, rows.Err()
}

// ListMaterials returns all materials, newest first, without sections.
func (idx *Index) ListMaterials() ([]domain.Material, error) {
	rows, err := idx.db.Query(`
		SELECT id, path, title, kind, discovered_at
		FROM materials ORDER BY discovered_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var materials []domain.Material
	for rows.Next() {
		var m domain.Material
		var kind string
		if err := rows.Scan(&m.Hash, &m.Path, &m.Title, &kind, &m.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		m.Kind = domain.MaterialKind(kind)
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// DeleteMaterial removes a material; sections cascade.
func (idx *Index) DeleteMaterial(id string) error {
	_, err := idx.db.Exec("DELETE FROM materials WHERE id = ?", id)
	return err
}

// MaterialExists reports whether a material with this content hash is
// already stored.
func (idx *Index) MaterialExists(hash string) bool {
	var count int
	idx.db.QueryRow("SELECT COUNT(*) FROM materials WHERE hash = ?", hash).Scan(&count)
	return count > 0
}

// IndexStats summarizes index state.
type IndexStats struct {
	TotalMaterials   int `json:"total_materials"`
	IndexedMaterials int `json:"indexed_materials"`
	TotalSections    int `json:"total_sections"`
	EmbeddedSections int `json:"embedded_sections"`
}

func (idx *Index) Stats() (*IndexStats, error) {
	var stats IndexStats

	idx.db.QueryRow("SELECT COUNT(*) FROM materials").Scan(&stats.TotalMaterials)
	idx.db.QueryRow("SELECT COUNT(*) FROM materials WHERE indexed_at IS NOT NULL").Scan(&stats.IndexedMaterials)
	idx.db.QueryRow("SELECT COUNT(*) FROM material_sections").Scan(&stats.TotalSections)
	idx.db.QueryRow("SELECT COUNT(*) FROM material_sections WHERE embedding IS NOT NULL").Scan(&stats.EmbeddedSections)

	return &stats, nil
}
