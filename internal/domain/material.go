package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MaterialKind classifies a study material by its likely use.
type MaterialKind string

const (
	KindNotes     MaterialKind = "notes"
	KindTextbook  MaterialKind = "textbook"
	KindExercises MaterialKind = "exercises"
	KindReference MaterialKind = "reference"
	KindOther     MaterialKind = "other"
)

// Material is one ingested study document, split into sections for
// retrieval.
type Material struct {
	Path         string            `json:"path"`
	Title        string            `json:"title"`
	Kind         MaterialKind      `json:"kind"`
	Content      string            `json:"content"`
	Hash         string            `json:"hash"`
	Sections     []MaterialSection `json:"sections,omitempty"`
	DiscoveredAt time.Time         `json:"discovered_at"`
}

// MaterialSection is a heading-delimited slice of a material.
type MaterialSection struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Content string `json:"content"`
}

// ComputeHash derives the material's content-addressed id.
func (m *Material) ComputeHash() string {
	h := sha256.Sum256([]byte(m.Path + "\x00" + m.Content))
	return hex.EncodeToString(h[:])
}
