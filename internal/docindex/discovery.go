package docindex

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

// DefaultMaterialExtensions are the file types ingested as study material.
var DefaultMaterialExtensions = []string{
	".md",
	".markdown",
	".txt",
	".rst",
}

// Discoverer walks a materials directory collecting study documents.
type Discoverer struct {
	basePath   string
	extensions []string
}

func NewDiscoverer(basePath string) *Discoverer {
	return &Discoverer{
		basePath:   basePath,
		extensions: DefaultMaterialExtensions,
	}
}

// WithExtensions overrides the ingested file extensions.
func (d *Discoverer) WithExtensions(exts []string) *Discoverer {
	d.extensions = exts
	return d
}

// DiscoverOptions configures the walk.
type DiscoverOptions struct {
	Recursive bool
	MaxDepth  int // 0 = unlimited
}

func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		Recursive: true,
		MaxDepth:  3,
	}
}

// Discover loads all material files under the base path.
func (d *Discoverer) Discover(opts DiscoverOptions) ([]domain.Material, error) {
	info, err := os.Stat(d.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if !info.IsDir() {
		if !d.isMaterialFile(d.basePath) {
			return nil, nil
		}
		m, err := d.loadMaterial(d.basePath)
		if err != nil {
			return nil, err
		}
		return []domain.Material{m}, nil
	}

	return d.discoverInDir(d.basePath, opts.Recursive, opts.MaxDepth, 0)
}

func (d *Discoverer) discoverInDir(dir string, recursive bool, maxDepth, depth int) ([]domain.Material, error) {
	if maxDepth > 0 && depth >= maxDepth {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var materials []domain.Material
	for _, entry := range entries {
		fullPath := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if recursive && !isIgnoredDir(entry.Name()) {
				sub, err := d.discoverInDir(fullPath, recursive, maxDepth, depth+1)
				if err != nil {
					continue
				}
				materials = append(materials, sub...)
			}
			continue
		}

		if d.isMaterialFile(fullPath) {
			m, err := d.loadMaterial(fullPath)
			if err != nil {
				continue
			}
			materials = append(materials, m)
		}
	}

	return materials, nil
}

func (d *Discoverer) isMaterialFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range d.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func isIgnoredDir(name string) bool {
	switch strings.ToLower(name) {
	case ".git", ".github", "node_modules", "vendor", ".vscode", ".idea", "__pycache__":
		return true
	}
	return false
}

func (d *Discoverer) loadMaterial(path string) (domain.Material, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Material{}, err
	}

	relPath, err := filepath.Rel(d.basePath, path)
	if err != nil {
		relPath = path
	}

	m := domain.Material{
		Path:         relPath,
		Title:        inferTitle(path, string(content)),
		Kind:         inferKind(path, string(content)),
		Content:      string(content),
		DiscoveredAt: time.Now(),
	}
	m.Hash = m.ComputeHash()
	m.Sections = NewParser().ParseSections(string(content))

	return m, nil
}

// inferTitle takes the first H1 heading, falling back to the filename.
func inferTitle(path, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimPrefix(line, "# ")
		}
	}
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ReplaceAll(name, "-", " ")
}

// inferKind classifies a material from its path and content.
func inferKind(path, content string) domain.MaterialKind {
	lower := strings.ToLower(path)
	lowerContent := strings.ToLower(content)

	switch {
	case strings.Contains(lower, "exercise") || strings.Contains(lower, "problem") ||
		strings.Contains(lower, "quiz"):
		return domain.KindExercises
	case strings.Contains(lower, "textbook") || strings.Contains(lower, "chapter"):
		return domain.KindTextbook
	case strings.Contains(lower, "notes") || strings.Contains(lower, "lecture"):
		return domain.KindNotes
	case strings.Contains(lower, "reference") || strings.Contains(lower, "cheatsheet") ||
		strings.Contains(lower, "glossary"):
		return domain.KindReference
	}

	switch {
	case strings.Contains(lowerContent, "exercise") && strings.Contains(lowerContent, "solution"):
		return domain.KindExercises
	case strings.Contains(lowerContent, "chapter"):
		return domain.KindTextbook
	}

	return domain.KindOther
}
