package upload

import (
	"sort"
	"strings"
	"sync"
)

// Cache holds extracted file text per user for the current process
// lifetime. Uploaded content takes precedence over retrieval when the
// tutor assembles context, so this is deliberately in-memory and cheap
// to clear.
type Cache struct {
	mu    sync.RWMutex
	files map[string]map[string]string // user -> filename -> text
}

func NewCache() *Cache {
	return &Cache{files: make(map[string]map[string]string)}
}

// Put stores extracted text under the user's filename, replacing any
// previous upload of the same name.
func (c *Cache) Put(userID, filename, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.files[userID] == nil {
		c.files[userID] = make(map[string]string)
	}
	c.files[userID][filename] = text
}

// Content returns all of the user's uploaded text joined by blank lines,
// in filename order for stable prompts. Empty string when nothing is
// uploaded.
func (c *Cache) Content(userID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byName := c.files[userID]
	if len(byName) == 0 {
		return ""
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, byName[name])
	}
	return strings.Join(parts, "\n\n")
}

// Files returns the user's uploaded filenames, sorted.
func (c *Cache) Files(userID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.files[userID]))
	for name := range c.files[userID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear drops all uploads for a user.
func (c *Cache) Clear(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, userID)
}
