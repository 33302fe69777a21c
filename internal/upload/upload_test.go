package upload

import (
	"errors"
	"strings"
	"testing"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

func TestExtractTextUTF8(t *testing.T) {
	got, err := ExtractText([]byte("# Notes\nGoroutines are cheap."), "notes.md")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if !strings.Contains(got, "Goroutines") {
		t.Errorf("extracted = %q", got)
	}
}

func TestExtractTextLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 but invalid as a standalone UTF-8 byte.
	content := []byte{'c', 'a', 'f', 0xE9}

	got, err := ExtractText(content, "menu.txt")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "café" {
		t.Errorf("extracted = %q, want café", got)
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	for _, name := range []string{"slides.pdf", "photo.png", "archive.zip", "noext"} {
		if _, err := ExtractText([]byte("data"), name); !errors.Is(err, domain.ErrUnsupportedFile) {
			t.Errorf("ExtractText(%q) error = %v, want ErrUnsupportedFile", name, err)
		}
	}
}

func TestExtractTextCaseInsensitiveExtension(t *testing.T) {
	if _, err := ExtractText([]byte("text"), "NOTES.TXT"); err != nil {
		t.Errorf("ExtractText() error = %v", err)
	}
}

func TestCacheContentJoinsSorted(t *testing.T) {
	c := NewCache()
	c.Put("alice", "b.txt", "second file")
	c.Put("alice", "a.txt", "first file")

	got := c.Content("alice")
	want := "first file\n\nsecond file"
	if got != want {
		t.Errorf("Content() = %q, want %q", got, want)
	}
}

func TestCacheEmptyUser(t *testing.T) {
	c := NewCache()
	if got := c.Content("nobody"); got != "" {
		t.Errorf("Content() = %q, want empty", got)
	}
	if files := c.Files("nobody"); len(files) != 0 {
		t.Errorf("Files() = %v, want empty", files)
	}
}

func TestCachePutReplacesSameName(t *testing.T) {
	c := NewCache()
	c.Put("bob", "notes.txt", "old")
	c.Put("bob", "notes.txt", "new")

	if got := c.Content("bob"); got != "new" {
		t.Errorf("Content() = %q, want %q", got, "new")
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Put("carol", "x.txt", "data")
	c.Clear("carol")

	if got := c.Content("carol"); got != "" {
		t.Errorf("Content() after clear = %q, want empty", got)
	}

	// Clearing an empty user is a no-op.
	c.Clear("carol")
}
