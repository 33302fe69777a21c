// Package upload turns user-supplied study files into prompt context and
// caches the extracted text per user.
package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

// textExtensions are the file types extracted as plain text.
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".go":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".c":    true,
	".cpp":  true,
	".java": true,
}

// ExtractText converts an uploaded file's bytes into text. Valid UTF-8 is
// taken as-is; anything else is decoded as Latin-1, which cannot fail, so
// a text-like extension always yields something readable. Unknown
// extensions return domain.ErrUnsupportedFile.
func ExtractText(content []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !textExtensions[ext] {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, ext)
	}

	if utf8.Valid(content) {
		return string(content), nil
	}
	return decodeLatin1(content), nil
}

// decodeLatin1 maps each byte to its equal code point. Total: every byte
// sequence decodes to some string.
func decodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
