// Package extract recovers structured JSON from noisy generated text.
//
// Model output is unreliable by construction: preambles, code fences,
// trailing commas. The parser runs an ordered chain of named strategies and
// returns either parsed values or a definite ErrUnparsable; it never panics
// on malformed input. Correctness of the assessment and gap-detection paths
// depends on this boundary being tolerant rather than strict.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

// Strategy attempts one recovery approach over raw text. A strategy returns
// the values it recovered and whether it succeeded; the chain stops at the
// first success.
type Strategy interface {
	Name() string
	Extract(text string) ([]json.RawMessage, bool)
}

// Parser applies recovery strategies in a fixed order.
type Parser struct {
	strategies []Strategy
}

// NewParser creates a parser with the standard strategy chain:
// direct parse (after fence stripping), outermost array span, then
// balanced object scanning with trailing-comma repair.
func NewParser() *Parser {
	return &Parser{
		strategies: []Strategy{
			directStrategy{},
			arraySpanStrategy{},
			objectScanStrategy{},
		},
	}
}

// Items returns the individual values recovered from the text: the elements
// of a top-level array, or a single object wrapped in a one-element slice.
// Returns domain.ErrUnparsable when every strategy fails.
func (p *Parser) Items(text string) ([]json.RawMessage, error) {
	for _, s := range p.strategies {
		if items, ok := s.Extract(text); ok {
			return items, nil
		}
	}
	return nil, domain.ErrUnparsable
}

// Object returns a single recovered JSON object. Array results are rejected;
// when the object scan finds several objects, the first one wins. Used by
// the grading and gap-detection paths, which expect exactly one record.
func (p *Parser) Object(text string) (json.RawMessage, error) {
	stripped := stripFence(text)
	if isObject(stripped) && json.Valid([]byte(stripped)) {
		return json.RawMessage(stripped), nil
	}

	// Outermost {...} span, the shape most models produce when they wrap
	// an object in chatter.
	start := strings.Index(stripped, "{")
	end := strings.LastIndex(stripped, "}")
	if start != -1 && end > start {
		span := stripped[start : end+1]
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), nil
		}
	}

	objects, ok := objectScanStrategy{}.Extract(stripped)
	if !ok {
		return nil, domain.ErrUnparsable
	}
	return objects[0], nil
}

// directStrategy strips a single fenced block marker if present and parses
// the remainder as-is.
type directStrategy struct{}

func (directStrategy) Name() string { return "direct" }

func (directStrategy) Extract(text string) ([]json.RawMessage, bool) {
	stripped := stripFence(text)
	if !json.Valid([]byte(stripped)) {
		return nil, false
	}
	return splitValue(stripped)
}

// arraySpanStrategy locates the outermost [...] span by first '[' and last
// ']' and parses that span.
type arraySpanStrategy struct{}

func (arraySpanStrategy) Name() string { return "array-span" }

func (arraySpanStrategy) Extract(text string) ([]json.RawMessage, bool) {
	stripped := stripFence(text)
	start := strings.Index(stripped, "[")
	end := strings.LastIndex(stripped, "]")
	if start == -1 || end <= start {
		return nil, false
	}

	span := stripped[start : end+1]
	if !json.Valid([]byte(span)) {
		return nil, false
	}
	return splitValue(span)
}

// objectScanStrategy walks the text with a bracket-depth counter collecting
// balanced {...} spans, repairs trailing commas, and parses each span
// independently. Partial recovery is acceptable: spans that still fail to
// parse are skipped, and the strategy succeeds if at least one survives.
type objectScanStrategy struct{}

func (objectScanStrategy) Name() string { return "object-scan" }

var trailingComma = regexp.MustCompile(`,\s*}`)

func (objectScanStrategy) Extract(text string) ([]json.RawMessage, bool) {
	var spans []string
	depth := 0
	start := -1
	for i, ch := range text {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start != -1 {
				spans = append(spans, text[start:i+1])
				start = -1
			}
		}
	}

	var objects []json.RawMessage
	for _, span := range spans {
		repaired := trailingComma.ReplaceAllString(span, "}")
		if json.Valid([]byte(repaired)) {
			objects = append(objects, json.RawMessage(repaired))
		}
	}

	if len(objects) == 0 {
		return nil, false
	}
	return objects, true
}

// stripFence removes a single leading/trailing markdown code fence,
// including a language tag on the opening fence.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	if nl := strings.Index(text, "\n"); nl != -1 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// splitValue breaks a valid JSON value into items: array elements for a
// top-level array, or the value itself for an object.
func splitValue(text string) ([]json.RawMessage, bool) {
	switch {
	case strings.HasPrefix(text, "["):
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, false
		}
		return items, true
	case strings.HasPrefix(text, "{"):
		return []json.RawMessage{json.RawMessage(text)}, true
	default:
		// Valid JSON but a bare scalar; nothing structured to recover.
		return nil, false
	}
}

func isObject(text string) bool {
	return strings.HasPrefix(text, "{")
}
