package docindex

import (
	"regexp"
	"strings"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

// Parser splits markdown study material into heading-delimited sections.
type Parser struct {
	headingRegex *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{
		headingRegex: regexp.MustCompile(`^(#{1,6})\s+(.+)$`),
	}
}

// ParseSections extracts all sections. Text before the first heading goes
// into an implicit "Introduction" section so nothing is dropped.
func (p *Parser) ParseSections(content string) []domain.MaterialSection {
	lines := strings.Split(content, "\n")
	var sections []domain.MaterialSection

	var current *domain.MaterialSection
	var body strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(body.String())
		if current.Content != "" || current.Heading != "" {
			sections = append(sections, *current)
		}
		body.Reset()
	}

	for _, line := range lines {
		if matches := p.headingRegex.FindStringSubmatch(line); matches != nil {
			flush()
			current = &domain.MaterialSection{
				Heading: strings.TrimSpace(matches[2]),
				Level:   len(matches[1]),
			}
			continue
		}

		if current == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			current = &domain.MaterialSection{Heading: "Introduction", Level: 0}
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}

// TruncateContent limits content length, breaking at paragraph boundaries
// when possible.
func TruncateContent(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}

	paragraphs := strings.Split(content, "\n\n")
	var result strings.Builder
	for _, para := range paragraphs {
		if result.Len()+len(para)+2 > maxLen {
			break
		}
		if result.Len() > 0 {
			result.WriteString("\n\n")
		}
		result.WriteString(para)
	}

	if result.Len() == 0 {
		return content[:maxLen-3] + "..."
	}
	return result.String()
}
