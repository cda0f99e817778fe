// Package parser derives display metadata (title, preview) from Markdown content.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPreviewLength bounds the stripped excerpt stored in file records.
const DefaultPreviewLength = 200

// Result holds the metadata derived from a Markdown document.
type Result struct {
	Title   string
	Preview string
	Body    string
}

// Parse extracts the title and a Markdown-stripped preview from raw bytes.
// The title comes from frontmatter "title" if present, otherwise the first
// H1 heading; callers fall back to the filename stem when empty.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	return &Result{
		Title:   deriveTitle(fm, body),
		Preview: Preview(body, DefaultPreviewLength),
		Body:    body,
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML, treat everything as body.
		return nil, string(data)
	}

	return fm, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// Preview strips Markdown syntax from body and returns a leading excerpt of
// at most limit runes. List and search views render it without reading the
// full content.
func Preview(body string, limit int) string {
	if limit <= 0 {
		limit = DefaultPreviewLength
	}

	var b strings.Builder
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		stripped := stripInline(trimmed)
		if stripped == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(stripped)
		if b.Len() >= limit*4 {
			// Enough raw material even before rune truncation.
			break
		}
	}

	runes := []rune(b.String())
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return string(runes)
}

// stripInline removes line-level and inline Markdown markers, keeping the text.
func stripInline(line string) string {
	// Heading markers.
	for strings.HasPrefix(line, "#") {
		line = line[1:]
	}
	// Blockquote markers.
	for strings.HasPrefix(line, ">") {
		line = strings.TrimSpace(line[1:])
	}
	line = strings.TrimSpace(line)
	// List markers.
	for _, m := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, m) {
			line = line[len(m):]
			break
		}
	}

	var b strings.Builder
	i := 0
	for i < len(line) {
		c := line[i]
		switch c {
		case '!':
			// Image: keep the alt text.
			if i+1 < len(line) && line[i+1] == '[' {
				i++
				continue
			}
			b.WriteByte(c)
			i++
		case '[':
			// Link: keep the text, drop the target.
			if end := strings.IndexByte(line[i:], ']'); end > 0 {
				b.WriteString(line[i+1 : i+end])
				i += end + 1
				if i < len(line) && line[i] == '(' {
					if close := strings.IndexByte(line[i:], ')'); close > 0 {
						i += close + 1
					} else {
						i = len(line)
					}
				}
				continue
			}
			b.WriteByte(c)
			i++
		case '*', '_', '`', '~':
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
