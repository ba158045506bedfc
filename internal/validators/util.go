package validators

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

func issueID() string { return uuid.NewString() }

// frontmatterBlock is the YAML block delimited by a leading and trailing
// "---" line, plus the body that follows it.
type frontmatterBlock struct {
	Raw       string
	Body      string
	StartLine int
	EndLine   int
	Present   bool
}

var frontmatterDelim = regexp.MustCompile(`(?m)^---\s*$`)

// splitFrontmatter extracts a leading YAML frontmatter block, if present.
// A document with no leading "---" line has no frontmatter; Body is then
// the entire content and Present is false.
func splitFrontmatter(content string) frontmatterBlock {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return frontmatterBlock{Body: content}
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			raw := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return frontmatterBlock{
				Raw:       raw,
				Body:      body,
				StartLine: 1,
				EndLine:   i + 1,
				Present:   true,
			}
		}
	}
	// Unterminated block: treat everything after the opening delimiter as
	// the (malformed) frontmatter, body empty.
	return frontmatterBlock{
		Raw:       strings.Join(lines[1:], "\n"),
		StartLine: 1,
		EndLine:   len(lines),
		Present:   true,
	}
}

// heading is a single Markdown ATX heading ("#"-prefixed).
type heading struct {
	Level int
	Text  string
	Line  int
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

func extractHeadings(body string) []heading {
	var out []heading
	for i, line := range strings.Split(body, "\n") {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, heading{Level: len(m[1]), Text: strings.TrimSpace(m[2]), Line: i + 1})
	}
	return out
}

// codeFence is a fenced code block (``` or ~~~).
type codeFence struct {
	Language  string
	StartLine int
	EndLine   int
	Body      string
	Closed    bool
}

var fenceOpenRe = regexp.MustCompile("^(```+|~~~+)\\s*([a-zA-Z0-9_+-]*)")

func extractCodeFences(body string) []codeFence {
	lines := strings.Split(body, "\n")
	var fences []codeFence
	i := 0
	for i < len(lines) {
		m := fenceOpenRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}
		marker := m[1][:3]
		lang := m[2]
		start := i
		var bodyLines []string
		closed := false
		j := i + 1
		for ; j < len(lines); j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), marker) {
				closed = true
				break
			}
			bodyLines = append(bodyLines, lines[j])
		}
		end := j
		if !closed {
			end = len(lines) - 1
		}
		fences = append(fences, codeFence{
			Language:  lang,
			StartLine: start + 1,
			EndLine:   end + 1,
			Body:      strings.Join(bodyLines, "\n"),
			Closed:    closed,
		})
		i = end + 1
	}
	return fences
}

// mdLink is a Markdown inline link "[text](url)".
type mdLink struct {
	Text string
	URL  string
	Line int
}

var linkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)

func extractLinks(body string) []mdLink {
	var out []mdLink
	for i, line := range strings.Split(body, "\n") {
		for _, m := range linkRe.FindAllStringSubmatch(line, -1) {
			out = append(out, mdLink{Text: m[1], URL: m[2], Line: i + 1})
		}
	}
	return out
}

// wordTokens lowercases and splits body into identifier-like tokens, used
// by the fuzzy validator to scan for plugin/API names against TruthIndex.
func wordTokens(body string) []string {
	fields := strings.FieldsFunc(body, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return false
		default:
			return true
		}
	})
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		key := strings.ToLower(f)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
