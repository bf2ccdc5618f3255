package relocate

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultNameTemplate names the output after the show; the relocator appends
// the source extension when the rendered name lacks one.
const DefaultNameTemplate = "{showName}"

var placeholderPattern = regexp.MustCompile(`\{[^{}/]*\}`)

// renderTemplate substitutes naming placeholders using the given wall-clock
// time. Placeholders the template names but the renderer does not know are
// stripped rather than kept literal.
func renderTemplate(template, showName, originalFilename string, now time.Time) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultNameTemplate
	}

	replacer := strings.NewReplacer(
		"{showName}", showName,
		"{originalFilename}", originalFilename,
		"{YYYY}", now.Format("2006"),
		"{MM}", now.Format("01"),
		"{DD}", now.Format("02"),
	)
	rendered := replacer.Replace(template)
	return placeholderPattern.ReplaceAllString(rendered, "")
}

var underscoreRuns = regexp.MustCompile(`_+`)

// sanitizeSegment makes one path segment safe for common filesystems:
// Unicode is NFC-normalized, reserved and control characters plus whitespace
// become underscores, and underscore runs collapse to one.
func sanitizeSegment(segment string) string {
	segment = norm.NFC.String(segment)

	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case unicode.IsControl(r) || unicode.IsSpace(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := underscoreRuns.ReplaceAllString(b.String(), "_")
	cleaned = strings.Trim(cleaned, "_")
	cleaned = strings.TrimLeft(cleaned, ".")
	return cleaned
}

// renderRelativePath renders the template and sanitizes every path segment.
// Empty segments collapse away so a stripped placeholder never produces a
// stray directory level.
func renderRelativePath(template, showName, originalFilename string, now time.Time) string {
	rendered := renderTemplate(template, showName, originalFilename, now)

	parts := strings.Split(rendered, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		cleaned := sanitizeSegment(part)
		if cleaned == "" {
			continue
		}
		segments = append(segments, cleaned)
	}
	if len(segments) == 0 {
		return sanitizeSegment(originalFilename)
	}
	return strings.Join(segments, "/")
}
