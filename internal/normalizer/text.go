package normalizer

import (
	"html"
	"regexp"
	"strings"
)

const (
	// MaxBodyLen caps stored bodies so generation payloads stay small.
	MaxBodyLen    = 2000
	MaxSnippetLen = 500

	truncationMarker = " [...truncated...]"
)

var (
	scriptRe  = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style.*?</style>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockRe   = regexp.MustCompile(`(?i)</?(p|div|br|tr|li|h[1-6]|table|blockquote)[^>]*>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)

	longURLRe = regexp.MustCompile(`https?://\S{80,}`)
	base64Re  = regexp.MustCompile(`[A-Za-z0-9+/=]{100,}`)
)

// StripHTML converts an HTML body to plain text. Script, style and comment
// blocks are removed entirely, block-level elements become newlines, and
// entities are unescaped.
func StripHTML(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")
	s = commentRe.ReplaceAllString(s, "")
	s = blockRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spaceRe.ReplaceAllString(s, " ")
	s = newlineRe.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// CollapseNoise replaces tracking URLs and inline encoded blobs with short
// placeholders. These fragments carry no meaning for scoring or drafting and
// would otherwise eat most of the body budget.
func CollapseNoise(s string) string {
	s = longURLRe.ReplaceAllString(s, "[long-url]")
	s = base64Re.ReplaceAllString(s, "[encoded-content]")
	return s
}

// Truncate cuts s to at most max characters, breaking at a word boundary and
// appending a truncation marker when anything was dropped.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := max - len(truncationMarker)
	if cut < 1 {
		cut = 1
	}
	head := s[:cut]
	if idx := strings.LastIndexByte(head, ' '); idx > 0 {
		head = head[:idx]
	}
	return head + truncationMarker
}

// CleanBody is the full body pipeline: strip markup when the content looks
// like HTML, collapse noise, then truncate.
func CleanBody(s string) string {
	if strings.Contains(s, "<") && tagRe.MatchString(s) {
		s = StripHTML(s)
	}
	s = CollapseNoise(s)
	return Truncate(strings.TrimSpace(s), MaxBodyLen)
}
