// Package htmltext sanitizes user supplied rich-text bodies and reduces them
// to plain text for previews and prompts.
//
// Sanitize is a blocklist filter: it removes the constructs listed below and
// leaves all other markup untouched. It does not guarantee the output is free
// of every injection vector.
package htmltext

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var dangerous = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script\s*>`),
	regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe\s*>`),
	regexp.MustCompile(`(?is)<object[^>]*>.*?</object\s*>`),
	// unterminated or stray tags left after block removal
	regexp.MustCompile(`(?i)</?(script|iframe|object|embed)[^>]*>?`),
	regexp.MustCompile(`(?i)\s*\bon[a-z]+\s*=\s*"[^"]*"`),
	regexp.MustCompile(`(?i)\s*\bon[a-z]+\s*=\s*'[^']*'`),
	regexp.MustCompile(`(?i)\s*\bon[a-z]+\s*=\s*[^\s>"']+`),
	// handler with an unterminated quote or no value at all
	regexp.MustCompile(`(?i)\s*\bon[a-z]+\s*=\s*["']?[^\s>]*`),
	regexp.MustCompile(`(?i)javascript\s*:`),
}

// Sanitize removes script, iframe, object and embed elements, inline event
// handler attributes and javascript: schemes from s.
//
// Passes repeat until nothing matches, since a removal can splice a new match
// together, as in "<scr<script></script>ipt>". Every match is non-empty, so
// each changing pass shortens s and the loop terminates.
func Sanitize(s string) string {
	for {
		before := s
		for _, re := range dangerous {
			s = re.ReplaceAllString(s, "")
		}
		if s == before {
			break
		}
	}
	return s
}

var (
	reBreak     = regexp.MustCompile(`(?i)<br\s*/?>`)
	reParaOpen  = regexp.MustCompile(`(?i)<p[^>]*>`)
	reParaClose = regexp.MustCompile(`(?i)</p>`)
	reDivOpen   = regexp.MustCompile(`(?i)<div[^>]*>`)
	reDivClose  = regexp.MustCompile(`(?i)</div>`)
	reItemOpen  = regexp.MustCompile(`(?i)<li[^>]*>`)
	reItemClose = regexp.MustCompile(`(?i)</li>`)
	reAnyTag    = regexp.MustCompile(`<[^>]+>`)
	// tag-shaped text produced by decoding entities such as &lt;b&gt;
	reDecodedTag = regexp.MustCompile(`<[A-Za-z/!][^>]*>`)
	reBlankRun   = regexp.MustCompile(`\n{3,}`)
)

// ToPlainText converts a rich-text body to plain text.
func ToPlainText(s string) string {
	if s == "" {
		return ""
	}
	s = reBreak.ReplaceAllString(s, "\n")
	s = reParaOpen.ReplaceAllString(s, "\n")
	s = reParaClose.ReplaceAllString(s, "\n")
	s = reDivOpen.ReplaceAllString(s, "\n")
	s = reDivClose.ReplaceAllString(s, "")
	s = reItemOpen.ReplaceAllString(s, "• ")
	s = reItemClose.ReplaceAllString(s, "\n")
	s = reAnyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = reDecodedTag.ReplaceAllString(s, "")
	s = reBlankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Truncate cuts s to n characters and appends "..." when anything was cut.
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// Preview truncates the raw body, markup included, as the list views do.
func Preview(body string, n int) string {
	return Truncate(body, n)
}

// PlainPreview truncates the plain text of body.
func PlainPreview(body string, n int) string {
	return Truncate(ToPlainText(body), n)
}
