package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"mailnight/internal/htmltext"
)

var firstSentence = regexp.MustCompile(`^[^.!?]*[.!?]`)

const (
	minSentenceLen = 20
	maxSummaryLen  = 100
)

// FallbackSummary builds a summary without a model: the first sentence when
// it is long enough, otherwise the first 100 characters of plain text.
func FallbackSummary(subject, body string) string {
	text := htmltext.ToPlainText(body)
	if text == "" {
		return "Subject: " + subject
	}

	if s := firstSentence.FindString(text); utf8.RuneCountInString(s) > minSentenceLen {
		return strings.TrimSpace(s)
	}
	return htmltext.Truncate(text, maxSummaryLen)
}
