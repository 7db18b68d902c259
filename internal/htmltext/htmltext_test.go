package htmltext

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	reScript  = regexp.MustCompile(`(?i)<script`)
	reHandler = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	reScheme  = regexp.MustCompile(`(?i)javascript\s*:`)
	reFrames  = regexp.MustCompile(`(?i)<(iframe|object|embed)`)
	reTag     = regexp.MustCompile(`<[^>]*>`)
)

func TestSanitizeRemovesDangerousMarkup(t *testing.T) {
	inputs := []string{
		`<p>hi</p><script>alert(1)</script>`,
		"<SCRIPT type=\"text/javascript\">\nvar a = 1;\n</ScRiPt>after",
		`<img src=x onerror="alert(1)">`,
		`<img src=x OnLoad='alert(1)'>`,
		`<img src=x onclick=alert(1)>`,
		`<a href="javascript:alert(1)">x</a>`,
		`<a href="JaVaScRiPt :alert(1)">x</a>`,
		`<iframe src="https://evil"></iframe>`,
		`<IFRAME src=x>`,
		`<object data="x.swf"><param name=a></object>`,
		`<embed src="x.swf">`,
		`<scr<script></script>ipt>alert(1)</script>`,
		`<script>never closed`,
		`<img src=x onerror="alert(1)>`,
		`<img src=x onerror='alert(1)>`,
		`<img src=x onerror="a'>`,
		`<img src=x onerror=>`,
		`<scriptx src=a.js>`,
		`<embedded src=x>`,
		`<img ononerror=error=x>`,
	}
	for _, in := range inputs {
		assertSanitized(t, in, Sanitize(in))
	}
}

func assertSanitized(t *testing.T, in, out string) {
	t.Helper()
	assert.NotRegexp(t, reScript, out, in)
	assert.NotRegexp(t, reHandler, out, in)
	assert.NotRegexp(t, reScheme, out, in)
	assert.NotRegexp(t, reFrames, out, in)
}

func FuzzSanitize(f *testing.F) {
	for _, seed := range []string{
		"",
		`<p>hello</p>`,
		`<img src=x onerror="alert(1)>`,
		`<a href='javascript:x'>`,
		`<scr<script></script>ipt>`,
		`<IFRAME src=x></iframe>`,
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		assertSanitized(t, in, Sanitize(in))
	})
}

func TestSanitizeKeepsOrdinaryMarkup(t *testing.T) {
	assert.Equal(t, "", Sanitize(""))
	in := `<p class="x"><b>Hello</b> <a href="https://example.com">link</a></p>`
	assert.Equal(t, in, Sanitize(in))
	assert.Equal(t, `<p>before</p><p>after</p>`, Sanitize(`<p>before</p><script>x()</script><p>after</p>`))
}

func TestToPlainText(t *testing.T) {
	cases := map[string]string{
		"":                                         "",
		"<p>Hello</p><p>World</p>":                 "Hello\n\nWorld",
		"line one<br>line two<BR/>three":           "line one\nline two\nthree",
		"<ul><li>a</li><li>b</li></ul>":            "• a\n• b",
		"<div>x</div><div>y</div>":                 "x\ny",
		"Fish &amp; chips &lt;3":                   "Fish & chips <3",
		"<p>a</p>\n\n\n\n<p>b</p>":                 "a\n\nb",
		"  <span>padded</span>  ":                  "padded",
		"&lt;script&gt;alert(1)&lt;/script&gt;hi": "alert(1)hi",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToPlainText(in), in)
	}
}

func TestToPlainTextIsIdempotentOnPlainText(t *testing.T) {
	for _, in := range []string{
		"Meeting at 3pm urgent",
		"3 < 5 and 7 > 2",
		"Line one\nLine two\n\nParagraph",
		"Toplantı yarın saat 10'da",
	} {
		once := ToPlainText(in)
		assert.Equal(t, once, ToPlainText(once))
		assert.NotRegexp(t, reTag, once)
	}
}

func TestToPlainTextLeavesNoTags(t *testing.T) {
	in := `<html><head><style>p{}</style></head><body><p onclick="x">Hi <b>there</b><img src=a></p></body></html>`
	assert.NotRegexp(t, reTag, ToPlainText(in))
}

func TestTruncateAndPreview(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "çğü...", Truncate("çğüşöı", 3))

	long := "<p>" + strings.Repeat("x", 100) + "</p>"
	assert.Equal(t, 83, len(Preview(long, 80)))
	assert.True(t, strings.HasPrefix(Preview(long, 80), "<p>"))
	assert.Equal(t, strings.Repeat("x", 50)+"...", PlainPreview(long, 50))
}
