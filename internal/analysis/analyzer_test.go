package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"mailnight/internal/config"
)

type fakeGenerator struct {
	replies []string
	err     error
	prompts []string
	block   bool
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func configured() config.AIConfig {
	return config.AIConfig{APIKey: "key", Timeout: time.Second}
}

func TestUnconfiguredAnalyzerNeverCallsGenerator(t *testing.T) {
	for _, key := range []string{"", config.PlaceholderAPIKey} {
		gen := &fakeGenerator{replies: []string{"should not be used"}}
		a := NewAnalyzer(config.AIConfig{APIKey: key}, gen, zap.NewNop())
		ctx := context.Background()

		result := a.Analyze(ctx, "Re: project", "Meeting at 3pm urgent")
		assert.Equal(t, CategoryWork, result.CategoryID)
		assert.Equal(t, "Work", result.CategoryName)
		assert.NotEmpty(t, result.Summary)
		assert.Equal(t, result, a.Analyze(ctx, "Re: project", "Meeting at 3pm urgent"))

		assert.Equal(t, "Subject: Hi", a.Summarize(ctx, "Hi", ""))
		assert.Equal(t, CategoryPrimary, a.Categorize(ctx, "Hi", "hello"))
		assert.Empty(t, a.GenerateReply(ctx, "Hi", "hello", "friendly"))
		assert.False(t, a.Configured())
		assert.Empty(t, gen.prompts)
	}
}

func TestAnalyzeParsesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"```json\n" +
		`{"summary":"Team sync moved.","categoryId":4,"priority":2,"keywords":["sync"],"sentiment":"neutral"}` +
		"\n```"}}
	a := NewAnalyzer(configured(), gen, zap.NewNop())

	result := a.Analyze(context.Background(), "Sync", "<p>The sync moved to Friday.</p>")
	assert.Equal(t, "Team sync moved.", result.Summary)
	assert.Equal(t, 4, result.CategoryID)
	assert.Equal(t, "Work", result.CategoryName)
	assert.Equal(t, 2, result.Priority)
	assert.Equal(t, []string{"sync"}, result.Keywords)
	assert.Equal(t, "neutral", result.Sentiment)
	if assert.Len(t, gen.prompts, 1) {
		assert.Contains(t, gen.prompts[0], "The sync moved to Friday.")
		assert.NotContains(t, gen.prompts[0], "<p>")
	}
}

func TestAnalyzeFallsBackWholesale(t *testing.T) {
	cases := map[string]string{
		"not json":        "I think this is about work",
		"bad category":    `{"summary":"x","categoryId":9}`,
		"missing summary": `{"categoryId":2}`,
		"empty":           "",
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{replies: []string{reply}}
			a := NewAnalyzer(configured(), gen, zap.NewNop())
			result := a.Analyze(context.Background(), "Re: project", "Meeting at 3pm urgent")
			assert.Equal(t, CategoryWork, result.CategoryID)
			assert.Equal(t, FallbackSummary("Re: project", "Meeting at 3pm urgent"), result.Summary)
			assert.Equal(t, 3, result.Priority)
		})
	}
}

func TestCategorizeTakesFirstDigitInRange(t *testing.T) {
	ctx := context.Background()

	a := NewAnalyzer(configured(), &fakeGenerator{replies: []string{"Category: 3"}}, zap.NewNop())
	assert.Equal(t, 3, a.Categorize(ctx, "Hi", "hello"))

	a = NewAnalyzer(configured(), &fakeGenerator{replies: []string{"7"}}, zap.NewNop())
	assert.Equal(t, CategorySpam, a.Categorize(ctx, "Hi", "free gift inside"))

	a = NewAnalyzer(configured(), &fakeGenerator{replies: []string{"none"}}, zap.NewNop())
	assert.Equal(t, CategoryPrimary, a.Categorize(ctx, "Hi", "hello"))
}

func TestSummarizeStripsFencesAndFallsBackOnError(t *testing.T) {
	ctx := context.Background()

	a := NewAnalyzer(configured(), &fakeGenerator{replies: []string{"```\nShort summary.\n```"}}, zap.NewNop())
	assert.Equal(t, "Short summary.", a.Summarize(ctx, "s", "body"))

	a = NewAnalyzer(configured(), &fakeGenerator{err: errors.New("503")}, zap.NewNop())
	assert.Equal(t, "Subject: s", a.Summarize(ctx, "s", ""))
}

func TestGenerateReplyUsesToneAndTruncatesPrompt(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"  Dear Ann,\nThanks!  "}}
	a := NewAnalyzer(configured(), gen, zap.NewNop())

	body := strings.Repeat("a", 2000)
	assert.Equal(t, "Dear Ann,\nThanks!", a.GenerateReply(context.Background(), "s", body, "thankful"))
	if assert.Len(t, gen.prompts, 1) {
		assert.Contains(t, gen.prompts[0], "thankful reply")
		assert.Contains(t, gen.prompts[0], strings.Repeat("a", 1000)+"...")
		assert.NotContains(t, gen.prompts[0], strings.Repeat("a", 1001))
	}

	failing := NewAnalyzer(configured(), &fakeGenerator{err: errors.New("down")}, zap.NewNop())
	assert.Empty(t, failing.GenerateReply(context.Background(), "s", "b", ""))
}

func TestTimeoutRoutesToFallback(t *testing.T) {
	cfg := configured()
	cfg.Timeout = 10 * time.Millisecond
	a := NewAnalyzer(cfg, &fakeGenerator{block: true}, zap.NewNop())

	result := a.Analyze(context.Background(), "Party", "Come to my birthday party tonight, friends!")
	assert.Equal(t, CategorySocial, result.CategoryID)
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("down")}
	a := NewAnalyzer(configured(), gen, zap.NewNop())
	for i := 0; i < 5; i++ {
		a.Summarize(context.Background(), "s", "b")
	}
	assert.Len(t, gen.prompts, 3)
}
