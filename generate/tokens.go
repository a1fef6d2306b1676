package generate

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// runesPerToken approximates token counts when no encoding is available.
const runesPerToken = 4

// tokenizer trims source text to a token budget. The cl100k_base encoding is
// loaded on first use; if it cannot be loaded the rune estimate is used.
type tokenizer struct {
	once     sync.Once
	load     func() (*tiktoken.Tiktoken, error)
	encoding *tiktoken.Tiktoken
	logger   *slog.Logger
}

func newTokenizer(logger *slog.Logger) *tokenizer {
	return &tokenizer{
		load: func() (*tiktoken.Tiktoken, error) {
			return tiktoken.GetEncoding("cl100k_base")
		},
		logger: logger,
	}
}

func (t *tokenizer) init() {
	t.once.Do(func() {
		enc, err := t.load()
		if err != nil {
			t.logger.Warn("tiktoken encoding unavailable, estimating tokens from length", "err", err)
			return
		}
		t.encoding = enc
	})
}

// Count returns the number of tokens in text.
func (t *tokenizer) Count(text string) int {
	t.init()
	if t.encoding == nil {
		return (len([]rune(text)) + runesPerToken - 1) / runesPerToken
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// Truncate returns text cut to at most max tokens. A max of zero or less
// leaves the text unchanged.
func (t *tokenizer) Truncate(text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	t.init()
	if t.encoding == nil {
		runes := []rune(text)
		if len(runes) <= max*runesPerToken {
			return text, false
		}
		return string(runes[:max*runesPerToken]), true
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text, false
	}
	return t.encoding.Decode(tokens[:max]), true
}
