package tokencount

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tiktoken counts tokens exactly for OpenAI-family models, grounded on the
// reference tiktoken wrapper: lazy sync.Once initialization (tiktoken may
// need to fetch encoding data on first use) and a prefix-matching table
// from model name to encoding.
type Tiktoken struct {
	model    string
	encoding string

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

type modelEncoding struct {
	encoding  string
	maxTokens int
}

var modelEncodings = map[string]modelEncoding{
	"gpt-4o":           {encoding: "o200k_base", maxTokens: 128000},
	"gpt-4o-mini":      {encoding: "o200k_base", maxTokens: 128000},
	"gpt-4-turbo":      {encoding: "cl100k_base", maxTokens: 128000},
	"gpt-4":            {encoding: "cl100k_base", maxTokens: 8192},
	"gpt-3.5-turbo":    {encoding: "cl100k_base", maxTokens: 16385},
	"text-embedding-3": {encoding: "cl100k_base", maxTokens: 8191},
}

// NewTiktoken creates a tokenizer for model, resolving its encoding by
// exact match, then prefix match, then a cl100k_base default.
func NewTiktoken(model string) *Tiktoken {
	info, ok := modelEncodings[model]
	if !ok {
		for prefix, i := range modelEncodings {
			if strings.HasPrefix(model, prefix) {
				info = i
				ok = true
				break
			}
		}
	}
	if !ok {
		info = modelEncoding{encoding: "cl100k_base", maxTokens: 8192}
	}
	return &Tiktoken{model: model, encoding: info.encoding}
}

func (t *Tiktoken) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *Tiktoken) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *Tiktoken) CountMessages(messages []Message) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	total := 0
	for _, msg := range messages {
		total += 4 // per-message role/separator overhead
		total += len(t.enc.Encode(msg.Content, nil, nil))
		total += len(t.enc.Encode(msg.Role, nil, nil))
	}
	total += 3 // conversation-end overhead
	return total, nil
}

func (t *Tiktoken) Name() string { return fmt.Sprintf("tiktoken[%s]", t.encoding) }

// RegisterOpenAITokenizers registers a Tiktoken counter for every model
// tokencount knows an encoding for.
func RegisterOpenAITokenizers() {
	for model := range modelEncodings {
		Register(model, NewTiktoken(model))
	}
}
