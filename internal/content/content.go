// Package content turns a vocabulary item into the text shown and spoken
// during one exposure.
package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lazypower/lexloop/internal/llm"
	"github.com/lazypower/lexloop/internal/priority"
)

// ErrGeneration marks a recoverable failure to produce exposure content.
var ErrGeneration = errors.New("content: generation failed")

// ExposureContent is everything presented for one item.
type ExposureContent struct {
	Headword      string `json:"headword"`
	Translation   string `json:"translation"`
	Explanation   string `json:"explanation"`
	ExampleTarget string `json:"example_target"` // example sentence in the language being learned
	ExampleSource string `json:"example_source"` // the same sentence in the learner's language
}

// Generator produces exposure content for an item.
type Generator interface {
	Generate(ctx context.Context, item priority.Item) (ExposureContent, error)
}

// LLMGenerator asks a language model for an XML entry and parses it.
type LLMGenerator struct {
	client llm.Client
}

// NewLLMGenerator creates a generator backed by client.
func NewLLMGenerator(client llm.Client) *LLMGenerator {
	return &LLMGenerator{client: client}
}

// Generate calls the model and extracts the entry fields. Any transport
// error or malformed answer is returned wrapped in ErrGeneration.
func (g *LLMGenerator) Generate(ctx context.Context, item priority.Item) (ExposureContent, error) {
	resp, err := g.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      ExposurePrompt(string(item)),
		Temperature: 0.1,
		MaxTokens:   512,
	})
	if err != nil {
		return ExposureContent{}, fmt.Errorf("%w: %q: %v", ErrGeneration, item, err)
	}
	if resp == nil {
		return ExposureContent{}, fmt.Errorf("%w: %q: empty response", ErrGeneration, item)
	}

	c, err := Extract(resp.Content)
	if err != nil {
		return ExposureContent{}, fmt.Errorf("%w: %q: %v", ErrGeneration, item, err)
	}
	return c, nil
}

var (
	konzeptRe     = regexp.MustCompile(`(?is)<konzept>(.*?)</konzept>`)
	explanationRe = regexp.MustCompile(`(?is)<explanation>(.*?)</explanation>`)
	deRe          = regexp.MustCompile(`(?is)<de>(.*?)</de>`)
	enRe          = regexp.MustCompile(`(?is)<en>(.*?)</en>`)
)

// Extract parses the first complete entry in a model answer.
// <konzept> holds "headword --- translation".
func Extract(xml string) (ExposureContent, error) {
	konzept, err := firstTag(konzeptRe, xml, "konzept")
	if err != nil {
		return ExposureContent{}, err
	}
	headword, translation, ok := strings.Cut(konzept, "---")
	if !ok {
		return ExposureContent{}, fmt.Errorf("konzept %q has no --- separator", konzept)
	}

	c := ExposureContent{
		Headword:    strings.TrimSpace(headword),
		Translation: strings.TrimSpace(translation),
	}
	if c.Headword == "" || c.Translation == "" {
		return ExposureContent{}, fmt.Errorf("konzept %q has an empty side", konzept)
	}
	if c.Explanation, err = firstTag(explanationRe, xml, "explanation"); err != nil {
		return ExposureContent{}, err
	}
	if c.ExampleTarget, err = firstTag(deRe, xml, "de"); err != nil {
		return ExposureContent{}, err
	}
	if c.ExampleSource, err = firstTag(enRe, xml, "en"); err != nil {
		return ExposureContent{}, err
	}
	return c, nil
}

func firstTag(re *regexp.Regexp, s, name string) (string, error) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("missing <%s>", name)
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return "", fmt.Errorf("empty <%s>", name)
	}
	return v, nil
}

// Utterance is one spoken field of an exposure.
type Utterance struct {
	Text     string
	Language string
}

// Utterances returns the fields in speaking order with their language tags.
func (c ExposureContent) Utterances() []Utterance {
	return []Utterance{
		{c.Headword, "de"},
		{c.Translation, "en"},
		{c.Explanation, "en"},
		{c.ExampleTarget, "de"},
		{c.ExampleSource, "en"},
	}
}
