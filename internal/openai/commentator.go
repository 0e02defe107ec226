// Package openai writes short report commentary with the OpenAI chat API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"quantDashboard/internal/logging"
)

const DefaultModel = "gpt-4o-mini"

var aiLog = logging.New("openai")

type Commentator struct {
	cli   oa.Client
	model string
}

// NewCommentator builds a client for apiKey. Extra request options come
// after the key so tests can point it at a local server.
func NewCommentator(apiKey string, opts ...option.RequestOption) *Commentator {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(all...), model: DefaultModel}
}

// WithModel overrides the chat model.
func (c *Commentator) WithModel(model string) *Commentator {
	if model != "" {
		c.model = model
	}
	return c
}

const systemPrompt = `You are a portfolio analyst writing the commentary line of a daily report.
You receive the report's metrics as plain text. Write at most four sentences:
what the portfolio did, how risky it was, and one thing to watch.
Use only the numbers given. No advice to buy or sell, no links, no markdown headings.`

// Commentary turns the report facts into a short paragraph.
func (c *Commentator) Commentary(ctx context.Context, facts string) (string, error) {
	facts = strings.TrimSpace(facts)
	if facts == "" {
		return "", errors.New("no facts to comment on")
	}
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: c.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage("Report metrics:\n" + facts),
		},
		MaxTokens: oa.Int(300),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	text := sanitize(resp.Choices[0].Message.Content)
	aiLog.Debug().Str("model", c.model).Int("chars", len(text)).Msg("openai: commentary ready")
	return text, nil
}

var (
	reMarkdownImg = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`) // ![alt](url)
	reURL         = regexp.MustCompile(`https?://\S+`)
)

const maxCommentary = 1200

// sanitize drops links and images from model output and caps its length.
func sanitize(text string) string {
	text = reMarkdownImg.ReplaceAllString(text, "")
	text = reURL.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > maxCommentary {
		text = strings.TrimSpace(string(r[:maxCommentary])) + "…"
	}
	return text
}
