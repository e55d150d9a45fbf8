// internal/coach/coach.go
//
// Coaching-tip client.
// Responsibilities:
//   - Turn (game type, score) into one short piece of advice.
//   - Call an OpenAI-compatible chat-completions endpoint exactly once per tip
//     (Gemini's compatibility endpoint by default).
//   - Never fail: any error yields the configured fallback text.
//
// Notes:
//   - Retries are disabled; each finished game triggers one request.
//   - With no API key the client never touches the network.

package coach

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/neuroprime/internal/game"
	"github.com/robalobadob/neuroprime/internal/metrics"
)

const (
	DefaultBaseURL  = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel    = "gemini-2.5-flash"
	DefaultTimeout  = 8 * time.Second
	DefaultFallback = "Great effort! Consistency is key to building working memory. Try again tomorrow."
)

const systemPrompt = "You are a friendly cognitive performance coach. " +
	"Reply with a single encouraging sentence of at most 25 words and one concrete technique. " +
	"No markdown, no quotes."

// Config controls how the client reaches the text-generation endpoint.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Fallback   string
	HTTPClient *http.Client
	Metrics    *metrics.Recorder
}

// Client produces coaching tips. The zero value is not usable; call New.
type Client struct {
	api      openai.Client
	enabled  bool
	model    string
	timeout  time.Duration
	fallback string
	metrics  *metrics.Recorder
}

// New builds a client. An empty APIKey yields a client that always falls back.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(cfg.Fallback) == "" {
		cfg.Fallback = DefaultFallback
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		api:      openai.NewClient(opts...),
		enabled:  cfg.APIKey != "",
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		fallback: cfg.Fallback,
		metrics:  cfg.Metrics,
	}
}

// Fallback is the text returned whenever a tip cannot be generated.
func (c *Client) Fallback() string { return c.fallback }

// Tip returns a coaching tip for a finished game, or the fallback text.
func (c *Client) Tip(ctx context.Context, t game.Type, score int) string {
	if !c.enabled {
		c.metrics.RecordTip("disabled", 0)
		return c.fallback
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	tip, err := c.complete(ctx, t, score)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn().Err(err).
			Str("game", string(t)).
			Int("score", score).
			Dur("elapsed", elapsed).
			Msg("coach: tip request failed, using fallback")
		c.metrics.RecordTip("fallback", elapsed)
		return c.fallback
	}
	c.metrics.RecordTip("ok", elapsed)
	return tip
}

func (c *Client) complete(ctx context.Context, t game.Type, score int) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Prompt(t, score)),
		},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("coach: empty response")
	}
	tip := clean(resp.Choices[0].Message.Content)
	if tip == "" {
		return "", fmt.Errorf("coach: blank tip")
	}
	return tip, nil
}

// Prompt is the user message sent for a finished game.
func Prompt(t game.Type, score int) string {
	switch t {
	case game.TypeSimon:
		return fmt.Sprintf("I just played a sequence memory game (repeat a growing pattern of colored pads) "+
			"and completed %d rounds. Give me a tip to remember longer sequences.", score)
	case game.TypeMemory:
		return fmt.Sprintf("I just played a visual memory card-matching game and found %d pairs "+
			"before the timer ran out. Give me a tip to remember card positions faster.", score)
	default:
		return fmt.Sprintf("I just finished a short brain warm-up game with a score of %d. "+
			"Give me a tip to prime my focus.", score)
	}
}

// clean trims whitespace and one pair of wrapping quotes that models like to
// add. A quote only at one end is part of the text.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == s[len(s)-1] && strings.IndexByte("\"'`", s[0]) >= 0 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
