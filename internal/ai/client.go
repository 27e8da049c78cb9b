package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/avelez/signaldesk/internal/config"
	"github.com/avelez/signaldesk/internal/logger"
)

// Client talks to an OpenAI-compatible analysis gateway.
type Client struct {
	client *openai.Client
	model  string
	cfg    *config.Config
	logger *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	ocfg := openai.DefaultConfig(cfg.AI.APIKey)
	ocfg.BaseURL = cfg.AI.BaseURL

	return &Client{
		client: openai.NewClientWithConfig(ocfg),
		model:  cfg.AI.Model,
		cfg:    cfg,
		logger: log,
	}
}

// Analyze requests a directional recommendation for one market snapshot.
// It returns the sanitized analysis together with the raw model output.
func (c *Client) Analyze(ctx context.Context, snap *MarketSnapshot) (*SignalAnalysis, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AITimeout())
	defer cancel()

	c.logger.Debug("requesting analysis", "symbol", snap.Symbol, "timeframe", snap.Timeframe)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(snap)},
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("analysis API call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, "", fmt.Errorf("analysis gateway returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	c.logger.Debug("analysis raw response", "symbol", snap.Symbol, "length", len(raw))

	analysis, err := ParseAnalysis(raw, snap.Price)
	if err != nil {
		return nil, raw, err
	}

	return analysis, raw, nil
}
