package predictor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIPredictor talks to an OpenAI-compatible chat completion API.
// A custom base URL lets any compatible provider serve as the backing
// model.
type OpenAIPredictor struct {
	client *openai.Client
	model  string
}

// NewOpenAIPredictor creates a predictor for the given backing model
func NewOpenAIPredictor(apiKey, baseURL, model string) (*OpenAIPredictor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("predictor API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
		logrus.Warnf("Predictor model not set, defaulting to %s", model)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	logrus.Infof("Predictor initialized: %s", model)
	return &OpenAIPredictor{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Predict implements the Predictor interface
func (p *OpenAIPredictor) Predict(ctx context.Context, input string, opts Options) (*Result, error) {
	if input == "" {
		return nil, fmt.Errorf("input is required")
	}

	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
	}
	if opts.Temperature != 0 {
		req.Temperature = opts.Temperature
	}
	if opts.MaxTokens != 0 {
		req.MaxCompletionTokens = opts.MaxTokens
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("prediction returned no choices")
	}

	text := resp.Choices[0].Message.Content
	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		// Some compatible providers omit usage; approximate by word count
		tokens = len(strings.Fields(input)) + len(strings.Fields(text))
	}

	logrus.Debugf("Prediction completed: %d tokens, %.2fs", tokens, latency.Seconds())
	return &Result{
		Text:    text,
		Tokens:  tokens,
		Latency: latency,
	}, nil
}
