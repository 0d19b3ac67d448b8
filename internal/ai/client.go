// Package ai forwards prompts to the hosted language model and pulls
// best-effort JSON out of its replies.
package ai

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
)

// ErrUnavailable means no model is configured or the call failed.
var ErrUnavailable = eris.New("ai service unavailable")

type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

type Request struct {
	System    string
	Prompt    string
	MaxTokens int64 // 0 uses the configured default
}

type Response struct {
	Text         string
	Model        string
	StopReason   string
	InputTokens  int64
	OutputTokens int64
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewClient returns a Client for cfg, or nil when no API key is set.
// Callers treat a nil Client as ErrUnavailable.
func NewClient(cfg config.AIConfig, opts ...option.RequestOption) Client {
	if cfg.APIKey == "" {
		return nil
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &sdkClient{
		client:    sdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *sdkClient) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrapf(ErrUnavailable, "anthropic: create message: %v", err)
	}

	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}

	return &Response{
		Text:         text.String(),
		Model:        string(msg.Model),
		StopReason:   string(msg.StopReason),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}

// Complete calls c, mapping a nil client to ErrUnavailable.
func Complete(ctx context.Context, c Client, req Request) (*Response, error) {
	if c == nil {
		return nil, ErrUnavailable
	}
	return c.Complete(ctx, req)
}
