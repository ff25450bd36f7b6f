package processors

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ChugThaJug/hellfast/config"
)

// GenerateResult carries one completion plus the token usage it consumed.
type GenerateResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// GenerateOptions tune a single call. JSONMode asks the service for a
// structured JSON object response.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// TextGenerator is the synchronous contract onto the text-generation
// service. Implementations may fail transiently (network, rate limits);
// callers own retry and fallback policy.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, content string, opts GenerateOptions) (*GenerateResult, error)
}

// OpenAIGenerator drives chat completions through the configured model.
type OpenAIGenerator struct {
	cli   *openai.Client
	model string
}

func NewOpenAIGenerator(cfg *config.Config) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		cli:   openai.NewClientWithConfig(clientConfig),
		model: cfg.Model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, content string, opts GenerateOptions) (*GenerateResult, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := g.cli.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	return &GenerateResult{
		Content:      strings.TrimSpace(resp.Choices[0].Message.Content),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
