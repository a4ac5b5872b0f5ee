package summarize

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Generator 调用语言模型生成一段摘要文本
type Generator interface {
	Generate(ctx context.Context, model, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// OpenAIGenerator 基于 OpenAI Chat Completions API 的生成器
type OpenAIGenerator struct {
	client openai.Client
}

// NewOpenAIGenerator 创建生成器，baseURL 为空时使用官方地址
func NewOpenAIGenerator(apiKey, baseURL string) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{client: openai.NewClient(opts...)}
}

// Generate 发起一次补全请求并返回首个候选的文本
func (g *OpenAIGenerator) Generate(ctx context.Context, model, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
