package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

func NewOpenAIClient(apiKey, model string, maxTokens int, timeout time.Duration) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

func (c *OpenAIClient) GetReply(
	ctx context.Context,
	system string,
	turns []Message,
) (string, error) {

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system + "\n\nKeep the reply short and concise.",
	})
	for _, t := range turns {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    t.Role,
			Content: t.Text,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  msgs,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("ai: empty choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
