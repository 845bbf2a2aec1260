package provider

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DeepSeekURL is the OpenAI-compatible DeepSeek endpoint.
const DeepSeekURL = "https://api.deepseek.com"

// OpenAI answers through any OpenAI-compatible chat-completion API.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates a generator for baseURL. An empty baseURL uses OpenAI itself.
func NewOpenAI(baseURL, apiKey string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}, nil
}

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(req.Query, req.Knowledge)},
			{Role: openai.ChatMessageRoleUser, Content: UserPrompt(req.Query)},
		},
	})
	if err != nil {
		return "", openAIFailure(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIFailure(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		name := apiErr.Type
		if name == "" {
			name = "APIError"
		}
		return &Failure{Name: name, Message: apiErr.Message, HTTPStatus: apiErr.HTTPStatusCode}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Failure{Name: "RequestError", Message: fmt.Sprint(reqErr.Err), HTTPStatus: reqErr.HTTPStatusCode}
	}
	return err
}
