package provider

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini answers through the Gemini API.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini generator. baseURL overrides the API endpoint when set.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, req.Model,
		[]*genai.Content{genai.NewContentFromText(UserPrompt(req.Query), genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(SystemPrompt(req.Query, req.Knowledge), genai.RoleUser),
		},
	)
	if err != nil {
		return "", geminiFailure(err)
	}
	return resp.Text(), nil
}

func geminiFailure(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Failure{Name: apiErr.Status, Message: apiErr.Message, HTTPStatus: apiErr.Code}
	}
	var apiPtr *genai.APIError
	if errors.As(err, &apiPtr) {
		return &Failure{Name: apiPtr.Status, Message: apiPtr.Message, HTTPStatus: apiPtr.Code}
	}
	return err
}
