package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"jobhelper/internal/extract"
	"jobhelper/internal/llm"
	"jobhelper/internal/shared/telemetry"
)

const defaultMaxTokens = 1000

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Completer using the Gemini API.
type Client struct {
	models    generator
	model     string
	maxTokens int
}

// New constructs a Gemini client. A zero timeout means none.
func New(ctx context.Context, apiKey, model string, maxTokens int, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newWithGenerator(client.Models, model, maxTokens), nil
}

func newWithGenerator(g generator, model string, maxTokens int) *Client {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{models: g, model: model, maxTokens: maxTokens}
}

func (c *Client) Name() string { return "Gemini" }

// Complete sends the request as one user turn and returns the response text.
func (c *Client) Complete(ctx context.Context, in llm.PromptRequest) (string, error) {
	contents, err := toContents(in)
	if err != nil {
		return "", err
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
	}
	if strings.TrimSpace(in.System) != "" {
		config.SystemInstruction = genai.NewContentFromText(in.System, genai.RoleUser)
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini error %d: %s", apiErr.Code, apiErr.Message)
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
			return "", fmt.Errorf("gemini error %d: %s", apiErrPtr.Code, apiErrPtr.Message)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini response missing candidates")
	}
	logUsage(c.model, time.Since(start), resp.UsageMetadata)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini response empty content")
	}
	return text, nil
}

// toContents converts image data URIs to inline blobs; order is kept.
func toContents(in llm.PromptRequest) ([]*genai.Content, error) {
	parts := make([]*genai.Part, 0, len(in.Parts))
	for i, p := range in.Parts {
		switch p.Type {
		case llm.PartImage:
			mime, data, err := extract.ParseDataURI(p.ImageURL)
			if err != nil {
				return nil, fmt.Errorf("image part %d: %w", i, err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, mime))
		case llm.PartText:
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

func logUsage(model string, took time.Duration, usage *genai.GenerateContentResponseUsageMetadata) {
	fields := map[string]any{
		"provider":    "gemini",
		"model":       model,
		"duration_ms": took.Milliseconds(),
	}
	if usage != nil {
		fields["prompt_tokens"] = usage.PromptTokenCount
		fields["completion_tokens"] = usage.CandidatesTokenCount
		fields["total_tokens"] = usage.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)
}

var _ llm.Completer = (*Client)(nil)
