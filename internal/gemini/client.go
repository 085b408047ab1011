package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"voiceorder-service/pkg/config"
	"voiceorder-service/prometheus"
)

// Client calls the generative language API. It is the only integration point
// with the model; callers pass fully built instruction text and get back the
// raw response text.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a model client from configuration
func NewClient(cfg *config.GeminiConfig) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractOrder sends the system prompt, the serialized catalog text and the
// inlined audio clip, requesting strict JSON output. Returns the raw JSON
// text of the first candidate.
func (c *Client) ExtractOrder(ctx context.Context, systemPrompt, userText, audioMimeType, audioBase64 string) (string, error) {
	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		Contents: []content{
			{
				Parts: []part{
					{Text: userText},
					{InlineData: &inlineData{MimeType: audioMimeType, Data: audioBase64}},
				},
			},
		},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}
	return c.generate(ctx, "extract_order", req)
}

// GenerateText sends a plain system instruction plus user message and returns
// the text of the first candidate. Used by the prompt improver.
func (c *Client) GenerateText(ctx context.Context, systemPrompt, userText string) (string, error) {
	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		Contents:          []content{{Parts: []part{{Text: userText}}}},
	}
	return c.generate(ctx, "improve_prompt", req)
}

func (c *Client) generate(ctx context.Context, kind string, payload generateRequest) (string, error) {
	defer prometheus.TrackGeminiCall(kind)(time.Now())

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		prometheus.RecordGeminiError(kind)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		prometheus.RecordGeminiError(kind)
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		prometheus.RecordGeminiError(kind)
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("%s", apiErr.Error.Message)
		}
		return "", fmt.Errorf("gemini api error: %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		prometheus.RecordGeminiError(kind)
		return "", fmt.Errorf("malformed gemini response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 ||
		genResp.Candidates[0].Content.Parts[0].Text == "" {
		prometheus.RecordGeminiError(kind)
		return "", fmt.Errorf("no response from gemini")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}
