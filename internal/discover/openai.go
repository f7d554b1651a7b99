// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/paper-fetch/internal/httputil"
)

// openAIAPIURL is the Responses API endpoint. Package-level var for test substitution.
var openAIAPIURL = "https://api.openai.com/v1/responses"

// OpenAIBackend calls the OpenAI Responses API, optionally with the hosted
// web search tool so the answer can cite current papers.
type OpenAIBackend struct {
	APIKey    string
	Model     string
	Client    *http.Client
	WebSearch bool
}

type openAIRequest struct {
	Model string       `json:"model"`
	Tools []openAITool `json:"tools,omitempty"`
	Input string       `json:"input"`
}

type openAITool struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Output []openAIOutput `json:"output"`
	Error  *openAIError   `json:"error"`
}

// openAIOutput is one output item. Only "message" items carry text.
type openAIOutput struct {
	Type    string          `json:"type"`
	Content []openAIContent `json:"content"`
}

type openAIContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIError struct {
	Message string `json:"message"`
}

// Name returns "openai".
func (o *OpenAIBackend) Name() string { return BackendOpenAI }

// Complete sends prompt and returns the concatenated output text.
func (o *OpenAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := openAIRequest{Model: o.Model, Input: prompt}
	if o.WebSearch {
		reqBody.Tools = []openAITool{{Type: "web_search_preview"}}
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := httputil.DoWithRetry(ctx, client(o.Client), req, 0)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var oResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("decoding OpenAI response: %w", err)
	}
	if oResp.Error != nil && oResp.Error.Message != "" {
		return "", fmt.Errorf("OpenAI API error: %s", oResp.Error.Message)
	}

	var parts []string
	for _, item := range oResp.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				parts = append(parts, c.Text)
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text content in OpenAI response")
	}
	return strings.Join(parts, "\n"), nil
}

func client(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
