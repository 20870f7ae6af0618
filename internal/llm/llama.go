package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"
)

// Llama talks to a llama.cpp server's native /completion endpoint.
type Llama struct {
	baseURL    string
	params     Params
	httpClient *http.Client
}

func NewLlama(baseURL string, params Params, httpClient *http.Client) *Llama {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Llama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		params:     params,
		httpClient: httpClient,
	}
}

type completionRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	NPredict    int     `json:"n_predict,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Stream      bool    `json:"stream"`
}

type completionResponse struct {
	Content string `json:"content"`
	Stop    bool   `json:"stop"`
}

func (l *Llama) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:      prompt,
		Temperature: l.params.Temperature,
		NPredict:    l.params.MaxTokens,
		MaxTokens:   l.params.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	log.Debug("Completion", "chars", len(out.Content))

	content := strings.TrimSpace(out.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
