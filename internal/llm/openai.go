package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI uses any OpenAI-compatible chat endpoint (llama.cpp server,
// ollama, vLLM or the hosted API).
type OpenAI struct {
	client openai.Client
	model  string
	system string
	params Params
}

func NewOpenAI(baseURL, apiKey, model, system string, params Params, httpClient *http.Client) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		system: system,
		params: params,
	}
}

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if o.system != "" {
		msgs = append(msgs, openai.SystemMessage(o.system))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(o.model),
	}
	if o.params.Temperature > 0 {
		params.Temperature = openai.Float(o.params.Temperature)
	}
	if o.params.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.params.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
