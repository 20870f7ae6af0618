package vlm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"orin/internal/tts"
)

const NoResponse = "No response generated."

var DefaultPrompts = []string{"Describe the image concisely."}

var ErrNoImage = errors.New("empty image")

// Describer asks an OpenAI-compatible vision model about a still image.
// Prompts run as one conversation so later prompts can refer to earlier
// answers.
type Describer struct {
	client    openai.Client
	model     string
	maxTokens int
}

func NewDescriber(baseURL, apiKey, model string, maxTokens int, httpClient *http.Client) *Describer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &Describer{client: openai.NewClient(opts...), model: model, maxTokens: maxTokens}
}

// DataURL embeds an image as a base64 data URL.
func DataURL(img []byte) string {
	return "data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img)
}

// Describe runs every prompt against img and returns one reply per prompt.
func (d *Describer) Describe(ctx context.Context, img []byte, prompts []string) ([]string, error) {
	if len(img) == 0 {
		return nil, ErrNoImage
	}
	if len(prompts) == 0 {
		prompts = DefaultPrompts
	}

	var history []openai.ChatCompletionMessageParamUnion
	replies := make([]string, 0, len(prompts))
	for i, prompt := range prompts {
		if i == 0 {
			history = append(history, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: DataURL(img)}),
				openai.TextContentPart(prompt),
			}))
		} else {
			history = append(history, openai.UserMessage(prompt))
		}

		params := openai.ChatCompletionNewParams{
			Messages: history,
			Model:    openai.ChatModel(d.model),
		}
		if d.maxTokens > 0 {
			params.MaxTokens = openai.Int(int64(d.maxTokens))
		}

		resp, err := d.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return replies, fmt.Errorf("describe %q: %w", prompt, err)
		}

		reply := ""
		if len(resp.Choices) > 0 {
			reply = tts.Clean(resp.Choices[0].Message.Content)
		}
		if reply == "" {
			reply = NoResponse
		}
		replies = append(replies, reply)
		history = append(history, openai.AssistantMessage(reply))
	}
	return replies, nil
}
