package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const DefaultSystemPrompt = "You're an AI assistant specialized in AI development, embedded systems like the Jetson Nano, and Google technologies. " +
	"Answer questions clearly and concisely in a friendly, professional tone. Do not use asterisks and emojis, do not ask new questions " +
	"or act as the user. Keep replies short to speed up inference. If unsure, admit it and suggest looking into it further."

var ErrEmptyResponse = errors.New("empty completion")

// Completer produces a single completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Params struct {
	Temperature float64
	MaxTokens   int
}

// BuildPrompt lays out the system text, retrieved context and question in
// the shape the local server was tuned with.
func BuildPrompt(system, context, question string) string {
	var b strings.Builder
	if system != "" {
		b.WriteString(system)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Context: %s\nQuestion: %s\nAnswer:", context, question)
	return b.String()
}
