package summarize

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You describe changes to a monitored resource in one or two plain sentences. " +
	"State only what changed, from what, to what. No preamble, no markdown."

// OpenAI is a Generator backed by the OpenAI chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI generator. An empty apiKey yields a generator
// that reports itself unavailable. An empty model defaults to gpt-4o-mini.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	g := &OpenAI{model: model}
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
	}
	return g
}

// Available reports whether an API key was configured.
func (g *OpenAI) Available() bool { return g.client != nil }

// Summarize sends the change payload to the chat completion API.
func (g *OpenAI) Summarize(ctx context.Context, changes []Change) (string, error) {
	if g.client == nil {
		return "", ErrUnavailable
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(changes)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrGeneration)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGeneration)
	}
	return text, nil
}

// buildPrompt lists each transition on its own line, preserving field order.
func buildPrompt(changes []Change) string {
	var b strings.Builder
	b.WriteString("The following fields changed:\n")
	for _, c := range changes {
		fmt.Fprintf(&b, "- %s: %q -> %q\n", c.Field, c.Old, c.New)
	}
	return b.String()
}
