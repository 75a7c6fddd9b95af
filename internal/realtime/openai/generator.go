package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Generator produces one-shot text completions, used for post-session
// transcript summaries. It is independent of the realtime control channel.
type Generator struct {
	client openai.Client
	model  string
}

func NewGenerator(apiKey, model string) *Generator {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &Generator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (g *Generator) Generate(ctx context.Context, instructions, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instructions),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai.Generator.Generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai.Generator.Generate: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
