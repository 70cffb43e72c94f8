package competitor

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-intel/pkg/anthropic"
	"github.com/sells-group/competitor-intel/pkg/gemini"
	"github.com/sells-group/competitor-intel/pkg/perplexity"
)

// Perplexity adapts a Perplexity client to Completer.
func Perplexity(c perplexity.Client) Completer {
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		resp, err := c.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			return "", eris.Wrap(err, "competitor: perplexity completion")
		}
		return resp.Text(), nil
	})
}

// Anthropic adapts an Anthropic client to Completer.
func Anthropic(c anthropic.Client, modelName string, maxTokens int64) Completer {
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		resp, err := c.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     modelName,
			MaxTokens: maxTokens,
			System:    "You are an industry analyst. Respond with a JSON array only.",
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			return "", eris.Wrap(err, "competitor: anthropic message")
		}
		return resp.Text(), nil
	})
}

// Gemini adapts a Gemini client to Completer.
func Gemini(c gemini.Client) Completer {
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		text, err := c.Generate(ctx, prompt)
		if err != nil {
			return "", eris.Wrap(err, "competitor: gemini generate")
		}
		return text, nil
	})
}
