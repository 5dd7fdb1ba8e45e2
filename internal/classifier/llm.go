package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `You receive a wedding guest's reply to a wedding invitation.
Decide whether the guest means "yes" (attending), "no" (not attending) or "maybe".
Tolerate small spelling mistakes (for example "מגיא", "לאא" or "אווליי").
Answer in the guest's language with exactly one word and nothing else:
Hebrew: כן / לא / אולי
English: yes / no / maybe`

// LLM classifies replies through an OpenAI-compatible chat completion endpoint.
// Ollama exposes one at http://localhost:11434/v1/.
type LLM struct {
	client openai.Client
	model  string
}

// LLMConfig configures the completion endpoint.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewLLM creates a fuzzy classifier. Requests are never retried.
func NewLLM(cfg LLMConfig) *LLM {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &LLM{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (l *LLM) Classify(ctx context.Context, text string) (Kind, error) {
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return Unrecognized, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Unrecognized, fmt.Errorf("chat completion: no choices")
	}
	return parseAnswer(resp.Choices[0].Message.Content), nil
}

// parseAnswer accepts only a single yes/no/maybe word, ignoring quotes and punctuation.
func parseAnswer(raw string) Kind {
	answer := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "\"'`.,!?:;׳״ \n\t"))
	switch answer {
	case "כן", "yes":
		return Yes
	case "לא", "no":
		return No
	case "אולי", "maybe":
		return Maybe
	}
	return Unrecognized
}
