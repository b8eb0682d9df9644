package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

// OpenAI implements Client and Embedder against the OpenAI API (or a
// compatible endpoint via base URL override). All calls share one
// token-bucket limiter.
type OpenAI struct {
	client     openai.Client
	chatModel  string
	embedModel string
	limiter    *rate.Limiter
	log        *slog.Logger
}

func NewOpenAI(apiKey, baseURL, chatModel, embedModel string, log *slog.Logger) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client:     openai.NewClient(opts...),
		chatModel:  chatModel,
		embedModel: embedModel,
		limiter:    newLimiter(),
		log:        log,
	}
}

// Invoke sends a chat completion request and returns the first choice's
// content.
func (o *OpenAI) Invoke(ctx context.Context, messages []Message, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.chatModel),
		Temperature: openai.Float(temperature),
	}
	tokens := 0
	for _, m := range messages {
		tokens += estimateTokens(m.Content)
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := rateLimitedCall(ctx, o.limiter, tokens, o.log, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return o.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns one embedding vector per input text.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	tokens := 0
	for _, t := range texts {
		tokens += estimateTokens(t)
	}
	resp, err := rateLimitedCall(ctx, o.limiter, tokens, o.log, func(ctx context.Context) (*openai.CreateEmbeddingResponse, error) {
		return o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(o.embedModel),
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}
