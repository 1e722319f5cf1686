package openai

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strings"

    "github.com/sashabaranov/go-openai"
    "golang.org/x/sync/errgroup"

    "github.com/bryanwahyu/comment-analyzer/internal/domain/ai"
    "github.com/bryanwahyu/comment-analyzer/internal/infra/ai/prompt"
)

const (
    maxTokens = 1024

    defaultChatModel  = "gpt-4o-mini"
    defaultEmbedModel = string(openai.SmallEmbedding3)
    defaultBatchSize  = 100
    defaultWorkers    = 4
)

type Options struct {
    BaseURL    string
    ChatModel  string
    EmbedModel string
    BatchSize  int
    Workers    int
}

type Client struct {
    *openai.Client
    ChatModel  string
    EmbedModel string
    BatchSize  int
    Workers    int
}

func NewClient(apiKey string, opts Options) *Client {
    cfg := openai.DefaultConfig(apiKey)
    if opts.BaseURL != "" {
        cfg.BaseURL = opts.BaseURL
    }
    c := &Client{
        Client:     openai.NewClientWithConfig(cfg),
        ChatModel:  opts.ChatModel,
        EmbedModel: opts.EmbedModel,
        BatchSize:  opts.BatchSize,
        Workers:    opts.Workers,
    }
    if c.ChatModel == "" {
        c.ChatModel = defaultChatModel
    }
    if c.EmbedModel == "" {
        c.EmbedModel = defaultEmbedModel
    }
    if c.BatchSize <= 0 {
        c.BatchSize = defaultBatchSize
    }
    if c.Workers <= 0 {
        c.Workers = defaultWorkers
    }
    return c
}

func (c *Client) EmbeddingModel() string { return c.EmbedModel }

// Embed splits texts into batches and embeds them concurrently. The result
// has the same order as texts.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
    out := make([][]float32, len(texts))
    if len(texts) == 0 {
        return out, nil
    }

    g, ctx := errgroup.WithContext(ctx)
    g.SetLimit(c.Workers)
    for start := 0; start < len(texts); start += c.BatchSize {
        end := min(start+c.BatchSize, len(texts))
        g.Go(func() error {
            resp, err := c.CreateEmbeddings(ctx, openai.EmbeddingRequest{
                Input: texts[start:end],
                Model: openai.EmbeddingModel(c.EmbedModel),
            })
            if err != nil {
                return fmt.Errorf("failed to create embeddings: %w", mapError(err))
            }
            if len(resp.Data) != end-start {
                return fmt.Errorf("embedding batch %d-%d: got %d vectors", start, end, len(resp.Data))
            }
            for _, d := range resp.Data {
                if d.Index < 0 || d.Index >= end-start {
                    return fmt.Errorf("embedding batch %d-%d: index %d out of range", start, end, d.Index)
                }
                out[start+d.Index] = d.Embedding
            }
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return nil, err
    }
    return out, nil
}

func (c *Client) Answer(ctx context.Context, req ai.AnswerRequest) (string, error) {
    return c.Complete(ctx, prompt.GetAnswerSystemPrompt(), prompt.GetAnswerUserPrompt(req))
}

func (c *Client) Summarize(ctx context.Context, req ai.SummaryRequest) (string, error) {
    return c.Complete(ctx, prompt.GetSummarySystemPrompt(), prompt.GetSummaryUserPrompt(req))
}

// Complete runs one system+user chat completion with the configured model.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
    req := openai.ChatCompletionRequest{
        Model: c.ChatModel,
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleSystem, Content: system},
            {Role: openai.ChatMessageRoleUser, Content: user},
        },
    }
    // For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
    if isReasoningModel(c.ChatModel) {
        req.MaxCompletionTokens = maxTokens
    } else {
        req.MaxTokens = maxTokens
    }

    resp, err := c.CreateChatCompletion(ctx, req)
    if err != nil {
        return "", fmt.Errorf("failed to create chat completion: %w", mapError(err))
    }
    if len(resp.Choices) == 0 {
        return "", fmt.Errorf("chat completion returned no choices")
    }
    return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func isReasoningModel(model string) bool {
    for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
        if strings.HasPrefix(model, p) {
            return true
        }
    }
    return false
}

// mapError turns rate limit and quota responses into ai.ErrQuotaExceeded.
func mapError(err error) error {
    var apiErr *openai.APIError
    if errors.As(err, &apiErr) {
        if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota" {
            return fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)
        }
        return err
    }
    var reqErr *openai.RequestError
    if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
        return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, reqErr.Err)
    }
    return err
}
