package ai

import "context"

// Passage is one comment handed to the model as context.
type Passage struct {
	Author string
	Text   string
	Likes  int64
}

type AnswerRequest struct {
	Question   string
	VideoTitle string
	Passages   []Passage
}

type SummaryRequest struct {
	VideoTitle string
	Channel    string
	Passages   []Passage
}

type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbeddingModel() string
	Answer(ctx context.Context, req AnswerRequest) (string, error)
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}
