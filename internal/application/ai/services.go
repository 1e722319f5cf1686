package ai

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/bryanwahyu/comment-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
)

// maxPassageRunes keeps a single very long comment from eating the prompt.
const maxPassageRunes = 1200

type Service struct {
	client ai.Client
}

func NewService(client ai.Client) *Service {
	return &Service{client: client}
}

func (s *Service) EmbeddingModel() string {
	return s.client.EmbeddingModel()
}

// Embed returns one vector per text, in order.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := s.client.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d want %d", len(vecs), len(texts))
	}
	return vecs, nil
}

// EmbedQuery embeds a single query string.
func (s *Service) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{q})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Answer asks the model to answer question using only the matched comments.
func (s *Service) Answer(ctx context.Context, question string, video *comments.Metadata, matches []comments.Match) (string, error) {
	req := ai.AnswerRequest{Question: question}
	if video != nil {
		req.VideoTitle = video.Title
	}
	for _, m := range matches {
		req.Passages = append(req.Passages, toPassage(m.Comment))
	}
	return s.client.Answer(ctx, req)
}

// Summarize summarizes the sampleSize most liked comments of a video.
func (s *Service) Summarize(ctx context.Context, video *comments.Video, cs []comments.Comment, sampleSize int) (string, error) {
	sample := MostLiked(cs, sampleSize)
	if len(sample) == 0 {
		return "", nil
	}
	req := ai.SummaryRequest{VideoTitle: video.Title, Channel: video.Channel}
	for _, c := range sample {
		req.Passages = append(req.Passages, toPassage(c))
	}
	return s.client.Summarize(ctx, req)
}

// MostLiked returns up to n comments ordered by likes desc. Input is not modified.
func MostLiked(cs []comments.Comment, n int) []comments.Comment {
	if n <= 0 || len(cs) == 0 {
		return nil
	}
	sorted := make([]comments.Comment, len(cs))
	copy(sorted, cs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Likes > sorted[j].Likes })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func toPassage(c comments.Comment) ai.Passage {
	return ai.Passage{Author: c.Author, Text: truncateRunes(c.Text, maxPassageRunes), Likes: c.Likes}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
