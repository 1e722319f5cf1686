package history

import (
	"context"

	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/history"
)

// Service exposes the audit trail of analyses, questions and failures.
type Service struct {
	Repos domain.Repositories
}

func (s *Service) ListAnalyses(ctx context.Context, page, pageSize int) ([]*domain.Analysis, error) {
	if s.Repos.Analyses == nil {
		return []*domain.Analysis{}, nil
	}
	out, err := s.Repos.Analyses.Paginate(ctx, page, pageSize)
	return nonNil(out), err
}

func (s *Service) LatestAnalysis(ctx context.Context, videoID string) (*domain.Analysis, error) {
	if s.Repos.Analyses == nil {
		return nil, domain.ErrNotFound
	}
	return s.Repos.Analyses.LatestByVideo(ctx, videoID)
}

func (s *Service) ListQuestions(ctx context.Context, page, pageSize int) ([]*domain.Question, error) {
	if s.Repos.Questions == nil {
		return []*domain.Question{}, nil
	}
	out, err := s.Repos.Questions.Paginate(ctx, page, pageSize)
	return nonNil(out), err
}

// ListFailures lists failures of one video, or of all videos when videoID is "".
func (s *Service) ListFailures(ctx context.Context, videoID string, limit int) ([]*domain.Failure, error) {
	if s.Repos.Failures == nil {
		return []*domain.Failure{}, nil
	}
	out, err := s.Repos.Failures.List(ctx, videoID, limit)
	return nonNil(out), err
}

// nonNil keeps JSON responses as [] rather than null.
func nonNil[T any](s []*T) []*T {
	if s == nil {
		return []*T{}
	}
	return s
}
