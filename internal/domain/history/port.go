package history

import "context"

// AnalysisRepository port for persisting and querying analyses
type AnalysisRepository interface {
	Save(ctx context.Context, a *Analysis) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Analysis, error)
	LatestByVideo(ctx context.Context, videoID string) (*Analysis, error)
}

type QuestionRepository interface {
	Save(ctx context.Context, q *Question) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Question, error)
}

// FailureRepository defines persistence for failed actions
type FailureRepository interface {
	Save(ctx context.Context, f *Failure) error
	List(ctx context.Context, videoID string, limit int) ([]*Failure, error)
}

// Repositories groups the three stores so they can be wired together.
type Repositories struct {
	Analyses  AnalysisRepository
	Questions QuestionRepository
	Failures  FailureRepository
}
