// Package memory keeps history in process memory. It is used when no
// database driver is configured, so history lives as long as the server.
package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/history"
)

// maxRecords bounds each store; the oldest records are dropped first.
const maxRecords = 1000

func NewRepositories() domain.Repositories {
	return domain.Repositories{
		Analyses:  &AnalysisRepository{},
		Questions: &QuestionRepository{},
		Failures:  &FailureRepository{},
	}
}

type AnalysisRepository struct {
	mu   sync.RWMutex
	rows []domain.Analysis
}

func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == a.ID {
			r.rows[i] = *a
			return nil
		}
	}
	r.rows = trim(append(r.rows, *a))
	return nil
}

func (r *AnalysisRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sorted := newestFirst(r.rows, func(a domain.Analysis) int64 { return a.CreatedAt.UnixNano() })
	return paginate(sorted, page, pageSize), nil
}

func (r *AnalysisRepository) LatestByVideo(ctx context.Context, videoID string) (*domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.Analysis
	for i := range r.rows {
		a := r.rows[i]
		if a.VideoID != videoID {
			continue
		}
		if latest == nil || !a.CreatedAt.Before(latest.CreatedAt) {
			latest = &a
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

type QuestionRepository struct {
	mu   sync.RWMutex
	rows []domain.Question
}

func (r *QuestionRepository) Save(ctx context.Context, q *domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = trim(append(r.rows, *q))
	return nil
}

func (r *QuestionRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sorted := newestFirst(r.rows, func(q domain.Question) int64 { return q.CreatedAt.UnixNano() })
	return paginate(sorted, page, pageSize), nil
}

type FailureRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   []domain.Failure
}

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	f.ID = r.nextID
	r.rows = trim(append(r.rows, *f))
	return nil
}

func (r *FailureRepository) List(ctx context.Context, videoID string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Failure
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		f := r.rows[i]
		if videoID != "" && f.VideoID != videoID {
			continue
		}
		out = append(out, &f)
	}
	return out, nil
}

func trim[T any](rows []T) []T {
	if len(rows) > maxRecords {
		return rows[len(rows)-maxRecords:]
	}
	return rows
}

// newestFirst copies rows ordered by key desc; insertion order breaks ties
// with the later record first.
func newestFirst[T any](rows []T, key func(T) int64) []T {
	out := make([]T, len(rows))
	for i := range rows {
		out[len(rows)-1-i] = rows[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) > key(out[j]) })
	return out
}

func paginate[T any](rows []T, page, pageSize int) []*T {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return nil
	}
	end := min(start+pageSize, len(rows))
	out := make([]*T, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, &rows[i])
	}
	return out
}
