package postgres

import (
    "context"
    "database/sql"
    "errors"

    domain "github.com/bryanwahyu/comment-analyzer/internal/domain/history"
)

type AnalysisRepository struct {
    db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
    return &AnalysisRepository{db: db}
}

// Save inserts or updates an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
    const q = `
INSERT INTO video_analyses
  (id, video_id, url, title, total_comments, indexed_comments, result_json, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  title=EXCLUDED.title,
  total_comments=EXCLUDED.total_comments,
  indexed_comments=EXCLUDED.indexed_comments,
  result_json=EXCLUDED.result_json,
  duration_ms=EXCLUDED.duration_ms;
`
    _, err := r.db.ExecContext(ctx, q,
        a.ID, a.VideoID, stringOrDash(a.URL), stringOrDash(a.Title),
        a.TotalComments, a.IndexedComments, jsonOrEmpty(a.Result), a.DurationMS, nowIfZero(a.CreatedAt))
    return err
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalysisRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Analysis, error) {
    limit, offset := pageOffset(page, pageSize)
    const q = `
SELECT id, video_id, url, title, total_comments, indexed_comments, result_json::text, duration_ms, created_at
FROM video_analyses
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
    rows, err := r.db.QueryContext(ctx, q, limit, offset)
    if err != nil { return nil, err }
    defer rows.Close()

    var out []*domain.Analysis
    for rows.Next() {
        var a domain.Analysis
        if err := rows.Scan(&a.ID, &a.VideoID, &a.URL, &a.Title, &a.TotalComments, &a.IndexedComments, &a.Result, &a.DurationMS, &a.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, &a)
    }
    return out, rows.Err()
}

func (r *AnalysisRepository) LatestByVideo(ctx context.Context, videoID string) (*domain.Analysis, error) {
    const q = `
SELECT id, video_id, url, title, total_comments, indexed_comments, result_json::text, duration_ms, created_at
FROM video_analyses
WHERE video_id=$1
ORDER BY created_at DESC, id DESC
LIMIT 1;`
    var a domain.Analysis
    err := r.db.QueryRowContext(ctx, q, videoID).Scan(
        &a.ID, &a.VideoID, &a.URL, &a.Title, &a.TotalComments, &a.IndexedComments, &a.Result, &a.DurationMS, &a.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, domain.ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &a, nil
}
