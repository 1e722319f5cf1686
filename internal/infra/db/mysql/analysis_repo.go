package mysql

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

// Save inserts an analysis; saving the same id again updates it.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
    const q = `
INSERT INTO video_analyses
  (id, video_id, url, title, total_comments, indexed_comments, result_json, duration_ms, created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  title=VALUES(title),
  total_comments=VALUES(total_comments),
  indexed_comments=VALUES(indexed_comments),
  result_json=VALUES(result_json),
  duration_ms=VALUES(duration_ms);
`
    _, err := r.db.ExecContext(ctx, q,
        a.ID, a.VideoID, dashIfEmpty(a.URL), dashIfEmpty(a.Title),
        a.TotalComments, a.IndexedComments, validJSON(a.Result), a.DurationMS, createdAt(a.CreatedAt))
    return err
}

const analysisColumns = `id, video_id, url, title, total_comments, indexed_comments, result_json, duration_ms, created_at`

// Paginate returns analyses newest first
func (r *AnalysisRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Analysis, error) {
    limit, offset := limitOffset(page, pageSize)
    rows, err := r.db.QueryContext(ctx, `
SELECT `+analysisColumns+`
FROM video_analyses
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`, limit, offset)
    if err != nil { return nil, err }
    defer rows.Close()

    var out []*domain.Analysis
    for rows.Next() {
        a, err := scanAnalysis(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, a)
    }
    return out, rows.Err()
}

func (r *AnalysisRepository) LatestByVideo(ctx context.Context, videoID string) (*domain.Analysis, error) {
    row := r.db.QueryRowContext(ctx, `
SELECT `+analysisColumns+`
FROM video_analyses
WHERE video_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1;`, videoID)
    a, err := scanAnalysis(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, domain.ErrNotFound
    }
    return a, err
}

type scanner interface {
    Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
    var a domain.Analysis
    err := s.Scan(&a.ID, &a.VideoID, &a.URL, &a.Title, &a.TotalComments, &a.IndexedComments, &a.Result, &a.DurationMS, &a.CreatedAt)
    if err != nil {
        return nil, err
    }
    return &a, nil
}
