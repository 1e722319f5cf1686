package postgres

import (
    "context"
    "database/sql"

    domain "github.com/bryanwahyu/comment-analyzer/internal/domain/history"
)

type FailureRepository struct {
    db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
    const q = `
INSERT INTO action_failures
  (video_id, action, input, message, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id`
    return r.db.QueryRowContext(ctx, q,
        stringOrDash(f.VideoID), stringOrDash(f.Action), f.Input, stringOrDash(f.Message), nowIfZero(f.CreatedAt),
    ).Scan(&f.ID)
}

// List returns the latest failures; an empty videoID lists every video.
func (r *FailureRepository) List(ctx context.Context, videoID string, limit int) ([]*domain.Failure, error) {
    if limit <= 0 { limit = 20 }
    const q = `
SELECT id, video_id, action, input, message, created_at
FROM action_failures
WHERE ($1 = '' OR video_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2;`
    rows, err := r.db.QueryContext(ctx, q, videoID, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*domain.Failure
    for rows.Next() {
        var f domain.Failure
        if err := rows.Scan(&f.ID, &f.VideoID, &f.Action, &f.Input, &f.Message, &f.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, &f)
    }
    return out, rows.Err()
}
