package mysql

import (
    "context"
    "database/sql"

    domain "github.com/bryanwahyu/comment-analyzer/internal/domain/history"
)

type FailureRepository struct {
    db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

// Save stores the failure and sets f.ID to the generated id.
func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
    const q = `
INSERT INTO action_failures
  (video_id, action, input, message, created_at)
VALUES (?,?,?,?,?)
`
    res, err := r.db.ExecContext(ctx, q,
        dashIfEmpty(f.VideoID), dashIfEmpty(f.Action), f.Input, dashIfEmpty(f.Message), createdAt(f.CreatedAt))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    f.ID = id
    return nil
}

// List returns the latest failures; an empty videoID lists every video.
func (r *FailureRepository) List(ctx context.Context, videoID string, limit int) ([]*domain.Failure, error) {
    if limit <= 0 { limit = 20 }
    const q = `
SELECT id, video_id, action, input, message, created_at
FROM action_failures
WHERE (? = '' OR video_id = ?)
ORDER BY created_at DESC, id DESC
LIMIT ?;`
    rows, err := r.db.QueryContext(ctx, q, videoID, videoID, limit)
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
