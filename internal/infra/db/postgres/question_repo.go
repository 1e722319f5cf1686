package postgres

import (
    "context"
    "database/sql"

    domain "github.com/bryanwahyu/comment-analyzer/internal/domain/history"
)

type QuestionRepository struct {
    db *sql.DB
}

func NewQuestionRepository(db *sql.DB) *QuestionRepository { return &QuestionRepository{db: db} }

func (r *QuestionRepository) Save(ctx context.Context, q *domain.Question) error {
    const stmt = `
INSERT INTO video_questions
  (id, video_id, question, answer, k_used, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
    _, err := r.db.ExecContext(ctx, stmt,
        q.ID, q.VideoID, stringOrDash(q.Question), q.Answer, q.KUsed, q.DurationMS, nowIfZero(q.CreatedAt))
    return err
}

func (r *QuestionRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Question, error) {
    limit, offset := pageOffset(page, pageSize)
    const stmt = `
SELECT id, video_id, question, answer, k_used, duration_ms, created_at
FROM video_questions
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;`
    rows, err := r.db.QueryContext(ctx, stmt, limit, offset)
    if err != nil { return nil, err }
    defer rows.Close()

    var out []*domain.Question
    for rows.Next() {
        var q domain.Question
        if err := rows.Scan(&q.ID, &q.VideoID, &q.Question, &q.Answer, &q.KUsed, &q.DurationMS, &q.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, &q)
    }
    return out, rows.Err()
}
