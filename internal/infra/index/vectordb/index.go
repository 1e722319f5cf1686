package vectordb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
)

// Index stores comment embeddings in PostgreSQL using the pgvector extension.
type Index struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*Index, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Index{pool: pool}, nil
}

// EnsureSchema creates the extension and table when missing.
func (x *Index) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS comment_embeddings (
  video_id     TEXT        NOT NULL,
  comment_id   TEXT        NOT NULL,
  author       TEXT        NOT NULL DEFAULT '',
  content      TEXT        NOT NULL,
  likes        BIGINT      NOT NULL DEFAULT 0,
  parent_id    TEXT        NOT NULL DEFAULT '',
  published_at TIMESTAMPTZ,
  embedding    vector      NOT NULL,
  PRIMARY KEY (video_id, comment_id)
);`
	_, err := x.pool.Exec(ctx, q)
	return err
}

// Replace swaps the stored comments of a video in one transaction.
func (x *Index) Replace(ctx context.Context, videoID string, docs []domain.Document) error {
	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM comment_embeddings WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("clearing video %s: %w", videoID, err)
	}

	batch := &pgx.Batch{}
	for _, d := range docs {
		var published *time.Time
		if !d.PublishedAt.IsZero() {
			t := d.PublishedAt
			published = &t
		}
		batch.Queue(`
INSERT INTO comment_embeddings
  (video_id, comment_id, author, content, likes, parent_id, published_at, embedding)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (video_id, comment_id) DO NOTHING`,
			videoID, d.ID, d.Author, d.Text, d.Likes, d.ParentID, published, pgvector.NewVector(d.Embedding))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("storing comments: %w", err)
	}
	return tx.Commit(ctx)
}

// Search returns the k comments closest to query by cosine distance.
func (x *Index) Search(ctx context.Context, videoID string, query []float32, k int) ([]domain.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := x.pool.Query(ctx, `
SELECT comment_id, author, content, likes, parent_id, published_at,
       1 - (embedding <=> $1) AS similarity
FROM comment_embeddings
WHERE video_id = $2
ORDER BY embedding <=> $1, likes DESC
LIMIT $3`,
		pgvector.NewVector(query), videoID, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar comments: %w", err)
	}
	defer rows.Close()

	var out []domain.Match
	for rows.Next() {
		var m domain.Match
		var published *time.Time
		if err := rows.Scan(&m.Comment.ID, &m.Comment.Author, &m.Comment.Text, &m.Comment.Likes,
			&m.Comment.ParentID, &published, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if published != nil {
			m.Comment.PublishedAt = *published
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (x *Index) Count(ctx context.Context, videoID string) (int, error) {
	var n int
	err := x.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comment_embeddings WHERE video_id = $1`, videoID).Scan(&n)
	return n, err
}

// Release closes idle connections; the pool dials again on next use.
func (x *Index) Release() {
	x.pool.Reset()
}

// Ping is used by the health endpoint.
func (x *Index) Ping(ctx context.Context) error {
	return x.pool.Ping(ctx)
}

func (x *Index) Close() error {
	x.pool.Close()
	return nil
}
