package mysql

import (
    "context"
    "database/sql"
    "fmt"
)

var schema = []string{
    `CREATE TABLE IF NOT EXISTS video_analyses (
  id VARCHAR(36) NOT NULL PRIMARY KEY,
  video_id VARCHAR(32) NOT NULL,
  url VARCHAR(512) NOT NULL,
  title VARCHAR(512) NOT NULL,
  total_comments INT NOT NULL DEFAULT 0,
  indexed_comments INT NOT NULL DEFAULT 0,
  result_json JSON NOT NULL,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  created_at DATETIME(3) NOT NULL,
  INDEX idx_video_analyses_video (video_id, created_at)
)`,
    `CREATE TABLE IF NOT EXISTS video_questions (
  id VARCHAR(36) NOT NULL PRIMARY KEY,
  video_id VARCHAR(32) NOT NULL,
  question TEXT NOT NULL,
  answer MEDIUMTEXT NOT NULL,
  k_used INT NOT NULL DEFAULT 0,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  created_at DATETIME(3) NOT NULL,
  INDEX idx_video_questions_video (video_id, created_at)
)`,
    `CREATE TABLE IF NOT EXISTS action_failures (
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  video_id VARCHAR(32) NOT NULL,
  action VARCHAR(16) NOT NULL,
  input TEXT NOT NULL,
  message TEXT NOT NULL,
  created_at DATETIME(3) NOT NULL,
  INDEX idx_action_failures_video (video_id, created_at)
)`,
}

// EnsureSchema creates the history tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
    for _, stmt := range schema {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return fmt.Errorf("mysql schema: %w", err)
        }
    }
    return nil
}
