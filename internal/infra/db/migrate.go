package db

import (
	"context"
	"database/sql"
)

// MigrateUp creates the notices table and its indexes. It is idempotent.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	// content_hash の UNIQUE 制約が重複排除の唯一の根拠
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS notices (
    id             BIGSERIAL PRIMARY KEY,
    content_hash   CHAR(64) NOT NULL UNIQUE,
    title          TEXT NOT NULL,
    source         TEXT NOT NULL,
    source_url     TEXT NOT NULL,
    document_url   TEXT,
    published_date DATE NOT NULL,
    scraped_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		// Latest(n): ORDER BY published_date DESC, id DESC
		`CREATE INDEX IF NOT EXISTS idx_notices_published_date ON notices(published_date DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notices_source ON notices(source)`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}

	// pg_trgm拡張を有効化(ILIKE検索高速化用)
	// エラーを無視(既に存在する場合やスーパーユーザー権限がない場合)
	_, _ = db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS pg_trgm`)
	_, _ = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_notices_title_gin ON notices USING gin(title gin_trgm_ops)`)

	return nil
}
