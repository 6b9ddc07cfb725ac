// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	"github.com/roshhellwett/TeleAcademicBot/internal/repository"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// StorageFailureHook observes TryInsert failures. May be nil.
type StorageFailureHook func(kind repository.StorageErrorKind)

type NoticeRepo struct {
	db        *sql.DB
	logger    *slog.Logger
	onFailure StorageFailureHook
}

// NewNoticeRepo creates the Postgres dedup store. logger may be nil (slog.Default is used).
func NewNoticeRepo(db *sql.DB, logger *slog.Logger, onFailure StorageFailureHook) *NoticeRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoticeRepo{db: db, logger: logger, onFailure: onFailure}
}

var _ repository.NoticeRepository = (*NoticeRepo)(nil)

// TryInsert relies on ON CONFLICT DO NOTHING: the affected row count is 1
// only for the caller whose insert won, even under concurrent writers.
func (repo *NoticeRepo) TryInsert(ctx context.Context, n *entity.Notice) bool {
	const query = `
INSERT INTO notices (content_hash, title, source, source_url, document_url, published_date, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (content_hash) DO NOTHING`

	res, err := repo.db.ExecContext(ctx, query,
		n.ContentHash, n.Title, n.Source, n.SourceURL,
		nullString(n.DocumentURL), n.PublishedDate, n.ScrapedAt)
	if err != nil {
		repo.fail(classify("TryInsert", err), n)
		return false
	}

	affected, err := res.RowsAffected()
	if err != nil {
		repo.fail(classify("TryInsert: RowsAffected", err), n)
		return false
	}
	return affected == 1
}

func (repo *NoticeRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM notices WHERE content_hash = $1)`
	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, hash).Scan(&exists); err != nil {
		return false, classify("ExistsByHash", err)
	}
	return exists, nil
}

func (repo *NoticeRepo) Latest(ctx context.Context, n int) ([]*entity.Notice, error) {
	const query = `
SELECT content_hash, title, source, source_url, document_url, published_date, scraped_at
FROM notices
ORDER BY published_date DESC, id DESC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, classify("Latest", err)
	}
	defer func() { _ = rows.Close() }()
	return scanNotices(rows, n, "Latest")
}

func (repo *NoticeRepo) SearchByTitle(ctx context.Context, substring string, n int) ([]*entity.Notice, error) {
	const query = `
SELECT content_hash, title, source, source_url, document_url, published_date, scraped_at
FROM notices
WHERE title ILIKE $1 ESCAPE '\'
ORDER BY published_date DESC, id DESC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, "%"+escapeILIKE(substring)+"%", n)
	if err != nil {
		return nil, classify("SearchByTitle", err)
	}
	defer func() { _ = rows.Close() }()
	return scanNotices(rows, n, "SearchByTitle")
}

func (repo *NoticeRepo) CountAll(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM notices`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, classify("CountAll", err)
	}
	return count, nil
}

func (repo *NoticeRepo) fail(err *repository.StorageError, n *entity.Notice) {
	// 制約違反はデータ側の問題なので Warn、接続系は Error
	level := slog.LevelError
	if repository.IsConstraintViolation(err) {
		level = slog.LevelWarn
	}
	// 失敗時は配信しない(重複送信より未送信を優先)
	repo.logger.Log(context.Background(), level, "notice insert failed, skipping delivery",
		slog.String("kind", err.Kind.String()),
		slog.String("content_hash", n.ContentHash),
		slog.String("source", n.Source),
		slog.Any("error", err.Err))
	if repo.onFailure != nil {
		repo.onFailure(err.Kind)
	}
}

func scanNotices(rows *sql.Rows, capacity int, op string) ([]*entity.Notice, error) {
	if capacity < 0 {
		capacity = 0
	}
	notices := make([]*entity.Notice, 0, capacity)
	for rows.Next() {
		var n entity.Notice
		var doc sql.NullString
		if err := rows.Scan(&n.ContentHash, &n.Title, &n.Source, &n.SourceURL,
			&doc, &n.PublishedDate, &n.ScrapedAt); err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		n.DocumentURL = doc.String
		notices = append(notices, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return notices, nil
}

func classify(op string, err error) *repository.StorageError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &repository.StorageError{Kind: repository.ConstraintViolation, Op: op, Err: err}
	}
	return &repository.StorageError{Kind: repository.ConnectivityFailure, Op: op, Err: err}
}

// escapeILIKE escapes the LIKE metacharacters so user input matches literally.
func escapeILIKE(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
