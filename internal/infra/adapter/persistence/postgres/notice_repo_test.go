package postgres_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	pg "github.com/roshhellwett/TeleAcademicBot/internal/infra/adapter/persistence/postgres"
	"github.com/roshhellwett/TeleAcademicBot/internal/repository"
)

/* ─────────────────────────── ヘルパ ─────────────────────────── */

var noticeCols = []string{
	"content_hash", "title", "source", "source_url",
	"document_url", "published_date", "scraped_at",
}

func mustNotice(t *testing.T, title, url string, day int) *entity.Notice {
	t.Helper()
	n, err := entity.NewNotice(title, "MAKAUT WB", url,
		time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewNotice: %v", err)
	}
	return n
}

func addRow(rows *sqlmock.Rows, n *entity.Notice) *sqlmock.Rows {
	var doc interface{}
	if n.DocumentURL != "" {
		doc = n.DocumentURL
	}
	return rows.AddRow(n.ContentHash, n.Title, n.Source, n.SourceURL, doc, n.PublishedDate, n.ScrapedAt)
}

const insertSQL = "INSERT INTO notices"

/* ─────────────────────────── 1. TryInsert ─────────────────────────── */

func TestNoticeRepo_TryInsert_FirstThenDuplicate(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	n := mustNotice(t, "Exam schedule", "https://makautwb.ac.in/n/1.pdf", 6)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs(n.ContentHash, n.Title, n.Source, n.SourceURL,
			n.DocumentURL, n.PublishedDate, n.ScrapedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0)) // ON CONFLICT DO NOTHING

	repo := pg.NewNoticeRepo(db, nil, nil)
	first := repo.TryInsert(context.Background(), n)
	second := repo.TryInsert(context.Background(), n)

	if !first || second {
		t.Fatalf("got (%v, %v), want (true, false)", first, second)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestNoticeRepo_TryInsert_NoDocumentURL(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	n := mustNotice(t, "Holiday list", "https://makautwb.ac.in/page.php?id=340#x", 2)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs(n.ContentHash, n.Title, n.Source, n.SourceURL,
			nil, n.PublishedDate, n.ScrapedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if !pg.NewNoticeRepo(db, nil, nil).TryInsert(context.Background(), n) {
		t.Fatal("expected first insert to succeed")
	}
}

func TestNoticeRepo_TryInsert_FailuresReturnFalse(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want repository.StorageErrorKind
	}{
		{"unique violation", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, repository.ConstraintViolation},
		{"connection lost", errors.New("conn closed"), repository.ConnectivityFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, _ := sqlmock.New()
			defer func() { _ = db.Close() }()

			mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WillReturnError(tt.err)

			var got []repository.StorageErrorKind
			repo := pg.NewNoticeRepo(db, nil, func(k repository.StorageErrorKind) { got = append(got, k) })

			if repo.TryInsert(context.Background(), mustNotice(t, "x notice", "https://a/b", 3)) {
				t.Fatal("failure must report false")
			}
			if diff := cmp.Diff([]repository.StorageErrorKind{tt.want}, got); diff != "" {
				t.Fatalf("hook mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNoticeRepo_TryInsert_FailureLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"constraint violation logs warn", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, "level=WARN"},
		{"connectivity failure logs error", errors.New("conn closed"), "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, _ := sqlmock.New()
			defer func() { _ = db.Close() }()
			mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WillReturnError(tt.err)

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			pg.NewNoticeRepo(db, logger, nil).TryInsert(context.Background(), mustNotice(t, "x notice", "https://a/b", 3))

			if !strings.Contains(buf.String(), tt.level) {
				t.Fatalf("log = %q, want %s", buf.String(), tt.level)
			}
		})
	}
}

func TestNoticeRepo_TryInsert_Concurrent(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()
	mock.MatchExpectationsInOrder(false)

	// the unique constraint lets exactly one writer win
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := pg.NewNoticeRepo(db, nil, nil)
	n := mustNotice(t, "Result notice", "https://a/r", 4)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.TryInsert(context.Background(), n)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("wins=%d, want exactly 1", wins)
	}
}

/* ─────────────────────────── 2. ExistsByHash ─────────────────────────── */

func TestNoticeRepo_ExistsByHash(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := pg.NewNoticeRepo(db, nil, nil).ExistsByHash(context.Background(), "abc")
	if err != nil || !ok {
		t.Fatalf("ExistsByHash ok=%v err=%v", ok, err)
	}
}

func TestNoticeRepo_ExistsByHash_Error(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).WillReturnError(errors.New("timeout"))

	_, err := pg.NewNoticeRepo(db, nil, nil).ExistsByHash(context.Background(), "abc")
	var se *repository.StorageError
	if !errors.As(err, &se) || se.Kind != repository.ConnectivityFailure {
		t.Fatalf("want connectivity StorageError, got %v", err)
	}
}

/* ─────────────────────────── 3. Latest ─────────────────────────── */

func TestNoticeRepo_Latest(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	a := mustNotice(t, "Newer", "https://a/2.pdf", 9)
	b := mustNotice(t, "Older", "https://a/1", 3)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY published_date DESC")).
		WithArgs(2).
		WillReturnRows(addRow(addRow(sqlmock.NewRows(noticeCols), a), b))

	got, err := pg.NewNoticeRepo(db, nil, nil).Latest(context.Background(), 2)
	if err != nil {
		t.Fatalf("Latest err=%v", err)
	}
	if diff := cmp.Diff([]*entity.Notice{a, b}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

/* ─────────────────────────── 4. SearchByTitle ─────────────────────────── */

func TestNoticeRepo_SearchByTitle_EscapesWildcards(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE title ILIKE $1")).
		WithArgs(`%100\% fee\_waiver%`, 5).
		WillReturnRows(sqlmock.NewRows(noticeCols)) // 空集合で OK

	got, err := pg.NewNoticeRepo(db, nil, nil).SearchByTitle(context.Background(), "100% fee_waiver", 5)
	if err != nil {
		t.Fatalf("SearchByTitle err=%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len=%d, want 0", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ─────────────────────────── 5. CountAll ─────────────────────────── */

func TestNoticeRepo_CountAll(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notices")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	got, err := pg.NewNoticeRepo(db, nil, nil).CountAll(context.Background())
	if err != nil || got != 42 {
		t.Fatalf("CountAll got=%d err=%v", got, err)
	}
}
