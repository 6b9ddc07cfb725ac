// Package main provides a read-only CLI over the notice store.
// Usage: notices <latest|search|count> [query] [-limit N] [-output text|json]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	pgRepo "github.com/roshhellwett/TeleAcademicBot/internal/infra/adapter/persistence/postgres"
	"github.com/roshhellwett/TeleAcademicBot/internal/infra/db"
	"github.com/roshhellwett/TeleAcademicBot/internal/observability/logging"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	queryTimeout = 30 * time.Second
)

var errUsage = errors.New("usage")

// noticeReader is the read side of the notice repository.
type noticeReader interface {
	Latest(ctx context.Context, n int) ([]*entity.Notice, error)
	SearchByTitle(ctx context.Context, substring string, n int) ([]*entity.Notice, error)
	CountAll(ctx context.Context) (int64, error)
}

// NoticeOutput is one notice in JSON output.
type NoticeOutput struct {
	Title         string `json:"title"`
	Source        string `json:"source"`
	URL           string `json:"url"`
	DocumentURL   string `json:"document_url,omitempty"`
	PublishedDate string `json:"published_date"`
}

// ListOutput is the JSON output of latest and search.
type ListOutput struct {
	Command     string         `json:"command"`
	Query       string         `json:"query,omitempty"`
	ResultCount int            `json:"result_count"`
	Notices     []NoticeOutput `json:"notices"`
}

// CountOutput is the JSON output of count.
type CountOutput struct {
	Total int64 `json:"total"`
}

func main() {
	_ = godotenv.Load()
	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	database, err := db.Open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	repo := pgRepo.NewNoticeRepo(database, logger, nil)
	if err := run(ctx, os.Args[1:], repo, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run executes one CLI invocation against repo.
func run(ctx context.Context, args []string, repo noticeReader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errUsage
	}
	command := args[0]

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", defaultLimit, "Maximum number of notices to return")
	outputFormat := fs.String("output", "text", "Output format: text or json")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	// flags may follow the query: notices search "exam" -limit 5
	var positional []string
	for fs.NArg() > 0 {
		positional = append(positional, fs.Arg(0))
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return errUsage
		}
	}
	if *outputFormat != "text" && *outputFormat != "json" {
		fmt.Fprintf(stderr, "Error: unknown output format %q\n", *outputFormat)
		return errUsage
	}

	if *limit < 1 {
		*limit = defaultLimit
	}
	if *limit > maxLimit {
		fmt.Fprintf(stderr, "Warning: limit %d exceeds maximum %d, using %d\n", *limit, maxLimit, maxLimit)
		*limit = maxLimit
	}

	switch command {
	case "latest":
		notices, err := repo.Latest(ctx, *limit)
		if err != nil {
			return fmt.Errorf("latest: %w", err)
		}
		return writeList(stdout, *outputFormat, ListOutput{Command: command}, notices)

	case "search":
		if len(positional) == 0 {
			fmt.Fprintln(stderr, "Error: search query is required")
			printUsage(stderr)
			return errUsage
		}
		query := positional[0]
		notices, err := repo.SearchByTitle(ctx, query, *limit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		return writeList(stdout, *outputFormat, ListOutput{Command: command, Query: query}, notices)

	case "count":
		total, err := repo.CountAll(ctx)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		if *outputFormat == "json" {
			return encodeJSON(stdout, CountOutput{Total: total})
		}
		_, err = fmt.Fprintf(stdout, "Total notices: %d\n", total)
		return err

	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", command)
		printUsage(stderr)
		return errUsage
	}
}

func writeList(w io.Writer, format string, out ListOutput, notices []*entity.Notice) error {
	out.ResultCount = len(notices)
	out.Notices = make([]NoticeOutput, len(notices))
	for i, n := range notices {
		out.Notices[i] = NoticeOutput{
			Title:         n.Title,
			Source:        n.Source,
			URL:           n.SourceURL,
			DocumentURL:   n.DocumentURL,
			PublishedDate: n.PublishedDate.Format(time.DateOnly),
		}
	}

	if format == "json" {
		return encodeJSON(w, out)
	}
	return writeText(w, out)
}

// writeText prints notices in human-readable format.
func writeText(w io.Writer, out ListOutput) error {
	if out.Query != "" {
		fmt.Fprintf(w, "Search Results for: %q\n", out.Query)
	}
	fmt.Fprintf(w, "Results: %d\n\n", out.ResultCount)

	if out.ResultCount == 0 {
		_, err := fmt.Fprintln(w, "No notices found.")
		return err
	}

	for i, n := range out.Notices {
		fmt.Fprintf(w, "%d. %s\n", i+1, n.Title)
		fmt.Fprintf(w, "   Source: %s\n", n.Source)
		fmt.Fprintf(w, "   Date: %s\n", n.PublishedDate)
		fmt.Fprintf(w, "   URL: %s\n", n.URL)
		if n.DocumentURL != "" && n.DocumentURL != n.URL {
			fmt.Fprintf(w, "   Document: %s\n", n.DocumentURL)
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func encodeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: notices <latest|search|count> [query] [-limit N] [-output text|json]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  notices latest -limit 5")
	fmt.Fprintln(w, "  notices search \"exam schedule\" -output json")
	fmt.Fprintln(w, "  notices count")
}
