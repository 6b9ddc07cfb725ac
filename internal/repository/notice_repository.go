package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
)

// NoticeRepository is the dedup store. It exclusively owns the notices table.
//
// All methods are safe to call concurrently. Identity decisions are made by
// the UNIQUE constraint on content_hash, never by an in-process lock.
type NoticeRepository interface {
	// TryInsert stores n if its content hash has never been seen.
	// Returns true only when this call performed the first insert for the hash.
	// Duplicates and storage failures return false; failures are logged, not raised.
	TryInsert(ctx context.Context, n *entity.Notice) bool
	// ExistsByHash reports whether a notice with the given content hash is stored.
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	// Latest returns the n most recent notices ordered by published_date DESC.
	Latest(ctx context.Context, n int) ([]*entity.Notice, error)
	// SearchByTitle returns up to n notices whose title contains substring (case-insensitive).
	// LIKE wildcards in substring match literally.
	SearchByTitle(ctx context.Context, substring string, n int) ([]*entity.Notice, error)
	// CountAll returns the total number of stored notices.
	CountAll(ctx context.Context) (int64, error)
}

// StorageErrorKind classifies a storage failure.
type StorageErrorKind int

const (
	// ConstraintViolation means a uniqueness or check constraint rejected the write.
	ConstraintViolation StorageErrorKind = iota + 1
	// ConnectivityFailure covers everything else: network, pool exhaustion, timeouts.
	ConnectivityFailure
)

func (k StorageErrorKind) String() string {
	switch k {
	case ConstraintViolation:
		return "constraint_violation"
	case ConnectivityFailure:
		return "connectivity_failure"
	default:
		return "unknown"
	}
}

// StorageError wraps a driver error with its kind.
type StorageError struct {
	Kind StorageErrorKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsConstraintViolation reports whether err is a StorageError of kind ConstraintViolation.
func IsConstraintViolation(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == ConstraintViolation
}
