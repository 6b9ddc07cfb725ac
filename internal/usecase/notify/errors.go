package notify

import (
	"errors"
	"fmt"
	"time"
)

// DeliveryErrorKind classifies a failed send.
type DeliveryErrorKind int

const (
	// RateLimited is a scheduling instruction: wait RetryAfter, then resend.
	RateLimited DeliveryErrorKind = iota + 1
	// NetworkTransient covers timeouts, connection failures and 5xx responses.
	NetworkTransient
	// PermanentConfig means the destination or message is malformed.
	PermanentConfig
	// PermanentPermission means the bot lost the right to post.
	PermanentPermission
)

func (k DeliveryErrorKind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case NetworkTransient:
		return "network_transient"
	case PermanentConfig:
		return "permanent_config"
	case PermanentPermission:
		return "permanent_permission"
	default:
		return "unknown"
	}
}

// Permanent reports whether retrying cannot help.
func (k DeliveryErrorKind) Permanent() bool {
	return k == PermanentConfig || k == PermanentPermission
}

// DeliveryError is returned by Channel implementations.
type DeliveryError struct {
	Kind DeliveryErrorKind
	// RetryAfter is set for RateLimited.
	RetryAfter time.Duration
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Kind == RateLimited {
		return fmt.Sprintf("%s (retry after %v): %v", e.Kind, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Classify converts any send error into a DeliveryError.
// Unclassified errors become NetworkTransient so they are retried within budget.
func Classify(err error) *DeliveryError {
	if err == nil {
		return nil
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return de
	}
	return &DeliveryError{Kind: NetworkTransient, Err: err}
}
