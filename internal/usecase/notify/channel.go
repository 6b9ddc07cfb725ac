// Package notify delivers accepted notices to the broadcast destination.
// It owns the per-message retry state machine; transport details belong to
// the Channel implementation (see internal/infra/notifier).
package notify

import "context"

// Channel is the single egress for formatted notice text.
//
// Error Contract:
//   - nil: the destination accepted the message
//   - *DeliveryError: classified failure (rate limit, transient, permanent)
//   - any other error: treated as NetworkTransient by the Service
//
// Implementations must respect context cancellation and must not retry
// internally; retry policy is owned by Service.
type Channel interface {
	// Name returns the channel identifier used in logs and metrics (e.g., "telegram").
	Name() string

	// Send posts text to the configured destination.
	Send(ctx context.Context, text string) error
}
