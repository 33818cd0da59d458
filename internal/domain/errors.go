package domain

import (
	"fmt"
	"time"
)

// ValidationError covers malformed or rule-breaking input: duplicate external
// ids, tied scores, identical participants. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NotFoundError reports a missing entry, channel, or match.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// ConflictError reports a state conflict, e.g. an entry that already has a
// match or a lost concurrent-approval race. Callers must re-fetch current
// state before retrying.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// RateLimitError carries a retry-after hint for the rolling window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

// FetchError isolates one channel's or one item's failed external fetch.
// It is collected into a per-run error list, never aborting sibling work.
type FetchError struct {
	ChannelExternalID string
	Err               error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch channel %s: %v", e.ChannelExternalID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TransactionError wraps a persistence failure mid-commit. The enclosing
// unit rolls back with no partial effects observable.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
