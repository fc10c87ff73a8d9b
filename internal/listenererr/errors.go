// Package listenererr collects the error taxonomy shared by the pools,
// dispatcher, and listener runtime (SPEC_FULL.md §7). Recoverable
// conditions are sentinel or wrapped errors checked with errors.Is, never
// panics; panics are reserved for programmer bugs, matching the teacher's
// internal/session sentinel-error idiom (ErrManagerClosed) rather than the
// exception-driven control flow of the original Python source.
package listenererr

import "errors"

var (
	// ErrInvalidArgument signals a missing required field or a call made in
	// an invalid state (e.g. Reply called with a nil Result).
	ErrInvalidArgument = errors.New("listener: invalid argument")

	// ErrPoolOverflow signals an append rejected by the drop_newest or
	// raise_error overflow policy.
	ErrPoolOverflow = errors.New("listener: pool overflow")

	// ErrDuplicateKey signals a timestamp collision on append.
	ErrDuplicateKey = errors.New("listener: duplicate event key")

	// ErrRetryExhausted signals an outgoing event dropped after exceeding
	// max retries.
	ErrRetryExhausted = errors.New("listener: retry attempts exhausted")

	// ErrEventNotFound signals find_and_remove_processing_event found no
	// match.
	ErrEventNotFound = errors.New("listener: no matching processing event")

	// ErrAlreadyRunning signals Start called on a listener that already
	// left the INITIALIZED state.
	ErrAlreadyRunning = errors.New("listener: already started")

	// ErrNotRunning signals an operation that requires RUNNING state was
	// attempted outside it.
	ErrNotRunning = errors.New("listener: not running")
)
