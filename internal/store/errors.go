package store

import "errors"

var (
	// ErrNotFound is returned when a referenced snapshot, change, branch, change
	// set, label, discussion or file does not exist. Queries that simply have no
	// results return empty instead.
	ErrNotFound = errors.New("not found")

	// ErrContentConflict signals two different payloads under one content hash.
	// It is an integrity failure and is never retried.
	ErrContentConflict = errors.New("content hash conflict")

	// ErrConcurrentMutation is returned by the database when the leaf pointer an
	// append expected is no longer current. Writes retry it a bounded number of
	// times before surfacing it.
	ErrConcurrentMutation = errors.New("concurrent mutation conflict")

	// ErrInvariantViolation marks a store or caller bug: an append referencing a
	// missing snapshot, or a leaf update that would move backward in time.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrAlreadyExists is returned for duplicate branch or label names.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument is returned for empty ids, names or comment bodies.
	ErrInvalidArgument = errors.New("invalid argument")
)
