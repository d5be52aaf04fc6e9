// Package jherr defines the error-kind taxonomy shared by every jamharah
// build and query component, so CLI entry points can classify a failure by
// kind without parsing message text.
package jherr

import "errors"

var (
	// IOError wraps open/read/write/seek failures and missing paths.
	IOError = errors.New("io error")
	// InvalidFormat wraps bad magic, wrong version, or inconsistent on-disk counts.
	InvalidFormat = errors.New("invalid format")
	// CapacityExceeded wraps workspace/position-buffer/vocabulary exhaustion.
	CapacityExceeded = errors.New("capacity exceeded")
	// HashCollision is raised only during occurrence build when two distinct
	// token byte sequences share a primary hash.
	HashCollision = errors.New("hash collision")
	// NotFound is a non-fatal dictionary lookup miss at query time.
	NotFound = errors.New("not found")
	// UsageError wraps CLI argument misuse.
	UsageError = errors.New("usage error")
)
