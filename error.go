// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import "errors"

// Sentinel errors returned by ScanEngine and SupportResources. Each is
// reported immediately, before any commands are appended to a recorder;
// a wrapped error (via fmt.Errorf("...: %w", Err...)) still satisfies
// errors.Is against these values.
var (
	// ErrInvalidResources is returned when a SupportResources' prefix
	// buffers are not live: either Create/Resize was never called, or
	// Dispose has already run.
	ErrInvalidResources = errors.New("scansum: resources are not live (never created or already disposed)")

	// ErrInvalidInput is returned when the caller's input buffer is nil,
	// or, in indirect mode, when the input-count buffer is nil.
	ErrInvalidInput = errors.New("scansum: input buffer is nil")

	// ErrCapacityExceeded is returned in direct mode when the requested
	// element count exceeds the resources' aligned capacity.
	ErrCapacityExceeded = errors.New("scansum: requested count exceeds aligned capacity")

	// ErrKernelNotLoaded is returned when the engine is dispatched before
	// Init or after Dispose.
	ErrKernelNotLoaded = errors.New("scansum: engine used before Init or after Dispose")
)
