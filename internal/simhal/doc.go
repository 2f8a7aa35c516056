// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package simhal is a test-only hal backend that actually executes the
// scan kernels' documented semantics against Go byte slices, instead of
// discarding commands the way hal/noop does. It exists so the scansum
// package's tests can assert real scan results end to end without a real
// GPU, extending the "testing fallback" carve-out hal/noop already
// establishes for this codebase.
//
// simhal embeds hal/noop for the resource kinds it doesn't need to give
// real meaning to (bind group layouts, pipeline layouts, shader modules,
// fences) and overrides only buffers, bind groups, compute pipelines, and
// command encoding, where it tracks enough state to run a kernel's logic
// when a compute pass dispatches it.
//
// Dispatch and DispatchIndirect both execute a kernel synchronously and
// ignore the workgroup-count arguments: they derive iteration bounds from
// the level-offsets and scalar-argument buffers the caller already bound,
// which is the same source of truth a real device's shader invocation
// would read. Submit only signals its fence and Wait only checks it, since
// the work already happened.
package simhal
