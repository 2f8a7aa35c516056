// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package scansum implements a hierarchical GPU prefix-sum (scan) engine.
//
// Given an input array of N unsigned 32-bit integers resident in a device
// buffer, the engine computes the inclusive or exclusive prefix sum of the
// array into a companion buffer, using only compute-shader dispatches
// recorded against a [github.com/gogpu/scansum/hal.CommandEncoder].
//
// # Overview
//
// Arrays larger than one workgroup (G = 128 elements) are scanned in a
// hierarchy: each group of G elements is scanned locally, and every group's
// total becomes one element at the next level up. The recursion bottoms out
// once a level fits in a single group. An up-sweep pass computes every
// level's local scan and carries; a down-sweep pass folds each level's
// parent sums back into its children so the final level-0 values are
// globally correct.
//
// # Components
//
//   - [PlanLevels] computes, for a maximum element count, a
//     [LevelGeometry]: how many levels the hierarchy needs and how large
//     the packed buffer is.
//   - [SupportResources] owns the device buffers backing a scan: two
//     prefix buffers, a level-count scalar, a level-offset table, and an
//     indirect-dispatch-args table.
//   - [DispatchPlanner] runs a single-thread compute kernel that populates
//     the level-offset table and indirect-dispatch-args from either a
//     host-known element count or a device-resident one.
//   - [ScanEngine] orchestrates the up-sweep and down-sweep passes and
//     exposes [ScanEngine.DispatchDirect] and [ScanEngine.DispatchIndirect].
//
// # Non-goals
//
// Segmented scans, scans over types other than u32, multi-device or
// cross-queue submission, and host-side fallback scan implementations are
// out of scope. The [github.com/gogpu/scansum/hal/noop] backend and
// internal/simhal package exist purely to exercise this package's tests
// without a GPU.
package scansum
