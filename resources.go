// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/scansum/hal"
)

// LevelInfo is the per-level record written by DispatchPlanner and read by
// the scan kernels: the active element count at this level, plus the three
// offsets (in elements) locating its data inside the packed prefix buffers.
// Mirrors a 16-byte GPU-side struct of four u32 lanes.
type LevelInfo struct {
	Count        uint32
	InputOffset  uint32
	OutputOffset uint32
	ParentOffset uint32
}

const levelInfoSize = 16

// DispatchIndirectArgs is the 12-byte (x, y, z) workgroup-count triple read
// by ComputePassEncoder.DispatchIndirect.
type DispatchIndirectArgs struct {
	X uint32
	Y uint32
	Z uint32
}

const dispatchIndirectArgsSize = 12

// SupportResources owns the five device buffers backing one scan "scratch
// space": the two ping-pong prefix buffers, the level-count scalar, the
// level-offset table, and the indirect-dispatch-args table. The caller's
// input buffer is referenced by dispatches but never owned here.
//
// A SupportResources grows monotonically: Resize to a smaller or equal
// capacity is a no-op, and growing always releases the prior buffers
// before reallocating. Dispose is idempotent.
type SupportResources struct {
	device hal.Device

	prefixA          hal.Buffer
	prefixB          hal.Buffer
	levelCountScalar hal.Buffer
	levelOffsets     hal.Buffer
	indirectArgs     hal.Buffer

	geometry            LevelGeometry
	alignedElementCount uint32
}

// NewSupportResources returns a SupportResources with no live buffers.
// Call Create or Resize before using it in a dispatch.
func NewSupportResources(device hal.Device) *SupportResources {
	return &SupportResources{device: device}
}

// Create allocates buffers sized for nMax elements. Equivalent to Resize.
func (r *SupportResources) Create(nMax uint32) error {
	return r.Resize(nMax)
}

// Resize grows the buffers to cover nMax elements, if needed. If the
// current capacity already covers nMax, Resize does nothing (monotonic
// growth). Otherwise all existing buffers are released and new ones
// allocated sized by PlanLevels(nMax).
func (r *SupportResources) Resize(nMax uint32) error {
	want := nMax
	if want == 0 {
		want = 1
	}
	if r.alignedElementCount >= want {
		return nil
	}

	r.Dispose()

	geometry := PlanLevels(nMax)

	// +1 element reserves a drain slot for the top level's group carry:
	// write_geometry points every level's parent_offset at the start of
	// the next level's region, and the top level has no next level.
	prefixBytes := uint64(geometry.TotalSize+1) * 4
	buffers := []struct {
		target *hal.Buffer
		label  string
		size   uint64
		usage  gputypes.BufferUsage
	}{
		{&r.prefixA, "scansum-prefix-a", prefixBytes, gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc},
		{&r.prefixB, "scansum-prefix-b", prefixBytes, gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{&r.levelCountScalar, "scansum-level-count", 4, gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{&r.levelOffsets, "scansum-level-offsets", uint64(geometry.LevelCount) * levelInfoSize, gputypes.BufferUsageStorage},
		{&r.indirectArgs, "scansum-indirect-args", uint64(geometry.LevelCount) * dispatchIndirectArgsSize, gputypes.BufferUsageStorage | gputypes.BufferUsageIndirect},
	}

	for _, b := range buffers {
		buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
			Label: b.label,
			Size:  b.size,
			Usage: b.usage,
		})
		if err != nil {
			r.Dispose()
			return fmt.Errorf("scansum: allocate %s: %w", b.label, err)
		}
		*b.target = buf
	}

	r.geometry = geometry
	r.alignedElementCount = AlignUpGroup(want)

	Logger().Debug("scansum: resources resized",
		"n_max", nMax,
		"aligned_element_count", r.alignedElementCount,
		"total_size", geometry.TotalSize,
		"level_count", geometry.LevelCount,
	)
	return nil
}

// Dispose releases all five buffers. It is idempotent: calling Dispose on
// an already-disposed (or never-created) SupportResources is a no-op that
// never panics, since each buffer field is checked for nil independently
// before destruction.
func (r *SupportResources) Dispose() {
	destroy := func(buf *hal.Buffer) {
		if *buf == nil {
			return
		}
		r.device.DestroyBuffer(*buf)
		*buf = nil
	}
	destroy(&r.prefixA)
	destroy(&r.prefixB)
	destroy(&r.levelCountScalar)
	destroy(&r.levelOffsets)
	destroy(&r.indirectArgs)

	if r.alignedElementCount != 0 {
		Logger().Debug("scansum: resources disposed")
	}
	r.geometry = LevelGeometry{}
	r.alignedElementCount = 0
}

// Live reports whether the prefix buffers are allocated and usable.
func (r *SupportResources) Live() bool {
	return r.prefixA != nil && r.prefixB != nil
}

// AlignedElementCount returns the current group-aligned capacity.
func (r *SupportResources) AlignedElementCount() uint32 {
	return r.alignedElementCount
}

// MaxLevelCount returns the number of levels the current allocation covers.
func (r *SupportResources) MaxLevelCount() uint32 {
	return r.geometry.LevelCount
}

// MaxBufferCount returns T, the total packed element count across all
// levels of the current allocation.
func (r *SupportResources) MaxBufferCount() uint32 {
	return r.geometry.TotalSize
}

// PrefixElementCapacity returns the element count actually allocated for
// PrefixA and PrefixB, including the one-element drain slot reserved for
// the top level's otherwise-unused group carry.
func (r *SupportResources) PrefixElementCapacity() uint32 {
	return r.geometry.TotalSize + 1
}

// PrefixA returns the output prefix buffer. Valid only while Live.
func (r *SupportResources) PrefixA() hal.Buffer { return r.prefixA }

// PrefixB returns the carry ping-pong buffer. Valid only while Live.
func (r *SupportResources) PrefixB() hal.Buffer { return r.prefixB }

// LevelCountScalar returns the device-resident level count buffer. The
// planner writes MaxLevelCount into it, including level slots whose count
// is 0; it does not hold the number of levels with a nonzero count.
func (r *SupportResources) LevelCountScalar() hal.Buffer { return r.levelCountScalar }

// LevelOffsets returns the level-offset table buffer.
func (r *SupportResources) LevelOffsets() hal.Buffer { return r.levelOffsets }

// IndirectArgs returns the indirect-dispatch-args table buffer.
func (r *SupportResources) IndirectArgs() hal.Buffer { return r.indirectArgs }
