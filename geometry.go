// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

// GroupSize is G, the fixed workgroup size used by every group-local scan
// dispatch in the hierarchy.
const GroupSize = 128

// DivUpGroup returns ceil(v / GroupSize).
func DivUpGroup(v uint32) uint32 {
	return (v + GroupSize - 1) / GroupSize
}

// AlignUpGroup returns the smallest multiple of GroupSize that is >= v.
func AlignUpGroup(v uint32) uint32 {
	return DivUpGroup(v) * GroupSize
}

// LevelGeometry describes the hierarchy of scan levels needed to cover a
// maximum element count: how many levels exist, how large each one is, and
// where each one starts inside the packed prefix buffers.
//
// Level 0 holds the caller's (aligned) input; level k > 0 holds the
// per-group carries of level k-1. The recursion stops at the first level
// that fits in a single group.
type LevelGeometry struct {
	// TotalSize is T, the sum of every level's size, in elements.
	TotalSize uint32

	// LevelCount is L, the number of levels in the hierarchy.
	LevelCount uint32

	// LevelSizes holds each level's size in elements, LevelSizes[0..L).
	LevelSizes []uint32

	// LevelOffsets holds each level's starting offset in elements within
	// the packed prefix buffers, LevelOffsets[0..L).
	LevelOffsets []uint32
}

// PlanLevels computes the level geometry for a maximum element count.
// nMax = 0 is treated as 1 (a single group minimum). The result always
// satisfies LevelCount >= 1 and TotalSize >= GroupSize.
func PlanLevels(nMax uint32) LevelGeometry {
	if nMax == 0 {
		nMax = 1
	}

	sizes := []uint32{AlignUpGroup(nMax)}
	for sizes[len(sizes)-1] > GroupSize {
		next := AlignUpGroup(DivUpGroup(sizes[len(sizes)-1]))
		sizes = append(sizes, next)
	}

	offsets := make([]uint32, len(sizes))
	var total uint32
	for i, s := range sizes {
		offsets[i] = total
		total += s
	}

	return LevelGeometry{
		TotalSize:    total,
		LevelCount:   uint32(len(sizes)),
		LevelSizes:   sizes,
		LevelOffsets: offsets,
	}
}
