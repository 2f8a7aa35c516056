// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package simhal

import "encoding/binary"

// Group size and byte strides, mirroring the WGSL kernels in the
// parent package's shader sources.
const (
	groupSize = 128

	levelInfoStride   = 16 // count, input_offset, output_offset, parent_offset
	dispatchArgStride = 12 // x, y, z
)

func divUpGroup(v uint32) uint32 {
	return (v + groupSize - 1) / groupSize
}

func alignUpGroup(v uint32) uint32 {
	return divUpGroup(v) * groupSize
}

func readU32(e bindEntry, byteOffset uint64) uint32 {
	pos := e.offset + byteOffset
	return binary.LittleEndian.Uint32(e.buffer.data[pos : pos+4])
}

func writeU32(e bindEntry, byteOffset uint64, v uint32) {
	pos := e.offset + byteOffset
	binary.LittleEndian.PutUint32(e.buffer.data[pos:pos+4], v)
}

type levelInfo struct {
	count        uint32
	inputOffset  uint32
	outputOffset uint32
	parentOffset uint32
}

func readLevelInfo(e bindEntry, level uint32) levelInfo {
	base := uint64(level) * levelInfoStride
	return levelInfo{
		count:        readU32(e, base),
		inputOffset:  readU32(e, base+4),
		outputOffset: readU32(e, base+8),
		parentOffset: readU32(e, base+12),
	}
}

func writeLevelInfo(e bindEntry, level uint32, info levelInfo) {
	base := uint64(level) * levelInfoStride
	writeU32(e, base, info.count)
	writeU32(e, base+4, info.inputOffset)
	writeU32(e, base+8, info.outputOffset)
	writeU32(e, base+12, info.parentOffset)
}

func writeDispatchArgs(e bindEntry, level uint32, x, y, z uint32) {
	base := uint64(level) * dispatchArgStride
	writeU32(e, base, x)
	writeU32(e, base+4, y)
	writeU32(e, base+8, z)
}

// runKernel executes one named kernel entry point against its resolved
// bindings. Binding layouts mirror the doc comments on planShaderWGSL and
// scanShaderWGSL in the parent package.
func runKernel(entryPoint string, bindings map[uint32]bindEntry) {
	switch entryPoint {
	case "plan_from_constant":
		args := bindings[0]
		n := readU32(args, 0)
		maxLevelCount := readU32(args, 4)
		writeGeometry(n, maxLevelCount, bindings[1], bindings[2], bindings[3])
	case "plan_from_buffer":
		args := bindings[0]
		maxLevelCount := readU32(args, 4)
		n := readU32(bindings[4], 0)
		writeGeometry(n, maxLevelCount, bindings[1], bindings[2], bindings[3])
	case "group_scan_inclusive":
		groupScan(bindings, true)
	case "group_scan_exclusive":
		groupScan(bindings, false)
	case "next_input":
		nextInput(bindings)
	case "resolve_parent_inclusive", "resolve_parent_exclusive":
		resolveParent(bindings)
	}
}

// writeGeometry mirrors planShaderWGSL's write_geometry: it recomputes,
// from scratch, the per-level active counts, the (input/output/parent)
// offsets into the packed prefix buffers, and the indirect dispatch args,
// for an actual logical element count nLogical that may be smaller than
// the capacity the buffers were sized for. The level count it writes is
// always maxLevelCount, the number of level slots written, not the number
// of levels with a nonzero count.
//
// parent_offset always points at the start of the NEXT level's region,
// never at this level's own input/output region, since a group's carry
// must not overwrite a scanned output value. The top level has no next
// level; its capacity reserves one extra drain slot for this reason (see
// SupportResources.Resize).
func writeGeometry(nLogical, maxLevelCount uint32, levelOffsets, levelCount, indirectArgs bindEntry) {
	count := nLogical
	if count == 0 {
		count = 1
	}
	var offset uint32
	var level uint32
	for level < maxLevelCount {
		active := level == 0 || count > 0

		// Level 0's written count is the true logical count, even when it
		// is 0 (an empty scan), so groupScan's bounds check skips every
		// invocation instead of touching input[0]. The capacity reserved
		// below still uses the group-aligned minimum of 1, since a level's
		// region must hold a full group even when nothing in it is active.
		writtenCount := count
		if level == 0 {
			writtenCount = nLogical
		}
		cnt := uint32(0)
		if active {
			cnt = writtenCount
		}

		m := count
		if m == 0 {
			m = 1
		}
		nextOffset := offset + alignUpGroup(m)
		writeLevelInfo(levelOffsets, level, levelInfo{count: cnt, inputOffset: offset, outputOffset: offset, parentOffset: nextOffset})

		groups := uint32(0)
		if active {
			groups = divUpGroup(writtenCount)
		}
		writeDispatchArgs(indirectArgs, level, groups, 1, 1)

		offset = nextOffset
		count = divUpGroup(count)
		level++
		if count <= 1 && level < maxLevelCount {
			count = 0
		}
	}
	writeU32(levelCount, 0, level)
}

// groupScan mirrors scanShaderWGSL's group_scan: an inclusive or
// exclusive scan over each GROUP_SIZE-sized group of this level's active
// elements, plus an unconditional per-group carry write so down-sweep can
// resolve parent carries even for a partially-filled last group.
func groupScan(bindings map[uint32]bindEntry, inclusive bool) {
	args := bindings[0]
	level := readU32(args, 12)
	input := bindings[1]
	prefixA := bindings[2]
	prefixB := bindings[3]
	info := readLevelInfo(bindings[4], level)

	numGroups := divUpGroup(info.count)
	var original, scratch [groupSize]uint32
	for g := uint32(0); g < numGroups; g++ {
		groupBase := g * groupSize
		for local := uint32(0); local < groupSize; local++ {
			idx := groupBase + local
			var value uint32
			if idx < info.count {
				if level == 0 {
					value = readU32(input, uint64(idx)*4)
				} else {
					value = readU32(prefixB, uint64(info.inputOffset+idx)*4)
				}
			}
			original[local] = value
		}
		var running uint32
		for local := uint32(0); local < groupSize; local++ {
			running += original[local]
			scratch[local] = running
		}
		for local := uint32(0); local < groupSize; local++ {
			idx := groupBase + local
			if idx >= info.count {
				continue
			}
			out := scratch[local]
			if !inclusive {
				out -= original[local]
			}
			writeU32(prefixA, uint64(info.outputOffset+idx)*4, out)
		}
		writeU32(prefixA, uint64(info.parentOffset+g)*4, scratch[groupSize-1])
	}
}

// nextInput mirrors scanShaderWGSL's next_input: copies the carries the
// level below staged in prefix_a at this level's input region into
// prefix_b, where this level's groupScan reads them as its input.
func nextInput(bindings map[uint32]bindEntry) {
	args := bindings[0]
	level := readU32(args, 12)
	prefixA := bindings[2]
	prefixB := bindings[3]
	info := readLevelInfo(bindings[4], level)

	for idx := uint32(0); idx < info.count; idx++ {
		v := readU32(prefixA, uint64(info.inputOffset+idx)*4)
		writeU32(prefixB, uint64(info.inputOffset+idx)*4, v)
	}
}

// resolveParent mirrors scanShaderWGSL's resolve_parent: adds this
// level's already-resolved parent carry into every element outside the
// first group. Identical for the inclusive and exclusive entry points,
// since the inclusive/exclusive distinction was already baked into
// prefix_a by group_scan.
func resolveParent(bindings map[uint32]bindEntry) {
	args := bindings[0]
	level := readU32(args, 12)
	prefixA := bindings[2]
	info := readLevelInfo(bindings[4], level)

	for idx := uint32(0); idx < info.count; idx++ {
		group := idx / groupSize
		if group == 0 {
			continue
		}
		parent := readU32(prefixA, uint64(info.parentOffset+group-1)*4)
		cur := readU32(prefixA, uint64(info.outputOffset+idx)*4)
		writeU32(prefixA, uint64(info.outputOffset+idx)*4, cur+parent)
	}
}
