// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import "encoding/binary"

// scalarArgsSize is the byte size of the 4-lane u32 scalar-argument vector
// shared by every kernel in this package.
const scalarArgsSize = 16

// packScalarArgs encodes the 4-lane scalar-argument vector as four
// little-endian u32s. The device ABI calls for a bit-cast, not a numeric
// conversion; encoding/binary.LittleEndian is the explicit, non-unsafe
// realization of that bit-cast.
func packScalarArgs(a, b, c, levelK uint32) []byte {
	buf := make([]byte, scalarArgsSize)
	binary.LittleEndian.PutUint32(buf[0:4], a)
	binary.LittleEndian.PutUint32(buf[4:8], b)
	binary.LittleEndian.PutUint32(buf[8:12], c)
	binary.LittleEndian.PutUint32(buf[12:16], levelK)
	return buf
}
