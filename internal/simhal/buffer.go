// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package simhal

import "unsafe"

// Buffer is a host byte slice standing in for device memory.
type Buffer struct {
	data []byte
}

// Destroy satisfies hal.Resource. The registry entry is removed by
// Device.DestroyBuffer, not here.
func (b *Buffer) Destroy() {}

// NativeHandle returns the buffer's identity, derived from its address.
// Device keeps a handle->Buffer registry so bind group creation can
// resolve a gputypes.BufferBinding back to the Buffer it names.
func (b *Buffer) NativeHandle() uint64 {
	return uint64(uintptr(unsafe.Pointer(b)))
}
