package noop

import (
	"sync/atomic"
	"unsafe"
)

// Resource is a placeholder implementation for most HAL resource types.
// It implements the hal.Resource interface with a no-op Destroy method.
type Resource struct{}

// Destroy is a no-op.
func (r *Resource) Destroy() {}

// Buffer implements hal.Buffer with backing storage.
type Buffer struct {
	Resource
	data []byte
}

// NativeHandle returns the buffer's identity as a handle.
// The noop backend has no real device memory, so the handle is derived
// from the Buffer's own address and carries no meaning beyond identity.
func (b *Buffer) NativeHandle() uint64 {
	return uint64(uintptr(unsafe.Pointer(b)))
}

// Fence implements hal.Fence with an atomic counter for synchronization.
type Fence struct {
	Resource
	value atomic.Uint64
}

// Signal sets the fence value.
func (f *Fence) Signal(value uint64) {
	f.value.Store(value)
}
