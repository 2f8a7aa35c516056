// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package simhal

import "github.com/gogpu/scansum/hal"

// Queue writes and reads host byte slices standing in for device memory.
// Submit is a no-op: a simhal compute pass already executed its kernel
// by the time Dispatch returns, so there is no deferred work for Submit
// to trigger beyond signaling the fence.
type Queue struct{}

// WriteBuffer copies data into the buffer's backing storage.
func (q *Queue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) {
	if b, ok := buffer.(*Buffer); ok {
		copy(b.data[offset:], data)
	}
}

// ReadBuffer copies out of the buffer's backing storage.
func (q *Queue) ReadBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return nil
	}
	copy(data, b.data[offset:])
	return nil
}

// Submit only signals fence: simhal executes kernels synchronously at
// Dispatch time.
func (q *Queue) Submit(_ []hal.CommandBuffer, fence hal.Fence, fenceValue uint64) error {
	if f, ok := fence.(interface{ Signal(uint64) }); ok {
		f.Signal(fenceValue)
	}
	return nil
}
