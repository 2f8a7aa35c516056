// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package simhal

import (
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/scansum/hal"
	"github.com/gogpu/scansum/hal/noop"
)

// Device embeds noop.Device and overrides only the resource kinds the
// scan kernels touch: buffers (so reads/writes go somewhere real), bind
// groups (so a dispatch can find the buffers it names), compute
// pipelines (so a dispatch knows which kernel to run), and command
// encoders (so BeginComputePass returns a ComputePassEncoder that
// actually executes).
type Device struct {
	noop.Device

	mu      sync.Mutex
	handles map[uint64]*Buffer
}

// NewDevice returns a ready Device.
func NewDevice() *Device {
	return &Device{handles: make(map[uint64]*Buffer)}
}

// CreateBuffer allocates backing storage and registers the buffer's
// handle so bind groups can resolve it later.
func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	buf := &Buffer{data: make([]byte, desc.Size)}
	d.mu.Lock()
	d.handles[buf.NativeHandle()] = buf
	d.mu.Unlock()
	return buf, nil
}

// DestroyBuffer removes the buffer from the handle registry.
func (d *Device) DestroyBuffer(b hal.Buffer) {
	buf, ok := b.(*Buffer)
	if !ok {
		return
	}
	d.mu.Lock()
	delete(d.handles, buf.NativeHandle())
	d.mu.Unlock()
}

// BindGroup holds the resolved buffer bindings a dispatch reads from and
// writes to, keyed by binding index.
type BindGroup struct {
	entries map[uint32]bindEntry
}

type bindEntry struct {
	buffer *Buffer
	offset uint64
	size   uint64
}

// CreateBindGroup resolves each entry's buffer handle against the
// device's registry.
func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	bg := &BindGroup{entries: make(map[uint32]bindEntry, len(desc.Entries))}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range desc.Entries {
		binding, ok := e.Resource.(gputypes.BufferBinding)
		if !ok {
			continue
		}
		buf := d.handles[binding.Buffer]
		bg.entries[e.Binding] = bindEntry{buffer: buf, offset: binding.Offset, size: binding.Size}
	}
	return bg, nil
}

// DestroyBindGroup is a no-op; BindGroup holds no registry state.
func (d *Device) DestroyBindGroup(_ hal.BindGroup) {}

// ComputePipeline names the kernel entry point a dispatch should run.
type ComputePipeline struct {
	entryPoint string
}

// Destroy satisfies hal.Resource.
func (p *ComputePipeline) Destroy() {}

// CreateComputePipeline records which kernel entry point the pipeline
// dispatches; the shader module's WGSL source is not interpreted.
func (d *Device) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	return &ComputePipeline{entryPoint: desc.Compute.EntryPoint}, nil
}

// DestroyComputePipeline is a no-op.
func (d *Device) DestroyComputePipeline(_ hal.ComputePipeline) {}

// CreateCommandEncoder returns a CommandEncoder whose compute passes
// execute kernels immediately on Dispatch/DispatchIndirect.
func (d *Device) CreateCommandEncoder(_ *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	return &CommandEncoder{}, nil
}
