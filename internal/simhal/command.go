// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package simhal

import "github.com/gogpu/scansum/hal"

// CommandEncoder records compute passes. Recording and encoding are
// no-ops; a pass's kernel runs as soon as Dispatch or DispatchIndirect is
// called on it.
type CommandEncoder struct{}

// BeginEncoding is a no-op.
func (c *CommandEncoder) BeginEncoding(_ string) error { return nil }

// EndEncoding returns a placeholder command buffer.
func (c *CommandEncoder) EndEncoding() (hal.CommandBuffer, error) {
	return &placeholder{}, nil
}

// BeginComputePass returns a ComputePassEncoder that executes a kernel's
// documented semantics as soon as Dispatch or DispatchIndirect is called.
func (c *CommandEncoder) BeginComputePass(_ *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	return &ComputePassEncoder{}
}

type placeholder struct{}

func (p *placeholder) Destroy() {}

// ComputePassEncoder accumulates the pipeline and bind group set on it,
// then runs the named kernel against the bound buffers when Dispatch or
// DispatchIndirect is called. The workgroup-count arguments themselves
// are ignored: the same level-offsets buffer a real shader invocation
// would read already carries the active element count for this level.
type ComputePassEncoder struct {
	pipeline  *ComputePipeline
	bindGroup *BindGroup
}

// End is a no-op; there is no deferred pass state to flush.
func (c *ComputePassEncoder) End() {}

// SetPipeline records which kernel subsequent dispatches run.
func (c *ComputePassEncoder) SetPipeline(p hal.ComputePipeline) {
	c.pipeline, _ = p.(*ComputePipeline)
}

// SetBindGroup records the buffers a dispatch reads and writes. simhal
// only uses bind group index 0.
func (c *ComputePassEncoder) SetBindGroup(_ uint32, group hal.BindGroup, _ []uint32) {
	c.bindGroup, _ = group.(*BindGroup)
}

// Dispatch executes the current pipeline's kernel.
func (c *ComputePassEncoder) Dispatch(_, _, _ uint32) {
	c.run()
}

// DispatchIndirect executes the current pipeline's kernel; the indirect
// args buffer itself is not read, since the level-offsets buffer already
// carries the same element count the indirect args were computed from.
func (c *ComputePassEncoder) DispatchIndirect(_ hal.Buffer, _ uint64) {
	c.run()
}

func (c *ComputePassEncoder) run() {
	if c.pipeline == nil || c.bindGroup == nil {
		return
	}
	runKernel(c.pipeline.entryPoint, c.bindGroup.entries)
}
