// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/scansum/hal"
)

// DispatchPlanner records the single-thread compute dispatch that
// populates a SupportResources' level-offsets table, level-count scalar,
// and indirect-dispatch-args table, from either a host-known
// element count (PlanFromConstant) or a device-resident one
// (PlanFromBuffer).
type DispatchPlanner struct {
	device hal.Device

	module hal.ShaderModule

	constantLayout hal.BindGroupLayout
	bufferLayout   hal.BindGroupLayout

	constantPipelineLayout hal.PipelineLayout
	bufferPipelineLayout   hal.PipelineLayout

	fromConstant hal.ComputePipeline
	fromBuffer   hal.ComputePipeline
}

// NewDispatchPlanner compiles the plan_from_constant / plan_from_buffer
// kernels and builds their pipelines against device.
func NewDispatchPlanner(device hal.Device) (*DispatchPlanner, error) {
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "scansum-plan",
		Source: hal.ShaderSource{WGSL: planShaderWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("scansum: compile planner shader: %w", err)
	}

	storageRW := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	storageRO := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	uniform := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}

	baseEntries := []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: uniform},
		{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: storageRW},
		{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: storageRW},
		{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: storageRW},
	}

	constantLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "scansum-plan-constant-bgl",
		Entries: baseEntries,
	})
	if err != nil {
		device.DestroyShaderModule(module)
		return nil, fmt.Errorf("scansum: create plan_from_constant bind group layout: %w", err)
	}

	bufferEntries := append(append([]gputypes.BindGroupLayoutEntry{}, baseEntries...),
		gputypes.BindGroupLayoutEntry{Binding: 4, Visibility: gputypes.ShaderStageCompute, Buffer: storageRO})
	bufferLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "scansum-plan-buffer-bgl",
		Entries: bufferEntries,
	})
	if err != nil {
		device.DestroyBindGroupLayout(constantLayout)
		device.DestroyShaderModule(module)
		return nil, fmt.Errorf("scansum: create plan_from_buffer bind group layout: %w", err)
	}

	constantPipelineLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "scansum-plan-constant-pl",
		BindGroupLayouts: []hal.BindGroupLayout{constantLayout},
	})
	if err != nil {
		device.DestroyBindGroupLayout(bufferLayout)
		device.DestroyBindGroupLayout(constantLayout)
		device.DestroyShaderModule(module)
		return nil, fmt.Errorf("scansum: create plan_from_constant pipeline layout: %w", err)
	}

	bufferPipelineLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "scansum-plan-buffer-pl",
		BindGroupLayouts: []hal.BindGroupLayout{bufferLayout},
	})
	if err != nil {
		device.DestroyPipelineLayout(constantPipelineLayout)
		device.DestroyBindGroupLayout(bufferLayout)
		device.DestroyBindGroupLayout(constantLayout)
		device.DestroyShaderModule(module)
		return nil, fmt.Errorf("scansum: create plan_from_buffer pipeline layout: %w", err)
	}

	fromConstant, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "scansum-plan-from-constant",
		Layout: constantPipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "plan_from_constant",
		},
	})
	if err != nil {
		device.DestroyPipelineLayout(bufferPipelineLayout)
		device.DestroyPipelineLayout(constantPipelineLayout)
		device.DestroyBindGroupLayout(bufferLayout)
		device.DestroyBindGroupLayout(constantLayout)
		device.DestroyShaderModule(module)
		return nil, fmt.Errorf("scansum: create plan_from_constant pipeline: %w", err)
	}

	fromBuffer, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "scansum-plan-from-buffer",
		Layout: bufferPipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "plan_from_buffer",
		},
	})
	if err != nil {
		device.DestroyComputePipeline(fromConstant)
		device.DestroyPipelineLayout(bufferPipelineLayout)
		device.DestroyPipelineLayout(constantPipelineLayout)
		device.DestroyBindGroupLayout(bufferLayout)
		device.DestroyBindGroupLayout(constantLayout)
		device.DestroyShaderModule(module)
		return nil, fmt.Errorf("scansum: create plan_from_buffer pipeline: %w", err)
	}

	return &DispatchPlanner{
		device:                 device,
		module:                 module,
		constantLayout:         constantLayout,
		bufferLayout:           bufferLayout,
		constantPipelineLayout: constantPipelineLayout,
		bufferPipelineLayout:   bufferPipelineLayout,
		fromConstant:           fromConstant,
		fromBuffer:             fromBuffer,
	}, nil
}

// Dispose releases every GPU object the planner created.
func (p *DispatchPlanner) Dispose() {
	if p.fromBuffer != nil {
		p.device.DestroyComputePipeline(p.fromBuffer)
		p.fromBuffer = nil
	}
	if p.fromConstant != nil {
		p.device.DestroyComputePipeline(p.fromConstant)
		p.fromConstant = nil
	}
	if p.bufferPipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.bufferPipelineLayout)
		p.bufferPipelineLayout = nil
	}
	if p.constantPipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.constantPipelineLayout)
		p.constantPipelineLayout = nil
	}
	if p.bufferLayout != nil {
		p.device.DestroyBindGroupLayout(p.bufferLayout)
		p.bufferLayout = nil
	}
	if p.constantLayout != nil {
		p.device.DestroyBindGroupLayout(p.constantLayout)
		p.constantLayout = nil
	}
	if p.module != nil {
		p.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

func bufferBindingEntry(binding uint32, buf hal.Buffer, size uint64) gputypes.BindGroupEntry {
	return bufferBindingEntryAt(binding, buf, 0, size)
}

// bufferBindingEntryAt is the offset-aware form, needed when a binding
// reads a value that lives at a nonzero byte offset inside a larger
// buffer — e.g. a device-resident element count embedded in a caller's
// buffer.
func bufferBindingEntryAt(binding uint32, buf hal.Buffer, offset, size uint64) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  binding,
		Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: offset, Size: size},
	}
}

// PlanFromConstant records one plan_from_constant dispatch against encoder,
// populating resources' level-offsets, level-count scalar, and
// indirect-args tables for a host-known element count n.
func (p *DispatchPlanner) PlanFromConstant(encoder hal.CommandEncoder, queue hal.Queue, scratch *DispatchScratch, resources *SupportResources, n uint32) error {
	argsBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "scansum-plan-args",
		Size:  scalarArgsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("scansum: create planner scalar buffer: %w", err)
	}
	scratch.addBuffer(argsBuf)
	queue.WriteBuffer(argsBuf, 0, packScalarArgs(n, resources.MaxLevelCount(), 0, 0))

	bindGroup, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "scansum-plan-constant-bg",
		Layout: p.constantLayout,
		Entries: []gputypes.BindGroupEntry{
			bufferBindingEntry(0, argsBuf, scalarArgsSize),
			bufferBindingEntry(1, resources.LevelOffsets(), uint64(resources.MaxLevelCount())*levelInfoSize),
			bufferBindingEntry(2, resources.LevelCountScalar(), 4),
			bufferBindingEntry(3, resources.IndirectArgs(), uint64(resources.MaxLevelCount())*dispatchIndirectArgsSize),
		},
	})
	if err != nil {
		return fmt.Errorf("scansum: create planner bind group: %w", err)
	}
	scratch.addBindGroup(bindGroup)

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "scansum-plan-from-constant"})
	pass.SetPipeline(p.fromConstant)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(1, 1, 1)
	pass.End()
	return nil
}

// PlanFromBuffer records one plan_from_buffer dispatch against encoder,
// reading the logical element count from countBuffer at byteOffset.
func (p *DispatchPlanner) PlanFromBuffer(encoder hal.CommandEncoder, queue hal.Queue, scratch *DispatchScratch, resources *SupportResources, countBuffer hal.Buffer, byteOffset uint64) error {
	argsBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "scansum-plan-args",
		Size:  scalarArgsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("scansum: create planner scalar buffer: %w", err)
	}
	scratch.addBuffer(argsBuf)
	queue.WriteBuffer(argsBuf, 0, packScalarArgs(0, resources.MaxLevelCount(), 0, 0))

	bindGroup, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "scansum-plan-buffer-bg",
		Layout: p.bufferLayout,
		Entries: []gputypes.BindGroupEntry{
			bufferBindingEntry(0, argsBuf, scalarArgsSize),
			bufferBindingEntry(1, resources.LevelOffsets(), uint64(resources.MaxLevelCount())*levelInfoSize),
			bufferBindingEntry(2, resources.LevelCountScalar(), 4),
			bufferBindingEntry(3, resources.IndirectArgs(), uint64(resources.MaxLevelCount())*dispatchIndirectArgsSize),
			bufferBindingEntryAt(4, countBuffer, byteOffset, 4),
		},
	})
	if err != nil {
		return fmt.Errorf("scansum: create planner bind group: %w", err)
	}
	scratch.addBindGroup(bindGroup)

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "scansum-plan-from-buffer"})
	pass.SetPipeline(p.fromBuffer)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(1, 1, 1)
	pass.End()
	return nil
}
