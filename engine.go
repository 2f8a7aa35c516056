// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/scansum/hal"
)

// CountSource selects how DispatchIndirect locates the logical element
// count: from a device buffer at a byte offset.
type CountSource struct {
	Buffer     hal.Buffer
	ByteOffset uint64
}

// PrefixSumRequest describes one scan dispatch.
type PrefixSumRequest struct {
	// Exclusive selects an exclusive scan; otherwise the scan is inclusive.
	Exclusive bool

	// Input is the caller-owned device buffer of N u32 values. Read-only
	// to the engine; never retained past the call.
	Input hal.Buffer

	// Resources backs the scan. Its buffers must be Live.
	Resources *SupportResources

	// Count is the host-known logical element count, used by DispatchDirect.
	Count uint32

	// CountSource is the device-resident logical element count, used by
	// DispatchIndirect.
	CountSource CountSource
}

// ScanEngine orchestrates the planner, up-sweep, and down-sweep passes
// An engine must be Init'd before use and Dispose'd when done;
// using it outside that window returns ErrKernelNotLoaded.
type ScanEngine struct {
	device  hal.Device
	queue   hal.Queue
	planner *DispatchPlanner

	module       hal.ShaderModule
	bindLayout   hal.BindGroupLayout
	pipeLayout   hal.PipelineLayout
	groupScan    [2]hal.ComputePipeline // indexed by scanVariant
	nextInput    hal.ComputePipeline
	resolveParnt [2]hal.ComputePipeline // indexed by scanVariant

	loaded bool
}

type scanVariant int

const (
	scanInclusive scanVariant = iota
	scanExclusive
)

func variantOf(exclusive bool) scanVariant {
	if exclusive {
		return scanExclusive
	}
	return scanInclusive
}

// NewScanEngine returns an engine bound to device/queue. Call Init before
// dispatching.
func NewScanEngine(device hal.Device, queue hal.Queue) *ScanEngine {
	return &ScanEngine{device: device, queue: queue}
}

// Init compiles the scan kernels and the planner. Safe to call once;
// calling it again while already loaded is a no-op.
func (e *ScanEngine) Init() error {
	if e.loaded {
		return nil
	}

	planner, err := NewDispatchPlanner(e.device)
	if err != nil {
		Logger().Error("scansum: engine init failed", "stage", "planner", "error", err)
		return err
	}

	module, err := e.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "scansum-scan",
		Source: hal.ShaderSource{WGSL: scanShaderWGSL},
	})
	if err != nil {
		planner.Dispose()
		Logger().Error("scansum: engine init failed", "stage", "shader", "error", err)
		return fmt.Errorf("scansum: compile scan shader: %w", err)
	}

	entries := []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		{Binding: 4, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		{Binding: 5, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
	}
	bindLayout, err := e.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "scansum-scan-bgl",
		Entries: entries,
	})
	if err != nil {
		e.device.DestroyShaderModule(module)
		planner.Dispose()
		return fmt.Errorf("scansum: create scan bind group layout: %w", err)
	}

	pipeLayout, err := e.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "scansum-scan-pl",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		e.device.DestroyBindGroupLayout(bindLayout)
		e.device.DestroyShaderModule(module)
		planner.Dispose()
		return fmt.Errorf("scansum: create scan pipeline layout: %w", err)
	}

	groupScanInclusive, err := e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "scansum-group-scan-inclusive", Layout: pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "group_scan_inclusive"},
	})
	if err != nil {
		e.device.DestroyPipelineLayout(pipeLayout)
		e.device.DestroyBindGroupLayout(bindLayout)
		e.device.DestroyShaderModule(module)
		planner.Dispose()
		return fmt.Errorf("scansum: create group_scan_inclusive pipeline: %w", err)
	}

	groupScanExclusive, err := e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "scansum-group-scan-exclusive", Layout: pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "group_scan_exclusive"},
	})
	if err != nil {
		e.device.DestroyComputePipeline(groupScanInclusive)
		e.device.DestroyPipelineLayout(pipeLayout)
		e.device.DestroyBindGroupLayout(bindLayout)
		e.device.DestroyShaderModule(module)
		planner.Dispose()
		return fmt.Errorf("scansum: create group_scan_exclusive pipeline: %w", err)
	}

	nextInput, err := e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "scansum-next-input", Layout: pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "next_input"},
	})
	if err != nil {
		e.device.DestroyComputePipeline(groupScanExclusive)
		e.device.DestroyComputePipeline(groupScanInclusive)
		e.device.DestroyPipelineLayout(pipeLayout)
		e.device.DestroyBindGroupLayout(bindLayout)
		e.device.DestroyShaderModule(module)
		planner.Dispose()
		return fmt.Errorf("scansum: create next_input pipeline: %w", err)
	}

	resolveInclusive, err := e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "scansum-resolve-parent-inclusive", Layout: pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "resolve_parent_inclusive"},
	})
	if err != nil {
		e.device.DestroyComputePipeline(nextInput)
		e.device.DestroyComputePipeline(groupScanExclusive)
		e.device.DestroyComputePipeline(groupScanInclusive)
		e.device.DestroyPipelineLayout(pipeLayout)
		e.device.DestroyBindGroupLayout(bindLayout)
		e.device.DestroyShaderModule(module)
		planner.Dispose()
		return fmt.Errorf("scansum: create resolve_parent_inclusive pipeline: %w", err)
	}

	resolveExclusive, err := e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "scansum-resolve-parent-exclusive", Layout: pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "resolve_parent_exclusive"},
	})
	if err != nil {
		e.device.DestroyComputePipeline(resolveInclusive)
		e.device.DestroyComputePipeline(nextInput)
		e.device.DestroyComputePipeline(groupScanExclusive)
		e.device.DestroyComputePipeline(groupScanInclusive)
		e.device.DestroyPipelineLayout(pipeLayout)
		e.device.DestroyBindGroupLayout(bindLayout)
		e.device.DestroyShaderModule(module)
		planner.Dispose()
		return fmt.Errorf("scansum: create resolve_parent_exclusive pipeline: %w", err)
	}

	e.planner = planner
	e.module = module
	e.bindLayout = bindLayout
	e.pipeLayout = pipeLayout
	e.groupScan = [2]hal.ComputePipeline{scanInclusive: groupScanInclusive, scanExclusive: groupScanExclusive}
	e.nextInput = nextInput
	e.resolveParnt = [2]hal.ComputePipeline{scanInclusive: resolveInclusive, scanExclusive: resolveExclusive}
	e.loaded = true
	return nil
}

// Dispose releases every GPU object the engine created. Safe to call more
// than once.
func (e *ScanEngine) Dispose() {
	if !e.loaded {
		return
	}
	e.planner.Dispose()
	e.device.DestroyComputePipeline(e.resolveParnt[scanExclusive])
	e.device.DestroyComputePipeline(e.resolveParnt[scanInclusive])
	e.device.DestroyComputePipeline(e.nextInput)
	e.device.DestroyComputePipeline(e.groupScan[scanExclusive])
	e.device.DestroyComputePipeline(e.groupScan[scanInclusive])
	e.device.DestroyPipelineLayout(e.pipeLayout)
	e.device.DestroyBindGroupLayout(e.bindLayout)
	e.device.DestroyShaderModule(e.module)
	e.loaded = false
}

// DispatchDirect records a complete scan (planning, up-sweep, down-sweep)
// against encoder for a host-known element count. Returns scratch
// resources the caller must Release once the recorder has been submitted
// and its completion fence observed.
func (e *ScanEngine) DispatchDirect(encoder hal.CommandEncoder, req PrefixSumRequest) (*DispatchScratch, error) {
	if !e.loaded {
		return nil, ErrKernelNotLoaded
	}
	if err := validateCommon(req); err != nil {
		return nil, err
	}
	if req.Count > req.Resources.AlignedElementCount() {
		return nil, fmt.Errorf("%w: count=%d aligned_capacity=%d", ErrCapacityExceeded, req.Count, req.Resources.AlignedElementCount())
	}

	scratch := newDispatchScratch(e.device)
	if err := e.planner.PlanFromConstant(encoder, e.queue, scratch, req.Resources, req.Count); err != nil {
		scratch.Release()
		return nil, err
	}
	if err := e.recordScan(encoder, scratch, req); err != nil {
		scratch.Release()
		return nil, err
	}
	return scratch, nil
}

// DispatchIndirect records a complete scan against encoder for an element
// count that lives in a device buffer. See DispatchDirect for the scratch
// resource lifetime contract.
func (e *ScanEngine) DispatchIndirect(encoder hal.CommandEncoder, req PrefixSumRequest) (*DispatchScratch, error) {
	if !e.loaded {
		return nil, ErrKernelNotLoaded
	}
	if err := validateCommon(req); err != nil {
		return nil, err
	}
	if req.CountSource.Buffer == nil {
		return nil, fmt.Errorf("%w: count source buffer is nil", ErrInvalidInput)
	}

	scratch := newDispatchScratch(e.device)
	if err := e.planner.PlanFromBuffer(encoder, e.queue, scratch, req.Resources, req.CountSource.Buffer, req.CountSource.ByteOffset); err != nil {
		scratch.Release()
		return nil, err
	}
	if err := e.recordScan(encoder, scratch, req); err != nil {
		scratch.Release()
		return nil, err
	}
	return scratch, nil
}

func validateCommon(req PrefixSumRequest) error {
	if req.Resources == nil || !req.Resources.Live() {
		return ErrInvalidResources
	}
	if req.Input == nil {
		return ErrInvalidInput
	}
	return nil
}

// recordScan appends the up-sweep and down-sweep passes. The
// resolve-parent kernels bind prefix_a for both read and write — never
// the caller's input buffer.
func (e *ScanEngine) recordScan(encoder hal.CommandEncoder, scratch *DispatchScratch, req PrefixSumRequest) error {
	variant := variantOf(req.Exclusive)
	resources := req.Resources
	levelCount := resources.MaxLevelCount()

	prefixCapacityBytes := uint64(resources.PrefixElementCapacity()) * 4

	for k := uint32(0); k < levelCount; k++ {
		input, inputSize := resources.PrefixB(), prefixCapacityBytes
		// Levels above 0 hold per-group carries, not the caller's
		// requested output: resolve_parent locates a group's correction
		// at parent_offset+group-1, which is only correct carry data when
		// that parent level was scanned inclusively. Only level 0 — the
		// values actually returned to the caller — honors req.Exclusive.
		groupScanPipeline := e.groupScan[scanInclusive]
		if k == 0 {
			groupScanPipeline = e.groupScan[variant]
			// The caller owns this buffer; its byte size isn't ours to
			// know, so bind the rest of it from offset 0.
			input, inputSize = req.Input, 0
		}
		if err := e.recordPass(encoder, scratch, groupScanPipeline, resources, input, inputSize, k, k); err != nil {
			return err
		}
		if k+1 < levelCount {
			if err := e.recordPass(encoder, scratch, e.nextInput, resources, resources.PrefixB(), prefixCapacityBytes, k+1, k+1); err != nil {
				return err
			}
		}
	}

	// Resolve levelCount-2 down to 0: each level's carries were already
	// folded into the next level up during the up-sweep, so the
	// highest-indexed (top) level needs no resolution of its own — it is
	// exact after a single group_scan.
	for k := levelCount; k >= 2; k-- {
		level := k - 2
		if err := e.recordPass(encoder, scratch, e.resolveParnt[variant], resources, resources.PrefixA(), prefixCapacityBytes, level, level); err != nil {
			return err
		}
	}
	return nil
}

// recordPass records one BeginComputePass/.../End sequence for a single
// kernel invocation at level level_k, dispatched indirectly using
// indirect_args[indirectSlot]. inputSize is the byte size to bind for
// the binding-1 input buffer; 0 means "rest of buffer from offset 0".
func (e *ScanEngine) recordPass(encoder hal.CommandEncoder, scratch *DispatchScratch, pipeline hal.ComputePipeline, resources *SupportResources, input hal.Buffer, inputSize uint64, levelK, indirectSlot uint32) error {
	argsBuf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "scansum-scan-args",
		Size:  scalarArgsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("scansum: create scan scalar buffer: %w", err)
	}
	scratch.addBuffer(argsBuf)
	e.queue.WriteBuffer(argsBuf, 0, packScalarArgs(0, 0, 0, levelK))

	bindGroup, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "scansum-scan-bg",
		Layout: e.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			bufferBindingEntry(0, argsBuf, scalarArgsSize),
			bufferBindingEntry(1, input, inputSize),
			bufferBindingEntry(2, resources.PrefixA(), uint64(resources.PrefixElementCapacity())*4),
			bufferBindingEntry(3, resources.PrefixB(), uint64(resources.PrefixElementCapacity())*4),
			bufferBindingEntry(4, resources.LevelOffsets(), uint64(resources.MaxLevelCount())*levelInfoSize),
			bufferBindingEntry(5, resources.LevelCountScalar(), 4),
		},
	})
	if err != nil {
		return fmt.Errorf("scansum: create scan bind group: %w", err)
	}
	scratch.addBindGroup(bindGroup)

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "scansum-scan-pass"})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchIndirect(resources.IndirectArgs(), uint64(indirectSlot)*dispatchIndirectArgsSize)
	pass.End()
	return nil
}
