// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import (
	"encoding/binary"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/scansum/hal"
	"github.com/gogpu/scansum/internal/simhal"
)

func readLevelInfos(t *testing.T, queue *simhal.Queue, resources *SupportResources) []LevelInfo {
	t.Helper()
	n := resources.MaxLevelCount()
	raw := make([]byte, uint64(n)*levelInfoSize)
	if err := queue.ReadBuffer(resources.LevelOffsets(), 0, raw); err != nil {
		t.Fatalf("ReadBuffer(level_offsets): %v", err)
	}
	out := make([]LevelInfo, n)
	for i := range out {
		base := i * levelInfoSize
		out[i] = LevelInfo{
			Count:        binary.LittleEndian.Uint32(raw[base:]),
			InputOffset:  binary.LittleEndian.Uint32(raw[base+4:]),
			OutputOffset: binary.LittleEndian.Uint32(raw[base+8:]),
			ParentOffset: binary.LittleEndian.Uint32(raw[base+12:]),
		}
	}
	return out
}

func readLevelCount(t *testing.T, queue *simhal.Queue, resources *SupportResources) uint32 {
	t.Helper()
	raw := make([]byte, 4)
	if err := queue.ReadBuffer(resources.LevelCountScalar(), 0, raw); err != nil {
		t.Fatalf("ReadBuffer(level_count): %v", err)
	}
	return binary.LittleEndian.Uint32(raw)
}

func readIndirectArgs(t *testing.T, queue *simhal.Queue, resources *SupportResources) []DispatchIndirectArgs {
	t.Helper()
	n := resources.MaxLevelCount()
	raw := make([]byte, uint64(n)*dispatchIndirectArgsSize)
	if err := queue.ReadBuffer(resources.IndirectArgs(), 0, raw); err != nil {
		t.Fatalf("ReadBuffer(indirect_args): %v", err)
	}
	out := make([]DispatchIndirectArgs, n)
	for i := range out {
		base := i * dispatchIndirectArgsSize
		out[i] = DispatchIndirectArgs{
			X: binary.LittleEndian.Uint32(raw[base:]),
			Y: binary.LittleEndian.Uint32(raw[base+4:]),
			Z: binary.LittleEndian.Uint32(raw[base+8:]),
		}
	}
	return out
}

// TestPlanFromConstantTwoLevels asserts the exact level-offsets and
// indirect-args tables plan_from_constant produces for n=250, a count that
// spans two levels (a 256-element level 0 and a 128-element level 1, with
// one drain slot reserved after the top level for its own group carry).
func TestPlanFromConstantTwoLevels(t *testing.T) {
	device := simhal.NewDevice()
	queue := &simhal.Queue{}
	planner, err := NewDispatchPlanner(device)
	if err != nil {
		t.Fatalf("NewDispatchPlanner: %v", err)
	}
	defer planner.Dispose()

	resources := NewSupportResources(device)
	if err := resources.Create(250); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer resources.Dispose()

	if resources.MaxLevelCount() != 2 {
		t.Fatalf("MaxLevelCount() = %d, want 2", resources.MaxLevelCount())
	}

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	scratch := newDispatchScratch(device)
	defer scratch.Release()
	if err := planner.PlanFromConstant(encoder, queue, scratch, resources, 250); err != nil {
		t.Fatalf("PlanFromConstant: %v", err)
	}

	if got := readLevelCount(t, queue, resources); got != 2 {
		t.Fatalf("level_count = %d, want 2", got)
	}

	infos := readLevelInfos(t, queue, resources)
	want := []LevelInfo{
		{Count: 250, InputOffset: 0, OutputOffset: 0, ParentOffset: 256},
		{Count: 2, InputOffset: 256, OutputOffset: 256, ParentOffset: 384},
	}
	for i := range want {
		if infos[i] != want[i] {
			t.Fatalf("level %d: got %+v, want %+v", i, infos[i], want[i])
		}
	}

	args := readIndirectArgs(t, queue, resources)
	wantArgs := []DispatchIndirectArgs{
		{X: 2, Y: 1, Z: 1}, // ceil(250/128)
		{X: 1, Y: 1, Z: 1}, // ceil(2/128)
	}
	for i := range wantArgs {
		if args[i] != wantArgs[i] {
			t.Fatalf("indirect_args[%d] = %+v, want %+v", i, args[i], wantArgs[i])
		}
	}
}

// TestPlanFromConstantSingleLevel asserts an n that fits in one group plans
// a single active level with no parent region beyond its own drain slot.
func TestPlanFromConstantSingleLevel(t *testing.T) {
	device := simhal.NewDevice()
	queue := &simhal.Queue{}
	planner, err := NewDispatchPlanner(device)
	if err != nil {
		t.Fatalf("NewDispatchPlanner: %v", err)
	}
	defer planner.Dispose()

	resources := NewSupportResources(device)
	if err := resources.Create(37); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer resources.Dispose()

	if resources.MaxLevelCount() != 1 {
		t.Fatalf("MaxLevelCount() = %d, want 1", resources.MaxLevelCount())
	}

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	scratch := newDispatchScratch(device)
	defer scratch.Release()
	if err := planner.PlanFromConstant(encoder, queue, scratch, resources, 37); err != nil {
		t.Fatalf("PlanFromConstant: %v", err)
	}

	infos := readLevelInfos(t, queue, resources)
	want := LevelInfo{Count: 37, InputOffset: 0, OutputOffset: 0, ParentOffset: 128}
	if infos[0] != want {
		t.Fatalf("level 0: got %+v, want %+v", infos[0], want)
	}

	args := readIndirectArgs(t, queue, resources)
	if args[0] != (DispatchIndirectArgs{X: 1, Y: 1, Z: 1}) {
		t.Fatalf("indirect_args[0] = %+v, want {1 1 1}", args[0])
	}
}

// TestPlanFromBuffer asserts the device-resident-count entry point produces
// the same geometry as PlanFromConstant for an equivalent count, reading
// the count from a nonzero byte offset inside a larger buffer.
func TestPlanFromBuffer(t *testing.T) {
	device := simhal.NewDevice()
	queue := &simhal.Queue{}
	planner, err := NewDispatchPlanner(device)
	if err != nil {
		t.Fatalf("NewDispatchPlanner: %v", err)
	}
	defer planner.Dispose()

	resources := NewSupportResources(device)
	if err := resources.Create(250); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer resources.Dispose()

	const countByteOffset = 8
	countBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "count", Size: countByteOffset + 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateBuffer(count): %v", err)
	}
	defer device.DestroyBuffer(countBuf)
	countBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBytes, 250)
	queue.WriteBuffer(countBuf, countByteOffset, countBytes)

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	scratch := newDispatchScratch(device)
	defer scratch.Release()
	if err := planner.PlanFromBuffer(encoder, queue, scratch, resources, countBuf, countByteOffset); err != nil {
		t.Fatalf("PlanFromBuffer: %v", err)
	}

	infos := readLevelInfos(t, queue, resources)
	want := LevelInfo{Count: 250, InputOffset: 0, OutputOffset: 0, ParentOffset: 256}
	if infos[0] != want {
		t.Fatalf("level 0: got %+v, want %+v", infos[0], want)
	}
}
