// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/scansum/hal"
	"github.com/gogpu/scansum/internal/simhal"
)

func packUint32s(vals []uint32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func unpackUint32s(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}

func expectedScan(vals []uint32, exclusive bool) []uint32 {
	out := make([]uint32, len(vals))
	var running uint32
	for i, v := range vals {
		if exclusive {
			out[i] = running
			running += v
		} else {
			running += v
			out[i] = running
		}
	}
	return out
}

// runScan exercises one full direct-dispatch scan through the real
// submit/wait/readback sequence a caller would follow.
func runScan(t *testing.T, device *simhal.Device, queue *simhal.Queue, engine *ScanEngine, resources *SupportResources, input hal.Buffer, n uint32, exclusive bool) []uint32 {
	t.Helper()

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	if err := encoder.BeginEncoding("test-scan"); err != nil {
		t.Fatalf("BeginEncoding: %v", err)
	}

	scratch, err := engine.DispatchDirect(encoder, PrefixSumRequest{
		Exclusive: exclusive,
		Input:     input,
		Resources: resources,
		Count:     n,
	})
	if err != nil {
		t.Fatalf("DispatchDirect: %v", err)
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		t.Fatalf("EndEncoding: %v", err)
	}
	fence, err := device.CreateFence()
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if err := queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ok, err := device.Wait(fence, 1, time.Second)
	if err != nil || !ok {
		t.Fatalf("Wait: ok=%v err=%v", ok, err)
	}
	scratch.Release()
	device.FreeCommandBuffer(cmdBuf)
	device.DestroyFence(fence)

	out := make([]byte, n*4)
	if err := queue.ReadBuffer(resources.PrefixA(), 0, out); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	return unpackUint32s(out)
}

func newTestEngine(t *testing.T, device *simhal.Device, queue *simhal.Queue) *ScanEngine {
	t.Helper()
	engine := NewScanEngine(device, queue)
	if err := engine.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(engine.Dispose)
	return engine
}

func TestScanEngineDispatchDirect(t *testing.T) {
	cases := []struct {
		name string
		n    uint32
	}{
		{"empty", 0},
		{"single group", 37},
		{"exact group", GroupSize},
		{"two levels", 250},
		{"unaligned two levels", 301},
		{"three levels", 20000},
	}

	for _, c := range cases {
		for _, exclusive := range []bool{false, true} {
			t.Run(c.name, func(t *testing.T) {
				device := simhal.NewDevice()
				queue := &simhal.Queue{}
				engine := newTestEngine(t, device, queue)

				resources := NewSupportResources(device)
				if err := resources.Create(c.n); err != nil {
					t.Fatalf("Create: %v", err)
				}
				defer resources.Dispose()

				vals := make([]uint32, c.n)
				for i := range vals {
					vals[i] = uint32(i%7) + 1
				}
				inputSize := uint64(len(vals)) * 4
				if inputSize == 0 {
					inputSize = 4
				}
				input, err := device.CreateBuffer(&hal.BufferDescriptor{
					Label: "input",
					Size:  inputSize,
					Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
				})
				if err != nil {
					t.Fatalf("CreateBuffer: %v", err)
				}
				defer device.DestroyBuffer(input)
				if c.n > 0 {
					queue.WriteBuffer(input, 0, packUint32s(vals))
				}

				got := runScan(t, device, queue, engine, resources, input, c.n, exclusive)
				want := expectedScan(vals, exclusive)
				for i := range want {
					if got[i] != want[i] {
						t.Fatalf("exclusive=%v idx %d: got %d want %d (first divergence)", exclusive, i, got[i], want[i])
					}
				}
			})
		}
	}
}

func TestScanEngineDispatchIndirect(t *testing.T) {
	device := simhal.NewDevice()
	queue := &simhal.Queue{}
	engine := newTestEngine(t, device, queue)

	const n = 512
	resources := NewSupportResources(device)
	if err := resources.Create(n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer resources.Dispose()

	vals := make([]uint32, n)
	for i := range vals {
		vals[i] = 1
	}
	input, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "input", Size: n * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	defer device.DestroyBuffer(input)
	queue.WriteBuffer(input, 0, packUint32s(vals))

	const countByteOffset = 16
	countBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "count", Size: countByteOffset + 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateBuffer(count): %v", err)
	}
	defer device.DestroyBuffer(countBuf)
	countBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBytes, n)
	queue.WriteBuffer(countBuf, countByteOffset, countBytes)

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	scratch, err := engine.DispatchIndirect(encoder, PrefixSumRequest{
		Input:       input,
		Resources:   resources,
		CountSource: CountSource{Buffer: countBuf, ByteOffset: countByteOffset},
	})
	if err != nil {
		t.Fatalf("DispatchIndirect: %v", err)
	}
	defer scratch.Release()

	out := make([]byte, n*4)
	if err := queue.ReadBuffer(resources.PrefixA(), 0, out); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	got := unpackUint32s(out)
	for i, v := range got {
		if v != uint32(i+1) {
			t.Fatalf("idx %d: got %d want %d", i, v, i+1)
		}
	}
}

func TestScanEnginePreconditions(t *testing.T) {
	device := simhal.NewDevice()
	queue := &simhal.Queue{}
	engine := NewScanEngine(device, queue)
	encoder, _ := device.CreateCommandEncoder(nil)

	resources := NewSupportResources(device)
	if err := resources.Create(128); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer resources.Dispose()
	input, _ := device.CreateBuffer(&hal.BufferDescriptor{Size: 128 * 4, Usage: gputypes.BufferUsageStorage})
	defer device.DestroyBuffer(input)

	if _, err := engine.DispatchDirect(encoder, PrefixSumRequest{Input: input, Resources: resources, Count: 1}); err != ErrKernelNotLoaded {
		t.Fatalf("uninitialized engine: got %v, want ErrKernelNotLoaded", err)
	}

	if err := engine.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer engine.Dispose()

	if _, err := engine.DispatchDirect(encoder, PrefixSumRequest{Input: nil, Resources: resources, Count: 1}); err != ErrInvalidInput {
		t.Fatalf("nil input: got %v, want ErrInvalidInput", err)
	}
	if _, err := engine.DispatchDirect(encoder, PrefixSumRequest{Input: input, Resources: nil, Count: 1}); err != ErrInvalidResources {
		t.Fatalf("nil resources: got %v, want ErrInvalidResources", err)
	}
	if _, err := engine.DispatchDirect(encoder, PrefixSumRequest{Input: input, Resources: resources, Count: 1 << 20}); err == nil {
		t.Fatal("count beyond capacity: got nil error")
	}
}
