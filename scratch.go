// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import "github.com/gogpu/scansum/hal"

// DispatchScratch bundles the per-call scalar-argument buffers and bind
// groups created by a single DispatchDirect or DispatchIndirect call.
//
// Each level's kernel invocation needs its own scalar-argument buffer,
// because the host writes each one via Queue.WriteBuffer while recording
// the passes, and every write lands on the device before the caller
// ever submits — so a shared buffer would be overwritten by a later
// level's value before an earlier level's dispatch executes. These
// buffers must therefore stay alive until the caller has submitted the
// recorder and waited for the corresponding fence; Release frees them.
//
// This mirrors the per-shape uniform buffers and bind groups the wider
// codebase's compute accelerators create for one batch and release once
// that batch's fence is signaled — just relocated to the caller's side,
// since this package never submits or waits on its own behalf.
type DispatchScratch struct {
	device     hal.Device
	buffers    []hal.Buffer
	bindGroups []hal.BindGroup
}

func newDispatchScratch(device hal.Device) *DispatchScratch {
	return &DispatchScratch{device: device}
}

func (s *DispatchScratch) addBuffer(buf hal.Buffer) {
	s.buffers = append(s.buffers, buf)
}

func (s *DispatchScratch) addBindGroup(bg hal.BindGroup) {
	s.bindGroups = append(s.bindGroups, bg)
}

// Release destroys every scratch buffer and bind group created for the
// dispatch call. Safe to call once; calling it twice is harmless since
// the underlying slices are cleared after the first call.
func (s *DispatchScratch) Release() {
	for _, bg := range s.bindGroups {
		s.device.DestroyBindGroup(bg)
	}
	for _, buf := range s.buffers {
		s.device.DestroyBuffer(buf)
	}
	s.bindGroups = nil
	s.buffers = nil
}
