// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import (
	"testing"

	"github.com/gogpu/scansum/internal/simhal"
)

func TestSupportResourcesLifecycle(t *testing.T) {
	device := simhal.NewDevice()
	r := NewSupportResources(device)

	if r.Live() {
		t.Fatal("fresh SupportResources reports Live")
	}

	if err := r.Create(200); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !r.Live() {
		t.Fatal("Live() false after Create")
	}
	firstCapacity := r.AlignedElementCount()
	if firstCapacity < 200 {
		t.Fatalf("AlignedElementCount() = %d, want >= 200", firstCapacity)
	}
	firstPrefixA := r.PrefixA()

	// Resize to a smaller capacity is a no-op: same buffers, same capacity.
	if err := r.Resize(50); err != nil {
		t.Fatalf("Resize(smaller): %v", err)
	}
	if r.AlignedElementCount() != firstCapacity {
		t.Fatalf("Resize(smaller) changed capacity: %d -> %d", firstCapacity, r.AlignedElementCount())
	}
	if r.PrefixA() != firstPrefixA {
		t.Fatal("Resize(smaller) reallocated buffers")
	}

	// Resize to a larger capacity reallocates.
	if err := r.Resize(100000); err != nil {
		t.Fatalf("Resize(larger): %v", err)
	}
	if r.AlignedElementCount() <= firstCapacity {
		t.Fatalf("Resize(larger) did not grow: %d -> %d", firstCapacity, r.AlignedElementCount())
	}
	if r.PrefixA() == firstPrefixA {
		t.Fatal("Resize(larger) kept the old buffer")
	}

	r.Dispose()
	if r.Live() {
		t.Fatal("Live() true after Dispose")
	}

	// Dispose is idempotent.
	r.Dispose()
}

func TestSupportResourcesZeroCount(t *testing.T) {
	device := simhal.NewDevice()
	r := NewSupportResources(device)
	if err := r.Create(0); err != nil {
		t.Fatalf("Create(0): %v", err)
	}
	if r.AlignedElementCount() != GroupSize {
		t.Fatalf("AlignedElementCount() = %d, want %d", r.AlignedElementCount(), GroupSize)
	}
	if r.MaxLevelCount() != 1 {
		t.Fatalf("MaxLevelCount() = %d, want 1", r.MaxLevelCount())
	}
}
