// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

import "testing"

func TestPlanLevels(t *testing.T) {
	cases := []struct {
		name       string
		nMax       uint32
		wantLevels uint32
		wantTotal  uint32
	}{
		{"zero", 0, 1, GroupSize},
		{"one", 1, 1, GroupSize},
		{"exactly one group", GroupSize, 1, GroupSize},
		{"one over a group", GroupSize + 1, 2, 2*GroupSize + GroupSize},
		{"two levels", 1024, 2, 1024 + GroupSize},
		{"unaligned two levels", 200, 2, 2*GroupSize + GroupSize},
		{"many levels", 1 << 20, 3, 0}, // total checked structurally below
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := PlanLevels(c.nMax)
			if g.LevelCount != c.wantLevels {
				t.Fatalf("LevelCount = %d, want %d", g.LevelCount, c.wantLevels)
			}
			if c.wantTotal != 0 && g.TotalSize != c.wantTotal {
				t.Fatalf("TotalSize = %d, want %d", g.TotalSize, c.wantTotal)
			}
			if uint32(len(g.LevelSizes)) != g.LevelCount || uint32(len(g.LevelOffsets)) != g.LevelCount {
				t.Fatalf("LevelSizes/LevelOffsets length mismatch: %d/%d vs LevelCount %d",
					len(g.LevelSizes), len(g.LevelOffsets), g.LevelCount)
			}

			var sum uint32
			for i, size := range g.LevelSizes {
				if size%GroupSize != 0 {
					t.Fatalf("level %d size %d not group-aligned", i, size)
				}
				if g.LevelOffsets[i] != sum {
					t.Fatalf("level %d offset = %d, want %d", i, g.LevelOffsets[i], sum)
				}
				sum += size
			}
			if sum != g.TotalSize {
				t.Fatalf("sum of level sizes = %d, want TotalSize %d", sum, g.TotalSize)
			}
			if last := g.LevelSizes[len(g.LevelSizes)-1]; last > GroupSize {
				t.Fatalf("top level size %d exceeds a single group", last)
			}
		})
	}
}

func TestDivAndAlignUpGroup(t *testing.T) {
	cases := []struct {
		v        uint32
		wantDiv  uint32
		wantAlgn uint32
	}{
		{0, 0, 0},
		{1, 1, GroupSize},
		{GroupSize, 1, GroupSize},
		{GroupSize + 1, 2, 2 * GroupSize},
	}
	for _, c := range cases {
		if got := DivUpGroup(c.v); got != c.wantDiv {
			t.Errorf("DivUpGroup(%d) = %d, want %d", c.v, got, c.wantDiv)
		}
		if got := AlignUpGroup(c.v); got != c.wantAlgn {
			t.Errorf("AlignUpGroup(%d) = %d, want %d", c.v, got, c.wantAlgn)
		}
	}
}
