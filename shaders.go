// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package scansum

// planShaderWGSL implements the plan_from_constant and plan_from_buffer
// kernels. Both run as a single thread; they differ only in
// where the logical element count N comes from.
//
// Bind group 0:
//
//	binding 0: uniform  ScalarArgs   { a, b, c, level_k: u32 }
//	binding 1: storage  level_offsets: array<LevelInfo>   (read_write)
//	binding 2: storage  level_count:   u32                (read_write)
//	binding 3: storage  indirect_args: array<DispatchArgs> (read_write)
//	binding 4: storage  input_count:   u32                (read, plan_from_buffer only)
const planShaderWGSL = `
struct ScalarArgs {
    a: u32,
    b: u32,
    c: u32,
    level_k: u32,
}

struct LevelInfo {
    count: u32,
    input_offset: u32,
    output_offset: u32,
    parent_offset: u32,
}

struct DispatchArgs {
    x: u32,
    y: u32,
    z: u32,
}

const GROUP_SIZE: u32 = 128u;

fn div_up_group(v: u32) -> u32 {
    return (v + GROUP_SIZE - 1u) / GROUP_SIZE;
}

fn align_up_group(v: u32) -> u32 {
    return div_up_group(v) * GROUP_SIZE;
}

@group(0) @binding(0) var<uniform> args: ScalarArgs;
@group(0) @binding(1) var<storage, read_write> level_offsets: array<LevelInfo>;
@group(0) @binding(2) var<storage, read_write> level_count: u32;
@group(0) @binding(3) var<storage, read_write> indirect_args: array<DispatchArgs>;

fn write_geometry(n_logical: u32, max_level_count: u32) {
    // parent_offset always points at the START OF THE NEXT LEVEL'S
    // REGION, never at this level's own input/output region: a group's
    // carry must not land where a scanned output value already lives.
    // The top level has no next level, so its capacity reserves one
    // extra drain slot right after the last level's region.
    var count = max(n_logical, 1u);
    var offset = 0u;
    var level = 0u;
    loop {
        if (level >= max_level_count) {
            break;
        }
        let active = level == 0u || count > 0u;
        // Level 0's written count is the true logical count, even when it
        // is 0 (an empty scan), so group_scan's bounds check skips every
        // invocation instead of touching input_buf[0]. Capacity reservation
        // below still uses the group-aligned minimum of 1, since a level's
        // region must hold a full group even when nothing in it is active.
        let written_count = select(count, n_logical, level == 0u);
        let this_offset = offset;
        let next_offset = offset + align_up_group(max(count, 1u));
        level_offsets[level] = LevelInfo(select(0u, written_count, active), this_offset, this_offset, next_offset);
        let groups = select(0u, div_up_group(written_count), active);
        indirect_args[level] = DispatchArgs(groups, 1u, 1u);
        offset = next_offset;
        count = div_up_group(count);
        level = level + 1u;
        if (count <= 1u && level < max_level_count) {
            // remaining levels are inactive; loop continues to zero them.
            count = 0u;
        }
    }
    level_count = level;
}

@compute @workgroup_size(1)
fn plan_from_constant() {
    write_geometry(args.a, args.b);
}

@group(0) @binding(4) var<storage, read> input_count: u32;

@compute @workgroup_size(1)
fn plan_from_buffer() {
    write_geometry(input_count, args.b);
}
`

// scanShaderWGSL implements the five scan-phase kernels:
// group_scan_inclusive, group_scan_exclusive, next_input,
// resolve_parent_inclusive, resolve_parent_exclusive.
//
// Bind group 0:
//
//	binding 0: uniform  ScalarArgs { a, b, c, level_k: u32 }
//	binding 1: storage  input:        array<u32> (read)  -- caller input at k=0, else prefix_b
//	binding 2: storage  prefix_a:     array<u32> (read_write)
//	binding 3: storage  prefix_b:     array<u32> (read_write)
//	binding 4: storage  level_offsets: array<LevelInfo> (read)
//	binding 5: storage  level_count:   u32 (read)
const scanShaderWGSL = `
struct ScalarArgs {
    a: u32,
    b: u32,
    c: u32,
    level_k: u32,
}

struct LevelInfo {
    count: u32,
    input_offset: u32,
    output_offset: u32,
    parent_offset: u32,
}

const GROUP_SIZE: u32 = 128u;

@group(0) @binding(0) var<uniform> args: ScalarArgs;
@group(0) @binding(1) var<storage, read> input_buf: array<u32>;
@group(0) @binding(2) var<storage, read_write> prefix_a: array<u32>;
@group(0) @binding(3) var<storage, read_write> prefix_b: array<u32>;
@group(0) @binding(4) var<storage, read> level_offsets: array<LevelInfo>;
@group(0) @binding(5) var<storage, read> level_count: u32;

var<workgroup> scratch: array<u32, GROUP_SIZE>;

fn group_scan(gid: vec3<u32>, lid: vec3<u32>, inclusive: bool) {
    let level = args.level_k;
    let info = level_offsets[level];
    let local = lid.x;
    let idx = gid.x;

    var value = 0u;
    if (idx < info.count) {
        if (level == 0u) {
            value = input_buf[idx];
        } else {
            value = prefix_b[info.input_offset + idx];
        }
    }
    scratch[local] = value;
    workgroupBarrier();

    var offset = 1u;
    loop {
        if (offset >= GROUP_SIZE) {
            break;
        }
        var added = 0u;
        if (local >= offset) {
            added = scratch[local - offset];
        }
        workgroupBarrier();
        scratch[local] = scratch[local] + added;
        workgroupBarrier();
        offset = offset * 2u;
    }

    var out = scratch[local];
    if (!inclusive) {
        out = out - value;
    }
    if (idx < info.count) {
        prefix_a[info.output_offset + idx] = out;
    }

    if (local == GROUP_SIZE - 1u) {
        let carry_idx = info.parent_offset + (idx / GROUP_SIZE);
        prefix_a[carry_idx] = scratch[local];
    }
}

@compute @workgroup_size(GROUP_SIZE)
fn group_scan_inclusive(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(local_invocation_id) lid: vec3<u32>) {
    group_scan(gid, lid, true);
}

@compute @workgroup_size(GROUP_SIZE)
fn group_scan_exclusive(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(local_invocation_id) lid: vec3<u32>) {
    group_scan(gid, lid, false);
}

@compute @workgroup_size(GROUP_SIZE)
fn next_input(@builtin(global_invocation_id) gid: vec3<u32>) {
    let level = args.level_k;
    let info = level_offsets[level];
    let idx = gid.x;
    if (idx < info.count) {
        prefix_b[info.input_offset + idx] = prefix_a[info.input_offset + idx];
    }
}

fn resolve_parent(gid: vec3<u32>, inclusive: bool) {
    let level = args.level_k;
    let info = level_offsets[level];
    let idx = gid.x;
    if (idx >= info.count) {
        return;
    }
    let group = idx / GROUP_SIZE;
    if (group == 0u) {
        return;
    }
    let parent = prefix_a[info.parent_offset + group - 1u];
    prefix_a[info.output_offset + idx] = prefix_a[info.output_offset + idx] + parent;
}

@compute @workgroup_size(GROUP_SIZE)
fn resolve_parent_inclusive(@builtin(global_invocation_id) gid: vec3<u32>) {
    resolve_parent(gid, true);
}

@compute @workgroup_size(GROUP_SIZE)
fn resolve_parent_exclusive(@builtin(global_invocation_id) gid: vec3<u32>) {
    resolve_parent(gid, false);
}
`
