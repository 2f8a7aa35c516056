// Package hal provides the hardware abstraction layer the scan engine
// records its commands against.
//
// This is a scan-scoped subset of a WebGPU-style HAL: only the device,
// queue, command-encoder, and compute-pass surface a hierarchical
// prefix-sum dispatch actually touches (buffers, bind groups, pipeline
// layouts, shader modules, compute pipelines, fences). It carries no
// texture, sampler, render-pipeline, surface, or backend-registry
// machinery, since this engine never presents or renders anything.
//
// # Design Principles
//
// The HAL prioritizes portability over safety, delegating validation to
// the caller. This means:
//
//   - Most methods are unsafe in terms of GPU state validation
//   - Validation is the caller's responsibility
//   - Only unrecoverable errors are returned (out of memory, device lost)
//   - Invalid usage results in undefined behavior at the GPU level
//
// # Resource Types
//
// All GPU resources (buffers, pipelines, etc.) implement the Resource
// interface which provides a Destroy method. Resources must be explicitly
// destroyed to free GPU memory.
//
// # Error Handling
//
// The HAL uses error values for unrecoverable errors:
//
//   - ErrDeviceOutOfMemory - GPU memory exhausted
//   - ErrDeviceLost - GPU disconnected or driver reset
//   - ErrTimeout - a Wait call did not observe the fence in time
//
// Validation errors (invalid descriptors, incorrect usage) are the
// caller's responsibility and are not checked by the HAL.
//
// # Reference
//
// This design is based on wgpu-hal from the Rust WebGPU implementation.
// See: https://github.com/gfx-rs/wgpu/tree/trunk/wgpu-hal
package hal
