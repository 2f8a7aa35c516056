// Package noop provides a no-operation backend for the scan-scoped HAL.
//
// It implements every hal.Device/hal.Queue/hal.CommandEncoder method used
// by the scan engine but performs no actual GPU work: buffers get real
// backing storage so WriteBuffer/ReadBuffer round-trip, but compute
// dispatches are pure no-ops. It is useful for exercising the recording
// path (pipeline/bind-group/command-buffer lifecycle) without a GPU or a
// kernel implementation. Use internal/simhal when a dispatch's numeric
// result actually needs to be observed.
package noop
