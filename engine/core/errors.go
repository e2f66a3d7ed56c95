package core

import (
	"github.com/pkg/errors"
)

// Creation-time failures. None of these are retried.
var (
	ErrNoSuitableAdapter       = errors.New("no suitable graphics adapter")
	ErrDeviceCreationFailed    = errors.New("logical device creation failed")
	ErrSurfaceQueryFailed      = errors.New("surface query failed")
	ErrSwapchainCreationFailed = errors.New("swapchain creation failed")
	ErrIO                      = errors.New("shader file access failed")
	ErrMalformedBytecode       = errors.New("malformed shader bytecode")
	ErrModuleCreationFailed    = errors.New("shader module creation failed")
	ErrPipelineCreationFailed  = errors.New("pipeline creation failed")
)

// Per-frame failures. ErrSurfaceOutOfDate is the only recoverable one: it
// asks the caller to recreate the swapchain and retry the frame.
var (
	ErrSyncWaitTimeout  = errors.New("fence wait timed out")
	ErrSurfaceOutOfDate = errors.New("surface out of date")
	ErrDeviceLost       = errors.New("device lost")
)

var (
	ErrDeviceDestroyed = errors.New("logical device already destroyed")
	ErrUnknown         = errors.New("unknown")
)
