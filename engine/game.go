package engine

import (
	"github.com/maiadx/openxr-app/engine/renderer/vulkan"
	"github.com/maiadx/openxr-app/engine/xr"
)

// Game is the application side of the engine: it records the draw commands
// of every frame into the multiview render pass.
type Game struct {
	State interface{}
	// Runtime, when set, routes instance and device creation through the XR
	// runtime and receives the session binding.
	Runtime xr.Runtime

	FnInitialize Initialize
	FnUpdate     Update
	FnRender     vulkan.RecordFunc
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func(context *vulkan.Context) error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
