package testbed

import (
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine"
	"github.com/maiadx/openxr-app/engine/core"
	"github.com/maiadx/openxr-app/engine/renderer/vulkan"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	context *vulkan.Context

	width  uint32
	height uint32

	elapsed     float64
	framesDrawn uint64
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize(context *vulkan.Context) error {
	core.LogDebug("TestGame Initialize fn....")
	if context.Pipeline == nil {
		return errors.New("the graphics context has no pipeline")
	}
	state := g.State.(*gameState)
	state.context = context
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime
	return nil
}

// Render draws one triangle covering the whole target. The vertex shader
// derives the positions from the vertex index, and multiview repeats the
// draw for every view.
func (g *TestGame) Render(frame *vulkan.Frame, commandBuffer *vulkan.CommandBuffer) error {
	state := g.State.(*gameState)
	state.context.Pipeline.Bind(commandBuffer)
	commandBuffer.Draw(3, 1)
	state.framesDrawn++
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)

	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	core.LogInfo("Testbed drew %d frame(s) in %.1fs.", state.framesDrawn, state.elapsed)
	return nil
}
