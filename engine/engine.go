package engine

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/assets"
	"github.com/maiadx/openxr-app/engine/assets/loaders"
	"github.com/maiadx/openxr-app/engine/config"
	"github.com/maiadx/openxr-app/engine/core"
	"github.com/maiadx/openxr-app/engine/platform"
	"github.com/maiadx/openxr-app/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	config       config.Config
	gameInstance *Game
	isRunning    atomic.Bool
	isSuspended  bool
	platform     *platform.Platform
	catalog      *assets.ShaderCatalog
	compiler     *assets.Compiler
	context      *vulkan.Context
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
}

func New(cfg config.Config, g *Game) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.XR.Enabled && g.Runtime == nil {
		return nil, errors.New("xr is enabled but the game provides no runtime")
	}

	catalog, err := assets.NewShaderCatalog(cfg.Shaders.Directory)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		gameInstance: g,
		platform:     platform.New(),
		catalog:      catalog,
		compiler:     assets.NewCompiler(cfg.Shaders.Compiler),
		width:        cfg.Application.StartWidth,
		height:       cfg.Application.StartHeight,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}
	// Cleared by Stop, possibly before Run starts.
	e.isRunning.Store(true)
	return e, nil
}

// Initialize opens the window, builds the graphics context and the pipeline
// from the configured shader pair, then hands the context to the game.
func (e *Engine) Initialize(ctx context.Context) error {
	e.currentStage = EngineStageInitializing
	app := e.config.Application

	if err := e.catalog.Initialize(); err != nil {
		return err
	}
	if e.config.Shaders.CompileOnStart {
		if _, err := e.compiler.CompileCatalog(ctx, e.catalog, true); err != nil {
			return errors.Wrap(err, "compile shaders")
		}
	}
	vertex, fragment, err := loadShaderPair(e.catalog, e.config.Shaders)
	if err != nil {
		return err
	}

	if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
		return err
	}
	e.platform.OnResize(e.onResized)

	driver, err := vulkan.NewDriver()
	if err != nil {
		return err
	}
	if e.context, err = vulkan.NewContext(driver, e.platform, e.gameInstance.Runtime, vulkan.NewContextConfig(e.config)); err != nil {
		return err
	}
	if err := e.context.LoadPipeline(vertex, fragment); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.context); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// loadShaderPair reads the compiled vertex and fragment artifacts.
func loadShaderPair(catalog *assets.ShaderCatalog, shaders config.ShaderConfig) (*loaders.ShaderBinary, *loaders.ShaderBinary, error) {
	vertex, err := catalog.Load(shaders.Vertex)
	if err != nil {
		return nil, nil, err
	}
	if vertex.Stage != loaders.ShaderStageVertex {
		return nil, nil, errors.Errorf("%s is not a vertex shader", vertex.Path)
	}
	fragment, err := catalog.Load(shaders.Fragment)
	if err != nil {
		return nil, nil, err
	}
	if fragment.Stage != loaders.ShaderStageFragment {
		return nil, nil, errors.Errorf("%s is not a fragment shader", fragment.Path)
	}
	return vertex, fragment, nil
}

// Run drives the frame loop until the window closes or Stop is called. Any
// error from the game or the renderer ends the loop and is returned.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var runningTime float64 = 0.0
	var recreations uint64 = 0

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}

		if e.isSuspended {
			e.platform.WaitMessages(0.1)
			continue
		}

		e.clock.Update()
		var currentTime float64 = e.clock.Elapsed()
		var delta float64 = (currentTime - e.lastTime)
		var frameStartTime float64 = e.platform.Elapsed()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				return errors.Wrap(err, "game update failed")
			}
		}

		if err := e.context.DrawFrame(e.gameInstance.FnRender); err != nil {
			return errors.Wrap(err, "draw frame failed")
		}
		for ; recreations < e.context.Recreations; recreations++ {
			e.metrics.SwapchainRecreated()
		}

		var frameElapsedTime float64 = e.platform.Elapsed() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		runningTime += frameElapsedTime
		if runningTime > 5.0 {
			core.LogDebug("FPS: %5.1f (%4.1fms), swapchain recreations: %d", e.metrics.FPS(), e.metrics.FrameTime(), e.metrics.Recreations())
			runningTime = 0
		}

		e.lastTime = currentTime
	}

	return nil
}

// Stop ends the frame loop after the current frame. Safe to call from any
// goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown releases the graphics context before the window it presents to.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	var firstErr error
	keep := func(err error) {
		if err == nil {
			return
		}
		core.LogError(err.Error())
		if firstErr == nil {
			firstErr = err
		}
	}

	if e.gameInstance.FnShutdown != nil {
		keep(e.gameInstance.FnShutdown())
	}
	if e.context != nil {
		keep(e.context.Destroy())
	}
	keep(e.catalog.Close())
	keep(e.platform.Shutdown())
	return firstErr
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onResized(width, height uint32) {
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	if e.context != nil {
		e.context.Resized(width, height)
	}
}
