package vulkan

import (
	"time"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/assets/loaders"
	"github.com/maiadx/openxr-app/engine/config"
	"github.com/maiadx/openxr-app/engine/core"
	"github.com/maiadx/openxr-app/engine/xr"
)

// SurfaceProvider is the window system side of presentation.
type SurfaceProvider interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (width, height uint32)
}

type ContextConfig struct {
	ApplicationName  string
	Validation       bool
	FramesInFlight   uint32
	ViewCount        uint32
	FenceTimeout     time.Duration
	DefaultWidth     uint32
	DefaultHeight    uint32
	DeviceExtensions []string
	ClearColor       [4]float32
}

func NewContextConfig(cfg config.Config) ContextConfig {
	return ContextConfig{
		ApplicationName:  cfg.Application.Name,
		Validation:       cfg.Renderer.Validation,
		FramesInFlight:   cfg.Renderer.FramesInFlight,
		ViewCount:        cfg.Renderer.ViewCount,
		FenceTimeout:     cfg.Renderer.FenceTimeout.Duration,
		DefaultWidth:     cfg.Renderer.DefaultWidth,
		DefaultHeight:    cfg.Renderer.DefaultHeight,
		DeviceExtensions: cfg.Renderer.DeviceExtensions,
		ClearColor:       [4]float32{0.0, 0.0, 0.2, 1.0},
	}
}

// RecordFunc records the draw commands of one frame inside the render pass.
type RecordFunc func(frame *Frame, commandBuffer *CommandBuffer) error

// Context owns the whole graphics stack, from the instance down to the
// per-frame sync objects.
type Context struct {
	ID string

	Instance    *Instance
	Surface     vk.Surface
	Adapter     *GraphicsAdapter
	Device      *LogicalDevice
	Swapchain   *Swapchain
	RenderPass  *RenderPass
	Pipeline    *Pipeline
	CommandPool *CommandPool
	Sync        *FrameSyncManager

	config     ContextConfig
	driver     Driver
	surfaces   SurfaceProvider
	runtime    xr.Runtime
	negotiator *SwapchainNegotiator
	teardown   Teardown

	// Kept to rebuild the pipeline when the swapchain format changes.
	vertex   *loaders.ShaderBinary
	fragment *loaders.ShaderBinary

	// Current generation of framebuffer size. If it does not match
	// FramebufferSizeLastGeneration, the swapchain is recreated.
	FramebufferSizeGeneration     uint64
	FramebufferSizeLastGeneration uint64

	Recreations uint64
}

// NewContext builds the graphics stack. Whatever was created before a failure
// is released in teardown order before the error is returned. rt may be nil.
func NewContext(driver Driver, surfaces SurfaceProvider, rt xr.Runtime, cfg ContextConfig) (_ *Context, err error) {
	c := &Context{
		ID:       core.NewIdentifier(),
		config:   cfg,
		driver:   driver,
		surfaces: surfaces,
		runtime:  rt,
	}
	defer func() {
		if err != nil {
			if derr := c.Destroy(); derr != nil {
				core.LogError("teardown after failed initialization: %s", derr)
			}
		}
	}()

	core.LogInfo("Creating graphics context %s...", core.ShortIdentifier(c.ID))

	if c.Instance, err = NewInstance(driver, rt, InstanceConfig{
		ApplicationName:   cfg.ApplicationName,
		Validation:        cfg.Validation,
		ViewCount:         cfg.ViewCount,
		SurfaceExtensions: surfaces.RequiredInstanceExtensions(),
	}); err != nil {
		return nil, err
	}
	instance := c.Instance
	c.teardown.Register(RankInstance, "instance", func() error {
		instance.Destroy()
		return nil
	})
	c.teardown.Register(RankDebugCallback, "debug callback", func() error {
		instance.DestroyDebugCallback()
		return nil
	})

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := surfaces.CreateSurface(instance.Handle)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create platform surface")
	}
	c.Surface = surface
	c.teardown.Register(RankSurface, "surface", func() error {
		driver.DestroySurface(instance.Handle, surface)
		c.Surface = vk.NullSurface
		return nil
	})

	// Device selection and creation
	adapters, err := EnumerateAdapters(driver, instance.Handle)
	if err != nil {
		return nil, err
	}
	selector := NewDeviceSelector(driver, cfg.DeviceExtensions, cfg.ViewCount)
	factory := NewLogicalDeviceFactory(driver, cfg.DeviceExtensions, cfg.ViewCount)
	if rt != nil {
		required, err := rt.GraphicsDevice(instance.Handle)
		if err != nil {
			return nil, errors.Wrapf(core.ErrNoSuitableAdapter, "xr runtime graphics device: %s", err)
		}
		selector.Restrict(required)
		factory.WithRuntime(rt, instance.Handle)
	}

	adapter, assignment, err := selector.Select(adapters, surface)
	if err != nil {
		return nil, err
	}
	c.Adapter = adapter

	if c.Device, err = factory.Create(adapter, assignment); err != nil {
		return nil, err
	}
	device := c.Device
	c.teardown.Register(RankDevice, "logical device", device.Destroy)

	if rt != nil {
		if err := rt.AttachSession(c.GraphicsBinding()); err != nil {
			return nil, errors.Wrap(err, "xr session attach")
		}
	}

	// Swapchain
	width, height := surfaces.FramebufferSize()
	if width == 0 || height == 0 {
		width, height = cfg.DefaultWidth, cfg.DefaultHeight
	}
	c.negotiator = NewSwapchainNegotiator(driver, cfg.ViewCount, width, height)
	if c.Swapchain, err = c.negotiator.Negotiate(device, surface, nil); err != nil {
		return nil, err
	}
	c.teardown.Register(RankSwapchain, "swapchain", func() error {
		return c.Swapchain.Destroy()
	})
	c.teardown.Register(RankFramebuffers, "framebuffers and views", func() error {
		if err := c.Swapchain.DestroyFramebuffers(); err != nil {
			return err
		}
		return c.Swapchain.DestroyViews()
	})

	if err := c.createRenderPass(); err != nil {
		return nil, err
	}
	c.teardown.Register(RankPipeline, "pipeline", func() error {
		if c.Pipeline == nil {
			return nil
		}
		return c.Pipeline.Destroy()
	})
	c.teardown.Register(RankRenderPass, "render pass", func() error {
		return c.RenderPass.Destroy()
	})

	if err := c.Swapchain.BuildFramebuffers(c.RenderPass); err != nil {
		return nil, err
	}

	// Command buffers and sync objects.
	if c.CommandPool, err = NewCommandPool(device, cfg.FramesInFlight); err != nil {
		return nil, err
	}
	pool := c.CommandPool
	c.teardown.Register(RankSync, "command pool", pool.Destroy)

	if c.Sync, err = NewFrameSyncManager(device, cfg.FramesInFlight, c.Swapchain.ImageCount()); err != nil {
		return nil, err
	}
	sync := c.Sync
	c.teardown.Register(RankSync, "frame sync objects", sync.Destroy)

	core.LogInfo("Graphics context %s created on '%s'.", core.ShortIdentifier(c.ID), adapter.Name)
	return c, nil
}

func (c *Context) createRenderPass() error {
	rp, err := NewRenderPass(c.Device, c.Swapchain.Config.Format, c.Swapchain.Config.ArrayLayers, c.config.ClearColor)
	if err != nil {
		return err
	}
	c.RenderPass = rp
	return nil
}

// LoadPipeline builds the graphics pipeline from two shader binaries,
// replacing the current one.
func (c *Context) LoadPipeline(vertex, fragment *loaders.ShaderBinary) error {
	pipeline, err := NewGraphicsPipeline(c.Device, PipelineConfig{
		RenderPass: c.RenderPass,
		Vertex:     vertex,
		Fragment:   fragment,
	})
	if err != nil {
		return err
	}

	if c.Pipeline != nil {
		if err := c.Device.WaitIdle(); err != nil {
			pipeline.Destroy()
			return err
		}
		if err := c.Pipeline.Destroy(); err != nil {
			return err
		}
	}
	c.Pipeline = pipeline
	c.vertex, c.fragment = vertex, fragment
	return nil
}

// GraphicsBinding reports the objects an XR session renders with.
func (c *Context) GraphicsBinding() xr.GraphicsBinding {
	return xr.GraphicsBinding{
		Instance:         c.Instance.Handle,
		PhysicalDevice:   c.Adapter.Handle,
		Device:           c.Device.Handle,
		QueueFamilyIndex: c.Device.GraphicsFamily(),
		QueueIndex:       0,
	}
}

// Resized records a new framebuffer size; the swapchain is rebuilt before
// the next frame.
func (c *Context) Resized(width, height uint32) {
	c.negotiator.SetRequestedExtent(width, height)
	c.FramebufferSizeGeneration++
	core.LogDebug("Framebuffer resized to %dx%d (generation %d).", width, height, c.FramebufferSizeGeneration)
}

func (c *Context) fenceTimeout() uint64 {
	return uint64(c.config.FenceTimeout.Nanoseconds())
}

// DrawFrame renders and presents one frame. An out of date surface causes
// one swapchain recreation and one retry; any other error is fatal for the
// caller.
func (c *Context) DrawFrame(record RecordFunc) error {
	if c.FramebufferSizeGeneration != c.FramebufferSizeLastGeneration {
		if err := c.RecreateSwapchain(); err != nil {
			return err
		}
	}
	if c.minimized() {
		return nil
	}

	err := c.drawOnce(record)
	if !errors.Is(err, core.ErrSurfaceOutOfDate) {
		return err
	}

	core.LogDebug("Surface out of date, recreating swapchain.")
	if err := c.RecreateSwapchain(); err != nil {
		return err
	}
	err = c.drawOnce(record)
	if errors.Is(err, core.ErrSurfaceOutOfDate) {
		// Still out of date after the retry: rebuild for the next frame
		// instead of retrying again.
		core.LogWarn("Surface still out of date after retry.")
		return c.RecreateSwapchain()
	}
	return err
}

func (c *Context) minimized() bool {
	width, height := c.surfaces.FramebufferSize()
	return width == 0 || height == 0
}

func (c *Context) drawOnce(record RecordFunc) error {
	frame, err := c.Sync.AcquireFrame(c.Swapchain, c.fenceTimeout())
	if err != nil {
		return err
	}

	commandBuffer := c.CommandPool.Buffers[frame.Slot]
	if err := commandBuffer.Begin(); err != nil {
		return err
	}

	extent := c.Swapchain.Config.Extent
	if err := c.RenderPass.Begin(commandBuffer, c.Swapchain.Framebuffers[frame.ImageIndex], extent); err != nil {
		return err
	}
	commandBuffer.SetViewportAndScissor(extent)

	if record != nil {
		if err := record(frame, commandBuffer); err != nil {
			return errors.Wrapf(err, "record frame %d", frame.Number)
		}
	}

	c.RenderPass.End(commandBuffer)
	if err := commandBuffer.End(); err != nil {
		return err
	}

	return c.Sync.SubmitAndPresent(frame, commandBuffer)
}

// RecreateSwapchain rebuilds the swapchain and everything sized by it. It is
// skipped while the framebuffer has no area.
func (c *Context) RecreateSwapchain() error {
	width, height := c.surfaces.FramebufferSize()
	if width == 0 || height == 0 {
		core.LogDebug("RecreateSwapchain called when window is < 1 in a dimension. Booting.")
		return nil
	}

	if err := c.Device.WaitIdle(); err != nil {
		return err
	}

	c.negotiator.SetRequestedExtent(width, height)
	swapchain, err := c.negotiator.Negotiate(c.Device, c.Surface, c.Swapchain)
	if err != nil {
		return err
	}
	c.Swapchain = swapchain

	if swapchain.Config.Format != c.RenderPass.Format {
		if err := c.rebuildRenderPass(); err != nil {
			return err
		}
	}

	if err := c.Swapchain.BuildFramebuffers(c.RenderPass); err != nil {
		return err
	}
	c.Sync.ResetImages(c.Swapchain.ImageCount())

	c.FramebufferSizeLastGeneration = c.FramebufferSizeGeneration
	c.Recreations++
	return nil
}

// rebuildRenderPass follows a swapchain format change.
func (c *Context) rebuildRenderPass() error {
	if c.Pipeline != nil {
		if err := c.Pipeline.Destroy(); err != nil {
			return err
		}
	}
	if err := c.RenderPass.Destroy(); err != nil {
		return err
	}
	if err := c.createRenderPass(); err != nil {
		return err
	}
	if c.Pipeline != nil {
		c.Pipeline = nil
		return c.LoadPipeline(c.vertex, c.fragment)
	}
	return nil
}

// Destroy waits for the device and releases everything in teardown order.
func (c *Context) Destroy() error {
	if c.Device != nil && !c.Device.IsDestroyed() {
		if err := c.Device.WaitIdle(); err != nil {
			core.LogWarn("wait idle before teardown: %s", err)
		}
	}
	if err := c.teardown.Run(); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Graphics context %s destroyed.", core.ShortIdentifier(c.ID))
	return nil
}
