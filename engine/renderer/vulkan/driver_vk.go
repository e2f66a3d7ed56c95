package vulkan

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// vkDriver forwards every call to the loaded Vulkan library.
type vkDriver struct {
	allocator *vk.AllocationCallbacks
}

// NewDriver loads the Vulkan entry points through GLFW's loader.
func NewDriver() (Driver, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize vk")
	}
	return &vkDriver{}, nil
}

func (d *vkDriver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result) {
	var instance vk.Instance
	res := vk.CreateInstance(info, d.allocator, &instance)
	if res != vk.Success {
		return nil, res
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, d.allocator)
		return nil, vk.ErrorInitializationFailed
	}
	return instance, res
}

func (d *vkDriver) DestroyInstance(instance vk.Instance) {
	vk.DestroyInstance(instance, d.allocator)
}

func (d *vkDriver) EnumerateInstanceLayers() ([]string, vk.Result) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, res
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return nil, res
	}
	names := make([]string, 0, count)
	for i := range layers {
		layers[i].Deref()
		names = append(names, vk.ToString(layers[i].LayerName[:]))
	}
	return names, vk.Success
}

func (d *vkDriver) CreateDebugReportCallback(instance vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, vk.Result) {
	var callback vk.DebugReportCallback
	res := vk.CreateDebugReportCallback(instance, info, d.allocator, &callback)
	return callback, res
}

func (d *vkDriver) DestroyDebugReportCallback(instance vk.Instance, callback vk.DebugReportCallback) {
	vk.DestroyDebugReportCallback(instance, callback, d.allocator)
}

func (d *vkDriver) DestroySurface(instance vk.Instance, surface vk.Surface) {
	vk.DestroySurface(instance, surface, d.allocator)
}

func (d *vkDriver) EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, vk.Result) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(instance, &count, nil); res != vk.Success {
		return nil, res
	}
	devices := make([]vk.PhysicalDevice, count)
	res := vk.EnumeratePhysicalDevices(instance, &count, devices)
	return devices[:count], res
}

func (d *vkDriver) GetPhysicalDeviceProperties(physicalDevice vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &props)
	props.Deref()
	props.Limits.Deref()
	return props
}

func (d *vkDriver) GetPhysicalDeviceFeatures(physicalDevice vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
	features.Deref()
	return features
}

func (d *vkDriver) GetPhysicalDeviceQueueFamilyProperties(physicalDevice vk.PhysicalDevice) []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &count, families)
	for i := range families {
		families[i].Deref()
	}
	return families
}

func (d *vkDriver) EnumerateDeviceExtensions(physicalDevice vk.PhysicalDevice) ([]string, vk.Result) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, nil); res != vk.Success {
		return nil, res
	}
	extensions := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, extensions); res != vk.Success {
		return nil, res
	}
	names := make([]string, 0, count)
	for i := range extensions {
		extensions[i].Deref()
		names = append(names, vk.ToString(extensions[i].ExtensionName[:]))
	}
	return names, vk.Success
}

func (d *vkDriver) GetPhysicalDeviceSurfaceSupport(physicalDevice vk.PhysicalDevice, queueFamilyIndex uint32, surface vk.Surface) (bool, vk.Result) {
	var supported vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, queueFamilyIndex, surface, &supported)
	return supported == vk.True, res
}

func (d *vkDriver) GetPhysicalDeviceSurfaceCapabilities(physicalDevice vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	var caps vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, res
}

func (d *vkDriver) GetPhysicalDeviceSurfaceFormats(physicalDevice vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &count, nil); res != vk.Success {
		return nil, res
	}
	formats := make([]vk.SurfaceFormat, count)
	res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &count, formats)
	for i := range formats {
		formats[i].Deref()
	}
	return formats, res
}

func (d *vkDriver) GetPhysicalDeviceSurfacePresentModes(physicalDevice vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &count, nil); res != vk.Success {
		return nil, res
	}
	modes := make([]vk.PresentMode, count)
	res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &count, modes)
	return modes, res
}

func (d *vkDriver) CreateDevice(physicalDevice vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result) {
	var device vk.Device
	res := vk.CreateDevice(physicalDevice, info, d.allocator, &device)
	return device, res
}

func (d *vkDriver) DestroyDevice(device vk.Device) {
	vk.DestroyDevice(device, d.allocator)
}

func (d *vkDriver) GetDeviceQueue(device vk.Device, queueFamilyIndex, queueIndex uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(device, queueFamilyIndex, queueIndex, &queue)
	return queue
}

func (d *vkDriver) DeviceWaitIdle(device vk.Device) vk.Result {
	return vk.DeviceWaitIdle(device)
}

func (d *vkDriver) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	var swapchain vk.Swapchain
	res := vk.CreateSwapchain(device, info, d.allocator, &swapchain)
	return swapchain, res
}

func (d *vkDriver) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	vk.DestroySwapchain(device, swapchain, d.allocator)
}

func (d *vkDriver) GetSwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	var count uint32
	if res := vk.GetSwapchainImages(device, swapchain, &count, nil); res != vk.Success {
		return nil, res
	}
	images := make([]vk.Image, count)
	res := vk.GetSwapchainImages(device, swapchain, &count, images)
	return images[:count], res
}

func (d *vkDriver) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	var view vk.ImageView
	res := vk.CreateImageView(device, info, d.allocator, &view)
	return view, res
}

func (d *vkDriver) DestroyImageView(device vk.Device, view vk.ImageView) {
	vk.DestroyImageView(device, view, d.allocator)
}

func (d *vkDriver) CreateShaderModule(device vk.Device, info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result) {
	var module vk.ShaderModule
	res := vk.CreateShaderModule(device, info, d.allocator, &module)
	return module, res
}

func (d *vkDriver) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	vk.DestroyShaderModule(device, module, d.allocator)
}

func (d *vkDriver) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(device, info, d.allocator, &layout)
	return layout, res
}

func (d *vkDriver) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(device, layout, d.allocator)
}

func (d *vkDriver) CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{*info}, d.allocator, pipelines)
	return pipelines[0], res
}

func (d *vkDriver) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	vk.DestroyPipeline(device, pipeline, d.allocator)
}

func (d *vkDriver) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(device, info, d.allocator, &renderPass)
	return renderPass, res
}

func (d *vkDriver) DestroyRenderPass(device vk.Device, renderPass vk.RenderPass) {
	vk.DestroyRenderPass(device, renderPass, d.allocator)
}

func (d *vkDriver) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	var framebuffer vk.Framebuffer
	res := vk.CreateFramebuffer(device, info, d.allocator, &framebuffer)
	return framebuffer, res
}

func (d *vkDriver) DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(device, framebuffer, d.allocator)
}

func (d *vkDriver) CreateSemaphore(device vk.Device) (vk.Semaphore, vk.Result) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	res := vk.CreateSemaphore(device, &info, d.allocator, &semaphore)
	return semaphore, res
}

func (d *vkDriver) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	vk.DestroySemaphore(device, semaphore, d.allocator)
}

func (d *vkDriver) CreateFence(device vk.Device, signaled bool) (vk.Fence, vk.Result) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	res := vk.CreateFence(device, &info, d.allocator, &fence)
	return fence, res
}

func (d *vkDriver) DestroyFence(device vk.Device, fence vk.Fence) {
	vk.DestroyFence(device, fence, d.allocator)
}

func (d *vkDriver) WaitForFences(device vk.Device, fences []vk.Fence, timeoutNs uint64) vk.Result {
	return vk.WaitForFences(device, uint32(len(fences)), fences, vk.True, timeoutNs)
}

func (d *vkDriver) ResetFences(device vk.Device, fences []vk.Fence) vk.Result {
	return vk.ResetFences(device, uint32(len(fences)), fences)
}

func (d *vkDriver) AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeoutNs uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	res := vk.AcquireNextImage(device, swapchain, timeoutNs, semaphore, vk.NullFence, &index)
	return index, res
}

func (d *vkDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (d *vkDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (d *vkDriver) CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	var pool vk.CommandPool
	res := vk.CreateCommandPool(device, info, d.allocator, &pool)
	return pool, res
}

func (d *vkDriver) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	vk.DestroyCommandPool(device, pool, d.allocator)
}

func (d *vkDriver) AllocateCommandBuffers(device vk.Device, info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	res := vk.AllocateCommandBuffers(device, info, buffers)
	return buffers, res
}

func (d *vkDriver) FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer) {
	vk.FreeCommandBuffers(device, pool, uint32(len(buffers)), buffers)
}

func (d *vkDriver) BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	return vk.BeginCommandBuffer(buffer, info)
}

func (d *vkDriver) EndCommandBuffer(buffer vk.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(buffer)
}

func (d *vkDriver) ResetCommandBuffer(buffer vk.CommandBuffer) vk.Result {
	return vk.ResetCommandBuffer(buffer, 0)
}

func (d *vkDriver) CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(buffer, info, vk.SubpassContentsInline)
}

func (d *vkDriver) CmdEndRenderPass(buffer vk.CommandBuffer) {
	vk.CmdEndRenderPass(buffer)
}

func (d *vkDriver) CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(buffer, vk.PipelineBindPointGraphics, pipeline)
}

func (d *vkDriver) CmdSetViewport(buffer vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(buffer, 0, 1, []vk.Viewport{viewport})
}

func (d *vkDriver) CmdSetScissor(buffer vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(buffer, 0, 1, []vk.Rect2D{scissor})
}

func (d *vkDriver) CmdDraw(buffer vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(buffer, vertexCount, instanceCount, firstVertex, firstInstance)
}
