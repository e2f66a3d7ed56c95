package vulkan

import (
	vk "github.com/goki/vulkan"
)

// InstanceDriver covers the instance-level and physical-device entry points.
type InstanceDriver interface {
	CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result)
	DestroyInstance(instance vk.Instance)
	EnumerateInstanceLayers() ([]string, vk.Result)
	CreateDebugReportCallback(instance vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, vk.Result)
	DestroyDebugReportCallback(instance vk.Instance, callback vk.DebugReportCallback)
	DestroySurface(instance vk.Instance, surface vk.Surface)

	EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, vk.Result)
	GetPhysicalDeviceProperties(physicalDevice vk.PhysicalDevice) vk.PhysicalDeviceProperties
	GetPhysicalDeviceFeatures(physicalDevice vk.PhysicalDevice) vk.PhysicalDeviceFeatures
	GetPhysicalDeviceQueueFamilyProperties(physicalDevice vk.PhysicalDevice) []vk.QueueFamilyProperties
	EnumerateDeviceExtensions(physicalDevice vk.PhysicalDevice) ([]string, vk.Result)

	GetPhysicalDeviceSurfaceSupport(physicalDevice vk.PhysicalDevice, queueFamilyIndex uint32, surface vk.Surface) (bool, vk.Result)
	GetPhysicalDeviceSurfaceCapabilities(physicalDevice vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result)
	GetPhysicalDeviceSurfaceFormats(physicalDevice vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result)
	GetPhysicalDeviceSurfacePresentModes(physicalDevice vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result)

	CreateDevice(physicalDevice vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result)
}

// DeviceDriver covers everything issued against a logical device, its queues
// and its command buffers.
type DeviceDriver interface {
	DestroyDevice(device vk.Device)
	GetDeviceQueue(device vk.Device, queueFamilyIndex, queueIndex uint32) vk.Queue
	DeviceWaitIdle(device vk.Device) vk.Result

	CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result)
	DestroySwapchain(device vk.Device, swapchain vk.Swapchain)
	GetSwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, vk.Result)
	CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result)
	DestroyImageView(device vk.Device, view vk.ImageView)

	CreateShaderModule(device vk.Device, info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result)
	DestroyShaderModule(device vk.Device, module vk.ShaderModule)
	CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result)
	DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout)
	CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result)
	DestroyPipeline(device vk.Device, pipeline vk.Pipeline)
	CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result)
	DestroyRenderPass(device vk.Device, renderPass vk.RenderPass)
	CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result)
	DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer)

	CreateSemaphore(device vk.Device) (vk.Semaphore, vk.Result)
	DestroySemaphore(device vk.Device, semaphore vk.Semaphore)
	CreateFence(device vk.Device, signaled bool) (vk.Fence, vk.Result)
	DestroyFence(device vk.Device, fence vk.Fence)
	WaitForFences(device vk.Device, fences []vk.Fence, timeoutNs uint64) vk.Result
	ResetFences(device vk.Device, fences []vk.Fence) vk.Result

	AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeoutNs uint64, semaphore vk.Semaphore) (uint32, vk.Result)
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result

	CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result)
	DestroyCommandPool(device vk.Device, pool vk.CommandPool)
	AllocateCommandBuffers(device vk.Device, info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result)
	FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer)
	BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result
	EndCommandBuffer(buffer vk.CommandBuffer) vk.Result
	ResetCommandBuffer(buffer vk.CommandBuffer) vk.Result

	CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo)
	CmdEndRenderPass(buffer vk.CommandBuffer)
	CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline)
	CmdSetViewport(buffer vk.CommandBuffer, viewport vk.Viewport)
	CmdSetScissor(buffer vk.CommandBuffer, scissor vk.Rect2D)
	CmdDraw(buffer vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32)
}

// Driver is the full Vulkan surface used by the renderer.
type Driver interface {
	InstanceDriver
	DeviceDriver
}
