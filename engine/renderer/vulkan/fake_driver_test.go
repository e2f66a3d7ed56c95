package vulkan

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/rand"
)

// Fake handles point into a static array: the handle types are not traced by
// the collector, and reflect rejects them when they point into the heap.
var (
	handleArena [1 << 18]uint64
	handleMu    sync.Mutex
	handleNext  int
)

// newHandle mints a unique, non-nil handle of any Vulkan handle type. Handles
// must be compared with ==, never with assert.Equal.
func newHandle[T any]() T {
	handleMu.Lock()
	defer handleMu.Unlock()
	if handleNext == len(handleArena) {
		panic("fake handle arena exhausted")
	}
	p := unsafe.Pointer(&handleArena[handleNext])
	handleNext++
	return *(*T)(unsafe.Pointer(&p))
}

type fakeAdapter struct {
	handle     vk.PhysicalDevice
	name       string
	deviceType vk.PhysicalDeviceType
	apiVersion uint32
	maxDim     uint32
	families   []vk.QueueFamilyProperties
	// Surface support per family index.
	present    []bool
	extensions []string

	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

func graphicsFamily() vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit), QueueCount: 1}
}

func transferFamily() vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(vk.QueueTransferBit), QueueCount: 1}
}

func defaultCapabilities() vk.SurfaceCapabilities {
	return vk.SurfaceCapabilities{
		MinImageCount:       2,
		MaxImageCount:       3,
		CurrentExtent:       vk.Extent2D{Width: 1280, Height: 720},
		MinImageExtent:      vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent:      vk.Extent2D{Width: 4096, Height: 4096},
		MaxImageArrayLayers: 2,
		CurrentTransform:    vk.SurfaceTransformIdentityBit,
	}
}

// newFakeAdapter describes a suitable discrete GPU with one family that does
// both graphics and present.
func newFakeAdapter(name string) *fakeAdapter {
	return &fakeAdapter{
		handle:       newHandle[vk.PhysicalDevice](),
		name:         name,
		deviceType:   vk.PhysicalDeviceTypeDiscreteGpu,
		apiVersion:   vk.MakeVersion(1, 2, 0),
		maxDim:       16384,
		families:     []vk.QueueFamilyProperties{graphicsFamily()},
		present:      []bool{true},
		extensions:   []string{swapchainExtension},
		capabilities: defaultCapabilities(),
		formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		presentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
	}
}

type fakeSubmission struct {
	id    int
	image uint32
	done  bool
}

type fakeFence struct {
	signaled bool
	pending  *fakeSubmission
}

// fakeDriver simulates enough of a Vulkan implementation to drive the
// renderer. GPU work completes out of band: pending submissions finish in
// order, a random number at a time, whenever an image is acquired, and all at
// once on a fence wait or a device wait.
type fakeDriver struct {
	mu sync.Mutex

	calls []string

	layers   []string
	adapters []*fakeAdapter
	// Results returned by the named entry point until cleared.
	failures map[string]vk.Result
	nilQueue bool

	swapchainImages int
	// Consumed in order by AcquireNextImage; afterwards images are handed
	// out by acquireOrder, or round robin.
	acquireResults []vk.Result
	presentResults []vk.Result
	acquireOrder   func(imageCount int) uint32
	rng            *rand.Rand
	// No progress is made unless a fence or the device is waited on.
	gpuStalled bool

	device          vk.Device
	deviceDestroyed bool
	afterDestroy    []string

	live        map[string]int
	fences      map[vk.Fence]*fakeFence
	semImage    map[vk.Semaphore]uint32
	imageWriter map[uint32]*fakeSubmission
	pending     []*fakeSubmission
	submissions int
	violations  []string
	nextImage   uint32

	lastSwapchainInfo *vk.SwapchainCreateInfo
	lastDeviceInfo    *vk.DeviceCreateInfo
	lastInstanceInfo  *vk.InstanceCreateInfo
	lastPipelineInfo  *vk.GraphicsPipelineCreateInfo
	lastRenderPass    *vk.RenderPassCreateInfo
	lastViewInfo      *vk.ImageViewCreateInfo
	presentedImages   []uint32
}

func newFakeDriver(adapters ...*fakeAdapter) *fakeDriver {
	return &fakeDriver{
		layers:          []string{validationLayer},
		adapters:        adapters,
		failures:        map[string]vk.Result{},
		swapchainImages: 3,
		rng:             rand.New(rand.NewSource(1)),
		live:            map[string]int{},
		fences:          map[vk.Fence]*fakeFence{},
		semImage:        map[vk.Semaphore]uint32{},
		imageWriter:     map[uint32]*fakeSubmission{},
	}
}

func (d *fakeDriver) fail(op string, res vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = res
}

func (d *fakeDriver) clearFailure(op string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.failures, op)
}

func (d *fakeDriver) record(op string) vk.Result {
	d.calls = append(d.calls, op)
	if res, ok := d.failures[op]; ok {
		return res
	}
	return vk.Success
}

// deviceCall records a call against the logical device.
func (d *fakeDriver) deviceCall(op string) vk.Result {
	if d.deviceDestroyed {
		d.afterDestroy = append(d.afterDestroy, op)
	}
	return d.record(op)
}

func (d *fakeDriver) create(kind string) {
	d.live[kind]++
}

func (d *fakeDriver) destroy(kind string) {
	d.live[kind]--
	if d.live[kind] < 0 {
		d.violations = append(d.violations, "double destroy of "+kind)
	}
}

// Calls returns the recorded calls whose name starts with prefix.
func (d *fakeDriver) Calls(prefix string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, c := range d.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (d *fakeDriver) Count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (d *fakeDriver) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live[kind]
}

func (d *fakeDriver) LiveTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.live {
		n += c
	}
	return n
}

func (d *fakeDriver) adapter(pd vk.PhysicalDevice) *fakeAdapter {
	for _, a := range d.adapters {
		if a.handle == pd {
			return a
		}
	}
	panic(fmt.Sprintf("unknown physical device %v", pd))
}

// complete finishes the oldest n pending submissions.
func (d *fakeDriver) complete(n int) {
	for i := 0; i < n && len(d.pending) > 0; i++ {
		sub := d.pending[0]
		d.pending = d.pending[1:]
		sub.done = true
	}
	for _, f := range d.fences {
		if f.pending != nil && f.pending.done {
			f.pending = nil
			f.signaled = true
		}
	}
}

// Instance level.

func (d *fakeDriver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastInstanceInfo = info
	if res := d.record("CreateInstance"); res != vk.Success {
		return nil, res
	}
	d.create("instance")
	return newHandle[vk.Instance](), vk.Success
}

func (d *fakeDriver) DestroyInstance(instance vk.Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyInstance")
	d.destroy("instance")
}

func (d *fakeDriver) EnumerateInstanceLayers() ([]string, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.record("EnumerateInstanceLayers"); res != vk.Success {
		return nil, res
	}
	return d.layers, vk.Success
}

func (d *fakeDriver) CreateDebugReportCallback(instance vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.record("CreateDebugReportCallback"); res != vk.Success {
		return nil, res
	}
	d.create("debug callback")
	return newHandle[vk.DebugReportCallback](), vk.Success
}

func (d *fakeDriver) DestroyDebugReportCallback(instance vk.Instance, callback vk.DebugReportCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyDebugReportCallback")
	d.destroy("debug callback")
}

func (d *fakeDriver) DestroySurface(instance vk.Instance, surface vk.Surface) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroySurface")
	d.destroy("surface")
}

func (d *fakeDriver) EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.record("EnumeratePhysicalDevices"); res != vk.Success {
		return nil, res
	}
	devices := make([]vk.PhysicalDevice, len(d.adapters))
	for i, a := range d.adapters {
		devices[i] = a.handle
	}
	return devices, vk.Success
}

func (d *fakeDriver) GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.adapter(pd)
	var props vk.PhysicalDeviceProperties
	copy(props.DeviceName[:], a.name)
	props.DeviceType = a.deviceType
	props.ApiVersion = a.apiVersion
	props.Limits.MaxImageDimension2D = a.maxDim
	return props
}

func (d *fakeDriver) GetPhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	return vk.PhysicalDeviceFeatures{}
}

func (d *fakeDriver) GetPhysicalDeviceQueueFamilyProperties(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter(pd).families
}

func (d *fakeDriver) EnumerateDeviceExtensions(pd vk.PhysicalDevice) ([]string, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.record("EnumerateDeviceExtensions"); res != vk.Success {
		return nil, res
	}
	return d.adapter(pd).extensions, vk.Success
}

func (d *fakeDriver) GetPhysicalDeviceSurfaceSupport(pd vk.PhysicalDevice, queueFamilyIndex uint32, surface vk.Surface) (bool, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.record("GetPhysicalDeviceSurfaceSupport"); res != vk.Success {
		return false, res
	}
	a := d.adapter(pd)
	return int(queueFamilyIndex) < len(a.present) && a.present[queueFamilyIndex], vk.Success
}

func (d *fakeDriver) GetPhysicalDeviceSurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.record("GetPhysicalDeviceSurfaceCapabilities"); res != vk.Success {
		return vk.SurfaceCapabilities{}, res
	}
	return d.adapter(pd).capabilities, vk.Success
}

func (d *fakeDriver) GetPhysicalDeviceSurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.record("GetPhysicalDeviceSurfaceFormats"); res != vk.Success {
		return nil, res
	}
	return d.adapter(pd).formats, vk.Success
}

func (d *fakeDriver) GetPhysicalDeviceSurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.record("GetPhysicalDeviceSurfacePresentModes"); res != vk.Success {
		return nil, res
	}
	return d.adapter(pd).presentModes, vk.Success
}

func (d *fakeDriver) CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastDeviceInfo = info
	if res := d.record("CreateDevice"); res != vk.Success {
		return nil, res
	}
	d.create("device")
	d.device = newHandle[vk.Device]()
	d.deviceDestroyed = false
	return d.device, vk.Success
}

// Device level.

func (d *fakeDriver) DestroyDevice(device vk.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroyDevice")
	d.destroy("device")
	d.deviceDestroyed = true
}

func (d *fakeDriver) GetDeviceQueue(device vk.Device, queueFamilyIndex, queueIndex uint32) vk.Queue {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("GetDeviceQueue")
	if d.nilQueue {
		return nil
	}
	return newHandle[vk.Queue]()
}

func (d *fakeDriver) DeviceWaitIdle(device vk.Device) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("DeviceWaitIdle"); res != vk.Success {
		return res
	}
	d.complete(len(d.pending))
	return vk.Success
}

func (d *fakeDriver) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSwapchainInfo = info
	if res := d.deviceCall("CreateSwapchain"); res != vk.Success {
		return vk.NullSwapchain, res
	}
	d.create("swapchain")
	return newHandle[vk.Swapchain](), vk.Success
}

func (d *fakeDriver) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroySwapchain")
	d.destroy("swapchain")
}

func (d *fakeDriver) GetSwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("GetSwapchainImages"); res != vk.Success {
		return nil, res
	}
	images := make([]vk.Image, d.swapchainImages)
	for i := range images {
		images[i] = newHandle[vk.Image]()
	}
	return images, vk.Success
}

func (d *fakeDriver) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastViewInfo = info
	if res := d.deviceCall("CreateImageView"); res != vk.Success {
		return nil, res
	}
	d.create("image view")
	return newHandle[vk.ImageView](), vk.Success
}

func (d *fakeDriver) DestroyImageView(device vk.Device, view vk.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroyImageView")
	d.destroy("image view")
}

func (d *fakeDriver) CreateShaderModule(device vk.Device, info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("CreateShaderModule"); res != vk.Success {
		return nil, res
	}
	d.create("shader module")
	return newHandle[vk.ShaderModule](), vk.Success
}

func (d *fakeDriver) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroyShaderModule")
	d.destroy("shader module")
}

func (d *fakeDriver) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("CreatePipelineLayout"); res != vk.Success {
		return nil, res
	}
	d.create("pipeline layout")
	return newHandle[vk.PipelineLayout](), vk.Success
}

func (d *fakeDriver) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroyPipelineLayout")
	d.destroy("pipeline layout")
}

func (d *fakeDriver) CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastPipelineInfo = info
	if res := d.deviceCall("CreateGraphicsPipeline"); res != vk.Success {
		return vk.NullPipeline, res
	}
	d.create("pipeline")
	return newHandle[vk.Pipeline](), vk.Success
}

func (d *fakeDriver) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroyPipeline")
	d.destroy("pipeline")
}

func (d *fakeDriver) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastRenderPass = info
	if res := d.deviceCall("CreateRenderPass"); res != vk.Success {
		return nil, res
	}
	d.create("render pass")
	return newHandle[vk.RenderPass](), vk.Success
}

func (d *fakeDriver) DestroyRenderPass(device vk.Device, renderPass vk.RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroyRenderPass")
	d.destroy("render pass")
}

func (d *fakeDriver) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("CreateFramebuffer"); res != vk.Success {
		return nil, res
	}
	d.create("framebuffer")
	return newHandle[vk.Framebuffer](), vk.Success
}

func (d *fakeDriver) DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroyFramebuffer")
	d.destroy("framebuffer")
}

func (d *fakeDriver) CreateSemaphore(device vk.Device) (vk.Semaphore, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("CreateSemaphore"); res != vk.Success {
		return nil, res
	}
	d.create("semaphore")
	return newHandle[vk.Semaphore](), vk.Success
}

func (d *fakeDriver) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroySemaphore")
	d.destroy("semaphore")
}

func (d *fakeDriver) CreateFence(device vk.Device, signaled bool) (vk.Fence, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("CreateFence"); res != vk.Success {
		return vk.NullFence, res
	}
	d.create("fence")
	fence := newHandle[vk.Fence]()
	d.fences[fence] = &fakeFence{signaled: signaled}
	return fence, vk.Success
}

func (d *fakeDriver) DestroyFence(device vk.Device, fence vk.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroyFence")
	d.destroy("fence")
	if f := d.fences[fence]; f != nil && f.pending != nil {
		d.violations = append(d.violations, "fence destroyed with pending work")
	}
	delete(d.fences, fence)
}

// WaitForFences completes the work behind each fence. A fence with no work
// behind it would block forever and times out instead.
func (d *fakeDriver) WaitForFences(device vk.Device, fences []vk.Fence, timeoutNs uint64) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("WaitForFences"); res != vk.Success {
		return res
	}
	for _, handle := range fences {
		f := d.fences[handle]
		if f == nil {
			d.violations = append(d.violations, "wait on unknown fence")
			return vk.ErrorUnknown
		}
		if f.signaled {
			continue
		}
		if f.pending == nil {
			return vk.Timeout
		}
		sub := f.pending
		for !sub.done {
			d.complete(1)
		}
	}
	return vk.Success
}

func (d *fakeDriver) ResetFences(device vk.Device, fences []vk.Fence) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("ResetFences"); res != vk.Success {
		return res
	}
	for _, handle := range fences {
		f := d.fences[handle]
		if f.pending != nil {
			d.violations = append(d.violations, "fence reset with pending work")
		}
		f.signaled = false
	}
	return vk.Success
}

func (d *fakeDriver) AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeoutNs uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("AcquireNextImage"); res != vk.Success {
		return 0, res
	}

	// Let the GPU make some progress.
	if !d.gpuStalled {
		d.complete(d.rng.Intn(len(d.pending) + 1))
	}

	res := vk.Success
	if len(d.acquireResults) > 0 {
		res = d.acquireResults[0]
		d.acquireResults = d.acquireResults[1:]
		if res != vk.Success && res != vk.Suboptimal {
			return 0, res
		}
	}

	var image uint32
	if d.acquireOrder != nil {
		image = d.acquireOrder(d.swapchainImages)
	} else {
		image = d.nextImage
		d.nextImage = (d.nextImage + 1) % uint32(d.swapchainImages)
	}
	d.semImage[semaphore] = image
	return image, res
}

// QueueSubmit flags a submission that writes an image still being written by
// an earlier, incomplete submission.
func (d *fakeDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("QueueSubmit"); res != vk.Success {
		return res
	}

	f := d.fences[fence]
	if f == nil {
		d.violations = append(d.violations, "submit with unknown fence")
		return vk.ErrorUnknown
	}
	if f.signaled || f.pending != nil {
		d.violations = append(d.violations, "submit with a fence that is not reset")
	}

	for _, submit := range submits {
		image, ok := d.semImage[submit.PWaitSemaphores[0]]
		if !ok {
			d.violations = append(d.violations, "submit waits on a semaphore no acquire signaled")
			continue
		}
		delete(d.semImage, submit.PWaitSemaphores[0])

		if prev := d.imageWriter[image]; prev != nil && !prev.done {
			d.violations = append(d.violations, fmt.Sprintf("image %d written by submissions %d and %d at once", image, prev.id, d.submissions))
		}
		sub := &fakeSubmission{id: d.submissions, image: image}
		d.submissions++
		d.imageWriter[image] = sub
		d.pending = append(d.pending, sub)
		f.pending = sub
	}
	return vk.Success
}

func (d *fakeDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("QueuePresent"); res != vk.Success {
		return res
	}
	d.presentedImages = append(d.presentedImages, info.PImageIndices[0])
	if len(d.presentResults) > 0 {
		res := d.presentResults[0]
		d.presentResults = d.presentResults[1:]
		return res
	}
	return vk.Success
}

func (d *fakeDriver) CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("CreateCommandPool"); res != vk.Success {
		return nil, res
	}
	d.create("command pool")
	return newHandle[vk.CommandPool](), vk.Success
}

func (d *fakeDriver) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("DestroyCommandPool")
	d.destroy("command pool")
}

func (d *fakeDriver) AllocateCommandBuffers(device vk.Device, info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.deviceCall("AllocateCommandBuffers"); res != vk.Success {
		return nil, res
	}
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range buffers {
		buffers[i] = newHandle[vk.CommandBuffer]()
	}
	return buffers, vk.Success
}

func (d *fakeDriver) FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("FreeCommandBuffers")
}

func (d *fakeDriver) BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deviceCall("BeginCommandBuffer")
}

func (d *fakeDriver) EndCommandBuffer(buffer vk.CommandBuffer) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deviceCall("EndCommandBuffer")
}

func (d *fakeDriver) ResetCommandBuffer(buffer vk.CommandBuffer) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deviceCall("ResetCommandBuffer")
}

func (d *fakeDriver) CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("CmdBeginRenderPass")
}

func (d *fakeDriver) CmdEndRenderPass(buffer vk.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("CmdEndRenderPass")
}

func (d *fakeDriver) CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("CmdBindPipeline")
}

func (d *fakeDriver) CmdSetViewport(buffer vk.CommandBuffer, viewport vk.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("CmdSetViewport")
}

func (d *fakeDriver) CmdSetScissor(buffer vk.CommandBuffer, scissor vk.Rect2D) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("CmdSetScissor")
}

func (d *fakeDriver) CmdDraw(buffer vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceCall("CmdDraw")
}

// fakeSurfaces stands in for the window.
type fakeSurfaces struct {
	driver        *fakeDriver
	width, height uint32
	err           error
}

func (s *fakeSurfaces) RequiredInstanceExtensions() []string {
	return []string{"VK_KHR_xcb_surface"}
}

func (s *fakeSurfaces) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	if s.err != nil {
		return vk.NullSurface, s.err
	}
	s.driver.mu.Lock()
	s.driver.record("CreateSurface")
	s.driver.create("surface")
	s.driver.mu.Unlock()
	return newHandle[vk.Surface](), nil
}

func (s *fakeSurfaces) FramebufferSize() (uint32, uint32) {
	return s.width, s.height
}
