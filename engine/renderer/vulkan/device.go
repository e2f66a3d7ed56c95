package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
	"github.com/maiadx/openxr-app/engine/xr"
)

// LogicalDevice owns every object created from it. Components keep a
// borrowed *LogicalDevice; once Destroy has run, creating or destroying
// through it fails with core.ErrDeviceDestroyed and never reaches the driver.
type LogicalDevice struct {
	ID     string
	Handle vk.Device

	Adapter    *GraphicsAdapter
	Assignment QueueFamilyAssignment

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	EnabledExtensions []string
	Multiview         bool

	driver     DeviceDriver
	queueLocks *QueueLocks

	// Number of live objects created through this device.
	live      int
	destroyed bool
}

func (ld *LogicalDevice) Driver() DeviceDriver {
	return ld.driver
}

func (ld *LogicalDevice) QueueLocks() *QueueLocks {
	return ld.queueLocks
}

func (ld *LogicalDevice) IsDestroyed() bool {
	return ld.destroyed
}

// LiveObjects returns how many child objects have not been destroyed yet.
func (ld *LogicalDevice) LiveObjects() int {
	return ld.live
}

func (ld *LogicalDevice) GraphicsFamily() uint32 {
	return uint32(ld.Assignment.GraphicsFamilyIndex)
}

func (ld *LogicalDevice) PresentFamily() uint32 {
	return uint32(ld.Assignment.PresentFamilyIndex)
}

// alive must be checked before any call that creates or destroys a child.
func (ld *LogicalDevice) alive(op string) error {
	if ld.destroyed {
		core.LogError("%s issued after the logical device was destroyed", op)
		return errors.Wrap(core.ErrDeviceDestroyed, op)
	}
	return nil
}

func (ld *LogicalDevice) adopt(count int) {
	ld.live += count
}

func (ld *LogicalDevice) release(count int) {
	ld.live -= count
}

// WaitIdle blocks until the device has finished all submitted work.
func (ld *LogicalDevice) WaitIdle() error {
	if err := ld.alive("vkDeviceWaitIdle"); err != nil {
		return err
	}
	if res := ld.driver.DeviceWaitIdle(ld.Handle); res != vk.Success {
		return resultError(frameResultKind(res), "vkDeviceWaitIdle", res)
	}
	return nil
}

// Destroy releases the device. It is refused while children are alive and is
// a no-op the second time.
func (ld *LogicalDevice) Destroy() error {
	if ld.destroyed {
		return nil
	}
	if ld.live > 0 {
		return errors.Errorf("logical device %s still owns %d object(s)", core.ShortIdentifier(ld.ID), ld.live)
	}

	core.LogInfo("Destroying logical device...")
	ld.driver.DestroyDevice(ld.Handle)
	ld.Handle = nil
	ld.GraphicsQueue = nil
	ld.PresentQueue = nil
	ld.destroyed = true
	return nil
}

// LogicalDeviceFactory builds the logical device for a selected adapter.
type LogicalDeviceFactory struct {
	driver          Driver
	extraExtensions []string
	viewCount       uint32

	runtime  xr.Runtime
	instance vk.Instance
}

func NewLogicalDeviceFactory(driver Driver, extraExtensions []string, viewCount uint32) *LogicalDeviceFactory {
	return &LogicalDeviceFactory{
		driver:          driver,
		extraExtensions: extraExtensions,
		viewCount:       viewCount,
	}
}

// WithRuntime routes device creation through an XR runtime.
func (f *LogicalDeviceFactory) WithRuntime(runtime xr.Runtime, instance vk.Instance) *LogicalDeviceFactory {
	f.runtime = runtime
	f.instance = instance
	return f
}

// Extensions returns the device extensions enabled for adapter.
func (f *LogicalDeviceFactory) Extensions(adapter *GraphicsAdapter) []string {
	extensions := []string{swapchainExtension}
	for _, ext := range f.extraExtensions {
		if !containsString(extensions, ext) {
			extensions = append(extensions, ext)
		}
	}
	if adapter.SupportsExtension(portabilitySubsetExtension) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensions = append(extensions, portabilitySubsetExtension)
	}
	return extensions
}

// QueueCreateInfos returns one request per unique family, priority 1.0.
func QueueCreateInfos(assignment QueueFamilyAssignment) []vk.DeviceQueueCreateInfo {
	indices := assignment.UniqueIndices()
	infos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}

// Create builds the logical device and retrieves its graphics and present
// queues.
func (f *LogicalDeviceFactory) Create(adapter *GraphicsAdapter, assignment QueueFamilyAssignment) (*LogicalDevice, error) {
	if !assignment.IsComplete() {
		return nil, errors.Wrap(core.ErrDeviceCreationFailed, "incomplete queue family assignment")
	}

	core.LogInfo("Creating logical device...")

	queueCreateInfos := QueueCreateInfos(assignment)
	extensions := f.Extensions(adapter)

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	multiview := f.viewCount > 1
	if multiview {
		deviceCreateInfo.PNext = unsafe.Pointer(&vk.PhysicalDeviceMultiviewFeatures{
			SType:     vk.StructureTypePhysicalDeviceMultiviewFeatures,
			Multiview: vk.True,
		})
	}

	handle, err := f.createDevice(adapter, &deviceCreateInfo)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	device := &LogicalDevice{
		ID:                core.NewIdentifier(),
		Handle:            handle,
		Adapter:           adapter,
		Assignment:        assignment,
		EnabledExtensions: extensions,
		Multiview:         multiview,
		driver:            f.driver,
		queueLocks:        NewQueueLocks(assignment.UniqueIndices()...),
	}

	// Get queues.
	device.GraphicsQueue = f.driver.GetDeviceQueue(handle, device.GraphicsFamily(), 0)
	device.PresentQueue = f.driver.GetDeviceQueue(handle, device.PresentFamily(), 0)
	if device.GraphicsQueue == nil || device.PresentQueue == nil {
		f.driver.DestroyDevice(handle)
		return nil, errors.Wrap(core.ErrDeviceCreationFailed, "device returned a nil queue handle")
	}

	core.LogInfo("Logical device %s created with %d queue family(ies).", core.ShortIdentifier(device.ID), len(queueCreateInfos))
	return device, nil
}

func (f *LogicalDeviceFactory) createDevice(adapter *GraphicsAdapter, info *vk.DeviceCreateInfo) (vk.Device, error) {
	if f.runtime == nil {
		handle, res := f.driver.CreateDevice(adapter.Handle, info)
		if res != vk.Success {
			return nil, resultError(core.ErrDeviceCreationFailed, "vkCreateDevice", res)
		}
		return handle, nil
	}

	required, err := f.runtime.GraphicsDevice(f.instance)
	if err != nil {
		return nil, errors.Wrapf(core.ErrDeviceCreationFailed, "xr runtime graphics device: %s", err)
	}
	if adapter.Handle != required {
		return nil, errors.Wrapf(core.ErrDeviceCreationFailed, "adapter '%s' is not the xr runtime's graphics device", adapter.Name)
	}

	handle, err := f.runtime.CreateVulkanDevice(adapter.Handle, info)
	if err != nil {
		return nil, errors.Wrapf(core.ErrDeviceCreationFailed, "xr runtime device creation: %s", err)
	}
	if handle == nil {
		return nil, errors.Wrap(core.ErrDeviceCreationFailed, "xr runtime returned a nil device")
	}
	return handle, nil
}
