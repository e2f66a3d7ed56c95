package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

// DiscreteGPUBonus is larger than any maxImageDimension2D a driver reports,
// so a discrete GPU always outranks an integrated one.
const DiscreteGPUBonus = 1 << 20

// QueueFamilyAssignment holds the graphics and present family indices; -1
// marks a family that was not found.
type QueueFamilyAssignment struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

func NewQueueFamilyAssignment() QueueFamilyAssignment {
	return QueueFamilyAssignment{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
}

func (qfa QueueFamilyAssignment) IsComplete() bool {
	return qfa.GraphicsFamilyIndex >= 0 && qfa.PresentFamilyIndex >= 0
}

func (qfa QueueFamilyAssignment) SharesFamily() bool {
	return qfa.GraphicsFamilyIndex == qfa.PresentFamilyIndex
}

// UniqueIndices returns the distinct family indices, graphics first.
func (qfa QueueFamilyAssignment) UniqueIndices() []uint32 {
	indices := []uint32{uint32(qfa.GraphicsFamilyIndex)}
	if !qfa.SharesFamily() {
		indices = append(indices, uint32(qfa.PresentFamilyIndex))
	}
	return indices
}

// DeviceSelector picks the physical device to render with.
type DeviceSelector struct {
	driver             InstanceDriver
	requiredExtensions []string
	viewCount          uint32
	// When set, only this physical device is acceptable.
	required vk.PhysicalDevice
}

func NewDeviceSelector(driver InstanceDriver, extraExtensions []string, viewCount uint32) *DeviceSelector {
	required := []string{swapchainExtension}
	for _, ext := range extraExtensions {
		if !containsString(required, ext) {
			required = append(required, ext)
		}
	}
	return &DeviceSelector{
		driver:             driver,
		requiredExtensions: required,
		viewCount:          viewCount,
	}
}

// Restrict limits selection to one physical device, as dictated by an XR
// runtime.
func (ds *DeviceSelector) Restrict(physicalDevice vk.PhysicalDevice) {
	ds.required = physicalDevice
}

func (ds *DeviceSelector) RequiredExtensions() []string {
	return ds.requiredExtensions
}

// Score ranks suitable adapters; the highest wins.
func Score(adapter *GraphicsAdapter) uint64 {
	score := uint64(adapter.MaxImageDimension2D)
	if adapter.IsDiscrete() {
		score += DiscreteGPUBonus
	}
	return score
}

// Select returns the best suitable adapter and its queue family assignment.
// Equal scores keep the adapter enumerated first.
func (ds *DeviceSelector) Select(adapters []*GraphicsAdapter, surface vk.Surface) (*GraphicsAdapter, QueueFamilyAssignment, error) {
	var (
		best           *GraphicsAdapter
		bestScore      uint64
		bestAssignment = NewQueueFamilyAssignment()
	)

	for _, adapter := range adapters {
		assignment, ok := ds.evaluate(adapter, surface)
		if !ok {
			continue
		}
		score := Score(adapter)
		core.LogDebug("Device '%s' (%s) is suitable, score %d.", adapter.Name, adapter.TypeName(), score)
		if best == nil || score > bestScore {
			best, bestScore, bestAssignment = adapter, score, assignment
		}
	}

	if best == nil {
		core.LogError("No physical devices were found which meet the requirements.")
		return nil, bestAssignment, errors.Wrapf(core.ErrNoSuitableAdapter, "%d adapter(s) examined", len(adapters))
	}

	core.LogInfo("Selected device: '%s'.", best.Name)
	core.LogInfo("GPU type is %s.", best.TypeName())
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version.Major(vk.Version(best.APIVersion)),
		vk.Version.Minor(vk.Version(best.APIVersion)),
		vk.Version.Patch(vk.Version(best.APIVersion)),
	)
	core.LogDebug("Graphics Family Index: %d", bestAssignment.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", bestAssignment.PresentFamilyIndex)
	return best, bestAssignment, nil
}

func (ds *DeviceSelector) evaluate(adapter *GraphicsAdapter, surface vk.Surface) (QueueFamilyAssignment, bool) {
	if ds.required != nil && adapter.Handle != ds.required {
		core.LogInfo("Device '%s' is not the runtime's graphics device, skipping.", adapter.Name)
		return QueueFamilyAssignment{}, false
	}

	if ds.viewCount > 1 && !adapter.SupportsAPI(1, 1) {
		core.LogInfo("Device '%s' does not support Vulkan 1.1 multiview, skipping.", adapter.Name)
		return QueueFamilyAssignment{}, false
	}

	assignment, err := ds.FindQueueFamilies(adapter, surface)
	if err != nil {
		core.LogWarn("Device '%s': %s", adapter.Name, err)
		return QueueFamilyAssignment{}, false
	}
	if !assignment.IsComplete() {
		core.LogInfo("Device '%s' lacks a graphics or present queue family, skipping.", adapter.Name)
		return QueueFamilyAssignment{}, false
	}

	for _, ext := range ds.requiredExtensions {
		if !adapter.SupportsExtension(ext) {
			core.LogInfo("Required extension not found: '%s', skipping device.", ext)
			return QueueFamilyAssignment{}, false
		}
	}

	support, err := QuerySwapchainSupport(ds.driver, adapter.Handle, surface)
	if err != nil {
		core.LogWarn("Device '%s': %s", adapter.Name, err)
		return QueueFamilyAssignment{}, false
	}
	if len(support.Formats) < 1 || len(support.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return QueueFamilyAssignment{}, false
	}

	return assignment, true
}

// FindQueueFamilies scans families in index order and keeps the first
// graphics family and the first family able to present to surface.
func (ds *DeviceSelector) FindQueueFamilies(adapter *GraphicsAdapter, surface vk.Surface) (QueueFamilyAssignment, error) {
	assignment := NewQueueFamilyAssignment()

	for i, family := range adapter.QueueFamilies {
		if assignment.GraphicsFamilyIndex < 0 && family.QueueCount > 0 &&
			vk.QueueFlagBits(family.QueueFlags)&vk.QueueGraphicsBit != 0 {
			assignment.GraphicsFamilyIndex = int32(i)
		}

		if assignment.PresentFamilyIndex < 0 {
			supported, res := ds.driver.GetPhysicalDeviceSurfaceSupport(adapter.Handle, uint32(i), surface)
			if res != vk.Success {
				return assignment, resultError(core.ErrSurfaceQueryFailed, "vkGetPhysicalDeviceSurfaceSupportKHR", res)
			}
			if supported {
				assignment.PresentFamilyIndex = int32(i)
			}
		}

		if assignment.IsComplete() {
			break
		}
	}
	return assignment, nil
}
