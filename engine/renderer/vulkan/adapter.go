package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

const (
	swapchainExtension         = "VK_KHR_swapchain"
	portabilitySubsetExtension = "VK_KHR_portability_subset"
)

// GraphicsAdapter is a physical GPU and the properties queried from it at
// enumeration time. It is not modified afterwards.
type GraphicsAdapter struct {
	Handle vk.PhysicalDevice
	// Position in the driver's enumeration order.
	Index int

	Name                string
	Type                vk.PhysicalDeviceType
	APIVersion          uint32
	DriverVersion       uint32
	MaxImageDimension2D uint32

	QueueFamilies []vk.QueueFamilyProperties
	Extensions    []string
	Features      vk.PhysicalDeviceFeatures
}

func (ga *GraphicsAdapter) IsDiscrete() bool {
	return ga.Type == vk.PhysicalDeviceTypeDiscreteGpu
}

func (ga *GraphicsAdapter) SupportsExtension(name string) bool {
	return containsString(ga.Extensions, name)
}

// SupportsAPI compares the advertised API version against major.minor.
func (ga *GraphicsAdapter) SupportsAPI(major, minor int) bool {
	return ga.APIVersion >= vk.MakeVersion(major, minor, 0)
}

func (ga *GraphicsAdapter) TypeName() string {
	switch ga.Type {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	default:
		return "Unknown"
	}
}

// EnumerateAdapters lists every physical device with its properties,
// features, queue families and device extensions.
func EnumerateAdapters(driver InstanceDriver, instance vk.Instance) ([]*GraphicsAdapter, error) {
	devices, res := driver.EnumeratePhysicalDevices(instance)
	if res != vk.Success {
		return nil, resultError(core.ErrNoSuitableAdapter, "vkEnumeratePhysicalDevices", res)
	}
	if len(devices) == 0 {
		return nil, errors.Wrap(core.ErrNoSuitableAdapter, "no devices which support Vulkan were found")
	}

	adapters := make([]*GraphicsAdapter, 0, len(devices))
	for i, pd := range devices {
		props := driver.GetPhysicalDeviceProperties(pd)

		extensions, res := driver.EnumerateDeviceExtensions(pd)
		if res != vk.Success {
			// An adapter whose extensions cannot be listed fails the
			// extension check later on.
			core.LogWarn("Could not enumerate extensions of device %d: %s", i, VulkanResultString(res, false))
			extensions = nil
		}

		adapters = append(adapters, &GraphicsAdapter{
			Handle:              pd,
			Index:               i,
			Name:                vk.ToString(props.DeviceName[:]),
			Type:                props.DeviceType,
			APIVersion:          props.ApiVersion,
			DriverVersion:       props.DriverVersion,
			MaxImageDimension2D: props.Limits.MaxImageDimension2D,
			QueueFamilies:       driver.GetPhysicalDeviceQueueFamilyProperties(pd),
			Extensions:          extensions,
			Features:            driver.GetPhysicalDeviceFeatures(pd),
		})
	}
	return adapters, nil
}
