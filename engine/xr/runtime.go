// Package xr describes the boundary with an OpenXR-style runtime. The
// runtime owns device creation when present and must be told which
// instance, device and queue the renderer ended up with.
package xr

import (
	vk "github.com/goki/vulkan"
)

// GraphicsRequirements is the API version range accepted by the runtime.
type GraphicsRequirements struct {
	MinAPIVersion uint32
	MaxAPIVersion uint32
}

// Accepts reports whether apiVersion is inside the range. A zero maximum
// means no upper bound.
func (gr GraphicsRequirements) Accepts(apiVersion uint32) bool {
	if apiVersion < gr.MinAPIVersion {
		return false
	}
	return gr.MaxAPIVersion == 0 || apiVersion <= gr.MaxAPIVersion
}

// GraphicsBinding is what the renderer reports back when a session is
// attached. Values are passed through unchanged.
type GraphicsBinding struct {
	Instance         vk.Instance
	PhysicalDevice   vk.PhysicalDevice
	Device           vk.Device
	QueueFamilyIndex uint32
	QueueIndex       uint32
}

// Runtime is implemented by the XR runtime integration.
type Runtime interface {
	GraphicsRequirements() (GraphicsRequirements, error)
	// CreateVulkanInstance lets the runtime add its own layers and
	// extensions to the instance.
	CreateVulkanInstance(info *vk.InstanceCreateInfo) (vk.Instance, error)
	// GraphicsDevice names the physical device the runtime will render on.
	GraphicsDevice(instance vk.Instance) (vk.PhysicalDevice, error)
	CreateVulkanDevice(physicalDevice vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error)
	AttachSession(binding GraphicsBinding) error
}
