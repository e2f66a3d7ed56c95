package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/maiadx/openxr-app/engine/core"
)

type Fence struct {
	Handle     vk.Fence
	IsSignaled bool

	device *LogicalDevice
}

func NewFence(device *LogicalDevice, createSignaled bool) (*Fence, error) {
	if err := device.alive("vkCreateFence"); err != nil {
		return nil, err
	}

	handle, res := device.driver.CreateFence(device.Handle, createSignaled)
	if res != vk.Success {
		err := resultError(core.ErrUnknown, "vkCreateFence", res)
		core.LogError(err.Error())
		return nil, err
	}
	device.adopt(1)

	return &Fence{
		Handle: handle,
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
		device:     device,
	}, nil
}

func (vf *Fence) Destroy() error {
	if vf.Handle == nil {
		return nil
	}
	if err := vf.device.alive("vkDestroyFence"); err != nil {
		return err
	}
	vf.device.driver.DestroyFence(vf.device.Handle, vf.Handle)
	vf.device.release(1)
	vf.Handle = nil
	vf.IsSignaled = false
	return nil
}

// Wait blocks until the fence is signaled. Timeouts and device loss are
// returned as core.ErrSyncWaitTimeout and core.ErrDeviceLost.
func (vf *Fence) Wait(timeoutNs uint64) error {
	// If already signaled, do not wait.
	if vf.IsSignaled {
		return nil
	}

	result := vf.device.driver.WaitForFences(vf.device.Handle, []vk.Fence{vf.Handle}, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result, true))
	}
	return frameResultError("vkWaitForFences", result)
}

func (vf *Fence) Reset() error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vf.device.driver.ResetFences(vf.device.Handle, []vk.Fence{vf.Handle}); res != vk.Success {
		return frameResultError("vkResetFences", res)
	}
	vf.IsSignaled = false
	return nil
}
