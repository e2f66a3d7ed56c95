package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/maiadx/openxr-app/engine/core"
)

// NewFramebuffer binds one swapchain view to renderPass. Multiview renders
// into the view's array layers, so the framebuffer itself has one layer.
func NewFramebuffer(device *LogicalDevice, renderPass *RenderPass, extent vk.Extent2D, attachment vk.ImageView) (vk.Framebuffer, error) {
	if err := device.alive("vkCreateFramebuffer"); err != nil {
		return nil, err
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.Handle,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{attachment},
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	framebuffer, res := device.driver.CreateFramebuffer(device.Handle, &framebufferCreateInfo)
	if res != vk.Success {
		err := resultError(core.ErrSwapchainCreationFailed, "vkCreateFramebuffer", res)
		core.LogError(err.Error())
		return nil, err
	}
	device.adopt(1)
	return framebuffer, nil
}

func DestroyFramebuffer(device *LogicalDevice, framebuffer vk.Framebuffer) error {
	if framebuffer == nil {
		return nil
	}
	if err := device.alive("vkDestroyFramebuffer"); err != nil {
		return err
	}
	device.driver.DestroyFramebuffer(device.Handle, framebuffer)
	device.release(1)
	return nil
}
