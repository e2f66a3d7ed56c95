package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

// ViewMask selects views 0..viewCount-1. The same mask is used as the
// correlation mask since every view shares the frame's geometry.
func ViewMask(viewCount uint32) uint32 {
	if viewCount == 0 {
		return 0
	}
	if viewCount >= 32 {
		return ^uint32(0)
	}
	return (uint32(1) << viewCount) - 1
}

// RenderPass is the single-subpass color pass over the swapchain images.
type RenderPass struct {
	Handle     vk.RenderPass
	Format     vk.Format
	ViewCount  uint32
	ClearColor [4]float32

	device *LogicalDevice
}

func NewRenderPass(device *LogicalDevice, format vk.Format, viewCount uint32, clearColor [4]float32) (*RenderPass, error) {
	if err := device.alive("vkCreateRenderPass"); err != nil {
		return nil, err
	}

	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
		FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
	}

	colorAttachmentReference := []vk.AttachmentReference{
		{
			Attachment: 0, // Attachment description array index
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	if device.Multiview && viewCount > 1 {
		mask := ViewMask(viewCount)
		renderpassCreateInfo.PNext = unsafe.Pointer(&vk.RenderPassMultiviewCreateInfo{
			SType:                vk.StructureTypeRenderPassMultiviewCreateInfo,
			SubpassCount:         1,
			PViewMasks:           []uint32{mask},
			CorrelationMaskCount: 1,
			PCorrelationMasks:    []uint32{mask},
		})
	}

	handle, res := device.driver.CreateRenderPass(device.Handle, &renderpassCreateInfo)
	if res != vk.Success {
		return nil, resultError(core.ErrPipelineCreationFailed, "vkCreateRenderPass", res)
	}
	device.adopt(1)

	return &RenderPass{
		Handle:     handle,
		Format:     format,
		ViewCount:  viewCount,
		ClearColor: clearColor,
		device:     device,
	}, nil
}

func (rp *RenderPass) Destroy() error {
	if rp.Handle == nil {
		return nil
	}
	if err := rp.device.alive("vkDestroyRenderPass"); err != nil {
		return err
	}
	rp.device.driver.DestroyRenderPass(rp.device.Handle, rp.Handle)
	rp.device.release(1)
	rp.Handle = nil
	return nil
}

// Begin starts the pass on framebuffer covering the whole extent.
func (rp *RenderPass) Begin(commandBuffer *CommandBuffer, framebuffer vk.Framebuffer, extent vk.Extent2D) error {
	if commandBuffer.State != COMMAND_BUFFER_STATE_RECORDING {
		return errors.Errorf("render pass begin on a command buffer in state %d", commandBuffer.State)
	}

	var clearValue vk.ClearValue
	clearValue.SetColor(rp.ClearColor[:])

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clearValue},
	}

	rp.device.driver.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	return nil
}

func (rp *RenderPass) End(commandBuffer *CommandBuffer) {
	rp.device.driver.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
