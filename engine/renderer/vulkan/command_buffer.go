package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type CommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State CommandBufferState

	driver DeviceDriver
}

// CommandPool hands out resettable primary command buffers on the graphics
// queue family, one per frame slot.
type CommandPool struct {
	Handle  vk.CommandPool
	Buffers []*CommandBuffer

	device *LogicalDevice
}

func NewCommandPool(device *LogicalDevice, bufferCount uint32) (*CommandPool, error) {
	if err := device.alive("vkCreateCommandPool"); err != nil {
		return nil, err
	}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsFamily(),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	handle, res := device.driver.CreateCommandPool(device.Handle, &poolCreateInfo)
	if res != vk.Success {
		return nil, resultError(core.ErrUnknown, "vkCreateCommandPool", res)
	}
	device.adopt(1)
	pool := &CommandPool{Handle: handle, device: device}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: bufferCount,
	}
	handles, res := device.driver.AllocateCommandBuffers(device.Handle, &allocateInfo)
	if res != vk.Success {
		pool.Destroy()
		return nil, resultError(core.ErrUnknown, "vkAllocateCommandBuffers", res)
	}
	for _, h := range handles {
		pool.Buffers = append(pool.Buffers, &CommandBuffer{
			Handle: h,
			State:  COMMAND_BUFFER_STATE_READY,
			driver: device.driver,
		})
	}

	core.LogDebug("Graphics command pool created with %d buffer(s).", len(handles))
	return pool, nil
}

// Destroy frees the buffers together with the pool.
func (cp *CommandPool) Destroy() error {
	if cp.Handle == nil {
		return nil
	}
	if err := cp.device.alive("vkDestroyCommandPool"); err != nil {
		return err
	}

	if len(cp.Buffers) > 0 {
		handles := make([]vk.CommandBuffer, len(cp.Buffers))
		for i, cb := range cp.Buffers {
			handles[i] = cb.Handle
			cb.Handle = nil
			cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
		}
		cp.device.driver.FreeCommandBuffers(cp.device.Handle, cp.Handle, handles)
	}
	cp.Buffers = nil

	cp.device.driver.DestroyCommandPool(cp.device.Handle, cp.Handle)
	cp.device.release(1)
	cp.Handle = nil
	return nil
}

// Begin resets the buffer and starts a one-time-submit recording.
func (v *CommandBuffer) Begin() error {
	if res := v.driver.ResetCommandBuffer(v.Handle); res != vk.Success {
		return resultError(core.ErrUnknown, "vkResetCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_READY

	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := v.driver.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		return resultError(core.ErrUnknown, "vkBeginCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *CommandBuffer) End() error {
	if v.State != COMMAND_BUFFER_STATE_RECORDING {
		return errors.Errorf("command buffer end in state %d", v.State)
	}
	if res := v.driver.EndCommandBuffer(v.Handle); res != vk.Success {
		return resultError(core.ErrUnknown, "vkEndCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *CommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// SetViewportAndScissor covers the whole extent with the dynamic viewport
// and scissor state.
func (v *CommandBuffer) SetViewportAndScissor(extent vk.Extent2D) {
	v.driver.CmdSetViewport(v.Handle, vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	v.driver.CmdSetScissor(v.Handle, vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	})
}

func (v *CommandBuffer) Draw(vertexCount, instanceCount uint32) {
	v.driver.CmdDraw(v.Handle, vertexCount, instanceCount, 0, 0)
}
