package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

// FrameSlot is one of the frames that may be in flight at once.
type FrameSlot struct {
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       *Fence
}

// Frame is an acquired swapchain image bound to a frame slot.
type Frame struct {
	Slot       uint32
	ImageIndex uint32
	Number     uint64
	Swapchain  *Swapchain

	slot *FrameSlot
	// Acquire reported the swapchain as suboptimal; the image is still usable.
	suboptimal bool
}

// FrameSyncManager paces the CPU against the GPU with one fence per slot and
// tracks which slot fence last used each swapchain image.
type FrameSyncManager struct {
	device *LogicalDevice
	slots  []*FrameSlot

	// Borrowed from slots; indexed by swapchain image.
	imagesInFlight []*Fence

	current     uint32
	frameNumber uint64
}

func NewFrameSyncManager(device *LogicalDevice, framesInFlight, imageCount uint32) (*FrameSyncManager, error) {
	if framesInFlight == 0 {
		return nil, errors.New("at least one frame in flight is required")
	}

	m := &FrameSyncManager{
		device: device,
		slots:  make([]*FrameSlot, 0, framesInFlight),
	}

	for i := uint32(0); i < framesInFlight; i++ {
		slot, err := newFrameSlot(device)
		if err != nil {
			m.Destroy()
			return nil, err
		}
		m.slots = append(m.slots, slot)
	}
	m.ResetImages(imageCount)

	core.LogDebug("Created sync objects for %d frame(s) in flight.", framesInFlight)
	return m, nil
}

func newFrameSlot(device *LogicalDevice) (*FrameSlot, error) {
	if err := device.alive("vkCreateSemaphore"); err != nil {
		return nil, err
	}
	slot := &FrameSlot{}

	var res vk.Result
	if slot.ImageAvailable, res = device.driver.CreateSemaphore(device.Handle); res != vk.Success {
		return nil, resultError(core.ErrUnknown, "vkCreateSemaphore", res)
	}
	device.adopt(1)

	if slot.RenderFinished, res = device.driver.CreateSemaphore(device.Handle); res != vk.Success {
		slot.destroy(device)
		return nil, resultError(core.ErrUnknown, "vkCreateSemaphore", res)
	}
	device.adopt(1)

	// The fence starts signaled so the first wait on each slot returns at once.
	fence, err := NewFence(device, true)
	if err != nil {
		slot.destroy(device)
		return nil, err
	}
	slot.InFlight = fence
	return slot, nil
}

func (fs *FrameSlot) destroy(device *LogicalDevice) error {
	if err := device.alive("vkDestroySemaphore"); err != nil {
		return err
	}
	if fs.ImageAvailable != nil {
		device.driver.DestroySemaphore(device.Handle, fs.ImageAvailable)
		device.release(1)
		fs.ImageAvailable = nil
	}
	if fs.RenderFinished != nil {
		device.driver.DestroySemaphore(device.Handle, fs.RenderFinished)
		device.release(1)
		fs.RenderFinished = nil
	}
	if fs.InFlight != nil {
		if err := fs.InFlight.Destroy(); err != nil {
			return err
		}
		fs.InFlight = nil
	}
	return nil
}

func (m *FrameSyncManager) FramesInFlight() uint32 {
	return uint32(len(m.slots))
}

func (m *FrameSyncManager) CurrentSlot() uint32 {
	return m.current
}

func (m *FrameSyncManager) Slot(index uint32) *FrameSlot {
	return m.slots[index]
}

// ImageOwner returns the fence recorded against a swapchain image, if any.
func (m *FrameSyncManager) ImageOwner(imageIndex uint32) *Fence {
	return m.imagesInFlight[imageIndex]
}

// ResetImages forgets every image ownership and resizes the table. Call it
// after the swapchain has been recreated and the device is idle.
func (m *FrameSyncManager) ResetImages(imageCount uint32) {
	m.imagesInFlight = make([]*Fence, imageCount)
}

// AcquireFrame waits for the current slot, acquires the next swapchain image
// and makes the slot's fence the owner of that image. The slot fence is only
// reset once an image was acquired.
func (m *FrameSyncManager) AcquireFrame(swapchain *Swapchain, timeoutNs uint64) (*Frame, error) {
	slot := m.slots[m.current]

	// Wait for this slot's previous submission to complete.
	if err := slot.InFlight.Wait(timeoutNs); err != nil {
		return nil, errors.Wrapf(err, "frame slot %d", m.current)
	}

	imageIndex, res := m.device.driver.AcquireNextImage(m.device.Handle, swapchain.Handle, timeoutNs, slot.ImageAvailable)
	suboptimal := false
	switch res {
	case vk.Success:
	case vk.Suboptimal:
		// The semaphore will be signaled, so the frame has to go through.
		suboptimal = true
	default:
		return nil, frameResultError("vkAcquireNextImageKHR", res)
	}
	if int(imageIndex) >= len(m.imagesInFlight) {
		return nil, errors.Errorf("acquired image %d outside of the %d tracked image(s)", imageIndex, len(m.imagesInFlight))
	}

	// A previous frame may still be rendering into this image.
	if owner := m.imagesInFlight[imageIndex]; owner != nil {
		if err := owner.Wait(timeoutNs); err != nil {
			return nil, errors.Wrapf(err, "image %d", imageIndex)
		}
	}
	m.imagesInFlight[imageIndex] = slot.InFlight

	if err := slot.InFlight.Reset(); err != nil {
		return nil, err
	}

	m.frameNumber++
	return &Frame{
		Slot:       m.current,
		ImageIndex: imageIndex,
		Number:     m.frameNumber,
		Swapchain:  swapchain,
		slot:       slot,
		suboptimal: suboptimal,
	}, nil
}

// SubmitAndPresent submits commandBuffer for frame, presents the image and
// advances to the next slot. An out of date or suboptimal swapchain is
// reported as core.ErrSurfaceOutOfDate after the slot has advanced.
func (m *FrameSyncManager) SubmitAndPresent(frame *Frame, commandBuffer *CommandBuffer) error {
	slot := frame.slot
	device := m.device

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.ImageAvailable},
		PWaitDstStageMask:  []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{commandBuffer.Handle},
		// Semaphore(s) to be signaled when the queue is complete.
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.RenderFinished},
	}

	err := device.queueLocks.Do(device.GraphicsFamily(), func() error {
		if res := device.driver.QueueSubmit(device.GraphicsQueue, []vk.SubmitInfo{submitInfo}, slot.InFlight.Handle); res != vk.Success {
			return frameResultError("vkQueueSubmit", res)
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	commandBuffer.UpdateSubmitted()

	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.RenderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{frame.Swapchain.Handle},
		PImageIndices:      []uint32{frame.ImageIndex},
	}

	err = device.queueLocks.Do(device.PresentFamily(), func() error {
		if res := device.driver.QueuePresent(device.PresentQueue, &presentInfo); res != vk.Success {
			return frameResultError("vkQueuePresentKHR", res)
		}
		return nil
	})

	// The slot was submitted either way; increment (and loop) the index.
	m.current = (m.current + 1) % uint32(len(m.slots))

	if err != nil {
		return err
	}
	if frame.suboptimal {
		return frameResultError("vkAcquireNextImageKHR", vk.Suboptimal)
	}
	return nil
}

// Destroy releases every slot. The device must be idle.
func (m *FrameSyncManager) Destroy() error {
	for _, slot := range m.slots {
		if err := slot.destroy(m.device); err != nil {
			return err
		}
	}
	m.slots = nil
	m.imagesInFlight = nil
	return nil
}
