package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

const (
	DefaultSwapchainWidth  uint32 = 800
	DefaultSwapchainHeight uint32 = 600
)

// SwapchainSupport is the result of the three surface queries.
type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func QuerySwapchainSupport(driver InstanceDriver, physicalDevice vk.PhysicalDevice, surface vk.Surface) (SwapchainSupport, error) {
	var (
		support SwapchainSupport
		res     vk.Result
	)

	if support.Capabilities, res = driver.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface); res != vk.Success {
		return support, resultError(core.ErrSurfaceQueryFailed, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	if support.Formats, res = driver.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface); res != vk.Success {
		return support, resultError(core.ErrSurfaceQueryFailed, "vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if support.PresentModes, res = driver.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface); res != vk.Success {
		return support, resultError(core.ErrSurfaceQueryFailed, "vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	return support, nil
}

// SurfaceConfiguration is fixed for the lifetime of one swapchain.
type SurfaceConfiguration struct {
	Format        vk.Format
	ColorSpace    vk.ColorSpace
	PresentMode   vk.PresentMode
	Extent        vk.Extent2D
	MinImageCount uint32
	ArrayLayers   uint32
	Transform     vk.SurfaceTransformFlagBits
}

func (sc SurfaceConfiguration) Equal(other SurfaceConfiguration) bool {
	return sc.Format == other.Format &&
		sc.ColorSpace == other.ColorSpace &&
		sc.PresentMode == other.PresentMode &&
		sc.Extent.Width == other.Extent.Width &&
		sc.Extent.Height == other.Extent.Height &&
		sc.MinImageCount == other.MinImageCount &&
		sc.ArrayLayers == other.ArrayLayers &&
		sc.Transform == other.Transform
}

// ChooseSurfaceFormat prefers 8-bit BGRA in the sRGB non-linear color space
// and otherwise takes the first reported format.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	// Preferred formats, in order.
	for _, preferred := range []vk.Format{vk.FormatB8g8r8a8Srgb, vk.FormatB8g8r8a8Unorm} {
		for _, format := range formats {
			if format.Format == preferred && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
				return format
			}
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox. FIFO is always available.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless it is the undefined
// sentinel, in which case requested is clamped to the advertised bounds.
func ChooseExtent(caps vk.SurfaceCapabilities, requested vk.Extent2D) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return vk.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height}
	}

	if requested.Width == 0 || requested.Height == 0 {
		requested = vk.Extent2D{Width: DefaultSwapchainWidth, Height: DefaultSwapchainHeight}
	}
	// Clamp to the value allowed by the GPU.
	min := caps.MinImageExtent
	max := caps.MaxImageExtent
	return vk.Extent2D{
		Width:  Clamp(requested.Width, min.Width, max.Width),
		Height: Clamp(requested.Height, min.Height, max.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum. A zero maximum
// means unbounded.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	return imageCount
}

// ChooseArrayLayers gives each view its own layer when the surface allows it.
func ChooseArrayLayers(caps vk.SurfaceCapabilities, viewCount uint32) uint32 {
	maxLayers := caps.MaxImageArrayLayers
	if maxLayers < 1 {
		maxLayers = 1
	}
	return Clamp(viewCount, 1, maxLayers)
}

func ChooseSurfaceConfiguration(support SwapchainSupport, requested vk.Extent2D, viewCount uint32) SurfaceConfiguration {
	format := ChooseSurfaceFormat(support.Formats)
	return SurfaceConfiguration{
		Format:        format.Format,
		ColorSpace:    format.ColorSpace,
		PresentMode:   ChoosePresentMode(support.PresentModes),
		Extent:        ChooseExtent(support.Capabilities, requested),
		MinImageCount: ChooseImageCount(support.Capabilities),
		ArrayLayers:   ChooseArrayLayers(support.Capabilities, viewCount),
		Transform:     support.Capabilities.CurrentTransform,
	}
}

// Swapchain owns the presentable images, one view per image and, once built,
// one framebuffer per image.
type Swapchain struct {
	ID     string
	Handle vk.Swapchain
	Config SurfaceConfiguration

	Images       []vk.Image
	Views        []vk.ImageView
	Framebuffers []vk.Framebuffer

	device    *LogicalDevice
	destroyed bool
}

func (s *Swapchain) ImageCount() uint32 {
	return uint32(len(s.Images))
}

func (s *Swapchain) IsDestroyed() bool {
	return s.destroyed
}

// SwapchainNegotiator picks a surface configuration and (re)creates the
// swapchain for it.
type SwapchainNegotiator struct {
	driver    InstanceDriver
	viewCount uint32
	requested vk.Extent2D
}

func NewSwapchainNegotiator(driver InstanceDriver, viewCount, width, height uint32) *SwapchainNegotiator {
	return &SwapchainNegotiator{
		driver:    driver,
		viewCount: viewCount,
		requested: vk.Extent2D{Width: width, Height: height},
	}
}

// SetRequestedExtent records the framebuffer size used when the surface
// leaves the extent to the application.
func (sn *SwapchainNegotiator) SetRequestedExtent(width, height uint32) {
	sn.requested = vk.Extent2D{Width: width, Height: height}
}

// Configure queries the surface and applies the selection policy.
func (sn *SwapchainNegotiator) Configure(device *LogicalDevice, surface vk.Surface) (SurfaceConfiguration, error) {
	support, err := QuerySwapchainSupport(sn.driver, device.Adapter.Handle, surface)
	if err != nil {
		return SurfaceConfiguration{}, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return SurfaceConfiguration{}, errors.Wrap(core.ErrSurfaceQueryFailed, "surface reports no formats or present modes")
	}
	return ChooseSurfaceConfiguration(support, sn.requested, sn.viewCount), nil
}

// Negotiate creates a swapchain for surface. When previous is given it is
// handed to the driver as the outgoing swapchain and destroyed, with its
// views and framebuffers, once the new one exists.
func (sn *SwapchainNegotiator) Negotiate(device *LogicalDevice, surface vk.Surface, previous *Swapchain) (*Swapchain, error) {
	if err := device.alive("vkCreateSwapchainKHR"); err != nil {
		return nil, err
	}

	config, err := sn.Configure(device, surface)
	if err != nil {
		return nil, err
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    config.MinImageCount,
		ImageFormat:      config.Format,
		ImageColorSpace:  config.ColorSpace,
		ImageExtent:      config.Extent,
		ImageArrayLayers: config.ArrayLayers,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     config.Transform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      config.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if !device.Assignment.SharesFamily() {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = device.Assignment.UniqueIndices()
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	if previous != nil && !previous.destroyed {
		swapchainCreateInfo.OldSwapchain = previous.Handle
	}

	drv := device.driver
	handle, res := drv.CreateSwapchain(device.Handle, &swapchainCreateInfo)
	if res != vk.Success {
		return nil, resultError(core.ErrSwapchainCreationFailed, "vkCreateSwapchainKHR", res)
	}
	device.adopt(1)

	swapchain := &Swapchain{
		ID:     core.NewIdentifier(),
		Handle: handle,
		Config: config,
		device: device,
	}

	images, res := drv.GetSwapchainImages(device.Handle, handle)
	if res != vk.Success || len(images) == 0 {
		swapchain.Destroy()
		return nil, resultError(core.ErrSwapchainCreationFailed, "vkGetSwapchainImagesKHR", res)
	}
	swapchain.Images = images

	if err := swapchain.createViews(); err != nil {
		swapchain.Destroy()
		return nil, err
	}

	if previous != nil {
		if err := previous.Destroy(); err != nil {
			return nil, err
		}
	}

	core.LogInfo("Swapchain %s created: %dx%d, %d image(s), %d layer(s).",
		core.ShortIdentifier(swapchain.ID), config.Extent.Width, config.Extent.Height, len(images), config.ArrayLayers)
	return swapchain, nil
}

func (s *Swapchain) createViews() error {
	viewType := vk.ImageViewType2d
	if s.Config.ArrayLayers > 1 {
		viewType = vk.ImageViewType2dArray
	}

	s.Views = make([]vk.ImageView, 0, len(s.Images))
	for _, image := range s.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: viewType,
			Format:   s.Config.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     s.Config.ArrayLayers,
			},
		}

		view, res := s.device.driver.CreateImageView(s.device.Handle, &viewInfo)
		if res != vk.Success {
			return resultError(core.ErrSwapchainCreationFailed, "vkCreateImageView", res)
		}
		s.device.adopt(1)
		s.Views = append(s.Views, view)
	}
	return nil
}

// BuildFramebuffers creates one framebuffer per image view for renderPass.
// Existing framebuffers are destroyed first.
func (s *Swapchain) BuildFramebuffers(renderPass *RenderPass) error {
	if err := s.DestroyFramebuffers(); err != nil {
		return err
	}

	framebuffers := make([]vk.Framebuffer, 0, len(s.Views))
	for _, view := range s.Views {
		framebuffer, err := NewFramebuffer(s.device, renderPass, s.Config.Extent, view)
		if err != nil {
			s.Framebuffers = framebuffers
			s.DestroyFramebuffers()
			return errors.Wrap(core.ErrSwapchainCreationFailed, err.Error())
		}
		framebuffers = append(framebuffers, framebuffer)
	}
	s.Framebuffers = framebuffers
	return nil
}

func (s *Swapchain) DestroyFramebuffers() error {
	for _, framebuffer := range s.Framebuffers {
		if err := DestroyFramebuffer(s.device, framebuffer); err != nil {
			return err
		}
	}
	s.Framebuffers = nil
	return nil
}

func (s *Swapchain) DestroyViews() error {
	if len(s.Views) == 0 {
		return nil
	}
	if err := s.device.alive("vkDestroyImageView"); err != nil {
		return err
	}
	for _, view := range s.Views {
		s.device.driver.DestroyImageView(s.device.Handle, view)
		s.device.release(1)
	}
	s.Views = nil
	return nil
}

// Destroy releases framebuffers, views and the swapchain itself. Calling it
// again does nothing.
func (s *Swapchain) Destroy() error {
	if s.destroyed {
		return nil
	}
	if err := s.device.alive("vkDestroySwapchainKHR"); err != nil {
		return err
	}
	if err := s.DestroyFramebuffers(); err != nil {
		return err
	}

	if err := s.DestroyViews(); err != nil {
		return err
	}

	s.device.driver.DestroySwapchain(s.device.Handle, s.Handle)
	s.device.release(1)
	s.Handle = vk.NullSwapchain
	s.Images = nil
	s.destroyed = true
	return nil
}
