package vulkan

import (
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
	"github.com/maiadx/openxr-app/engine/xr"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

type InstanceConfig struct {
	ApplicationName string
	// Enables the validation layer and the debug report callback.
	Validation bool
	// Multiview needs Vulkan 1.1.
	ViewCount uint32
	// Instance extensions required by the surface provider.
	SurfaceExtensions []string
}

// Instance is the Vulkan instance with its optional debug callback.
type Instance struct {
	Handle     vk.Instance
	APIVersion uint32
	Extensions []string
	Layers     []string

	debugCallback vk.DebugReportCallback
	driver        InstanceDriver
}

func (config InstanceConfig) apiVersion() uint32 {
	if config.ViewCount > 1 {
		return vk.MakeVersion(1, 1, 0)
	}
	return vk.MakeVersion(1, 0, 0)
}

// NewInstance creates the instance directly or, when rt is set, through the
// XR runtime.
func NewInstance(driver InstanceDriver, rt xr.Runtime, config InstanceConfig) (*Instance, error) {
	apiVersion := config.apiVersion()
	if rt != nil {
		requirements, err := rt.GraphicsRequirements()
		if err != nil {
			return nil, errors.Wrap(err, "query xr graphics requirements")
		}
		if !requirements.Accepts(apiVersion) {
			apiVersion = requirements.MinAPIVersion
		}
	}

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         apiVersion,
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		PEngineName:        VulkanSafeString("openxr-app"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{"VK_KHR_surface"} // Generic surface extension
	for _, ext := range config.SurfaceExtensions {
		if !containsString(requiredExtensions, ext) {
			requiredExtensions = append(requiredExtensions, ext)
		}
	}

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if config.Validation {
		available, res := driver.EnumerateInstanceLayers()
		switch {
		case res != vk.Success:
			core.LogWarn("Could not enumerate instance layers (%s), validation disabled.", VulkanResultString(res, false))
		case !containsString(available, validationLayer):
			core.LogWarn("Required validation layer is missing: %s, validation disabled.", validationLayer)
		default:
			layers = []string{validationLayer}
			requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		}
	}

	core.LogDebug("Required instance extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	instance := &Instance{
		APIVersion: apiVersion,
		Extensions: requiredExtensions,
		Layers:     layers,
		driver:     driver,
	}

	if rt != nil {
		handle, err := rt.CreateVulkanInstance(&createInfo)
		if err != nil {
			return nil, errors.Wrap(err, "xr runtime instance creation")
		}
		instance.Handle = handle
	} else {
		handle, res := driver.CreateInstance(&createInfo)
		if res != vk.Success {
			return nil, resultError(core.ErrUnknown, "vkCreateInstance", res)
		}
		instance.Handle = handle
	}
	core.LogInfo("Vulkan Instance created.")

	if len(layers) > 0 {
		instance.createDebugCallback()
	}
	return instance, nil
}

func (i *Instance) createDebugCallback() {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	callback, res := i.driver.CreateDebugReportCallback(i.Handle, &debugCreateInfo)
	if res != vk.Success {
		core.LogWarn("vk.CreateDebugReportCallback failed with %s", VulkanResultString(res, false))
		return
	}
	i.debugCallback = callback
	core.LogDebug("Vulkan debugger created.")
}

func (i *Instance) HasDebugCallback() bool {
	return i.debugCallback != nil
}

func (i *Instance) DestroyDebugCallback() {
	if i.debugCallback == nil {
		return
	}
	i.driver.DestroyDebugReportCallback(i.Handle, i.debugCallback)
	i.debugCallback = nil
}

func (i *Instance) Destroy() {
	if i.Handle == nil {
		return
	}
	i.DestroyDebugCallback()
	i.driver.DestroyInstance(i.Handle)
	i.Handle = nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
