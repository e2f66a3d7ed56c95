package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/assets/loaders"
	"github.com/maiadx/openxr-app/engine/core"
)

// ShaderModule is a device-resident shader and its pipeline stage info.
type ShaderModule struct {
	Handle vk.ShaderModule
	Stage  loaders.ShaderStage
	Path   string
	// The pipeline shader stage creation info.
	StageCreateInfo vk.PipelineShaderStageCreateInfo

	device *LogicalDevice
}

func shaderStageFlag(stage loaders.ShaderStage) (vk.ShaderStageFlagBits, bool) {
	switch stage {
	case loaders.ShaderStageVertex:
		return vk.ShaderStageVertexBit, true
	case loaders.ShaderStageFragment:
		return vk.ShaderStageFragmentBit, true
	case loaders.ShaderStageCompute:
		return vk.ShaderStageComputeBit, true
	default:
		return 0, false
	}
}

// NewShaderModule hands a validated binary to the driver.
func NewShaderModule(device *LogicalDevice, binary *loaders.ShaderBinary) (*ShaderModule, error) {
	if err := device.alive("vkCreateShaderModule"); err != nil {
		return nil, err
	}

	flag, ok := shaderStageFlag(binary.Stage)
	if !ok {
		return nil, errors.Wrapf(core.ErrModuleCreationFailed, "%s: unknown shader stage", binary.Path)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType: vk.StructureTypeShaderModuleCreateInfo,
		// Use the binary's size and data directly.
		CodeSize: binary.SizeBytes(),
		PCode:    binary.Code,
	}

	handle, res := device.driver.CreateShaderModule(device.Handle, &createInfo)
	if res != vk.Success {
		err := resultError(core.ErrModuleCreationFailed, "vkCreateShaderModule", res)
		core.LogError("%s: %s", binary.Path, err)
		return nil, errors.Wrap(err, binary.Path)
	}
	device.adopt(1)

	return &ShaderModule{
		Handle: handle,
		Stage:  binary.Stage,
		Path:   binary.Path,
		StageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  flag,
			Module: handle,
			PName:  VulkanSafeString("main"),
		},
		device: device,
	}, nil
}

func (sm *ShaderModule) Destroy() error {
	if sm.Handle == nil {
		return nil
	}
	if err := sm.device.alive("vkDestroyShaderModule"); err != nil {
		return err
	}
	sm.device.driver.DestroyShaderModule(sm.device.Handle, sm.Handle)
	sm.device.release(1)
	sm.Handle = nil
	return nil
}
