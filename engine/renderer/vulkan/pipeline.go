package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/assets/loaders"
	"github.com/maiadx/openxr-app/engine/core"
)

// Pipeline holds a graphics pipeline and its layout. Both are destroyed
// together.
type Pipeline struct {
	Handle vk.Pipeline
	Layout vk.PipelineLayout

	device *LogicalDevice
}

type PipelineConfig struct {
	RenderPass *RenderPass
	Vertex     *loaders.ShaderBinary
	Fragment   *loaders.ShaderBinary
}

// NewGraphicsPipeline draws without vertex input, so a shader generating its
// own positions (a fullscreen triangle) is expected. The shader modules only
// live for the duration of this call.
func NewGraphicsPipeline(device *LogicalDevice, config PipelineConfig) (*Pipeline, error) {
	if config.RenderPass == nil || config.Vertex == nil || config.Fragment == nil {
		return nil, errors.Wrap(core.ErrPipelineCreationFailed, "render pass and both shader stages are required")
	}
	if err := device.alive("vkCreateGraphicsPipelines"); err != nil {
		return nil, err
	}

	vertModule, err := NewShaderModule(device, config.Vertex)
	if err != nil {
		return nil, err
	}
	defer vertModule.Destroy()

	fragModule, err := NewShaderModule(device, config.Fragment)
	if err != nil {
		return nil, err
	}
	defer fragModule.Destroy()

	stages := []vk.PipelineShaderStageCreateInfo{
		vertModule.StageCreateInfo,
		fragModule.StageCreateInfo,
	}

	// Vertices are generated in the vertex shader.
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Viewport and scissor are dynamic; only the counts are fixed here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) |
			vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// No descriptors or push constants.
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}

	drv := device.driver
	layout, res := drv.CreatePipelineLayout(device.Handle, &pipelineLayoutCreateInfo)
	if res != vk.Success {
		return nil, resultError(core.ErrPipelineCreationFailed, "vkCreatePipelineLayout", res)
	}
	device.adopt(1)
	outPipeline := &Pipeline{Layout: layout, device: device}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  nil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              layout,
		RenderPass:          config.RenderPass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	handle, res := drv.CreateGraphicsPipeline(device.Handle, &pipelineCreateInfo)
	if res != vk.Success || handle == nil {
		outPipeline.Destroy()
		return nil, resultError(core.ErrPipelineCreationFailed, "vkCreateGraphicsPipelines", res)
	}
	device.adopt(1)
	outPipeline.Handle = handle

	core.LogDebug("Graphics pipeline created!")
	return outPipeline, nil
}

// Destroy releases the pipeline and then its layout.
func (pipeline *Pipeline) Destroy() error {
	if pipeline.Handle == nil && pipeline.Layout == nil {
		return nil
	}
	if err := pipeline.device.alive("vkDestroyPipeline"); err != nil {
		return err
	}
	if pipeline.Handle != nil {
		pipeline.device.driver.DestroyPipeline(pipeline.device.Handle, pipeline.Handle)
		pipeline.device.release(1)
		pipeline.Handle = nil
	}
	if pipeline.Layout != nil {
		pipeline.device.driver.DestroyPipelineLayout(pipeline.device.Handle, pipeline.Layout)
		pipeline.device.release(1)
		pipeline.Layout = nil
	}
	return nil
}

func (pipeline *Pipeline) Bind(commandBuffer *CommandBuffer) {
	pipeline.device.driver.CmdBindPipeline(commandBuffer.Handle, pipeline.Handle)
}
