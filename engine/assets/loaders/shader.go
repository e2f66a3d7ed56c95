package loaders

import (
	"encoding/binary"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

// BytecodeExtension is appended to the source file name by the compiler.
const BytecodeExtension = ".spv"

type ShaderStage uint8

const (
	ShaderStageUnknown ShaderStage = iota
	ShaderStageVertex
	ShaderStageFragment
	ShaderStageCompute
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// ShaderStageFromPath derives the stage from the source extension. Both the
// source ("x.frag") and the compiled artifact ("x.frag.spv") are accepted.
func ShaderStageFromPath(path string) ShaderStage {
	name := strings.TrimSuffix(filepath.Base(path), BytecodeExtension)
	switch filepath.Ext(name) {
	case ".vert":
		return ShaderStageVertex
	case ".frag":
		return ShaderStageFragment
	case ".comp":
		return ShaderStageCompute
	default:
		return ShaderStageUnknown
	}
}

// IsShaderSource reports whether path names a shader source the external
// compiler understands.
func IsShaderSource(path string) bool {
	return filepath.Ext(path) != BytecodeExtension && ShaderStageFromPath(path) != ShaderStageUnknown
}

// BytecodePath returns the compiled artifact path for a shader source.
func BytecodePath(source string) string {
	return source + BytecodeExtension
}

// ShaderBinary is a validated SPIR-V word stream. It is consumed once to
// create a shader module and must not be modified.
type ShaderBinary struct {
	Path  string
	Stage ShaderStage
	Code  []uint32
}

// SizeBytes is the code size expected by vkCreateShaderModule.
func (sb *ShaderBinary) SizeBytes() uint64 {
	return uint64(len(sb.Code) * 4)
}

type ShaderLoader struct {
	binary BinaryLoader
}

// Load reads and validates a compiled shader. Missing or unreadable files
// fail with core.ErrIO, invalid word streams with core.ErrMalformedBytecode.
func (sl *ShaderLoader) Load(path string) (*ShaderBinary, error) {
	data, err := sl.binary.Load(path)
	if err != nil {
		return nil, err
	}
	code, err := ParseSpirv(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return &ShaderBinary{
		Path:  path,
		Stage: ShaderStageFromPath(path),
		Code:  code,
	}, nil
}

// LoadShaderBinary is a shorthand for a zero ShaderLoader.
func LoadShaderBinary(path string) (*ShaderBinary, error) {
	var sl ShaderLoader
	return sl.Load(path)
}

// ParseSpirv validates the container and decodes the words. A module written
// with the opposite endianness is byte-swapped.
func ParseSpirv(data []byte) ([]uint32, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(core.ErrMalformedBytecode, "empty file")
	}
	if len(data)%4 != 0 {
		return nil, errors.Wrapf(core.ErrMalformedBytecode, "length %d is not a multiple of 4", len(data))
	}
	switch {
	case binary.LittleEndian.Uint32(data) == SpirvMagic:
		return bytesToBytecode(data, binary.LittleEndian), nil
	case binary.BigEndian.Uint32(data) == SpirvMagic:
		return bytesToBytecode(data, binary.BigEndian), nil
	default:
		return nil, errors.Wrapf(core.ErrMalformedBytecode, "bad magic 0x%08x", binary.LittleEndian.Uint32(data))
	}
}
