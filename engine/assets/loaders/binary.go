package loaders

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

// BinaryLoader reads whole files from disk.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(core.ErrIO, "open %s: %v", path, err)
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(core.ErrIO, "read %s: %v", path, err)
	}
	return buf, nil
}

// bytesToBytecode decodes a word stream in the given byte order. len(b) must
// be a multiple of 4.
func bytesToBytecode(b []byte, order binary.ByteOrder) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = order.Uint32(b[i*4:])
	}
	return byteCode
}
