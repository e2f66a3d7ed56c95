package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiadx/openxr-app/engine/assets/loaders"
)

func writeFile(t *testing.T, path string, data []byte, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func spirvWords(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func TestShaderCatalogIndex(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	newer := time.Now()

	writeFile(t, filepath.Join(dir, "fullscreen.vert"), []byte("#version 450"), old)
	writeFile(t, filepath.Join(dir, "fullscreen.vert.spv"), spirvWords(loaders.SpirvMagic, 0x00010000), newer)
	writeFile(t, filepath.Join(dir, "debug_pattern.frag"), []byte("#version 450"), newer)
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("ignored"), newer)

	catalog, err := NewShaderCatalog(dir)
	require.NoError(t, err)
	require.NoError(t, catalog.Initialize())
	defer catalog.Close()

	assert.Equal(t, []string{"debug_pattern.frag", "fullscreen.vert"}, catalog.Names())

	vert, ok := catalog.Lookup("fullscreen.vert")
	require.True(t, ok)
	assert.Equal(t, loaders.ShaderStageVertex, vert.Stage)
	assert.True(t, vert.HasBytecode())
	assert.False(t, vert.Stale())

	frag, ok := catalog.Lookup("debug_pattern.frag")
	require.True(t, ok)
	assert.False(t, frag.HasBytecode())
	assert.True(t, frag.Stale())

	stale := catalog.Stale()
	require.Len(t, stale, 1)
	assert.Equal(t, "debug_pattern.frag", stale[0].Name)

	bin, err := catalog.Load("fullscreen.vert")
	require.NoError(t, err)
	assert.Equal(t, []uint32{loaders.SpirvMagic, 0x00010000}, bin.Code)
}

func TestShaderCatalogWatchesNewArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tint.frag"), []byte("#version 450"), time.Now().Add(-time.Hour))

	catalog, err := NewShaderCatalog(dir)
	require.NoError(t, err)
	require.NoError(t, catalog.Initialize())
	defer catalog.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tint.frag.spv"), spirvWords(loaders.SpirvMagic), 0o644))

	require.Eventually(t, func() bool {
		asset, ok := catalog.Lookup("tint.frag")
		return ok && asset.HasBytecode() && !asset.Stale()
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "tint.frag.spv")))
	require.Eventually(t, func() bool {
		asset, ok := catalog.Lookup("tint.frag")
		return ok && !asset.HasBytecode()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestShaderCatalogMissingDirectory(t *testing.T) {
	catalog, err := NewShaderCatalog(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Error(t, catalog.Initialize())
	assert.NoError(t, catalog.Close())
}
