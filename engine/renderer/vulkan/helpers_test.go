package vulkan

import (
	goruntime "runtime"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiadx/openxr-app/engine/assets/loaders"
)

// newTestDevice selects among the driver's adapters and creates a device.
func newTestDevice(t *testing.T, driver *fakeDriver, viewCount uint32) (*LogicalDevice, vk.Surface) {
	t.Helper()
	surface := newHandle[vk.Surface]()

	adapters, err := EnumerateAdapters(driver, newHandle[vk.Instance]())
	require.NoError(t, err)

	adapter, assignment, err := NewDeviceSelector(driver, nil, viewCount).Select(adapters, surface)
	require.NoError(t, err)

	device, err := NewLogicalDeviceFactory(driver, nil, viewCount).Create(adapter, assignment)
	require.NoError(t, err)
	return device, surface
}

func testShader(stage loaders.ShaderStage, path string) *loaders.ShaderBinary {
	code := []uint32{loaders.SpirvMagic, 0x00010000}
	return &loaders.ShaderBinary{Path: path, Stage: stage, Code: code}
}

func TestFakeHandlesAreDistinct(t *testing.T) {
	first := newFakeAdapter("first")
	goruntime.GC()
	second := newFakeAdapter("second")
	assert.True(t, first.handle != second.handle)

	driver := newFakeDriver(first, second)
	assert.Equal(t, "second", driver.adapter(second.handle).name)

	seen := map[vk.Fence]bool{}
	for i := 0; i < 1000; i++ {
		if i%100 == 0 {
			goruntime.GC()
		}
		fence := newHandle[vk.Fence]()
		require.True(t, fence != vk.NullFence)
		require.False(t, seen[fence], "fence %d reused", i)
		seen[fence] = true
	}
}
