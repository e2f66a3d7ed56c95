package xr

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestGraphicsRequirementsAccepts(t *testing.T) {
	v10 := vk.MakeVersion(1, 0, 0)
	v11 := vk.MakeVersion(1, 1, 0)
	v13 := vk.MakeVersion(1, 3, 0)

	bounded := GraphicsRequirements{MinAPIVersion: v11, MaxAPIVersion: vk.MakeVersion(1, 2, 0)}
	assert.False(t, bounded.Accepts(v10))
	assert.True(t, bounded.Accepts(v11))
	assert.False(t, bounded.Accepts(v13))

	open := GraphicsRequirements{MinAPIVersion: v11}
	assert.True(t, open.Accepts(v13))
}
