//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// The Vulkan and GLFW bindings are cgo packages.
var goEnv = map[string]string{"CGO_ENABLED": "1"}

// runGo runs the go tool with its output streamed to the terminal.
func runGo(args ...string) error {
	fmt.Printf("Executing: %s %s\n", mg.GoCmd(), strings.Join(args, " "))
	if err := sh.RunWithV(goEnv, mg.GoCmd(), args...); err != nil {
		return fmt.Errorf("go %s: %w", args[0], err)
	}
	return nil
}
