//go:build mage

package main

import (
	"context"
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles stale shaders and runs the engine with config.toml.
func (Run) Engine(ctx context.Context) error {
	if err := compileShaders(ctx, true); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	return runGo("run", ".", "-config", "config.toml")
}

// Runs the test suite.
func (Run) Tests() error {
	return runGo("test", "./...")
}
