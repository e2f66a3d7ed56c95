//go:build mage

package main

import (
	"context"
	"fmt"

	"github.com/magefile/mage/mg"

	"github.com/maiadx/openxr-app/engine/assets"
	"github.com/maiadx/openxr-app/engine/config"
)

type Build mg.Namespace

const shaderDir = "resources/shaders"

// Compiles every shader source under resources/shaders to SPIR-V.
func (Build) Shaders(ctx context.Context) error {
	return compileShaders(ctx, false)
}

// Compiles only the shaders whose artifact is missing or older than the source.
func (Build) StaleShaders(ctx context.Context) error {
	return compileShaders(ctx, true)
}

// Builds the engine binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	return runGo("build", "-o", "bin/openxr-app", ".")
}

func compileShaders(ctx context.Context, onlyStale bool) error {
	catalog, err := assets.NewShaderCatalog(shaderDir)
	if err != nil {
		return err
	}
	defer catalog.Close()
	if err := catalog.Initialize(); err != nil {
		return err
	}

	compiler := assets.NewCompiler(config.Default().Shaders.Compiler)
	results, err := compiler.CompileCatalog(ctx, catalog, onlyStale)
	for _, res := range results {
		status := "ok"
		if !res.Success() {
			status = fmt.Sprintf("failed (%d): %s", res.Status, res.Stderr)
		}
		fmt.Printf("%s -> %s: %s\n", res.Source, res.Output, status)
	}
	return err
}
