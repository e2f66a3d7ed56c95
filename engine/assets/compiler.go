package assets

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/assets/loaders"
	"github.com/maiadx/openxr-app/engine/core"
)

// CompileResult is the outcome of one external compiler run.
type CompileResult struct {
	Source string
	Output string
	Status int
	Stderr string
}

func (cr CompileResult) Success() bool {
	return cr.Status == 0
}

// ArgsFunc builds the compiler command line for one source/output pair.
type ArgsFunc func(source, output string) []string

// GlslangArgs is the command line of glslangValidator: -V <src> -o <src>.spv
func GlslangArgs(source, output string) []string {
	return []string{"-V", source, "-o", output}
}

// Compiler turns GLSL sources into SPIR-V artifacts with an external tool.
type Compiler struct {
	Command string
	Args    ArgsFunc
}

func NewCompiler(command string) *Compiler {
	return &Compiler{
		Command: command,
		Args:    GlslangArgs,
	}
}

// Compile runs the tool for one source file. A non-zero exit is reported in
// the result and as an error carrying the tool's stderr.
func (c *Compiler) Compile(ctx context.Context, source string) (CompileResult, error) {
	output := loaders.BytecodePath(source)
	result := CompileResult{Source: source, Output: output}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Command, c.Args(source, output)...)
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Stderr = strings.TrimSpace(stderr.String())
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Status = exitErr.ExitCode()
			return result, errors.Errorf("compile %s: %s exited with status %d: %s", source, c.Command, result.Status, result.Stderr)
		}
		result.Status = -1
		return result, errors.Wrapf(err, "compile %s", source)
	}

	core.LogDebug("Compiled shader %s -> %s", source, output)
	return result, nil
}

// CompileCatalog compiles every source in the catalog, or only the stale ones.
// It keeps going after a failure and returns the first error.
func (c *Compiler) CompileCatalog(ctx context.Context, catalog *ShaderCatalog, onlyStale bool) ([]CompileResult, error) {
	var targets []ShaderAsset
	if onlyStale {
		targets = catalog.Stale()
	} else {
		for _, name := range catalog.Names() {
			if asset, ok := catalog.Lookup(name); ok && !asset.SourceModTime.IsZero() {
				targets = append(targets, asset)
			}
		}
	}

	var (
		results  []CompileResult
		firstErr error
	)
	for _, asset := range targets {
		res, err := c.Compile(ctx, asset.Source)
		results = append(results, res)
		if err != nil {
			core.LogError(err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		catalog.Refresh(asset.Name)
	}
	return results, firstErr
}
