package engine

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/config"
	"github.com/maiadx/openxr-app/engine/core"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LoadApplicationConfig resolves the configuration of a run, from the file
// at path or from the defaults when path is empty, and configures logging
// from it. The returned closer releases the log file, if any.
func LoadApplicationConfig(path string) (config.Config, io.Closer, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, nil, err
		}
	}

	if cfg.Log.File == "" {
		core.LogConfigure(cfg.Log.Level, nil)
		return cfg, nopCloser{}, nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return cfg, nil, errors.Wrapf(err, "open log file %s", cfg.Log.File)
	}
	core.LogConfigure(cfg.Log.Level, f)
	return cfg, f, nil
}
