package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config is resolved once at startup and passed by value into the renderer.
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Shaders     ShaderConfig      `toml:"shaders"`
	XR          XRConfig          `toml:"xr"`
	Log         LogConfig         `toml:"log"`
}

type ApplicationConfig struct {
	// The application name used in windowing and in the Vulkan application info.
	Name string `toml:"name"`
	// Window starting position, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting size, if applicable.
	StartWidth  uint32 `toml:"start_width"`
	StartHeight uint32 `toml:"start_height"`
}

type RendererConfig struct {
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	Validation bool `toml:"validation"`
	// Number of frame slots cycled by the frame sync manager.
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Number of multiview views (2 for stereo). 1 disables multiview.
	ViewCount uint32 `toml:"view_count"`
	// Upper bound for every fence wait. A timeout is fatal.
	FenceTimeout Duration `toml:"fence_timeout"`
	// Requested swapchain size when the surface leaves the extent undefined.
	DefaultWidth  uint32 `toml:"default_width"`
	DefaultHeight uint32 `toml:"default_height"`
	// Device extensions required on top of VK_KHR_swapchain.
	DeviceExtensions []string `toml:"device_extensions"`
}

type ShaderConfig struct {
	Directory string `toml:"directory"`
	// Source names; the compiled artifact is "<name>.spv".
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
	// External source-to-bytecode compiler invoked on start when CompileOnStart is set.
	Compiler       string `toml:"compiler"`
	CompileOnStart bool   `toml:"compile_on_start"`
}

type XRConfig struct {
	Enabled bool `toml:"enabled"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Duration decodes TOML strings such as "1s" or "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", string(text))
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Application: ApplicationConfig{
			Name:        "openxr-app",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		Renderer: RendererConfig{
			Validation:     false,
			FramesInFlight: 2,
			ViewCount:      2,
			FenceTimeout:   Duration{time.Second},
			DefaultWidth:   800,
			DefaultHeight:  600,
		},
		Shaders: ShaderConfig{
			Directory: "resources/shaders",
			Vertex:    "fullscreen.vert",
			Fragment:  "debug_pattern.frag",
			Compiler:  "glslangValidator",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file on top of Default. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Renderer.FramesInFlight == 0 {
		return errors.New("renderer.frames_in_flight must be at least 1")
	}
	if c.Renderer.ViewCount == 0 || c.Renderer.ViewCount > 32 {
		return errors.Errorf("renderer.view_count must be in [1, 32], got %d", c.Renderer.ViewCount)
	}
	if c.Renderer.FenceTimeout.Duration <= 0 {
		return errors.New("renderer.fence_timeout must be positive")
	}
	if c.Shaders.Directory == "" {
		return errors.New("shaders.directory must be set")
	}
	return nil
}
