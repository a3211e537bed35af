package engine

import (
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/editor"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/systems"
)

type EditorConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	// Notifications replayed to a client when it connects.
	Backlog int `toml:"backlog"`
}

type WatcherConfig struct {
	Enabled bool `toml:"enabled"`
	// Quiet period before a changed file is reported, e.g. "200ms".
	Debounce string `toml:"debounce"`
}

type ApplicationConfig struct {
	// The application name reported to the renderer backend.
	Name string `toml:"name"`
	// The resource tree every loader is rooted at. `~` is expanded.
	RootPath string `toml:"root_path"`
	// One of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// The renderer backend, only headless is available.
	Renderer string `toml:"renderer"`
	// Version line prepended to every generated shader stage.
	ShaderVersion string `toml:"shader_version"`
	// Resize converted images to the next power of two.
	TexturePowerOfTwo bool `toml:"texture_power_of_two"`
	// Pixel size glyph atlases are rasterized at.
	FontSize uint32 `toml:"font_size"`
	// Commands the engine loop accepts before producers block.
	CommandQueueSize int `toml:"command_queue_size"`
	// Target duration of one engine tick, e.g. "16ms".
	TickInterval string `toml:"tick_interval"`

	Editor  EditorConfig  `toml:"editor"`
	Watcher WatcherConfig `toml:"watcher"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:             "Prism",
		RootPath:         systems.DefaultResourcePath,
		LogLevel:         "info",
		Renderer:         "headless",
		ShaderVersion:    metadata.ShaderVersion,
		FontSize:         metadata.FontSize,
		CommandQueueSize: 64,
		TickInterval:     "16ms",
		Editor: EditorConfig{
			Enabled: true,
			Address: editor.DefaultAddress,
			Backlog: editor.DefaultBacklog,
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Debounce: "200ms",
		},
	}
}

/**
 * @brief Reads the configuration at path on top of the defaults. A missing
 * file is not an error, the defaults are used as they are.
 */
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			core.LogWarn("config file %s not found, using the defaults", path)
		case err != nil:
			return nil, errors.Wrapf(err, "failed to read %s", path)
		default:
			if err := toml.Unmarshal(data, config); err != nil {
				return nil, errors.Wrapf(err, "failed to parse %s", path)
			}
		}
	}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ApplicationConfig) normalize() error {
	if c.RootPath == "" {
		c.RootPath = systems.DefaultResourcePath
	}
	rootPath, err := homedir.Expand(c.RootPath)
	if err != nil {
		return errors.Wrapf(err, "invalid root_path %s", c.RootPath)
	}
	c.RootPath = rootPath
	if c.ShaderVersion == "" {
		c.ShaderVersion = metadata.ShaderVersion
	}
	if c.FontSize == 0 {
		c.FontSize = metadata.FontSize
	}
	if c.CommandQueueSize <= 0 {
		c.CommandQueueSize = 64
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	if _, err := c.TickDuration(); err != nil {
		return err
	}
	return nil
}

func (c *ApplicationConfig) Level() core.LogLevel {
	level, _ := core.ParseLogLevel(c.LogLevel)
	return level
}

func (c *ApplicationConfig) DebounceDuration() (time.Duration, error) {
	return parseDuration("watcher.debounce", c.Watcher.Debounce)
}

func (c *ApplicationConfig) TickDuration() (time.Duration, error) {
	return parseDuration("tick_interval", c.TickInterval)
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return d, nil
}
