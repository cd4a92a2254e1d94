// Package config loads the engine settings file and the surface material table.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"kotor-render/core"
)

type WindowConfig struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Title      string `toml:"title"`
	VSync      bool   `toml:"vsync"`
	Fullscreen bool   `toml:"fullscreen"`
}

// GraphicsConfig controls the world pipeline.
type GraphicsConfig struct {
	AASamples        int     `toml:"aa_samples"`
	ShadowResolution int     `toml:"shadow_resolution"`
	DrawDistance     float32 `toml:"draw_distance"`
	FieldOfView      float32 `toml:"fov"` // degrees
	Bloom            bool    `toml:"bloom"`
}

type SceneConfig struct {
	UpdateRoots    bool       `toml:"update_roots"`
	DrawWalkmeshes bool       `toml:"draw_walkmeshes"`
	DrawTriggers   bool       `toml:"draw_triggers"`
	AmbientColor   [3]float32 `toml:"ambient_color"`
	Surfaces       string     `toml:"surfaces,omitempty"` // YAML table, embedded default when empty
}

type AudioConfig struct {
	Enabled    bool    `toml:"enabled"`
	Volume     float64 `toml:"volume"` // 0..1
	SampleRate int     `toml:"sample_rate"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Graphics GraphicsConfig `toml:"graphics"`
	Scene    SceneConfig    `toml:"scene"`
	Audio    AudioConfig    `toml:"audio"`
}

func Default() Config {
	return Config{
		Window: WindowConfig{
			Width:  1024,
			Height: 768,
			Title:  "KotOR Render",
			VSync:  true,
		},
		Graphics: GraphicsConfig{
			AASamples:        4,
			ShadowResolution: 2048,
			DrawDistance:     64,
			FieldOfView:      55,
			Bloom:            true,
		},
		Scene: SceneConfig{
			UpdateRoots:  true,
			AmbientColor: [3]float32{0.2, 0.2, 0.2},
		},
		Audio: AudioConfig{
			Enabled:    true,
			Volume:     0.8,
			SampleRate: 44100,
		},
	}
}

// Load reads a TOML settings file. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown config keys:\n%s: %w", strict.String(), core.ErrInvalidArgument)
		}
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write encodes the configuration as TOML.
func (c Config) Write(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// Validate reports every out-of-range setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d", c.Window.Width, c.Window.Height)

	switch c.Graphics.AASamples {
	case 0, 1, 2, 4, 8, 16:
	default:
		check(false, "aa_samples %d is not one of 0, 1, 2, 4, 8, 16", c.Graphics.AASamples)
	}
	res := c.Graphics.ShadowResolution
	check(res >= 256 && res <= 8192 && res&(res-1) == 0, "shadow_resolution %d is not a power of two in [256, 8192]", res)
	check(c.Graphics.DrawDistance > 0, "draw_distance %v", c.Graphics.DrawDistance)
	check(c.Graphics.FieldOfView > 0 && c.Graphics.FieldOfView < 180, "fov %v", c.Graphics.FieldOfView)

	for i, v := range c.Scene.AmbientColor {
		check(v >= 0 && v <= 1, "ambient_color[%d] %v", i, v)
	}

	check(c.Audio.Volume >= 0 && c.Audio.Volume <= 1, "volume %v", c.Audio.Volume)
	check(!c.Audio.Enabled || c.Audio.SampleRate > 0, "sample_rate %d", c.Audio.SampleRate)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w: %w", errors.Join(errs...), core.ErrInvalidArgument)
	}
	return nil
}

// CoreWindowConfig converts the window section for core.NewWindow.
func (c WindowConfig) CoreWindowConfig() core.WindowConfig {
	cfg := core.DefaultWindowConfig()
	cfg.Width = c.Width
	cfg.Height = c.Height
	cfg.Title = c.Title
	cfg.VSync = c.VSync
	cfg.Fullscreen = c.Fullscreen
	return cfg
}
