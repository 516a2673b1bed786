package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a JSON/YAML-friendly wrapper around time.Duration that accepts
// human readable strings such as "150ms" in configuration files while still
// allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML writes the same string form as MarshalJSON.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts "250ms" style strings or plain nanosecond integers.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got node kind %d", value.Kind)
	}
	if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the tunable parameters of the streaming world.
type Config struct {
	World   WorldConfig   `json:"world" yaml:"world"`
	Terrain TerrainConfig `json:"terrain" yaml:"terrain"`
	Flora   FloraConfig   `json:"flora" yaml:"flora"`
	Foliage FoliageConfig `json:"foliage" yaml:"foliage"`
	Window  WindowConfig  `json:"window" yaml:"window"`
	Tick    TickConfig    `json:"tick" yaml:"tick"`
	Trace   TraceConfig   `json:"trace" yaml:"trace"`
}

type WorldConfig struct {
	Seed      int64        `json:"seed" yaml:"seed"`
	BlockSize int          `json:"blockSize" yaml:"blockSize"` // edge length U of every block
	Viewport  ViewportSize `json:"viewport" yaml:"viewport"`
}

type ViewportSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

type TerrainConfig struct {
	BaselineRatio      float64 `json:"baselineRatio" yaml:"baselineRatio"`           // fraction of viewport height
	Amplitude          float64 `json:"amplitude" yaml:"amplitude"`                   // blocks
	Frequency          float64 `json:"frequency" yaml:"frequency"`                   // radians per pixel
	Roughness          float64 `json:"roughness" yaml:"roughness"`                   // blocks
	RoughnessFrequency float64 `json:"roughnessFrequency" yaml:"roughnessFrequency"` // simplex input scale
	SurfaceDepth       int     `json:"surfaceDepth" yaml:"surfaceDepth"`             // rows tagged as crust
	SafetyDepth        int     `json:"safetyDepth" yaml:"safetyDepth"`               // pixels below the viewport
	BaseColor          string  `json:"baseColor" yaml:"baseColor"`
	ColorJitter        int     `json:"colorJitter" yaml:"colorJitter"`
}

type FloraConfig struct {
	Probability      float64 `json:"probability" yaml:"probability"`
	DensityVariation float64 `json:"densityVariation" yaml:"densityVariation"`
	DensityFrequency float64 `json:"densityFrequency" yaml:"densityFrequency"`
	TrunkMinHeight   int     `json:"trunkMinHeight" yaml:"trunkMinHeight"` // blocks
	TrunkMaxHeight   int     `json:"trunkMaxHeight" yaml:"trunkMaxHeight"` // blocks, inclusive
	MinTrunkSpacing  int     `json:"minTrunkSpacing" yaml:"minTrunkSpacing"`
	TrunkColor       string  `json:"trunkColor" yaml:"trunkColor"`
	LeafColor        string  `json:"leafColor" yaml:"leafColor"`
}

type FoliageConfig struct {
	SwayDelayMax    Duration `json:"swayDelayMax" yaml:"swayDelayMax"`
	LifetimeMax     Duration `json:"lifetimeMax" yaml:"lifetimeMax"`
	FallDurationMax Duration `json:"fallDurationMax" yaml:"fallDurationMax"`
	FadeDuration    Duration `json:"fadeDuration" yaml:"fadeDuration"`
	DormantMax      Duration `json:"dormantMax" yaml:"dormantMax"`
	ReturnDuration  Duration `json:"returnDuration" yaml:"returnDuration"`
	SwayPeriod      Duration `json:"swayPeriod" yaml:"swayPeriod"`
	SwayAngle       float64  `json:"swayAngle" yaml:"swayAngle"` // degrees
	SizePulse       float64  `json:"sizePulse" yaml:"sizePulse"` // pixels added to width
	FallSpeed       float64  `json:"fallSpeed" yaml:"fallSpeed"` // pixels per second
	DriftSpeed      float64  `json:"driftSpeed" yaml:"driftSpeed"`
	DriftPeriod     Duration `json:"driftPeriod" yaml:"driftPeriod"`
}

type WindowConfig struct {
	Width           int `json:"width" yaml:"width"`
	Buffer          int `json:"buffer" yaml:"buffer"`
	MaxObserverStep int `json:"maxObserverStep" yaml:"maxObserverStep"` // pixels per tick
}

type TickConfig struct {
	Rate Duration `json:"rate" yaml:"rate"`
}

type TraceConfig struct {
	Path string `json:"path" yaml:"path"`
}

// Load reads configuration from a JSON or YAML file if provided. An empty path
// returns defaults. Values in the file are layered over Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := Decode(data, IsYAMLPath(path), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := checkSchema(cfg); err != nil {
		return nil, fmt.Errorf("schema config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Decode unmarshals data onto cfg using YAML or JSON.
func Decode(data []byte, isYAML bool, cfg *Config) error {
	if isYAML {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func IsYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func Default() *Config {
	const (
		viewportWidth = 1280
		buffer        = 100 + viewportWidth/2
	)
	return &Config{
		World: WorldConfig{
			Seed:      789456123,
			BlockSize: 30,
			Viewport:  ViewportSize{Width: viewportWidth, Height: 720},
		},
		Terrain: TerrainConfig{
			BaselineRatio:      0.7,
			Amplitude:          3,
			Frequency:          0.01,
			Roughness:          1.5,
			RoughnessFrequency: 0.004,
			SurfaceDepth:       2,
			SafetyDepth:        240,
			BaseColor:          "#d47b4a",
			ColorJitter:        10,
		},
		Flora: FloraConfig{
			Probability:      0.09,
			DensityVariation: 0.5,
			DensityFrequency: 0.002,
			TrunkMinHeight:   8,
			TrunkMaxHeight:   11,
			MinTrunkSpacing:  0,
			TrunkColor:       "#643214",
			LeafColor:        "#32c81e",
		},
		Foliage: FoliageConfig{
			SwayDelayMax:    Duration(10 * time.Second),
			LifetimeMax:     Duration(300 * time.Second),
			FallDurationMax: Duration(10 * time.Second),
			FadeDuration:    Duration(30 * time.Second),
			DormantMax:      Duration(45 * time.Second),
			ReturnDuration:  Duration(500 * time.Millisecond),
			SwayPeriod:      Duration(5 * time.Second),
			SwayAngle:       15,
			SizePulse:       5,
			FallSpeed:       150,
			DriftSpeed:      100,
			DriftPeriod:     Duration(2 * time.Second),
		},
		Window: WindowConfig{
			Width:           viewportWidth + 2*buffer,
			Buffer:          buffer,
			MaxObserverStep: 60,
		},
		Tick: TickConfig{
			Rate: Duration(16 * time.Millisecond),
		},
	}
}

func (c *Config) Validate() error {
	if c.World.BlockSize <= 0 {
		return errors.New("world.blockSize must be positive")
	}
	if c.World.Viewport.Width <= 0 || c.World.Viewport.Height <= 0 {
		return errors.New("world.viewport dimensions must be positive")
	}
	if c.Terrain.SurfaceDepth < 1 {
		return errors.New("terrain.surfaceDepth must be at least 1")
	}
	if c.Terrain.SafetyDepth < 0 {
		return errors.New("terrain.safetyDepth cannot be negative")
	}
	if c.Terrain.ColorJitter < 0 {
		return errors.New("terrain.colorJitter cannot be negative")
	}
	if c.Flora.Probability < 0 || c.Flora.Probability > 1 {
		return errors.New("flora.probability must be within [0,1]")
	}
	if c.Flora.DensityVariation < 0 || c.Flora.DensityVariation > 1 {
		return errors.New("flora.densityVariation must be within [0,1]")
	}
	if c.Flora.TrunkMinHeight < 2 {
		return errors.New("flora.trunkMinHeight must be at least 2")
	}
	if c.Flora.TrunkMaxHeight < c.Flora.TrunkMinHeight {
		return errors.New("flora.trunkMaxHeight must be >= trunkMinHeight")
	}
	if c.Flora.MinTrunkSpacing < 0 {
		return errors.New("flora.minTrunkSpacing cannot be negative")
	}
	f := c.Foliage
	if f.SwayDelayMax < 0 || f.LifetimeMax < 0 || f.FallDurationMax < 0 || f.DormantMax < 0 || f.ReturnDuration < 0 {
		return errors.New("foliage durations cannot be negative")
	}
	if f.FadeDuration <= 0 {
		return errors.New("foliage.fadeDuration must be positive")
	}
	if f.SwayPeriod <= 0 || f.DriftPeriod <= 0 {
		return errors.New("foliage sway and drift periods must be positive")
	}
	if f.FallSpeed < 0 || f.DriftSpeed < 0 {
		return errors.New("foliage speeds cannot be negative")
	}
	if c.Window.Buffer <= 0 {
		return errors.New("window.buffer must be positive")
	}
	if c.Window.MaxObserverStep < 0 {
		return errors.New("window.maxObserverStep cannot be negative")
	}
	if c.Window.MaxObserverStep > c.Window.Buffer {
		return errors.New("window.buffer must be >= maxObserverStep")
	}
	if c.Window.Width < 3*c.Window.Buffer {
		return errors.New("window.width must be at least three buffers")
	}
	if c.Tick.Rate < 0 {
		return errors.New("tick.rate cannot be negative")
	}
	colors := []struct {
		name  string
		value string
	}{
		{"terrain.baseColor", c.Terrain.BaseColor},
		{"flora.trunkColor", c.Flora.TrunkColor},
		{"flora.leafColor", c.Flora.LeafColor},
	}
	for _, col := range colors {
		if !isHexColor(col.value) {
			return fmt.Errorf("%s must be a #rrggbb color", col.name)
		}
	}
	return nil
}

func isHexColor(value string) bool {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(trimmed) != 6 {
		return false
	}
	_, err := strconv.ParseUint(trimmed, 16, 32)
	return err == nil
}
