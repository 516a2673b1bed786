package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
	if err := checkSchema(cfg); err != nil {
		t.Fatalf("default configuration should satisfy the schema: %v", err)
	}
}

func TestValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero block size",
			mutate:  func(cfg *Config) { cfg.World.BlockSize = 0 },
			wantErr: "world.blockSize must be positive",
		},
		{
			name:    "zero viewport",
			mutate:  func(cfg *Config) { cfg.World.Viewport.Height = 0 },
			wantErr: "world.viewport dimensions must be positive",
		},
		{
			name:    "no surface rows",
			mutate:  func(cfg *Config) { cfg.Terrain.SurfaceDepth = 0 },
			wantErr: "terrain.surfaceDepth must be at least 1",
		},
		{
			name:    "probability above one",
			mutate:  func(cfg *Config) { cfg.Flora.Probability = 1.5 },
			wantErr: "flora.probability must be within [0,1]",
		},
		{
			name: "inverted trunk range",
			mutate: func(cfg *Config) {
				cfg.Flora.TrunkMinHeight = 9
				cfg.Flora.TrunkMaxHeight = 8
			},
			wantErr: "flora.trunkMaxHeight must be >= trunkMinHeight",
		},
		{
			name:    "zero fade",
			mutate:  func(cfg *Config) { cfg.Foliage.FadeDuration = 0 },
			wantErr: "foliage.fadeDuration must be positive",
		},
		{
			name:    "negative lifetime",
			mutate:  func(cfg *Config) { cfg.Foliage.LifetimeMax = Duration(-time.Second) },
			wantErr: "foliage durations cannot be negative",
		},
		{
			name:    "step larger than buffer",
			mutate:  func(cfg *Config) { cfg.Window.MaxObserverStep = cfg.Window.Buffer + 1 },
			wantErr: "window.buffer must be >= maxObserverStep",
		},
		{
			name:    "window too narrow for its buffer",
			mutate:  func(cfg *Config) { cfg.Window.Width = 2*cfg.Window.Buffer + 1 },
			wantErr: "window.width must be at least three buffers",
		},
		{
			name:    "bad leaf color",
			mutate:  func(cfg *Config) { cfg.Flora.LeafColor = "green" },
			wantErr: "flora.leafColor must be a #rrggbb color",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("unexpected error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("default configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.World.Seed = 42
	cfg.Foliage.LifetimeMax = Duration(90 * time.Second)

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadLayersPartialYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.yaml")
	doc := `
world:
  seed: 7
  blockSize: 10
foliage:
  fadeDuration: 12s
  returnDuration: 250000000
window:
  width: 1200
  buffer: 300
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.World.Seed != 7 || got.World.BlockSize != 10 {
		t.Fatalf("world overrides not applied: %+v", got.World)
	}
	if got.World.Viewport != Default().World.Viewport {
		t.Fatalf("viewport should keep defaults, got %+v", got.World.Viewport)
	}
	if got.Foliage.FadeDuration.Duration() != 12*time.Second {
		t.Fatalf("fade duration = %v, want 12s", got.Foliage.FadeDuration.Duration())
	}
	if got.Foliage.ReturnDuration.Duration() != 250*time.Millisecond {
		t.Fatalf("return duration = %v, want 250ms", got.Foliage.ReturnDuration.Duration())
	}
	if got.Window.Width != 1200 || got.Window.Buffer != 300 {
		t.Fatalf("window overrides not applied: %+v", got.Window)
	}
}

func TestLoadInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Window.Width = cfg.Window.Buffer

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err = Load(path)
	if err == nil {
		t.Fatalf("expected load to fail")
	}
	if !strings.Contains(err.Error(), "validate config: window.width must be at least three buffers") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
terrain:
  baseColor: "#zzzzzz"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected schema failure")
	}
	if !strings.HasPrefix(err.Error(), "schema config:") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckDocument(t *testing.T) {
	if err := CheckDocument([]byte(`{"world":{"seed":1}}`)); err == nil {
		t.Fatalf("expected missing sections to fail")
	}
	raw, err := json.Marshal(Default())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := CheckDocument(raw); err != nil {
		t.Fatalf("default document rejected: %v", err)
	}
}

func TestDurationJSONForms(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{`"1.5s"`, 1500 * time.Millisecond},
		{`2000000`, 2 * time.Millisecond},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tt := range tests {
		var d Duration
		if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if d.Duration() != tt.want {
			t.Fatalf("unmarshal %s = %v, want %v", tt.in, d.Duration(), tt.want)
		}
	}
	var d Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
