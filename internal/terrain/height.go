// Package terrain turns a world seed into ground. Height maps a horizontal
// coordinate to a block-aligned ground level and Rasterizer expands a span
// of columns into blocks.
package terrain

import (
	"errors"
	"math"

	"github.com/ojrac/opensimplex-go"

	"worldstream/internal/config"
	"worldstream/internal/mathx"
)

const roughnessSalt = 0x5f3759df

// Height is the pure ground function. It holds only read-only state and is
// safe for concurrent use.
type Height struct {
	unit          int
	baseline      float64
	amplitude     float64
	frequency     float64
	roughness     float64
	roughnessFreq float64
	noise         opensimplex.Noise
}

func NewHeight(seed int64, world config.WorldConfig, cfg config.TerrainConfig) (*Height, error) {
	if world.BlockSize <= 0 {
		return nil, errors.New("terrain: block size must be positive")
	}
	unit := float64(world.BlockSize)
	return &Height{
		unit:          world.BlockSize,
		baseline:      cfg.BaselineRatio * float64(world.Viewport.Height),
		amplitude:     cfg.Amplitude * unit,
		frequency:     cfg.Frequency,
		roughness:     cfg.Roughness * unit,
		roughnessFreq: cfg.RoughnessFrequency,
		noise:         opensimplex.New(mathx.Salt(seed, roughnessSalt)),
	}, nil
}

// Unit is the block edge length the heights are snapped to.
func (h *Height) Unit() int { return h.unit }

// Smooth returns the unquantized ground level at x. y grows downward.
func (h *Height) Smooth(x float64) float64 {
	y := h.baseline
	if h.amplitude != 0 {
		y += h.amplitude * math.Sin(h.frequency*x)
	}
	if h.roughness != 0 {
		y += h.roughness * h.noise.Eval2(h.roughnessFreq*x, 0)
	}
	return y
}

// At returns the ground level at x truncated to the nearest lower multiple
// of the block size.
func (h *Height) At(x int) int {
	return mathx.SnapDown(int(math.Floor(h.Smooth(float64(x)))), h.unit)
}

// Column returns the height of the block column containing x, which may be
// any real coordinate.
func (h *Height) Column(x float64) int {
	return h.At(mathx.SnapDown(int(math.Floor(x)), h.unit))
}
