package terrain

import (
	"errors"
	"image/color"

	"worldstream/internal/config"
	"worldstream/internal/mathx"
)

type Stratum uint8

const (
	StratumSurface Stratum = iota + 1
	StratumFill
)

func (s Stratum) String() string {
	switch s {
	case StratumSurface:
		return "surface"
	case StratumFill:
		return "fill"
	default:
		return "unknown"
	}
}

// Block is a single terrain tile descriptor. X and Y are the tile's top-left
// corner and are multiples of the block size.
type Block struct {
	X       int
	Y       int
	Stratum Stratum
	Color   string
}

const colorSalt = 0x2545f491

// Rasterizer emits terrain blocks for spans of columns. It does not own any
// entity storage; callers decide where the blocks go.
type Rasterizer struct {
	height       *Height
	seed         int64
	bottom       int
	surfaceDepth int
	base         color.RGBA
	jitter       int
}

func NewRasterizer(seed int64, height *Height, world config.WorldConfig, cfg config.TerrainConfig) (*Rasterizer, error) {
	if height == nil {
		return nil, errors.New("terrain: height function required")
	}
	base, ok := mathx.ParseHexColor(cfg.BaseColor)
	if !ok {
		return nil, errors.New("terrain: base color must be #rrggbb")
	}
	return &Rasterizer{
		height:       height,
		seed:         mathx.Salt(seed, colorSalt),
		bottom:       world.Viewport.Height + cfg.SafetyDepth,
		surfaceDepth: cfg.SurfaceDepth,
		base:         base,
		jitter:       cfg.ColorJitter,
	}, nil
}

func (r *Rasterizer) Height() *Height { return r.height }

// Columns lists the block-aligned column positions covering [minX, maxX)
// plus one extra column past the right edge so no seam shows.
func (r *Rasterizer) Columns(minX, maxX int) []int {
	u := r.height.unit
	start := mathx.SnapDown(minX, u)
	end := mathx.SnapUp(maxX, u) + u
	if end <= start {
		return nil
	}
	cols := make([]int, 0, (end-start)/u)
	for x := start; x < end; x += u {
		cols = append(cols, x)
	}
	return cols
}

// Column walks down from the ground level at x to the rasterization floor,
// one block per row. The first surfaceDepth rows are surface crust.
func (r *Rasterizer) Column(x int) []Block {
	u := r.height.unit
	top := r.height.At(x)
	if top > r.bottom {
		return nil
	}
	blocks := make([]Block, 0, (r.bottom-top)/u+1)
	row := 0
	for y := top; y <= r.bottom; y += u {
		stratum := StratumFill
		if row < r.surfaceDepth {
			stratum = StratumSurface
		}
		blocks = append(blocks, Block{X: x, Y: y, Stratum: stratum, Color: r.color(x, y)})
		row++
	}
	return blocks
}

// Rasterize returns every block for the span [minX, maxX).
func (r *Rasterizer) Rasterize(minX, maxX int) []Block {
	var blocks []Block
	for _, x := range r.Columns(minX, maxX) {
		blocks = append(blocks, r.Column(x)...)
	}
	return blocks
}

func (r *Rasterizer) color(x, y int) string {
	if r.jitter == 0 {
		return mathx.FormatHexColor(r.base)
	}
	rng := mathx.SourceAt2(r.seed, x, y)
	span := 2*r.jitter + 1
	c := color.RGBA{
		R: mathx.JitterChannel(r.base.R, rng.Intn(span)-r.jitter),
		G: mathx.JitterChannel(r.base.G, rng.Intn(span)-r.jitter),
		B: mathx.JitterChannel(r.base.B, rng.Intn(span)-r.jitter),
		A: 0xff,
	}
	return mathx.FormatHexColor(c)
}
