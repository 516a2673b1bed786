// Package flora decides where vegetation grows. Every decision is derived
// from (seed, x) alone, so a column regenerates identically no matter how
// often or in which order it is revisited.
package flora

import (
	"errors"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"

	"worldstream/internal/config"
	"worldstream/internal/mathx"
	"worldstream/internal/terrain"
)

const (
	rollSalt     = 0x7f4a7c15
	densitySalt  = 0x94d049bb
	prioritySalt = 0xbf58476d
	leafSalt     = 0x1ce4e5b9
)

// LeafSlot is one cell of a canopy grid.
type LeafSlot struct {
	Row, Col int
	Home     mgl64.Vec2
	Seed     int64
}

// Tree is a fully derived vegetation instance: a single trunk column and its
// odd-sized square canopy.
type Tree struct {
	X      int
	Ground int
	Top    int
	Height int // blocks
	Canopy int // canopy side length in cells, always odd
	Leaves []LeafSlot
}

// Placer decides vegetation per column.
type Placer struct {
	height      *terrain.Height
	unit        int
	rollSeed    int64
	leafSeed    int64
	prioSeed    int64
	probability float64
	variation   float64
	densityFreq float64
	trunkMin    int
	trunkMax    int
	spacing     int
	density     *perlin.Perlin
}

func NewPlacer(seed int64, height *terrain.Height, cfg config.FloraConfig) (*Placer, error) {
	if height == nil {
		return nil, errors.New("flora: height function required")
	}
	if cfg.TrunkMinHeight < 2 || cfg.TrunkMaxHeight < cfg.TrunkMinHeight {
		return nil, errors.New("flora: invalid trunk height range")
	}
	return &Placer{
		height:      height,
		unit:        height.Unit(),
		rollSeed:    mathx.Salt(seed, rollSalt),
		leafSeed:    mathx.Salt(seed, leafSalt),
		prioSeed:    mathx.Salt(seed, prioritySalt),
		probability: cfg.Probability,
		variation:   cfg.DensityVariation,
		densityFreq: cfg.DensityFrequency,
		trunkMin:    cfg.TrunkMinHeight,
		trunkMax:    cfg.TrunkMaxHeight,
		spacing:     cfg.MinTrunkSpacing,
		density:     perlin.NewPerlin(2, 2, 3, mathx.Salt(seed, densitySalt)),
	}, nil
}

// Density is the multiplier applied to the base acceptance probability at x.
func (p *Placer) Density(x int) float64 {
	if p.variation == 0 || p.densityFreq == 0 {
		return 1
	}
	n := mathx.Clamp(p.density.Noise1D(float64(x)*p.densityFreq)*2, -1, 1)
	return 1 + p.variation*n
}

func (p *Placer) acceptance(x int) float64 {
	return mathx.Clamp(p.probability*p.Density(x), 0, 1)
}

// roll performs the column's own draws: acceptance first, then trunk height.
func (p *Placer) roll(x int) (bool, int) {
	rng := mathx.SourceAt(p.rollSeed, x)
	accepted := rng.Float64() < p.acceptance(x)
	h := p.trunkMin + rng.Intn(p.trunkMax-p.trunkMin+1)
	return accepted, h
}

// yields reports whether a spacing rule evicts x in favour of a neighbour.
// Priority depends only on position, so the outcome is the same regardless
// of which column is examined first.
func (p *Placer) yields(x int) bool {
	if p.spacing <= 0 {
		return false
	}
	mine := mathx.Hash1(p.prioSeed, x)
	for d := 1; d <= p.spacing; d++ {
		for _, nx := range [2]int{x - d*p.unit, x + d*p.unit} {
			if ok, _ := p.roll(nx); !ok {
				continue
			}
			theirs := mathx.Hash1(p.prioSeed, nx)
			if theirs > mine || (theirs == mine && nx < x) {
				return true
			}
		}
	}
	return false
}

// At derives the vegetation at block-aligned column x, if any.
func (p *Placer) At(x int) (Tree, bool) {
	x = mathx.SnapDown(x, p.unit)
	accepted, h := p.roll(x)
	if !accepted || p.yields(x) {
		return Tree{}, false
	}
	return p.build(x, h), true
}

// Place returns every tree whose column lies in [minX, maxX) after snapping
// both ends outward to block boundaries.
func (p *Placer) Place(minX, maxX int) []Tree {
	start := mathx.SnapDown(minX, p.unit)
	end := mathx.SnapUp(maxX, p.unit)
	var trees []Tree
	for x := start; x < end; x += p.unit {
		if t, ok := p.At(x); ok {
			trees = append(trees, t)
		}
	}
	return trees
}

// CanopySize returns the odd side length of the canopy for a trunk of h
// blocks.
func CanopySize(h int) int {
	n := int(math.Ceil(float64(h)/2))*2 - 3
	if n < 1 {
		return 1
	}
	return n
}

func (p *Placer) build(x, h int) Tree {
	u := p.unit
	ground := p.height.At(x)
	top := ground - h*u
	n := CanopySize(h)
	half := n / 2
	leaves := make([]LeafSlot, 0, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			hx := x - u*half + c*u
			hy := top - u*half + r*u
			leaves = append(leaves, LeafSlot{
				Row:  r,
				Col:  c,
				Home: mgl64.Vec2{float64(hx), float64(hy)},
				Seed: int64(mathx.Hash2(p.leafSeed, hx, hy)),
			})
		}
	}
	return Tree{X: x, Ground: ground, Top: top, Height: h, Canopy: n, Leaves: leaves}
}
