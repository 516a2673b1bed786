package entity

import (
	"github.com/go-gl/mathgl/mgl64"

	"worldstream/internal/config"
)

// Appearance captures the visual defaults for one kind of entity.
type Appearance struct {
	Kind  Kind
	Color string
	Size  mgl64.Vec2
}

// Assets is the immutable visual table shared by every entity. It is built
// once from configuration and never mutated afterwards.
type Assets struct {
	unit   float64
	byKind map[Kind]Appearance
}

func NewAssets(cfg *config.Config) *Assets {
	u := float64(cfg.World.BlockSize)
	return &Assets{
		unit: u,
		byKind: map[Kind]Appearance{
			KindBlock: {Kind: KindBlock, Color: cfg.Terrain.BaseColor, Size: mgl64.Vec2{u, u}},
			KindTrunk: {Kind: KindTrunk, Color: cfg.Flora.TrunkColor, Size: mgl64.Vec2{u, u}},
			KindLeaf:  {Kind: KindLeaf, Color: cfg.Flora.LeafColor, Size: mgl64.Vec2{u, u}},
		},
	}
}

// For returns a copy of the appearance for kind.
func (a *Assets) For(kind Kind) Appearance {
	return a.byKind[kind]
}

// TrunkSize is the footprint of a trunk h blocks tall.
func (a *Assets) TrunkSize(h int) mgl64.Vec2 {
	return mgl64.Vec2{a.unit, a.unit * float64(h)}
}
