// Package entity is the arena holding every materialized object. Entities
// are addressed by handle; a trunk owns its leaves through a handle list.
package entity

import (
	"github.com/go-gl/mathgl/mgl64"

	"worldstream/internal/foliage"
)

type ID uint64

type Kind string

const (
	KindBlock Kind = "block"
	KindTrunk Kind = "trunk"
	KindLeaf  Kind = "leaf"
)

// Entity is a single materialized object. Position is the top-left corner
// in screen-style coordinates.
type Entity struct {
	ID       ID
	Kind     Kind
	Layer    Layer
	Column   int // block-aligned x the entity was generated for
	Position mgl64.Vec2
	Size     mgl64.Vec2
	Color    string
	Angle    float64
	Opacity  float64

	Leaf   *foliage.Leaf // leaves only
	Owner  ID            // leaves only
	Leaves []ID          // trunks only
}

// View is a read-only copy handed to renderers and physics collaborators.
type View struct {
	ID       ID
	Kind     Kind
	Layer    Layer
	Column   int
	Position mgl64.Vec2
	Size     mgl64.Vec2
	Color    string
	Angle    float64
	Opacity  float64
	Phase    foliage.Phase
}

func (e *Entity) Snapshot() View {
	v := View{
		ID:       e.ID,
		Kind:     e.Kind,
		Layer:    e.Layer,
		Column:   e.Column,
		Position: e.Position,
		Size:     e.Size,
		Color:    e.Color,
		Angle:    e.Angle,
		Opacity:  e.Opacity,
	}
	if e.Leaf != nil {
		v.Phase = e.Leaf.Phase()
	}
	return v
}

// SyncLeaf copies the leaf's pose and layer membership onto the entity.
// It reports whether the layer changed.
func (e *Entity) SyncLeaf(base mgl64.Vec2) bool {
	if e.Leaf == nil {
		return false
	}
	pose := e.Leaf.Pose()
	e.Position = pose.Position
	e.Size = mgl64.Vec2{base.X() + pose.WidthDelta, base.Y()}
	e.Angle = pose.Angle
	e.Opacity = pose.Opacity
	layer := LayerLeaf
	if e.Leaf.Detached() {
		layer = LayerFallingLeaf
	}
	if layer == e.Layer {
		return false
	}
	e.Layer = layer
	return true
}
