package entity

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"worldstream/internal/config"
	"worldstream/internal/foliage"
)

func newTrunk(t *testing.T, s *Store, x int) ID {
	t.Helper()
	id, err := s.Add(&Entity{Kind: KindTrunk, Layer: LayerTrunk, Column: x})
	if err != nil {
		t.Fatalf("add trunk: %v", err)
	}
	return id
}

func TestAddAssignsHandlesAndIndexesLayers(t *testing.T) {
	s := NewStore()
	a, err := s.Add(&Entity{Kind: KindBlock, Layer: LayerGroundSurface})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b, _ := s.Add(&Entity{Kind: KindBlock, Layer: LayerGroundFill})
	if a == 0 || b == a {
		t.Fatalf("handles not unique: %d %d", a, b)
	}
	if got := len(s.InLayer(LayerGroundSurface)); got != 1 {
		t.Fatalf("surface layer has %d entities", got)
	}
	if _, err := s.Add(&Entity{Kind: KindBlock}); err == nil {
		t.Fatalf("expected error for entity without layer")
	}
	if _, err := s.Add(nil); err == nil {
		t.Fatalf("expected error for nil entity")
	}
}

func TestRemovingTrunkRemovesCanopyInAnyPhase(t *testing.T) {
	timings, err := foliage.NewTimings(config.Default().Foliage)
	if err != nil {
		t.Fatalf("timings: %v", err)
	}
	s := NewStore()
	trunk := newTrunk(t, s, 0)

	var leaves []*foliage.Leaf
	for i := 0; i < 25; i++ {
		leaf := foliage.NewLeaf(mgl64.Vec2{float64(i), 0}, int64(i), timings, 0)
		// Spread leaves across phases.
		leaf.Advance(time.Duration(i) * 20 * time.Second)
		leaves = append(leaves, leaf)
		if _, err := s.Attach(trunk, &Entity{Kind: KindLeaf, Layer: LayerLeaf, Leaf: leaf}); err != nil {
			t.Fatalf("attach: %v", err)
		}
	}

	if got := s.Remove(trunk); got != 26 {
		t.Fatalf("removed %d entities, want 26", got)
	}
	if s.Len() != 0 || s.CountKind(KindLeaf) != 0 {
		t.Fatalf("store still holds %d entities", s.Len())
	}
	for i, leaf := range leaves {
		if leaf.Pending() {
			t.Fatalf("leaf %d still has a pending timer", i)
		}
		if fired := leaf.Advance(24 * time.Hour); len(fired) != 0 {
			t.Fatalf("leaf %d fired after destruction: %v", i, fired)
		}
	}
}

func TestLeafCannotOutliveOrLeaveItsTrunk(t *testing.T) {
	s := NewStore()
	trunk := newTrunk(t, s, 10)
	leaf, err := s.Attach(trunk, &Entity{Kind: KindLeaf, Layer: LayerLeaf})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got := s.Remove(leaf); got != 0 {
		t.Fatalf("leaf removed independently of its trunk")
	}
	if _, ok := s.Get(leaf); !ok {
		t.Fatalf("leaf missing")
	}
	if _, err := s.Attach(ID(999), &Entity{Kind: KindLeaf, Layer: LayerLeaf}); err == nil {
		t.Fatalf("attach to unknown trunk should fail")
	}
}

func TestCollectThenRemoveIsIdempotent(t *testing.T) {
	s := NewStore()
	for x := -50; x <= 50; x += 10 {
		if _, err := s.Add(&Entity{Kind: KindBlock, Layer: LayerGroundFill, Column: x}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	outside := func(e *Entity) bool { return e.Column < -20 || e.Column >= 20 }

	removed := 0
	for _, id := range s.Collect(outside) {
		removed += s.Remove(id)
	}
	if removed != 7 {
		t.Fatalf("first pass removed %d, want 7", removed)
	}
	if again := s.Collect(outside); len(again) != 0 {
		t.Fatalf("second pass found %d more", len(again))
	}
}

func TestSetLayerMovesBetweenIndexes(t *testing.T) {
	s := NewStore()
	trunk := newTrunk(t, s, 0)
	id, _ := s.Attach(trunk, &Entity{Kind: KindLeaf, Layer: LayerLeaf})
	s.SetLayer(id, LayerFallingLeaf)
	if len(s.InLayer(LayerLeaf)) != 0 || len(s.InLayer(LayerFallingLeaf)) != 1 {
		t.Fatalf("layer index not updated")
	}
}

func TestViewsAreSortedSnapshots(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		s.Add(&Entity{Kind: KindBlock, Layer: LayerGroundFill, Column: i})
	}
	views := s.Views()
	for i := 1; i < len(views); i++ {
		if views[i].ID <= views[i-1].ID {
			t.Fatalf("views not sorted: %v", views)
		}
	}
	views[0].Column = 1234
	if e, _ := s.Get(views[0].ID); e.Column == 1234 {
		t.Fatalf("view aliases the stored entity")
	}
}

func TestCollisionMatrix(t *testing.T) {
	tests := []struct {
		a, b Layer
		want bool
	}{
		{LayerObserver, LayerGroundSurface, true},
		{LayerGroundSurface, LayerObserver, true},
		{LayerObserver, LayerLeaf, true},
		{LayerFallingLeaf, LayerGroundSurface, true},
		{LayerLeaf, LayerGroundSurface, false},
		{LayerObserver, LayerGroundFill, false},
		{LayerFallingLeaf, LayerFallingLeaf, false},
		{LayerObserver, LayerTrunk, false},
	}
	for _, tt := range tests {
		if got := Collides(tt.a, tt.b); got != tt.want {
			t.Fatalf("Collides(%s,%s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestAssetsTable(t *testing.T) {
	cfg := config.Default()
	assets := NewAssets(cfg)
	leaf := assets.For(KindLeaf)
	if leaf.Color != cfg.Flora.LeafColor || leaf.Size.X() != float64(cfg.World.BlockSize) {
		t.Fatalf("leaf appearance %+v", leaf)
	}
	if got := assets.TrunkSize(8); got.Y() != float64(8*cfg.World.BlockSize) {
		t.Fatalf("trunk size %v", got)
	}
}
