// Package world streams generated content around a moving observer. The
// Manager owns the window, the entity arena and the logical clock that
// drives every leaf.
package world

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"worldstream/internal/config"
	"worldstream/internal/entity"
	"worldstream/internal/flora"
	"worldstream/internal/foliage"
	"worldstream/internal/mathx"
	"worldstream/internal/terrain"
	"worldstream/internal/trace"
)

// maxCoordinate bounds observer positions so window arithmetic stays exact
// in both float64 and int.
const maxCoordinate = 1 << 52

// EventSink receives window activity. trace.Journal satisfies it.
type EventSink interface {
	Record(trace.Event) error
}

type Options struct {
	Logger *log.Logger
	Sink   EventSink
}

// TickReport summarises what a single Tick did.
type TickReport struct {
	Tick        uint64
	Clock       time.Duration
	Window      Window
	Shifts      int
	Created     int
	Destroyed   int
	Transitions int
	Landed      int
	Overstep    bool
	Rejected    bool // observer position was not a usable coordinate
}

// Stats counts live entities by role.
type Stats struct {
	Blocks        int
	Trunks        int
	Leaves        int
	FallingLeaves int
}

// Snapshot is the renderer-facing state after a tick.
type Snapshot struct {
	Tick   uint64
	Clock  time.Duration
	Window Window
	Views  []entity.View
}

type Manager struct {
	cfg     *config.Config
	logger  *log.Logger
	sink    EventSink
	unit    int
	height  *terrain.Height
	raster  *terrain.Rasterizer
	placer  *flora.Placer
	timings *foliage.Timings
	assets  *entity.Assets
	store   *entity.Store

	window    Window
	blockCols map[int]struct{}
	floraCols map[int]entity.ID

	tick         uint64
	clock        time.Duration
	lastObserver float64
}

// NewManager validates cfg, builds the generators and materializes the
// initial window centred on observerX.
func NewManager(cfg *config.Config, observerX float64, opts Options) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	seed := cfg.World.Seed
	height, err := terrain.NewHeight(seed, cfg.World, cfg.Terrain)
	if err != nil {
		return nil, err
	}
	raster, err := terrain.NewRasterizer(seed, height, cfg.World, cfg.Terrain)
	if err != nil {
		return nil, err
	}
	placer, err := flora.NewPlacer(seed, height, cfg.Flora)
	if err != nil {
		return nil, err
	}
	timings, err := foliage.NewTimings(cfg.Foliage)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	unit := cfg.World.BlockSize
	m := &Manager{
		cfg:          cfg,
		logger:       logger,
		sink:         opts.Sink,
		unit:         unit,
		height:       height,
		raster:       raster,
		placer:       placer,
		timings:      timings,
		assets:       entity.NewAssets(cfg),
		store:        entity.NewStore(),
		window:       NewWindow(observerX, cfg.Window.Width, cfg.Window.Buffer, unit),
		blockCols:    make(map[int]struct{}),
		floraCols:    make(map[int]entity.ID),
		lastObserver: observerX,
	}
	created := m.materialize(m.window.Start, m.window.End)
	m.record(trace.Event{Kind: trace.KindShift, Observer: observerX, Start: m.window.Start, End: m.window.End, Created: created})
	return m, nil
}

func (m *Manager) Window() Window { return m.window }

func (m *Manager) Clock() time.Duration { return m.clock }

func (m *Manager) Height() *terrain.Height { return m.height }

func (m *Manager) Store() *entity.Store { return m.store }

// Tick advances the world by dt with the observer at observerX.
func (m *Manager) Tick(observerX float64, dt time.Duration) TickReport {
	m.tick++
	report := TickReport{Tick: m.tick}

	if finite(observerX) && math.Abs(observerX) <= maxCoordinate {
		m.updateWindow(observerX, &report)
	} else {
		report.Rejected = true
		m.logger.Printf("ignoring observer position %v outside the playable axis", observerX)
	}

	if dt > 0 {
		m.clock += dt
	}
	report.Transitions, report.Landed = m.advanceFoliage()

	report.Clock = m.clock
	report.Window = m.window
	return report
}

// updateWindow shifts the window until observerX is buffered. A far jump
// relocates the window in one step so only the destination is built; every
// shift is followed by a sweep so at most one window plus one strip is live.
func (m *Manager) updateWindow(observerX float64, report *TickReport) {
	if limit := m.cfg.Window.MaxObserverStep; limit > 0 {
		if step := math.Abs(observerX - m.lastObserver); step > float64(limit) {
			report.Overstep = true
			m.logger.Printf("observer moved %.1fpx in one tick (limit %d); window buffer %d may leave gaps",
				step, limit, m.window.Buffer)
		}
	}
	m.lastObserver = observerX

	if next, shifts, ok := m.window.Leap(observerX); ok {
		m.window = next
		report.Destroyed += m.Sweep()
		created := m.materialize(next.Start, next.End)
		report.Shifts += shifts
		report.Created += created
		m.record(trace.Event{Kind: trace.KindShift, Observer: observerX, Start: next.Start, End: next.End, Created: created})
	}
	for {
		next, strip, ok := m.window.Step(observerX)
		if !ok {
			break
		}
		m.window = next
		created := m.materialize(strip.From, strip.To)
		report.Shifts++
		report.Created += created
		m.record(trace.Event{Kind: trace.KindShift, Observer: observerX, Start: next.Start, End: next.End, Created: created})
		report.Destroyed += m.Sweep()
	}
}

// materialize creates terrain and vegetation for the span [from, to). Columns
// already present are skipped, so overlapping spans never duplicate.
func (m *Manager) materialize(from, to int) int {
	created := 0
	block := m.assets.For(entity.KindBlock)
	for _, x := range m.raster.Columns(from, to) {
		if !m.window.Contains(x) {
			continue
		}
		if _, ok := m.blockCols[x]; ok {
			continue
		}
		m.blockCols[x] = struct{}{}
		for _, b := range m.raster.Column(x) {
			layer := entity.LayerGroundFill
			if b.Stratum == terrain.StratumSurface {
				layer = entity.LayerGroundSurface
			}
			_, err := m.store.Add(&entity.Entity{
				Kind:     entity.KindBlock,
				Layer:    layer,
				Column:   x,
				Position: mgl64.Vec2{float64(b.X), float64(b.Y)},
				Size:     block.Size,
				Color:    b.Color,
				Opacity:  1,
			})
			if err != nil {
				m.logger.Printf("materialize block at %d,%d: %v", b.X, b.Y, err)
				continue
			}
			created++
		}
	}

	start := mathx.SnapDown(from, m.unit)
	end := mathx.SnapUp(to, m.unit)
	for x := start; x < end; x += m.unit {
		if !m.window.Contains(x) {
			continue
		}
		if _, ok := m.floraCols[x]; ok {
			continue
		}
		m.floraCols[x] = 0
		tree, ok := m.placer.At(x)
		if !ok {
			continue
		}
		n, err := m.plant(tree)
		if err != nil {
			m.logger.Printf("plant tree at %d: %v", x, err)
		}
		created += n
	}
	return created
}

func (m *Manager) plant(tree flora.Tree) (int, error) {
	trunkLook := m.assets.For(entity.KindTrunk)
	leafLook := m.assets.For(entity.KindLeaf)
	trunk, err := m.store.Add(&entity.Entity{
		Kind:     entity.KindTrunk,
		Layer:    entity.LayerTrunk,
		Column:   tree.X,
		Position: mgl64.Vec2{float64(tree.X), float64(tree.Top)},
		Size:     m.assets.TrunkSize(tree.Height),
		Color:    trunkLook.Color,
		Opacity:  1,
	})
	if err != nil {
		return 0, err
	}
	m.floraCols[tree.X] = trunk
	created := 1
	for _, slot := range tree.Leaves {
		leaf := &entity.Entity{
			Kind:   entity.KindLeaf,
			Layer:  entity.LayerLeaf,
			Column: tree.X,
			Color:  leafLook.Color,
			Leaf:   foliage.NewLeaf(slot.Home, slot.Seed, m.timings, m.clock),
		}
		leaf.SyncLeaf(leafLook.Size)
		if _, err := m.store.Attach(trunk, leaf); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// Sweep destroys every block and tree whose column lies outside the
// retention bound. Removal happens after the scan completes. It returns the
// number of entities destroyed, leaves included.
func (m *Manager) Sweep() int {
	w := m.window
	doomed := m.store.Collect(func(e *entity.Entity) bool {
		return e.Kind != entity.KindLeaf && !w.Contains(e.Column)
	})
	destroyed := 0
	for _, id := range doomed {
		destroyed += m.store.Remove(id)
	}
	for x := range m.blockCols {
		if !w.Contains(x) {
			delete(m.blockCols, x)
		}
	}
	for x := range m.floraCols {
		if !w.Contains(x) {
			delete(m.floraCols, x)
		}
	}
	if destroyed > 0 {
		m.record(trace.Event{Kind: trace.KindSweep, Observer: m.lastObserver, Start: w.Start, End: w.End, Destroyed: destroyed})
	}
	return destroyed
}

// advanceFoliage runs every leaf's timers up to the current clock, syncs
// poses and layers into the arena, then settles airborne leaves that reached
// the ground.
func (m *Manager) advanceFoliage() (transitions, landed int) {
	size := m.assets.For(entity.KindLeaf).Size
	leaves := append(m.store.InLayer(entity.LayerLeaf), m.store.InLayer(entity.LayerFallingLeaf)...)
	for _, e := range leaves {
		transitions += len(e.Leaf.Advance(m.clock))
		prev := e.Layer
		if e.SyncLeaf(size) {
			m.store.Reindex(e, prev)
		}
	}
	for _, e := range m.store.InLayer(entity.LayerFallingLeaf) {
		if !e.Leaf.Airborne() {
			continue
		}
		ground := float64(m.height.Column(e.Position.X() + size.X()/2))
		if e.Position.Y()+size.Y() < ground {
			continue
		}
		if e.Leaf.Collide(m.clock, false) {
			e.Leaf.Settle(ground - size.Y())
			e.SyncLeaf(size)
			landed++
		}
	}
	return transitions, landed
}

// Collide reports a contact between two entities from an external physics
// pass. Only a leaf on the falling layer reacts, only to a layer it collides
// with, and never to another leaf.
func (m *Manager) Collide(a, b entity.ID) bool {
	ea, ok := m.store.Get(a)
	if !ok {
		return false
	}
	eb, ok := m.store.Get(b)
	if !ok {
		return false
	}
	return m.contact(ea, eb.Layer, eb.Kind == entity.KindLeaf) || m.contact(eb, ea.Layer, ea.Kind == entity.KindLeaf)
}

// CollideWith reports contact between a stored entity and something outside
// the arena, such as the observer.
func (m *Manager) CollideWith(id entity.ID, other entity.Layer) bool {
	e, ok := m.store.Get(id)
	if !ok {
		return false
	}
	return m.contact(e, other, false)
}

func (m *Manager) contact(e *entity.Entity, other entity.Layer, otherIsLeaf bool) bool {
	if e.Leaf == nil || e.Layer != entity.LayerFallingLeaf || !entity.Collides(e.Layer, other) {
		return false
	}
	if !e.Leaf.Collide(m.clock, otherIsLeaf) {
		return false
	}
	e.SyncLeaf(m.assets.For(entity.KindLeaf).Size)
	return true
}

// InLayer returns views of one layer, for collision queries.
func (m *Manager) InLayer(layer entity.Layer) []entity.View {
	ents := m.store.InLayer(layer)
	out := make([]entity.View, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.Snapshot())
	}
	return out
}

func (m *Manager) Stats() Stats {
	return Stats{
		Blocks:        m.store.CountKind(entity.KindBlock),
		Trunks:        m.store.CountKind(entity.KindTrunk),
		Leaves:        m.store.CountKind(entity.KindLeaf),
		FallingLeaves: len(m.store.InLayer(entity.LayerFallingLeaf)),
	}
}

func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		Tick:   m.tick,
		Clock:  m.clock,
		Window: m.window,
		Views:  m.store.Views(),
	}
}

// RecordTick writes a periodic summary line to the sink, if any.
func (m *Manager) RecordTick(report TickReport) {
	m.record(trace.Event{
		Kind:        trace.KindTick,
		Observer:    m.lastObserver,
		Start:       report.Window.Start,
		End:         report.Window.End,
		Transitions: report.Transitions,
		Live:        m.store.Len(),
	})
}

func (m *Manager) record(ev trace.Event) {
	if m.sink == nil {
		return
	}
	ev.Tick = m.tick
	if err := m.sink.Record(ev); err != nil {
		m.logger.Printf("record %s event: %v", ev.Kind, err)
	}
}
