package entity

import (
	"fmt"
	"sort"
)

// Store is the materialized entity set. It is driven from a single tick
// loop and is not safe for concurrent use.
type Store struct {
	next     ID
	entities map[ID]*Entity
	byLayer  map[Layer]map[ID]*Entity
}

func NewStore() *Store {
	return &Store{
		entities: make(map[ID]*Entity),
		byLayer:  make(map[Layer]map[ID]*Entity),
	}
}

// Add registers the entity under a fresh handle and returns it.
func (s *Store) Add(e *Entity) (ID, error) {
	if e == nil {
		return 0, fmt.Errorf("nil entity")
	}
	if e.Layer == 0 {
		return 0, fmt.Errorf("entity of kind %s missing layer", e.Kind)
	}
	s.next++
	e.ID = s.next
	s.entities[e.ID] = e
	s.index(e)
	return e.ID, nil
}

// Attach adds leaf under trunk. The trunk records the handle so removing
// it later removes the leaf too.
func (s *Store) Attach(trunk ID, leaf *Entity) (ID, error) {
	owner, ok := s.entities[trunk]
	if !ok || owner.Kind != KindTrunk {
		return 0, fmt.Errorf("trunk %d not registered", trunk)
	}
	leaf.Owner = trunk
	id, err := s.Add(leaf)
	if err != nil {
		return 0, err
	}
	owner.Leaves = append(owner.Leaves, id)
	return id, nil
}

// Remove destroys the entity and returns how many entities went with it.
// Removing a trunk removes its whole canopy and cancels every leaf timer.
// A leaf whose trunk is still registered cannot be removed on its own.
func (s *Store) Remove(id ID) int {
	e, ok := s.entities[id]
	if !ok {
		return 0
	}
	if e.Kind == KindLeaf && e.Owner != 0 {
		if _, alive := s.entities[e.Owner]; alive {
			return 0
		}
	}
	removed := 0
	for _, leafID := range e.Leaves {
		if leaf, ok := s.entities[leafID]; ok {
			s.drop(leaf)
			removed++
		}
	}
	e.Leaves = nil
	s.drop(e)
	return removed + 1
}

func (s *Store) drop(e *Entity) {
	if e.Leaf != nil {
		e.Leaf.Cancel()
	}
	s.unindex(e)
	delete(s.entities, e.ID)
}

// SetLayer moves an entity between layers.
func (s *Store) SetLayer(id ID, layer Layer) {
	e, ok := s.entities[id]
	if !ok || e.Layer == layer {
		return
	}
	s.unindex(e)
	e.Layer = layer
	s.index(e)
}

// Reindex refreshes the layer index after e.Layer was changed in place.
func (s *Store) Reindex(e *Entity, previous Layer) {
	if set := s.byLayer[previous]; set != nil {
		delete(set, e.ID)
	}
	s.index(e)
}

func (s *Store) index(e *Entity) {
	set := s.byLayer[e.Layer]
	if set == nil {
		set = make(map[ID]*Entity)
		s.byLayer[e.Layer] = set
	}
	set[e.ID] = e
}

func (s *Store) unindex(e *Entity) {
	if set := s.byLayer[e.Layer]; set != nil {
		delete(set, e.ID)
		if len(set) == 0 {
			delete(s.byLayer, e.Layer)
		}
	}
}

func (s *Store) Get(id ID) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

func (s *Store) Len() int { return len(s.entities) }

// CountKind returns how many live entities have the given kind.
func (s *Store) CountKind(kind Kind) int {
	n := 0
	for _, e := range s.entities {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// InLayer returns the entities of a layer ordered by handle.
func (s *Store) InLayer(layer Layer) []*Entity {
	set := s.byLayer[layer]
	out := make([]*Entity, 0, len(set))
	for _, e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Collect returns, in handle order, every entity matching keep. Callers
// remove the returned handles afterwards, never while iterating.
func (s *Store) Collect(keep func(*Entity) bool) []ID {
	var ids []ID
	for id, e := range s.entities {
		if keep(e) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each visits entities in handle order.
func (s *Store) Each(fn func(*Entity)) {
	for _, id := range s.Collect(func(*Entity) bool { return true }) {
		fn(s.entities[id])
	}
}

// Views returns value snapshots of every entity sorted by handle.
func (s *Store) Views() []View {
	out := make([]View, 0, len(s.entities))
	s.Each(func(e *Entity) {
		out = append(out, e.Snapshot())
	})
	return out
}
