package loom

import (
	"slices"

	"github.com/TheBitDrifter/mask"
)

// archetypeGraph owns the canonical archetype table and the memoized
// add/remove transition edges between archetypes. Archetypes are addressed by
// dense ArchetypeID and are never reordered, so held ids stay valid for the
// lifetime of the graph (deleted archetypes are tombstoned, not compacted).
type archetypeGraph struct {
	typeIDs [][]TypeID // sorted component type set per archetype
	masks   []mask.Mask
	owners  []GroupID // group whose entity first required the archetype
	dead    []bool
	next    []map[TypeID]ArchetypeID // (archetype, type-to-add) -> destination
	prev    []map[TypeID]ArchetypeID // (archetype, type-to-remove) -> destination
	byMask  map[mask.Mask]ArchetypeID
	live    []ArchetypeID // ascending, excludes tombstones

	// onCreate lets the engine grow per-archetype storage (entity lists,
	// component columns) whenever a transition allocates a new archetype.
	onCreate func(ArchetypeID)
}

func newArchetypeGraph() *archetypeGraph {
	g := &archetypeGraph{
		typeIDs: [][]TypeID{nil},
		masks:   []mask.Mask{{}},
		owners:  []GroupID{DefaultGroup},
		dead:    []bool{false},
		next:    []map[TypeID]ArchetypeID{nil},
		prev:    []map[TypeID]ArchetypeID{nil},
		byMask:  map[mask.Mask]ArchetypeID{{}: EmptyArchetype},
		live:    []ArchetypeID{EmptyArchetype},
	}
	return g
}

func (g *archetypeGraph) count() int {
	return len(g.typeIDs)
}

// checkAlive guards every indexed access; reaching a tombstoned archetype
// means location bookkeeping is already broken.
func (g *archetypeGraph) checkAlive(a ArchetypeID) {
	if a < 0 || int(a) >= len(g.typeIDs) || g.dead[a] {
		panic("internal error: access to deleted archetype")
	}
}

func (g *archetypeGraph) types(a ArchetypeID) []TypeID {
	g.checkAlive(a)
	return g.typeIDs[a]
}

func (g *archetypeGraph) maskOf(a ArchetypeID) mask.Mask {
	g.checkAlive(a)
	return g.masks[a]
}

func (g *archetypeGraph) contains(a ArchetypeID, t TypeID) bool {
	g.checkAlive(a)
	_, found := slices.BinarySearch(g.typeIDs[a], t)
	return found
}

// allLive returns the live archetype ids in ascending order. The returned
// slice is shared; callers must not mutate it.
func (g *archetypeGraph) allLive() []ArchetypeID {
	return g.live
}

// addComponent resolves the destination archetype for adding type t to
// archetype src, allocating the destination on first use and memoizing the
// edge for subsequent identical transitions.
func (g *archetypeGraph) addComponent(src ArchetypeID, t TypeID, group GroupID) (ArchetypeID, error) {
	g.checkAlive(src)
	if dst, ok := g.next[src][t]; ok {
		return dst, nil
	}
	pos, found := slices.BinarySearch(g.typeIDs[src], t)
	if found {
		return 0, ExistingComponentError{Archetype: src, Type: t}
	}
	dstTypes := slices.Clone(g.typeIDs[src])
	dstTypes = slices.Insert(dstTypes, pos, t)
	dst := g.idFor(dstTypes, group)
	if g.next[src] == nil {
		g.next[src] = make(map[TypeID]ArchetypeID)
	}
	g.next[src][t] = dst
	return dst, nil
}

// deleteComponent is the inverse transition. Removing the last type resolves
// to EmptyArchetype. A type absent from src is a typed, recoverable error.
func (g *archetypeGraph) deleteComponent(src ArchetypeID, t TypeID) (ArchetypeID, error) {
	g.checkAlive(src)
	if dst, ok := g.prev[src][t]; ok {
		return dst, nil
	}
	pos, found := slices.BinarySearch(g.typeIDs[src], t)
	if !found {
		return 0, MissingComponentError{Archetype: src, Type: t}
	}
	dstTypes := slices.Clone(g.typeIDs[src])
	dstTypes = slices.Delete(dstTypes, pos, pos+1)
	dst := g.idFor(dstTypes, g.owners[src])
	if g.prev[src] == nil {
		g.prev[src] = make(map[TypeID]ArchetypeID)
	}
	g.prev[src][t] = dst
	return dst, nil
}

// idFor finds the archetype holding exactly the given sorted type set, or
// allocates it. Exact-set lookup goes through the mask map, so repeated
// transitions are O(1) even before their edge is cached.
func (g *archetypeGraph) idFor(sortedTypes []TypeID, group GroupID) ArchetypeID {
	var m mask.Mask
	for _, t := range sortedTypes {
		m.Mark(uint32(t))
	}
	if id, ok := g.byMask[m]; ok {
		return id
	}
	id := ArchetypeID(len(g.typeIDs))
	g.typeIDs = append(g.typeIDs, sortedTypes)
	g.masks = append(g.masks, m)
	g.owners = append(g.owners, group)
	g.dead = append(g.dead, false)
	g.next = append(g.next, nil)
	g.prev = append(g.prev, nil)
	g.byMask[m] = id
	g.live = append(g.live, id)
	if g.onCreate != nil {
		g.onCreate(id)
	}
	return id
}

// deleteAll tombstones every archetype owned by the given group that the
// caller reports empty, releasing its transition-cache entries on both sides.
// Archetypes still populated by other groups are preserved; only their edges
// into the removed archetypes are dropped.
func (g *archetypeGraph) deleteAll(group GroupID, empty func(ArchetypeID) bool, onDrop func(ArchetypeID)) {
	removed := make(map[ArchetypeID]struct{})
	for id := range g.typeIDs {
		a := ArchetypeID(id)
		if a == EmptyArchetype || g.dead[a] || g.owners[a] != group || !empty(a) {
			continue
		}
		removed[a] = struct{}{}
		g.dead[a] = true
		g.next[a] = nil
		g.prev[a] = nil
		delete(g.byMask, g.masks[a])
		if onDrop != nil {
			onDrop(a)
		}
	}
	if len(removed) == 0 {
		return
	}
	g.live = slices.DeleteFunc(g.live, func(a ArchetypeID) bool {
		_, gone := removed[a]
		return gone
	})
	for id := range g.typeIDs {
		a := ArchetypeID(id)
		if g.dead[a] {
			continue
		}
		pruneEdges(g.next[a], removed)
		pruneEdges(g.prev[a], removed)
	}
}

func pruneEdges(edges map[TypeID]ArchetypeID, removed map[ArchetypeID]struct{}) {
	for t, dst := range edges {
		if _, gone := removed[dst]; gone {
			delete(edges, t)
		}
	}
}
