package loom

// entityDirectory owns entity id lifecycle: the free list, each live entity's
// Location, the parent/child hierarchy, group membership, and the
// per-archetype entity-id lists that mirror component column order.
type entityDirectory struct {
	free      []EntityID
	locations []Location // Archetype == -1 marks a dead slot
	parents   []EntityID
	children  [][]EntityID
	depths    []int
	groups    []GroupID

	byArchetype [][]EntityID
}

const deadArchetype ArchetypeID = -1

func newEntityDirectory() *entityDirectory {
	return &entityDirectory{
		byArchetype: [][]EntityID{nil},
	}
}

// reserve grows the per-entity slices' capacity so early frames avoid
// reallocation churn.
func (d *entityDirectory) reserve(n int) {
	if cap(d.locations) >= n {
		return
	}
	d.locations = append(make([]Location, 0, n), d.locations...)
	d.parents = append(make([]EntityID, 0, n), d.parents...)
	d.children = append(make([][]EntityID, 0, n), d.children...)
	d.depths = append(make([]int, 0, n), d.depths...)
	d.groups = append(make([]GroupID, 0, n), d.groups...)
}

func (d *entityDirectory) ensureArchetypes(n int) {
	for len(d.byArchetype) < n {
		d.byArchetype = append(d.byArchetype, nil)
	}
}

func (d *entityDirectory) location(id EntityID) (Location, bool) {
	if id < 0 || int(id) >= len(d.locations) {
		return Location{}, false
	}
	loc := d.locations[id]
	return loc, loc.Archetype != deadArchetype
}

func (d *entityDirectory) setLocation(id EntityID, loc Location) {
	d.locations[id] = loc
}

func (d *entityDirectory) parent(id EntityID) EntityID {
	return d.parents[id]
}

func (d *entityDirectory) childIDs(id EntityID) []EntityID {
	return d.children[id]
}

func (d *entityDirectory) depth(id EntityID) int {
	return d.depths[id]
}

func (d *entityDirectory) group(id EntityID) GroupID {
	return d.groups[id]
}

func (d *entityDirectory) entityIDs(a ArchetypeID) []EntityID {
	return d.byArchetype[a]
}

// createIn allocates an id (reusing a freed one when available), appends the
// entity to the archetype's id list, and records its location and lineage.
// Children sit one level below their parent and inherit its group.
func (d *entityDirectory) createIn(a ArchetypeID, parent EntityID, group GroupID) (EntityID, Location) {
	loc := Location{Archetype: a, Pos: len(d.byArchetype[a])}
	depth := 0
	if parent != NoEntity {
		depth = d.depths[parent] + 1
		group = d.groups[parent]
	}
	var id EntityID
	if n := len(d.free); n > 0 {
		id = d.free[n-1]
		d.free = d.free[:n-1]
		d.locations[id] = loc
		d.parents[id] = parent
		d.depths[id] = depth
		d.groups[id] = group
	} else {
		id = EntityID(len(d.locations))
		d.locations = append(d.locations, loc)
		d.parents = append(d.parents, parent)
		d.children = append(d.children, nil)
		d.depths = append(d.depths, depth)
		d.groups = append(d.groups, group)
	}
	if parent != NoEntity {
		d.children[parent] = append(d.children[parent], id)
	}
	d.byArchetype[a] = append(d.byArchetype[a], id)
	return id, loc
}

// move swap-removes the entity from its current archetype's id list and
// appends it to the destination's. It returns the new location and, when the
// swap-remove displaced another entity into the vacated slot, that entity's
// id so the caller can re-synchronize its location.
func (d *entityDirectory) move(id EntityID, dst ArchetypeID) (Location, EntityID) {
	src := d.locations[id]
	displaced := d.removeAt(src)
	loc := Location{Archetype: dst, Pos: len(d.byArchetype[dst])}
	d.byArchetype[dst] = append(d.byArchetype[dst], id)
	d.locations[id] = loc
	return loc, displaced
}

// removeAt swap-removes the id-list slot at loc and returns the entity that
// now occupies it (NoEntity when loc was the last slot).
func (d *entityDirectory) removeAt(loc Location) EntityID {
	list := d.byArchetype[loc.Archetype]
	last := len(list) - 1
	if last < 0 || loc.Pos > last {
		panic("internal error: entity list removal out of range")
	}
	list[loc.Pos] = list[last]
	d.byArchetype[loc.Archetype] = list[:last]
	if loc.Pos == last {
		return NoEntity
	}
	return list[loc.Pos]
}

// deleteTree removes the entity and its whole subtree, children first. For
// every removed entity it invokes onDelete with the entity's last location
// (the caller drops component values there), then vacates the id-list slot
// and fixes the displaced entity's location. Freed ids go back to the free
// list only after their slot has been vacated.
func (d *entityDirectory) deleteTree(id EntityID, onDelete func(EntityID, Location)) {
	if parent := d.parents[id]; parent != NoEntity {
		siblings := d.children[parent]
		for i, c := range siblings {
			if c == id {
				siblings[i] = siblings[len(siblings)-1]
				d.children[parent] = siblings[:len(siblings)-1]
				break
			}
		}
	}
	d.deleteRec(id, onDelete)
}

func (d *entityDirectory) deleteRec(id EntityID, onDelete func(EntityID, Location)) {
	kids := d.children[id]
	d.children[id] = nil
	for _, child := range kids {
		d.deleteRec(child, onDelete)
	}
	loc := d.locations[id]
	if loc.Archetype == deadArchetype {
		panic("internal error: cannot delete entity with no location")
	}
	d.locations[id] = Location{Archetype: deadArchetype}
	d.parents[id] = NoEntity
	onDelete(id, loc)
	if displaced := d.removeAt(loc); displaced != NoEntity {
		d.locations[displaced] = loc
	}
	d.free = append(d.free, id)
}

// groupRegistry hands out group ids (1-based, free-listed) and tracks which
// entities each group owns.
type groupRegistry struct {
	nextID  GroupID
	freed   []GroupID
	alive   []bool
	members []map[EntityID]struct{}
}

func newGroupRegistry() *groupRegistry {
	g := &groupRegistry{nextID: 1}
	g.create() // DefaultGroup
	return g
}

func (g *groupRegistry) create() GroupID {
	if n := len(g.freed); n > 0 {
		id := g.freed[n-1]
		g.freed = g.freed[:n-1]
		g.alive[id-1] = true
		return id
	}
	id := g.nextID
	g.nextID++
	g.alive = append(g.alive, true)
	g.members = append(g.members, make(map[EntityID]struct{}))
	return id
}

func (g *groupRegistry) isAlive(id GroupID) bool {
	return id >= 1 && int(id) <= len(g.alive) && g.alive[id-1]
}

func (g *groupRegistry) add(id GroupID, e EntityID) {
	g.members[id-1][e] = struct{}{}
}

func (g *groupRegistry) remove(id GroupID, e EntityID) {
	delete(g.members[id-1], e)
}

// membersOf returns a snapshot; deletion mutates the live set while iterating.
func (g *groupRegistry) membersOf(id GroupID) []EntityID {
	set := g.members[id-1]
	out := make([]EntityID, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	return out
}

func (g *groupRegistry) release(id GroupID) {
	if !g.isAlive(id) {
		panic("internal error: cannot release nonexisting group")
	}
	g.alive[id-1] = false
	g.members[id-1] = make(map[EntityID]struct{})
	g.freed = append(g.freed, id)
}
