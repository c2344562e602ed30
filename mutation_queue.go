package loom

import "sync"

// addComponentFns defers a typed component insertion behind two closures so
// the queue itself stays type-erased: addType advances the archetype during
// transition planning, addValue writes the value once the entity has moved.
type addComponentFns struct {
	addType  func(*Engine, ArchetypeID) ArchetypeID
	addValue func(*Engine, Location)
}

// entityChange accumulates all component adds and removes requested for one
// entity within a frame. Removes drain before adds, and the entity moves
// archetypes once per drained change rather than once per component.
type entityChange struct {
	adds    []addComponentFns
	removes []TypeID
	deleted bool
}

type childCreate struct {
	parent EntityID
	group  GroupID
	build  func(*Engine, EntityID)
}

type rootCreate struct {
	group GroupID
	build func(*Engine, EntityID)
}

// mutationQueue collects structural mutations requested while systems run.
// Systems only observe the world as it stood at frame start; the engine
// drains the queue after the last system finishes.
type mutationQueue struct {
	mu           sync.Mutex
	changes      map[EntityID]*entityChange
	changed      []EntityID // insertion order of first change per entity
	childCreates []childCreate
	rootCreates  []rootCreate
	groupDeletes []GroupID
}

func newMutationQueue() *mutationQueue {
	return &mutationQueue{changes: make(map[EntityID]*entityChange)}
}

func (q *mutationQueue) changeFor(id EntityID) *entityChange {
	c, ok := q.changes[id]
	if !ok {
		c = &entityChange{}
		q.changes[id] = c
		q.changed = append(q.changed, id)
	}
	return c
}

func (q *mutationQueue) pushAdd(id EntityID, fns addComponentFns) {
	q.mu.Lock()
	defer q.mu.Unlock()
	c := q.changeFor(id)
	c.adds = append(c.adds, fns)
}

func (q *mutationQueue) pushRemove(id EntityID, t TypeID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	c := q.changeFor(id)
	c.removes = append(c.removes, t)
}

func (q *mutationQueue) pushDelete(id EntityID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.changeFor(id).deleted = true
}

func (q *mutationQueue) pushChild(parent EntityID, group GroupID, build func(*Engine, EntityID)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.childCreates = append(q.childCreates, childCreate{parent: parent, group: group, build: build})
}

func (q *mutationQueue) pushRoot(group GroupID, build func(*Engine, EntityID)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rootCreates = append(q.rootCreates, rootCreate{group: group, build: build})
}

func (q *mutationQueue) pushGroupDelete(g GroupID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.groupDeletes = append(q.groupDeletes, g)
}

// drain applies the queued mutations in a fixed order: component changes,
// child creations, root creations, entity deletions, group deletions. The
// order means a system can delete an entity and another can add a component
// to it in the same frame without the add resurrecting it.
func (q *mutationQueue) drain(e *Engine) {
	changes := q.changes
	changed := q.changed
	childCreates := q.childCreates
	rootCreates := q.rootCreates
	groupDeletes := q.groupDeletes
	q.changes = make(map[EntityID]*entityChange)
	q.changed = nil
	q.childCreates = nil
	q.rootCreates = nil
	q.groupDeletes = nil

	for _, id := range changed {
		c := changes[id]
		if c.deleted || len(c.adds) == 0 && len(c.removes) == 0 {
			continue
		}
		e.applyChange(id, c)
	}
	for _, cc := range childCreates {
		if _, ok := e.entities.location(cc.parent); !ok {
			continue
		}
		id := e.createEntity(cc.parent, cc.group)
		if cc.build != nil {
			cc.build(e, id)
		}
	}
	for _, rc := range rootCreates {
		if !e.groups.isAlive(rc.group) {
			continue
		}
		id := e.createEntity(NoEntity, rc.group)
		if rc.build != nil {
			rc.build(e, id)
		}
	}
	for _, id := range changed {
		if !changes[id].deleted {
			continue
		}
		if _, ok := e.entities.location(id); !ok {
			continue
		}
		e.destroyEntity(id)
	}
	for _, g := range groupDeletes {
		if !e.groups.isAlive(g) {
			continue
		}
		e.deleteGroup(g)
	}
}

// applyChange moves the entity once: removes first, then the add transitions,
// then the value writes into the final location.
func (e *Engine) applyChange(id EntityID, c *entityChange) {
	loc, ok := e.entities.location(id)
	if !ok {
		return
	}
	dst := loc.Archetype
	for _, t := range c.removes {
		next, err := e.archetypes.deleteComponent(dst, t)
		if err != nil {
			continue
		}
		dst = next
	}
	for _, add := range c.adds {
		dst = add.addType(e, dst)
	}
	if dst != loc.Archetype {
		loc = e.moveEntity(id, loc, dst)
	}
	for _, add := range c.adds {
		add.addValue(e, loc)
	}
}
