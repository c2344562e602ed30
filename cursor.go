package loom

import (
	"iter"

	iter_util "github.com/TheBitDrifter/util/iter"
)

var _ iCursor = &Cursor{}

// Cursor walks the entities of every live archetype matched by a query node.
// Iteration order is archetype by archetype, position by position, so the
// entities visible at frame start are each visited exactly once.
type Cursor struct {
	engine *Engine
	query  QueryNode
	group  GroupID // 0 iterates all groups

	matched          []ArchetypeID
	currentArchetype ArchetypeID
	storageIndex     int
	entityIndex      int
	remaining        int
	initialized      bool
}

func newCursor(query QueryNode, engine *Engine) *Cursor {
	return &Cursor{
		query:  query,
		engine: engine,
	}
}

// InGroup restricts iteration to entities owned by the given group.
func (c *Cursor) InGroup(g GroupID) *Cursor {
	c.group = g
	return c
}

func (c *Cursor) Next() bool {
	for c.entityIndex < c.remaining {
		c.entityIndex++
		if c.currentMatchesGroup() {
			return true
		}
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	if !c.initialized {
		c.initialize()
	}
	for c.storageIndex < len(c.matched) {
		c.currentArchetype = c.matched[c.storageIndex]
		c.remaining = len(c.engine.entities.entityIDs(c.currentArchetype))

		for c.entityIndex < c.remaining {
			c.entityIndex++
			if c.currentMatchesGroup() {
				return true
			}
		}
		c.storageIndex++
		c.entityIndex = 0
	}
	c.Reset()
	return false
}

func (c *Cursor) currentMatchesGroup() bool {
	if c.group == 0 {
		return true
	}
	ids := c.engine.entities.entityIDs(c.currentArchetype)
	return c.engine.entities.group(ids[c.entityIndex-1]) == c.group
}

func (c *Cursor) Entities() iter.Seq2[EntityID, Location] {
	return func(yield func(EntityID, Location) bool) {
		c.initialize()

		for c.storageIndex < len(c.matched) {
			c.currentArchetype = c.matched[c.storageIndex]
			ids := c.engine.entities.entityIDs(c.currentArchetype)
			c.remaining = len(ids)

			for c.entityIndex < c.remaining {
				id := ids[c.entityIndex]
				loc := Location{Archetype: c.currentArchetype, Pos: c.entityIndex}
				c.entityIndex++
				if c.group != 0 && c.engine.entities.group(id) != c.group {
					continue
				}
				if !yield(id, loc) {
					c.Reset()
					return
				}
			}
			c.entityIndex = 0
			c.storageIndex++
		}
		c.Reset()
	}
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.matched = make([]ArchetypeID, 0)

	// Find all matching archetypes
	for _, arch := range c.engine.archetypes.allLive() {
		if c.query == nil || c.query.Evaluate(arch, c.engine) {
			c.matched = append(c.matched, arch)
		}
	}
	if len(c.matched) > 0 {
		c.storageIndex = 0
		c.currentArchetype = c.matched[0]
		c.remaining = len(c.engine.entities.entityIDs(c.currentArchetype))
	}
	c.initialized = true
}

func (c *Cursor) Reset() {
	c.storageIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.matched = nil
	c.initialized = false
}

func (c *Cursor) CurrentEntity() (EntityID, Location) {
	ids := c.engine.entities.entityIDs(c.currentArchetype)
	pos := c.entityIndex - 1
	return ids[pos], Location{Archetype: c.currentArchetype, Pos: pos}
}

func (c *Cursor) RemainingInArchetype() int {
	return c.remaining - c.entityIndex
}

func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.initialize()
	}
	total := 0
	for _, arch := range c.matched {
		if c.group == 0 {
			total += len(c.engine.entities.entityIDs(arch))
			continue
		}
		for _, id := range c.engine.entities.entityIDs(arch) {
			if c.engine.entities.group(id) == c.group {
				total++
			}
		}
	}
	return total
}

// MatchedEntities collects the matched entity ids into a slice.
func (c *Cursor) MatchedEntities() []EntityID {
	ids := func(yield func(EntityID) bool) {
		for id := range c.Entities() {
			if !yield(id) {
				return
			}
		}
	}
	return iter_util.Collect(ids)
}
