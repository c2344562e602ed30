/*
Package loom provides an Entity-Component-System (ECS) runtime for games and simulations.

Loom stores entities in archetypes, collections of entities sharing the same component
types, with one contiguous column per component type per archetype. Archetype transitions
(adding or removing a component type) are memoized edges in a graph, so repeated
transitions cost a map lookup. Systems declare which component types they read and write;
each frame a conflict-resolving scheduler runs non-conflicting systems concurrently while
honoring declared action ordering. Structural changes requested by systems are deferred
to a queue drained at the end of the frame.

Core Concepts:

  - Entity: A unique identifier, optionally parented to another entity.
  - Component: A data value attached to an entity, stored columnar by type.
  - Archetype: A collection of entities sharing the same component types.
  - Group: A deletion unit owning entities and the archetypes created for them.
  - System: A function run once per frame under declared read/write accesses.
  - Action: A named ordering point in the system dependency graph.

Basic Usage:

	engine := loom.New(loom.WithThreadCount(4))

	// Define components
	position := loom.RegisterComponent[Position](engine)
	velocity := loom.RegisterComponent[Velocity](engine)

	// Create an entity
	id, _ := engine.NewEntity()
	loom.Add(engine, id, position, Position{})
	loom.Add(engine, id, velocity, Velocity{X: 1})

	// Register a system and run frames
	engine.RegisterSystem(func(f *loom.Frame) {
		pos, _ := loom.ViewOf(f, position)
		vel, _ := loom.ViewOf(f, velocity)
		cursor := f.Cursor()
		for cursor.Next() {
			p := pos.GetFromCursor(cursor)
			v := vel.GetFromCursor(cursor)
			p.X += v.X
			p.Y += v.Y
		}
	}, loom.Reads(velocity), loom.Writes(position))

	engine.RunFrame()
*/
package loom
