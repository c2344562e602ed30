package loom

import (
	"testing"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Value int
}

// TestEntityCreation tests entity creation and location bookkeeping
func TestEntityCreation(t *testing.T) {
	engine := New()
	pos := RegisterComponent[Position](engine)

	id, err := engine.NewEntity()
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	loc, ok := engine.Location(id)
	if !ok {
		t.Fatal("New entity has no location")
	}
	if loc.Archetype != EmptyArchetype {
		t.Errorf("New entity in archetype %d, expected empty archetype", loc.Archetype)
	}

	if err := Add(engine, id, pos, Position{X: 1}); err != nil {
		t.Fatalf("Failed to add component: %v", err)
	}
	loc, _ = engine.Location(id)
	if loc.Archetype == EmptyArchetype {
		t.Error("Entity still in empty archetype after component add")
	}
	p, ok := Get(engine, id, pos)
	if !ok {
		t.Fatal("Component not found after add")
	}
	if p.X != 1 {
		t.Errorf("Component value %v, expected X=1", *p)
	}
}

// TestEntityIDReuse tests that deleted entity ids return through the free list
func TestEntityIDReuse(t *testing.T) {
	engine := New()

	first, _ := engine.NewEntity()
	second, _ := engine.NewEntity()

	if err := engine.DestroyEntity(first); err != nil {
		t.Fatalf("Failed to destroy entity: %v", err)
	}
	if _, ok := engine.Location(first); ok {
		t.Error("Destroyed entity still has a location")
	}

	third, _ := engine.NewEntity()
	if third != first {
		t.Errorf("New entity got id %d, expected reused id %d", third, first)
	}
	if _, ok := engine.Location(second); !ok {
		t.Error("Unrelated entity lost its location")
	}
}

// TestEntityDestruction tests swap-remove location fix-up on deletion
func TestEntityDestruction(t *testing.T) {
	engine := New()
	pos := RegisterComponent[Position](engine)

	ids := make([]EntityID, 5)
	for i := range ids {
		id, _ := engine.NewEntity()
		ids[i] = id
		if err := Add(engine, id, pos, Position{X: float64(i)}); err != nil {
			t.Fatalf("Failed to add component: %v", err)
		}
	}

	// Destroy an entity in the middle; the last one is swapped into its slot
	if err := engine.DestroyEntity(ids[1]); err != nil {
		t.Fatalf("Failed to destroy entity: %v", err)
	}

	for i, id := range ids {
		if i == 1 {
			continue
		}
		p, ok := Get(engine, id, pos)
		if !ok {
			t.Fatalf("Entity %d lost its component after unrelated deletion", id)
		}
		if p.X != float64(i) {
			t.Errorf("Entity %d has value %v, expected X=%d", id, *p, i)
		}
	}

	if err := engine.DestroyEntity(ids[1]); err == nil {
		t.Error("Destroying a dead entity should fail")
	}
}

// TestEntityHierarchy tests parent/child linkage, depth, and subtree deletion
func TestEntityHierarchy(t *testing.T) {
	engine := New()

	root, _ := engine.NewEntity()
	child, err := engine.NewChildEntity(root)
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}
	grandchild, err := engine.NewChildEntity(child)
	if err != nil {
		t.Fatalf("Failed to create grandchild: %v", err)
	}

	if got := engine.Parent(child); got != root {
		t.Errorf("Child parent %d, expected %d", got, root)
	}
	if got := engine.Depth(grandchild); got != 2 {
		t.Errorf("Grandchild depth %d, expected 2", got)
	}
	if kids := engine.Children(root); len(kids) != 1 || kids[0] != child {
		t.Errorf("Root children %v, expected [%d]", kids, child)
	}

	// Deleting the root takes the whole subtree with it
	if err := engine.DestroyEntity(root); err != nil {
		t.Fatalf("Failed to destroy root: %v", err)
	}
	for _, id := range []EntityID{root, child, grandchild} {
		if _, ok := engine.Location(id); ok {
			t.Errorf("Entity %d survived subtree deletion", id)
		}
	}
}

// TestHierarchyAccessorsOnDeadIDs tests that lineage queries on unknown or
// destroyed ids return zero values instead of panicking
func TestHierarchyAccessorsOnDeadIDs(t *testing.T) {
	engine := New()

	unknown := EntityID(42)
	if got := engine.Parent(unknown); got != NoEntity {
		t.Errorf("Parent of unknown id %d, expected NoEntity", got)
	}
	if got := engine.Children(unknown); got != nil {
		t.Errorf("Children of unknown id %v, expected nil", got)
	}
	if got := engine.Depth(unknown); got != 0 {
		t.Errorf("Depth of unknown id %d, expected 0", got)
	}
	if got := engine.Group(unknown); got != 0 {
		t.Errorf("Group of unknown id %d, expected 0", got)
	}

	root, _ := engine.NewEntity()
	child, _ := engine.NewChildEntity(root)
	if err := engine.DestroyEntity(root); err != nil {
		t.Fatalf("Failed to destroy root: %v", err)
	}
	if got := engine.Parent(child); got != NoEntity {
		t.Errorf("Parent of destroyed id %d, expected NoEntity", got)
	}
	if got := engine.Group(child); got != 0 {
		t.Errorf("Group of destroyed id %d, expected 0", got)
	}
}

// TestChildGroupInheritance tests that children land in their parent's group
func TestChildGroupInheritance(t *testing.T) {
	engine := New()
	group, err := engine.NewGroup()
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	parent, _ := engine.NewEntityIn(group)
	child, _ := engine.NewChildEntity(parent)

	if got := engine.Group(child); got != group {
		t.Errorf("Child in group %d, expected %d", got, group)
	}
}

// TestGroupDeletion tests that deleting a group destroys its entities
func TestGroupDeletion(t *testing.T) {
	engine := New()
	pos := RegisterComponent[Position](engine)

	group, _ := engine.NewGroup()
	inGroup, _ := engine.NewEntityIn(group)
	if err := Add(engine, inGroup, pos, Position{}); err != nil {
		t.Fatalf("Failed to add component: %v", err)
	}
	outside, _ := engine.NewEntity()
	if err := Add(engine, outside, pos, Position{X: 7}); err != nil {
		t.Fatalf("Failed to add component: %v", err)
	}

	if err := engine.DeleteGroup(group); err != nil {
		t.Fatalf("Failed to delete group: %v", err)
	}
	if _, ok := engine.Location(inGroup); ok {
		t.Error("Group member survived group deletion")
	}
	p, ok := Get(engine, outside, pos)
	if !ok || p.X != 7 {
		t.Error("Entity outside the group was disturbed by group deletion")
	}

	if err := engine.DeleteGroup(group); err == nil {
		t.Error("Deleting a dead group should fail")
	}
	if _, err := engine.NewEntityIn(group); err == nil {
		t.Error("Creating an entity in a dead group should fail")
	}
}
