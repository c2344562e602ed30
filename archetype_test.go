package loom

import (
	"errors"
	"testing"
)

// TestArchetypeTransitions tests that add/remove transitions land in the same
// archetype regardless of the path taken
func TestArchetypeTransitions(t *testing.T) {
	engine := New()
	pos := RegisterComponent[Position](engine)
	vel := RegisterComponent[Velocity](engine)
	health := RegisterComponent[Health](engine)

	tests := []struct {
		name          string
		firstTypes    []TypeID
		secondTypes   []TypeID
		expectSameDst bool
	}{
		{
			name:          "Identical components",
			firstTypes:    []TypeID{pos.ID(), vel.ID()},
			secondTypes:   []TypeID{pos.ID(), vel.ID()},
			expectSameDst: true,
		},
		{
			name:          "Different order",
			firstTypes:    []TypeID{pos.ID(), vel.ID()},
			secondTypes:   []TypeID{vel.ID(), pos.ID()},
			expectSameDst: true, // Archetypes are based on component sets, not order
		},
		{
			name:          "Different components",
			firstTypes:    []TypeID{pos.ID()},
			secondTypes:   []TypeID{vel.ID()},
			expectSameDst: false,
		},
		{
			name:          "Subset components",
			firstTypes:    []TypeID{pos.ID(), vel.ID()},
			secondTypes:   []TypeID{pos.ID()},
			expectSameDst: false,
		},
		{
			name:          "Superset components",
			firstTypes:    []TypeID{pos.ID()},
			secondTypes:   []TypeID{pos.ID(), vel.ID(), health.ID()},
			expectSameDst: false,
		},
	}

	walk := func(types []TypeID) ArchetypeID {
		a := EmptyArchetype
		for _, typ := range types {
			next, err := engine.archetypes.addComponent(a, typ, DefaultGroup)
			if err != nil {
				t.Fatalf("Failed transition adding type %d: %v", typ, err)
			}
			a = next
		}
		return a
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := walk(tt.firstTypes)
			second := walk(tt.secondTypes)
			same := first == second
			if same != tt.expectSameDst {
				t.Errorf("Archetypes same: %v, expected: %v", same, tt.expectSameDst)
			}
		})
	}
}

// TestArchetypeEdgeMemoization tests that a repeated transition reuses the
// memoized edge instead of allocating a new archetype
func TestArchetypeEdgeMemoization(t *testing.T) {
	engine := New()
	pos := RegisterComponent[Position](engine)

	first, err := engine.archetypes.addComponent(EmptyArchetype, pos.ID(), DefaultGroup)
	if err != nil {
		t.Fatalf("Failed first transition: %v", err)
	}
	count := engine.archetypes.count()

	second, err := engine.archetypes.addComponent(EmptyArchetype, pos.ID(), DefaultGroup)
	if err != nil {
		t.Fatalf("Failed second transition: %v", err)
	}
	if first != second {
		t.Errorf("Repeated transition gave archetype %d, expected %d", second, first)
	}
	if engine.archetypes.count() != count {
		t.Error("Repeated transition allocated a new archetype")
	}
}

// TestArchetypeTransitionErrors tests duplicate add and missing remove
func TestArchetypeTransitionErrors(t *testing.T) {
	engine := New()
	pos := RegisterComponent[Position](engine)
	vel := RegisterComponent[Velocity](engine)

	withPos, err := engine.archetypes.addComponent(EmptyArchetype, pos.ID(), DefaultGroup)
	if err != nil {
		t.Fatalf("Failed transition: %v", err)
	}

	_, err = engine.archetypes.addComponent(withPos, pos.ID(), DefaultGroup)
	var existing ExistingComponentError
	if !errors.As(err, &existing) {
		t.Errorf("Duplicate add returned %v, expected ExistingComponentError", err)
	}

	_, err = engine.archetypes.deleteComponent(withPos, vel.ID())
	var missing MissingComponentError
	if !errors.As(err, &missing) {
		t.Errorf("Absent remove returned %v, expected MissingComponentError", err)
	}
}

// TestArchetypeRemoveToEmpty tests that removing the last component resolves
// to the empty archetype rather than a fresh one
func TestArchetypeRemoveToEmpty(t *testing.T) {
	engine := New()
	pos := RegisterComponent[Position](engine)

	withPos, err := engine.archetypes.addComponent(EmptyArchetype, pos.ID(), DefaultGroup)
	if err != nil {
		t.Fatalf("Failed transition: %v", err)
	}
	back, err := engine.archetypes.deleteComponent(withPos, pos.ID())
	if err != nil {
		t.Fatalf("Failed remove transition: %v", err)
	}
	if back != EmptyArchetype {
		t.Errorf("Remove-to-empty gave archetype %d, expected the empty archetype", back)
	}
}

// TestComponentRemoveRoundTrip tests that an entity returns to its previous
// archetype when the added component is removed again
func TestComponentRemoveRoundTrip(t *testing.T) {
	engine := New()
	pos := RegisterComponent[Position](engine)
	vel := RegisterComponent[Velocity](engine)

	id, _ := engine.NewEntity()
	if err := Add(engine, id, pos, Position{X: 1}); err != nil {
		t.Fatalf("Failed to add position: %v", err)
	}
	before, _ := engine.Location(id)

	if err := Add(engine, id, vel, Velocity{X: 2}); err != nil {
		t.Fatalf("Failed to add velocity: %v", err)
	}
	if err := Remove(engine, id, vel); err != nil {
		t.Fatalf("Failed to remove velocity: %v", err)
	}

	after, _ := engine.Location(id)
	if after.Archetype != before.Archetype {
		t.Errorf("Entity in archetype %d after round trip, expected %d", after.Archetype, before.Archetype)
	}
	if _, ok := Get(engine, id, vel); ok {
		t.Error("Removed component still readable")
	}
	p, ok := Get(engine, id, pos)
	if !ok || p.X != 1 {
		t.Error("Unrelated component lost during round trip")
	}
}
