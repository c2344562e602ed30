package loom

import "iter"

// EntityID identifies an entity. IDs are dense, start at 0, and are recycled
// through a free list once the entity's storage slot has been vacated.
type EntityID int

// NoEntity is the nil value for entity references (e.g. "no parent").
const NoEntity EntityID = -1

// TypeID is the dense index assigned to a component type the first time it is
// registered. It doubles as the type's bit position in archetype masks.
type TypeID int

// ArchetypeID indexes the archetype arena. The empty archetype is always 0.
type ArchetypeID int

// EmptyArchetype holds every entity that has no components.
const EmptyArchetype ArchetypeID = 0

// ActionID indexes the action arena.
type ActionID int

// SystemID is the registration index of a system.
type SystemID int

// GroupID identifies a lifetime-management group. Group ids start at 1;
// DefaultGroup always exists.
type GroupID int

const DefaultGroup GroupID = 1

// MaxComponentTypes bounds the number of distinct component types, matching
// the bit capacity of archetype masks.
const MaxComponentTypes = 256

// Location is an entity's storage address: the archetype it lives in and its
// position within that archetype's columns.
type Location struct {
	Archetype ArchetypeID
	Pos       int
}

// Access is the declared access mode of a system to one component type.
type Access uint8

const (
	Read Access = iota
	Write
)

func (a Access) String() string {
	if a == Write {
		return "write"
	}
	return "read"
}

// ComponentAccess pairs a component type with the access mode a system
// declared for it. The scheduler derives its lock protocol from these.
type ComponentAccess struct {
	Type   TypeID
	Access Access
}

// Component is the type-erased face of a ComponentType[T]. Queries and system
// options accept any Component.
type Component interface {
	ID() TypeID
}

// SystemFunc is the body of a registered system. The Frame gives access to
// declared component views, filtered cursors, and the deferred mutation queue.
type SystemFunc func(*Frame)

// Query composes component conditions into an archetype predicate.
type Query interface {
	QueryNode
	And(items ...interface{}) QueryNode
	Or(items ...interface{}) QueryNode
	Not(items ...interface{}) QueryNode
}

// QueryNode is a single evaluable node of a query tree. Archetype filters
// attached to systems are QueryNodes too.
type QueryNode interface {
	Evaluate(archetype ArchetypeID, engine *Engine) bool
}

type iCursor interface {
	Entities() iter.Seq2[EntityID, Location]
	Next() bool
}
