package loom

import "fmt"

// ExistingComponentError reports an archetype transition that would add a
// component type the source archetype already contains.
type ExistingComponentError struct {
	Archetype ArchetypeID
	Type      TypeID
}

func (e ExistingComponentError) Error() string {
	return fmt.Sprintf("component type %d already present in archetype %d", e.Type, e.Archetype)
}

// MissingComponentError reports an archetype transition that would remove a
// component type the source archetype does not contain. Callers performing
// idempotent deletes are expected to treat it as a no-op.
type MissingComponentError struct {
	Archetype ArchetypeID
	Type      TypeID
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("component type %d not present in archetype %d", e.Type, e.Archetype)
}

// DeadEntityError reports an operation on an entity id that does not refer to
// a live entity, either never created or already deleted.
type DeadEntityError struct {
	Entity EntityID
}

func (e DeadEntityError) Error() string {
	return fmt.Sprintf("entity %d does not exist", e.Entity)
}

// EngineBusyError is returned by direct structural operations attempted while
// a frame is executing; mid-frame mutations must go through the Frame's
// deferred queue instead.
type EngineBusyError struct{}

func (e EngineBusyError) Error() string {
	return "engine is executing a frame; use the frame's deferred mutations"
}

// UndeclaredAccessError is returned when a system opens a component view it
// did not declare at registration time.
type UndeclaredAccessError struct {
	System SystemID
	Type   TypeID
	Access Access
}

func (e UndeclaredAccessError) Error() string {
	return fmt.Sprintf("system %d did not declare %s access to component type %d", e.System, e.Access, e.Type)
}

// UndeclaredMutationError is returned when a system enqueues a structural
// mutation without having declared entity or group mutation capability.
type UndeclaredMutationError struct {
	System SystemID
	Group  bool
}

func (e UndeclaredMutationError) Error() string {
	kind := "entity"
	if e.Group {
		kind = "group"
	}
	return fmt.Sprintf("system %d did not declare %s mutation capability", e.System, kind)
}

// ActionCycleError reports an action dependency declaration that would make
// the action graph cyclic.
type ActionCycleError struct {
	Key string
}

func (e ActionCycleError) Error() string {
	return fmt.Sprintf("action %q dependency would create a cycle", e.Key)
}

// SelfDependencyError reports a system that depends on an action it is itself
// a member of, which could never become runnable.
type SelfDependencyError struct {
	System SystemID
	Action ActionID
}

func (e SelfDependencyError) Error() string {
	return fmt.Sprintf("system %d depends on action %d it belongs to", e.System, e.Action)
}

// DeadGroupError is returned when an operation names a group that was never
// created or has been deleted.
type DeadGroupError struct {
	Group GroupID
}

func (e DeadGroupError) Error() string {
	return fmt.Sprintf("group %d does not exist", e.Group)
}
