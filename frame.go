package loom

// Frame is the view handed to each system invocation. Component access goes
// through ViewOf against the system's declared reads and writes; structural
// changes are queued and drained after the last system of the frame.
type Frame struct {
	engine *Engine
	sys    SystemID
	held   []func()
}

func newFrame(e *Engine, sys SystemID) *Frame {
	return &Frame{engine: e, sys: sys}
}

func (f *Frame) close() {
	for i := len(f.held) - 1; i >= 0; i-- {
		f.held[i]()
	}
	f.held = nil
}

func (f *Frame) descriptor() *systemDescriptor {
	return f.engine.systems.descriptor(f.sys)
}

// Cursor returns a cursor over the archetypes matched by the system's
// registered filter. Additional nodes narrow the filter further.
func (f *Frame) Cursor(extra ...QueryNode) *Cursor {
	node := f.descriptor().filter
	if len(extra) > 0 {
		items := make([]interface{}, 0, len(extra)+1)
		if node != nil {
			items = append(items, node)
		}
		for _, n := range extra {
			items = append(items, n)
		}
		node = newQuery().And(items...)
	}
	return newCursor(node, f.engine)
}

// ViewOf resolves column access for one component type, enforcing the
// access level the system declared at registration. The per-type lock is
// held until the system returns.
func ViewOf[T any](f *Frame, ct ComponentType[T]) (*View[T], error) {
	desc := f.descriptor()
	var declared Access
	found := false
	for _, acc := range desc.accesses {
		if acc.Type == ct.ID() {
			declared = acc.Access
			found = true
			break
		}
	}
	if !found {
		return nil, UndeclaredAccessError{System: f.sys, Type: ct.ID(), Access: Read}
	}
	if declared == Write {
		f.held = append(f.held, f.engine.components.lockWrite(ct.ID()))
	} else {
		f.held = append(f.held, f.engine.components.lockRead(ct.ID()))
	}
	return newView(f.engine, ct), nil
}

// WriteViewOf is ViewOf with the extra requirement that the system declared
// Write access, for callers that intend to mutate values in place.
func WriteViewOf[T any](f *Frame, ct ComponentType[T]) (*View[T], error) {
	desc := f.descriptor()
	for _, acc := range desc.accesses {
		if acc.Type != ct.ID() {
			continue
		}
		if acc.Access != Write {
			return nil, UndeclaredAccessError{System: f.sys, Type: ct.ID(), Access: Write}
		}
		f.held = append(f.held, f.engine.components.lockWrite(ct.ID()))
		return newView(f.engine, ct), nil
	}
	return nil, UndeclaredAccessError{System: f.sys, Type: ct.ID(), Access: Write}
}

// Parent reports the parent of an entity; NoEntity for roots and dead ids.
func (f *Frame) Parent(id EntityID) EntityID {
	return f.engine.Parent(id)
}

// Children reports the direct children of an entity; nil for dead ids.
func (f *Frame) Children(id EntityID) []EntityID {
	return f.engine.Children(id)
}

// Group reports the group owning an entity; 0 for dead ids.
func (f *Frame) Group(id EntityID) GroupID {
	return f.engine.Group(id)
}

// NewEntity queues creation of a root entity in the default group. The build
// callback runs during the drain, once the entity exists.
func (f *Frame) NewEntity(build func(*Engine, EntityID)) error {
	return f.NewEntityIn(DefaultGroup, build)
}

// NewEntityIn queues creation of a root entity owned by the given group.
// Creation is dropped at drain time if the group has been deleted meanwhile.
func (f *Frame) NewEntityIn(group GroupID, build func(*Engine, EntityID)) error {
	if !f.descriptor().entityMutation {
		return UndeclaredMutationError{System: f.sys}
	}
	if !f.engine.groups.isAlive(group) {
		return DeadGroupError{Group: group}
	}
	f.engine.queue.pushRoot(group, build)
	return nil
}

// NewChildEntity queues creation of a child entity. The child inherits the
// parent's group; creation is dropped if the parent dies before the drain.
func (f *Frame) NewChildEntity(parent EntityID, build func(*Engine, EntityID)) error {
	if !f.descriptor().entityMutation {
		return UndeclaredMutationError{System: f.sys}
	}
	f.engine.queue.pushChild(parent, 0, build)
	return nil
}

// DestroyEntity queues deletion of an entity and its descendants.
func (f *Frame) DestroyEntity(id EntityID) error {
	if !f.descriptor().entityMutation {
		return UndeclaredMutationError{System: f.sys}
	}
	f.engine.queue.pushDelete(id)
	return nil
}

// DeleteGroup queues deletion of a group, its entities and its archetypes.
func (f *Frame) DeleteGroup(g GroupID) error {
	if !f.descriptor().groupMutation {
		return UndeclaredMutationError{System: f.sys, Group: true}
	}
	f.engine.queue.pushGroupDelete(g)
	return nil
}

// AddComponent queues attaching (or replacing) a component on an entity.
func AddComponent[T any](f *Frame, id EntityID, ct ComponentType[T], value T) error {
	if !f.descriptor().entityMutation {
		return UndeclaredMutationError{System: f.sys}
	}
	f.engine.queue.pushAdd(id, addComponentFns{
		addType: func(e *Engine, src ArchetypeID) ArchetypeID {
			dst, err := e.archetypes.addComponent(src, ct.ID(), e.entities.group(id))
			if err != nil {
				return src
			}
			return dst
		},
		addValue: func(e *Engine, loc Location) {
			storeAdd(e.components, ct.ID(), loc, value)
		},
	})
	return nil
}

// RemoveComponent queues detaching a component from an entity. Removing a
// component the entity lacks is ignored at drain time.
func RemoveComponent[T any](f *Frame, id EntityID, ct ComponentType[T]) error {
	if !f.descriptor().entityMutation {
		return UndeclaredMutationError{System: f.sys}
	}
	f.engine.queue.pushRemove(id, ct.ID())
	return nil
}
