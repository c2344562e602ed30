package loom

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Engine owns the whole world: archetype graph, component columns, entity
// directory, groups, the action DAG and the frame scheduler. Between frames
// it accepts direct structural operations; during a frame all structural
// changes go through each system's Frame.
type Engine struct {
	archetypes *archetypeGraph
	components *componentStore
	entities   *entityDirectory
	groups     *groupRegistry
	actions    *actionGraph
	systems    systemRegistry
	sched      scheduler
	queue      *mutationQueue

	logger      *zap.Logger
	threadCount int
	running     bool

	panicMu  sync.Mutex
	panicVal any
	panicSys SystemID
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithThreadCount sets how many workers execute systems each frame. Values
// below 2 select sequential execution.
func WithThreadCount(n int) Option {
	return func(e *Engine) { e.threadCount = n }
}

// WithLogger replaces the default no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an empty engine with the empty archetype, the default group and
// a single-threaded scheduler.
func New(opts ...Option) *Engine {
	e := &Engine{
		archetypes:  newArchetypeGraph(),
		components:  newComponentStore(),
		entities:    newEntityDirectory(),
		groups:      newGroupRegistry(),
		actions:     newActionGraph(),
		queue:       newMutationQueue(),
		logger:      zap.NewNop(),
		threadCount: 1,
	}
	e.archetypes.onCreate = func(a ArchetypeID) {
		e.components.growAll(int(a) + 1)
		e.entities.ensureArchetypes(int(a) + 1)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ThreadCount reports the configured worker count.
func (e *Engine) ThreadCount() int { return e.threadCount }

// RegisterComponent assigns (or retrieves) the dense type id for T and makes
// its columns available to archetype transitions. Registration happens
// between frames, typically once at startup.
func RegisterComponent[T any](e *Engine) ComponentType[T] {
	id := registerColumns[T](e.components, e.archetypes.count())
	return ComponentType[T]{id: id}
}

// RunFrame executes every registered system once, honoring declared accesses
// and action ordering, then drains the deferred mutation queue. A panic in a
// system is re-raised here after the remaining systems have finished, before
// the queue drains.
func (e *Engine) RunFrame() {
	if e.running {
		panic("internal error: RunFrame called while a frame is executing")
	}
	e.running = true
	e.runSystems()
	e.running = false
	if p := e.takePanic(); p != nil {
		panic(p)
	}
	e.queue.drain(e)
	e.logger.Debug("frame complete",
		zap.Int("systems", e.systems.len()),
		zap.Int("archetypes", len(e.archetypes.allLive())))
}

// RunOnce registers fn as a temporary system, executes it alone, unregisters
// it and drains the queue. It is how startup and teardown logic reuses the
// frame API without becoming part of every frame.
func (e *Engine) RunOnce(fn SystemFunc, opts ...SystemOption) error {
	if e.running {
		return EngineBusyError{}
	}
	id, err := e.RegisterSystem(fn, opts...)
	if err != nil {
		return err
	}
	e.running = true
	e.runSystem(id)
	e.running = false
	desc := e.systems.descriptor(id)
	waitEdges := len(e.actions.depsOf(desc.action)) + len(desc.extraDeps)
	for _, m := range desc.memberships {
		e.actions.removeSystem(m)
		e.actions.trimInduced(m, waitEdges)
	}
	e.systems.systems = e.systems.systems[:id]
	if p := e.takePanic(); p != nil {
		panic(p)
	}
	e.queue.drain(e)
	return nil
}

func (e *Engine) recordPanic(sys SystemID, v any) {
	e.panicMu.Lock()
	defer e.panicMu.Unlock()
	if e.panicVal == nil {
		e.panicVal = v
		e.panicSys = sys
		e.logger.Error("system panicked", zap.Int("system", int(sys)), zap.Any("value", v))
	}
}

func (e *Engine) takePanic() any {
	e.panicMu.Lock()
	defer e.panicMu.Unlock()
	v := e.panicVal
	e.panicVal = nil
	return v
}

// NewGroup allocates a fresh group id.
func (e *Engine) NewGroup() (GroupID, error) {
	if e.running {
		return 0, EngineBusyError{}
	}
	return e.groups.create(), nil
}

// DeleteGroup destroys a group, every entity it owns and every archetype
// created on its behalf.
func (e *Engine) DeleteGroup(g GroupID) error {
	if e.running {
		return EngineBusyError{}
	}
	if !e.groups.isAlive(g) {
		return DeadGroupError{Group: g}
	}
	e.deleteGroup(g)
	return nil
}

// NewEntity creates a root entity in the default group.
func (e *Engine) NewEntity() (EntityID, error) {
	return e.NewEntityIn(DefaultGroup)
}

// NewEntityIn creates a root entity owned by the given group.
func (e *Engine) NewEntityIn(group GroupID) (EntityID, error) {
	if e.running {
		return NoEntity, EngineBusyError{}
	}
	if !e.groups.isAlive(group) {
		return NoEntity, DeadGroupError{Group: group}
	}
	return e.createEntity(NoEntity, group), nil
}

// NewChildEntity creates an entity parented to (and grouped with) another.
func (e *Engine) NewChildEntity(parent EntityID) (EntityID, error) {
	if e.running {
		return NoEntity, EngineBusyError{}
	}
	if _, ok := e.entities.location(parent); !ok {
		return NoEntity, DeadEntityError{Entity: parent}
	}
	return e.createEntity(parent, 0), nil
}

// DestroyEntity deletes an entity and its descendants immediately.
func (e *Engine) DestroyEntity(id EntityID) error {
	if e.running {
		return EngineBusyError{}
	}
	if _, ok := e.entities.location(id); !ok {
		return DeadEntityError{Entity: id}
	}
	e.destroyEntity(id)
	return nil
}

// ComponentCount reports how many entities currently carry the type.
func (e *Engine) ComponentCount(t TypeID) int {
	return e.components.count(t)
}

// Location reports where an entity currently lives.
func (e *Engine) Location(id EntityID) (Location, bool) {
	return e.entities.location(id)
}

// Parent reports an entity's parent; NoEntity for roots and dead ids.
func (e *Engine) Parent(id EntityID) EntityID {
	if _, ok := e.entities.location(id); !ok {
		return NoEntity
	}
	return e.entities.parent(id)
}

// Children reports an entity's direct children; nil for dead ids.
func (e *Engine) Children(id EntityID) []EntityID {
	if _, ok := e.entities.location(id); !ok {
		return nil
	}
	return e.entities.childIDs(id)
}

// Depth reports an entity's distance from its root ancestor; 0 for dead ids.
func (e *Engine) Depth(id EntityID) int {
	if _, ok := e.entities.location(id); !ok {
		return 0
	}
	return e.entities.depth(id)
}

// Group reports the group owning an entity; 0 for dead ids.
func (e *Engine) Group(id EntityID) GroupID {
	if _, ok := e.entities.location(id); !ok {
		return 0
	}
	return e.entities.group(id)
}

// Add attaches a component to an entity immediately, replacing the value if
// the type is already present.
func Add[T any](e *Engine, id EntityID, ct ComponentType[T], value T) error {
	if e.running {
		return EngineBusyError{}
	}
	loc, ok := e.entities.location(id)
	if !ok {
		return DeadEntityError{Entity: id}
	}
	dst, err := e.archetypes.addComponent(loc.Archetype, ct.ID(), e.entities.group(id))
	if err != nil {
		var existing ExistingComponentError
		if errors.As(err, &existing) {
			storeAdd(e.components, ct.ID(), loc, value)
			return nil
		}
		return err
	}
	newLoc := e.moveEntity(id, loc, dst)
	storeAdd(e.components, ct.ID(), newLoc, value)
	return nil
}

// Remove detaches a component from an entity immediately.
func Remove[T any](e *Engine, id EntityID, ct ComponentType[T]) error {
	if e.running {
		return EngineBusyError{}
	}
	loc, ok := e.entities.location(id)
	if !ok {
		return DeadEntityError{Entity: id}
	}
	dst, err := e.archetypes.deleteComponent(loc.Archetype, ct.ID())
	if err != nil {
		return err
	}
	e.moveEntity(id, loc, dst)
	return nil
}

// Get returns a pointer to an entity's component value, or false when the
// entity is dead or lacks the type. Valid only until the next structural
// change.
func Get[T any](e *Engine, id EntityID, ct ComponentType[T]) (*T, bool) {
	loc, ok := e.entities.location(id)
	if !ok || !e.archetypes.contains(loc.Archetype, ct.ID()) {
		return nil, false
	}
	cols := columnsOf[T](e.components, ct.ID())
	return &(*cols)[loc.Archetype][loc.Pos], true
}

func (e *Engine) createEntity(parent EntityID, group GroupID) EntityID {
	id, _ := e.entities.createIn(EmptyArchetype, parent, group)
	e.groups.add(e.entities.group(id), id)
	return id
}

// moveEntity relocates an entity's component values and id-list slot to the
// destination archetype, dropping values whose types the destination lacks,
// and fixes the location of whichever entity was displaced by the
// swap-remove.
func (e *Engine) moveEntity(id EntityID, loc Location, dst ArchetypeID) Location {
	for _, t := range e.archetypes.types(loc.Archetype) {
		if e.archetypes.contains(dst, t) {
			e.components.move(t, loc, dst)
		} else {
			e.components.delete(t, loc)
		}
	}
	newLoc, displaced := e.entities.move(id, dst)
	if displaced != NoEntity {
		e.entities.setLocation(displaced, loc)
	}
	return newLoc
}

func (e *Engine) destroyEntity(id EntityID) {
	e.entities.deleteTree(id, func(eid EntityID, loc Location) {
		for _, t := range e.archetypes.types(loc.Archetype) {
			e.components.delete(t, loc)
		}
		e.groups.remove(e.entities.group(eid), eid)
	})
}

func (e *Engine) deleteGroup(g GroupID) {
	for _, id := range e.groups.membersOf(g) {
		if _, ok := e.entities.location(id); !ok {
			continue
		}
		e.destroyEntity(id)
	}
	e.archetypes.deleteAll(g,
		func(a ArchetypeID) bool { return len(e.entities.entityIDs(a)) == 0 },
		func(a ArchetypeID) { e.components.dropArchetype(a) })
	e.groups.release(g)
	e.logger.Debug("group deleted", zap.Int("group", int(g)))
}
