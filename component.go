package loom

import (
	"reflect"
	"sync"
)

// ComponentType is the registered identity of a Go component type. It is the
// value systems and queries use to name the type; the dense TypeID inside is
// stable for the engine's lifetime.
type ComponentType[T any] struct {
	id TypeID
}

func (c ComponentType[T]) ID() TypeID { return c.id }

// columnHandle is the type-erased per-type storage unit: the columns behind a
// downcast-checked container plus the closures captured once, at registration,
// that let untyped code reshape them.
type columnHandle struct {
	columns any // *[][]T, one column per archetype
	mu      sync.RWMutex

	grow func(archetypes int)
	move func(src Location, dst ArchetypeID)
	del  func(Location)
	drop func(ArchetypeID)
}

// componentStore holds one columnHandle per registered component type,
// addressed by TypeID. It trusts callers on locking discipline: the scheduler
// guarantees that within a frame only the declared system touches a type.
type componentStore struct {
	handles *arena[reflect.Type, *columnHandle]
	counts  []int
}

func newComponentStore() *componentStore {
	return &componentStore{
		handles: newArena[reflect.Type, *columnHandle](MaxComponentTypes),
	}
}

func (s *componentStore) handle(t TypeID) *columnHandle {
	return *s.handles.Item(int(t))
}

func (s *componentStore) count(t TypeID) int {
	if int(t) >= len(s.counts) {
		return 0
	}
	return s.counts[t]
}

// growAll sizes every type's column list to the current archetype count, so
// columns can always be indexed by live ArchetypeID.
func (s *componentStore) growAll(archetypes int) {
	for i := 0; i < s.handles.Len(); i++ {
		h := *s.handles.Item(i)
		h.grow(archetypes)
	}
}

// move swap-removes the value at src and appends it to dst's column. The
// caller owns the resulting location fix-up for whichever entity previously
// sat last in the source column.
func (s *componentStore) move(t TypeID, src Location, dst ArchetypeID) {
	s.handle(t).move(src, dst)
}

// delete swap-removes the value at the location; same fix-up contract as move.
func (s *componentStore) delete(t TypeID, loc Location) {
	s.handle(t).del(loc)
	s.counts[t]--
}

// dropArchetype clears the column of a tombstoned archetype for every type.
func (s *componentStore) dropArchetype(a ArchetypeID) {
	for i := 0; i < s.handles.Len(); i++ {
		h := *s.handles.Item(i)
		h.drop(a)
	}
}

func (s *componentStore) lockRead(t TypeID) func() {
	h := s.handle(t)
	h.mu.RLock()
	return h.mu.RUnlock
}

func (s *componentStore) lockWrite(t TypeID) func() {
	h := s.handle(t)
	h.mu.Lock()
	return h.mu.Unlock
}

// registerColumns assigns (or retrieves) the dense TypeID for T and captures
// the four typed closures the store needs to manipulate T's columns without
// knowing T.
func registerColumns[T any](s *componentStore, archetypes int) TypeID {
	key := reflect.TypeFor[T]()
	if idx, ok := s.handles.Index(key); ok {
		return TypeID(idx)
	}
	cols := make([][]T, archetypes)
	h := &columnHandle{columns: &cols}
	h.grow = func(n int) {
		for len(cols) < n {
			cols = append(cols, nil)
		}
	}
	h.move = func(src Location, dst ArchetypeID) {
		col := cols[src.Archetype]
		v := col[src.Pos]
		last := len(col) - 1
		col[src.Pos] = col[last]
		cols[src.Archetype] = col[:last]
		cols[dst] = append(cols[dst], v)
	}
	h.del = func(loc Location) {
		col := cols[loc.Archetype]
		last := len(col) - 1
		col[loc.Pos] = col[last]
		cols[loc.Archetype] = col[:last]
	}
	h.drop = func(a ArchetypeID) {
		cols[a] = nil
	}
	idx, err := s.handles.Register(key, h)
	if err != nil {
		panic("loom: component type capacity exceeded: " + err.Error())
	}
	s.counts = append(s.counts, 0)
	return TypeID(idx)
}

// columnsOf recovers the typed columns behind a handle. A type mismatch means
// a TypeID was paired with the wrong ComponentType, which is unrecoverable.
func columnsOf[T any](s *componentStore, t TypeID) *[][]T {
	cols, ok := s.handle(t).columns.(*[][]T)
	if !ok {
		panic("internal error: wrong component type for column access")
	}
	return cols
}

// storeAdd writes a value at the exact location: replacing in place when the
// slot exists, appending when the location is the column's next free slot.
// Any gap between the two is broken location bookkeeping.
func storeAdd[T any](s *componentStore, t TypeID, loc Location, value T) {
	cols := columnsOf[T](s, t)
	col := (*cols)[loc.Archetype]
	switch {
	case loc.Pos < len(col):
		col[loc.Pos] = value
	case loc.Pos == len(col):
		(*cols)[loc.Archetype] = append(col, value)
		s.counts[t]++
	default:
		panic("internal error: component insertion past end of column")
	}
}

// View is a per-type window over all archetype columns, valid for the
// duration of the system execution (or ad hoc read) that opened it.
type View[T any] struct {
	ct   ComponentType[T]
	cols *[][]T
}

func newView[T any](e *Engine, ct ComponentType[T]) *View[T] {
	return &View[T]{ct: ct, cols: columnsOf[T](e.components, ct.id)}
}

// Column returns the raw column of one archetype; its order matches the
// archetype's entity-id list.
func (v *View[T]) Column(a ArchetypeID) []T {
	return (*v.cols)[a]
}

// Get returns the value stored at an entity's location.
func (v *View[T]) Get(loc Location) *T {
	return &(*v.cols)[loc.Archetype][loc.Pos]
}

// GetFromCursor returns the value for the entity at the cursor position.
func (v *View[T]) GetFromCursor(c *Cursor) *T {
	return &(*v.cols)[c.currentArchetype][c.entityIndex-1]
}

// Contains reports whether the cursor's current archetype stores this type.
func (v *View[T]) Contains(c *Cursor) bool {
	return c.engine.archetypes.contains(c.currentArchetype, v.ct.id)
}
