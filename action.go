package loom

import "fmt"

// actionNode is one named ordering point. Systems attached to the node must
// all complete before any system depending on it becomes runnable.
//
// induced holds the wait edges contributed by member systems: a system that
// waits on node W cannot finish, so none of its membership nodes can complete
// before W does. Cycle detection must walk these edges alongside the declared
// deps or a wait cycle routed through a shared node (e.g. a writer node)
// would pass registration and never complete at runtime.
type actionNode struct {
	deps    []ActionID
	induced []ActionID
	systems int
}

// actionGraph is an arena of action nodes forming a DAG. Nodes are addressed
// by dense ActionID; user-declared nodes are keyed by their action key,
// implicit nodes (anonymous per-system nodes, per-type writer nodes) get
// reserved keys the public API cannot collide with.
type actionGraph struct {
	nodes   *arena[string, actionNode]
	writers map[TypeID]ActionID
}

func newActionGraph() *actionGraph {
	return &actionGraph{
		nodes:   newArena[string, actionNode](0),
		writers: make(map[TypeID]ActionID),
	}
}

func (g *actionGraph) depsOf(a ActionID) []ActionID {
	return g.nodes.Item(int(a)).deps
}

func (g *actionGraph) addSystem(a ActionID) {
	g.nodes.Item(int(a)).systems++
}

func (g *actionGraph) removeSystem(a ActionID) {
	g.nodes.Item(int(a)).systems--
}

// addInduced records the wait edges a newly registered member system
// contributes to the node.
func (g *actionGraph) addInduced(a ActionID, deps []ActionID) {
	node := g.nodes.Item(int(a))
	node.induced = append(node.induced, deps...)
}

// trimInduced drops the last n induced edges, undoing one addInduced call.
func (g *actionGraph) trimInduced(a ActionID, n int) {
	node := g.nodes.Item(int(a))
	node.induced = node.induced[:len(node.induced)-n]
}

// systemCounts returns the per-node system count, cloned so the scheduler can
// decrement its copy each frame.
func (g *actionGraph) systemCounts() []int {
	counts := make([]int, g.nodes.Len())
	for i := range counts {
		counts[i] = g.nodes.Item(i).systems
	}
	return counts
}

// idxOrCreate resolves a keyed action node, creating it on first use. A node
// created earlier without dependencies adopts the first non-empty dependency
// list declared for it; dependency declarations that would close a cycle are
// a configuration error.
func (g *actionGraph) idxOrCreate(key string, deps []ActionID) (ActionID, error) {
	if idx, ok := g.nodes.Index(key); ok {
		id := ActionID(idx)
		node := g.nodes.Item(idx)
		if len(node.deps) == 0 && len(deps) > 0 {
			for _, dep := range deps {
				if dep == id || g.reaches(dep, id) {
					return 0, ActionCycleError{Key: key}
				}
			}
			node.deps = deps
		}
		return id, nil
	}
	id := ActionID(g.nodes.Len())
	for _, dep := range deps {
		if g.reaches(dep, id) {
			return 0, ActionCycleError{Key: key}
		}
	}
	if _, err := g.nodes.Register(key, actionNode{deps: deps}); err != nil {
		return 0, fmt.Errorf("registering action %q: %w", key, err)
	}
	return id, nil
}

// anonymous allocates an unkeyed node for a system declared without an action.
func (g *actionGraph) anonymous() ActionID {
	id, err := g.idxOrCreate(fmt.Sprintf("\x00anon/%d", g.nodes.Len()), nil)
	if err != nil {
		panic("internal error: anonymous action registration failed")
	}
	return id
}

// writerNode resolves the implicit node shared by every system that writes
// the given component type; depending on it means "run after any writer of
// this type".
func (g *actionGraph) writerNode(t TypeID) ActionID {
	if id, ok := g.writers[t]; ok {
		return id
	}
	id, err := g.idxOrCreate(fmt.Sprintf("\x00writes/%d", t), nil)
	if err != nil {
		panic("internal error: writer action registration failed")
	}
	g.writers[t] = id
	return id
}

// reaches reports whether target is reachable from start along declared and
// induced dependency edges. Used to reject cycle-closing declarations.
func (g *actionGraph) reaches(start, target ActionID) bool {
	if int(start) >= g.nodes.Len() {
		return false
	}
	stack := []ActionID{start}
	seen := make(map[ActionID]struct{})
	for len(stack) > 0 {
		a := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if a == target {
			return true
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		node := g.nodes.Item(int(a))
		stack = append(stack, node.deps...)
		stack = append(stack, node.induced...)
	}
	return false
}
