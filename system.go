package loom

import (
	"fmt"

	"go.uber.org/zap"
)

// systemDescriptor is the immutable registration record of one system: what
// it touches, where it sits in the action DAG, and which structural-mutation
// capabilities it claimed.
type systemDescriptor struct {
	fn       SystemFunc
	accesses []ComponentAccess
	filter   QueryNode // nil matches every archetype

	action      ActionID   // the system's own ordering node
	memberships []ActionID // action plus the writer node of every written type
	extraDeps   []ActionID // writer nodes this system waits on

	groupMutation  bool
	entityMutation bool
}

type systemRegistry struct {
	systems []systemDescriptor
}

func (r *systemRegistry) len() int { return len(r.systems) }

func (r *systemRegistry) descriptor(id SystemID) *systemDescriptor {
	return &r.systems[id]
}

type systemConfig struct {
	reads          []TypeID
	writes         []TypeID
	filter         QueryNode
	actionKey      string
	actionAfter    []string
	afterWriters   []TypeID
	groupMutation  bool
	entityMutation bool
}

// SystemOption configures a system at registration time.
type SystemOption func(*systemConfig)

// Reads declares shared access to the given component types.
func Reads(cs ...Component) SystemOption {
	return func(c *systemConfig) {
		for _, comp := range cs {
			c.reads = append(c.reads, comp.ID())
		}
	}
}

// Writes declares exclusive access to the given component types.
func Writes(cs ...Component) SystemOption {
	return func(c *systemConfig) {
		for _, comp := range cs {
			c.writes = append(c.writes, comp.ID())
		}
	}
}

// WithFilter restricts the system's cursors to archetypes matching the node.
func WithFilter(node QueryNode) SystemOption {
	return func(c *systemConfig) { c.filter = node }
}

// WithAction attaches the system to a named action node, optionally declaring
// the action's prerequisites. Prerequisites are resolved once per key; the
// resulting graph must stay acyclic.
func WithAction(key string, after ...string) SystemOption {
	return func(c *systemConfig) {
		c.actionKey = key
		c.actionAfter = append(c.actionAfter, after...)
	}
}

// AfterWriters orders the system after every system writing the given types.
func AfterWriters(cs ...Component) SystemOption {
	return func(c *systemConfig) {
		for _, comp := range cs {
			c.afterWriters = append(c.afterWriters, comp.ID())
		}
	}
}

// WithEntityMutation declares that the system enqueues entity-level
// structural mutations (create/delete entity, add/remove component).
func WithEntityMutation() SystemOption {
	return func(c *systemConfig) { c.entityMutation = true }
}

// WithGroupMutation declares that the system enqueues group deletions.
// Group-mutating systems are serialized against each other.
func WithGroupMutation() SystemOption {
	return func(c *systemConfig) { c.groupMutation = true }
}

// RegisterSystem records a system and the declarative metadata the scheduler
// needs to run it safely. Registration is rejected, not deferred, when the
// declared ordering could never be satisfied.
func (e *Engine) RegisterSystem(fn SystemFunc, opts ...SystemOption) (SystemID, error) {
	if e.running {
		return 0, EngineBusyError{}
	}
	var cfg systemConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	accesses := make([]ComponentAccess, 0, len(cfg.reads)+len(cfg.writes))
	seen := make(map[TypeID]int)
	for _, t := range cfg.reads {
		seen[t] = len(accesses)
		accesses = append(accesses, ComponentAccess{Type: t, Access: Read})
	}
	for _, t := range cfg.writes {
		if i, ok := seen[t]; ok {
			accesses[i].Access = Write
			continue
		}
		seen[t] = len(accesses)
		accesses = append(accesses, ComponentAccess{Type: t, Access: Write})
	}

	var depIDs []ActionID
	for _, key := range cfg.actionAfter {
		dep, err := e.actions.idxOrCreate(key, nil)
		if err != nil {
			return 0, fmt.Errorf("resolving action dependency %q: %w", key, err)
		}
		depIDs = append(depIDs, dep)
	}
	var action ActionID
	if cfg.actionKey != "" {
		var err error
		action, err = e.actions.idxOrCreate(cfg.actionKey, depIDs)
		if err != nil {
			return 0, err
		}
	} else {
		if len(depIDs) > 0 {
			return 0, fmt.Errorf("action dependencies require a named action")
		}
		action = e.actions.anonymous()
	}

	memberships := []ActionID{action}
	for _, acc := range accesses {
		if acc.Access == Write {
			memberships = append(memberships, e.actions.writerNode(acc.Type))
		}
	}
	var extraDeps []ActionID
	for _, t := range cfg.afterWriters {
		extraDeps = append(extraDeps, e.actions.writerNode(t))
	}

	id := SystemID(e.systems.len())
	waitDeps := append(append([]ActionID{}, e.actions.depsOf(action)...), extraDeps...)
	for _, dep := range waitDeps {
		for _, m := range memberships {
			if dep == m {
				return 0, SelfDependencyError{System: id, Action: dep}
			}
			// The system stalls every membership node until dep completes,
			// so dep reaching a membership closes a wait cycle.
			if e.actions.reaches(dep, m) {
				return 0, ActionCycleError{Key: cfg.actionKey}
			}
		}
	}

	for _, m := range memberships {
		e.actions.addSystem(m)
		e.actions.addInduced(m, waitDeps)
	}
	e.systems.systems = append(e.systems.systems, systemDescriptor{
		fn:             fn,
		accesses:       accesses,
		filter:         cfg.filter,
		action:         action,
		memberships:    memberships,
		extraDeps:      extraDeps,
		groupMutation:  cfg.groupMutation,
		entityMutation: cfg.entityMutation,
	})
	e.logger.Debug("system registered",
		zap.Int("system", int(id)),
		zap.Int("accesses", len(accesses)),
		zap.Int("action", int(action)),
	)
	return id, nil
}
