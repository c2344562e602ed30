package loom

import (
	"runtime"
	"sync"
)

// lockState tracks one component type's per-frame lock: 0 is free, a positive
// value counts concurrent readers, lockWritten marks an exclusive writer.
type lockState int32

const lockWritten lockState = -1

func (s lockState) lockable(a Access) bool {
	if a == Write {
		return s == 0
	}
	return s >= 0
}

func (s lockState) lock(a Access) lockState {
	switch {
	case a == Write && s == 0:
		return lockWritten
	case a == Write:
		panic("internal error: cannot write-lock non-free component type")
	case s == lockWritten:
		panic("internal error: cannot read-lock written component type")
	default:
		return s + 1
	}
}

func (s lockState) unlock() lockState {
	switch {
	case s == lockWritten:
		return 0
	case s > 0:
		return s - 1
	default:
		panic("internal error: cannot unlock free component type")
	}
}

// scheduler is the per-frame conflict bookkeeping shared by all workers. One
// mutex guards every scheduling decision; a system's whole lock batch is
// acquired atomically relative to other decisions, so no incremental
// acquisition (and therefore no lock-order deadlock) is possible.
type scheduler struct {
	mu          sync.Mutex
	typeStates  []lockState
	groupState  lockState
	entityState lockState
	runnable    []SystemID
	remaining   []int // per action node: systems not yet Done
}

func (s *scheduler) reset(systemCount, typeCount int, actionCounts []int) {
	s.typeStates = make([]lockState, typeCount)
	s.groupState = 0
	s.entityState = 0
	s.runnable = s.runnable[:0]
	for i := 0; i < systemCount; i++ {
		s.runnable = append(s.runnable, SystemID(i))
	}
	s.remaining = actionCounts
}

// next releases the previously run system's locks (if any) and claims the
// first currently runnable system. The bool result reports frame completion:
// no claim plus done=false means the worker should retry after yielding,
// since some in-flight system will eventually free a lock.
func (s *scheduler) next(prev SystemID, reg *systemRegistry, actions *actionGraph) (SystemID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev >= 0 {
		s.release(reg.descriptor(prev))
	}
	if len(s.runnable) == 0 {
		return -1, true
	}
	for i, id := range s.runnable {
		desc := reg.descriptor(id)
		if !s.claimable(desc, actions) {
			continue
		}
		s.claim(desc)
		last := len(s.runnable) - 1
		s.runnable[i] = s.runnable[last]
		s.runnable = s.runnable[:last]
		return id, false
	}
	return -1, false
}

func (s *scheduler) claimable(desc *systemDescriptor, actions *actionGraph) bool {
	if desc.groupMutation && !s.groupState.lockable(Write) {
		return false
	}
	if desc.entityMutation && !s.entityState.lockable(Write) {
		return false
	}
	for _, dep := range actions.depsOf(desc.action) {
		if s.remaining[dep] != 0 {
			return false
		}
	}
	for _, dep := range desc.extraDeps {
		if s.remaining[dep] != 0 {
			return false
		}
	}
	for _, acc := range desc.accesses {
		if !s.typeStates[acc.Type].lockable(acc.Access) {
			return false
		}
	}
	return true
}

func (s *scheduler) claim(desc *systemDescriptor) {
	for _, acc := range desc.accesses {
		s.typeStates[acc.Type] = s.typeStates[acc.Type].lock(acc.Access)
	}
	if desc.groupMutation {
		s.groupState = s.groupState.lock(Write)
	}
	if desc.entityMutation {
		s.entityState = s.entityState.lock(Write)
	}
}

func (s *scheduler) release(desc *systemDescriptor) {
	for _, acc := range desc.accesses {
		s.typeStates[acc.Type] = s.typeStates[acc.Type].unlock()
	}
	if desc.groupMutation {
		s.groupState = s.groupState.unlock()
	}
	if desc.entityMutation {
		s.entityState = s.entityState.unlock()
	}
	for _, m := range desc.memberships {
		s.remaining[m]--
	}
}

// runSystems drives one frame's scheduling to completion. The frame driver
// participates as a worker so small thread counts never leave it idle; below
// two threads no goroutines are spawned at all and the same pick protocol
// degenerates to sequential execution.
func (e *Engine) runSystems() {
	e.sched.reset(e.systems.len(), e.components.handles.Len(), e.actions.systemCounts())
	workers := e.threadCount
	if workers < 2 {
		e.runWorker()
		return
	}
	var wg sync.WaitGroup
	for i := 0; i < workers-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runWorker()
		}()
	}
	e.runWorker()
	wg.Wait()
}

func (e *Engine) runWorker() {
	prev := SystemID(-1)
	for {
		id, done := e.sched.next(prev, &e.systems, e.actions)
		if done {
			return
		}
		if id < 0 {
			prev = -1
			runtime.Gosched()
			continue
		}
		e.runSystem(id)
		prev = id
	}
}

// runSystem executes one system body, isolating panics so scheduler
// bookkeeping for the other systems stays intact. The first captured panic is
// re-raised by RunFrame once scheduling completes.
func (e *Engine) runSystem(id SystemID) {
	frame := newFrame(e, id)
	defer frame.close()
	defer func() {
		if r := recover(); r != nil {
			e.recordPanic(id, r)
		}
	}()
	e.systems.descriptor(id).fn(frame)
}
