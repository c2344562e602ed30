package loom

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

// TestLockState tests the per-type lock transitions
func TestLockState(t *testing.T) {
	var s lockState

	if !s.lockable(Read) || !s.lockable(Write) {
		t.Error("Free state should be lockable for read and write")
	}

	s = s.lock(Read)
	s = s.lock(Read)
	if s != 2 {
		t.Errorf("Two read locks gave state %d, expected 2", s)
	}
	if s.lockable(Write) {
		t.Error("Read state should not be write-lockable")
	}
	if !s.lockable(Read) {
		t.Error("Read state should stay read-lockable")
	}

	s = s.unlock()
	s = s.unlock()
	s = s.lock(Write)
	if s != lockWritten {
		t.Errorf("Write lock gave state %d, expected written", s)
	}
	if s.lockable(Read) || s.lockable(Write) {
		t.Error("Written state should not be lockable at all")
	}
	if s.unlock() != 0 {
		t.Error("Unlocking a written state should free it")
	}

	mustPanic(t, "write-lock on read state", func() { lockState(1).lock(Write) })
	mustPanic(t, "read-lock on written state", func() { lockWritten.lock(Read) })
	mustPanic(t, "unlock on free state", func() { lockState(0).unlock() })
}

// TestFrameRunsEverySystemOnce tests basic frame execution
func TestFrameRunsEverySystemOnce(t *testing.T) {
	for _, threads := range []int{1, 4} {
		engine := New(WithThreadCount(threads))
		var counts [3]int32
		for i := range counts {
			i := i
			if _, err := engine.RegisterSystem(func(f *Frame) {
				atomic.AddInt32(&counts[i], 1)
			}); err != nil {
				t.Fatalf("Failed to register system: %v", err)
			}
		}

		engine.RunFrame()
		engine.RunFrame()

		for i := range counts {
			if got := atomic.LoadInt32(&counts[i]); got != 2 {
				t.Errorf("threads=%d: system %d ran %d times over 2 frames, expected 2", threads, i, got)
			}
		}
	}
}

// TestWritersAreExclusive tests that two writers of one type never overlap
func TestWritersAreExclusive(t *testing.T) {
	engine := New(WithThreadCount(4))
	pos := RegisterComponent[Position](engine)

	var inside, overlaps int32
	body := func(f *Frame) {
		if atomic.AddInt32(&inside, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		for i := 0; i < 1000; i++ {
			_ = i
		}
		atomic.AddInt32(&inside, -1)
	}
	for i := 0; i < 4; i++ {
		if _, err := engine.RegisterSystem(body, Writes(pos)); err != nil {
			t.Fatalf("Failed to register system: %v", err)
		}
	}

	for i := 0; i < 50; i++ {
		engine.RunFrame()
	}
	if n := atomic.LoadInt32(&overlaps); n != 0 {
		t.Errorf("Writers of the same type overlapped %d times", n)
	}
}

// TestReadersRunUnderSharedLock tests that readers never overlap a writer
func TestReadersRunUnderSharedLock(t *testing.T) {
	engine := New(WithThreadCount(4))
	pos := RegisterComponent[Position](engine)

	var writing int32
	if _, err := engine.RegisterSystem(func(f *Frame) {
		atomic.StoreInt32(&writing, 1)
		for i := 0; i < 1000; i++ {
			_ = i
		}
		atomic.StoreInt32(&writing, 0)
	}, Writes(pos)); err != nil {
		t.Fatalf("Failed to register writer: %v", err)
	}

	var racy int32
	reader := func(f *Frame) {
		if atomic.LoadInt32(&writing) == 1 {
			atomic.AddInt32(&racy, 1)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := engine.RegisterSystem(reader, Reads(pos)); err != nil {
			t.Fatalf("Failed to register reader: %v", err)
		}
	}

	for i := 0; i < 50; i++ {
		engine.RunFrame()
	}
	if n := atomic.LoadInt32(&racy); n != 0 {
		t.Errorf("Readers observed an in-flight writer %d times", n)
	}
}

// TestActionOrdering tests that dependent actions run strictly after their
// prerequisites, across thread counts
func TestActionOrdering(t *testing.T) {
	for _, threads := range []int{1, 4} {
		engine := New(WithThreadCount(threads))

		var mu sync.Mutex
		var order []string
		record := func(name string) SystemFunc {
			return func(f *Frame) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
			}
		}

		if _, err := engine.RegisterSystem(record("render"), WithAction("render", "physics")); err != nil {
			t.Fatalf("Failed to register system: %v", err)
		}
		if _, err := engine.RegisterSystem(record("physics"), WithAction("physics", "input")); err != nil {
			t.Fatalf("Failed to register system: %v", err)
		}
		if _, err := engine.RegisterSystem(record("input"), WithAction("input")); err != nil {
			t.Fatalf("Failed to register system: %v", err)
		}

		engine.RunFrame()

		want := []string{"input", "physics", "render"}
		if len(order) != len(want) {
			t.Fatalf("threads=%d: ran %d systems, expected %d", threads, len(order), len(want))
		}
		for i := range want {
			if order[i] != want[i] {
				t.Errorf("threads=%d: order %v, expected %v", threads, order, want)
				break
			}
		}
	}
}

// TestAfterWriters tests that a reader ordered after writers of a type
// observes their values
func TestAfterWriters(t *testing.T) {
	engine := New(WithThreadCount(4))
	pos := RegisterComponent[Position](engine)

	id, _ := engine.NewEntity()
	if err := Add(engine, id, pos, Position{}); err != nil {
		t.Fatalf("Failed to add component: %v", err)
	}

	if _, err := engine.RegisterSystem(func(f *Frame) {
		view, err := ViewOf(f, pos)
		if err != nil {
			t.Errorf("Failed to open view: %v", err)
			return
		}
		cursor := f.Cursor()
		for cursor.Next() {
			view.GetFromCursor(cursor).X = 42
		}
	}, Writes(pos)); err != nil {
		t.Fatalf("Failed to register writer: %v", err)
	}

	var observed float64 = -1
	if _, err := engine.RegisterSystem(func(f *Frame) {
		view, err := ViewOf(f, pos)
		if err != nil {
			t.Errorf("Failed to open view: %v", err)
			return
		}
		cursor := f.Cursor()
		for cursor.Next() {
			observed = view.GetFromCursor(cursor).X
		}
	}, Reads(pos), AfterWriters(pos)); err != nil {
		t.Fatalf("Failed to register reader: %v", err)
	}

	engine.RunFrame()
	if observed != 42 {
		t.Errorf("Reader observed %v, expected the written value 42", observed)
	}
}

// TestSystemPanicIsolation tests that one panicking system neither blocks the
// rest of the frame nor corrupts the next one
func TestSystemPanicIsolation(t *testing.T) {
	engine := New(WithThreadCount(2))

	var ran int32
	if _, err := engine.RegisterSystem(func(f *Frame) {
		panic("boom")
	}); err != nil {
		t.Fatalf("Failed to register system: %v", err)
	}
	if _, err := engine.RegisterSystem(func(f *Frame) {
		atomic.AddInt32(&ran, 1)
	}); err != nil {
		t.Fatalf("Failed to register system: %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("RunFrame swallowed the system panic")
			}
		}()
		engine.RunFrame()
	}()
	if atomic.LoadInt32(&ran) != 1 {
		t.Error("Sibling system did not run in the panicking frame")
	}

	// The next frame must run normally
	func() {
		defer func() {
			if recover() == nil {
				t.Error("RunFrame swallowed the system panic")
			}
		}()
		engine.RunFrame()
	}()
	if atomic.LoadInt32(&ran) != 2 {
		t.Error("Sibling system did not run after a panicking frame")
	}
}

// TestRunFrameRejectsDirectMutation tests the between-frames guard
func TestRunFrameRejectsDirectMutation(t *testing.T) {
	engine := New()

	var gotBusy bool
	if _, err := engine.RegisterSystem(func(f *Frame) {
		if _, err := f.engine.NewEntity(); err != nil {
			var busy EngineBusyError
			gotBusy = errors.As(err, &busy)
		}
	}); err != nil {
		t.Fatalf("Failed to register system: %v", err)
	}

	engine.RunFrame()
	if !gotBusy {
		t.Error("Direct mutation during a frame should return EngineBusyError")
	}
}
