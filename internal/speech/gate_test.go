package speech

import (
	"sync"
	"testing"
)

type fakeInputSource struct {
	mu       sync.Mutex
	handlers map[InputKind]func()
	removed  int
}

func newFakeInputSource() *fakeInputSource {
	return &fakeInputSource{handlers: make(map[InputKind]func())}
}

func (f *fakeInputSource) Subscribe(kind InputKind, fn func()) func() {
	f.mu.Lock()
	f.handlers[kind] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.handlers, kind)
		f.removed++
		f.mu.Unlock()
	}
}

func (f *fakeInputSource) fire(kind InputKind) {
	f.mu.Lock()
	fn := f.handlers[kind]
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeInputSource) removedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removed
}

func TestGateLatchesOnFirstEvent(t *testing.T) {
	gate := NewGate()
	src := newFakeInputSource()
	gate.Arm(src)

	if gate.Interacted() {
		t.Fatalf("Interacted() = true before any event")
	}
	src.fire(InputKey)
	if !gate.Interacted() {
		t.Fatalf("Interacted() = false after key event")
	}
	if got := src.removedCount(); got != 3 {
		t.Fatalf("removed subscriptions = %d, want 3", got)
	}
}

func TestGateLatchIsPermanent(t *testing.T) {
	gate := NewGate()
	src := newFakeInputSource()
	gate.Arm(src)

	src.fire(InputTouch)
	src.fire(InputPointer)
	if !gate.Interacted() {
		t.Fatalf("Interacted() = false, want true")
	}

	// Re-arming after the latch is set subscribes nothing.
	other := newFakeInputSource()
	gate.Arm(other)
	other.mu.Lock()
	n := len(other.handlers)
	other.mu.Unlock()
	if n != 0 {
		t.Fatalf("handlers after re-arm = %d, want 0", n)
	}
}

func TestGateDirectNotify(t *testing.T) {
	gate := NewGate()
	gate.NotifyInteraction()
	if !gate.Interacted() {
		t.Fatalf("Interacted() = false after NotifyInteraction")
	}
}
