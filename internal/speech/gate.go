package speech

import "sync"

// Gate latches the first user interaction of the session. Platform autoplay
// policy blocks audio until the user has pressed, typed or touched something,
// so playback consults the latch before speaking. The latch never resets.
type Gate struct {
	mu         sync.Mutex
	interacted bool
	cancels    []func()
}

func NewGate() *Gate {
	return &Gate{}
}

// Arm subscribes to pointer, key and touch events on src. The first event of
// any kind sets the latch and removes all three subscriptions.
func (g *Gate) Arm(src InputSource) {
	g.mu.Lock()
	if g.interacted {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	for _, kind := range []InputKind{InputPointer, InputKey, InputTouch} {
		cancel := src.Subscribe(kind, g.NotifyInteraction)
		g.mu.Lock()
		if g.interacted {
			g.mu.Unlock()
			cancel()
			continue
		}
		g.cancels = append(g.cancels, cancel)
		g.mu.Unlock()
	}
}

// NotifyInteraction sets the latch and drops any armed subscriptions.
func (g *Gate) NotifyInteraction() {
	g.mu.Lock()
	if g.interacted {
		g.mu.Unlock()
		return
	}
	g.interacted = true
	cancels := g.cancels
	g.cancels = nil
	g.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Interacted reports whether the user has interacted with the page yet.
func (g *Gate) Interacted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interacted
}
