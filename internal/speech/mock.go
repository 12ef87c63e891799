package speech

import (
	"strings"
	"sync"
	"time"
)

// MockSynthesizer is an in-process platform stand-in used for headless runs
// and tests. Utterances complete after a short delay proportional to their
// length; Cancel interrupts the pending one.
type MockSynthesizer struct {
	mu      sync.Mutex
	catalog []Voice
	changed func()
	timer   *time.Timer
	current *Utterance
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{
		catalog: []Voice{
			{Name: "Samantha", Lang: "en-US"},
			{Name: "Daniel", Lang: "en-GB"},
		},
	}
}

func (m *MockSynthesizer) Supported() bool { return true }

func (m *MockSynthesizer) Voices() []Voice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Voice, len(m.catalog))
	copy(out, m.catalog)
	return out
}

func (m *MockSynthesizer) SetVoicesChanged(fn func()) {
	m.mu.Lock()
	m.changed = fn
	m.mu.Unlock()
}

// SetCatalog replaces the catalog and fires the catalog-changed callback,
// mimicking late-arriving platform voices.
func (m *MockSynthesizer) SetCatalog(voices []Voice) {
	m.mu.Lock()
	m.catalog = voices
	changed := m.changed
	m.mu.Unlock()
	if changed != nil {
		changed()
	}
}

func (m *MockSynthesizer) Speak(u *Utterance) {
	delay := 20*time.Millisecond + time.Duration(len(strings.Fields(u.Text)))*10*time.Millisecond
	m.mu.Lock()
	m.current = u
	m.timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		done := m.current == u
		if done {
			m.current = nil
		}
		m.mu.Unlock()
		if done && u.OnDone != nil {
			u.OnDone()
		}
	})
	m.mu.Unlock()
}

func (m *MockSynthesizer) Cancel() {
	m.mu.Lock()
	u := m.current
	m.current = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	if u != nil && u.OnError != nil {
		u.OnError("interrupted")
	}
}

// MockRecognizerFactory fabricates recognition sessions that replay a fixed
// script of interim-then-final results after Start.
type MockRecognizerFactory struct {
	Script []string
}

func NewMockRecognizerFactory(script ...string) *MockRecognizerFactory {
	if len(script) == 0 {
		script = []string{"simulated voice input"}
	}
	return &MockRecognizerFactory{Script: script}
}

func (f *MockRecognizerFactory) Supported() bool { return true }

func (f *MockRecognizerFactory) NewSession(cfg RecognitionConfig) RecognitionSession {
	return &mockRecognitionSession{cfg: cfg, script: f.Script}
}

type mockRecognitionSession struct {
	mu      sync.Mutex
	cfg     RecognitionConfig
	cb      RecognitionCallbacks
	script  []string
	stopped bool
	timers  []*time.Timer
}

func (s *mockRecognitionSession) Bind(cb RecognitionCallbacks) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *mockRecognitionSession) Start() error {
	s.mu.Lock()
	s.stopped = false
	script := s.script
	s.mu.Unlock()

	// Replay the script as a growing result list: interim tail first, then
	// the same entry flagged final, the way real platform recognizers
	// deliver revisions.
	var results []RecognitionResult
	delay := 50 * time.Millisecond
	for _, phrase := range script {
		interim := append(append([]RecognitionResult{}, results...), RecognitionResult{Transcript: phrase})
		s.scheduleDeliver(delay, interim)
		delay += 60 * time.Millisecond
		results = append(results, RecognitionResult{Transcript: phrase + " ", Final: true})
		s.scheduleDeliver(delay, append([]RecognitionResult{}, results...))
		delay += 60 * time.Millisecond
	}
	return nil
}

func (s *mockRecognitionSession) scheduleDeliver(after time.Duration, results []RecognitionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := time.AfterFunc(after, func() {
		s.mu.Lock()
		stopped := s.stopped
		cb := s.cb
		s.mu.Unlock()
		if stopped || cb.OnResult == nil {
			return
		}
		cb.OnResult(results)
	})
	s.timers = append(s.timers, t)
}

func (s *mockRecognitionSession) Stop() {
	s.finish(true)
}

func (s *mockRecognitionSession) Abort() {
	s.finish(false)
}

func (s *mockRecognitionSession) finish(notifyEnd bool) {
	s.mu.Lock()
	s.stopped = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	cb := s.cb
	s.mu.Unlock()
	if notifyEnd && cb.OnEnd != nil {
		cb.OnEnd()
	}
}
