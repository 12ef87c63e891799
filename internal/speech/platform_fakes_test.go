package speech

import (
	"errors"
	"sync"
)

var errStartRefused = errors.New("recognizer start refused")

type fakeSynth struct {
	mu        sync.Mutex
	supported bool
	catalog   []Voice
	changed   func()
	spoken    []*Utterance
	current   *Utterance
	cancels   int
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{supported: true}
}

func (f *fakeSynth) Supported() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.supported
}

func (f *fakeSynth) Voices() []Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Voice, len(f.catalog))
	copy(out, f.catalog)
	return out
}

func (f *fakeSynth) SetVoicesChanged(fn func()) {
	f.mu.Lock()
	f.changed = fn
	f.mu.Unlock()
}

func (f *fakeSynth) Speak(u *Utterance) {
	f.mu.Lock()
	f.spoken = append(f.spoken, u)
	f.current = u
	f.mu.Unlock()
}

func (f *fakeSynth) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.current = nil
	f.mu.Unlock()
}

func (f *fakeSynth) setCatalog(voices ...Voice) {
	f.mu.Lock()
	f.catalog = voices
	changed := f.changed
	f.mu.Unlock()
	if changed != nil {
		changed()
	}
}

func (f *fakeSynth) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.spoken))
	for _, u := range f.spoken {
		out = append(out, u.Text)
	}
	return out
}

// completeCurrent fires the completion callback of the utterance most
// recently handed to the synthesizer, outside the fake's lock.
func (f *fakeSynth) completeCurrent() {
	f.mu.Lock()
	u := f.current
	f.current = nil
	f.mu.Unlock()
	if u != nil && u.OnDone != nil {
		u.OnDone()
	}
}

func (f *fakeSynth) failCurrent(code string) {
	f.mu.Lock()
	u := f.current
	f.current = nil
	f.mu.Unlock()
	if u != nil && u.OnError != nil {
		u.OnError(code)
	}
}

type fakeRecognizerFactory struct {
	mu        sync.Mutex
	supported bool
	sessions  []*fakeRecognitionSession
}

func newFakeRecognizerFactory() *fakeRecognizerFactory {
	return &fakeRecognizerFactory{supported: true}
}

func (f *fakeRecognizerFactory) Supported() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.supported
}

func (f *fakeRecognizerFactory) NewSession(cfg RecognitionConfig) RecognitionSession {
	s := &fakeRecognitionSession{cfg: cfg}
	f.mu.Lock()
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()
	return s
}

func (f *fakeRecognizerFactory) last() *fakeRecognitionSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[len(f.sessions)-1]
}

func (f *fakeRecognizerFactory) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeRecognitionSession struct {
	mu       sync.Mutex
	cfg      RecognitionConfig
	cb       RecognitionCallbacks
	starts   int
	stops    int
	aborts   int
	startErr error
}

func (s *fakeRecognitionSession) Bind(cb RecognitionCallbacks) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *fakeRecognitionSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	return nil
}

func (s *fakeRecognitionSession) Stop() {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
}

func (s *fakeRecognitionSession) Abort() {
	s.mu.Lock()
	s.aborts++
	s.mu.Unlock()
}

func (s *fakeRecognitionSession) deliver(results ...RecognitionResult) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb.OnResult != nil {
		cb.OnResult(results)
	}
}

func (s *fakeRecognitionSession) fail(code string) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb.OnError != nil {
		cb.OnError(code)
	}
}

func (s *fakeRecognitionSession) end() {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb.OnEnd != nil {
		cb.OnEnd()
	}
}

func (s *fakeRecognitionSession) startCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}
