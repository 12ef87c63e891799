package speech

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HakkanShah/WeMakeLessons-sub002/internal/observability"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/reliability"
)

// Speaker owns the live playback queue and drives chunk-at-a-time sequential
// synthesis. A Speak call fully supersedes any prior one: the queue is
// replaced, the platform utterance is canceled and callbacks from the old
// generation become no-ops. All completion work is keyed by a generation
// counter so a stale callback can never corrupt newer state.
type Speaker struct {
	mu       sync.Mutex
	synth    Synthesizer
	resolver *Resolver
	gate     *Gate
	metrics  *observability.Metrics

	voiceMode     bool
	speaking      bool
	trailingPause time.Duration
	queue         []Chunk
	generation    uint64
	pauseTimer    *time.Timer
	playedIntros  map[string]struct{}
	chunkStarted  time.Time
}

func NewSpeaker(synth Synthesizer, resolver *Resolver, gate *Gate, metrics *observability.Metrics) *Speaker {
	return &Speaker{
		synth:         synth,
		resolver:      resolver,
		gate:          gate,
		metrics:       metrics,
		voiceMode:     true,
		trailingPause: trailingChunkPause,
		playedIntros:  make(map[string]struct{}),
	}
}

// SetTrailingPause overrides the inter-chunk delay used after unterminated
// trailing chunks.
func (s *Speaker) SetTrailingPause(d time.Duration) {
	s.mu.Lock()
	if d >= 0 {
		s.trailingPause = d
	}
	s.mu.Unlock()
}

// HasVoiceSupport reports whether the platform can synthesize at all.
func (s *Speaker) HasVoiceSupport() bool {
	return s.synth.Supported()
}

func (s *Speaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *Speaker) VoiceModeEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceMode
}

func (s *Speaker) SetVoiceMode(enabled bool) {
	s.mu.Lock()
	s.voiceMode = enabled
	s.mu.Unlock()
}

// Speak cancels any in-flight playback, installs the chunks of text as the
// new live queue and begins draining it. It is a strict no-op when voice
// mode is off, the user has not interacted yet, or text normalizes to empty.
func (s *Speaker) Speak(text string) {
	if !s.synth.Supported() {
		return
	}
	s.mu.Lock()
	trailing := s.trailingPause
	s.mu.Unlock()
	chunks := segmentWithPause(text, trailing)
	if len(chunks) == 0 {
		return
	}

	s.mu.Lock()
	if !s.voiceMode {
		s.mu.Unlock()
		return
	}
	if !s.gate.Interacted() {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.AutoplayBlocked.Inc()
		}
		return
	}
	gen := s.supersedeLocked()
	s.queue = chunks
	s.mu.Unlock()

	s.synth.Cancel()
	s.drain(gen)
}

// PlayIntro speaks text at most once per key for the session lifetime. The
// key is marked played before speaking so a failure mid-utterance does not
// cause a repeat on retry.
func (s *Speaker) PlayIntro(key, text string) {
	s.mu.Lock()
	if _, done := s.playedIntros[key]; done {
		s.mu.Unlock()
		return
	}
	s.playedIntros[key] = struct{}{}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IntrosPlayed.Inc()
	}
	s.Speak(text)
}

// Cancel stops the in-progress utterance, clears any pending inter-chunk
// timer, empties the queue and resets the speaking flag. Safe to call when
// nothing is playing.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	s.supersedeLocked()
	s.mu.Unlock()

	s.synth.Cancel()
	if s.metrics != nil {
		s.metrics.SpeechCancels.Inc()
	}
}

// supersedeLocked invalidates the current playback generation. Late
// callbacks carrying the old generation are ignored on arrival.
func (s *Speaker) supersedeLocked() uint64 {
	s.generation++
	if s.pauseTimer != nil {
		s.pauseTimer.Stop()
		s.pauseTimer = nil
	}
	s.queue = nil
	s.speaking = false
	return s.generation
}

func (s *Speaker) drain(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if len(s.queue) == 0 {
		s.speaking = false
		s.mu.Unlock()
		return
	}
	chunk := s.queue[0]
	s.queue = s.queue[1:]
	s.speaking = true
	s.pauseTimer = nil
	s.chunkStarted = time.Now()
	s.mu.Unlock()

	u := &Utterance{
		ID:    uuid.NewString(),
		Text:  chunk.Text,
		Pitch: chunk.Pitch,
		Rate:  chunk.Rate,
		OnDone: func() {
			s.onChunkDone(gen, chunk.Pause)
		},
		OnError: func(code string) {
			s.onChunkError(gen, code)
		},
	}
	if s.resolver != nil {
		// A missing selection still plays: the platform default voice is used.
		u.Voice = s.resolver.Selected()
	}
	if s.metrics != nil {
		s.metrics.UtterancesSpoken.Inc()
	}
	s.synth.Speak(u)
}

func (s *Speaker) onChunkDone(gen uint64, pause time.Duration) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	started := s.chunkStarted
	if len(s.queue) == 0 {
		s.speaking = false
		s.mu.Unlock()
		s.observeChunk(started)
		return
	}
	if pause <= 0 {
		s.mu.Unlock()
		s.observeChunk(started)
		s.drain(gen)
		return
	}
	s.pauseTimer = time.AfterFunc(pause, func() {
		s.drain(gen)
	})
	s.mu.Unlock()
	s.observeChunk(started)
}

func (s *Speaker) onChunkError(gen uint64, code string) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.speaking = false
	s.queue = nil
	if s.pauseTimer != nil {
		s.pauseTimer.Stop()
		s.pauseTimer = nil
	}
	s.mu.Unlock()

	if s.metrics == nil {
		return
	}
	switch {
	case reliability.IsBenignSynthesisCode(code):
		// Expected early termination, nothing to surface.
	case reliability.IsAutoplayBlockedCode(code):
		s.metrics.AutoplayBlocked.Inc()
	default:
		s.metrics.ProviderErrors.WithLabelValues("synthesis", code).Inc()
	}
}

func (s *Speaker) observeChunk(started time.Time) {
	if s.metrics != nil && !started.IsZero() {
		s.metrics.ObserveUtteranceDuration(time.Since(started))
	}
}
