package speech

import (
	"context"
	"time"

	"github.com/HakkanShah/WeMakeLessons-sub002/internal/observability"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/reliability"
)

// Options configures one Engine instance.
type Options struct {
	Locale        string
	VoiceRetry    reliability.RetryPolicy
	TrailingPause time.Duration
	Metrics       *observability.Metrics
}

// Engine bundles the four speech controllers behind the surface exposed to
// application code. One Engine exists per connected client session.
type Engine struct {
	Resolver *Resolver
	Gate     *Gate
	Speaker  *Speaker
	Listener *Listener
}

func NewEngine(synth Synthesizer, recognizer RecognizerFactory, opts Options) *Engine {
	gate := NewGate()
	resolver := NewResolver(synth, opts.VoiceRetry, opts.Metrics)
	speaker := NewSpeaker(synth, resolver, gate, opts.Metrics)
	if opts.TrailingPause > 0 {
		speaker.SetTrailingPause(opts.TrailingPause)
	}
	locale := opts.Locale
	if locale == "" {
		locale = "en-US"
	}
	return &Engine{
		Resolver: resolver,
		Gate:     gate,
		Speaker:  speaker,
		Listener: NewListener(recognizer, locale, opts.Metrics),
	}
}

// Start kicks off background work (voice catalog retry). It returns
// immediately; ctx cancellation stops the retry loop.
func (e *Engine) Start(ctx context.Context) {
	e.Resolver.Kick(ctx)
}

// Snapshot is the state surface published to clients.
type Snapshot struct {
	IsSpeaking         bool   `json:"is_speaking"`
	VoiceModeEnabled   bool   `json:"voice_mode_enabled"`
	HasUserInteraction bool   `json:"has_user_interaction"`
	HasVoiceSupport    bool   `json:"has_voice_support"`
	IsSupported        bool   `json:"recognition_supported"`
	IsListening        bool   `json:"is_listening"`
	Transcript         string `json:"transcript"`
	Error              string `json:"error,omitempty"`
	SelectedVoice      string `json:"selected_voice,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		IsSpeaking:         e.Speaker.IsSpeaking(),
		VoiceModeEnabled:   e.Speaker.VoiceModeEnabled(),
		HasUserInteraction: e.Gate.Interacted(),
		HasVoiceSupport:    e.Speaker.HasVoiceSupport(),
		IsSupported:        e.Listener.Supported(),
		IsListening:        e.Listener.IsListening(),
		Transcript:         e.Listener.Transcript(),
		Error:              e.Listener.Err(),
	}
	if v := e.Resolver.Selected(); v != nil {
		snap.SelectedVoice = v.Name
	}
	return snap
}
