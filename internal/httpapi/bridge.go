package httpapi

import (
	"sync"

	"github.com/google/uuid"

	"github.com/HakkanShah/WeMakeLessons-sub002/internal/observability"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/protocol"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/speech"
)

// remotePlatform adapts a connected browser into the engine's platform
// interfaces. Synthesis and recognition commands go out over the websocket;
// the browser relays platform callbacks back in, correlated by id. Replies
// for ids no longer tracked are dropped, so a slow client cannot resurrect
// superseded work.
type remotePlatform struct {
	mu       sync.Mutex
	outbound chan<- any
	metrics  *observability.Metrics

	synthSupported bool
	recogSupported bool

	catalog       []speech.Voice
	voicesChanged func()
	utterances    map[string]*speech.Utterance
	recognitions  map[string]*remoteRecognitionSession
}

func newRemotePlatform(outbound chan<- any, metrics *observability.Metrics) *remotePlatform {
	return &remotePlatform{
		outbound:       outbound,
		metrics:        metrics,
		synthSupported: true,
		recogSupported: true,
		utterances:     make(map[string]*speech.Utterance),
		recognitions:   make(map[string]*remoteRecognitionSession),
	}
}

func (p *remotePlatform) setSupport(synthesis, recognition bool) {
	p.mu.Lock()
	p.synthSupported = synthesis
	p.recogSupported = recognition
	p.mu.Unlock()
}

func (p *remotePlatform) send(msg any) {
	select {
	case p.outbound <- msg:
	default:
		// Keep websocket writes single-threaded; drop if the outbound queue
		// is saturated.
		if p.metrics != nil {
			p.metrics.WSMessages.WithLabelValues("outbound", "drop_full").Inc()
		}
	}
}

// Synthesizer implementation.

func (p *remotePlatform) Supported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.synthSupported
}

func (p *remotePlatform) Voices() []speech.Voice {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]speech.Voice, len(p.catalog))
	copy(out, p.catalog)
	return out
}

func (p *remotePlatform) SetVoicesChanged(fn func()) {
	p.mu.Lock()
	p.voicesChanged = fn
	p.mu.Unlock()
}

func (p *remotePlatform) Speak(u *speech.Utterance) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	p.mu.Lock()
	p.utterances[u.ID] = u
	p.mu.Unlock()

	msg := protocol.SpeakUtterance{
		Type:        protocol.TypeSpeakUtterance,
		UtteranceID: u.ID,
		Text:        u.Text,
		Pitch:       u.Pitch,
		Rate:        u.Rate,
	}
	if u.Voice != nil {
		msg.VoiceName = u.Voice.Name
	}
	p.send(msg)
}

func (p *remotePlatform) Cancel() {
	p.mu.Lock()
	p.utterances = make(map[string]*speech.Utterance)
	p.mu.Unlock()
	p.send(protocol.CancelAll{Type: protocol.TypeCancelAll})
}

func (p *remotePlatform) handleVoiceCatalog(voices []protocol.CatalogVoice) {
	catalog := make([]speech.Voice, 0, len(voices))
	for _, v := range voices {
		catalog = append(catalog, speech.Voice{Name: v.Name, Lang: v.Lang})
	}
	p.mu.Lock()
	p.catalog = catalog
	changed := p.voicesChanged
	p.mu.Unlock()
	if changed != nil {
		changed()
	}
}

func (p *remotePlatform) handleUtteranceDone(id string) {
	p.mu.Lock()
	u := p.utterances[id]
	delete(p.utterances, id)
	p.mu.Unlock()
	if u != nil && u.OnDone != nil {
		u.OnDone()
	}
}

func (p *remotePlatform) handleUtteranceError(id, code string) {
	p.mu.Lock()
	u := p.utterances[id]
	delete(p.utterances, id)
	p.mu.Unlock()
	if u != nil && u.OnError != nil {
		u.OnError(code)
	}
}

// RecognizerFactory implementation. Supported() is already taken by the
// synthesizer side of the platform, so the factory is a thin view type.

type remoteRecognizerFactory struct {
	p *remotePlatform
}

func (f remoteRecognizerFactory) Supported() bool {
	return f.p.RecognitionSupported()
}

func (f remoteRecognizerFactory) NewSession(cfg speech.RecognitionConfig) speech.RecognitionSession {
	return f.p.NewSession(cfg)
}

func (p *remotePlatform) RecognitionSupported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recogSupported
}

func (p *remotePlatform) NewSession(cfg speech.RecognitionConfig) speech.RecognitionSession {
	s := &remoteRecognitionSession{id: uuid.NewString(), cfg: cfg, platform: p}
	p.mu.Lock()
	p.recognitions[s.id] = s
	p.mu.Unlock()
	return s
}

func (p *remotePlatform) recognitionByID(id string) *remoteRecognitionSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recognitions[id]
}

func (p *remotePlatform) dropRecognition(id string) {
	p.mu.Lock()
	delete(p.recognitions, id)
	p.mu.Unlock()
}

func (p *remotePlatform) handleRecognitionResults(id string, entries []protocol.RecognitionResultEntry) {
	s := p.recognitionByID(id)
	if s == nil {
		return
	}
	results := make([]speech.RecognitionResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, speech.RecognitionResult{Transcript: e.Transcript, Final: e.Final})
	}
	s.deliver(results)
}

func (p *remotePlatform) handleRecognitionError(id, code string) {
	if s := p.recognitionByID(id); s != nil {
		s.fail(code)
	}
}

func (p *remotePlatform) handleRecognitionEnd(id string) {
	if s := p.recognitionByID(id); s != nil {
		s.end()
	}
}

type remoteRecognitionSession struct {
	mu       sync.Mutex
	id       string
	cfg      speech.RecognitionConfig
	cb       speech.RecognitionCallbacks
	platform *remotePlatform
}

func (s *remoteRecognitionSession) Bind(cb speech.RecognitionCallbacks) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *remoteRecognitionSession) Start() error {
	s.platform.send(protocol.RecognitionStart{
		Type:            protocol.TypeRecognitionStart,
		SessionID:       s.id,
		Lang:            s.cfg.Lang,
		Continuous:      s.cfg.Continuous,
		InterimResults:  s.cfg.InterimResults,
		MaxAlternatives: s.cfg.MaxAlternatives,
	})
	return nil
}

func (s *remoteRecognitionSession) Stop() {
	s.platform.send(protocol.RecognitionStop{Type: protocol.TypeRecognitionStop, SessionID: s.id})
}

func (s *remoteRecognitionSession) Abort() {
	s.platform.send(protocol.RecognitionAbort{Type: protocol.TypeRecognitionAbort, SessionID: s.id})
	s.platform.dropRecognition(s.id)
}

func (s *remoteRecognitionSession) deliver(results []speech.RecognitionResult) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb.OnResult != nil {
		cb.OnResult(results)
	}
}

func (s *remoteRecognitionSession) fail(code string) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb.OnError != nil {
		cb.OnError(code)
	}
}

func (s *remoteRecognitionSession) end() {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb.OnEnd != nil {
		cb.OnEnd()
	}
}
