package speech

// Voice is one entry of the platform voice catalog.
type Voice struct {
	Name string
	Lang string
}

// Utterance is a single chunk handed to the synthesizer. Completion and
// failure are reported through the callbacks; a synthesizer must invoke at
// most one of them, exactly once.
type Utterance struct {
	ID      string
	Text    string
	Voice   *Voice
	Pitch   float64
	Rate    float64
	OnDone  func()
	OnError func(code string)
}

// Synthesizer is the platform text-to-speech capability. Speak is
// asynchronous: it returns immediately and reports completion via the
// utterance callbacks. Cancel stops any in-flight utterance, which surfaces
// as an OnError with a benign cancellation code or as silence.
type Synthesizer interface {
	Supported() bool
	Voices() []Voice
	SetVoicesChanged(fn func())
	Speak(u *Utterance)
	Cancel()
}

// RecognitionConfig mirrors the platform recognizer knobs the engine sets.
type RecognitionConfig struct {
	Lang            string
	Continuous      bool
	InterimResults  bool
	MaxAlternatives int
}

// RecognitionResult is one entry of the full result list delivered on every
// recognition update. Entries flagged Final will not be revised further;
// everything else is an interim guess.
type RecognitionResult struct {
	Transcript string
	Final      bool
}

// RecognitionCallbacks receive session events. OnResult always carries the
// complete current result list, not a delta.
type RecognitionCallbacks struct {
	OnResult func(results []RecognitionResult)
	OnError  func(code string)
	OnEnd    func()
}

// RecognitionSession is one live platform recognition handle. Start may be
// called again on the same session after it has naturally ended.
type RecognitionSession interface {
	Bind(cb RecognitionCallbacks)
	Start() error
	Stop()
	Abort()
}

// RecognizerFactory creates recognition sessions, or reports that the
// platform has no recognition capability at all.
type RecognizerFactory interface {
	Supported() bool
	NewSession(cfg RecognitionConfig) RecognitionSession
}

// InputKind is a class of user input events relevant to the autoplay policy.
type InputKind string

const (
	InputPointer InputKind = "pointer"
	InputKey     InputKind = "key"
	InputTouch   InputKind = "touch"
)

// InputSource delivers user input events. Subscribe returns a cancel func
// that removes the subscription.
type InputSource interface {
	Subscribe(kind InputKind, fn func()) (cancel func())
}
