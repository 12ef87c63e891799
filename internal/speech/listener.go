package speech

import (
	"strings"
	"sync"

	"github.com/HakkanShah/WeMakeLessons-sub002/internal/observability"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/reliability"
)

const errRecognitionUnsupported = "speech recognition is not supported in this browser"

// Listener owns at most one live recognition session and rebuilds a stable
// transcript from a result stream in which earlier entries may be revised.
// Every callback verifies that its session is still the owned one, so a
// stale callback from an already replaced session cannot corrupt state.
type Listener struct {
	mu      sync.Mutex
	factory RecognizerFactory
	locale  string
	metrics *observability.Metrics

	session         RecognitionSession
	listening       bool
	intentionalStop bool
	finalized       string
	display         string
	errMsg          string
}

func NewListener(factory RecognizerFactory, locale string, metrics *observability.Metrics) *Listener {
	return &Listener{factory: factory, locale: locale, metrics: metrics}
}

// Supported reports whether the platform has any recognition capability.
func (l *Listener) Supported() bool {
	return l.factory.Supported()
}

func (l *Listener) IsListening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

// Transcript returns the display text: confirmed speech followed by the
// current unconfirmed tail.
func (l *Listener) Transcript() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.display
}

// Err returns the last unexpected recognition error, or empty.
func (l *Listener) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errMsg
}

// StartListening tears down any existing session, resets the transcript and
// starts a fresh continuous interim-enabled session in the configured
// locale. A second call supersedes the first session entirely.
func (l *Listener) StartListening() {
	if !l.factory.Supported() {
		l.mu.Lock()
		l.errMsg = errRecognitionUnsupported
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	old := l.session
	l.session = nil
	l.mu.Unlock()
	if old != nil {
		old.Abort()
	}

	sess := l.factory.NewSession(RecognitionConfig{
		Lang:            l.locale,
		Continuous:      true,
		InterimResults:  true,
		MaxAlternatives: 1,
	})
	sess.Bind(RecognitionCallbacks{
		OnResult: func(results []RecognitionResult) { l.onResults(sess, results) },
		OnError:  func(code string) { l.onError(sess, code) },
		OnEnd:    func() { l.onEnd(sess) },
	})

	l.mu.Lock()
	l.session = sess
	l.finalized = ""
	l.display = ""
	l.errMsg = ""
	l.intentionalStop = false
	l.mu.Unlock()

	if err := sess.Start(); err != nil {
		l.mu.Lock()
		if l.session == sess {
			l.errMsg = "failed to start speech recognition"
			l.listening = false
		}
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	if l.session == sess {
		l.listening = true
	}
	l.mu.Unlock()
}

// StopListening marks the stop as intentional before asking the platform to
// stop, so the subsequent natural end does not trigger an auto-restart. The
// listening flag is forced false regardless of what the platform does next.
func (l *Listener) StopListening() {
	l.mu.Lock()
	l.intentionalStop = true
	sess := l.session
	l.mu.Unlock()

	if sess != nil {
		sess.Stop()
	}

	l.mu.Lock()
	l.listening = false
	l.mu.Unlock()
}

// ClearTranscript resets both the confirmed and displayed text without
// touching the listening state.
func (l *Listener) ClearTranscript() {
	l.mu.Lock()
	l.finalized = ""
	l.display = ""
	l.mu.Unlock()
}

// onResults rebuilds the transcript from the complete current result list.
// The platform may revise earlier "final" flags or re-segment results
// between notifications, so appending deltas would duplicate or corrupt the
// text; a full rebuild per notification is the correctness requirement.
func (l *Listener) onResults(sess RecognitionSession, results []RecognitionResult) {
	var finalized, interim strings.Builder
	for _, r := range results {
		if r.Final {
			finalized.WriteString(r.Transcript)
		} else {
			interim.WriteString(r.Transcript)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != sess {
		return
	}
	l.finalized = finalized.String()
	l.display = strings.TrimSpace(l.finalized + interim.String())
}

func (l *Listener) onError(sess RecognitionSession, code string) {
	if reliability.IsBenignRecognitionCode(code) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != sess {
		return
	}
	l.errMsg = "speech recognition error: " + code
	l.listening = false
	if l.metrics != nil {
		l.metrics.ProviderErrors.WithLabelValues("recognition", code).Inc()
	}
}

// onEnd handles a natural session termination. Unless the caller asked for
// the stop, the same session object is restarted once; a failed restart
// leaves recognition stopped and the caller must start it again.
func (l *Listener) onEnd(sess RecognitionSession) {
	l.mu.Lock()
	if l.session != sess {
		l.mu.Unlock()
		return
	}
	l.listening = false
	restart := !l.intentionalStop
	l.mu.Unlock()

	if !restart {
		return
	}
	if err := sess.Start(); err != nil {
		return
	}

	l.mu.Lock()
	if l.session == sess {
		l.listening = true
		if l.metrics != nil {
			l.metrics.RecognitionRestarts.Inc()
		}
	}
	l.mu.Unlock()
}
