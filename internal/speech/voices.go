package speech

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/HakkanShah/WeMakeLessons-sub002/internal/observability"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/reliability"
)

// Female-sounding descriptive tokens seen across platform voice catalogs.
var femaleVoiceTokens = []string{
	"female", "woman",
	"samantha", "victoria", "karen", "moira", "tessa", "fiona",
	"zira", "aria", "jenny", "jessica", "lily", "sarah", "allison", "ava", "susan",
}

// Tokens platforms use for their higher-quality synthesis tiers.
var naturalVoiceTokens = []string{"natural", "neural", "premium", "enhanced", "online"}

// Known high-quality US-English voices, matched by name when the descriptive
// token heuristics find nothing.
var preferredVoiceNames = []string{
	"Samantha",
	"Google US English",
	"Microsoft Zira",
	"Microsoft Aria",
}

// Resolver selects one synthesis voice from the platform catalog and keeps
// the selection current as the catalog changes. Catalogs can populate
// asynchronously well after the voice API reports ready, so resolution is
// retried on a bounded fixed interval until a voice appears or the budget is
// spent.
type Resolver struct {
	mu        sync.Mutex
	synth     Synthesizer
	policy    reliability.RetryPolicy
	metrics   *observability.Metrics
	selected  *Voice
	attempts  int
	exhausted bool
}

func NewResolver(synth Synthesizer, policy reliability.RetryPolicy, metrics *observability.Metrics) *Resolver {
	r := &Resolver{synth: synth, policy: policy, metrics: metrics}
	synth.SetVoicesChanged(func() { r.Resolve() })
	r.Resolve()
	return r
}

// Selected returns the currently resolved voice, or nil when the catalog has
// not produced one yet. Callers fall back to the platform default voice.
func (r *Resolver) Selected() *Voice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return nil
	}
	v := *r.selected
	return &v
}

// Resolve re-runs selection against the current catalog. An empty catalog
// clears the selection rather than leaving a stale reference behind.
func (r *Resolver) Resolve() bool {
	catalog := r.synth.Voices()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.VoiceResolveAttempts.Inc()
	}
	if len(catalog) == 0 {
		r.selected = nil
		return false
	}
	best := pickBestVoice(catalog)
	r.selected = &best
	return true
}

// Kick drives the bounded retry loop in the background. It stops as soon as
// a voice is resolved, the context ends, or the attempt budget is spent;
// after exhaustion it never restarts for the rest of the session.
func (r *Resolver) Kick(ctx context.Context) {
	r.mu.Lock()
	if r.exhausted || r.selected != nil || !r.policy.Enabled() {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(r.policy.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if r.Resolve() {
					return
				}
				r.mu.Lock()
				r.attempts++
				spent := r.attempts >= r.policy.MaxAttempts
				if spent {
					r.exhausted = true
				}
				r.mu.Unlock()
				if spent {
					return
				}
			}
		}
	}()
}

// Exhausted reports whether the retry budget has been spent without finding
// a voice.
func (r *Resolver) Exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exhausted
}

// pickBestVoice applies the selection priority order, first match wins:
// natural US female, known high-quality US-English name, any female-sounding
// "en" voice, any "en" voice, then the first catalog entry.
func pickBestVoice(catalog []Voice) Voice {
	for _, v := range catalog {
		if strings.HasPrefix(v.Lang, "en-US") && hasToken(v.Name, naturalVoiceTokens) && hasToken(v.Name, femaleVoiceTokens) {
			return v
		}
	}
	for _, v := range catalog {
		for _, name := range preferredVoiceNames {
			if strings.Contains(strings.ToLower(v.Name), strings.ToLower(name)) {
				return v
			}
		}
	}
	for _, v := range catalog {
		if strings.HasPrefix(v.Lang, "en") && hasToken(v.Name, femaleVoiceTokens) {
			return v
		}
	}
	for _, v := range catalog {
		if strings.HasPrefix(v.Lang, "en") {
			return v
		}
	}
	return catalog[0]
}

func hasToken(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, token := range tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
