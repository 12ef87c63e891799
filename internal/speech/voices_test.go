package speech

import (
	"context"
	"testing"
	"time"

	"github.com/HakkanShah/WeMakeLessons-sub002/internal/reliability"
)

func TestResolverPriorityOrder(t *testing.T) {
	cases := []struct {
		name    string
		catalog []Voice
		want    string
	}{
		{
			name: "natural US female wins",
			catalog: []Voice{
				{Name: "Daniel", Lang: "en-GB"},
				{Name: "Microsoft Aria Online (Natural) - English (United States)", Lang: "en-US"},
				{Name: "Google US English", Lang: "en-US"},
			},
			want: "Microsoft Aria Online (Natural) - English (United States)",
		},
		{
			name: "known US voice beats generic english",
			catalog: []Voice{
				{Name: "Daniel", Lang: "en-GB"},
				{Name: "Google US English", Lang: "en-US"},
			},
			want: "Google US English",
		},
		{
			name: "female english fallback",
			catalog: []Voice{
				{Name: "Hans", Lang: "de-DE"},
				{Name: "Moira", Lang: "en-IE"},
			},
			want: "Moira",
		},
		{
			name: "any english fallback",
			catalog: []Voice{
				{Name: "Hans", Lang: "de-DE"},
				{Name: "Daniel", Lang: "en-GB"},
			},
			want: "Daniel",
		},
		{
			name: "first entry when nothing matches",
			catalog: []Voice{
				{Name: "Hans", Lang: "de-DE"},
				{Name: "Amelie", Lang: "fr-FR"},
			},
			want: "Hans",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pickBestVoice(tc.catalog)
			if got.Name != tc.want {
				t.Fatalf("pickBestVoice() = %q, want %q", got.Name, tc.want)
			}
		})
	}
}

func TestResolverEmptyCatalogClearsSelection(t *testing.T) {
	synth := newFakeSynth()
	synth.setCatalog(Voice{Name: "Daniel", Lang: "en-GB"})

	r := NewResolver(synth, reliability.RetryPolicy{}, nil)
	if v := r.Selected(); v == nil || v.Name != "Daniel" {
		t.Fatalf("Selected() = %+v, want Daniel", v)
	}

	synth.setCatalog()
	if v := r.Selected(); v != nil {
		t.Fatalf("Selected() after empty catalog = %+v, want nil", v)
	}
}

func TestResolverPicksUpLateCatalog(t *testing.T) {
	synth := newFakeSynth()
	r := NewResolver(synth, reliability.RetryPolicy{}, nil)
	if v := r.Selected(); v != nil {
		t.Fatalf("Selected() before catalog = %+v, want nil", v)
	}

	// Catalog arrives on the second catalog-changed notification with a
	// single en-GB entry and no female marker: best available "en" fallback.
	synth.setCatalog()
	synth.setCatalog(Voice{Name: "Daniel", Lang: "en-GB"})

	v := r.Selected()
	if v == nil || v.Name != "Daniel" {
		t.Fatalf("Selected() = %+v, want Daniel", v)
	}
}

func TestResolverRetryStopsAtCap(t *testing.T) {
	synth := newFakeSynth()
	policy := reliability.RetryPolicy{Interval: time.Millisecond, MaxAttempts: 3}
	r := NewResolver(synth, policy, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Kick(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for !r.Exhausted() {
		if time.Now().After(deadline) {
			t.Fatalf("resolver never exhausted its retry budget")
		}
		time.Sleep(time.Millisecond)
	}
	if v := r.Selected(); v != nil {
		t.Fatalf("Selected() = %+v, want nil after exhaustion", v)
	}

	// Exhaustion is permanent for the session.
	r.Kick(ctx)
	if !r.Exhausted() {
		t.Fatalf("Exhausted() = false after re-kick, want true")
	}
}

func TestResolverRetryFindsLateVoice(t *testing.T) {
	synth := newFakeSynth()
	policy := reliability.RetryPolicy{Interval: time.Millisecond, MaxAttempts: 200}
	r := NewResolver(synth, policy, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Kick(ctx)

	synth.mu.Lock()
	synth.catalog = []Voice{{Name: "Samantha", Lang: "en-US"}}
	synth.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if v := r.Selected(); v != nil {
			if v.Name != "Samantha" {
				t.Fatalf("Selected() = %q, want %q", v.Name, "Samantha")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("resolver never picked up the late catalog")
		}
		time.Sleep(time.Millisecond)
	}
}
