package speech

import (
	"strings"
	"time"
	"unicode"
)

// Chunk is one sentence or clause sized unit of queued playback with its own
// pacing and pitch parameters.
type Chunk struct {
	Text  string
	Pause time.Duration
	Pitch float64
	Rate  float64
}

const (
	neutralPitch = 1.0
	neutralRate  = 1.0

	periodPitch      = 0.9
	questionPitch    = 1.15
	exclamationPitch = 1.1
	exclamationRate  = 1.1
)

// trailingChunkPause is the inter-chunk delay after an unterminated trailing
// chunk. Terminated chunks carry their pacing in the prosody parameters, so
// their pause is zero.
const trailingChunkPause = 150 * time.Millisecond

// Commas shape prosody but never split: cutting a sentence at every comma
// produces choppy playback and breaks clauses like "Yes, it is." apart.
func isChunkTerminator(r rune) bool {
	switch r {
	case '.', '?', '!', ';':
		return true
	default:
		return false
	}
}

// Segment splits text into speakable chunks and assigns each a prosody
// profile from its terminal punctuation. It is deterministic and has no side
// effects; text that normalizes to empty yields no chunks.
func Segment(text string) []Chunk {
	return segmentWithPause(text, trailingChunkPause)
}

func segmentWithPause(text string, trailing time.Duration) []Chunk {
	normalized := NormalizeSpeechText(text)
	if normalized == "" {
		return nil
	}

	var chunks []Chunk
	var b strings.Builder
	runes := []rune(normalized)
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if !isChunkTerminator(runes[i]) {
			continue
		}
		// Consume a run of terminators ("?!", "...") into the same chunk.
		for i+1 < len(runes) && isChunkTerminator(runes[i+1]) {
			i++
			b.WriteRune(runes[i])
		}
		if c, ok := buildChunk(b.String(), trailing); ok {
			chunks = append(chunks, c)
		}
		b.Reset()
	}
	if c, ok := buildChunk(b.String(), trailing); ok {
		chunks = append(chunks, c)
	}
	return chunks
}

func buildChunk(raw string, trailing time.Duration) (Chunk, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Chunk{}, false
	}
	c := Chunk{Text: text, Pitch: neutralPitch, Rate: neutralRate}
	switch text[len(text)-1] {
	case '.':
		c.Pitch = periodPitch
	case '?':
		c.Pitch = questionPitch
	case '!':
		c.Pitch = exclamationPitch
		c.Rate = exclamationRate
	case ',', ';':
		// Neutral clause boundary, no extra silence.
	default:
		c.Pause = trailing
	}
	return c, true
}

// NormalizeSpeechText strips pictographs, joiner and variant-selector
// characters, collapses whitespace and trims, so downstream chunks contain
// only speakable text.
func NormalizeSpeechText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	prevSpace := true

	for _, r := range raw {
		switch {
		case r == '\u200d' || r == '\ufe0f' || r == '\u20e3':
			// Zero-width joiners, variation selectors and keycap combiners.
			continue
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsControl(r):
			continue
		case unicode.In(r, unicode.So, unicode.Sk):
			// Emoji and symbol glyphs sound wrong when spoken.
			continue
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}
