// Package viseme synthesizes approximate mouth-shape timelines from text.
// The output is not phonetic ground truth: each word contributes a smooth
// Gaussian burst of mouth motion, which reads as plausible speech without
// any real phoneme analysis.
package viseme

import (
	"math"
	"strings"

	"github.com/normanking/stagehand/internal/emotion"
	"github.com/normanking/stagehand/internal/seq"
)

// SamplesPerSecond is the timeline resolution.
const SamplesPerSecond = 60

const (
	fallbackDuration = 2.5  // seconds of idle mouth noise for empty text
	trailingPause    = 1.2  // seconds appended after the last word
	minDuration      = 2.0  // seconds; a timeline is never shorter than this
	gaussianSpread   = 0.08 // denominator of the per-word falloff kernel
)

// Frame is one time-stamped mouth target. Frames are immutable once
// synthesized.
type Frame struct {
	Time  float64 `json:"time"`  // seconds from timeline start
	Mouth float64 `json:"mouth"` // openness, 0..1
	Width float64 `json:"width"` // horizontal stretch, 0..1
}

// Timeline is the full ordered frame sequence for one performance. It is
// owned by a single playback session and replaced wholesale on restart.
type Timeline struct {
	Frames   []Frame `json:"frames"`
	Duration float64 `json:"duration"` // seconds
}

// wordPeak is the per-word articulation burst accumulated into samples.
type wordPeak struct {
	time  float64
	mouth float64
	width float64
}

// Synthesize produces a timeline for text under the given emotion profile.
// Identical (text, emotion, seed) inputs yield a bit-identical timeline.
func Synthesize(text string, emo emotion.Profile, seedVal uint32) Timeline {
	gen := seq.New(seedVal)

	words := strings.Fields(text)
	if len(words) == 0 {
		return idleTimeline(gen)
	}

	// Higher-energy, more gestural emotions speak faster.
	wordDur := 0.42 - (emo.MouthEnergy-0.5)*0.2 - emo.HandAmplitude*0.05
	wordDur = clamp(wordDur, 0.28, 0.6)

	duration := math.Max(float64(len(words))*wordDur+trailingPause, minDuration)
	sampleCount := int(duration * SamplesPerSecond)

	peaks := make([]wordPeak, len(words))
	for i, word := range words {
		vd := vowelDensity(word)
		cs := consonantStrength(word)

		peaks[i] = wordPeak{
			time:  float64(i)*wordDur + (gen()-0.5)*0.08,
			mouth: clamp(0.35+emo.MouthEnergy*0.4+vd*0.3+cs*0.15+(gen()-0.5)*0.1, 0, 1),
			width: clamp(0.3+vd*0.4+emo.MouthEnergy*0.25+(gen()-0.5)*0.08, 0, 1),
		}
	}

	// O(samples x words) accumulation; both stay small for any sane script.
	frames := make([]Frame, sampleCount)
	for i := 0; i < sampleCount; i++ {
		t := float64(i) / SamplesPerSecond

		var mouth, width float64
		for _, p := range peaks {
			dt := t - p.time
			w := math.Exp(-dt * dt / gaussianSpread)
			mouth += p.mouth * w
			width += p.width * w
		}

		damp := 0.85 + gen()*0.15
		frames[i] = Frame{
			Time:  t,
			Mouth: clamp(mouth*damp, 0, 1),
			Width: clamp(width*damp, 0, 1),
		}
	}

	return Timeline{Frames: frames, Duration: duration}
}

// idleTimeline is the empty-text fallback: low-amplitude mouth noise so the
// engine never works from a zero-length or undefined timeline.
func idleTimeline(gen func() float64) Timeline {
	sampleCount := int(fallbackDuration * SamplesPerSecond)
	frames := make([]Frame, sampleCount)
	for i := range frames {
		frames[i] = Frame{
			Time:  float64(i) / SamplesPerSecond,
			Mouth: 0.05 + gen()*0.05,
			Width: 0.3 + gen()*0.05,
		}
	}
	return Timeline{Frames: frames, Duration: fallbackDuration}
}

// Idle mouth values returned when sampling an empty timeline.
const (
	idleMouth = 0.08
	idleWidth = 0.3
)

// Sample interpolates the mouth/width pair at an elapsed time. Frames past
// the end hold the last value; the timeline itself is never mutated.
func (tl Timeline) Sample(elapsed float64) (mouth, width float64) {
	if len(tl.Frames) == 0 {
		return idleMouth, idleWidth
	}

	last := tl.Frames[len(tl.Frames)-1]
	if elapsed >= last.Time {
		return last.Mouth, last.Width
	}
	if elapsed <= tl.Frames[0].Time {
		return tl.Frames[0].Mouth, tl.Frames[0].Width
	}

	// Frames are time-ordered: binary search for the first frame at or
	// after the elapsed time.
	lo, hi := 0, len(tl.Frames)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if tl.Frames[mid].Time >= elapsed {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	next := tl.Frames[lo]
	prev := tl.Frames[lo-1]

	span := next.Time - prev.Time
	if span <= 0 {
		return next.Mouth, next.Width
	}

	f := (elapsed - prev.Time) / span
	return prev.Mouth + (next.Mouth-prev.Mouth)*f,
		prev.Width + (next.Width-prev.Width)*f
}

// vowelDensity is the ratio of vowel letters to word length.
func vowelDensity(word string) float64 {
	if len(word) == 0 {
		return 0
	}
	vowels := 0
	for i := 0; i < len(word); i++ {
		if isVowel(word[i]) {
			vowels++
		}
	}
	return float64(vowels) / float64(len(word))
}

// consonantStrength weights plosives heavier than liquids; both punch the
// mouth open more than other consonants.
func consonantStrength(word string) float64 {
	if len(word) == 0 {
		return 0
	}
	var strength float64
	for i := 0; i < len(word); i++ {
		switch lower(word[i]) {
		case 'p', 'b', 't', 'd', 'k', 'g':
			strength += 1.0
		case 'l', 'r':
			strength += 0.6
		}
	}
	return strength / float64(len(word))
}

func isVowel(ch byte) bool {
	switch lower(ch) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}

func lower(ch byte) byte {
	if ch >= 'A' && ch <= 'Z' {
		return ch + 'a' - 'A'
	}
	return ch
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
