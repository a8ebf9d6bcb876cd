// Package audio turns a live audio tap into a per-frame mouth signal.
// This is a coarse envelope follower over short-window loudness, not
// spectral analysis: the goal is plausible mouth motion, not accuracy.
package audio

import (
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/normanking/stagehand/internal/emotion"
)

// Analyzer converts one time-domain sample buffer per tick into a
// mouth-openness/width pair.
type Analyzer struct {
	mu     sync.RWMutex
	emo    emotion.Profile
	logger zerolog.Logger

	lastRMS float64
}

// NewAnalyzer creates an analyzer for the given emotion profile.
func NewAnalyzer(emo emotion.Profile, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		emo:    emo,
		logger: logger.With().Str("component", "audio").Logger(),
	}
}

// SetEmotion swaps the emotion profile driving the mouth floor.
func (a *Analyzer) SetEmotion(emo emotion.Profile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.emo = emo
}

// Analyze maps the buffer's RMS energy to mouth targets. The buffer is
// 8-bit unsigned time-domain data as delivered by the capture tap; silence
// (all 128, or empty) yields the resting floor, never NaN.
func (a *Analyzer) Analyze(buf []byte) (mouth, width float64) {
	rms := RMS(buf)

	a.mu.Lock()
	a.lastRMS = rms
	emo := a.emo
	a.mu.Unlock()

	mouth = clamp(rms*4+emo.MouthEnergy*0.35, 0.05, 1)
	width = clamp(rms*2.8+0.25, 0.05, 0.9)
	return mouth, width
}

// LastRMS reports the most recent loudness estimate, for diagnostics.
func (a *Analyzer) LastRMS() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastRMS
}

// RMS computes root-mean-square energy over an 8-bit unsigned buffer, each
// sample centered and normalized to [-1,1] before squaring.
func RMS(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}

	var sum float64
	for _, b := range buf {
		normalized := (float64(b) - 128.0) / 128.0
		sum += normalized * normalized
	}
	return math.Sqrt(sum / float64(len(buf)))
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
