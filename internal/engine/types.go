// Package engine orchestrates playback and export of performances: mode
// selection, the animation clock, the drivers, and capture lifecycle.
package engine

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/normanking/stagehand/internal/pose"
)

// Common errors
var (
	ErrExportInProgress    = errors.New("export already in progress")
	ErrRecorderUnavailable = errors.New("recorder unavailable")
	ErrRendererUnavailable = errors.New("renderer unavailable")
)

// Mode selects which driver supplies the mouth signal.
type Mode string

const (
	// ModeText drives the mouth from a synthesized viseme timeline.
	ModeText Mode = "text"
	// ModeAudio drives the mouth from live audio energy.
	ModeAudio Mode = "audio"
)

// Speech is the speech-synthesis collaborator. Timing is irrelevant to the
// engine; it only needs the completion signal and unconditional cancel.
type Speech interface {
	// Available reports whether synthesis can run at all.
	Available() bool

	// Speak begins an utterance and invokes onDone exactly once when it
	// finishes naturally. It must not block.
	Speak(text string, pitch, rate, volume float64, onDone func()) error

	// Cancel aborts any in-flight utterance. Safe to call when idle.
	Cancel()
}

// Source is the audio collaborator for an uploaded track: playback control,
// an ended signal, and a live sample-buffer tap for the analyzer.
type Source interface {
	Play() error
	Pause()
	Rewind()

	// Tap returns the current time-domain sample buffer (8-bit unsigned).
	Tap() []byte

	// SetOnEnded registers the natural-completion signal.
	SetOnEnded(fn func())

	// Close releases the underlying media resource. Called exactly once,
	// on replacement or final teardown.
	Close() error
}

// Renderer consumes the computed pose every tick and exposes a capturable
// drawing surface used only during export.
type Renderer interface {
	PublishPose(p pose.Pose)
	CaptureSurface() Surface
}

// Surface identifies a renderer drawing surface the recorder can capture.
type Surface interface {
	SurfaceID() string
}

// Recorder is the capture collaborator. audio may be nil for a video-only
// recording; a failure to acquire the audio track is reported from Start so
// the engine can degrade rather than abort.
type Recorder interface {
	Start(surface Surface, audio Source) error
	Stop() ([][]byte, error)
}

// Transcoder re-encodes a captured clip. Failures are never fatal: the
// engine falls back to the raw clip.
type Transcoder interface {
	Transcode(clip Clip) (Clip, error)
}

// Clip is one exported performance capture.
type Clip struct {
	ID       uuid.UUID     `json:"id"`
	Data     []byte        `json:"-"`
	Size     int           `json:"size"`
	MimeType string        `json:"mimeType"`
	Duration time.Duration `json:"duration"`
}
