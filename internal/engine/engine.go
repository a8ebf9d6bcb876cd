package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/stagehand/internal/audio"
	"github.com/normanking/stagehand/internal/bus"
	"github.com/normanking/stagehand/internal/config"
	"github.com/normanking/stagehand/internal/emotion"
	"github.com/normanking/stagehand/internal/pose"
	"github.com/normanking/stagehand/internal/viseme"
)

// session is the transient state bound to one start call. Exactly one is
// active at a time; superseding it cancels its clock before arming a new one.
type session struct {
	id        uuid.UUID
	mode      Mode
	startedAt time.Time
	timeline  viseme.Timeline
	comp      *pose.Compositor
	clock     *frameClock
}

// Engine coordinates the drivers, the animation clock, and capture. All
// methods are safe for concurrent use; engine logic itself runs on a single
// self-rescheduling frame task.
type Engine struct {
	mu     sync.Mutex
	cfg    *config.Config
	logger zerolog.Logger
	events *bus.EventBus

	speech     Speech
	renderer   Renderer
	recorder   Recorder
	transcoder Transcoder

	// The analyzer and its tap live for the engine lifetime, not per
	// session; only the loaded source is replaced.
	source   Source
	analyzer *audio.Analyzer

	text   string
	emo    emotion.Profile
	seed   uint32
	seedFn func() uint32

	session    *session
	current    pose.Pose
	exporting  bool
	exportStop chan struct{}
}

// Options wires the engine to its collaborators. Nil collaborators disable
// the corresponding capability; the engine refuses dependent operations
// rather than failing at runtime.
type Options struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Bus        *bus.EventBus
	Speech     Speech
	Renderer   Renderer
	Recorder   Recorder
	Transcoder Transcoder
}

// New creates an engine.
func New(opts Options) *Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	events := opts.Bus
	if events == nil {
		events = bus.NewEventBus()
	}

	emo := emotion.Get(cfg.Engine.DefaultEmotion)
	logger := opts.Logger.With().Str("component", "engine").Logger()

	return &Engine{
		cfg:        cfg,
		logger:     logger,
		events:     events,
		speech:     opts.Speech,
		renderer:   opts.Renderer,
		recorder:   opts.Recorder,
		transcoder: opts.Transcoder,
		analyzer:   audio.NewAnalyzer(emo, opts.Logger),
		emo:        emo,
		seed:       cfg.Engine.DefaultSeed,
		seedFn:     func() uint32 { return uint32(time.Now().UnixNano()) },
		current:    pose.Neutral(),
	}
}

// SetText sets the script used by the next text-mode session.
func (e *Engine) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}

// SetEmotion swaps the expression profile. A live session re-derives its
// secondary-motion jitter immediately.
func (e *Engine) SetEmotion(emo emotion.Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emo = emo
	e.analyzer.SetEmotion(emo)
	if e.session != nil {
		e.session.comp.SetEmotion(emo)
	}
}

// SetSeed fixes the seed for the next session.
func (e *Engine) SetSeed(seed uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seed = seed
}

// Seed returns the seed the next session will use.
func (e *Engine) Seed() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seed
}

// StartPreview begins a playback session in the given mode. If a session is
// already active and force is false this is a no-op. Unmet preconditions
// (no speech support, no audio loaded) silently refuse: callers re-check
// the observable flags rather than catching errors.
func (e *Engine) StartPreview(mode Mode, force bool) {
	e.start(mode, force, false)
}

// start is the shared session bring-up for previews and exports. An export
// owns the engine for its capture window: ordinary previews are refused
// until it finishes.
func (e *Engine) start(mode Mode, force, fromExport bool) {
	e.mu.Lock()

	if e.exporting && !fromExport {
		e.mu.Unlock()
		e.logger.Debug().Msg("Export in progress, refusing preview")
		return
	}

	if e.session != nil && !force {
		e.mu.Unlock()
		e.logger.Debug().Str("mode", string(mode)).Msg("Session already active, ignoring start")
		return
	}

	switch mode {
	case ModeText:
		if e.speech == nil || !e.speech.Available() {
			e.mu.Unlock()
			e.logger.Debug().Msg("Speech synthesis unavailable, refusing text preview")
			return
		}
	case ModeAudio:
		if e.source == nil {
			e.mu.Unlock()
			e.logger.Debug().Msg("No audio loaded, refusing audio preview")
			return
		}
	default:
		e.mu.Unlock()
		return
	}

	// Cancel before arm: the old clock is torn down before the new one
	// exists, so two clocks never run at once.
	e.teardownLocked(bus.EventTypeSessionStopped)

	s := &session{
		id:        uuid.New(),
		mode:      mode,
		startedAt: time.Now(),
		comp:      pose.NewCompositor(e.emo, e.seed),
		clock:     newFrameClock(e.cfg.Engine.FrameRate),
	}
	if mode == ModeText {
		s.timeline = viseme.Synthesize(e.text, e.emo, e.seed)
		s.comp.SetDeadline(s.timeline.Duration)
	}
	e.session = s

	speech := e.speech
	source := e.source
	text := e.text
	emo := e.emo
	e.mu.Unlock()

	switch mode {
	case ModeText:
		pitch, rate, volume := voiceParams(emo)
		if err := speech.Speak(text, pitch, rate, volume, func() { e.completeSession(s) }); err != nil {
			e.logger.Warn().Err(err).Msg("Utterance failed to start, animating silently")
		}
	case ModeAudio:
		source.SetOnEnded(func() { e.completeSession(s) })
		if err := source.Play(); err != nil {
			e.logger.Warn().Err(err).Msg("Audio playback failed to start")
		}
	}

	go s.clock.run(e.makeTick(s))

	e.logger.Info().Str("mode", string(mode)).Str("session", s.id.String()).Msg("Session started")
	e.events.Publish(bus.Event{Type: bus.EventTypeSessionStarted, Data: map[string]any{
		"session": s.id.String(),
		"mode":    string(mode),
	}})
}

// StopPreview tears down the active session: clock cancelled, utterance
// cancelled, audio paused and rewound, pose reset. Idempotent; also
// resolves a pending export wait.
func (e *Engine) StopPreview() {
	e.mu.Lock()
	s := e.session
	e.resolveExportWaitLocked()
	e.teardownLocked(bus.EventTypeSessionStopped)
	r := e.renderer
	e.mu.Unlock()

	if s != nil {
		// Synchronous: no tick can land after this returns.
		s.clock.wait()
	}
	if r != nil {
		r.PublishPose(pose.Neutral())
	}
}

// Regenerate draws a fresh seed; if a session is playing it force-restarts
// with the new seed to get a different performance of the same script.
func (e *Engine) Regenerate() {
	e.mu.Lock()
	e.seed = e.seedFn()
	s := e.session
	e.mu.Unlock()

	if s != nil {
		e.StartPreview(s.mode, true)
		e.events.Publish(bus.Event{Type: bus.EventTypeSessionRestarted, Data: map[string]any{
			"seed": e.Seed(),
		}})
	}
}

// LoadAudio replaces the loaded audio source. The previous source is
// released exactly once; an active audio session is stopped first.
func (e *Engine) LoadAudio(src Source) {
	e.mu.Lock()
	if e.session != nil && e.session.mode == ModeAudio {
		e.teardownLocked(bus.EventTypeSessionStopped)
	}
	old := e.source
	e.source = src
	e.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to release previous audio source")
		}
		e.events.Publish(bus.Event{Type: bus.EventTypeAudioReleased})
	}
	if src != nil {
		e.events.Publish(bus.Event{Type: bus.EventTypeAudioLoaded})
	}
}

// Snapshot returns the most recently published pose. Intermediate poses may
// be skipped by slow consumers; only the latest matters.
func (e *Engine) Snapshot() pose.Pose {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// IsPlaying reports whether a session is active.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// AudioLoaded reports whether an audio source is attached.
func (e *Engine) AudioLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source != nil
}

// SpeechAvailable reports whether the speech collaborator can synthesize.
func (e *Engine) SpeechAvailable() bool {
	e.mu.Lock()
	speech := e.speech
	e.mu.Unlock()
	return speech != nil && speech.Available()
}

// SessionInfo exposes the active session's mode and start timestamp.
func (e *Engine) SessionInfo() (mode Mode, startedAt time.Time, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return "", time.Time{}, false
	}
	return e.session.mode, e.session.startedAt, true
}

// Events returns the engine's event bus.
func (e *Engine) Events() *bus.EventBus {
	return e.events
}

// Close releases engine-lifetime resources: the active session and the
// loaded audio source.
func (e *Engine) Close() {
	e.StopPreview()

	e.mu.Lock()
	src := e.source
	e.source = nil
	e.mu.Unlock()

	if src != nil {
		if err := src.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to release audio source on shutdown")
		}
	}
}

// makeTick builds the per-frame callback for one session. The session
// identity check under the lock guarantees a superseded clock never
// publishes another pose.
func (e *Engine) makeTick(s *session) func(now time.Time) bool {
	return func(now time.Time) bool {
		e.mu.Lock()
		if e.session != s {
			e.mu.Unlock()
			return false
		}

		elapsed := now.Sub(s.startedAt).Seconds()

		var mouth, width float64
		if s.mode == ModeText {
			mouth, width = s.timeline.Sample(elapsed)
		} else {
			var buf []byte
			if e.source != nil {
				buf = e.source.Tap()
			}
			mouth, width = e.analyzer.Analyze(buf)
		}

		p, done := s.comp.Step(elapsed, mouth, width)
		if done {
			e.mu.Unlock()
			e.completeSession(s)
			return false
		}

		e.current = p
		r := e.renderer
		e.mu.Unlock()

		if r != nil {
			r.PublishPose(p)
		}
		return true
	}
}

// completeSession handles a natural-completion signal (timeline exhausted,
// utterance done, audio ended). Idempotent: a stale session is ignored, so
// racing with a manual stop is safe. A pending export wait is left alone;
// the capture window is fixed.
func (e *Engine) completeSession(s *session) {
	e.mu.Lock()
	if e.session != s {
		e.mu.Unlock()
		return
	}
	e.teardownLocked(bus.EventTypeSessionCompleted)
	r := e.renderer
	e.mu.Unlock()

	if r != nil {
		r.PublishPose(pose.Neutral())
	}
}

// teardownLocked dismantles the active session, if any: cancels the clock,
// cancels speech, pauses and rewinds audio, resets the pose. Caller holds
// the lock.
func (e *Engine) teardownLocked(reason bus.EventType) {
	s := e.session
	if s == nil {
		return
	}
	e.session = nil

	s.clock.cancel()
	if e.speech != nil {
		e.speech.Cancel()
	}
	if e.source != nil {
		e.source.Pause()
		e.source.Rewind()
	}
	e.current = pose.Neutral()

	e.logger.Info().Str("session", s.id.String()).Str("reason", string(reason)).Msg("Session ended")
	e.events.Publish(bus.Event{Type: reason, Data: map[string]any{
		"session": s.id.String(),
	}})
}

// resolveExportWaitLocked unblocks a pending export, if one is waiting.
func (e *Engine) resolveExportWaitLocked() {
	if e.exportStop != nil {
		close(e.exportStop)
		e.exportStop = nil
	}
}

// voiceParams derives utterance parameters from the emotion profile, each
// clamped to a safe band.
func voiceParams(emo emotion.Profile) (pitch, rate, volume float64) {
	pitch = clamp(0.9+emo.BrowLift*0.3, 0.5, 2)
	rate = clamp(0.85+emo.MouthEnergy*0.4, 0.5, 2)
	volume = clamp(0.6+emo.MouthEnergy*0.4, 0.1, 1)
	return pitch, rate, volume
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
