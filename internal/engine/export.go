package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/normanking/stagehand/internal/bus"
)

// ExportClip records a forced performance session for the fixed capture
// window and returns the captured clip. Audio mode is used when a source is
// loaded, text mode otherwise. The clip is transcoded when possible; a
// transcoding failure falls back to the raw capture and is never surfaced
// as fatal.
func (e *Engine) ExportClip(ctx context.Context) (*Clip, error) {
	e.mu.Lock()
	if e.exporting {
		e.mu.Unlock()
		return nil, ErrExportInProgress
	}
	if e.recorder == nil {
		e.mu.Unlock()
		return nil, ErrRecorderUnavailable
	}
	if e.renderer == nil {
		e.mu.Unlock()
		return nil, ErrRendererUnavailable
	}

	e.exporting = true
	stop := make(chan struct{})
	e.exportStop = stop

	mode := ModeText
	var track Source
	if e.source != nil {
		mode = ModeAudio
		track = e.source
	}

	surface := e.renderer.CaptureSurface()
	window := e.cfg.Export.CaptureWindow
	mimeType := e.cfg.Export.MimeType
	recorder := e.recorder
	transcoder := e.transcoder
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.exporting = false
		e.exportStop = nil
		e.mu.Unlock()
	}()

	// The recording device is created fresh per export and fully released
	// by Stop.
	if err := recorder.Start(surface, track); err != nil {
		if track != nil {
			// No audio track is a degradation, not an abort: capture
			// video only.
			e.logger.Warn().Err(err).Msg("Audio track unavailable, recording video only")
			e.events.Publish(bus.Event{Type: bus.EventTypeExportDegraded})
			err = recorder.Start(surface, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to start recording: %w", err)
		}
	}

	e.start(mode, true, true)
	e.logger.Info().Dur("window", window).Str("mode", string(mode)).Msg("Export started")
	e.events.Publish(bus.Event{Type: bus.EventTypeExportStarted, Data: map[string]any{
		"mode":   string(mode),
		"window": window.String(),
	}})

	// Fixed wall-clock window: the export ends on time whether the drive
	// finishes early or runs long. A manual stop resolves it sooner.
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-stop:
	case <-ctx.Done():
	}

	e.StopPreview()

	chunks, err := recorder.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to finalize recording: %w", err)
	}

	var size int
	for _, c := range chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c...)
	}

	raw := Clip{
		ID:       uuid.New(),
		Data:     data,
		Size:     len(data),
		MimeType: mimeType,
		Duration: window,
	}

	clip := raw
	if transcoder != nil {
		out, err := transcoder.Transcode(raw)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Transcoding failed, falling back to raw clip")
		} else {
			clip = out
		}
	}

	e.logger.Info().Str("clip", clip.ID.String()).Int("bytes", clip.Size).Msg("Export finished")
	e.events.Publish(bus.Event{Type: bus.EventTypeExportFinished, Data: map[string]any{
		"clip":  clip.ID.String(),
		"bytes": clip.Size,
	}})
	return &clip, nil
}
