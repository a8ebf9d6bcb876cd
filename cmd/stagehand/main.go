// Stagehand - performance-driving engine for virtual performers
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/normanking/stagehand/internal/bus"
	"github.com/normanking/stagehand/internal/config"
	"github.com/normanking/stagehand/internal/emotion"
	"github.com/normanking/stagehand/internal/engine"
	"github.com/normanking/stagehand/internal/logging"
	"github.com/normanking/stagehand/internal/pose"
	"github.com/normanking/stagehand/internal/stream"
)

var syslog *logging.Logger

func main() {
	text := flag.String("text", "Welcome to the stage", "script to perform")
	emotionName := flag.String("emotion", "", "emotion preset (neutral, excited, calm, intense)")
	seed := flag.Uint("seed", 0, "motion seed, 0 keeps the configured default")
	exportPath := flag.String("export", "", "capture a clip and write it to this path")
	flag.Parse()

	var err error
	syslog, err = logging.New(nil)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer syslog.Close()

	syslog.Info("main", "Stagehand starting...")
	zlogger := syslog.Zerolog()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		syslog.Warn("config", "Failed to load config, using defaults")
		cfg = config.DefaultConfig()
	}
	if *emotionName == "" {
		*emotionName = cfg.Engine.DefaultEmotion
	}

	// Create event bus
	eventBus := bus.NewEventBus()
	config.Watch(func(fresh *config.Config) {
		syslog.Info("config", "Configuration reloaded")
		eventBus.Publish(bus.Event{Type: bus.EventTypeConfigReloaded})
	})

	// Pose streaming to rendering clients
	broadcaster := stream.NewBroadcaster(zlogger)
	if cfg.Stream.Enabled {
		broadcaster.Listen(cfg.Stream.Addr, cfg.Stream.Path)
	}
	defer broadcaster.Close()

	// Create the engine
	eng := engine.New(engine.Options{
		Config:   cfg,
		Logger:   zlogger,
		Bus:      eventBus,
		Speech:   newConsoleSpeech(),
		Renderer: &streamRenderer{broadcaster: broadcaster},
	})
	defer eng.Close()

	if *seed != 0 {
		eng.SetSeed(uint32(*seed))
	}
	eng.SetEmotion(emotion.Get(*emotionName))
	eng.SetText(*text)

	done := make(chan struct{})
	eventBus.Subscribe(bus.EventTypeSessionCompleted, func(bus.Event) {
		close(done)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	if *exportPath != "" {
		runExport(eng, *exportPath)
		return
	}

	syslog.Info("main", "Starting preview")
	eng.StartPreview(engine.ModeText, false)
	if !eng.IsPlaying() {
		syslog.Error("main", "Preview refused, check speech availability", nil)
		os.Exit(1)
	}

	select {
	case <-done:
		syslog.Info("main", "Performance completed")
	case <-sig:
		syslog.Info("main", "Interrupted, stopping")
		eng.StopPreview()
	}
}

// runExport captures a clip and writes it to disk. Capture needs a recorder;
// this headless build has none, so the refusal path is the expected outcome
// until a recorder is wired in.
func runExport(eng *engine.Engine, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	clip, err := eng.ExportClip(ctx)
	if err != nil {
		syslog.Error("export", "Export failed", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, clip.Data, 0644); err != nil {
		syslog.Error("export", "Failed to write clip", err)
		os.Exit(1)
	}
	syslog.Info("export", fmt.Sprintf("Wrote %d bytes to %s", clip.Size, path))
}

// streamRenderer adapts the websocket broadcaster to the engine's rendering
// surface.
type streamRenderer struct {
	broadcaster *stream.Broadcaster
}

func (r *streamRenderer) PublishPose(p pose.Pose) {
	r.broadcaster.PublishPose(p)
}

func (r *streamRenderer) CaptureSurface() engine.Surface {
	return captureSurface{}
}

type captureSurface struct{}

func (captureSurface) SurfaceID() string { return "stream" }

// consoleSpeech stands in for a platform synthesizer: it prints the utterance
// and signals completion after an estimated speaking time.
type consoleSpeech struct {
	mu    sync.Mutex
	timer *time.Timer
}

func newConsoleSpeech() *consoleSpeech {
	return &consoleSpeech{}
}

func (c *consoleSpeech) Available() bool { return true }

func (c *consoleSpeech) Speak(text string, pitch, rate, volume float64, onDone func()) error {
	fmt.Printf("[speech pitch=%.2f rate=%.2f volume=%.2f] %s\n", pitch, rate, volume, text)

	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	est := time.Duration(float64(words)*0.42/rate*float64(time.Second)) + time.Second

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(est, onDone)
	return nil
}

func (c *consoleSpeech) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
