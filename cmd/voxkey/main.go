package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voxkey/voxkey/pkg/adapters/audio"
	"github.com/voxkey/voxkey/pkg/adapters/output"
	"github.com/voxkey/voxkey/pkg/adapters/recognizer"
	"github.com/voxkey/voxkey/pkg/adapters/vad"
	"github.com/voxkey/voxkey/pkg/config"
	"github.com/voxkey/voxkey/pkg/configutil"
	"github.com/voxkey/voxkey/pkg/dictation"
	"github.com/voxkey/voxkey/pkg/frames"
	"github.com/voxkey/voxkey/pkg/logging"
	"github.com/voxkey/voxkey/pkg/metrics"
	"github.com/voxkey/voxkey/pkg/observers"
	"github.com/voxkey/voxkey/pkg/providers/console"
	"github.com/voxkey/voxkey/pkg/providers/deepgram"
	"github.com/voxkey/voxkey/pkg/providers/energyvad"
	"github.com/voxkey/voxkey/pkg/providers/mock"
	stdinaudio "github.com/voxkey/voxkey/pkg/providers/stdin"
	"github.com/voxkey/voxkey/pkg/recovery"
	"github.com/voxkey/voxkey/pkg/runner"
	"github.com/voxkey/voxkey/pkg/session"
	"github.com/voxkey/voxkey/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	demo := flag.Bool("demo", false, "run a scripted session against the mock engine and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.SetDefaultLogger(cfg.LogLevel, cfg.LogFormat)
	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *demo, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, demo bool, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	sinks := []metrics.Observer{
		metrics.NewPrometheusObserver(registry),
		observers.NewLatencyObserver(logger),
		observers.NewLoggerObserver(logger),
	}
	if cfg.Metrics.JSONLPath != "" {
		f, err := os.OpenFile(cfg.Metrics.JSONLPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open metrics log: %w", err)
		}
		defer f.Close()
		sinks = append(sinks, metrics.NewJSONLObserver(f))
	}
	obs := metrics.NewAsyncObserver(observers.NewMultiObserver(sinks...), 256)
	defer obs.Close()

	notifier := session.NewNotifier(64, 256, obs, logger)
	commands := dictation.NewCommandSet(cfg.Commands(), logger)
	recov := recovery.NewManager(logger)

	rec, err := buildRecognizer(ctx, cfg, demo)
	if err != nil {
		return err
	}

	var detector vad.Detector = energyvad.New(cfg.Audio.VADAggressiveness)
	sink := console.NewSink(os.Stdout, logger)

	deps := session.Deps{
		SourceFactory: sourceFactory(cfg, demo, logger),
		VAD:           detector,
		Recognizer:    rec,
		Output:        sink,
		Commands:      commands,
		Recovery:      recov,
		Notifier:      notifier,
		Metrics:       obs,
		Logger:        logger,
	}
	ctrl := session.NewController(deps, session.Config{
		HangoverTimeout:     cfg.Audio.HangoverTimeout(),
		FrameTimeout:        cfg.Audio.FrameTimeout(),
		KeypressDelay:       cfg.Transcription.KeypressDelay(),
		OutputMethod:        output.Method(cfg.Output.Method),
		NoiseFiltering:      cfg.Transcription.NoiseFiltering,
		PauseOnWindowChange: cfg.UI.PauseOnActiveWindowChange,
	})

	var srv *telemetry.Server
	if cfg.Telemetry.Enabled {
		srv = telemetry.NewServer(telemetry.Config{ListenAddr: cfg.Telemetry.ListenAddr}, registry, logger)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		go srv.Pump(ctx, notifier)
	} else {
		go logEvents(ctx, notifier, logger)
	}

	lr := runner.NewLifecycleRunner(drainFunc(func() error {
		ctrl.Stop()
		if srv != nil {
			_ = srv.Stop()
		}
		return nil
	}), runner.Hooks{
		OnStart: func() {
			ctrl.WaitModelReady(ctx, 200*time.Millisecond)
			device := audio.Config{
				DeviceID:        cfg.Audio.DeviceID,
				SampleRate:      cfg.Audio.SampleRate,
				FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			}
			if !ctrl.Start(device) {
				logger.Error("session failed to start")
			}
		},
		OnStop: func() {
			logger.Info("shutdown complete")
		},
	}, 10*time.Second)

	if demo {
		// Scripted input is finite; stop once the session has drained it.
		go func() {
			for ctrl.Active() || lr.State() < runner.StateRunning {
				select {
				case <-ctx.Done():
					return
				case <-time.After(50 * time.Millisecond):
				}
			}
			_ = lr.Stop()
		}()
	}
	return lr.Run(ctx)
}

func buildRecognizer(ctx context.Context, cfg config.Config, demo bool) (recognizer.Recognizer, error) {
	if demo {
		return mock.NewRecognizer(mock.RecognizerConfig{
			Loaded: true,
			Results: []recognizer.Result{
				{Raw: "hello world period", Final: true, Confidence: 0.98},
				{Raw: "all caps demo mode", Final: true, Confidence: 0.97},
				{Raw: "no caps done period", Final: true, Confidence: 0.97},
			},
		}), nil
	}
	switch cfg.Recognizer.Provider {
	case "deepgram":
		var settings deepgram.Config
		if err := configutil.DecodeSettings(cfg.Recognizer.Settings, &settings); err != nil {
			return nil, fmt.Errorf("decode deepgram settings: %w", err)
		}
		if err := configutil.RequireString(settings.APIKey, "recognizer.settings.api_key"); err != nil {
			return nil, err
		}
		if settings.SampleRate == 0 {
			settings.SampleRate = cfg.Audio.SampleRate
		}
		rec := deepgram.New(settings)
		if err := rec.Start(ctx); err != nil {
			return nil, fmt.Errorf("start deepgram: %w", err)
		}
		return rec, nil
	case "mock":
		return mock.NewRecognizer(mock.RecognizerConfig{Loaded: true}), nil
	default:
		return nil, fmt.Errorf("unknown recognizer provider %q", cfg.Recognizer.Provider)
	}
}

func sourceFactory(cfg config.Config, demo bool, logger *slog.Logger) func(audio.Config) audio.Source {
	if demo {
		return func(audio.Config) audio.Source {
			return mock.NewAudioSource(mock.AudioConfig{Frames: demoFrames(cfg), EOFOnDrain: true})
		}
	}
	return func(dev audio.Config) audio.Source {
		return stdinaudio.NewSource(os.Stdin, dev, logger)
	}
}

// demoFrames synthesizes alternating loud bursts and silence so a demo run
// exercises level metering, voice gating and segmentation end to end.
func demoFrames(cfg config.Config) []*frames.AudioFrame {
	rate := cfg.Audio.SampleRate
	perBuf := cfg.Audio.FramesPerBuffer
	dur := cfg.Audio.FrameDuration()
	silentPerGap := int(cfg.Audio.HangoverTimeout()/dur) + 2

	var out []*frames.AudioFrame
	appendRun := func(amplitude float32, n int) {
		for i := 0; i < n; i++ {
			samples := make([]float32, perBuf)
			for j := range samples {
				if j%2 == 0 {
					samples[j] = amplitude
				} else {
					samples[j] = -amplitude
				}
			}
			f := frames.NewAudioFrame("", int64(len(out)), samples, rate, dur, nil)
			out = append(out, &f)
		}
	}
	for i := 0; i < 3; i++ {
		appendRun(0.5, 10)
		appendRun(0, silentPerGap)
	}
	return out
}

func logEvents(ctx context.Context, notifier *session.Notifier, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		ev, ok := notifier.Poll()
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		switch ev.Kind {
		case session.EventResult:
			if ev.Result != nil && ev.Result.Final {
				logger.Info("dictated", "text", ev.Result.Processed, "session", ev.SessionID)
			}
		case session.EventError:
			if ev.Err != nil {
				logger.Warn("session error", "code", ev.Err.Code, "category", ev.Err.Category.String())
			}
		case session.EventModelProgress:
			logger.Info("model", "progress", ev.Progress, "message", ev.Message)
		case session.EventDeviceChange:
			logger.Warn("device change", "message", ev.Message)
		}
	}
}

type drainFunc func() error

func (f drainFunc) Drain() error { return f() }
