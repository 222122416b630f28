package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/faiface/beep"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/zoobzio/clockz"

	"resttimer/internal/config"
	"resttimer/internal/domain"
	"resttimer/internal/events"
	"resttimer/internal/feedback"
	"resttimer/internal/handler"
	"resttimer/internal/metrics"
	"resttimer/internal/repository"
	"resttimer/internal/scheduler"
	"resttimer/internal/server"
	"resttimer/internal/service"
	"resttimer/internal/sessionid"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(os.Stdout, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Initialize dependencies
	clock := clockz.RealClock
	loop := scheduler.NewFrameLoop(cfg.Timer.FrameInterval, logger, scheduler.WithLoopClock(clock))
	loop.Start()
	defer loop.Stop()

	timers := service.NewSessionService(
		repository.NewMemoryRepository(),
		sessionid.NewGenerator(),
		clock,
		loop,
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithBroker(events.NewBroker(clock, logger)),
		service.WithPresets(domain.NewPresetCatalog(cfg.Timer.Presets...)),
		service.WithSessionTTL(cfg.Server.SessionTTL),
		service.WithDevices(
			feedback.NewSpeaker(beep.SampleRate(cfg.Feedback.SampleRate), cfg.Feedback.Volume),
			feedback.LogVibrator{Logger: logger},
			cfg.Feedback.Sound,
			cfg.Feedback.Haptics,
		),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timers.RunJanitor(ctx, cfg.Server.ReapInterval)

	h := handler.New(timers, handler.Config{
		DefaultSeconds: cfg.Timer.DefaultSeconds,
		DefaultVariant: cfg.Timer.Variant(),
		StreamInterval: cfg.Server.StreamInterval,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SampleRate:     cfg.Feedback.SampleRate,
	}, logger)

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	},
		server.WithTimers(h),
		server.WithLogger(logger),
		server.WithMetrics(m, reg),
	)

	logger.Info("starting server",
		"port", cfg.Server.Port,
		"frame_interval", cfg.Timer.FrameInterval,
		"default_variant", cfg.Timer.DefaultVariant,
	)

	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}
