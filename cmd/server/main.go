package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	persistlog "orerush.io/internal/persistence/log"
	"orerush.io/internal/sim/tuning"
	"orerush.io/internal/sim/world"
	"orerush.io/internal/sim/worldgen"
	"orerush.io/internal/transport/session"
	"orerush.io/internal/transport/tcp"
	"orerush.io/internal/transport/ws"
)

func main() {
	var (
		addr           = flag.String("addr", ":8080", "http listen address (websocket, health, metrics)")
		tcpAddr        = flag.String("tcp_addr", ":7777", "raw tcp listen address (length-prefixed frames; empty to disable)")
		configDir      = flag.String("configs", "./configs", "config directory")
		tuningPath     = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir        = flag.String("data", "./data", "runtime data directory")
		seed           = flag.Int64("seed", 0, "map seed override (0 keeps the tuning value)")
		disableDB      = flag.Bool("disable_db", false, "disable the sqlite index")
		disableTickLog = flag.Bool("disable_tick_log", false, "disable the zstd tick journal")
		logLevel       = flag.String("log_level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fatal(logger, "load tuning", err)
		}
		logger.Warn("tuning not found; using defaults", slog.String("path", tp))
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.Map.Seed = *seed
	}

	params := worldgenParams(tune)
	if err := params.Validate(); err != nil {
		fatal(logger, "asteroid params", err)
	}
	gen := worldgen.Generate(params)
	if n := gen.Shortfall(); n > 0 {
		logger.Warn("asteroid placement fell short",
			slog.Int("placed", len(gen.Asteroids)),
			slog.Int("requested", gen.Requested),
			slog.Int("attempts", gen.Attempts),
		)
	}
	logger.Info("map generated",
		slog.Int64("seed", tune.Map.Seed),
		slog.Int("asteroids", len(gen.Asteroids)),
		slog.Float64("w", tune.Map.W),
		slog.Float64("h", tune.Map.H),
	)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		fatal(logger, "data dir", err)
	}

	idx, err := openRuntimeIndex(*dataDir, *disableDB, logger)
	if err != nil {
		fatal(logger, "open index backend", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertMeta(tune, len(gen.Asteroids)); err != nil {
			logger.Warn("index backend: upsert meta", slog.Any("err", err))
		}
	}

	w, err := world.New(world.Config{
		Tuning:    tune,
		Asteroids: gen.Asteroids,
		Logger:    logger,
	})
	if err != nil {
		fatal(logger, "world", err)
	}

	var tickLog *persistlog.TickLogger
	if !*disableTickLog {
		tickLog = persistlog.NewTickLogger(*dataDir)
		defer tickLog.Close()
	}
	w.SetTickLogger(newMultiTickLogger(tickLog, idx))

	hub := session.NewHub(session.Config{World: w, Logger: logger, Limits: tune.Limits})
	hub.OnEvent(func(ev session.Event) {
		if idx != nil {
			idx.RecordSessionEvent(ev)
		}
	})
	w.SetBroadcaster(hub)

	ctx, cancel := signalContext()
	defer cancel()

	wsSrv := ws.NewServer(ctx, hub, tune.Limits.MaxFrameBytes, logger)
	srv := &http.Server{
		Addr: *addr,
		Handler: newMux(muxDeps{
			world:  w,
			hub:    hub,
			index:  idx,
			ws:     wsSrv,
			logger: logger,

			enableAdmin: envBool("ORERUSH_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
			enablePprof: envBool("ORERUSH_ENABLE_PPROF_HTTP", false),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := w.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if a := strings.TrimSpace(*tcpAddr); a != "" {
		g.Go(func() error {
			return tcp.NewServer(hub, tune.Limits.MaxFrameBytes, logger).ListenAndServe(gctx, a)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := srv.Shutdown(ctx2); err != nil {
			return err
		}
		// Websocket sessions emit their last events before the index closes.
		return wsSrv.Wait(ctx2)
	})
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		// os.Exit skips deferred closers.
		cancel()
		if tickLog != nil {
			_ = tickLog.Close()
		}
		if idx != nil {
			_ = idx.Close()
		}
		os.Exit(1)
	}
	logger.Info("shutdown complete", slog.Uint64("tick", w.CurrentTick()))
}

func worldgenParams(t tuning.Tuning) worldgen.Params {
	return worldgen.Params{
		Seed:        t.Map.Seed,
		MapW:        t.Map.W,
		MapH:        t.Map.H,
		Count:       t.Asteroids.Count,
		MinR:        t.Asteroids.MinR,
		MaxR:        t.Asteroids.MaxR,
		EdgePad:     t.Asteroids.EdgePad,
		Gap:         t.Asteroids.Gap,
		MaxAttempts: t.Asteroids.MaxAttempts,
	}
}

func fatal(logger *slog.Logger, what string, err error) {
	logger.Error(what, slog.Any("err", err))
	os.Exit(1)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// multiTickLogger fans one journal entry out to every configured sink.
type multiTickLogger struct {
	sinks []world.TickLogger
}

func newMultiTickLogger(tickLog *persistlog.TickLogger, idx runtimeIndex) multiTickLogger {
	var m multiTickLogger
	if tickLog != nil {
		m.sinks = append(m.sinks, tickLog)
	}
	if idx != nil {
		m.sinks = append(m.sinks, idx)
	}
	return m
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.WriteTick(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
