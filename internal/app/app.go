package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	nethttp "net/http"
	"os"
	"strings"
	"time"

	"silkweaver/internal/net/ws"
	"silkweaver/internal/sim"
	"silkweaver/internal/telemetry"
	"silkweaver/internal/world"
	"silkweaver/logging"
	loggingSinks "silkweaver/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Run serves the demo region until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config) error {
	srv, err := newServer(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := srv.close(context.Background()); cerr != nil {
			srv.logger.Printf("failed to close server: %v", cerr)
		}
	}()

	stop := make(chan struct{})
	go srv.loop.Run(stop)
	defer close(stop)

	httpSrv := &nethttp.Server{Addr: cfg.Addr, Handler: srv.handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	srv.logger.Printf("server listening on %s", httpSrv.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}

// server holds the wired components behind the HTTP surface.
type server struct {
	logger  telemetry.Logger
	router  *logging.Router
	engine  *sim.Engine
	loop    *sim.Loop
	stream  *ws.Handler
	handler nethttp.Handler
	closers []io.Closer
}

func newServer(cfg Config) (*server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	srv := &server{logger: logger}

	logConfig := logging.DefaultConfig()
	logConfig.MinimumSeverity = logging.ParseSeverity(cfg.LogLevel)
	named, err := srv.buildSinks(cfg, logConfig)
	if err != nil {
		srv.closeFiles()
		return nil, err
	}
	logConfig.EnabledSinks = make([]string, 0, len(named))
	for _, sink := range named {
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, sink.Name)
	}
	router, err := logging.NewRouter(nil, logConfig, named)
	if err != nil {
		srv.closeFiles()
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	srv.router = router

	tuning, err := LoadTuning(cfg.TuningFile)
	if err != nil {
		srv.close(context.Background())
		return nil, err
	}

	srv.engine = sim.NewEngine(sim.EngineConfig{Silk: tuning, StepBodies: true}, sim.Deps{
		Logger:    logger,
		Metrics:   telemetry.WrapMetrics(router.Metrics()),
		Publisher: router,
	})
	if err := seedDemo(srv.engine, cfg.DemoActor); err != nil {
		srv.close(context.Background())
		return nil, err
	}

	srv.loop = sim.NewLoop(srv.engine, sim.LoopConfig{
		TickRate:        cfg.TickRate,
		CatchupMaxTicks: cfg.CatchupMaxTicks,
		CommandCapacity: cfg.CommandCapacity,
		PerActorLimit:   cfg.PerActorLimit,
	}, sim.LoopHooks{
		AfterStep: func(sim.LoopStepResult) {
			srv.stream.Broadcast()
		},
	})
	srv.stream = ws.NewHandler(ws.HandlerConfig{
		Source:        srv.engine,
		Commands:      srv.loop,
		Logger:        logger,
		DefaultRegion: world.DemoConfig().ID,
	})
	srv.handler = newHTTPHandler(httpHandlerConfig{
		Engine:   srv.engine,
		Stream:   srv.stream,
		Router:   router,
		TickRate: cfg.TickRate,
	})
	return srv, nil
}

func (s *server) buildSinks(cfg Config, logConfig logging.Config) ([]logging.NamedSink, error) {
	var named []logging.NamedSink
	for _, raw := range cfg.LogSinks {
		name := strings.TrimSpace(raw)
		switch name {
		case "":
			continue
		case "console":
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsoleSink(os.Stdout)})
		case "json":
			var out io.Writer = os.Stdout
			if cfg.LogJSONPath != "" {
				file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return nil, fmt.Errorf("open json log %s: %w", cfg.LogJSONPath, err)
				}
				s.closers = append(s.closers, file)
				out = file
			}
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(out, logConfig.JSON.FlushInterval)})
		case "memory":
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemorySink()})
		default:
			return nil, fmt.Errorf("unknown log sink %q", name)
		}
	}
	return named, nil
}

// seedDemo loads the demo region with one actor and a pullable crate.
func seedDemo(engine *sim.Engine, actorID string) error {
	region, err := engine.RegionLoaded(world.DemoConfig())
	if err != nil {
		return fmt.Errorf("load demo region: %w", err)
	}
	crate := world.NewBody("crate-1", world.KindItem, region.TileCenter(world.TileCoord{X: 18, Y: 2}), 1, 8)
	crate.Pullable = true
	if err := engine.AddBody(region.ID, crate); err != nil {
		return fmt.Errorf("add demo crate: %w", err)
	}
	if actorID == "" {
		return nil
	}
	if _, err := engine.AddActor(region.ID, actorID, region.TileCenter(world.TileCoord{X: 4, Y: 3})); err != nil {
		return fmt.Errorf("add demo actor: %w", err)
	}
	return nil
}

func (s *server) close(ctx context.Context) error {
	if s.engine != nil {
		s.engine.Shutdown()
	}
	var err error
	if s.router != nil {
		err = s.router.Close(ctx)
	}
	return errors.Join(err, s.closeFiles())
}

func (s *server) closeFiles() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}
