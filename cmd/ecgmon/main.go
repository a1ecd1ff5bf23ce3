package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peter-kozarec/ecgmon/internal/dbg"
	"github.com/peter-kozarec/ecgmon/pkg/bus"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/datasource"
	"github.com/peter-kozarec/ecgmon/pkg/display"
	"github.com/peter-kozarec/ecgmon/pkg/middleware"
	"github.com/peter-kozarec/ecgmon/pkg/pipeline"
	"github.com/peter-kozarec/ecgmon/pkg/utility"
	"go.uber.org/zap"
)

func main() {
	var (
		mode     = flag.String("mode", DefaultMode, "orchestration: interrupt or task")
		kind     = flag.String("source", DefaultSource, "synthetic, serial, binary or duck")
		input    = flag.String("input", "", "serial port, recording path or duckdb dsn")
		query    = flag.String("query", "", "duckdb query returning one code column")
		hr       = flag.Float64("hr", SyntheticHeartRate, "synthetic heart rate [bpm]")
		seconds  = flag.Int("seconds", 0, "synthetic duration, 0 runs until interrupted")
		fast     = flag.Bool("fast", false, "deliver samples as fast as the pipeline takes them")
		policy   = flag.String("policy", DefaultPolicy, "task queue policy: drop or block")
		pngPath  = flag.String("png", "", "render the last seconds of waveform to this file on exit")
		httpAddr = flag.String("http", "", "serve the live waveform over websocket on this address")
		natsURL  = flag.String("nats", "", "publish waveform and heart rate to this NATS server")
		prod     = flag.Bool("prod", false, "json logging")
		quiet    = flag.Bool("quiet", false, "info level console logging")
	)
	flag.Parse()

	logger := dbg.NewLogger(*prod, *quiet)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info(fmt.Sprintf("ecgmon %s", Version))
	defer logger.Info("done")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := pipeline.DefaultConfiguration()
	var err error
	if cfg.Mode, err = pipeline.ParseMode(*mode); err != nil {
		logger.Fatal("invalid mode", zap.Error(err))
	}
	if cfg.QueuePolicy, err = bus.ParsePolicy(*policy); err != nil {
		logger.Fatal("invalid policy", zap.Error(err))
	}

	source, closeSource, err := openSource(ctx, logger, sourceOptions{
		kind:      *kind,
		input:     *input,
		query:     *query,
		heartRate: *hr,
		seconds:   *seconds,
	})
	if err != nil {
		logger.Fatal("unable to open source", zap.String("source", *kind), zap.Error(err))
	}
	defer closeSource()

	session := utility.GetSessionID()
	logger.Info("session", zap.String("id", session.String()), zap.Stringer("mode", cfg.Mode))

	// Create
	monitor := middleware.NewMonitor(logger, MonitorFlags)
	telemetry := middleware.NewTelemetry(logger)
	performance := middleware.NewPerformance(logger)

	sweep := display.NewSweep(display.WithSize(SweepWidth, SweepHeight), display.WithHistory(HistorySize))
	readout := display.NewReadout(logger)

	waveformHandlers := []bus.EventHandler[common.WaveformSample]{sweep.OnSample}
	heartRateHandlers := []bus.EventHandler[common.HeartRate]{readout.OnHeartRate}

	if *httpAddr != "" {
		hub := display.NewHub(logger, session, FrameBatch)
		defer hub.PrintStatistics()
		defer hub.Close()

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		server := &http.Server{Addr: *httpAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("websocket server listening", zap.String("addr", *httpAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("websocket server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		waveformHandlers = append(waveformHandlers, hub.OnSample)
		heartRateHandlers = append(heartRateHandlers, hub.OnHeartRate)
	}

	if *natsURL != "" {
		nc, err := display.Connect(*natsURL, NatsName)
		if err != nil {
			logger.Fatal("unable to connect to nats", zap.String("url", *natsURL), zap.Error(err))
		}
		defer func() { _ = nc.Drain() }()

		publisher := display.NewPublisher(logger, nc, session, FrameBatch)
		defer publisher.PrintStatistics()

		waveformHandlers = append(waveformHandlers, publisher.OnSample)
		heartRateHandlers = append(heartRateHandlers, publisher.OnHeartRate)
	}

	sinks := pipeline.Sinks{
		Waveform: middleware.Chain(telemetry.WithWaveform, performance.WithWaveform, monitor.WithWaveform)(
			bus.MergeHandlers(waveformHandlers...)),
		HeartRate: middleware.Chain(telemetry.WithHeartRate, performance.WithHeartRate, monitor.WithHeartRate)(
			bus.MergeHandlers(heartRateHandlers...)),
	}

	orchestrator, err := pipeline.New(cfg, sinks, logger)
	if err != nil {
		logger.Fatal("unable to build pipeline", zap.Error(err))
	}

	var samplerOpts []datasource.Option
	if *fast {
		samplerOpts = append(samplerOpts, datasource.WithFreeRun(FreeRunRetry))
	}
	sampler := datasource.NewSampler(logger, source, orchestrator, samplerOpts...)

	// Execute
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- orchestrator.Run(runCtx) }()

	defer orchestrator.PrintStatistics()
	defer sampler.PrintStatistics()
	defer performance.PrintStatistics(telemetry)
	defer telemetry.PrintStatistics()

	if err := sampler.Run(ctx); err != nil {
		switch {
		case errors.Is(err, datasource.ErrEof):
			drain(ctx, orchestrator)
		case errors.Is(err, context.Canceled):
		default:
			logger.Error("acquisition failed", zap.Error(err))
		}
	}

	stop()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("pipeline failed", zap.Error(err))
	}

	logger.Info(readout.Text())
	if *pngPath != "" {
		if err := sweep.Render(*pngPath); err != nil {
			logger.Error("unable to render waveform", zap.Error(err))
		} else {
			logger.Info("waveform rendered", zap.String("path", *pngPath))
		}
	}
}

// drain waits for the stages to go quiet after the source ran dry.
func drain(ctx context.Context, o pipeline.Orchestrator) {
	deadline := time.After(DrainTimeout)
	ticker := time.NewTicker(DrainPoll)
	defer ticker.Stop()

	last := o.Statistics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			cur := o.Statistics()
			if cur.Displayed == last.Displayed && cur.Processed == last.Processed {
				return
			}
			last = cur
		}
	}
}
