// Command airportsim runs the airport operational-control-plane simulator
// (spec.md §1): it builds the engine, starts its workers, serves the
// read-mostly control HTTP surface, and prints a one-line metrics summary
// every few seconds until SIGINT/SIGTERM. No dashboard renderer — spec.md
// §1's Non-goals exclude a visual UI.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/edirooss/airportsim/internal/api/http"
	"github.com/edirooss/airportsim/internal/api/metrics"
	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/debug"
	"github.com/edirooss/airportsim/internal/infrastructure/obslog"
	"github.com/edirooss/airportsim/internal/service/engine"
	"github.com/edirooss/airportsim/internal/telemetry/feed"
	"github.com/edirooss/airportsim/pkg/fmtt"
)

func main() {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	log := zap.Must(logConfig.Build())
	defer log.Sync()
	log = log.Named("main")

	cfg := config.New(
		config.WithRedisAddr(os.Getenv("AIRPORTSIM_REDIS_ADDR")),
		config.WithHTTPAddr(envOr("AIRPORTSIM_HTTP_ADDR", ":8080")),
		config.WithLogDir(envOr("AIRPORTSIM_LOG_DIR", "logs")),
	)

	obs, err := obslog.New(log, cfg.LogDir)
	if err != nil {
		log.Fatal("failed to initialize channel log manager", zap.Error(err))
	}
	defer obs.Close()

	fmt.Println("airportsim — airport operational-control-plane simulator")
	fmt.Println("press enter to begin...")
	bufio.NewReader(os.Stdin).ReadString('\n')

	eng := engine.New(log, obs, cfg, time.Now().UnixNano())

	var feedClient *feed.Client
	if cfg.RedisAddr != "" {
		feedClient = feed.New(cfg.RedisAddr, log)
		defer feedClient.Close()
		eng.OnEvent(func(kind string, payload any) { feedClient.Publish(kind, payload, time.Now()) })
	}

	metricsSvc := metrics.NewService(log, eng, metrics.Options{TTL: 250 * time.Millisecond})
	httpServer := http.NewServer(cfg.HTTPAddr, log, eng, metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dumpCh := make(chan os.Signal, 1)
	signal.Notify(dumpCh, syscall.SIGUSR1)
	go func() {
		for range dumpCh {
			debug.DumpState(log, eng)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return eng.Run(gctx) })

	g.Go(func() error {
		log.Info("running HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				printSummary(eng)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", zap.Error(err))
		fmtt.PrintErrChain(err)
		os.Exit(1)
	}
	os.Exit(0)
}

func printSummary(eng *engine.Engine) {
	flights := eng.ActiveFlights()
	availRwy, totalRwy := eng.RunwayCounts()
	availGate, totalGate := eng.GateCounts()
	handled, onTime, mean := eng.HandledTotals()
	var onTimeFraction float64
	if handled > 0 {
		onTimeFraction = float64(onTime) / float64(handled)
	}
	fmt.Printf("t=%d active=%d runways=%d/%d gates=%d/%d handled=%d on_time=%.2f mean_turnaround=%.1fs\n",
		eng.SimTime(), len(flights), totalRwy-availRwy, totalRwy, totalGate-availGate, totalGate,
		handled, onTimeFraction, mean)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
