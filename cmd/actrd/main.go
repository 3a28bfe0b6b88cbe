// Command actrd hosts counter actors behind a line based console.
//
// Each input line has the form "<actor-id> <command>". Replies are printed
// as "<source> <payload>".
//
//	$ actrd -config actrd.yaml
//	c1 inc
//	actors:c1 1
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	promadapter "github.com/mmehali/actors/adapters/prometheus"
	"github.com/mmehali/actors/core/actor"
	"github.com/mmehali/actors/core/app"
	"github.com/mmehali/actors/internal/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("ACTR_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	lvl, _ := cfg.Log.SlogLevel()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdin, os.Stdout); err != nil {
		log.Error("actrd failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, in io.Reader, out io.Writer) error {
	cp, closeCheckpoints, err := newCheckpointer(cfg.Checkpoint, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCheckpoints(); err != nil {
			log.Error("failed to close checkpoint store", slog.Any("error", err))
		}
	}()

	appCfg := app.Config{
		Context:      ctx,
		Log:          log,
		Prefix:       cfg.Runner.Prefix,
		DirectPrefix: cfg.Runner.DirectPrefix,
		Checkpointer: cp,
		MaxActive:    cfg.Runner.MaxActive,
	}
	if cfg.Runner.Lazy {
		appCfg.Factory = counterFactory
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := promadapter.NewAllMetrics(reg)
		appCfg.Metrics = m.Actor
		appCfg.BusMetrics = m.Bus
	}

	a, err := app.New(appCfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Shutdown() }()

	for _, id := range cfg.Runner.Actors {
		// actors restored from a checkpoint keep their state
		if _, err := a.Spawn(id, &Counter{}, openMsg); err != nil {
			return fmt.Errorf("failed to start actor %s: %w", id, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if reg != nil {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", slog.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error { return printReplies(gctx, a, out) })
	go readCommands(gctx, a, in, log)

	<-gctx.Done()
	log.Info("shutting down")
	return g.Wait()
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok\n")
	})
	return mux
}

// readCommands forwards console lines to actors until in is exhausted or
// ctx is done.
func readCommands(ctx context.Context, a *app.App, in io.Reader, log *slog.Logger) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		id, cmd, _ := strings.Cut(line, " ")
		if err := a.Send(id, strings.TrimSpace(cmd)); err != nil {
			log.Warn("cannot send command", slog.String("line", line), slog.Any("error", err))
		}
	}
	if err := sc.Err(); err != nil {
		log.Error("failed to read commands", slog.Any("error", err))
	}
}

func printReplies(ctx context.Context, a *app.App, out io.Writer) error {
	for {
		m, err := a.Direct().ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if _, err := fmt.Fprintf(out, "%s %v\n", m.Source(), m.Payload()); err != nil {
			return err
		}
	}
}

var _ actor.Body = (*Counter)(nil)
