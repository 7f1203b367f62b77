package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/ddirect/rankfeed/config"
	"github.com/ddirect/rankfeed/feed"
	"github.com/ddirect/rankfeed/internal/priority"
	"github.com/ddirect/rankfeed/metrics"
	"github.com/ddirect/rankfeed/protocol"
)

func main() {
	def := config.Default()
	app := cli.App{
		Name:  "rankfeed",
		Usage: "apply feed commands read line by line and print one response per command",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "command file, - for stdin",
				Value:   def.Input,
				EnvVars: []string{"RANKFEED_INPUT"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "response file, - for stdout",
				Value:   def.Output,
				EnvVars: []string{"RANKFEED_OUTPUT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   def.LogLevel,
				EnvVars: []string{"RANKFEED_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "lenient",
				Usage:   "answer failed commands with an error line instead of stopping",
				EnvVars: []string{"RANKFEED_LENIENT"},
			},
			&cli.BoolFlag{
				Name:    "retire-removed",
				Usage:   "refuse to add identifiers that were removed before",
				EnvVars: []string{"RANKFEED_RETIRE_REMOVED"},
			},
			&cli.Uint64Flag{
				Name:    "seed",
				Usage:   "seed of the balancing priorities, 0 for a random one",
				EnvVars: []string{"RANKFEED_SEED"},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "listen address of the prometheus endpoint, empty to disable",
				EnvVars: []string{"RANKFEED_METRICS_ADDR"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("rankfeed failed")
		os.Exit(1)
	}
}

func run(cctx *cli.Context) error {
	cfg := config.Config{
		Input:         cctx.String("input"),
		Output:        cctx.String("output"),
		LogLevel:      cctx.String("log-level"),
		Lenient:       cctx.Bool("lenient"),
		RetireRemoved: cctx.Bool("retire-removed"),
		Seed:          cctx.Uint64("seed"),
		MetricsAddr:   cctx.String("metrics-addr"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.Level()

	// stdout carries the responses
	log.DefaultLogger = log.Logger{
		Level:      level,
		Caller:     1,
		TimeFormat: "2006-01-02 15:04:05",
		Writer:     &log.IOWriter{Writer: os.Stderr},
	}

	if cfg.Seed != 0 {
		priority.Seed(cfg.Seed, 0)
		log.Debug().Uint64("seed", cfg.Seed).Msg("fixed priority seed")
	}

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	// a second signal terminates the process the default way
	context.AfterFunc(ctx, stop)

	in, err := openInput(cfg.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	out, closeOut, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}

	var opts []protocol.Option
	if cfg.Lenient {
		opts = append(opts, protocol.Lenient())
	}
	if interactive(in) {
		opts = append(opts, protocol.FlushEachResponse())
	}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, protocol.WithMetrics(metrics.New(reg)))
		shutdown := serveMetrics(cfg.MetricsAddr, reg)
		defer shutdown()
	}

	var feedOpts []feed.Option
	if cfg.RetireRemoved {
		feedOpts = append(feedOpts, feed.WithRetiredIDs())
	}

	s, err := protocol.NewRunner(feed.New(feedOpts...), opts...).Run(ctx, in, out)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if s.Failed > 0 {
		log.Warn().Int("failed", s.Failed).Msg("some commands failed")
	}
	return nil
}

func openInput(path string) (*os.File, error) {
	if path == config.Stdio {
		return os.Stdin, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// interactive reports whether commands may arrive one at a time, as from a
// terminal or a pipe, rather than from a file read in one go.
func interactive(f *os.File) bool {
	fi, err := f.Stat()
	return err != nil || !fi.Mode().IsRegular()
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == config.Stdio {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Info().Msgf("Starting Prometheus metrics server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Prometheus metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}
}
