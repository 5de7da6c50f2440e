// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Command collepdf downloads every colle program listed on the index
// page, collates each with the CCINP exercises it references, and writes
// one PDF per week to the output directory. Weeks that already have an
// output file are skipped, so reruns only fetch what is missing.
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

	collepdf "github.com/prepatools/collepdf"
	"github.com/prepatools/collepdf/logger"
	"github.com/prepatools/collepdf/tracer"
)

func main() {
	cfg := collepdf.NewDefaultConfig()

	flag.StringVar(&cfg.IndexURL, "index", cfg.IndexURL, "colle-program index page")
	flag.StringVar(&cfg.ExerciseURLTemplate, "exercises", cfg.ExerciseURLTemplate,
		"exercise URL template; %s receives the comma-joined numbers")
	flag.StringVar(&cfg.Marker, "marker", cfg.Marker, "token introducing an exercise number")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory")
	flag.IntVar(&cfg.MaxConcurrentUnits, "j", cfg.MaxConcurrentUnits, "max weeks processed at once")
	flag.DurationVar(&cfg.FetchDelay, "delay", cfg.FetchDelay, "pause between fetches")
	bestEffort := flag.Bool("best-effort", false, "skip unreadable pages instead of failing the week")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	if *bestEffort {
		cfg.ParsingMode = collepdf.BestEffort
	}
	cfg.DebugOn = *debug

	slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel(*debug),
	}))
	cfg.Logger = func(level logger.LogLevel, msg string, keyvals ...interface{}) {
		switch level {
		case logger.ErrorLevel:
			slogger.Error(msg, keyvals...)
		default:
			slogger.Debug(msg, keyvals...)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		tracer.Flush()
		fmt.Fprintln(os.Stderr, "collepdf:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *collepdf.Config) error {
	batch, err := collepdf.NewBatch(cfg, collepdf.NewHTTPFetcher(cfg.FetchTimeout))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}

	weeks, err := batch.DiscoverWeeks(ctx)
	if err != nil {
		return fmt.Errorf("discovering weeks: %w", err)
	}
	fmt.Printf("%d weeks listed\n", len(weeks))

	start := time.Now()
	written, err := batch.Run(ctx, weeks)
	if err != nil {
		return err
	}
	fmt.Printf("%d weeks collated in %s\n", written, time.Since(start).Round(time.Millisecond))
	return nil
}

func slogLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelError
}
