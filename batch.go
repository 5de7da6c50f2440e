// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/prepatools/collepdf/logger"
)

// A Batch runs many independent pipeline units: one colle-program URL in,
// one collated PDF on disk out. Units already present in OutputDir are
// skipped, launches are paced by FetchDelay as politeness toward the
// source host, and at most MaxConcurrentUnits run at once. A unit's
// failure is logged and isolated; it never stops the other units.
type Batch struct {
	cfg  *Config
	pipe *Pipeline
	sem  *semaphore.Weighted
}

// NewBatch validates the config and creates a batch runner fetching
// through fetcher.
func NewBatch(cfg *Config, fetcher Fetcher) (*Batch, error) {
	pipe, err := NewPipeline(cfg, fetcher)
	if err != nil {
		return nil, err
	}
	logger.Debug(fmt.Sprintf("Batch initialized: parsing_mode=%v, max_concurrent_units=%d, fetch_delay=%v",
		cfg.ParsingMode, cfg.MaxConcurrentUnits, cfg.FetchDelay), true)
	return &Batch{
		cfg:  cfg,
		pipe: pipe,
		sem:  semaphore.NewWeighted(int64(cfg.MaxConcurrentUnits)),
	}, nil
}

// DiscoverWeeks fetches the configured index page and returns the week
// PDF URLs it lists.
func (b *Batch) DiscoverWeeks(ctx context.Context) ([]string, error) {
	if b.cfg.IndexURL == "" {
		return nil, errors.New("no index URL configured")
	}
	body, err := b.pipe.fetcher.Fetch(ctx, b.cfg.IndexURL)
	if err != nil {
		return nil, err
	}
	return ParseWeekList(body)
}

// Run processes every week URL. Week i produces OutputDir/<i+1>.pdf.
// Existing outputs are left alone. Returns the number of outputs written;
// the error is non-nil only when the context was cancelled.
func (b *Batch) Run(ctx context.Context, weekURLs []string) (int, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	written := 0

	for i, url := range weekURLs {
		out := filepath.Join(b.cfg.OutputDir, fmt.Sprintf("%d.pdf", i+1))
		if _, err := os.Stat(out); err == nil {
			logger.Debug("output exists, skipping week", "week", i+1, true)
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("cannot stat output", "path", out, "err", err)
			continue
		}

		// Pacing between launches, not inside units.
		select {
		case <-ctx.Done():
			wg.Wait()
			return written, ctx.Err()
		case <-time.After(b.cfg.FetchDelay):
		}

		if err := b.sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return written, err
		}
		wg.Add(1)
		go func(week int, url, out string) {
			defer wg.Done()
			defer b.sem.Release(1)
			if err := b.RunOne(ctx, url, out); err != nil {
				logger.Error("week failed", "week", week, "err", err)
				return
			}
			mu.Lock()
			written++
			mu.Unlock()
		}(i+1, url, out)
	}
	wg.Wait()
	logger.Debug("batch completed", "written", written, true)
	return written, nil
}

// RunOne collates a single week: fetch the program, run the pipeline, and
// write the result. The output file is written only after the whole unit
// succeeded.
func (b *Batch) RunOne(ctx context.Context, url, outPath string) error {
	primary, err := b.pipe.fetcher.Fetch(ctx, url)
	if err != nil {
		return &PipelineError{Stage: "fetch program", Err: err}
	}
	data, err := b.pipe.Run(ctx, primary)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return &PipelineError{Stage: "write output", Err: err}
	}
	logger.Debug("week collated", "output", outPath, true)
	return nil
}
