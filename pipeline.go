// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/prepatools/collepdf/logger"
)

// A Pipeline processes one unit of work: parse the colle-program bytes,
// extract the exercise numbers, fetch and parse the exercise document when
// numbers were found, merge it onto the program, and serialize the result.
//
// A Pipeline is stateless between Run calls and may be shared; the
// documents created during one Run are owned by that call alone.
type Pipeline struct {
	cfg       *Config
	fetcher   Fetcher
	extractor ExtractorStrategy
}

// NewPipeline validates cfg and returns a pipeline using fetcher for all
// external retrievals.
func NewPipeline(cfg *Config, fetcher Fetcher) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}
	return &Pipeline{cfg: cfg, fetcher: fetcher, extractor: cfg.extractor()}, nil
}

// exerciseURL derives the exercise-document locator from the extracted
// numbers: the numbers, comma-joined in extraction order, substituted into
// the configured URL template.
func (p *Pipeline) exerciseURL(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf(p.cfg.ExerciseURLTemplate, strings.Join(parts, ","))
}

// Run executes one unit of work on the given colle-program bytes and
// returns the serialized result. When no exercise numbers are found the
// fetch and merge are skipped entirely and the program comes back with its
// page structure unchanged — the common case, not an error.
//
// Any stage failure aborts the run with a PipelineError; no bytes are
// returned, so a failed unit can never leave partial output behind.
func (p *Pipeline) Run(ctx context.Context, primary []byte) ([]byte, error) {
	doc, err := ParseDocument(primary)
	if err != nil {
		return nil, &PipelineError{Stage: "parse program", Err: err}
	}
	if md, mdErr := doc.Metadata(); mdErr == nil && md.Title != "" {
		logger.Debug("program parsed", "title", md.Title, "pages", doc.NumPage())
	}

	nums, err := extractNumbers(doc, p.cfg.Marker, p.extractor)
	if err != nil {
		return nil, &PipelineError{Stage: "extract exercise numbers", Err: err}
	}
	logger.Debug("exercises referenced", "numbers", fmt.Sprint(nums), true)

	if len(nums) > 0 {
		url := p.exerciseURL(nums)
		body, err := p.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, &PipelineError{Stage: "fetch exercises", Err: err}
		}
		exercises, err := ParseDocument(body)
		if err != nil {
			return nil, &PipelineError{Stage: "parse exercises", Err: err}
		}
		if err := MergeDocuments(doc, exercises); err != nil {
			return nil, &PipelineError{Stage: "merge exercises", Err: err}
		}
	}

	out, err := doc.MarshalBinary()
	if err != nil {
		return nil, &PipelineError{Stage: "serialize", Err: err}
	}
	return out, nil
}
