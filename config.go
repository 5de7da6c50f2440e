// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/prepatools/collepdf/logger"
)

type ParsingMode string

const (
	Strict     ParsingMode = "strict"
	BestEffort ParsingMode = "best-effort"
)

type Config struct {
	// Marker introduces an exercise number in page text.
	Marker string `validate:"required"`
	// ExerciseURLTemplate receives the comma-joined exercise numbers.
	ExerciseURLTemplate string `validate:"required,contains=%s"`
	// IndexURL is the colle-program listing page; only Batch callers
	// that discover work from the index need it.
	IndexURL string `validate:"omitempty,url"`
	// OutputDir receives the collated PDFs, one per week.
	OutputDir string

	MaxConcurrentUnits int           `validate:"min=1,max=10"`
	FetchTimeout       time.Duration `validate:"required"`
	FetchDelay         time.Duration `validate:"min=0"`
	ParsingMode        ParsingMode   `validate:"oneof=strict best-effort"`

	DebugOn bool
	Logger  logger.LogFunc
}

func NewDefaultConfig() *Config {
	return &Config{
		Marker:              DefaultMarker,
		ExerciseURLTemplate: "https://ccinp.mpsi1.fr/%s.pdf",
		IndexURL:            "https://mp1.prepa-carnot.fr/programmes-de-colle/",
		OutputDir:           ".",
		MaxConcurrentUnits:  1,
		FetchTimeout:        30 * time.Second,
		FetchDelay:          3 * time.Second,
		ParsingMode:         Strict,
		DebugOn:             false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}

// extractor returns the page-scanning strategy selected by ParsingMode.
func (cfg *Config) extractor() ExtractorStrategy {
	if cfg.ParsingMode == BestEffort {
		return &BestEffortExtractor{}
	}
	return &StrictExtractor{}
}
