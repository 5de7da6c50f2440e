// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"strconv"
	"strings"

	"github.com/prepatools/collepdf/logger"
)

// DefaultMarker is the token that introduces an exercise number in the
// rendered text of a colle program, e.g. "CCINP 12".
const DefaultMarker = "CCINP "

// ExtractorStrategy defines how to obtain the text lines of a single page.
// Different strategies handle unreadable pages differently (strict vs.
// best-effort).
type ExtractorStrategy interface {
	PageLines(doc *Document, page objptr) ([]string, error)
}

// StrictExtractor enforces strict scanning.
// If any page's content cannot be read, the whole extraction fails.
type StrictExtractor struct{}

func (s *StrictExtractor) PageLines(doc *Document, page objptr) ([]string, error) {
	return doc.pageTextLines(page)
}

// BestEffortExtractor tolerates unreadable pages.
// If a page fails, it simply skips that page.
type BestEffortExtractor struct{}

func (b *BestEffortExtractor) PageLines(doc *Document, page objptr) ([]string, error) {
	lines, err := doc.pageTextLines(page)
	if err != nil {
		logger.Debug("BestEffortExtractor: skipping unreadable page", "err", err, true)
		return nil, nil
	}
	return lines, nil
}

// ExtractExerciseNumbers scans the rendered text of every page, in
// document order, for integers introduced by marker: the candidate is the
// substring after the marker up to the next space (or end of line).
// Candidates that do not parse as integers are ignored — the marker word
// appears in prose too. Each number is reported once, in first-occurrence
// order. An empty result is the common case, not an error.
//
// The document is never mutated. The only failure mode is a page whose
// content cannot be read, reported as an ExtractionError.
func ExtractExerciseNumbers(doc *Document, marker string) ([]int, error) {
	return extractNumbers(doc, marker, &StrictExtractor{})
}

func extractNumbers(doc *Document, marker string, strategy ExtractorStrategy) ([]int, error) {
	pages, err := doc.pagePtrs()
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}
	var res []int
	seen := make(map[int]bool)
	for i, page := range pages {
		lines, err := strategy.PageLines(doc, page)
		if err != nil {
			return nil, &ExtractionError{Page: i + 1, Err: err}
		}
		for _, line := range lines {
			scanLine(line, marker, func(n int) {
				if !seen[n] {
					seen[n] = true
					res = append(res, n)
				}
			})
		}
	}
	logger.Debug("exercise numbers extracted", "count", len(res), true)
	return res, nil
}

// scanLine finds every marker occurrence in line and calls found for each
// candidate that parses as an integer.
func scanLine(line, marker string, found func(int)) {
	for rest := line; ; {
		j := strings.Index(rest, marker)
		if j < 0 {
			return
		}
		rest = rest[j+len(marker):]
		candidate := rest
		if k := strings.IndexByte(candidate, ' '); k >= 0 {
			candidate = candidate[:k]
		}
		n, err := strconv.Atoi(candidate)
		if err != nil || n < 0 {
			continue // marker without a usable number, keep scanning the line
		}
		found(n)
	}
}
