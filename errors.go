// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import "fmt"

// A ParseError reports malformed document bytes.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "malformed PDF: " + e.Reason
}

// An ExtractionError reports a page whose rendered text could not be
// obtained. Absence of matches is not an error and never produces one.
type ExtractionError struct {
	Page int // 1-based page number
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract page %d: %v", e.Page, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// A GraftError reports a failure to copy an object graph between
// documents: either the destination cannot allocate an object slot or a
// source reference does not resolve.
type GraftError struct {
	Ref    objptr
	Reason string
}

func (e *GraftError) Error() string {
	if e.Ref != (objptr{}) {
		return fmt.Sprintf("graft %d %d R: %s", e.Ref.id, e.Ref.gen, e.Reason)
	}
	return "graft: " + e.Reason
}

// A MergeError reports a failed page merge. Pages appended before the
// failure are left in place; the caller discards the destination document.
type MergeError struct {
	Page int // 1-based page number in the source document
	Err  error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge page %d: %v", e.Page, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// A FetchError reports a failed retrieval of an external resource.
type FetchError struct {
	URL    string
	Status int // HTTP status code, 0 if the request never completed
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// A PipelineError wraps a failure from any pipeline stage with the name of
// the stage that failed. A single unit's PipelineError never affects other
// units.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
