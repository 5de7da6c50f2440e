// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"fmt"

	"github.com/prepatools/collepdf/logger"
)

// pageAttrs is the exact set of page attributes carried over by a merge.
// Everything else — annotations, form fields, structure, article beads —
// is deliberately dropped: the merged pages only need to render.
var pageAttrs = []name{
	"Contents",
	"Resources",
	"MediaBox",
	"CropBox",
	"BleedBox",
	"TrimBox",
	"ArtBox",
	"Rotate",
	"UserUnit",
}

// MergeDocuments appends every page of src to the end of dst, in source
// page order. Each appended page is a fresh /Page object holding only the
// rendering attributes of the original, resolved through the source page
// tree's inheritance chain and grafted into dst's object space through a
// single GraftMap, so resources shared between source pages remain shared.
//
// On error some pages may already have been appended; there is no
// rollback, the caller discards dst.
func MergeDocuments(dst, src *Document) error {
	srcPages, err := src.pagePtrs()
	if err != nil {
		return &MergeError{Err: fmt.Errorf("source page tree: %w", err)}
	}
	gm := dst.NewGraftMap(src)
	for i, srcPage := range srcPages {
		page := dict{"Type": name("Page")}
		for _, attr := range pageAttrs {
			raw, ok := src.inheritedRaw(srcPage, attr)
			if !ok {
				continue
			}
			grafted, err := gm.Graft(raw)
			if err != nil {
				return &MergeError{Page: i + 1, Err: err}
			}
			page[attr] = grafted
		}
		ptr, err := dst.addObject(page)
		if err != nil {
			return &MergeError{Page: i + 1, Err: err}
		}
		if err := dst.appendPage(ptr); err != nil {
			return &MergeError{Page: i + 1, Err: err}
		}
	}
	logger.Debug("merged documents", "pages", len(srcPages), true)
	return nil
}
