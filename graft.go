// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"github.com/prepatools/collepdf/logger"
)

// A GraftMap copies indirect objects from a source document's object space
// into a destination document's, deduplicating by source object identity:
// grafting the same source object twice yields the same destination object,
// so resource dictionaries shared between source pages stay shared after
// the copy. A map is scoped to one merge operation and discarded afterward.
//
// The map never mutates the source document.
type GraftMap struct {
	dst  *Document
	src  *Document
	refs map[objptr]objptr // source identity -> destination identity
}

// NewGraftMap returns a graft map copying objects from src into d.
func (d *Document) NewGraftMap(src *Document) *GraftMap {
	return &GraftMap{dst: d, src: src, refs: make(map[objptr]objptr)}
}

// Graft returns obj rebuilt in the destination document's object space.
// Scalars pass through; containers are copied element by element; indirect
// references are materialized in the destination table, recursively
// grafting everything they depend on through the same map.
func (g *GraftMap) Graft(obj object) (object, error) {
	switch x := obj.(type) {
	case nil, bool, int64, float64, string, name:
		return x, nil
	case dict:
		out := make(dict, len(x))
		for k, v := range x {
			gv, err := g.Graft(v)
			if err != nil {
				return nil, err
			}
			out[k] = gv
		}
		return out, nil
	case array:
		out := make(array, len(x))
		for i, v := range x {
			gv, err := g.Graft(v)
			if err != nil {
				return nil, err
			}
			out[i] = gv
		}
		return out, nil
	case stream:
		hdr, err := g.Graft(x.hdr)
		if err != nil {
			return nil, err
		}
		data := make([]byte, len(x.data))
		copy(data, x.data)
		return stream{hdr: hdr.(dict), data: data}, nil
	case objptr:
		return g.graftRef(x)
	default:
		return nil, &GraftError{Reason: "unexpected object type " + objfmt(obj)}
	}
}

// graftRef copies the indirect object behind ptr. The destination slot is
// reserved and recorded before the value is copied, which both makes the
// operation idempotent and terminates recursion on cyclic graphs.
func (g *GraftMap) graftRef(ptr objptr) (object, error) {
	if dst, ok := g.refs[ptr]; ok {
		return dst, nil
	}
	val, ok := g.src.object(ptr)
	if !ok {
		return nil, &GraftError{Ref: ptr, Reason: "dangling reference in source document"}
	}
	dst, err := g.dst.allocObject()
	if err != nil {
		return nil, err
	}
	g.refs[ptr] = dst
	copied, err := g.Graft(val)
	if err != nil {
		return nil, err
	}
	g.dst.setObject(dst, copied)
	logger.Debug("grafted object", "src", ptr.id, "dst", dst.id)
	return dst, nil
}
