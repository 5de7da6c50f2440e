// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraftMap_Idempotent(t *testing.T) {
	src := NewDocument()
	fontPtr, err := src.addObject(dict{"Type": name("Font"), "BaseFont": name("Helvetica")})
	require.NoError(t, err)

	dst := NewDocument()
	gm := dst.NewGraftMap(src)

	g1, err := gm.Graft(fontPtr)
	require.NoError(t, err)
	before := len(dst.objs)

	g2, err := gm.Graft(fontPtr)
	require.NoError(t, err)

	assert.Equal(t, g1, g2, "same source object grafts to the same destination object")
	assert.Equal(t, before, len(dst.objs), "second graft allocates nothing")
}

func TestGraftMap_SharedReferencesStayShared(t *testing.T) {
	src := NewDocument()
	fontPtr, err := src.addObject(dict{"Type": name("Font")})
	require.NoError(t, err)
	resA := dict{"Font": dict{"F1": fontPtr}}
	resB := dict{"Font": dict{"F1": fontPtr}}

	dst := NewDocument()
	gm := dst.NewGraftMap(src)
	gA, err := gm.Graft(resA)
	require.NoError(t, err)
	gB, err := gm.Graft(resB)
	require.NoError(t, err)

	fA := gA.(dict)["Font"].(dict)["F1"]
	fB := gB.(dict)["Font"].(dict)["F1"]
	assert.Equal(t, fA, fB, "the shared font is copied once, not duplicated")
}

func TestGraftMap_CyclicGraph(t *testing.T) {
	// Parent/Kid cycles are the normal shape of a page tree; grafting one
	// must terminate and reproduce the cycle in the destination.
	src := NewDocument()
	parent, err := src.allocObject()
	require.NoError(t, err)
	kid, err := src.addObject(dict{"Type": name("Page"), "Parent": parent})
	require.NoError(t, err)
	src.setObject(parent, dict{"Type": name("Pages"), "Kids": array{kid}})

	dst := NewDocument()
	gm := dst.NewGraftMap(src)
	g, err := gm.Graft(parent)
	require.NoError(t, err)

	gParent := g.(objptr)
	node := dst.resolve(gParent).(dict)
	gKid := node["Kids"].(array)[0].(objptr)
	kidNode := dst.resolve(gKid).(dict)
	assert.Equal(t, gParent, kidNode["Parent"], "cycle is preserved in the copy")
}

func TestGraftMap_DanglingReference(t *testing.T) {
	src := NewDocument()
	dst := NewDocument()
	gm := dst.NewGraftMap(src)

	_, err := gm.Graft(objptr{99, 0})
	require.Error(t, err)
	var ge *GraftError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, objptr{99, 0}, ge.Ref)
}

func TestGraftMap_SourceUnmutated(t *testing.T) {
	src := NewDocument()
	fontPtr, err := src.addObject(dict{"Type": name("Font")})
	require.NoError(t, err)
	pagePtr, err := src.addObject(dict{"Type": name("Page"), "Resources": dict{"Font": dict{"F1": fontPtr}}})
	require.NoError(t, err)
	objCount := len(src.objs)

	dst := NewDocument()
	gm := dst.NewGraftMap(src)
	_, err = gm.Graft(pagePtr)
	require.NoError(t, err)

	assert.Equal(t, objCount, len(src.objs), "graft never allocates in the source")
	page := src.resolve(pagePtr).(dict)
	res := page["Resources"].(dict)["Font"].(dict)
	assert.Equal(t, fontPtr, res["F1"], "source still references its own object")
}

func TestGraftMap_StreamDataCopied(t *testing.T) {
	src := NewDocument()
	strmPtr, err := src.addObject(stream{hdr: dict{}, data: []byte("content")})
	require.NoError(t, err)

	dst := NewDocument()
	g, err := dst.NewGraftMap(src).Graft(strmPtr)
	require.NoError(t, err)

	copied := dst.resolve(g.(objptr)).(stream)
	require.Equal(t, []byte("content"), copied.data)
	copied.data[0] = 'X'
	orig := src.resolve(strmPtr).(stream)
	assert.Equal(t, byte('c'), orig.data[0], "destination holds its own copy of the bytes")
}
