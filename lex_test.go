// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadToken_Scalars(t *testing.T) {
	b := newBuffer([]byte(" 42 -7 3.25 +1.5 true false null /Name end"), 0)

	assert.Equal(t, int64(42), b.readToken())
	assert.Equal(t, int64(-7), b.readToken())
	assert.Equal(t, 3.25, b.readToken())
	assert.Equal(t, 1.5, b.readToken())
	assert.Equal(t, true, b.readToken())
	assert.Equal(t, false, b.readToken())
	assert.Nil(t, b.readToken())
	assert.Equal(t, name("Name"), b.readToken())
	assert.Equal(t, keyword("end"), b.readToken())
	assert.Nil(t, b.readToken(), "end of input reads as nil")
}

func TestReadToken_NameEscapes(t *testing.T) {
	b := newBuffer([]byte("/A#20B#2FC"), 0)
	assert.Equal(t, name("A B/C"), b.readToken())
}

func TestReadToken_Comments(t *testing.T) {
	b := newBuffer([]byte("1 % a comment\n2"), 0)
	assert.Equal(t, int64(1), b.readToken())
	assert.Equal(t, int64(2), b.readToken())
}

func TestReadToken_LiteralString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `(hello)`, "hello"},
		{"nested parens", `(a(b)c)`, "a(b)c"},
		{"escapes", `(a\(b\)c\n)`, "a(b)c\n"},
		{"octal", `(\101\102)`, "AB"},
		{"line continuation", "(ab\\\ncd)", "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuffer([]byte(tt.in), 0)
			assert.Equal(t, tt.want, b.readToken())
		})
	}
}

func TestReadToken_HexString(t *testing.T) {
	b := newBuffer([]byte("<48 65 6C6C6F>"), 0)
	assert.Equal(t, "Hello", b.readToken(), "whitespace inside hex strings is ignored")

	b = newBuffer([]byte("<48656C6C6F7>"), 0)
	assert.Equal(t, "Hellop", b.readToken(), "odd final digit is padded with zero")
}

func TestReadObject_Containers(t *testing.T) {
	b := newBuffer([]byte("<< /A 1 /B [4 0 R 3] /C (s) >>"), 0)
	obj, ok := b.readObject().(dict)
	require.True(t, ok)

	assert.Equal(t, int64(1), obj["A"])
	assert.Equal(t, array{objptr{4, 0}, int64(3)}, obj["B"])
	assert.Equal(t, "s", obj["C"])
}

func TestReadObject_ReferenceLookahead(t *testing.T) {
	// "1 2 R" is a reference, "1 2 3" is three integers.
	b := newBuffer([]byte("1 2 R 1 2 3"), 0)
	assert.Equal(t, objptr{1, 2}, b.readObject())
	assert.Equal(t, int64(1), b.readObject())
	assert.Equal(t, int64(2), b.readObject())
	assert.Equal(t, int64(3), b.readObject())
}

func TestReadObject_Definition(t *testing.T) {
	b := newBuffer([]byte("7 0 obj << /K /V >> endobj"), 0)
	def, ok := b.readObject().(objdef)
	require.True(t, ok)
	assert.Equal(t, objptr{7, 0}, def.ptr)
	assert.Equal(t, dict{"K": name("V")}, def.obj)
}

func TestReadObject_Stream(t *testing.T) {
	b := newBuffer([]byte("5 0 obj << /Length 5 >>\nstream\nHELLO\nendstream\nendobj"), 0)
	def, ok := b.readObject().(objdef)
	require.True(t, ok)
	strm, ok := def.obj.(stream)
	require.True(t, ok)
	assert.Equal(t, []byte("HELLO"), strm.data)
}

func TestReadObject_StreamIndirectLength(t *testing.T) {
	b := newBuffer([]byte("5 0 obj << /Length 9 0 R >>\nstream\nHELLO\nendstream\nendobj"), 0)
	b.lengthOf = func(p objptr) (int64, bool) {
		if p == (objptr{9, 0}) {
			return 5, true
		}
		return 0, false
	}
	def, ok := b.readObject().(objdef)
	require.True(t, ok)
	strm, ok := def.obj.(stream)
	require.True(t, ok)
	assert.Equal(t, []byte("HELLO"), strm.data)
}

func TestReadObject_StreamRecoversWithoutLength(t *testing.T) {
	// Unresolvable /Length: the data is recovered by scanning for endstream.
	b := newBuffer([]byte("5 0 obj << /Length 9 0 R >>\nstream\nHELLO\nendstream\nendobj"), 0)
	def, ok := b.readObject().(objdef)
	require.True(t, ok)
	strm, ok := def.obj.(stream)
	require.True(t, ok)
	assert.Equal(t, []byte("HELLO"), strm.data)
}
