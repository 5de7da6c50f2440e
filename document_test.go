// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"bytes"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	d := NewDocument()

	assert.Equal(t, 0, d.NumPage())
	assert.Equal(t, "1.7", d.Version())
	assert.Equal(t, "Catalog", d.Trailer().Key("Root").Key("Type").Name())
	assert.Equal(t, int64(0), d.Trailer().Key("Root").Key("Pages").Key("Count").Int64())
}

func TestParseDocument_RoundTrip(t *testing.T) {
	src := makeDoc(t, "first page", "second page")
	data := mustMarshal(t, src)

	d := mustParse(t, data)
	assert.Equal(t, "1.7", d.Version())
	require.Equal(t, 2, d.NumPage())
	assert.Equal(t, "first page", pageText(t, d, 1))
	assert.Equal(t, "second page", pageText(t, d, 2))
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty input", ""},
		{"no header", "hello world\n%%EOF\n"},
		{"bad version", "%PDF-9.9\n1 0 obj <<>> endobj\n%%EOF\n"},
		{"missing EOF marker", "%PDF-1.4\n1 0 obj <<>> endobj\n"},
		{"no objects", "%PDF-1.4\njunk\n%%EOF\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.data))
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
		})
	}
}

func TestParseDocument_ScanFallback(t *testing.T) {
	// No xref table and no trailer: objects are recovered by scanning and
	// the catalog is located directly.
	raw := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
		"2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n" +
		"3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >> endobj\n" +
		"%%EOF\n"

	d := mustParse(t, []byte(raw))
	assert.Equal(t, 1, d.NumPage())
	assert.Equal(t, "Page", d.Page(1).Key("Type").Name())
}

func TestParseDocument_CorruptXrefFallsBack(t *testing.T) {
	data := mustMarshal(t, makeDoc(t, "page"))
	// Break the startxref offset; parsing must recover by scanning.
	broken := append([]byte(nil), data...)
	i := bytes.Index(broken, []byte("startxref"))
	require.GreaterOrEqual(t, i, 0)
	broken[i+len("startxref")+1] = '1'
	broken[i+len("startxref")+2] = '1'

	d := mustParse(t, broken)
	assert.Equal(t, 1, d.NumPage())
}

func TestPage_Bounds(t *testing.T) {
	d := makeDoc(t, "only page")

	assert.False(t, d.Page(1).IsNull())
	assert.True(t, d.Page(0).IsNull())
	assert.True(t, d.Page(2).IsNull())
}

func TestPagePtrs_NestedTree(t *testing.T) {
	// Catalog -> Pages -> [Pages -> [P1 P2], P3]: document order must be
	// the leaf order of the depth-first walk.
	raw := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
		"2 0 obj << /Type /Pages /Kids [3 0 R 6 0 R] /Count 3 >> endobj\n" +
		"3 0 obj << /Type /Pages /Parent 2 0 R /Kids [4 0 R 5 0 R] /Count 2 >> endobj\n" +
		"4 0 obj << /Type /Page /Parent 3 0 R >> endobj\n" +
		"5 0 obj << /Type /Page /Parent 3 0 R >> endobj\n" +
		"6 0 obj << /Type /Page /Parent 2 0 R >> endobj\n" +
		"%%EOF\n"
	d := mustParse(t, []byte(raw))

	ptrs, err := d.pagePtrs()
	require.NoError(t, err)
	require.Len(t, ptrs, 3)
	assert.Equal(t, []objptr{{4, 0}, {5, 0}, {6, 0}}, ptrs)
}

func TestPagePtrs_CyclicKidsTerminates(t *testing.T) {
	raw := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
		"2 0 obj << /Type /Pages /Kids [3 0 R 2 0 R] /Count 1 >> endobj\n" +
		"3 0 obj << /Type /Page /Parent 2 0 R >> endobj\n" +
		"%%EOF\n"
	d := mustParse(t, []byte(raw))

	assert.Equal(t, 1, d.NumPage())
}

func TestInheritedRaw(t *testing.T) {
	raw := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
		"2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 595 842] /Rotate 90 >> endobj\n" +
		"3 0 obj << /Type /Page /Parent 2 0 R /Rotate 180 >> endobj\n" +
		"%%EOF\n"
	d := mustParse(t, []byte(raw))
	ptrs, err := d.pagePtrs()
	require.NoError(t, err)
	page := ptrs[0]

	box, ok := d.inheritedRaw(page, "MediaBox")
	require.True(t, ok, "MediaBox inherited from the pages node")
	assert.Equal(t, array{int64(0), int64(0), int64(595), int64(842)}, box)

	rot, ok := d.inheritedRaw(page, "Rotate")
	require.True(t, ok)
	assert.Equal(t, int64(180), rot, "page value wins over the inherited one")

	_, ok = d.inheritedRaw(page, "CropBox")
	assert.False(t, ok, "absent everywhere on the chain")
}

func TestResolve_DepthGuard(t *testing.T) {
	d := NewDocument()
	a, _ := d.addObject(nil)
	b, _ := d.addObject(a)
	d.setObject(a, b)

	assert.Nil(t, d.resolve(a), "circular reference chains resolve to null")
}

func TestObjectStreamsExpand(t *testing.T) {
	// An uncompressed /ObjStm holding two small objects; its members must
	// become addressable after parsing.
	hdr := "4 0 5 11 "
	payload := hdr + "<< /A 1 >> << /B 2 >>"
	raw := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
		"2 0 obj << /Type /Pages /Kids [] /Count 0 >> endobj\n" +
		"3 0 obj << /Type /ObjStm /N 2 /First " + strconv.Itoa(len(hdr)) +
		" /Length " + strconv.Itoa(len(payload)) +
		" >>\nstream\n" + payload + "\nendstream endobj\n" +
		"%%EOF\n"
	d := mustParse(t, []byte(raw))

	obj, ok := d.object(objptr{4, 0})
	require.True(t, ok)
	assert.Equal(t, dict{"A": int64(1)}, obj)
	obj, ok = d.object(objptr{5, 0})
	require.True(t, ok)
	assert.Equal(t, dict{"B": int64(2)}, obj)
}
