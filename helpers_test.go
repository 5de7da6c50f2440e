// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeDoc builds an in-memory document with one page per text, each page
// showing its text through a single Tj operator.
func makeDoc(t *testing.T, pageTexts ...string) *Document {
	t.Helper()
	d := NewDocument()
	for _, txt := range pageTexts {
		addTextPage(t, d, txt)
	}
	return d
}

func addTextPage(t *testing.T, d *Document, txt string) objptr {
	t.Helper()
	content := fmt.Sprintf("BT /F1 12 Tf (%s) Tj ET", txt)
	return addPage(t, d, content, dict{"Font": dict{"F1": addFont(t, d, nil)}})
}

// addPage adds a page with the given raw content stream and resources and
// returns its pointer.
func addPage(t *testing.T, d *Document, content string, resources dict) objptr {
	t.Helper()
	cptr, err := d.addObject(stream{hdr: dict{}, data: []byte(content)})
	require.NoError(t, err)
	page := dict{
		"Type":      name("Page"),
		"Contents":  cptr,
		"MediaBox":  array{int64(0), int64(0), int64(612), int64(792)},
		"Resources": resources,
	}
	pptr, err := d.addObject(page)
	require.NoError(t, err)
	require.NoError(t, d.appendPage(pptr))
	return pptr
}

// addFont registers a Type1 font dictionary, merging in extra entries.
func addFont(t *testing.T, d *Document, extra dict) objptr {
	t.Helper()
	font := dict{"Type": name("Font"), "Subtype": name("Type1"), "BaseFont": name("Helvetica")}
	for k, v := range extra {
		font[k] = v
	}
	ptr, err := d.addObject(font)
	require.NoError(t, err)
	return ptr
}

func mustMarshal(t *testing.T, d *Document) []byte {
	t.Helper()
	data, err := d.MarshalBinary()
	require.NoError(t, err)
	return data
}

func mustParse(t *testing.T, data []byte) *Document {
	t.Helper()
	d, err := ParseDocument(data)
	require.NoError(t, err)
	return d
}

// pageText returns the concatenated text lines of page num (1-indexed).
func pageText(t *testing.T, d *Document, num int) string {
	t.Helper()
	ptrs, err := d.pagePtrs()
	require.NoError(t, err)
	require.LessOrEqual(t, num, len(ptrs))
	lines, err := d.pageTextLines(ptrs[num-1])
	require.NoError(t, err)
	out := ""
	for _, l := range lines {
		out += l
	}
	return out
}

// stubFetcher serves canned responses by URL and records every call.
// Safe for concurrent use, since Batch fetches from several goroutines.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	calls     []string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	body, ok := f.responses[url]
	if !ok {
		return nil, &FetchError{URL: url, Status: 404}
	}
	return body, nil
}

// testConfig returns a valid config wired for offline tests.
func testConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.ExerciseURLTemplate = "https://exercises.test/%s.pdf"
	cfg.IndexURL = "https://index.test/programs/"
	cfg.FetchDelay = 0
	return cfg
}
