// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"

	"github.com/prepatools/collepdf/logger"
)

// A TextEncoding maps font code points to UTF-8 text.
type TextEncoding interface {
	// Decode returns the UTF-8 text corresponding to
	// the sequence of code points in raw.
	Decode(raw string) (text string)
}

type nopEncoder struct{}

func (e *nopEncoder) Decode(raw string) string { return raw }

// charmapEncoder decodes single-byte font encodings through the
// golang.org/x/text charmap tables.
type charmapEncoder struct {
	cm *charmap.Charmap
}

func (e *charmapEncoder) Decode(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		sb.WriteRune(e.cm.DecodeByte(raw[i]))
	}
	return sb.String()
}

// encoderFor picks a decoder for the font dictionary. Multi-byte CID
// encodings are passed through raw: the marker scan only needs Latin text
// and unmappable bytes are dropped later as non-displayable.
func (d *Document) encoderFor(font object) TextEncoding {
	fd, ok := d.resolve(font).(dict)
	if !ok {
		return &nopEncoder{}
	}
	enc, _ := d.resolve(fd["Encoding"]).(name)
	switch enc {
	case "WinAnsiEncoding":
		return &charmapEncoder{charmap.Windows1252}
	case "MacRomanEncoding":
		return &charmapEncoder{charmap.Macintosh}
	default:
		return &nopEncoder{}
	}
}

// pageFonts returns the text encodings of the page's fonts, keyed by
// resource name, resolving /Resources through the inheritance chain.
func (d *Document) pageFonts(page objptr) map[name]TextEncoding {
	fonts := make(map[name]TextEncoding)
	raw, ok := d.inheritedRaw(page, "Resources")
	if !ok {
		return fonts
	}
	res, ok := d.resolve(raw).(dict)
	if !ok {
		return fonts
	}
	fd, ok := d.resolve(res["Font"]).(dict)
	if !ok {
		return fonts
	}
	for fname, font := range fd {
		fonts[fname] = d.encoderFor(font)
	}
	return fonts
}

// contentData concatenates the decoded content stream(s) of a page.
// /Contents may be a single stream or an array of streams; per the PDF
// model the pieces form one logical stream.
func (d *Document) contentData(page objptr) ([]byte, error) {
	raw, ok := d.inheritedRaw(page, "Contents")
	if !ok {
		return nil, nil // a page with no content is empty, not broken
	}
	var out []byte
	appendStream := func(x object) error {
		strm, ok := d.resolve(x).(stream)
		if !ok {
			return fmt.Errorf("content entry is not a stream")
		}
		data, err := d.decodeStream(strm)
		if err != nil {
			return err
		}
		out = append(out, data...)
		out = append(out, '\n')
		return nil
	}
	switch x := d.resolve(raw).(type) {
	case stream:
		if err := appendStream(raw); err != nil {
			return nil, err
		}
	case array:
		for _, elem := range x {
			if err := appendStream(elem); err != nil {
				return nil, err
			}
		}
	case nil:
		return nil, fmt.Errorf("unresolvable /Contents reference")
	default:
		return nil, fmt.Errorf("unexpected /Contents value %s", objfmt(x))
	}
	return out, nil
}

// pageTextLines interprets the page's content stream and returns its text
// split into lines: every text-positioning operator starts a new line.
// Characters that do not decode to a displayable glyph are skipped.
func (d *Document) pageTextLines(page objptr) ([]string, error) {
	data, err := d.contentData(page)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	fonts := d.pageFonts(page)

	var lines []string
	var line strings.Builder
	endLine := func() {
		if line.Len() > 0 {
			lines = append(lines, line.String())
			line.Reset()
		}
	}
	var enc TextEncoding = &nopEncoder{}
	show := func(raw string) {
		for _, ch := range enc.Decode(raw) {
			if ch == ' ' || unicode.IsGraphic(ch) && ch != unicode.ReplacementChar {
				line.WriteRune(ch)
			}
		}
	}

	b := newBuffer(data, 0)
	var stack []object
	pop := func() object {
		if len(stack) == 0 {
			return nil
		}
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return x
	}
	for !b.eof() {
		tok := b.readToken()
		if tok == nil {
			break
		}
		op, ok := tok.(keyword)
		if !ok || op == "<<" || op == "[" {
			stack = append(stack, b.readObjectAfter(tok))
			continue
		}
		switch op {
		default:
			stack = stack[:0]
		case "BT", "ET", "T*", "Td", "TD", "Tm":
			endLine()
			stack = stack[:0]
		case "Tf":
			pop() // size
			if fname, ok := pop().(name); ok {
				if e, ok := fonts[fname]; ok {
					enc = e
				} else {
					enc = &nopEncoder{}
				}
			}
			stack = stack[:0]
		case "'", "\"":
			endLine()
			fallthrough
		case "Tj":
			if s, ok := pop().(string); ok {
				show(s)
			}
			stack = stack[:0]
		case "TJ":
			if a, ok := pop().(array); ok {
				for _, elem := range a {
					if s, ok := elem.(string); ok {
						show(s)
					}
				}
			}
			stack = stack[:0]
		}
	}
	endLine()
	logger.Debug("page text interpreted", "lines", len(lines))
	return lines, nil
}
