// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"

	"github.com/prepatools/collepdf/logger"
)

// decodeStream returns the decoded data of strm, applying its /Filter
// chain. Filters the engine does not understand are an error: callers that
// need the bytes cannot proceed without them.
func (d *Document) decodeStream(strm stream) ([]byte, error) {
	var rd io.Reader = bytes.NewReader(strm.data)
	switch filter := d.resolve(strm.hdr["Filter"]).(type) {
	case nil:
		// unfiltered
	case name:
		r, err := applyFilter(rd, string(filter), d.resolve(strm.hdr["DecodeParms"]))
		if err != nil {
			return nil, err
		}
		rd = r
	case array:
		parms, _ := d.resolve(strm.hdr["DecodeParms"]).(array)
		for i, f := range filter {
			fn, ok := d.resolve(f).(name)
			if !ok {
				return nil, fmt.Errorf("filter %d is not a name", i)
			}
			var parm object
			if i < len(parms) {
				parm = d.resolve(parms[i])
			}
			r, err := applyFilter(rd, string(fn), parm)
			if err != nil {
				return nil, err
			}
			rd = r
		}
	default:
		return nil, fmt.Errorf("unexpected /Filter value %s", objfmt(filter))
	}
	out, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("decode stream: %w", err)
	}
	return out, nil
}

func applyFilter(rd io.Reader, filterName string, parm object) (io.Reader, error) {
	switch filterName {
	default:
		return nil, fmt.Errorf("unsupported filter %s", filterName)
	case "FlateDecode":
		zr, err := zlib.NewReader(rd)
		if err != nil {
			return nil, fmt.Errorf("flate: %w", err)
		}
		pd, _ := parm.(dict)
		pred, _ := pd["Predictor"].(int64)
		if pred == 0 || pred == 1 {
			return zr, nil
		}
		columns, _ := pd["Columns"].(int64)
		if columns <= 0 {
			columns = 1
		}
		switch pred {
		case 12:
			return &pngUpReader{r: zr, hist: make([]byte, 1+columns), tmp: make([]byte, 1+columns)}, nil
		default:
			return nil, fmt.Errorf("unsupported predictor %d", pred)
		}
	case "ASCII85Decode":
		logger.Debug("filter: ASCII85Decode")
		return ascii85.NewDecoder(newAlphaReader(rd)), nil
	}
}

// pngUpReader undoes the PNG Up predictor (type 2) row by row.
type pngUpReader struct {
	r    io.Reader
	hist []byte
	tmp  []byte
	pend []byte
}

func (r *pngUpReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}
		_, err := io.ReadFull(r.r, r.tmp)
		if err != nil {
			return n, err
		}
		if r.tmp[0] != 2 {
			return n, fmt.Errorf("malformed PNG-Up encoding")
		}
		for i, c := range r.tmp {
			r.hist[i] += c
		}
		r.pend = r.hist[1:]
	}
	return n, nil
}

// alphaReader strips whitespace from ASCII85 data and treats the Adobe
// "~>" terminator as end of input, neither of which the encoding/ascii85
// decoder accepts.
type alphaReader struct {
	r   io.Reader
	end bool
}

func newAlphaReader(r io.Reader) io.Reader {
	return &alphaReader{r: r}
}

func (a *alphaReader) Read(p []byte) (int, error) {
	if a.end {
		return 0, io.EOF
	}
	tmp := make([]byte, len(p))
	n, err := a.r.Read(tmp)
	if n == 0 {
		return 0, err
	}
	j := 0
	for _, c := range tmp[:n] {
		if c == '~' {
			a.end = true
			break
		}
		if isSpace(c) {
			continue
		}
		p[j] = c
		j++
	}
	if a.end && j == 0 {
		return 0, io.EOF
	}
	return j, err
}
