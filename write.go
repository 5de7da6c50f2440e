// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/prepatools/collepdf/logger"
)

// MarshalBinary serializes the document: header, every live object in
// numeric order, a classic cross-reference table, the trailer, and the
// startxref pointer. Stream data is written back exactly as stored, so
// filters survive a parse/serialize round trip untouched.
func (d *Document) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", d.version)
	// Binary-comment line so transports treat the file as binary.
	buf.WriteString("%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int64, len(d.objs))
	for id := 1; id < len(d.objs); id++ {
		obj := d.objs[id]
		if obj == nil {
			continue
		}
		offsets[id] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n", id)
		writeObject(&buf, obj)
		buf.WriteString("\nendobj\n")
	}

	xrefPos := int64(buf.Len())
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(d.objs))
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id < len(d.objs); id++ {
		if d.objs[id] == nil {
			buf.WriteString("0000000000 65535 f \n")
		} else {
			fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
		}
	}

	trailer := dict{"Size": int64(len(d.objs))}
	for _, k := range []name{"Root", "Info"} {
		if v, ok := d.trailer[k]; ok {
			trailer[k] = v
		}
	}
	if _, ok := trailer["Root"]; !ok {
		return nil, &ParseError{"cannot serialize a document without /Root"}
	}
	buf.WriteString("trailer\n")
	writeObject(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)

	logger.Debug("document serialized", "bytes", buf.Len(), true)
	return buf.Bytes(), nil
}

// Save serializes the document and writes it to path in one shot, so a
// failed serialization never leaves a partial file behind.
func (d *Document) Save(path string) error {
	data, err := d.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeObject(buf *bytes.Buffer, obj object) {
	switch x := obj.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case float64:
		buf.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	case string:
		writeString(buf, x)
	case name:
		writeName(buf, x)
	case dict:
		writeDict(buf, x)
	case array:
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, elem)
		}
		buf.WriteByte(']')
	case stream:
		hdr := make(dict, len(x.hdr)+1)
		for k, v := range x.hdr {
			hdr[k] = v
		}
		hdr["Length"] = int64(len(x.data))
		writeDict(buf, hdr)
		buf.WriteString("\nstream\n")
		buf.Write(x.data)
		buf.WriteString("\nendstream")
	case objptr:
		fmt.Fprintf(buf, "%d %d R", x.id, x.gen)
	default:
		// Unknown value; null is the only safe rendering.
		logger.Error("serializing unexpected value", "type", fmt.Sprintf("%T", obj))
		buf.WriteString("null")
	}
}

func writeDict(buf *bytes.Buffer, d dict) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	buf.WriteString("<<")
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(' ')
		}
		writeName(buf, name(k))
		buf.WriteByte(' ')
		writeObject(buf, d[name(k)])
	}
	buf.WriteString(">>")
}

func writeName(buf *bytes.Buffer, n name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c <= ' ' || c >= 0x7f || isDelim(c) || c == '#' {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

// writeString emits a literal string when the content is mostly printable
// and a hex string otherwise.
func writeString(buf *bytes.Buffer, s string) {
	printable := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= ' ' && s[i] < 0x7f {
			printable++
		}
	}
	if printable*4 >= len(s)*3 {
		buf.WriteByte('(')
		for i := 0; i < len(s); i++ {
			c := s[i]
			switch c {
			case '(', ')', '\\':
				buf.WriteByte('\\')
				buf.WriteByte(c)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			default:
				if c < ' ' || c >= 0x7f {
					fmt.Fprintf(buf, `\%03o`, c)
				} else {
					buf.WriteByte(c)
				}
			}
		}
		buf.WriteByte(')')
		return
	}
	buf.WriteByte('<')
	for i := 0; i < len(s); i++ {
		fmt.Fprintf(buf, "%02X", s[i])
	}
	buf.WriteByte('>')
}
