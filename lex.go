// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"bytes"
	"strconv"

	"github.com/prepatools/collepdf/logger"
)

// A token is the result of a single lexical step: an int64, float64,
// string, name, keyword, or nil at end of input. Structural punctuation
// («, », [, ], {, }) is reported as a keyword.
type token interface{}

// A buffer tokenizes a byte slice holding PDF syntax. It supports a small
// amount of token lookahead, which readObject uses to distinguish
// "N G R" references and "N G obj" definitions from plain integers.
type buffer struct {
	data     []byte
	pos      int
	unread   []token
	lengthOf func(objptr) (int64, bool) // resolves indirect /Length values
}

func newBuffer(data []byte, pos int) *buffer {
	return &buffer{data: data, pos: pos}
}

func isSpace(b byte) bool {
	switch b {
	case '\x00', '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (b *buffer) eof() bool {
	return b.pos >= len(b.data) && len(b.unread) == 0
}

func (b *buffer) readByte() (byte, bool) {
	if b.pos >= len(b.data) {
		return 0, false
	}
	c := b.data[b.pos]
	b.pos++
	return c, true
}

func (b *buffer) unreadByte() {
	if b.pos > 0 {
		b.pos--
	}
}

// skipSpace advances past whitespace and comments.
func (b *buffer) skipSpace() {
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		if isSpace(c) {
			b.pos++
			continue
		}
		if c == '%' {
			for b.pos < len(b.data) && b.data[b.pos] != '\n' && b.data[b.pos] != '\r' {
				b.pos++
			}
			continue
		}
		break
	}
}

func (b *buffer) unreadToken(t token) {
	b.unread = append(b.unread, t)
}

func (b *buffer) readToken() token {
	if n := len(b.unread); n > 0 {
		t := b.unread[n-1]
		b.unread = b.unread[:n-1]
		return t
	}
	b.skipSpace()
	c, ok := b.readByte()
	if !ok {
		return nil
	}
	switch {
	case c == '<':
		if b.pos < len(b.data) && b.data[b.pos] == '<' {
			b.pos++
			return keyword("<<")
		}
		return b.readHexString()
	case c == '>':
		if b.pos < len(b.data) && b.data[b.pos] == '>' {
			b.pos++
			return keyword(">>")
		}
		logger.Error("stray '>' in input")
		return keyword(">")
	case c == '(':
		return b.readLiteralString()
	case c == '[', c == ']', c == '{', c == '}':
		return keyword(string(c))
	case c == '/':
		return b.readName()
	case '0' <= c && c <= '9' || c == '+' || c == '-' || c == '.':
		b.unreadByte()
		return b.readNumber()
	case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '\'' || c == '"':
		b.unreadByte()
		return b.readKeyword()
	default:
		logger.Debug("unexpected byte in token stream", "byte", c)
		return keyword(string(c))
	}
}

func (b *buffer) readHexString() token {
	var raw bytes.Buffer
	for b.pos < len(b.data) && b.data[b.pos] != '>' {
		if !isSpace(b.data[b.pos]) {
			raw.WriteByte(b.data[b.pos])
		}
		b.pos++
	}
	if b.pos < len(b.data) {
		b.pos++ // consume '>'
	}
	h := raw.Bytes()
	if len(h)%2 == 1 {
		h = append(h, '0')
	}
	var out bytes.Buffer
	for i := 0; i+1 < len(h); i += 2 {
		hi, ok1 := unhex(h[i])
		lo, ok2 := unhex(h[i+1])
		if !ok1 || !ok2 {
			break
		}
		out.WriteByte(hi<<4 | lo)
	}
	return out.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (b *buffer) readLiteralString() token {
	var out bytes.Buffer
	depth := 1
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		b.pos++
		switch c {
		case '(':
			depth++
			out.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return out.String()
			}
			out.WriteByte(c)
		case '\\':
			if b.pos >= len(b.data) {
				return out.String()
			}
			e := b.data[b.pos]
			b.pos++
			switch e {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case 'b':
				out.WriteByte('\b')
			case 'f':
				out.WriteByte('\f')
			case '(', ')', '\\':
				out.WriteByte(e)
			case '\r':
				if b.pos < len(b.data) && b.data[b.pos] == '\n' {
					b.pos++
				}
				// line continuation: emit nothing
			case '\n':
				// line continuation: emit nothing
			default:
				if e >= '0' && e <= '7' {
					x := int(e - '0')
					for i := 0; i < 2 && b.pos < len(b.data); i++ {
						d := b.data[b.pos]
						if d < '0' || d > '7' {
							break
						}
						x = x*8 + int(d-'0')
						b.pos++
					}
					out.WriteByte(byte(x))
				} else {
					out.WriteByte(e)
				}
			}
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

func (b *buffer) readName() token {
	var out bytes.Buffer
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		if isSpace(c) || isDelim(c) {
			break
		}
		b.pos++
		if c == '#' && b.pos+1 < len(b.data) {
			hi, ok1 := unhex(b.data[b.pos])
			lo, ok2 := unhex(b.data[b.pos+1])
			if ok1 && ok2 {
				b.pos += 2
				out.WriteByte(hi<<4 | lo)
				continue
			}
		}
		out.WriteByte(c)
	}
	return name(out.String())
}

func (b *buffer) readNumber() token {
	start := b.pos
	if b.pos < len(b.data) && (b.data[b.pos] == '+' || b.data[b.pos] == '-') {
		b.pos++
	}
	isReal := false
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		if c == '.' {
			isReal = true
			b.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		b.pos++
	}
	s := string(b.data[start:b.pos])
	if isReal {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			logger.Debug("malformed real", "text", s)
			return keyword(s)
		}
		return f
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		logger.Debug("malformed integer", "text", s)
		return keyword(s)
	}
	return i
}

func (b *buffer) readKeyword() token {
	start := b.pos
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		if isSpace(c) || isDelim(c) {
			break
		}
		b.pos++
	}
	kw := keyword(b.data[start:b.pos])
	switch kw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return kw
}

// readObject reads the next complete object from the buffer: a scalar,
// name, string, array, dictionary, stream, indirect reference (N G R), or
// indirect definition (N G obj ... endobj).
func (b *buffer) readObject() object {
	tok := b.readToken()
	return b.readObjectAfter(tok)
}

func (b *buffer) readObjectAfter(tok token) object {
	switch t := tok.(type) {
	case nil, bool, float64, string, name:
		return t
	case int64:
		// Lookahead for "N G R" and "N G obj".
		tok2 := b.readToken()
		if g, ok := tok2.(int64); ok && t >= 0 && g >= 0 {
			tok3 := b.readToken()
			switch tok3 {
			case keyword("R"):
				return objptr{uint32(t), uint16(g)}
			case keyword("obj"):
				ptr := objptr{uint32(t), uint16(g)}
				obj := b.readObject()
				if d, ok := obj.(dict); ok {
					if strm, ok := b.readStreamAfterDict(ptr, d); ok {
						return objdef{ptr, strm}
					}
				}
				if tok := b.readToken(); tok != keyword("endobj") {
					b.unreadToken(tok)
				}
				return objdef{ptr, obj}
			}
			b.unreadToken(tok3)
		}
		b.unreadToken(tok2)
		return t
	case keyword:
		switch t {
		case "<<":
			d := make(dict)
			for {
				tok := b.readToken()
				if tok == keyword(">>") || tok == nil {
					break
				}
				k, ok := tok.(name)
				if !ok {
					logger.Debug("dictionary key is not a name", "token", objfmt(tok))
					b.readObjectAfter(tok) // consume and drop the stray value
					continue
				}
				d[k] = b.readObject()
			}
			return d
		case "[":
			var a array
			for {
				tok := b.readToken()
				if tok == keyword("]") || tok == nil {
					break
				}
				a = append(a, b.readObjectAfter(tok))
			}
			return a
		}
		return t
	}
	return tok
}

// readStreamAfterDict checks for the stream keyword following a dictionary
// and, if present, slices out the raw stream data. The data length comes
// from /Length, resolved through lengthOf when indirect; if the length
// cannot be resolved, the data is recovered by scanning for endstream.
func (b *buffer) readStreamAfterDict(ptr objptr, hdr dict) (stream, bool) {
	tok := b.readToken()
	if tok != keyword("stream") {
		b.unreadToken(tok)
		return stream{}, false
	}
	// The stream keyword is followed by CRLF or LF.
	if b.pos < len(b.data) && b.data[b.pos] == '\r' {
		b.pos++
	}
	if b.pos < len(b.data) && b.data[b.pos] == '\n' {
		b.pos++
	}
	start := b.pos

	length := int64(-1)
	switch n := hdr["Length"].(type) {
	case int64:
		length = n
	case objptr:
		if b.lengthOf != nil {
			if v, ok := b.lengthOf(n); ok {
				length = v
			}
		}
	}
	if length < 0 || start+int(length) > len(b.data) {
		// Recover by scanning for the endstream keyword.
		i := bytes.Index(b.data[start:], []byte("endstream"))
		if i < 0 {
			logger.Error("unterminated stream", "obj", ptr.id)
			return stream{hdr: hdr}, true
		}
		length = int64(i)
		// Trim the EOL that precedes endstream.
		for length > 0 && (b.data[start+int(length)-1] == '\n' || b.data[start+int(length)-1] == '\r') {
			length--
		}
	}
	data := b.data[start : start+int(length)]
	b.pos = start + int(length)

	if tok := b.readToken(); tok != keyword("endstream") {
		b.unreadToken(tok)
	}
	if tok := b.readToken(); tok != keyword("endobj") {
		b.unreadToken(tok)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return stream{hdr: hdr, data: cp}, true
}
