// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// The raw object types mirror the PDF object model. A parsed document is a
// graph of these values; indirect references are objptr values that index
// into the owning Document's object table.
type (
	name    string
	dict    map[name]object
	array   []object
	keyword string
	object  interface{}
)

// An objptr identifies an indirect object: object number plus generation.
type objptr struct {
	id  uint32
	gen uint16
}

// An objdef is the body of an indirect object definition (N G obj ... endobj).
type objdef struct {
	ptr objptr
	obj object
}

// A stream carries its header dictionary and the raw (still encoded) data
// bytes. Data is kept encoded so that serialization preserves the original
// filters byte for byte.
type stream struct {
	hdr  dict
	data []byte
}

// A Value is a single PDF value, such as an integer, dictionary, or array,
// bound to the Document it was read from so that indirect references
// resolve transparently. The zero Value is a PDF null.
type Value struct {
	d    *Document
	ptr  objptr
	data object
}

// A ValueKind specifies the kind of data underlying a Value.
type ValueKind int

// The PDF value kinds.
const (
	Null ValueKind = iota
	Bool
	Integer
	Real
	String
	Name
	Dict
	Array
	Stream
)

// IsNull reports whether the value is a null. It is equivalent to Kind() == Null.
func (v Value) IsNull() bool {
	return v.data == nil
}

// Kind reports the kind of value underlying v.
func (v Value) Kind() ValueKind {
	switch v.data.(type) {
	default:
		return Null
	case bool:
		return Bool
	case int64:
		return Integer
	case float64:
		return Real
	case string:
		return String
	case name:
		return Name
	case dict:
		return Dict
	case array:
		return Array
	case stream:
		return Stream
	}
}

// String returns a textual representation of the value v.
// Note that String is not the accessor for values with Kind() == String;
// use RawString for those.
func (v Value) String() string {
	return objfmt(v.data)
}

// Bool returns v's boolean value.
// If v.Kind() != Bool, Bool returns false.
func (v Value) Bool() bool {
	x, ok := v.data.(bool)
	if !ok {
		return false
	}
	return x
}

// Int64 returns v's int64 value.
// If v.Kind() != Integer, Int64 returns 0.
func (v Value) Int64() int64 {
	x, ok := v.data.(int64)
	if !ok {
		return 0
	}
	return x
}

// Float64 returns v's float64 value, converting from integer if necessary.
// If v.Kind() != Real and v.Kind() != Integer, Float64 returns 0.
func (v Value) Float64() float64 {
	x, ok := v.data.(float64)
	if !ok {
		i, ok := v.data.(int64)
		if ok {
			return float64(i)
		}
		return 0
	}
	return x
}

// RawString returns v's string value.
// If v.Kind() != String, RawString returns the empty string.
func (v Value) RawString() string {
	x, ok := v.data.(string)
	if !ok {
		return ""
	}
	return x
}

// Text returns v's string value interpreted as a text string (defined in the
// PDF spec) and converted to UTF-8.
// If v.Kind() != String, Text returns the empty string.
func (v Value) Text() string {
	x, ok := v.data.(string)
	if !ok {
		return ""
	}
	if isUTF16(x) {
		return utf16Decode(x[2:])
	}
	return x
}

// Name returns v's name value without the leading slash:
// if v corresponds to the name written using the syntax /Helvetica,
// Name() == "Helvetica".
// If v.Kind() != Name, Name returns the empty string.
func (v Value) Name() string {
	x, ok := v.data.(name)
	if !ok {
		return ""
	}
	return string(x)
}

// Key returns the value associated with the given name key in the dictionary v.
// Like the result of the Name method, the key should not include a leading slash.
// If v is a stream, Key applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Key returns a null Value.
func (v Value) Key(key string) Value {
	x, ok := v.data.(dict)
	if !ok {
		strm, ok := v.data.(stream)
		if !ok {
			return Value{}
		}
		x = strm.hdr
	}
	return v.d.wrap(v.ptr, x[name(key)])
}

// Keys returns a sorted list of the keys in the dictionary v.
// If v is a stream, Keys applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Keys returns nil.
func (v Value) Keys() []string {
	x, ok := v.data.(dict)
	if !ok {
		strm, ok := v.data.(stream)
		if !ok {
			return nil
		}
		x = strm.hdr
	}
	keys := []string{}
	for k := range x {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Index returns the i'th element in the array v.
// If v.Kind() != Array or if i is outside the array bounds,
// Index returns a null Value.
func (v Value) Index(i int) Value {
	x, ok := v.data.(array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	return v.d.wrap(v.ptr, x[i])
}

// Len returns the length of the array v.
// If v.Kind() != Array, Len returns 0.
func (v Value) Len() int {
	x, ok := v.data.(array)
	if !ok {
		return 0
	}
	return len(x)
}

func objfmt(x object) string {
	switch x := x.(type) {
	default:
		return fmt.Sprint(x)
	case nil:
		return "null"
	case string:
		if isUTF16(x) {
			return strconv.Quote(utf16Decode(x[2:]))
		}
		return strconv.Quote(x)
	case name:
		return "/" + string(x)
	case dict:
		var keys []string
		for k := range x {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteString("<<")
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString("/")
			buf.WriteString(k)
			buf.WriteString(" ")
			buf.WriteString(objfmt(x[name(k)]))
		}
		buf.WriteString(">>")
		return buf.String()
	case array:
		var buf bytes.Buffer
		buf.WriteString("[")
		for i, elem := range x {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString("]")
		return buf.String()
	case stream:
		return fmt.Sprintf("%v+%d bytes", objfmt(x.hdr), len(x.data))
	case objptr:
		return fmt.Sprintf("%d %d R", x.id, x.gen)
	case objdef:
		return fmt.Sprintf("{%d %d obj}%v", x.ptr.id, x.ptr.gen, objfmt(x.obj))
	}
}

func isUTF16(s string) bool {
	return len(s) >= 2 && s[0] == 0xfe && s[1] == 0xff && len(s)%2 == 0
}

// utf16Decode interprets s as big-endian UTF-16 and converts it to UTF-8.
func utf16Decode(s string) string {
	var r []rune
	for i := 0; i+1 < len(s); i += 2 {
		c := rune(s[i])<<8 | rune(s[i+1])
		if 0xd800 <= c && c < 0xdc00 && i+3 < len(s) {
			c2 := rune(s[i+2])<<8 | rune(s[i+3])
			if 0xdc00 <= c2 && c2 < 0xe000 {
				c = ((c - 0xd800) << 10) | (c2 - 0xdc00) + 0x10000
				i += 2
			}
		}
		r = append(r, c)
	}
	return string(r)
}
