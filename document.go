// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package collepdf assembles "fat" colle-program PDFs: it scans a program
// document for CCINP-style exercise references, fetches the matching
// exercise document, and splices its pages onto the end of the program.
//
// # Overview
//
// A PDF document is a graph of values: integers, reals, booleans, names,
// strings, dictionaries, arrays, and streams, connected by indirect
// references. The Document type holds that graph in a mutable in-memory
// object table so pages can be copied between documents without corrupting
// shared references. On top of the table sit three operations:
//
//	ExtractExerciseNumbers scans rendered page text for marker tokens.
//	GraftMap copies object graphs between documents, preserving identity.
//	MergeDocuments appends one document's pages to another.
//
// Pipeline ties the operations together for one unit of work, and Batch
// runs many independent units with pacing and failure isolation.
//
// A Document is not safe for concurrent use; each pipeline run owns its
// documents exclusively.
package collepdf

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/prepatools/collepdf/logger"
)

// maxObjects is the largest permitted object number (ISO 32000-1 annex C).
// Allocation past it fails rather than emitting an unloadable file.
const maxObjects = 8388607

// A Document is a mutable in-memory PDF: an object table indexed by object
// number plus the trailer dictionary. Documents are parsed from raw bytes,
// mutated in place, and serialized with MarshalBinary or Save.
type Document struct {
	version string
	objs    []object // objs[0] unused; objs[id] == nil means a free slot
	trailer dict
}

// NewDocument returns an empty document: a catalog and an empty page tree.
func NewDocument() *Document {
	d := &Document{version: "1.7", objs: make([]object, 1)}
	pages, _ := d.addObject(dict{"Type": name("Pages"), "Kids": array{}, "Count": int64(0)})
	root, _ := d.addObject(dict{"Type": name("Catalog"), "Pages": pages})
	d.trailer = dict{"Root": root}
	return d
}

var objHeader = regexp.MustCompile(`(?m)^(\d{1,9})[ \t]+(\d{1,5})[ \t]+obj\b`)

// ParseDocument parses raw PDF bytes into a Document. The cross-reference
// table drives object loading when present and sane; otherwise the file is
// scanned for object definitions, which also recovers documents whose only
// cross-reference is a stream.
func ParseDocument(data []byte) (*Document, error) {
	version, err := checkHeader(data)
	if err != nil {
		return nil, err
	}
	if err := checkEOFMarker(data); err != nil {
		return nil, err
	}

	d := &Document{version: version, objs: make([]object, 1)}

	offsets, trailer, err := readXrefChain(data)
	if err != nil {
		logger.Debug("xref unusable, scanning for objects", "err", err)
		offsets, trailer, err = scanObjects(data)
		if err != nil {
			return nil, err
		}
	}
	d.trailer = trailer

	if err := d.loadObjects(data, offsets); err != nil {
		return nil, err
	}
	if err := d.loadObjectStreams(); err != nil {
		return nil, err
	}

	if _, ok := d.trailer["Root"].(objptr); !ok {
		// Trailer lost or never present: locate the catalog directly.
		root, ok := d.findCatalog()
		if !ok {
			return nil, &ParseError{"no document catalog"}
		}
		d.trailer["Root"] = root
	}
	logger.Debug("document parsed", "objects", len(d.objs)-1, true)
	return d, nil
}

// checkHeader validates the %PDF-x.y header, tolerating a BOM or junk
// before the marker, and returns the version.
func checkHeader(data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ParseError{"empty input"}
	}
	limit := len(data)
	if limit > 1024 {
		limit = 1024
	}
	p := bytes.Index(data[:limit], []byte("%PDF-"))
	if p < 0 {
		return "", &ParseError{"missing %PDF- header"}
	}
	line := data[p:]
	if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimRight(line, " \t\x00")
	var major, minor int
	if _, err := fmt.Sscanf(string(line), "%%PDF-%d.%d", &major, &minor); err != nil {
		return "", &ParseError{"malformed version in header"}
	}
	if !(major == 1 && minor >= 0 && minor <= 7 || major == 2 && minor == 0) {
		return "", &ParseError{fmt.Sprintf("unsupported PDF version %d.%d", major, minor)}
	}
	return fmt.Sprintf("%d.%d", major, minor), nil
}

// checkEOFMarker requires %%EOF within the last chunk of the file.
func checkEOFMarker(data []byte) error {
	tail := data
	if len(tail) > 100 {
		tail = tail[len(tail)-100:]
	}
	tail = bytes.TrimRight(tail, "\r\n\t \x00")
	if !bytes.HasSuffix(tail, []byte("%%EOF")) {
		return &ParseError{"missing %%EOF marker"}
	}
	return nil
}

// findStartXref locates the final startxref pointer near the end of file.
func findStartXref(data []byte) (int64, error) {
	tail := data
	base := 0
	if len(tail) > 512 {
		base = len(tail) - 512
		tail = tail[base:]
	}
	i := bytes.LastIndex(tail, []byte("startxref"))
	if i < 0 {
		return 0, &ParseError{"missing final startxref"}
	}
	b := newBuffer(data, base+i)
	if tok := b.readToken(); tok != keyword("startxref") {
		return 0, &ParseError{"missing final startxref"}
	}
	off, ok := b.readToken().(int64)
	if !ok || off < 0 || off >= int64(len(data)) {
		return 0, &ParseError{"startxref offset out of range"}
	}
	return off, nil
}

// readXrefChain reads the classic cross-reference table at startxref and
// every /Prev table behind it, returning object offsets keyed by object
// number and the newest trailer. Cross-reference streams are not handled
// here; the caller falls back to a full scan for those.
func readXrefChain(data []byte) (map[uint32]int64, dict, error) {
	start, err := findStartXref(data)
	if err != nil {
		return nil, nil, err
	}
	offsets := make(map[uint32]int64)
	var newest dict
	seen := make(map[int64]bool)
	for off := start; ; {
		if seen[off] {
			return nil, nil, &ParseError{"circular xref chain"}
		}
		seen[off] = true
		b := newBuffer(data, int(off))
		if tok := b.readToken(); tok != keyword("xref") {
			return nil, nil, &ParseError{"cross-reference table not found at startxref"}
		}
		trailer, err := readXrefSection(b, offsets)
		if err != nil {
			return nil, nil, err
		}
		if newest == nil {
			newest = trailer
		}
		prev, ok := trailer["Prev"].(int64)
		if !ok {
			break
		}
		off = prev
	}
	return offsets, newest, nil
}

// readXrefSection parses one xref table plus its trailer dictionary.
// Entries already present in offsets win: newer sections are read first.
func readXrefSection(b *buffer, offsets map[uint32]int64) (dict, error) {
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			break
		}
		start, ok1 := tok.(int64)
		count, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || count < 0 {
			return nil, &ParseError{"malformed xref subsection header"}
		}
		for i := int64(0); i < count; i++ {
			off, okOff := b.readToken().(int64)
			_, okGen := b.readToken().(int64)
			alloc, okAlloc := b.readToken().(keyword)
			if !okOff || !okGen || !okAlloc {
				return nil, &ParseError{"malformed xref entry"}
			}
			id := uint32(start + i)
			switch alloc {
			case "n":
				if _, exists := offsets[id]; !exists && id != 0 {
					offsets[id] = off
				}
			case "f":
				// free entry: nothing to record
			default:
				return nil, &ParseError{"unexpected xref entry type " + string(alloc)}
			}
		}
	}
	trailer, ok := b.readObject().(dict)
	if !ok {
		return nil, &ParseError{"xref table not followed by trailer dictionary"}
	}
	return trailer, nil
}

// scanObjects recovers object offsets by scanning the whole file for
// "N G obj" headers. The last definition of an object number wins, which
// matches incremental-update semantics. The newest trailer dictionary is
// picked up on the way when one exists.
func scanObjects(data []byte) (map[uint32]int64, dict, error) {
	offsets := make(map[uint32]int64)
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		var id uint32
		var gen int
		fmt.Sscanf(string(data[m[2]:m[3]]), "%d", &id)
		fmt.Sscanf(string(data[m[4]:m[5]]), "%d", &gen)
		if id == 0 {
			continue
		}
		offsets[id] = int64(m[2])
	}
	if len(offsets) == 0 {
		return nil, nil, &ParseError{"no objects found"}
	}

	trailer := dict{}
	for i := 0; ; {
		j := bytes.Index(data[i:], []byte("trailer"))
		if j < 0 {
			break
		}
		b := newBuffer(data, i+j+len("trailer"))
		if t, ok := b.readObject().(dict); ok {
			trailer = t
		}
		i += j + 1
	}
	return offsets, trailer, nil
}

// loadObjects materializes every referenced object into the table.
// Indirect /Length values are resolved against the offset map so stream
// data can be sliced before the whole table exists.
func (d *Document) loadObjects(data []byte, offsets map[uint32]int64) error {
	lengthOf := func(p objptr) (int64, bool) {
		off, ok := offsets[p.id]
		if !ok || off < 0 || off >= int64(len(data)) {
			return 0, false
		}
		b := newBuffer(data, int(off))
		def, ok := b.readObject().(objdef)
		if !ok {
			return 0, false
		}
		n, ok := def.obj.(int64)
		return n, ok
	}
	for id, off := range offsets {
		if off < 0 || off >= int64(len(data)) {
			logger.Debug("xref offset out of range", "obj", id)
			continue
		}
		b := newBuffer(data, int(off))
		b.lengthOf = lengthOf
		def, ok := b.readObject().(objdef)
		if !ok || def.ptr.id != id {
			logger.Debug("object not found at recorded offset", "obj", id)
			continue
		}
		d.grow(id)
		d.objs[id] = def.obj
	}
	return nil
}

// loadObjectStreams expands /Type /ObjStm streams so objects stored inside
// them become addressable table entries. Slots already filled by
// file-level definitions are left alone.
func (d *Document) loadObjectStreams() error {
	for id := 1; id < len(d.objs); id++ {
		strm, ok := d.objs[id].(stream)
		if !ok || strm.hdr["Type"] != name("ObjStm") {
			continue
		}
		data, err := d.decodeStream(strm)
		if err != nil {
			logger.Error("cannot decode object stream", "obj", id, "err", err)
			continue
		}
		n, _ := d.resolve(strm.hdr["N"]).(int64)
		first, _ := d.resolve(strm.hdr["First"]).(int64)
		if n <= 0 || first <= 0 || first > int64(len(data)) {
			continue
		}
		hdr := newBuffer(data[:first], 0)
		for i := int64(0); i < n; i++ {
			oid, ok1 := hdr.readToken().(int64)
			off, ok2 := hdr.readToken().(int64)
			if !ok1 || !ok2 || oid <= 0 || first+off > int64(len(data)) {
				break
			}
			if int(oid) < len(d.objs) && d.objs[oid] != nil {
				continue
			}
			b := newBuffer(data, int(first+off))
			d.grow(uint32(oid))
			d.objs[oid] = b.readObject()
		}
	}
	return nil
}

// findCatalog scans the object table for a /Type /Catalog dictionary.
func (d *Document) findCatalog() (objptr, bool) {
	for id := 1; id < len(d.objs); id++ {
		if dd, ok := d.objs[id].(dict); ok && dd["Type"] == name("Catalog") {
			return objptr{uint32(id), 0}, true
		}
	}
	return objptr{}, false
}

func (d *Document) grow(id uint32) {
	for uint32(len(d.objs)) <= id {
		d.objs = append(d.objs, nil)
	}
}

// object returns the table entry for ptr.
func (d *Document) object(ptr objptr) (object, bool) {
	if ptr.id == 0 || int(ptr.id) >= len(d.objs) {
		return nil, false
	}
	obj := d.objs[ptr.id]
	if obj == nil {
		return nil, false
	}
	return obj, true
}

// resolve follows indirect references until a direct value is reached.
// Unresolvable references resolve to null, like the Value accessors.
func (d *Document) resolve(x object) object {
	for i := 0; i < 32; i++ {
		ptr, ok := x.(objptr)
		if !ok {
			return x
		}
		x, ok = d.object(ptr)
		if !ok {
			return nil
		}
	}
	logger.Error("reference chain too deep")
	return nil
}

func (d *Document) wrap(parent objptr, x object) Value {
	if ptr, ok := x.(objptr); ok {
		obj, ok := d.object(ptr)
		if !ok {
			return Value{}
		}
		return Value{d, ptr, obj}
	}
	return Value{d, parent, x}
}

// Trailer returns the document's trailer dictionary as a Value.
func (d *Document) Trailer() Value {
	return Value{d, objptr{}, d.trailer}
}

// Version returns the document's header version, e.g. "1.7".
func (d *Document) Version() string { return d.version }

// allocObject reserves a fresh object slot and returns its pointer.
func (d *Document) allocObject() (objptr, error) {
	id := uint32(len(d.objs))
	if id > maxObjects {
		return objptr{}, &GraftError{Reason: "object table full"}
	}
	d.objs = append(d.objs, nil)
	return objptr{id, 0}, nil
}

func (d *Document) setObject(ptr objptr, obj object) {
	d.grow(ptr.id)
	d.objs[ptr.id] = obj
}

// addObject registers obj as a new indirect object and returns its pointer.
func (d *Document) addObject(obj object) (objptr, error) {
	ptr, err := d.allocObject()
	if err != nil {
		return objptr{}, err
	}
	d.setObject(ptr, obj)
	return ptr, nil
}

// pagesNode returns the pointer to the root /Pages node and its dictionary.
func (d *Document) pagesNode() (objptr, dict, error) {
	root, ok := d.trailer["Root"].(objptr)
	if !ok {
		return objptr{}, nil, &ParseError{"trailer has no /Root reference"}
	}
	catalog, ok := d.resolve(root).(dict)
	if !ok {
		return objptr{}, nil, &ParseError{"document catalog is not a dictionary"}
	}
	ptr, ok := catalog["Pages"].(objptr)
	if !ok {
		return objptr{}, nil, &ParseError{"catalog has no /Pages reference"}
	}
	node, ok := d.resolve(ptr).(dict)
	if !ok {
		return objptr{}, nil, &ParseError{"page tree root is not a dictionary"}
	}
	return ptr, node, nil
}

// pagePtrs returns the leaf /Page objects in document order. The walk is
// iterative over an explicit stack and guards against cyclic /Kids.
func (d *Document) pagePtrs() ([]objptr, error) {
	rootPtr, _, err := d.pagesNode()
	if err != nil {
		return nil, err
	}
	var out []objptr
	visited := make(map[objptr]bool)
	stack := []objptr{rootPtr}
	for len(stack) > 0 {
		ptr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[ptr] {
			continue
		}
		visited[ptr] = true
		node, ok := d.resolve(ptr).(dict)
		if !ok {
			continue
		}
		switch node["Type"] {
		case name("Page"):
			out = append(out, ptr)
		case name("Pages"):
			kids, _ := d.resolve(node["Kids"]).(array)
			// Push in reverse so document order pops first.
			for i := len(kids) - 1; i >= 0; i-- {
				if kp, ok := kids[i].(objptr); ok {
					stack = append(stack, kp)
				}
			}
		}
	}
	return out, nil
}

// NumPage returns the number of pages in the document.
func (d *Document) NumPage() int {
	ptrs, err := d.pagePtrs()
	if err != nil {
		return 0
	}
	return len(ptrs)
}

// Page returns the page for the given page number as a Value.
// Page numbers are indexed starting at 1, not 0.
// If the page is not found, the returned Value is null.
func (d *Document) Page(num int) Value {
	ptrs, err := d.pagePtrs()
	if err != nil || num < 1 || num > len(ptrs) {
		return Value{}
	}
	return d.wrap(objptr{}, ptrs[num-1])
}

// inheritedRaw looks up key on the page dictionary at ptr, walking the
// /Parent chain for inheritable attributes. The result is the raw table
// entry — indirect references are not resolved, so reference identity is
// preserved for grafting.
func (d *Document) inheritedRaw(ptr objptr, key name) (object, bool) {
	visited := make(map[objptr]bool)
	for !visited[ptr] {
		visited[ptr] = true
		node, ok := d.resolve(ptr).(dict)
		if !ok {
			return nil, false
		}
		if v, ok := node[key]; ok && v != nil {
			return v, true
		}
		ptr, ok = node["Parent"].(objptr)
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

// appendPage registers an already-added page object at the end of the page
// sequence: it is appended to the root Kids, the root Count is bumped, and
// the page's Parent is pointed back at the root node.
func (d *Document) appendPage(ptr objptr) error {
	nodePtr, node, err := d.pagesNode()
	if err != nil {
		return err
	}
	kids, ok := d.resolve(node["Kids"]).(array)
	if node["Kids"] != nil && !ok {
		return &ParseError{"page tree /Kids is not an array"}
	}
	node["Kids"] = append(kids, ptr)
	count, _ := d.resolve(node["Count"]).(int64)
	node["Count"] = count + 1
	// The root node may itself be stored directly rather than via /Kids
	// mutation aliasing; write it back to be explicit.
	d.setObject(nodePtr, node)
	if page, ok := d.resolve(ptr).(dict); ok {
		page["Parent"] = nodePtr
	}
	return nil
}
