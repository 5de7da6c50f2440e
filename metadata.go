// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"encoding/xml"
	"strings"

	"github.com/prepatools/collepdf/logger"
)

// Meta is the unified metadata model (Info + XMP fields).
type Meta struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
}

// Minimal XML models to pull common XMP fields in a namespace
type xmpPacket struct {
	XMLName xml.Name `xml:"xmpmeta"`
	RDF     rdfRDF   `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
}

type rdfRDF struct {
	Descriptions []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
}

type rdfDescription struct {
	// dc:title / dc:description (rdf:Alt)
	Title       altString `xml:"http://purl.org/dc/elements/1.1/ title"`
	Description altString `xml:"http://purl.org/dc/elements/1.1/ description"`

	// dc:creator (rdf:Seq)
	Creator seqString `xml:"http://purl.org/dc/elements/1.1/ creator"`

	// pdf namespace
	PDFProducer string `xml:"http://ns.adobe.com/pdf/1.3/ Producer"`

	// xmp namespace
	XMPCreatorTool string `xml:"http://ns.adobe.com/xap/1.0/ CreatorTool"`
	XMPCreateDate  string `xml:"http://ns.adobe.com/xap/1.0/ CreateDate"`
	XMPModifyDate  string `xml:"http://ns.adobe.com/xap/1.0/ ModifyDate"`
}

type altString struct {
	Alt struct {
		LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Alt"`
}

func (a altString) First() string {
	if len(a.Alt.LI) > 0 {
		return strings.TrimSpace(a.Alt.LI[0])
	}
	return ""
}

type seqString struct {
	Seq struct {
		LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Seq"`
}

func (s seqString) First() string {
	if len(s.Seq.LI) > 0 {
		return strings.TrimSpace(s.Seq.LI[0])
	}
	return ""
}

type xmpFields struct {
	Title, Creator, Subject, CreatorTool, Producer, CreateDate, ModifyDate string
}

// prefer returns a if non-empty after trimming, otherwise b.
func prefer(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// InfoDict returns the raw /Info dictionary as a Value (may be Null).
func (d *Document) InfoDict() Value {
	return d.Trailer().Key("Info")
}

// readInfo extracts metadata stored in the document's /Info dictionary.
func (d *Document) readInfo() Meta {
	info := d.InfoDict()
	return Meta{
		Title:        info.Key("Title").Text(),
		Author:       info.Key("Author").Text(),
		Subject:      info.Key("Subject").Text(),
		Creator:      info.Key("Creator").Text(),
		Producer:     info.Key("Producer").Text(),
		CreationDate: info.Key("CreationDate").Text(),
		ModDate:      info.Key("ModDate").Text(),
	}
}

// readXMP returns the raw XMP XML from /Root/Metadata (empty string if absent).
func (d *Document) readXMP() (string, error) {
	md := d.Trailer().Key("Root").Key("Metadata")
	if md.Kind() != Stream {
		return "", nil
	}
	logger.Debug("found XMP stream", true)
	st, ok := md.data.(stream)
	if !ok {
		return "", nil
	}
	b, err := d.decodeStream(st)
	if err != nil {
		logger.Error("failed to decode XMP stream", "err", err)
		return "", err
	}
	return string(b), nil
}

// parseXMPWithXML tries to parse XMP XML using encoding/xml into xmpPacket.
func parseXMPWithXML(x string) (xmpFields, bool) {
	var pkt xmpPacket
	dec := xml.NewDecoder(strings.NewReader(x))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	if err := dec.Decode(&pkt); err != nil {
		return xmpFields{}, false
	}

	var f xmpFields
	for _, d := range pkt.RDF.Descriptions {
		if t := d.Title.First(); t != "" {
			f.Title = t
		}
		if c := d.Creator.First(); c != "" {
			f.Creator = c
		}
		if s := d.Description.First(); s != "" {
			f.Subject = s
		}
		if p := strings.TrimSpace(d.PDFProducer); p != "" {
			f.Producer = p
		}
		if ct := strings.TrimSpace(d.XMPCreatorTool); ct != "" {
			f.CreatorTool = ct
		}
		if cd := strings.TrimSpace(d.XMPCreateDate); cd != "" {
			f.CreateDate = cd
		}
		if md := strings.TrimSpace(d.XMPModifyDate); md != "" {
			f.ModifyDate = md
		}
	}
	return f, true
}

// parseXMPFallback performs a simple tag-search fallback if XML parsing fails.
func parseXMPFallback(xmp string) xmpFields {
	get := func(cands ...string) string {
		for _, t := range cands {
			open, close := "<"+t+">", "</"+t+">"
			if i := strings.Index(xmp, open); i >= 0 {
				if j := strings.Index(xmp[i+len(open):], close); j >= 0 {
					return strings.TrimSpace(stripXMLTags(xmp[i+len(open) : i+len(open)+j]))
				}
			}
		}
		return ""
	}
	return xmpFields{
		Title:       get("dc:title", "pdf:Title", "xmp:Title", "rdf:li"),
		Creator:     get("dc:creator", "pdf:Author", "xmp:Author", "rdf:li"),
		Subject:     get("dc:description", "pdf:Subject"),
		CreatorTool: get("xmp:CreatorTool"),
		Producer:    get("pdf:Producer"),
		CreateDate:  get("xmp:CreateDate"),
		ModifyDate:  get("xmp:ModifyDate"),
	}
}

// stripXMLTags removes simple XML tags from a string.
func stripXMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// Metadata returns unified metadata with XMP taking precedence over /Info.
func (d *Document) Metadata() (Meta, error) {
	info := d.readInfo()

	xmpXML, err := d.readXMP()
	if err != nil {
		return Meta{}, err
	}

	var xf xmpFields
	if xmpXML != "" {
		if got, ok := parseXMPWithXML(xmpXML); ok {
			xf = got
		} else {
			xf = parseXMPFallback(xmpXML)
		}
	}

	return Meta{
		Title:        prefer(xf.Title, info.Title),
		Author:       prefer(xf.Creator, info.Author),
		Subject:      prefer(xf.Subject, info.Subject),
		Creator:      prefer(xf.CreatorTool, info.Creator),
		Producer:     prefer(xf.Producer, info.Producer),
		CreationDate: prefer(xf.CreateDate, info.CreationDate),
		ModDate:      prefer(xf.ModifyDate, info.ModDate),
	}, nil
}

// IsEncrypted reports whether the document is encrypted. Encrypted
// documents parse, but their streams cannot be decoded.
func (d *Document) IsEncrypted() bool {
	return d.Trailer().Key("Encrypt").Kind() == Dict
}
