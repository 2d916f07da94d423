// Package epg holds the XMLTV document model and its deterministic
// serializer.
package epg

import (
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"time"
)

// TV is the XMLTV root element.
type TV struct {
	XMLName      xml.Name    `xml:"tv"`
	Date         string      `xml:"date,attr,omitempty"`
	Generator    string      `xml:"generator-info-name,attr,omitempty"`
	GeneratorURL string      `xml:"generator-info-url,attr,omitempty"`
	Channels     []Channel   `xml:"channel"`
	Programmes   []Programme `xml:"programme"`
}

// Channel is one XMLTV channel element.
type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
	Icon        *Icon    `xml:"icon,omitempty"`
}

// Icon references a channel or programme image.
type Icon struct {
	Src    string `xml:"src,attr"`
	Width  int    `xml:"width,attr,omitempty"`
	Height int    `xml:"height,attr,omitempty"`
}

// Programme is one XMLTV programme element.
type Programme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   Title  `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

// Title carries the programme title with an optional language tag.
type Title struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// timeLayout is the XMLTV timestamp format: YYYYMMDDHHMMSS with explicit
// offset.
const timeLayout = "20060102150405 -0700"

// FormatTime renders an instant in the XMLTV timestamp format.
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// ParseTime parses an XMLTV timestamp back into an instant.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Encode serializes the document. Output is byte-deterministic for a given
// document: element order is the slice order and no ambient state leaks in.
func Encode(w io.Writer, tv *TV) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	// Trailing newline so the document ends like the previous generator's.
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return nil
}

// EncodeGzip serializes the document and gzip-compresses the identical bytes.
func EncodeGzip(w io.Writer, tv *TV) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	if err := Encode(gz, tv); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}

// maxXMLSize caps decoded documents to keep a corrupt file from exhausting
// memory.
const maxXMLSize = 50 * 1024 * 1024

// Decode parses an XMLTV document, for round-trip verification and tooling.
func Decode(r io.Reader) (*TV, error) {
	dec := xml.NewDecoder(io.LimitReader(r, maxXMLSize))
	dec.Strict = true
	// Disable entity expansion; guide files never use entities.
	dec.Entity = make(map[string]string)

	var doc TV
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode xmltv: %w", err)
	}
	return &doc, nil
}
