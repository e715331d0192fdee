// Package gpx turns GPX documents into tracks and back.
//
// Parsing is lenient: every trkpt element is kept in document order whatever
// track or segment encloses it, a missing or unreadable coordinate becomes
// 0, and a document that is not well-formed XML yields an empty Track.
package gpx

import (
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"backend-cartorando/internal/track"

	"golang.org/x/net/html/charset"
)

// Parse converts GPX text into a Track. It never fails; see the package doc.
func Parse(xmlText string) track.Track {
	return ParseReader(strings.NewReader(xmlText))
}

// ParseReader is Parse over a stream.
func ParseReader(r io.Reader) track.Track {
	t, err := scan(r)
	if err != nil {
		return nil
	}
	return t
}

func scan(r io.Reader) (track.Track, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var out track.Track
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "trkpt" {
			continue
		}
		out = append(out, track.Coordinate{
			Lat: attrFloat(se.Attr, "lat"),
			Lng: attrFloat(se.Attr, "lon"),
		})
	}
}

func attrFloat(attrs []xml.Attr, name string) float64 {
	for _, a := range attrs {
		if a.Name.Local != name {
			continue
		}
		return leadingFloat(a.Value)
	}
	return 0
}

// leadingFloat reads the longest decimal number at the start of s, after
// leading space, and ignores whatever follows it: "45.83abc" is 45.83 and
// "0x1p4" is 0. No number, or a non-finite one, gives 0.
func leadingFloat(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	n := numberPrefix(s)
	if n == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// numberPrefix returns the length of the [+-]digits[.digits][e[+-]digits]
// prefix of s, or 0 when s does not start with a number.
func numberPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	return i
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
