package exif

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// Valid minimal PNG data for a 1x1 transparent pixel. PNG carries no EXIF
// block, so extraction must degrade to "no location".
var minimalPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, // 1x1 dimensions
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, // bit depth, color type, etc.
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41, // IDAT chunk start
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00, // compressed data
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, // compressed data end
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, // IEND chunk
	0x42, 0x60, 0x82,
}

func TestExtract_NoLocationOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
	}{
		{name: "empty input", bytes: nil},
		{name: "garbage input", bytes: []byte("definitely not an image")},
		{name: "image without EXIF", bytes: minimalPNG},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if loc := e.Extract(tt.bytes); loc != nil {
				t.Errorf("expected nil location, got %+v", loc)
			}
		})
	}
}

// gpsTIFF builds a little-endian TIFF block whose IFD0 points at a GPS
// sub-IFD with the four coordinate tags. Rationals are numerator/denominator
// pairs; latCount lets a test shorten the latitude tag below the three
// components a coordinate needs.
func gpsTIFF(latRef, lonRef string, latCount uint32, lat, lon [3][2]uint32) []byte {
	le := binary.LittleEndian
	buf := make([]byte, 128)

	copy(buf[0:], "II")
	le.PutUint16(buf[2:], 42)
	le.PutUint32(buf[4:], 8) // IFD0 offset

	// IFD0: a single pointer to the GPS sub-IFD
	le.PutUint16(buf[8:], 1)
	le.PutUint16(buf[10:], 0x8825) // GPSInfo pointer
	le.PutUint16(buf[12:], 4)      // LONG
	le.PutUint32(buf[14:], 1)
	le.PutUint32(buf[18:], 26) // GPS IFD offset
	le.PutUint32(buf[22:], 0)  // no next IFD

	entry := func(off int, tag, typ uint16, count, value uint32) {
		le.PutUint16(buf[off:], tag)
		le.PutUint16(buf[off+2:], typ)
		le.PutUint32(buf[off+4:], count)
		le.PutUint32(buf[off+8:], value)
	}

	le.PutUint16(buf[26:], 4)          // GPS IFD entry count
	entry(28, 0x0001, 2, 2, 0)         // GPSLatitudeRef, ASCII inline
	copy(buf[36:], latRef)
	entry(40, 0x0002, 5, latCount, 80) // GPSLatitude, rationals at 80
	entry(52, 0x0003, 2, 2, 0)         // GPSLongitudeRef, ASCII inline
	copy(buf[60:], lonRef)
	entry(64, 0x0004, 5, 3, 104) // GPSLongitude, rationals at 104
	le.PutUint32(buf[76:], 0)    // no next IFD

	for i, r := range lat {
		le.PutUint32(buf[80+8*i:], r[0])
		le.PutUint32(buf[84+8*i:], r[1])
	}
	for i, r := range lon {
		le.PutUint32(buf[104+8*i:], r[0])
		le.PutUint32(buf[108+8*i:], r[1])
	}
	return buf
}

// gpsJPEG wraps the TIFF block in a JPEG APP1 segment the way cameras embed it.
func gpsJPEG(latRef, lonRef string, latCount uint32, lat, lon [3][2]uint32) []byte {
	payload := append([]byte("Exif\x00\x00"), gpsTIFF(latRef, lonRef, latCount, lat, lon)...)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1}) // SOI, APP1 marker
	length := make([]byte, 2)
	binary.BigEndian.PutUint16(length, uint16(len(payload)+2))
	buf.Write(length)
	buf.Write(payload)
	buf.Write([]byte{0xFF, 0xD9}) // EOI
	return buf.Bytes()
}

func TestExtract_EmbeddedGPS(t *testing.T) {
	tests := []struct {
		name     string
		image    []byte
		lat, lon float64
	}{
		{
			name: "north west",
			// 37 deg 46' 29.64" N, 122 deg 25' 9.84" W
			image: gpsJPEG("N\x00", "W\x00", 3,
				[3][2]uint32{{37, 1}, {46, 1}, {2964, 100}},
				[3][2]uint32{{122, 1}, {25, 1}, {984, 100}}),
			lat: 37.7749,
			lon: -122.4194,
		},
		{
			name: "south east",
			// 33 deg 52' 7.68" S, 151 deg 12' 33.48" E
			image: gpsJPEG("S\x00", "E\x00", 3,
				[3][2]uint32{{33, 1}, {52, 1}, {768, 100}},
				[3][2]uint32{{151, 1}, {12, 1}, {3348, 100}}),
			lat: -33.8688,
			lon: 151.2093,
		},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := e.Extract(tt.image)
			if loc == nil {
				t.Fatal("expected a location from embedded GPS tags, got nil")
			}
			if math.Abs(loc.Latitude-tt.lat) > 1e-6 || math.Abs(loc.Longitude-tt.lon) > 1e-6 {
				t.Errorf("expected (%g, %g), got (%g, %g)", tt.lat, tt.lon, loc.Latitude, loc.Longitude)
			}
		})
	}
}

func TestExtract_MalformedGPSDegradesToNoLocation(t *testing.T) {
	valid := [3][2]uint32{{37, 1}, {46, 1}, {2964, 100}}
	tests := []struct {
		name  string
		image []byte
	}{
		{
			name: "zero denominator rational",
			image: gpsJPEG("N\x00", "W\x00", 3,
				[3][2]uint32{{37, 1}, {46, 0}, {0, 1}}, valid),
		},
		{
			name:  "latitude tag short of three components",
			image: gpsJPEG("N\x00", "W\x00", 2, valid, valid),
		},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if loc := e.Extract(tt.image); loc != nil {
				t.Errorf("expected nil location for malformed GPS data, got %+v", loc)
			}
		})
	}
}

func TestDecimalDegrees(t *testing.T) {
	tests := []struct {
		name    string
		d, m, s float64
		expect  float64
	}{
		{name: "whole degrees", d: 37, m: 0, s: 0, expect: 37},
		{name: "degrees and minutes", d: 37, m: 30, s: 0, expect: 37.5},
		{name: "full DMS", d: 37, m: 46, s: 29.64, expect: 37.7749},
		{name: "zero", d: 0, m: 0, s: 0, expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decimalDegrees(tt.d, tt.m, tt.s)
			if math.Abs(got-tt.expect) > 1e-6 {
				t.Errorf("decimalDegrees(%g, %g, %g) = %g, expected %g", tt.d, tt.m, tt.s, got, tt.expect)
			}
		})
	}
}

func TestApplyHemisphere(t *testing.T) {
	tests := []struct {
		name        string
		deg         float64
		ref         string
		negativeRef string
		expect      float64
	}{
		{name: "north stays positive", deg: 37.7749, ref: "N", negativeRef: "S", expect: 37.7749},
		{name: "south negates", deg: 33.8688, ref: "S", negativeRef: "S", expect: -33.8688},
		{name: "east stays positive", deg: 151.2093, ref: "E", negativeRef: "W", expect: 151.2093},
		{name: "west negates", deg: 122.4194, ref: "W", negativeRef: "W", expect: -122.4194},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyHemisphere(tt.deg, tt.ref, tt.negativeRef); got != tt.expect {
				t.Errorf("applyHemisphere(%g, %q) = %g, expected %g", tt.deg, tt.ref, got, tt.expect)
			}
		})
	}
}
