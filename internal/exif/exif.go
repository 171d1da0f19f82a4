// Package exif extracts an optional coordinate pair from embedded image
// metadata. Extraction never fails: absent or malformed GPS data degrades to
// "no location" and the caller proceeds without one.
package exif

import (
	"bytes"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"go-flower-classifier/internal/classification"
	"go-flower-classifier/internal/logger"
)

// LocationExtractor reads an optional location from raw image bytes.
type LocationExtractor interface {
	Extract(imageBytes []byte) *classification.Location
}

// Extractor is the EXIF-backed LocationExtractor.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract decodes the EXIF block and converts the GPS tags into decimal
// degrees. Returns nil when the block is missing, the GPS tags are incomplete,
// or the decoded values fall outside the valid coordinate ranges.
func (e *Extractor) Extract(imageBytes []byte) *classification.Location {
	x, err := goexif.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		// No EXIF block, or one we cannot parse. Not an error.
		return nil
	}

	lat, ok := axisDegrees(x, goexif.GPSLatitude, goexif.GPSLatitudeRef, "S")
	if !ok {
		return nil
	}
	lon, ok := axisDegrees(x, goexif.GPSLongitude, goexif.GPSLongitudeRef, "W")
	if !ok {
		return nil
	}

	loc := &classification.Location{Latitude: lat, Longitude: lon}
	if !loc.Valid() {
		logger.WithComponent("exif").WithFields(map[string]interface{}{
			"latitude":  lat,
			"longitude": lon,
		}).Warn("Discarding out-of-range GPS coordinates")
		return nil
	}
	return loc
}

// axisDegrees reads one coordinate axis: three degree/minute/second rationals
// plus the hemisphere reference tag that decides the sign.
func axisDegrees(x *goexif.Exif, valueTag, refTag goexif.FieldName, negativeRef string) (float64, bool) {
	tag, err := x.Get(valueTag)
	if err != nil {
		return 0, false
	}
	deg, ok := dmsToDegrees(tag)
	if !ok {
		return 0, false
	}

	ref, err := x.Get(refTag)
	if err != nil {
		return 0, false
	}
	refVal, err := ref.StringVal()
	if err != nil {
		return 0, false
	}
	return applyHemisphere(deg, refVal, negativeRef), true
}

// dmsToDegrees converts a three-rational degree/minute/second tag into decimal
// degrees. A short tag or a zero denominator makes the tag unusable.
func dmsToDegrees(tag *tiff.Tag) (float64, bool) {
	if tag.Count < 3 {
		return 0, false
	}
	var parts [3]float64
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		parts[i] = float64(num) / float64(den)
	}
	return decimalDegrees(parts[0], parts[1], parts[2]), true
}

// decimalDegrees combines degrees, minutes and seconds into one decimal value.
func decimalDegrees(d, m, s float64) float64 {
	return d + m/60.0 + s/3600.0
}

// applyHemisphere negates the value for the southern/western hemisphere.
// North and east stay positive.
func applyHemisphere(deg float64, ref, negativeRef string) float64 {
	if ref == negativeRef {
		return -deg
	}
	return deg
}
