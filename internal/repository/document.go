package repository

import (
	"encoding/base64"
	"fmt"
	"time"

	"go-flower-classifier/internal/classification"
)

// classificationDocument is the stored shape of a record. Image bytes are
// base64-encoded so the binary content travels inside the structured document;
// the encoding is an implementation detail of this layer, not of the domain
// model.
type classificationDocument struct {
	ID               string           `bson:"id"`
	ImageBase64      string           `bson:"image_base64"`
	ImageFilename    string           `bson:"image_filename"`
	ImageContentType string           `bson:"image_content_type"`
	Latitude         *float64         `bson:"latitude"`
	Longitude        *float64         `bson:"longitude"`
	Timestamp        time.Time        `bson:"timestamp"`
	Flowers          []flowerDocument `bson:"flowers"`
}

type flowerDocument struct {
	BoundingBox [4]float64 `bson:"bounding_box"`
	Stage       int        `bson:"stage"`
	Confidence  float64    `bson:"confidence"`
}

func toDocument(record *classification.Record) *classificationDocument {
	doc := &classificationDocument{
		ID:               record.ID,
		ImageBase64:      base64.StdEncoding.EncodeToString(record.Image),
		ImageFilename:    record.ImageFilename,
		ImageContentType: record.ImageContentType,
		Timestamp:        record.Timestamp,
	}
	if record.Location != nil {
		lat, lon := record.Location.Latitude, record.Location.Longitude
		doc.Latitude = &lat
		doc.Longitude = &lon
	}
	for _, d := range record.Detections {
		doc.Flowers = append(doc.Flowers, flowerDocument{
			BoundingBox: [4]float64(d.BoundingBox),
			Stage:       int(d.Stage),
			Confidence:  d.Confidence,
		})
	}
	return doc
}

func fromDocument(doc *classificationDocument) (*classification.Record, error) {
	image, err := base64.StdEncoding.DecodeString(doc.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding stored image for %s: %w", doc.ID, err)
	}

	var loc *classification.Location
	if doc.Latitude != nil && doc.Longitude != nil {
		loc = &classification.Location{Latitude: *doc.Latitude, Longitude: *doc.Longitude}
	}

	detections := make([]classification.Detection, 0, len(doc.Flowers))
	for _, f := range doc.Flowers {
		stage, err := classification.StageFromIndex(f.Stage)
		if err != nil {
			return nil, fmt.Errorf("stored record %s: %w", doc.ID, err)
		}
		detections = append(detections, classification.Detection{
			BoundingBox: classification.BoundingBox(f.BoundingBox),
			Stage:       stage,
			Confidence:  f.Confidence,
		})
	}

	return classification.NewRecord(doc.ID, doc.Timestamp, image, doc.ImageContentType, doc.ImageFilename, loc, detections), nil
}
