package classification

import (
	"fmt"
	"time"
)

// Stage is the growth phase of a detected flower. Wire encoding is the plain
// integer value.
type Stage int

const (
	StageBud Stage = iota
	StageAnthesis
	StagePostAnthesis
)

func (s Stage) String() string {
	switch s {
	case StageBud:
		return "bud"
	case StageAnthesis:
		return "anthesis"
	case StagePostAnthesis:
		return "post-anthesis"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageFromIndex maps a model class index onto the Stage enumeration. An index
// outside the known range is a defect in the model output and is rejected.
func StageFromIndex(idx int) (Stage, error) {
	if idx < int(StageBud) || idx > int(StagePostAnthesis) {
		return 0, fmt.Errorf("unknown stage index %d", idx)
	}
	return Stage(idx), nil
}

// BoundingBox holds pixel coordinates as [x_min, y_min, x_max, y_max]. The
// array form matches the wire encoding directly.
type BoundingBox [4]float64

func (b BoundingBox) XMin() float64 { return b[0] }
func (b BoundingBox) YMin() float64 { return b[1] }
func (b BoundingBox) XMax() float64 { return b[2] }
func (b BoundingBox) YMax() float64 { return b[3] }

// Detection is one flower found by the model in a single image.
type Detection struct {
	BoundingBox BoundingBox `json:"bounding_box" bson:"bounding_box"`
	Stage       Stage       `json:"stage" bson:"stage"`
	Confidence  float64     `json:"confidence" bson:"confidence"`
}

// Location is a decimal-degree coordinate pair. Latitude is bounded to
// [-90, 90] and longitude to [-180, 180].
type Location struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the coordinates are inside their bounds.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// Record is the single persisted entity: one classified upload. It is
// assembled once by NewRecord and never partially updated afterwards.
type Record struct {
	ID               string
	Image            []byte
	ImageContentType string
	ImageFilename    string
	Location         *Location
	Timestamp        time.Time
	Detections       []Detection
	FlowerCount      int
	StageSummary     map[Stage]int
}

// NewRecord assembles a Record from already-validated inputs and computes the
// derived flower count and stage summary. Pure, no I/O. The summary covers
// exactly the stages present among the detections. The timestamp is held at
// millisecond precision, the resolution of the store's datetime type, so a
// record reads back with the same timestamp it was created with.
func NewRecord(id string, now time.Time, image []byte, contentType, filename string, loc *Location, detections []Detection) *Record {
	summary := make(map[Stage]int)
	for _, d := range detections {
		summary[d.Stage]++
	}
	return &Record{
		ID:               id,
		Image:            image,
		ImageContentType: contentType,
		ImageFilename:    filename,
		Location:         loc,
		Timestamp:        now.UTC().Truncate(time.Millisecond),
		Detections:       detections,
		FlowerCount:      len(detections),
		StageSummary:     summary,
	}
}
