// Package detector adapts image bytes and a confidence threshold into flower
// detections via a YOLO model running on ONNX Runtime. The backend is acquired
// lazily, at most once per process, from an ordered list of weight sources.
package detector

import (
	"context"

	"go-flower-classifier/internal/classification"
)

// DefaultConfidenceThreshold applies when a caller does not override the
// threshold for a request.
const DefaultConfidenceThreshold = 0.25

// Detector converts image bytes into an ordered list of detections. A zero
// qualifying detection count is a normal outcome, not an error.
type Detector interface {
	Detect(ctx context.Context, imageBytes []byte, threshold float64) ([]classification.Detection, error)
	Close() error
}
