package detector

import (
	"fmt"
	"math"
	"sort"

	"go-flower-classifier/internal/classification"
)

// iouThreshold is the overlap above which the lower-confidence box is
// suppressed.
const iouThreshold = 0.7

// decodeOutput turns the raw YOLO output tensor, laid out as
// [x, y, w, h, class0..classN] x cells, into domain detections. Candidates
// below the confidence threshold are dropped, overlapping boxes are collapsed
// by NMS, and surviving boxes are rescaled to source pixel coordinates. A
// winning class index outside the stage enumeration is a model defect and
// fails the whole decode.
func decodeOutput(output []float32, threshold float64, origW, origH, inputSize, numClasses int) ([]classification.Detection, error) {
	rows := 4 + numClasses
	cells := len(output) / rows
	if cells == 0 || len(output) != cells*rows {
		return nil, fmt.Errorf("unexpected model output size %d", len(output))
	}

	var candidates []classification.Detection
	for i := 0; i < cells; i++ {
		classIdx, prob := 0, float32(0)
		for j := 0; j < numClasses; j++ {
			if curr := output[(4+j)*cells+i]; curr > prob {
				prob = curr
				classIdx = j
			}
		}
		if float64(prob) < threshold {
			continue
		}

		stage, err := classification.StageFromIndex(classIdx)
		if err != nil {
			return nil, err
		}

		xc := float64(output[i])
		yc := float64(output[cells+i])
		w := float64(output[2*cells+i])
		h := float64(output[3*cells+i])

		scaleX := float64(origW) / float64(inputSize)
		scaleY := float64(origH) / float64(inputSize)
		box := classification.BoundingBox{
			clamp((xc-w/2)*scaleX, 0, float64(origW)),
			clamp((yc-h/2)*scaleY, 0, float64(origH)),
			clamp((xc+w/2)*scaleX, 0, float64(origW)),
			clamp((yc+h/2)*scaleY, 0, float64(origH)),
		}
		// Clamping can collapse a box that barely clipped the edge
		if box.XMin() >= box.XMax() || box.YMin() >= box.YMax() {
			continue
		}

		candidates = append(candidates, classification.Detection{
			BoundingBox: box,
			Stage:       stage,
			Confidence:  float64(prob),
		})
	}

	return suppressOverlaps(candidates), nil
}

// suppressOverlaps keeps the highest-confidence box of every overlapping
// cluster. Result stays ordered by descending confidence.
func suppressOverlaps(candidates []classification.Detection) []classification.Detection {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	kept := make([]classification.Detection, 0, len(candidates))
	suppressed := make([]bool, len(candidates))
	for i := range candidates {
		if suppressed[i] {
			continue
		}
		kept = append(kept, candidates[i])
		for j := i + 1; j < len(candidates); j++ {
			if suppressed[j] {
				continue
			}
			if iou(candidates[i].BoundingBox, candidates[j].BoundingBox) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func iou(a, b classification.BoundingBox) float64 {
	x1 := math.Max(a.XMin(), b.XMin())
	y1 := math.Max(a.YMin(), b.YMin())
	x2 := math.Min(a.XMax(), b.XMax())
	y2 := math.Min(a.YMax(), b.YMax())

	intersection := math.Max(0, x2-x1) * math.Max(0, y2-y1)
	areaA := (a.XMax() - a.XMin()) * (a.YMax() - a.YMin())
	areaB := (b.XMax() - b.XMin()) * (b.YMax() - b.YMin())
	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
