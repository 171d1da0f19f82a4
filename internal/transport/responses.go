package transport

import (
	"strconv"
	"time"

	"go-flower-classifier/internal/classification"
	"go-flower-classifier/internal/service"
)

// Wire formats kept stable for the existing frontend: detections ride under
// "flowers", stage_summary keys are the decimal-string form of the integer
// stage values even though the stages themselves are encoded as plain
// integers.

type locationDTO struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type classificationResponse struct {
	ID           string                     `json:"id"`
	ImagePath    string                     `json:"image_path"`
	Location     locationDTO                `json:"location"`
	Timestamp    time.Time                  `json:"timestamp"`
	Flowers      []classification.Detection `json:"flowers"`
	FlowerCount  int                        `json:"flower_count"`
	StageSummary map[string]int             `json:"stage_summary"`
}

type heatmapPoint struct {
	ID           string                     `json:"id"`
	Latitude     float64                    `json:"latitude"`
	Longitude    float64                    `json:"longitude"`
	Timestamp    time.Time                  `json:"timestamp"`
	Flowers      []classification.Detection `json:"flowers"`
	TotalFlowers int                        `json:"total_flowers"`
	StageCounts  map[string]int             `json:"stage_counts"`
}

type heatmapResponse struct {
	TotalRecords int            `json:"total_records"`
	DataPoints   []heatmapPoint `json:"data_points"`
}

type deleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toLocationDTO(loc *classification.Location) locationDTO {
	if loc == nil {
		return locationDTO{}
	}
	lat, lon := loc.Latitude, loc.Longitude
	return locationDTO{Latitude: &lat, Longitude: &lon}
}

func stringSummary(summary map[classification.Stage]int) map[string]int {
	out := make(map[string]int, len(summary))
	for stage, count := range summary {
		out[strconv.Itoa(int(stage))] = count
	}
	return out
}

func nonNilDetections(detections []classification.Detection) []classification.Detection {
	if detections == nil {
		return []classification.Detection{}
	}
	return detections
}

func toClassificationResponse(record *classification.Record) classificationResponse {
	return classificationResponse{
		ID:           record.ID,
		ImagePath:    "/api/images/" + record.ID,
		Location:     toLocationDTO(record.Location),
		Timestamp:    record.Timestamp,
		Flowers:      nonNilDetections(record.Detections),
		FlowerCount:  record.FlowerCount,
		StageSummary: stringSummary(record.StageSummary),
	}
}

func toHeatmapResponse(view *service.HeatmapView) heatmapResponse {
	points := make([]heatmapPoint, 0, len(view.Points))
	for _, record := range view.Points {
		points = append(points, heatmapPoint{
			ID:           record.ID,
			Latitude:     record.Location.Latitude,
			Longitude:    record.Location.Longitude,
			Timestamp:    record.Timestamp,
			Flowers:      nonNilDetections(record.Detections),
			TotalFlowers: record.FlowerCount,
			StageCounts:  stringSummary(record.StageSummary),
		})
	}
	return heatmapResponse{
		TotalRecords: view.TotalRecords,
		DataPoints:   points,
	}
}
