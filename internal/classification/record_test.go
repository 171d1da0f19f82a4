package classification

import (
	"testing"
	"time"
)

func TestStageFromIndex(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		expect    Stage
		expectErr bool
	}{
		{name: "bud", index: 0, expect: StageBud},
		{name: "anthesis", index: 1, expect: StageAnthesis},
		{name: "post-anthesis", index: 2, expect: StagePostAnthesis},
		{name: "negative index rejected", index: -1, expectErr: true},
		{name: "index past range rejected", index: 3, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, err := StageFromIndex(tt.index)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error for index %d, got stage %v", tt.index, stage)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stage != tt.expect {
				t.Errorf("expected stage %v, got %v", tt.expect, stage)
			}
		})
	}
}

func TestNewRecord_DerivedFields(t *testing.T) {
	detections := []Detection{
		{BoundingBox: BoundingBox{10, 10, 50, 50}, Stage: StageBud, Confidence: 0.9},
		{BoundingBox: BoundingBox{60, 60, 90, 90}, Stage: StageBud, Confidence: 0.7},
		{BoundingBox: BoundingBox{5, 5, 20, 20}, Stage: StagePostAnthesis, Confidence: 0.6},
	}

	rec := NewRecord("abc", time.Now(), []byte{1, 2, 3}, "image/jpeg", "a.jpg", nil, detections)

	if rec.FlowerCount != 3 {
		t.Errorf("expected flower count 3, got %d", rec.FlowerCount)
	}

	// Summary covers exactly the stages present
	if len(rec.StageSummary) != 2 {
		t.Errorf("expected 2 stages in summary, got %d", len(rec.StageSummary))
	}
	if rec.StageSummary[StageBud] != 2 {
		t.Errorf("expected 2 buds, got %d", rec.StageSummary[StageBud])
	}
	if rec.StageSummary[StagePostAnthesis] != 1 {
		t.Errorf("expected 1 post-anthesis, got %d", rec.StageSummary[StagePostAnthesis])
	}
	if _, present := rec.StageSummary[StageAnthesis]; present {
		t.Error("anthesis should not appear in summary when absent from detections")
	}

	// Counts sum to the flower count
	sum := 0
	for _, n := range rec.StageSummary {
		sum += n
	}
	if sum != rec.FlowerCount {
		t.Errorf("stage summary sums to %d, expected %d", sum, rec.FlowerCount)
	}
}

func TestNewRecord_EmptyDetections(t *testing.T) {
	rec := NewRecord("abc", time.Now(), nil, "image/png", "a.png", nil, nil)

	if rec.FlowerCount != 0 {
		t.Errorf("expected flower count 0, got %d", rec.FlowerCount)
	}
	if len(rec.StageSummary) != 0 {
		t.Errorf("expected empty stage summary, got %v", rec.StageSummary)
	}
}

func TestNewRecord_TimestampUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)

	rec := NewRecord("abc", now, nil, "image/jpeg", "a.jpg", nil, nil)

	if rec.Timestamp.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", rec.Timestamp.Location())
	}
	if !rec.Timestamp.Equal(now) {
		t.Errorf("timestamp changed instant: %v vs %v", rec.Timestamp, now)
	}
}

func TestNewRecord_TimestampMillisecondPrecision(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)

	rec := NewRecord("abc", now, nil, "image/jpeg", "a.jpg", nil, nil)

	want := time.Date(2025, 6, 1, 12, 0, 0, 123000000, time.UTC)
	if !rec.Timestamp.Equal(want) {
		t.Errorf("expected timestamp truncated to %v, got %v", want, rec.Timestamp)
	}
	// Millisecond precision survives the store's datetime encoding, so a
	// stored record reads back with the timestamp creation returned
	if !rec.Timestamp.Equal(rec.Timestamp.Truncate(time.Millisecond)) {
		t.Errorf("timestamp carries sub-millisecond precision: %v", rec.Timestamp)
	}
}

func TestLocationValid(t *testing.T) {
	tests := []struct {
		name   string
		loc    Location
		expect bool
	}{
		{name: "in range", loc: Location{Latitude: 37.7749, Longitude: -122.4194}, expect: true},
		{name: "latitude too high", loc: Location{Latitude: 90.1, Longitude: 0}, expect: false},
		{name: "longitude too low", loc: Location{Latitude: 0, Longitude: -180.5}, expect: false},
		{name: "boundary values", loc: Location{Latitude: -90, Longitude: 180}, expect: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.Valid(); got != tt.expect {
				t.Errorf("Valid() = %v, expected %v", got, tt.expect)
			}
		})
	}
}
