package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-flower-classifier/internal/annotate"
	"go-flower-classifier/internal/classification"
	"go-flower-classifier/internal/detector"
	apperrors "go-flower-classifier/internal/errors"
	"go-flower-classifier/internal/exif"
	"go-flower-classifier/internal/logger"
	"go-flower-classifier/internal/repository"
)

// ClassifyInput carries one upload through the pipeline.
type ClassifyInput struct {
	Image       []byte
	Filename    string
	ContentType string
	// Manual coordinates always take precedence over extracted metadata
	Manual *classification.Location
	// Threshold overrides the process default for this request when set
	Threshold *float64
}

// HeatmapView is the aggregation read model. TotalRecords counts the entire
// stored set, not just the geolocated subset emitted as points.
type HeatmapView struct {
	TotalRecords int
	Points       []*classification.Record
}

// ClassificationService is the ingestion pipeline plus its read side.
type ClassificationService interface {
	Classify(ctx context.Context, input ClassifyInput) (*classification.Record, error)
	Get(ctx context.Context, id string) (*classification.Record, error)
	Delete(ctx context.Context, id string) error
	AnnotatedImage(ctx context.Context, id string) ([]byte, error)
	Heatmap(ctx context.Context) (*HeatmapView, error)
	Healthy(ctx context.Context) error
}

type classificationService struct {
	repo             repository.ClassificationRepository
	detector         detector.Detector
	extractor        exif.LocationExtractor
	defaultThreshold float64
}

func NewClassificationService(
	repo repository.ClassificationRepository,
	det detector.Detector,
	extractor exif.LocationExtractor,
	defaultThreshold float64,
) ClassificationService {
	if defaultThreshold <= 0 || defaultThreshold > 1 {
		defaultThreshold = detector.DefaultConfidenceThreshold
	}
	return &classificationService{
		repo:             repo,
		detector:         det,
		extractor:        extractor,
		defaultThreshold: defaultThreshold,
	}
}

// Classify resolves the location, runs detection and persists one complete
// record. A detector or store failure aborts the request before any write.
func (s *classificationService) Classify(ctx context.Context, input ClassifyInput) (*classification.Record, error) {
	loc := input.Manual
	if loc == nil {
		loc = s.extractor.Extract(input.Image)
	}

	threshold := s.defaultThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}

	detections, err := s.detector.Detect(ctx, input.Image, threshold)
	if err != nil {
		return nil, err
	}

	record := classification.NewRecord(
		uuid.NewString(),
		time.Now(),
		input.Image,
		input.ContentType,
		input.Filename,
		loc,
		detections,
	)

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, wrapStoreError(err, "failed to persist classification")
	}

	logger.WithComponent("service").WithFields(logrus.Fields{
		"id":           record.ID,
		"flower_count": record.FlowerCount,
		"has_location": record.Location != nil,
		"threshold":    threshold,
	}).Info("Classification stored")

	return record, nil
}

func (s *classificationService) Get(ctx context.Context, id string) (*classification.Record, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapStoreError(err, "failed to load classification")
	}
	return record, nil
}

func (s *classificationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapStoreError(err, "failed to delete classification")
	}
	logger.WithComponent("service").WithField("id", id).Info("Classification deleted")
	return nil
}

// AnnotatedImage renders the stored detections onto the stored image bytes.
func (s *classificationService) AnnotatedImage(ctx context.Context, id string) ([]byte, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rendered, err := annotate.Render(record.Image, record.Detections)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to render annotated image", err)
	}
	return rendered, nil
}

// Heatmap reads the full record set and emits a point per geolocated record.
// Records without a location stay out of the point list but still count
// toward the total.
func (s *classificationService) Heatmap(ctx context.Context) (*HeatmapView, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, wrapStoreError(err, "failed to load records for heatmap")
	}

	points := make([]*classification.Record, 0, len(records))
	for _, record := range records {
		if record.Location != nil {
			points = append(points, record)
		}
	}
	return &HeatmapView{
		TotalRecords: len(records),
		Points:       points,
	}, nil
}

func (s *classificationService) Healthy(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// wrapStoreError translates repository sentinels into the application error
// taxonomy, leaving already-typed errors untouched.
func wrapStoreError(err error, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFoundError("classification not found", err)
	case errors.Is(err, repository.ErrStoreUnavailable):
		return apperrors.NewStoreUnavailableError(message, err)
	default:
		return apperrors.NewInternalError(message, err)
	}
}
