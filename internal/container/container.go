package container

import (
	"context"
	"net/http"
	"time"

	"go-flower-classifier/internal/config"
	"go-flower-classifier/internal/detector"
	"go-flower-classifier/internal/exif"
	"go-flower-classifier/internal/repository"
	"go-flower-classifier/internal/service"
	"go-flower-classifier/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config                *config.Config
	repo                  *repository.MongoRepository
	detector              detector.Detector
	extractor             exif.LocationExtractor
	classificationService service.ClassificationService
	handler               http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	repo, err := repository.NewMongoRepository(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}

	det := detector.NewONNXDetector(detector.Config{
		RemoteURL:     cfg.ModelRemoteURL,
		CachePath:     cfg.ModelCachePath,
		LocalPath:     cfg.ModelLocalPath,
		SharedLibPath: cfg.ONNXSharedLibPath,
		InitTimeout:   cfg.ModelInitTimeout,
	})

	extractor := exif.NewExtractor()
	svc := service.NewClassificationService(repo, det, extractor, cfg.ConfidenceThreshold)
	handler := transport.NewHandler(svc, cfg)

	return &Container{
		config:                cfg,
		repo:                  repo,
		detector:              det,
		extractor:             extractor,
		classificationService: svc,
		handler:               handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the model session and the store connection.
func (c *Container) Close() error {
	var firstErr error
	if err := c.detector.Close(); err != nil {
		firstErr = err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.repo.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
