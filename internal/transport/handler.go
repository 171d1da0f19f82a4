package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-flower-classifier/internal/classification"
	"go-flower-classifier/internal/config"
	apperrors "go-flower-classifier/internal/errors"
	"go-flower-classifier/internal/logger"
	"go-flower-classifier/internal/service"
)

func NewHandler(svc service.ClassificationService, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(requestSizeLimiter(cfg.MaxRequestBodySize))

	// Configure routes
	r.GET("/", healthCheck(svc))
	r.POST("/api/classify", classifyImage(svc, cfg))
	r.GET("/api/heatmap-data", heatmapData(svc))
	r.GET("/api/classifications/:id", getClassification(svc))
	r.GET("/api/images/:id", getImage(svc))
	r.DELETE("/api/classifications/:id", deleteClassification(svc))

	return r
}

func classifyImage(svc service.ClassificationService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		}).Info("Processing classification request")

		imageBytes, filename, contentType, err := readImageFile(c)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid upload", err)
			return
		}

		manual, err := parseManualLocation(c)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid coordinates", err)
			return
		}

		threshold, err := parseThreshold(c)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid confidence threshold", err)
			return
		}

		record, err := svc.Classify(ctx, service.ClassifyInput{
			Image:       imageBytes,
			Filename:    filename,
			ContentType: contentType,
			Manual:      manual,
			Threshold:   threshold,
		})
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "classification failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"id":                 record.ID,
			"flower_count":       record.FlowerCount,
			"has_location":       record.Location != nil,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Classification request completed")

		c.JSON(http.StatusOK, toClassificationResponse(record))
	}
}

// readImageFile pulls the multipart "file" part and verifies it looks like an
// image before anything reaches the model adapter.
func readImageFile(c *gin.Context) ([]byte, string, string, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, "", "", apperrors.NewValidationError("request must include an image under \"file\"", err)
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, "", "", apperrors.NewValidationError("failed to read uploaded file", err)
	}
	if len(imageBytes) == 0 {
		return nil, "", "", apperrors.NewValidationError("uploaded file is empty", nil)
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		// Fall back to sniffing when the client did not label the part
		contentType = http.DetectContentType(imageBytes)
		if !strings.HasPrefix(contentType, "image/") {
			return nil, "", "", apperrors.NewValidationError("file must be an image (JPEG, PNG, etc.)", nil)
		}
	}
	return imageBytes, header.Filename, contentType, nil
}

// parseManualLocation enforces the both-or-neither contract on the optional
// coordinate override.
func parseManualLocation(c *gin.Context) (*classification.Location, error) {
	latStr := strings.TrimSpace(c.PostForm("latitude"))
	lonStr := strings.TrimSpace(c.PostForm("longitude"))
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, apperrors.NewValidationError("latitude and longitude must be supplied together", nil)
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("latitude must be a number", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("longitude must be a number", err)
	}

	loc := &classification.Location{Latitude: lat, Longitude: lon}
	if !loc.Valid() {
		return nil, apperrors.NewValidationError("coordinates out of range", nil)
	}
	return loc, nil
}

func parseThreshold(c *gin.Context) (*float64, error) {
	raw := strings.TrimSpace(c.PostForm("confidence_threshold"))
	if raw == "" {
		return nil, nil
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("confidence_threshold must be a number", err)
	}
	if threshold <= 0 || threshold > 1 {
		return nil, apperrors.NewValidationError("confidence_threshold must be in (0,1]", nil)
	}
	return &threshold, nil
}

func heatmapData(svc service.ClassificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := svc.Heatmap(c.Request.Context())
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to build heatmap", err)
			return
		}
		c.JSON(http.StatusOK, toHeatmapResponse(view))
	}
}

func getClassification(svc service.ClassificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to load classification", err)
			return
		}
		c.JSON(http.StatusOK, toClassificationResponse(record))
	}
}

func getImage(svc service.ClassificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		if c.Query("annotated") == "true" {
			rendered, err := svc.AnnotatedImage(c.Request.Context(), id)
			if err != nil {
				respondError(c, apperrors.GetStatusCode(err), "failed to render image", err)
				return
			}
			c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", id+"-annotated.jpg"))
			c.Data(http.StatusOK, "image/jpeg", rendered)
			return
		}

		record, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to load image", err)
			return
		}
		filename := record.ImageFilename
		if filename == "" {
			filename = record.ID
		}
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		c.Data(http.StatusOK, record.ImageContentType, record.Image)
	}
}

func deleteClassification(svc service.ClassificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to delete classification", err)
			return
		}
		c.JSON(http.StatusOK, deleteResponse{
			Message: "Classification deleted successfully",
			ID:      id,
		})
	}
}

func healthCheck(svc service.ClassificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "connected"
		if err := svc.Healthy(c.Request.Context()); err != nil {
			dbStatus = fmt.Sprintf("error: %v", err)
		}
		c.JSON(http.StatusOK, healthResponse{
			Status:    "healthy",
			Database:  dbStatus,
			Timestamp: time.Now().UTC(),
		})
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
