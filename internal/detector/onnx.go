package detector

import (
	"context"
	"fmt"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sync/singleflight"

	"go-flower-classifier/internal/classification"
	apperrors "go-flower-classifier/internal/errors"
	"go-flower-classifier/internal/logger"
)

const (
	// numStages is the class count the flower model is trained with
	numStages = 3

	defaultInputSize = 640
	// cellsPerImage is the YOLO anchor-free cell count for a 640x640 input
	cellsPerImage = 8400

	inputTensorName  = "images"
	outputTensorName = "output0"
)

// Config carries the detector knobs from process configuration.
type Config struct {
	RemoteURL     string
	CachePath     string
	LocalPath     string
	SharedLibPath string
	InitTimeout   time.Duration
}

// ONNXDetector is the process-wide detection backend handle. Initialization is
// lazy: the first Detect call acquires the weights and builds the session,
// concurrent first callers wait on the same in-flight attempt, and a failed
// attempt is retried by the next call instead of poisoning the detector.
type ONNXDetector struct {
	cfg     Config
	sources []WeightSource

	initGroup singleflight.Group
	mu        sync.Mutex
	backend   *onnxBackend
}

func NewONNXDetector(cfg Config) *ONNXDetector {
	var sources []WeightSource
	if cfg.RemoteURL != "" {
		sources = append(sources, newRemoteSource(cfg.RemoteURL, cfg.CachePath))
	}
	if cfg.LocalPath != "" {
		sources = append(sources, newLocalSource(cfg.LocalPath))
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = 60 * time.Second
	}
	return &ONNXDetector{cfg: cfg, sources: sources}
}

// Detect runs inference and returns detections at or above the threshold,
// ordered by descending confidence.
func (d *ONNXDetector) Detect(ctx context.Context, imageBytes []byte, threshold float64) ([]classification.Detection, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}

	backend, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}

	input, origW, origH, err := prepareInput(imageBytes, backend.inputSize)
	if err != nil {
		return nil, apperrors.NewValidationError("unsupported or malformed image payload", err)
	}

	raw, err := backend.run(ctx, input)
	if err != nil {
		return nil, apperrors.NewModelUnavailableError("model inference failed", err)
	}

	detections, err := decodeOutput(raw, threshold, origW, origH, backend.inputSize, numStages)
	if err != nil {
		return nil, apperrors.NewInternalError("model produced undecodable output", err)
	}
	return detections, nil
}

// acquire returns the cached backend or joins the in-flight initialization.
// The initialization itself runs under the configured init timeout on a
// background context, so a caller giving up does not abort it for the others,
// and a stalled acquisition still resolves instead of hanging forever.
func (d *ONNXDetector) acquire(ctx context.Context) (*onnxBackend, error) {
	d.mu.Lock()
	if d.backend != nil {
		b := d.backend
		d.mu.Unlock()
		return b, nil
	}
	d.mu.Unlock()

	ch := d.initGroup.DoChan("init", d.initFlight)

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, apperrors.NewModelUnavailableError("detection backend unavailable", res.Err)
		}
		return res.Val.(*onnxBackend), nil
	case <-ctx.Done():
		return nil, apperrors.NewModelUnavailableError("detection backend initialization incomplete", ctx.Err())
	}
}

// initFlight is one shared acquisition attempt. The cached backend is checked
// again here: a caller that raced past the fast path while an earlier flight
// was completing must reuse that flight's session, not build and leak a
// second one.
func (d *ONNXDetector) initFlight() (interface{}, error) {
	d.mu.Lock()
	if d.backend != nil {
		b := d.backend
		d.mu.Unlock()
		return b, nil
	}
	d.mu.Unlock()

	initCtx, cancel := context.WithTimeout(context.Background(), d.cfg.InitTimeout)
	defer cancel()

	start := time.Now()
	b, err := d.initBackend(initCtx)
	if err != nil {
		logger.WithComponent("detector").WithError(err).Error("Detection backend initialization failed")
		return nil, err
	}
	logger.WithComponent("detector").WithField("elapsed", time.Since(start).String()).Info("Detection backend ready")

	d.mu.Lock()
	d.backend = b
	d.mu.Unlock()
	return b, nil
}

func (d *ONNXDetector) initBackend(ctx context.Context) (*onnxBackend, error) {
	weightPath, err := resolveWeights(ctx, d.sources)
	if err != nil {
		return nil, err
	}

	if d.cfg.SharedLibPath != "" {
		ort.SetSharedLibraryPath(d.cfg.SharedLibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initializing onnxruntime: %w", err)
		}
	}

	return newONNXBackend(weightPath, defaultInputSize)
}

// Close releases the backend session if one was ever built.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backend == nil {
		return nil
	}
	err := d.backend.close()
	d.backend = nil
	return err
}

// onnxBackend owns one session with pre-bound input/output tensors. The
// tensors are shared state, so inference runs serialized.
type onnxBackend struct {
	mu        sync.Mutex
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	inputSize int
}

func newONNXBackend(weightPath string, inputSize int) (*onnxBackend, error) {
	inputShape := ort.NewShape(1, 3, int64(inputSize), int64(inputSize))
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, 3*inputSize*inputSize))
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, 4+numStages, cellsPerImage)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("creating output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		weightPath,
		[]string{inputTensorName},
		[]string{outputTensorName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &onnxBackend{
		session:   session,
		input:     inputTensor,
		output:    outputTensor,
		inputSize: inputSize,
	}, nil
}

func (b *onnxBackend) run(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	copy(b.input.GetData(), input)
	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("running session: %w", err)
	}

	out := b.output.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

func (b *onnxBackend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	if err := b.session.Destroy(); err != nil {
		firstErr = err
	}
	if err := b.input.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := b.output.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
