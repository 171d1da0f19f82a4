package detector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-flower-classifier/internal/logger"
)

// WeightSource is one strategy for acquiring the model weight artifact. A
// source either yields a readable local path or fails with a reason; sources
// are tried in order and the first success wins.
type WeightSource interface {
	Name() string
	Resolve(ctx context.Context) (string, error)
}

// resolveWeights walks the ordered source list and returns the first artifact
// path produced. On total failure every per-source reason is aggregated into
// the returned error.
func resolveWeights(ctx context.Context, sources []WeightSource) (string, error) {
	if len(sources) == 0 {
		return "", fmt.Errorf("no weight sources configured")
	}

	var failures []string
	for _, src := range sources {
		path, err := src.Resolve(ctx)
		if err == nil {
			logger.WithComponent("detector").WithFields(map[string]interface{}{
				"source": src.Name(),
				"path":   path,
			}).Info("Model weights acquired")
			return path, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", src.Name(), err))
	}
	return "", fmt.Errorf("all weight sources failed: %s", strings.Join(failures, "; "))
}

// remoteSource downloads the weight artifact over HTTP into a cache path. A
// previously downloaded artifact is reused without a network round trip.
type remoteSource struct {
	url       string
	cachePath string
	client    *http.Client
}

func newRemoteSource(url, cachePath string) *remoteSource {
	transport := &http.Transport{
		MaxIdleConns:          2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	return &remoteSource{
		url:       url,
		cachePath: cachePath,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

func (s *remoteSource) Name() string {
	return "remote"
}

func (s *remoteSource) Resolve(ctx context.Context) (string, error) {
	if fi, err := os.Stat(s.cachePath); err == nil && fi.Size() > 0 {
		return s.cachePath, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid weight URL: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream, */*")
	req.Header.Set("User-Agent", "Go-Flower-Classifier/1.0")

	// Up to 3 attempts. 4xx responses are non-retryable; 5xx and transport
	// errors are retried with a short backoff.
	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err = s.client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if err != nil {
			lastErr = err
		} else {
			resp.Body.Close()
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return "", fmt.Errorf("client error: status code %d", resp.StatusCode)
			}
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
			resp = nil
		}

		if attempt < 2 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	if resp == nil {
		return "", fmt.Errorf("failed to fetch weights after 3 attempts: %w", lastErr)
	}
	defer resp.Body.Close()

	return s.writeCache(resp.Body)
}

// writeCache streams the artifact through a temp file so a torn download never
// shows up at the cache path.
func (s *remoteSource) writeCache(r io.Reader) (string, error) {
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.cachePath), "weights-*.onnx.partial")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing weights: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.cachePath); err != nil {
		return "", fmt.Errorf("moving weights into cache: %w", err)
	}
	return s.cachePath, nil
}

// localSource points at a pre-provisioned artifact on disk, used as the
// fallback when the remote fetch is unavailable.
type localSource struct {
	path string
}

func newLocalSource(path string) *localSource {
	return &localSource{path: path}
}

func (s *localSource) Name() string {
	return "local"
}

func (s *localSource) Resolve(_ context.Context) (string, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("weight artifact not readable: %w", err)
	}
	if fi.Size() == 0 {
		return "", fmt.Errorf("weight artifact %s is empty", s.path)
	}
	return s.path, nil
}
