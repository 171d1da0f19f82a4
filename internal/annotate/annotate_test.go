package annotate

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"go-flower-classifier/internal/classification"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRender_ProducesDecodableJPEG(t *testing.T) {
	src := encodePNG(t, 120, 80)
	detections := []classification.Detection{
		{BoundingBox: classification.BoundingBox{10, 10, 60, 50}, Stage: classification.StageBud, Confidence: 0.91},
		{BoundingBox: classification.BoundingBox{70, 20, 110, 70}, Stage: classification.StageAnthesis, Confidence: 0.77},
	}

	out, err := Render(src, detections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("annotated output not decodable: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg output, got %s", format)
	}
	if decoded.Bounds().Dx() != 120 || decoded.Bounds().Dy() != 80 {
		t.Errorf("annotation changed dimensions: %v", decoded.Bounds())
	}
}

func TestRender_NoDetections(t *testing.T) {
	out, err := Render(encodePNG(t, 40, 40), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := image.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
}

func TestRender_MalformedImage(t *testing.T) {
	if _, err := Render([]byte("not an image"), nil); err == nil {
		t.Fatal("expected error for undecodable input")
	}
}

func TestRender_BoxOutsideBounds(t *testing.T) {
	// Boxes touching or crossing the image edge must not panic
	detections := []classification.Detection{
		{BoundingBox: classification.BoundingBox{-5, -5, 200, 200}, Stage: classification.StagePostAnthesis, Confidence: 0.5},
	}
	if _, err := Render(encodePNG(t, 40, 40), detections); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
