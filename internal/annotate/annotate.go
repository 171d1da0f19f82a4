// Package annotate renders stored detections onto a copy of the source image
// for human inspection. The stored record keeps the untouched upload; the
// overlay is produced on demand.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"go-flower-classifier/internal/classification"
)

const (
	boxThickness = 2
	jpegQuality  = 90
)

var stageColors = map[classification.Stage]color.RGBA{
	classification.StageBud:          {R: 255, G: 196, B: 0, A: 255},
	classification.StageAnthesis:     {R: 46, G: 204, B: 64, A: 255},
	classification.StagePostAnthesis: {R: 207, G: 70, B: 193, A: 255},
}

// Render draws a stage-colored rectangle and a "stage confidence" label for
// every detection and re-encodes the result as JPEG.
func Render(imageBytes []byte, detections []classification.Detection) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding image for annotation: %w", err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	for _, det := range detections {
		col, ok := stageColors[det.Stage]
		if !ok {
			col = color.RGBA{R: 255, A: 255}
		}
		box := det.BoundingBox
		drawRect(canvas,
			bounds.Min.X+int(box.XMin()), bounds.Min.Y+int(box.YMin()),
			bounds.Min.X+int(box.XMax()), bounds.Min.Y+int(box.YMax()),
			col)
		label := fmt.Sprintf("%s %.2f", det.Stage, det.Confidence)
		drawLabel(canvas, bounds.Min.X+int(box.XMin()), bounds.Min.Y+int(box.YMin()), label, col)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

func drawRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for t := 0; t < boxThickness; t++ {
		for x := x0; x <= x1; x++ {
			setIfInside(img, x, y0+t, col)
			setIfInside(img, x, y1-t, col)
		}
		for y := y0; y <= y1; y++ {
			setIfInside(img, x0+t, y, col)
			setIfInside(img, x1-t, y, col)
		}
	}
}

func drawLabel(img *image.RGBA, x, y int, label string, col color.RGBA) {
	// Place the text just above the box, or inside it at the image edge
	baseline := y - 4
	if baseline < img.Bounds().Min.Y+basicfont.Face7x13.Height {
		baseline = y + basicfont.Face7x13.Height + 2
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(label)
}

func setIfInside(img *image.RGBA, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, col)
	}
}
