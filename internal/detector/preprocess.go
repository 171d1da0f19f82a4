package detector

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// prepareInput decodes the image, collapses whatever channel layout the source
// carries (RGBA, grayscale, palette) down to three channels, resizes to the
// model's square input and packs a CHW float32 tensor normalized to [0,1].
// Returns the tensor plus the source pixel dimensions for box rescaling.
func prepareInput(imageBytes []byte, inputSize int) ([]float32, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding image: %w", err)
	}
	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return nil, 0, 0, fmt.Errorf("image has zero dimensions")
	}

	resized := resize.Resize(uint(inputSize), uint(inputSize), img, resize.Lanczos3)

	input := make([]float32, 3*inputSize*inputSize)
	stride := inputSize * inputSize
	idx := 0
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			input[idx] = float32(r>>8) / 255.0
			input[idx+stride] = float32(g>>8) / 255.0
			input[idx+2*stride] = float32(b>>8) / 255.0
			idx++
		}
	}
	return input, origW, origH, nil
}
