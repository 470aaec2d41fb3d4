package imagery

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
)

var ErrUnsupportedImage = errors.New("unsupported or corrupted image data")

// Decode interprets raw bytes as a PNG, JPEG or TIFF raster and returns
// the pixels normalized to NRGBA plus the detected format name.
// Pathology slides are frequently TIFF with exotic color modes, hence
// the normalization pass.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", ErrUnsupportedImage
	}
	return imaging.Clone(img), format, nil
}

// Dimensions returns the pixel width and height of an image.
func Dimensions(img image.Image) (int, int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}
