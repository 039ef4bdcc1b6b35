package preprocess

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
)

// Decode parses PNG, JPEG, GIF, BMP or TIFF bytes.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "preprocess: decode image")
	}
	return img, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return eris.Wrap(err, "preprocess: encode png")
	}
	return nil
}
