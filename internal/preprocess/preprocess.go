// Package preprocess prepares screenshots for text recognition: color noise is
// removed by converting to single-channel grayscale and contrast is boosted by a
// fixed factor.
package preprocess

import (
	"image"
	"image/draw"
)

// ContrastFactor is the fixed multiplier applied by Normalize.
const ContrastFactor = 2.0

// Normalize converts img to grayscale and applies ContrastFactor.
func Normalize(img image.Image) *image.Gray {
	return Contrast(Grayscale(img), ContrastFactor)
}

// Grayscale returns a single-channel copy of img using ITU-R 601 luma.
// Applying it to an already gray image yields an identical image.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// Contrast scales every pixel's distance from the image's mean luminance by
// factor, clamping to [0, 255]. A factor of 1 returns an equal image; 0 returns
// a flat image at the mean. Each application compounds.
func Contrast(img *image.Gray, factor float64) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(b)
	if b.Empty() {
		return dst
	}

	mean := float64(int(meanLuma(img) + 0.5))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, y):]
		out := dst.Pix[dst.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			v := mean + factor*(float64(src[x])-mean)
			switch {
			case v <= 0:
				out[x] = 0
			case v >= 255:
				out[x] = 255
			default:
				out[x] = uint8(v)
			}
		}
	}
	return dst
}

func meanLuma(img *image.Gray) float64 {
	b := img.Bounds()
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			sum += uint64(row[x])
		}
	}
	return float64(sum) / float64(b.Dx()*b.Dy())
}
