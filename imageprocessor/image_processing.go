package imageprocessor

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"imagebatch/types"
)

// ImageSize returns the stored dimensions of img
func ImageSize(img image.Image) types.Size {
	b := img.Bounds()
	return types.Size{Width: b.Dx(), Height: b.Dy()}
}

// TargetSize computes the output dimensions for an image of size orig.
// Results are truncated toward zero and clamped to at least one pixel.
// NoEnlarge only applies to fit mode.
func TargetSize(orig types.Size, p types.ResizeParams) types.Size {
	w := float64(orig.Width)
	h := float64(orig.Height)
	if w <= 0 || h <= 0 {
		return types.Size{Width: 1, Height: 1}
	}

	value := float64(p.Value)
	var newW, newH float64

	switch p.Mode {
	case types.ModeWidth:
		ratio := value / w
		newW = value
		newH = h * ratio
	case types.ModeHeight:
		ratio := value / h
		newH = value
		newW = w * ratio
	case types.ModeMax:
		ratio := math.Min(value/w, value/h)
		newW = w * ratio
		newH = h * ratio
	case types.ModeFit:
		ratio := math.Min(float64(p.Fit.Width)/w, float64(p.Fit.Height)/h)
		if p.NoEnlarge && ratio > 1 {
			ratio = 1
		}
		newW = w * ratio
		newH = h * ratio
	default:
		ratio := value / 100
		newW = w * ratio
		newH = h * ratio
	}

	return types.Size{Width: clampDimension(newW), Height: clampDimension(newH)}
}

func clampDimension(v float64) int {
	n := int(v)
	if n < 1 {
		return 1
	}
	return n
}

// SkipReason returns the orientation filter that rejects an image of size
// orig, or "" when the image passes. Square images are never skipped.
func SkipReason(orig types.Size, p types.ResizeParams) string {
	if p.SkipVertical && orig.Height > orig.Width {
		return types.SkipReasonVertical
	}
	if p.SkipHorizontal && orig.Width > orig.Height {
		return types.SkipReasonHorizontal
	}
	return ""
}

// ResizeImage resamples img to exactly size using the Lanczos filter
func ResizeImage(img image.Image, size types.Size) *image.NRGBA {
	return imaging.Resize(img, size.Width, size.Height, imaging.Lanczos)
}
