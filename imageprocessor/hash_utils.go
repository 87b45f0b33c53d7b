package imageprocessor

import (
	"fmt"
	"image"

	"github.com/artyom/phash"
	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"imagebatch/types"
)

// ComputeFingerprint calculates a 64-bit perceptual hash of img
func ComputeFingerprint(img image.Image, algo types.HashAlgorithm) (types.Fingerprint, error) {
	if img == nil || img.Bounds().Empty() {
		return types.Fingerprint{}, fmt.Errorf("cannot compute hash for empty image")
	}

	switch algo {
	case types.HashPerceptual, "":
		bits, err := ComputePerceptualHash(img)
		if err != nil {
			return types.Fingerprint{}, fmt.Errorf("perceptual hash: %w", err)
		}
		return types.Fingerprint{Algorithm: types.HashPerceptual, Bits: bits}, nil
	case types.HashAverage:
		h, err := goimagehash.AverageHash(img)
		if err != nil {
			return types.Fingerprint{}, fmt.Errorf("average hash: %w", err)
		}
		return types.Fingerprint{Algorithm: algo, Bits: h.GetHash()}, nil
	case types.HashDifference:
		h, err := goimagehash.DifferenceHash(img)
		if err != nil {
			return types.Fingerprint{}, fmt.Errorf("difference hash: %w", err)
		}
		return types.Fingerprint{Algorithm: algo, Bits: h.GetHash()}, nil
	default:
		return types.Fingerprint{}, &types.ValidationError{Field: "algorithm", Message: fmt.Sprintf("unknown hash algorithm %q", algo)}
	}
}

// ComputePerceptualHash computes the DCT based hash, downscaling with Lanczos
func ComputePerceptualHash(img image.Image) (uint64, error) {
	return phash.Get(img, resizeForHash)
}

func resizeForHash(img image.Image, w, h int) image.Image {
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
