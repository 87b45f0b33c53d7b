package types

import (
	"fmt"
	"math/bits"
	"strconv"
)

// ImageTask is one supported image found under a scan root
type ImageTask struct {
	AbsPath string `json:"abs_path"`
	RelPath string `json:"rel_path"`
}

// HashAlgorithm names the perceptual hash used to fingerprint images
type HashAlgorithm string

const (
	HashPerceptual HashAlgorithm = "phash"
	HashAverage    HashAlgorithm = "ahash"
	HashDifference HashAlgorithm = "dhash"
)

// DefaultHashAlgorithm is used when no algorithm is requested
const DefaultHashAlgorithm = HashPerceptual

// DefaultThreshold is the Hamming distance under which two images count as duplicates
const DefaultThreshold = 5

// ParseHashAlgorithm validates an algorithm name
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch a := HashAlgorithm(s); a {
	case HashPerceptual, HashAverage, HashDifference:
		return a, nil
	case "":
		return DefaultHashAlgorithm, nil
	default:
		return "", &ValidationError{Field: "algorithm", Message: fmt.Sprintf("unknown hash algorithm %q", s)}
	}
}

// Fingerprint is a 64-bit perceptual hash of one image
type Fingerprint struct {
	Algorithm HashAlgorithm `json:"algorithm"`
	Bits      uint64        `json:"bits"`
}

// Distance returns the Hamming distance between two fingerprints.
// Both fingerprints must come from the same algorithm.
func (f Fingerprint) Distance(other Fingerprint) int {
	return bits.OnesCount64(f.Bits ^ other.Bits)
}

// String returns the hexadecimal representation used in logs and the cache
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", f.Bits)
}

// ParseFingerprint reverses Fingerprint.String
func ParseFingerprint(algorithm HashAlgorithm, hex string) (Fingerprint, error) {
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("invalid fingerprint %q: %w", hex, err)
	}
	return Fingerprint{Algorithm: algorithm, Bits: v}, nil
}

// DuplicateGroup holds paths whose fingerprints are close to the anchor,
// which is always Paths[0]. Distances[i] is the distance of Paths[i] to the anchor.
type DuplicateGroup struct {
	Paths     []string `json:"paths"`
	Distances []int    `json:"distances"`
}

// Anchor returns the first member of the group
func (g DuplicateGroup) Anchor() string {
	if len(g.Paths) == 0 {
		return ""
	}
	return g.Paths[0]
}
