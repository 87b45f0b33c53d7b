// Package imageprocessor decodes, resizes, encodes and fingerprints images.
package imageprocessor

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	// Register the WEBP decoder with image.Decode; imaging registers the rest
	_ "golang.org/x/image/webp"
)

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage decodes the file contents
	LoadImage(data []byte) (image.Image, error)
}

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)
	for _, supported := range l.SupportedFormats {
		if format == supported {
			return true
		}
	}
	return false
}

// StandardImageLoader decodes with the Go image decoders through imaging.
// Orientation tags are ignored so that width and height are the stored ones.
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a loader for every supported format
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{FormatJPEG, FormatPNG, FormatBMP, FormatTIFF, FormatWEBP},
		},
	}
}

// LoadImage decodes a standard image format
func (l *StandardImageLoader) LoadImage(data []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data))
}

// OpenCVImageLoader decodes through OpenCV. It reads TIFF compressions and
// WEBP variants the pure Go decoders reject, so it serves as the fallback.
type OpenCVImageLoader struct {
	BaseImageLoader
}

// NewOpenCVImageLoader creates the OpenCV fallback loader
func NewOpenCVImageLoader() *OpenCVImageLoader {
	return &OpenCVImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{FormatJPEG, FormatPNG, FormatBMP, FormatTIFF, FormatWEBP},
		},
	}
}

// LoadImage decodes the bytes with OpenCV and converts the result to an image.Image
func (l *OpenCVImageLoader) LoadImage(data []byte) (image.Image, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("opencv could not decode image")
	}
	return mat.ToImage()
}
