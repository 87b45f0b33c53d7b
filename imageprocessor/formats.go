package imageprocessor

import (
	"path/filepath"
	"sort"
	"strings"

	"imagebatch/types"
)

// FormatType represents a known image format type
type FormatType string

// Known image format constants
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatPNG     FormatType = "png"
	FormatTIFF    FormatType = "tiff"
	FormatBMP     FormatType = "bmp"
	FormatWEBP    FormatType = "webp"
)

// Map of extensions to format types. This is the full set of inputs;
// .tif, .gif and RAW formats are deliberately not picked up.
var formatExtensions = map[string]FormatType{
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".bmp":  FormatBMP,
	".tiff": FormatTIFF,
	".webp": FormatWEBP,
}

// IsImageFile checks if a file is a supported image based on extension
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, supported := formatExtensions[ext]
	return supported
}

// GetFileFormat returns the format type based on file extension
func GetFileFormat(path string) FormatType {
	ext := strings.ToLower(filepath.Ext(path))
	format, exists := formatExtensions[ext]
	if !exists {
		return FormatUnknown
	}
	return format
}

// GetSupportedExtensions returns all supported image file extensions, sorted
func GetSupportedExtensions() []string {
	extensions := make([]string, 0, len(formatExtensions))
	for ext := range formatExtensions {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

// FormatToExtension returns a canonical file extension for a format
func FormatToExtension(format FormatType) string {
	switch format {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatTIFF:
		return ".tiff"
	case FormatBMP:
		return ".bmp"
	case FormatWEBP:
		return ".webp"
	default:
		return ""
	}
}

// OutputFormatType maps a requested output format to the format it encodes.
// Original has no fixed format and maps to FormatUnknown.
func OutputFormatType(out types.OutputFormat) FormatType {
	switch out {
	case types.OutputJPG:
		return FormatJPEG
	case types.OutputPNG:
		return FormatPNG
	case types.OutputWEBP:
		return FormatWEBP
	default:
		return FormatUnknown
	}
}

// SupportsQuality reports whether the encoder for format takes a quality setting
func SupportsQuality(format FormatType) bool {
	return format == FormatJPEG || format == FormatWEBP
}
