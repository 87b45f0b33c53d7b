package types

import (
	"fmt"
	"strings"
)

// ResizeMode selects how target dimensions are derived
type ResizeMode string

const (
	ModePercentage ResizeMode = "percentage"
	ModeWidth      ResizeMode = "width"
	ModeHeight     ResizeMode = "height"
	ModeMax        ResizeMode = "max"
	ModeFit        ResizeMode = "fit"
)

// OutputFormat selects the encoding of resized files
type OutputFormat string

const (
	OutputJPG      OutputFormat = "JPG"
	OutputPNG      OutputFormat = "PNG"
	OutputWEBP     OutputFormat = "WEBP"
	OutputOriginal OutputFormat = "Original"
)

const (
	// DefaultQuality matches the quality slider default of the desktop tool
	DefaultQuality = 95
	// DefaultPercentage is used when percentage mode is requested without a value
	DefaultPercentage = 50
)

// Size is a pixel width and height
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ResizeParams describes one resize run.
// Value is used by every mode except fit, which uses Fit.
type ResizeParams struct {
	Mode           ResizeMode   `json:"mode"`
	Value          int          `json:"value,omitempty"`
	Fit            Size         `json:"fit,omitempty"`
	Quality        int          `json:"quality"`
	NoEnlarge      bool         `json:"no_enlarge"`
	SkipVertical   bool         `json:"skip_vertical"`
	SkipHorizontal bool         `json:"skip_horizontal"`
	KeepStructure  bool         `json:"keep_structure"`
	OutputFormat   OutputFormat `json:"output_format"`
}

// DefaultResizeParams returns the defaults of the desktop tool
func DefaultResizeParams() ResizeParams {
	return ResizeParams{
		Mode:          ModePercentage,
		Value:         DefaultPercentage,
		Quality:       DefaultQuality,
		KeepStructure: true,
		OutputFormat:  OutputJPG,
	}
}

// Validate checks the params before a run starts
func (p ResizeParams) Validate() error {
	switch p.Mode {
	case ModeFit:
		if p.Fit.Width <= 0 || p.Fit.Height <= 0 {
			return &ValidationError{Field: "value", Message: fmt.Sprintf("fit mode needs a positive width and height, got %s", p.Fit)}
		}
	case ModePercentage, ModeWidth, ModeHeight, ModeMax:
		if p.Value <= 0 {
			return &ValidationError{Field: "value", Message: fmt.Sprintf("%s mode needs a positive value, got %d", p.Mode, p.Value)}
		}
	default:
		return &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown resize mode %q", p.Mode)}
	}

	if p.Quality < 1 || p.Quality > 100 {
		return &ValidationError{Field: "quality", Message: fmt.Sprintf("quality must be between 1 and 100, got %d", p.Quality)}
	}

	switch p.OutputFormat {
	case OutputJPG, OutputPNG, OutputWEBP, OutputOriginal:
	default:
		return &ValidationError{Field: "format", Message: fmt.Sprintf("unknown output format %q", p.OutputFormat)}
	}
	return nil
}

// ParseResizeMode parses a mode name case-insensitively
func ParseResizeMode(s string) (ResizeMode, error) {
	switch m := ResizeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePercentage, ModeWidth, ModeHeight, ModeMax, ModeFit:
		return m, nil
	default:
		return "", &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown resize mode %q", s)}
	}
}

// ParseOutputFormat parses an output format name case-insensitively.
// "jpeg" is accepted as an alias of JPG.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return OutputJPG, nil
	case "png":
		return OutputPNG, nil
	case "webp":
		return OutputWEBP, nil
	case "original":
		return OutputOriginal, nil
	default:
		return "", &ValidationError{Field: "format", Message: fmt.Sprintf("unknown output format %q", s)}
	}
}
