package imageprocessor

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"gocv.io/x/gocv"

	"imagebatch/types"
)

// OutputPlan is the final on-disk path and save parameters for one image
type OutputPlan struct {
	Path   string
	Format FormatType
	// Quality is 0 when the format takes no quality setting
	Quality int
	// Flatten drops the alpha channel before encoding
	Flatten bool
}

// PlanOutput decides where and how a resized image is written.
// destPath is the mirrored destination path with the source basename.
func PlanOutput(destPath string, out types.OutputFormat, quality int) (OutputPlan, error) {
	if out == types.OutputOriginal {
		format := GetFileFormat(destPath)
		if format == FormatUnknown {
			return OutputPlan{}, fmt.Errorf("unsupported output extension: %s", filepath.Ext(destPath))
		}
		plan := OutputPlan{Path: destPath, Format: format}
		if SupportsQuality(format) {
			plan.Quality = quality
		}
		return plan, nil
	}

	format := OutputFormatType(out)
	if format == FormatUnknown {
		return OutputPlan{}, &types.ValidationError{Field: "format", Message: fmt.Sprintf("unknown output format %q", out)}
	}

	plan := OutputPlan{
		Path:   replaceExt(destPath, FormatToExtension(format)),
		Format: format,
	}
	switch format {
	case FormatJPEG:
		plan.Quality = quality
		plan.Flatten = true
	case FormatWEBP:
		plan.Quality = quality
	}
	return plan, nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// Encode writes img to w according to plan
func Encode(w io.Writer, img image.Image, plan OutputPlan) error {
	if plan.Flatten {
		img = flattenRGB(img)
	}

	switch plan.Format {
	case FormatJPEG:
		quality := plan.Quality
		if quality <= 0 {
			quality = types.DefaultQuality
		}
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case FormatWEBP:
		return encodeWebP(w, img, plan.Quality)
	default:
		return fmt.Errorf("no encoder for format %s", plan.Format)
	}
}

// encodeWebP goes through OpenCV, the only WEBP encoder in the stack
func encodeWebP(w io.Writer, img image.Image, quality int) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("failed to convert image for webp: %w", err)
	}
	defer mat.Close()

	if quality <= 0 {
		quality = types.DefaultQuality
	}
	buf, err := gocv.IMEncodeWithParams(gocv.WebpFileExt, mat, []int{int(gocv.IMWriteWebpQuality), quality})
	if err != nil {
		return fmt.Errorf("failed to encode webp: %w", err)
	}
	defer buf.Close()

	_, err = w.Write(buf.GetBytes())
	return err
}

// flattenRGB returns an opaque copy of img. Alpha and palette models end up
// as RGB with every pixel fully opaque.
func flattenRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// SaveImage encodes img to plan.Path on fs. A partially written file is
// removed when encoding fails.
func SaveImage(fs afero.Fs, img image.Image, plan OutputPlan) error {
	f, err := fs.Create(plan.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", plan.Path, err)
	}

	if err := Encode(f, img, plan); err != nil {
		f.Close()
		fs.Remove(plan.Path)
		return fmt.Errorf("failed to encode %s: %w", plan.Path, err)
	}

	if err := f.Close(); err != nil {
		fs.Remove(plan.Path)
		return fmt.Errorf("failed to write %s: %w", plan.Path, err)
	}
	return nil
}
