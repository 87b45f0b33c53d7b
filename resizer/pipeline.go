package resizer

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"imagebatch/imageprocessor"
	"imagebatch/logging"
	"imagebatch/types"
)

// pipeline holds the per-run state touched by the walk callbacks.
// It is only used from the run goroutine.
type pipeline struct {
	fs       afero.Fs
	registry *imageprocessor.ImageLoaderRegistry
	src      string
	dst      string
	params   types.ResizeParams
	stats    *types.RunStats
	emit     func(types.Event)
	// dirErrs records destination directories that could not be created,
	// keyed by the source directory relative to src
	dirErrs map[string]error
}

// destDir returns the output directory for images in the source directory rel
func (p *pipeline) destDir(rel string) string {
	if !p.params.KeepStructure || rel == "." {
		return p.dst
	}
	return filepath.Join(p.dst, rel)
}

func (p *pipeline) prepareDir(rel string) {
	dir := p.destDir(rel)
	if err := p.fs.MkdirAll(dir, 0755); err != nil {
		logging.LogError("Cannot create output directory %s: %v", dir, err)
		p.dirErrs[rel] = fmt.Errorf("cannot create output directory %s: %w", dir, err)
	}
}

func (p *pipeline) process(task types.ImageTask) {
	name := filepath.Base(task.AbsPath)
	relDir := filepath.Dir(task.RelPath)

	reason := ""
	if err := p.dirErrs[relDir]; err != nil {
		reason = err.Error()
	} else {
		destPath := filepath.Join(p.destDir(relDir), name)
		skip, err := p.resizeOne(task.AbsPath, destPath)
		switch {
		case err != nil:
			reason = err.Error()
		case skip != "":
			reason = skip
		}
	}

	if reason == "" {
		p.stats.Succeeded++
		logging.LogImageProcessed(task.AbsPath, true, "")
		p.emit(types.LogEvent("Processed: " + name))
	} else {
		p.stats.Skipped++
		logging.LogImageProcessed(task.AbsPath, false, reason)
		p.emit(types.SkipEvent(name, reason))
	}

	p.stats.Processed++
	fraction := float64(p.stats.Processed) / float64(p.stats.Total)
	if fraction > 1 {
		fraction = 1
	}
	p.emit(types.ProgressEvent(fraction))
}

// resizeOne converts one image. It returns a skip reason when an
// orientation filter rejects the image.
func (p *pipeline) resizeOne(srcPath, destPath string) (string, error) {
	img, err := p.registry.LoadImage(srcPath)
	if err != nil {
		return "", err
	}

	orig := imageprocessor.ImageSize(img)
	if reason := imageprocessor.SkipReason(orig, p.params); reason != "" {
		return reason, nil
	}

	target := imageprocessor.TargetSize(orig, p.params)
	resized := imageprocessor.ResizeImage(img, target)

	plan, err := imageprocessor.PlanOutput(destPath, p.params.OutputFormat, p.params.Quality)
	if err != nil {
		return "", err
	}
	if err := imageprocessor.SaveImage(p.fs, resized, plan); err != nil {
		return "", err
	}

	logging.DebugLog("Resized %s from %s to %s as %s", srcPath, orig, target, plan.Path)
	return "", nil
}
