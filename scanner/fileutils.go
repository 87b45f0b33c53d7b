package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"imagebatch/imageprocessor"
	"imagebatch/logging"
	"imagebatch/types"
)

// Visitor receives the directories and images of a walk in walk order.
// A non-nil error from either callback stops the walk and is returned by Walk.
type Visitor struct {
	// Dir is called for every directory, the root included as ".".
	Dir func(rel string) error
	// Image is called for every supported regular file.
	Image func(task types.ImageTask) error
}

// CheckRoot verifies that root exists and is a directory
func CheckRoot(fs afero.Fs, root string) error {
	info, err := fs.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &types.NotFoundError{Path: root}
		}
		return &types.NotFoundError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return &types.NotFoundError{Path: root, Err: fmt.Errorf("not a directory")}
	}
	return nil
}

// Walk visits root depth first in lexical order. Regular files with a
// supported extension are passed to v.Image, as are symlinks resolving to
// one. Symlinked directories are not descended into.
// Unreadable entries are logged and skipped.
func Walk(fs afero.Fs, root string, v Visitor) error {
	if err := CheckRoot(fs, root); err != nil {
		return err
	}
	root = filepath.Clean(root)

	return afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logging.LogWarning("Cannot access %s: %v", path, err)
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			logging.LogWarning("Cannot resolve %s under %s: %v", path, root, relErr)
			return nil
		}

		if info.IsDir() {
			if v.Dir != nil {
				return v.Dir(rel)
			}
			return nil
		}

		if !imageprocessor.IsImageFile(path) || !isRegularTarget(fs, path, info) {
			return nil
		}
		if v.Image != nil {
			return v.Image(types.ImageTask{AbsPath: path, RelPath: rel})
		}
		return nil
	})
}

// isRegularTarget reports whether path is a regular file or a symlink to one
func isRegularTarget(fs afero.Fs, path string, info os.FileInfo) bool {
	if info.Mode()&os.ModeSymlink == 0 {
		return info.Mode().IsRegular()
	}
	target, err := fs.Stat(path)
	if err != nil {
		logging.LogWarning("Cannot resolve symlink %s: %v", path, err)
		return false
	}
	return target.Mode().IsRegular()
}

// List returns every supported image under root in walk order
func List(fs afero.Fs, root string) ([]types.ImageTask, error) {
	var tasks []types.ImageTask
	err := Walk(fs, root, Visitor{
		Image: func(task types.ImageTask) error {
			tasks = append(tasks, task)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Count returns the number of supported images under root
func Count(fs afero.Fs, root string) (int, error) {
	total := 0
	err := Walk(fs, root, Visitor{
		Image: func(types.ImageTask) error {
			total++
			return nil
		},
	})
	return total, err
}
