// Package bundle locates the resource fork file inside a macOS .plugin
// bundle directory.
package bundle

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// ErrNoResourceFile is returned when a bundle holds no .rsrc file at all.
var ErrNoResourceFile = errors.New("no .rsrc file in plugin bundle")

// IsBundle reports whether path is a .plugin bundle directory.
func IsBundle(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".plugin") {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FindResourceFile returns the path of the bundle's resource fork file. The
// conventional Contents/Resources location is tried first; if it holds no
// .rsrc file the whole bundle is walked and the first match wins.
func FindResourceFile(bundlePath string, logger hclog.Logger) (string, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	resourcesDir := filepath.Join(bundlePath, "Contents", "Resources")
	if entries, err := os.ReadDir(resourcesDir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".rsrc") {
				found := filepath.Join(resourcesDir, entry.Name())
				logger.Debug("found bundle resource file", "path", found)
				return found, nil
			}
		}
	}

	var found string
	err := filepath.WalkDir(bundlePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".rsrc") {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrNoResourceFile
	}
	logger.Debug("found bundle resource file by walk", "path", found)
	return found, nil
}
