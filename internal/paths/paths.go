package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	toolName = "baler"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Subdirectory of the output directory holding the resolved assembly.
	// Also the source the generated recipe's content instruction refers to.
	ContentDirName = "bale"

	// Subdirectory of the temporary root used to stage changed files.
	changedFilesDirName = "changed-files"
)

// Directory creation or cleanup failed.
var ErrFileSystemOperation = errors.New("file system operation failed")

// Path to the default build root for all images.
//
//	Linux:   $XDG_CACHE_HOME/baler/build or ~/.cache/baler/build
//	macOS:   ~/Library/Caches/baler/build
func Root() string {
	return filepath.Join(xdg.CacheHome, toolName, "build")
}

// Holds the per-image working directories for one build invocation.
//
// Output receives the generated recipe and the resolved assembly.
// TemporaryRoot receives the context archive, the incremental archive,
// and the changed-files scratch area. A Dirs value is owned by a single
// build; concurrent builds for the same image name must not share one.
type Dirs struct {
	Output        string
	TemporaryRoot string
}

// Derives the working directories for an image name under the given root.
//
// The image name is sanitized for filesystem use: any character outside
// [A-Za-z0-9._-] (registry separators, tags, and the like) is replaced
// with a dash. An empty root selects [Root]. The directories are not
// created; call [Dirs.Create].
func ForImage(root, imageName string) Dirs {
	if root == "" {
		root = Root()
	}
	base := filepath.Join(root, Sanitize(imageName))
	return Dirs{
		Output:        filepath.Join(base, "build"),
		TemporaryRoot: filepath.Join(base, "tmp"),
	}
}

// Creates both working directories, including parents.
//
// Already-existing directories are not an error.
func (d Dirs) Create() error {
	for _, dir := range []string{d.Output, d.TemporaryRoot} {
		if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
			return fmt.Errorf("%w: create %s: %w", ErrFileSystemOperation, dir, err)
		}
	}
	return nil
}

// Returns the directory holding the resolved assembly content.
func (d Dirs) ContentDir() string {
	return filepath.Join(d.Output, ContentDirName)
}

// Returns the scratch directory used to stage changed files for an
// incremental archive.
func (d Dirs) ChangedFilesDir() string {
	return filepath.Join(d.TemporaryRoot, changedFilesDirName)
}

// Ensures dir exists and is empty.
//
// An existing directory has its contents removed; a missing one is created.
// Used for the changed-files scratch area, which must start fresh for each
// incremental archive request.
func CleanDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: clean %s: %w", ErrFileSystemOperation, dir, err)
	}
	if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrFileSystemOperation, dir, err)
	}
	return nil
}

// Converts an image name to a filesystem-safe slug.
//
// Keeps letters, digits, dots, underscores, and dashes; everything else
// (e.g., "/" and ":" in "registry/repo:tag") becomes a dash.
func Sanitize(imageName string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, imageName)
}
