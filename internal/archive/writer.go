package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/balerhq/baler/internal/ignore"
)

// Fixed modification time applied to every entry, so unchanged inputs
// produce byte-identical archives across runs.
var fixedModTime = time.Unix(0, 0).UTC()

// A file set to add to an archive: the files under Dir that pass Rules,
// placed under Prefix.
type FileSet struct {
	Dir    string        // Root directory to walk.
	Prefix string        // Archive-internal prefix, e.g. "bale".
	Rules  *ignore.Rules // Optional filter; nil includes everything.
}

// Writes a tar archive with deterministic entry headers.
//
// Not safe for concurrent use.
type Writer struct {
	path      string
	f         *os.File
	comp      io.WriteCloser
	tw        *tar.Writer
	forceExec bool
}

// Creates the archive file at the given path.
//
// The tar stream always uses the PAX format so long file names are
// preserved. The caller must Close the writer to finalize the archive.
func Create(path string, c Compression) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrArchive, path, err)
	}

	comp, err := c.wrap(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	var dst io.Writer = f
	if comp != nil {
		dst = comp
	}

	return &Writer{
		path: path,
		f:    f,
		comp: comp,
		tw:   tar.NewWriter(dst),
	}, nil
}

// Returns the path of the archive being written.
func (w *Writer) Path() string {
	return w.path
}

// Enables or disables executable-bit normalization for subsequently
// added regular files.
func (w *Writer) ForceExec(on bool) {
	w.forceExec = on
}

// Adds a single file under the given archive-internal name.
func (w *Writer) AddFile(src, name string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrArchive, src, err)
	}
	return w.writeEntry(src, name, info)
}

// Adds every file under the set's directory that passes its rules.
//
// Directory entries are written when they pass the rules; excluded
// subtrees are pruned without descending.
func (w *Writer) AddFileSet(set FileSet) error {
	err := filepath.WalkDir(set.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(set.Dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			excluded, err := set.Rules.Excluded(rel)
			if err != nil {
				return err
			}
			if excluded {
				return fs.SkipDir
			}
		}

		ok, err := set.Rules.Match(rel)
		if err != nil || !ok {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return w.writeEntry(p, entryName(set.Prefix, rel, d.IsDir()), info)
	})
	if err != nil {
		return fmt.Errorf("%w: file set %s: %w", ErrArchive, set.Dir, err)
	}
	return nil
}

// Finalizes the tar stream, the compressor, and the underlying file.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("%w: finalize %s: %w", ErrArchive, w.path, err)
	}
	if w.comp != nil {
		if err := w.comp.Close(); err != nil {
			w.f.Close()
			return fmt.Errorf("%w: finalize %s: %w", ErrArchive, w.path, err)
		}
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrArchive, w.path, err)
	}
	return nil
}

// Writes one entry: header for any kind, contents for regular files.
func (w *Writer) writeEntry(src, name string, info os.FileInfo) error {
	link := ""
	if info.Mode()&os.ModeSymlink != 0 {
		var err error
		if link, err = os.Readlink(src); err != nil {
			return fmt.Errorf("%w: readlink %s: %w", ErrArchive, src, err)
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("%w: header %s: %w", ErrArchive, name, err)
	}
	header.Name = name
	w.normalize(header)

	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("%w: write header %s: %w", ErrArchive, name, err)
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrArchive, src, err)
	}
	defer f.Close()

	if _, err := io.Copy(w.tw, f); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrArchive, name, err)
	}
	return nil
}

// Copies a raw header and content stream into the archive, applying the
// same normalization as entries read from disk. Used when re-expanding
// inner archives.
func (w *Writer) writeRaw(header *tar.Header, r io.Reader) error {
	w.normalize(header)
	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("%w: write header %s: %w", ErrArchive, header.Name, err)
	}
	if header.Typeflag == tar.TypeReg && r != nil {
		if _, err := io.Copy(w.tw, r); err != nil {
			return fmt.Errorf("%w: write %s: %w", ErrArchive, header.Name, err)
		}
	}
	return nil
}

// Pins the deterministic header fields and applies executable-bit
// normalization when force-exec is enabled.
func (w *Writer) normalize(h *tar.Header) {
	h.Format = tar.FormatPAX
	h.ModTime = fixedModTime
	h.AccessTime = time.Time{}
	h.ChangeTime = time.Time{}
	h.Uid = 0
	h.Gid = 0
	h.Uname = ""
	h.Gname = ""

	if w.forceExec && h.Typeflag == tar.TypeReg {
		h.Mode |= 0111
	}
}

// Joins a prefix and a relative path into an archive entry name.
//
// Directory entries carry a trailing slash.
func entryName(prefix, rel string, dir bool) string {
	name := rel
	if prefix != "" {
		name = path.Join(prefix, rel)
	}
	if dir {
		name += "/"
	}
	return name
}
