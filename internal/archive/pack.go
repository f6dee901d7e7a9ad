package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/balerhq/baler/internal/assembly"
)

// Packs the contents of dir into an inner assembly archive at dest.
//
// The archive format follows the assembly mode: tar, gzip-compressed
// tar, or zip. Entry metadata is normalized the same way as in the
// outer context archive.
func Pack(dir, dest string, mode assembly.Mode) error {
	switch mode {
	case assembly.ModeTar, assembly.ModeTarGz:
		comp := None
		if mode == assembly.ModeTarGz {
			comp = Gzip
		}
		w, err := Create(dest, comp)
		if err != nil {
			return err
		}
		if err := w.AddFileSet(FileSet{Dir: dir}); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	case assembly.ModeZip:
		return packZip(dir, dest)
	default:
		return fmt.Errorf("%w: assembly mode %v", ErrUnsupported, mode)
	}
}

// Re-expands an inner assembly archive into the outer tar under the
// given prefix, so the context carries the assembly contents at the
// fixed content subdirectory regardless of the packaging mode.
func (w *Writer) AddArchived(innerPath, prefix string, mode assembly.Mode) error {
	switch mode {
	case assembly.ModeTar, assembly.ModeTarGz:
		return w.addArchivedTar(innerPath, prefix, mode == assembly.ModeTarGz)
	case assembly.ModeZip:
		return w.addArchivedZip(innerPath, prefix)
	default:
		return fmt.Errorf("%w: assembly mode %v", ErrUnsupported, mode)
	}
}

// Streams the entries of an inner tar (optionally gzipped) into the
// outer archive.
func (w *Writer) addArchivedTar(innerPath, prefix string, gzipped bool) error {
	f, err := os.Open(innerPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrArchive, innerPath, err)
	}
	defer f.Close()

	var src io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: read %s: %w", ErrArchive, innerPath, err)
		}
		defer gz.Close()
		src = gz
	}

	tr := tar.NewReader(src)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read %s: %w", ErrArchive, innerPath, err)
		}

		header.Name = prefixed(prefix, header.Name)
		if err := w.writeRaw(header, tr); err != nil {
			return err
		}
	}
}

// Copies the entries of an inner zip into the outer archive.
func (w *Writer) addArchivedZip(innerPath, prefix string) error {
	zr, err := zip.OpenReader(innerPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrArchive, innerPath, err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		header, err := tar.FileInfoHeader(entry.FileInfo(), "")
		if err != nil {
			return fmt.Errorf("%w: header %s: %w", ErrArchive, entry.Name, err)
		}
		header.Name = prefixed(prefix, entry.Name)

		var content io.ReadCloser
		if !entry.FileInfo().IsDir() {
			if content, err = entry.Open(); err != nil {
				return fmt.Errorf("%w: read %s: %w", ErrArchive, entry.Name, err)
			}
		}

		err = w.writeRaw(header, content)
		if content != nil {
			content.Close()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Writes a deterministic zip archive from the contents of dir.
func packZip(dir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrArchive, dest, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = rel
		header.Modified = fixedModTime
		header.Method = zip.Deflate

		if d.IsDir() {
			header.Name += "/"
			_, err := zw.CreateHeader(header)
			return err
		}

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("%w: pack %s: %w", ErrArchive, dest, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finalize %s: %w", ErrArchive, dest, err)
	}
	return nil
}

// Joins an archive-internal prefix to an entry name, preserving a
// trailing slash on directory entries.
func prefixed(prefix, name string) string {
	if prefix == "" {
		return name
	}
	joined := path.Join(prefix, name)
	if len(name) > 0 && name[len(name)-1] == '/' {
		joined += "/"
	}
	return joined
}

// Copies src to dst, creating parent directories and preserving the
// source permission bits.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	return out.Close()
}
