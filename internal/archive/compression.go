package archive

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
)

// Compression method for the context archive.
type Compression int

const (
	None Compression = iota
	Gzip
	Bzip2
)

// Parses a compression method name.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return None, nil
	case "gzip":
		return Gzip, nil
	case "bzip2":
		return Bzip2, nil
	default:
		return None, fmt.Errorf("%w: unknown compression %q", ErrUnsupported, s)
	}
}

// Returns the archive filename suffix for this compression method.
func (c Compression) Suffix() string {
	switch c {
	case Gzip:
		return "tar.gz"
	case Bzip2:
		return "tar.bz2"
	default:
		return "tar"
	}
}

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	default:
		return fmt.Sprintf("compression(%d)", int(c))
	}
}

// Wraps w in the compressor for this method.
//
// Returns nil for [None], meaning the tar stream is written uncompressed.
func (c Compression) wrap(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case None:
		return nil, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Bzip2:
		bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.BestCompression})
		if err != nil {
			return nil, fmt.Errorf("%w: bzip2: %w", ErrArchive, err)
		}
		return bw, nil
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, int(c))
	}
}
