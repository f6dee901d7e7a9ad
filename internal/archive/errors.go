package archive

import "errors"

var (
	ErrArchive     = errors.New("archive creation failed")
	ErrUnsupported = errors.New("unsupported archive format")
)
