package build

import "errors"

var (
	ErrConfiguration = errors.New("invalid build configuration")
	ErrBuild         = errors.New("build context assembly failed")
)
