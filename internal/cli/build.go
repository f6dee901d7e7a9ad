package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/balerhq/baler/internal/assembly"
	"github.com/balerhq/baler/internal/build"
)

// Represents the 'baler build' command.
type BuildCmd struct {
	Context string `arg:"" optional:"" default:"." help:"Build context directory." type:"existingdir"`
	File    string `short:"f" help:"Build configuration file, relative to the context directory." default:"baler.yaml"`
}

// Executes the build command.
//
// Loads the build configuration, assembles the context archive, and
// prints its path to standard output.
func (c *BuildCmd) Run(ctx context.Context) error {
	opts, err := c.options()
	if err != nil {
		return err
	}

	result, err := build.Run(ctx, assembly.InlineResolver{}, opts)
	if err != nil {
		return err
	}

	fmt.Println(result.Archive)
	return nil
}

// Loads the configuration file and applies root-command overrides.
func (c *BuildCmd) options() (build.Options, error) {
	file := c.File
	if !filepath.IsAbs(file) {
		file = filepath.Join(c.Context, file)
	}

	opts, err := Load(file, c.Context)
	if err != nil {
		return build.Options{}, err
	}
	opts.BuildRoot = RootCmd.BuildRoot
	return opts, nil
}
