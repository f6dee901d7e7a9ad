package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/balerhq/baler/internal/assembly"
	"github.com/balerhq/baler/internal/build"
	"github.com/balerhq/baler/internal/tracker"
)

// Represents the 'baler track' command.
type TrackCmd struct {
	Context  string        `arg:"" optional:"" default:"." help:"Build context directory." type:"existingdir"`
	File     string        `short:"f" help:"Build configuration file, relative to the context directory." default:"baler.yaml"`
	Interval time.Duration `short:"i" default:"1s" help:"Poll interval for source changes."`
}

// Executes the track command.
//
// Runs one full context build, registers its assembly for change
// tracking, and then polls the sources. Whenever sources change, a
// changed-files archive is written and its path printed, until the
// command is interrupted.
func (c *TrackCmd) Run(ctx context.Context) error {
	cmd := BuildCmd{Context: c.Context, File: c.File}
	opts, err := cmd.options()
	if err != nil {
		return err
	}
	if !opts.Config.Assembly.HasSource() {
		return fmt.Errorf("%w: tracking requires an assembly", build.ErrConfiguration)
	}

	resolver := assembly.InlineResolver{}
	result, err := build.Run(ctx, resolver, opts)
	if err != nil {
		return err
	}
	slog.Info("initial context built", "archive", result.Archive)

	tr := tracker.New(resolver)
	set, err := tr.Record(ctx, opts)
	if err != nil {
		return err
	}
	slog.Info("tracking assembly sources",
		"image", opts.ImageName,
		"files", set.Len(),
		"interval", c.Interval,
	)

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("tracking stopped")
			return nil
		case <-ticker.C:
			if err := c.emitChanges(tr, set, opts); err != nil {
				return err
			}
		}
	}
}

// Checks for changed sources and writes an incremental archive when
// there are any.
func (c *TrackCmd) emitChanges(tr *tracker.Tracker, set *tracker.FileSet, opts build.Options) error {
	changed, err := tr.Changed(opts.ImageName)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	path, err := tracker.ChangedFilesArchive(changed, set.ContentDir(), opts.ImageName, opts.BuildRoot)
	if err != nil {
		return err
	}

	slog.Info("sources changed", "files", len(changed), "archive", path)
	fmt.Println(path)
	return nil
}
