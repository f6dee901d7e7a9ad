// Package build assembles the filesystem context for a container image
// build.
//
// A build materializes the configured assembly into the per-image
// staging directories, decides the recipe source (a user-supplied recipe
// directory or a generated recipe), and writes the final context archive
// ready for submission to a build daemon. Content selection is modeled
// as composable customizers over the archive writer: exactly one content
// customizer is active per build, optionally wrapped by a
// permission-normalizing customizer. The recipe-source decision is a
// pure function of the configuration, evaluated once before archive
// creation begins.
//
// Assembly resolution is delegated to an [assembly.Resolver]; this
// package only consumes the resolved entry list. Archive mechanics live
// in the archive package, directory layout in the paths package.
//
// Example usage:
//
//	result, err := build.Run(ctx, assembly.InlineResolver{}, build.Options{
//	    ImageName:  "myorg/app:1.0",
//	    ProjectDir: ".",
//	    Config: &build.Config{
//	        From:        "alpine:3.20",
//	        Compression: archive.Gzip,
//	    },
//	})
//	if err != nil {
//	    return err
//	}
package build
