// Package archive writes the tar archives that make up a build context.
//
// A [Writer] wraps a tar stream over an optional compressor (gzip or
// bzip2) and always uses the POSIX PAX format so long file names survive.
// Entry headers are normalized for determinism: modification times are
// pinned to a fixed value and ownership fields are zeroed, so identical
// inputs produce byte-identical archives. An optional force-exec mode
// turns the executable bit on for every regular file added.
//
// Content is added as single files, as filtered file sets rooted at a
// directory, or by re-expanding a previously packed inner archive under
// a prefix. [Pack] produces those inner archives (tar, tar.gz, or zip)
// from a staged directory.
//
// Example usage:
//
//	w, err := archive.Create("ctx.tar.gz", archive.Gzip)
//	if err != nil {
//	    return err
//	}
//	if err := w.AddFileSet(archive.FileSet{Dir: dir, Rules: rules}); err != nil {
//	    return err
//	}
//	return w.Close()
package archive
