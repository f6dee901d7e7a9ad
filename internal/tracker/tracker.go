package tracker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/balerhq/baler/internal/archive"
	"github.com/balerhq/baler/internal/assembly"
	"github.com/balerhq/baler/internal/build"
	"github.com/balerhq/baler/internal/paths"
)

// Base filename of the incremental changed-files archive.
const changedArchiveName = "changed-files.tar"

// The requested image has not been registered with [Tracker.Record].
var ErrNotTracked = errors.New("image is not tracked")

// One tracked correlation: a source file on disk and its absolute
// destination under the image's assembly content directory.
//
// Size, ModTime, and Digest record the source's state at registration
// or at the last change check.
type Entry struct {
	Source string
	Dest   string

	Size    int64
	ModTime time.Time
	Digest  digest.Digest
}

// The tracked entries of one image's assembly, keyed by destination.
//
// When the resolver reports two entries for the same destination the
// later one wins, matching the overwrite order of the production
// materialization.
type FileSet struct {
	contentDir string
	entries    map[string]*Entry
}

// Returns the directory the tracked destinations are rooted under.
func (s *FileSet) ContentDir() string {
	return s.contentDir
}

// Returns the number of tracked entries.
func (s *FileSet) Len() int {
	return len(s.entries)
}

// Looks up the entry for an absolute destination path.
func (s *FileSet) Get(dest string) (Entry, bool) {
	e, ok := s.entries[dest]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Returns all tracked entries sorted by destination.
func (s *FileSet) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dest < out[j].Dest })
	return out
}

// Watches assembly source files across builds.
//
// Safe for concurrent use; all methods serialize on an internal mutex,
// so a change check never observes a half-registered build.
type Tracker struct {
	mu       sync.Mutex
	resolver assembly.Resolver
	images   map[string]*FileSet
}

// Creates a tracker that resolves assemblies through the given resolver.
//
// The resolver must be the same implementation the production build
// uses, so both passes agree on the file set.
func New(resolver assembly.Resolver) *Tracker {
	return &Tracker{
		resolver: resolver,
		images:   map[string]*FileSet{},
	}
}

// Registers the assembly of a finished build for change tracking and
// returns the full tracked file set as of this pass.
//
// The assembly is resolved again under the tracking pass without
// touching the staged files. A Record for an already-tracked image
// replaces its entire file set. The whole pass — resolution, snapshot,
// capture — holds the tracker's mutex, so concurrent Record calls never
// interleave inside the resolver.
func (t *Tracker) Record(ctx context.Context, opts build.Options) (*FileSet, error) {
	if opts.Config == nil || !opts.Config.Assembly.HasSource() {
		return nil, fmt.Errorf("%w: no assembly to track for image %q", build.ErrConfiguration, opts.ImageName)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	resolved, err := build.ResolveAssembly(ctx, t.resolver, assembly.Source{
		ProjectDir:   opts.ProjectDir,
		ArtifactFile: opts.ArtifactFile,
		Config:       opts.Config.Assembly,
		PassID:       assembly.PassTracking,
	})
	if err != nil {
		return nil, err
	}

	dirs := paths.ForImage(opts.BuildRoot, opts.ImageName)
	set := &FileSet{
		contentDir: dirs.ContentDir(),
		entries:    map[string]*Entry{},
	}
	for _, re := range resolved.Entries {
		entry := &Entry{
			Source: re.Source,
			Dest:   filepath.Join(set.contentDir, filepath.FromSlash(re.Dest)),
		}
		if err := entry.snapshot(); err != nil {
			return nil, err
		}
		set.entries[entry.Dest] = entry
	}

	t.images[opts.ImageName] = set
	return set, nil
}

// Reports whether the image has a registered file set.
func (t *Tracker) IsTracked(imageName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.images[imageName]
	return ok
}

// Returns the entries whose source content changed since registration
// or the previous check, sorted by destination.
//
// Snapshots of reported entries are refreshed, so a change is reported
// exactly once. Sources whose timestamp moved but whose content is
// identical are not reported. A source that disappeared is an error;
// removal is not a change this tracker can ship.
func (t *Tracker) Changed(imageName string) ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.images[imageName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotTracked, imageName)
	}

	var changed []Entry
	for _, entry := range set.entries {
		updated, err := entry.refresh()
		if err != nil {
			return nil, err
		}
		if updated {
			changed = append(changed, *entry)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Dest < changed[j].Dest })
	return changed, nil
}

// Stages the given entries into the image's scratch directory and packs
// them into an uncompressed tar archive, preserving each entry's path
// relative to the assembly content directory. Returns the archive path.
//
// Which entries count as changed is the caller's decision; [Tracker.Changed]
// computes one such subset, but any slice of tracked entries works.
func ChangedFilesArchive(entries []Entry, assemblyDir, imageName, buildRoot string) (string, error) {
	dirs := paths.ForImage(buildRoot, imageName)
	scratch := dirs.ChangedFilesDir()
	if err := paths.CleanDir(scratch); err != nil {
		return "", err
	}

	for _, entry := range entries {
		rel, err := filepath.Rel(assemblyDir, entry.Dest)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: destination %q is outside the assembly directory %s",
				paths.ErrFileSystemOperation, entry.Dest, assemblyDir)
		}
		if err := archive.CopyFile(entry.Source, filepath.Join(scratch, rel)); err != nil {
			return "", fmt.Errorf("%w: stage changed file: %w", paths.ErrFileSystemOperation, err)
		}
	}

	path := filepath.Join(dirs.TemporaryRoot, changedArchiveName)
	w, err := archive.Create(path, archive.None)
	if err != nil {
		return "", err
	}
	if err := w.AddFileSet(archive.FileSet{Dir: scratch}); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Records the source's current size, modification time, and content
// digest.
func (e *Entry) snapshot() error {
	info, err := os.Stat(e.Source)
	if err != nil {
		return fmt.Errorf("%w: snapshot %s: %w", paths.ErrFileSystemOperation, e.Source, err)
	}
	e.Size = info.Size()
	e.ModTime = info.ModTime()
	e.Digest, err = fileDigest(e.Source, info)
	return err
}

// Re-examines the source and reports whether its content changed,
// updating the snapshot either way.
//
// The digest is only recomputed when size or timestamp moved, so an
// unchanged tree costs one stat per entry.
func (e *Entry) refresh() (bool, error) {
	info, err := os.Stat(e.Source)
	if err != nil {
		return false, fmt.Errorf("%w: check %s: %w", paths.ErrFileSystemOperation, e.Source, err)
	}
	if info.Size() == e.Size && info.ModTime().Equal(e.ModTime) {
		return false, nil
	}

	dgst, err := fileDigest(e.Source, info)
	if err != nil {
		return false, err
	}
	changed := dgst != e.Digest
	e.Size = info.Size()
	e.ModTime = info.ModTime()
	e.Digest = dgst
	return changed, nil
}

// Canonical digest of a source's content. Directories digest as empty;
// their changes surface through the files beneath them.
func fileDigest(path string, info fs.FileInfo) (digest.Digest, error) {
	if info.IsDir() {
		return digest.FromBytes(nil), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: digest %s: %w", paths.ErrFileSystemOperation, path, err)
	}
	defer f.Close()

	dgst, err := digest.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("%w: digest %s: %w", paths.ErrFileSystemOperation, path, err)
	}
	return dgst, nil
}
