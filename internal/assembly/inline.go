package assembly

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
)

// Placeholder in an item source that expands to the request's packaged
// artifact file.
const ArtifactToken = "${artifact}"

// An inline assembly definition: an ordered list of items.
type Spec struct {
	Items []Item
}

// One inline assembly item: a file or directory to place in the context.
//
// Includes and Excludes are .dockerignore-style patterns applied to paths
// relative to a directory source; they are ignored for plain file sources.
type Item struct {
	Source   string   // File or directory on disk, or [ArtifactToken].
	Dest     string   // Destination relative to the assembly root; a trailing "/" keeps the source base name.
	Includes []string // Allow-list patterns for directory sources.
	Excludes []string // Exclusion patterns for directory sources.
}

// Resolves inline assembly specs.
//
// Directory items are walked depth-first; include and exclude patterns
// are matched against slash-separated paths relative to the item source.
// The resolver performs no writes, so it is safe to share across
// production and tracking passes.
type InlineResolver struct{}

var _ Resolver = InlineResolver{}

// Resolves the request's inline spec into a single assembly.
//
// Requests that name a descriptor instead of an inline spec cannot be
// served by this resolver and fail with [ErrResolution].
func (InlineResolver) Resolve(ctx context.Context, src Source) ([]*Assembly, error) {
	if src.Config == nil || src.Config.Inline == nil {
		return nil, fmt.Errorf("%w: no inline assembly configured (descriptor resolution requires an external resolver)", ErrResolution)
	}

	a := &Assembly{ID: src.PassID}
	for i, item := range src.Config.Inline.Items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResolution, err)
		}
		entries, err := resolveItem(item, src)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", ErrResolution, i+1, err)
		}
		a.Entries = append(a.Entries, entries...)
	}

	return []*Assembly{a}, nil
}

// Resolves one item into entries.
func resolveItem(item Item, src Source) ([]Entry, error) {
	source := item.Source
	if strings.Contains(source, ArtifactToken) {
		if src.ArtifactFile == "" {
			return nil, fmt.Errorf("source %q uses %s but no artifact file is set", item.Source, ArtifactToken)
		}
		source = strings.ReplaceAll(source, ArtifactToken, src.ArtifactFile)
	}
	if !filepath.IsAbs(source) {
		source = filepath.Join(src.ProjectDir, source)
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat source %q: %w", source, err)
	}

	if !info.IsDir() {
		return []Entry{{Source: source, Dest: fileDest(item.Dest, filepath.Base(source))}}, nil
	}

	return resolveDirItem(item, source)
}

// Walks a directory source, applying the item's include/exclude patterns.
func resolveDirItem(item Item, dir string) ([]Entry, error) {
	includes, err := compilePatterns(item.Includes)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	excludes, err := compilePatterns(item.Excludes)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}

	var entries []Entry
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ok, err := selected(rel, includes, excludes)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		entries = append(entries, Entry{Source: p, Dest: path.Join(item.Dest, rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source %q: %w", dir, err)
	}

	return entries, nil
}

// Computes the destination for a single-file item.
//
// An empty dest or a trailing "/" keeps the source base name.
func fileDest(dest, base string) string {
	switch {
	case dest == "":
		return base
	case strings.HasSuffix(dest, "/"):
		return path.Join(dest, base)
	default:
		return path.Clean(dest)
	}
}

// Applies include and exclude matchers to a relative path.
func selected(rel string, includes, excludes *patternmatcher.PatternMatcher) (bool, error) {
	if excludes != nil {
		excluded, err := excludes.MatchesOrParentMatches(rel)
		if err != nil {
			return false, err
		}
		if excluded {
			return false, nil
		}
	}
	if includes != nil {
		return includes.MatchesOrParentMatches(rel)
	}
	return true, nil
}

// Compiles a pattern list, returning nil for an empty list.
func compilePatterns(patterns []string) (*patternmatcher.PatternMatcher, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	return patternmatcher.New(patterns)
}
