package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
)

const (

	// Legacy exclude marker. Kept for compatibility with existing projects.
	LegacyExcludeMarker = ".baler-ignore"

	// Current exclude marker.
	ExcludeMarker = ".baler-exclude"

	// Include marker. When present, its patterns form an exclusive
	// allow-list for the directory.
	IncludeMarker = ".baler-include"
)

// Filter rules loaded from a directory's marker files.
//
// The zero value (or a Rules loaded from a directory without markers)
// includes everything.
type Rules struct {
	includes []string
	excludes []string

	includeMatcher *patternmatcher.PatternMatcher
	excludeMatcher *patternmatcher.PatternMatcher
}

// Reads the marker files in dir and compiles them into filter rules.
//
// Exclusion patterns accumulate across both exclude markers when both are
// present. Each marker file that exists is itself added to the exclusions
// so that markers never leak into the packaged output. A missing directory
// or missing markers yield empty rules, not an error.
func Load(dir string) (*Rules, error) {
	r := &Rules{}

	for _, marker := range []string{ExcludeMarker, LegacyExcludeMarker} {
		path := filepath.Join(dir, marker)
		lines, ok, err := readLines(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		r.excludes = append(r.excludes, lines...)
		r.excludes = append(r.excludes, marker)
	}

	path := filepath.Join(dir, IncludeMarker)
	lines, ok, err := readLines(path)
	if err != nil {
		return nil, err
	}
	if ok {
		r.includes = lines
		r.excludes = append(r.excludes, IncludeMarker)
	}

	if err := r.compile(); err != nil {
		return nil, err
	}
	return r, nil
}

// Compiles the pattern lists into matchers.
func (r *Rules) compile() error {
	var err error
	if len(r.excludes) > 0 {
		if r.excludeMatcher, err = patternmatcher.New(r.excludes); err != nil {
			return fmt.Errorf("invalid exclude pattern: %w", err)
		}
	}
	if len(r.includes) > 0 {
		if r.includeMatcher, err = patternmatcher.New(r.includes); err != nil {
			return fmt.Errorf("invalid include pattern: %w", err)
		}
	}
	return nil
}

// Returns true if no marker file contributed any pattern.
func (r *Rules) Empty() bool {
	return r == nil || (len(r.includes) == 0 && len(r.excludes) == 0)
}

// Reports whether the slash-separated relative path should be included.
//
// Policy: exclusions always subtract. When an include allow-list is
// present it defines the universe, so a path must match an include
// pattern and not match an exclude pattern. Without includes, everything
// not excluded passes.
func (r *Rules) Match(relPath string) (bool, error) {
	if r.Empty() {
		return true, nil
	}
	relPath = filepath.ToSlash(relPath)

	if r.excludeMatcher != nil {
		excluded, err := r.excludeMatcher.MatchesOrParentMatches(relPath)
		if err != nil {
			return false, fmt.Errorf("match %q: %w", relPath, err)
		}
		if excluded {
			return false, nil
		}
	}

	if r.includeMatcher != nil {
		included, err := r.includeMatcher.MatchesOrParentMatches(relPath)
		if err != nil {
			return false, fmt.Errorf("match %q: %w", relPath, err)
		}
		return included, nil
	}

	return true, nil
}

// Reports whether the path matches an exclude pattern.
//
// Used by directory walkers to prune excluded subtrees without
// consulting the include allow-list (a directory that fails the
// allow-list may still contain files that pass it).
func (r *Rules) Excluded(relPath string) (bool, error) {
	if r.Empty() || r.excludeMatcher == nil {
		return false, nil
	}
	excluded, err := r.excludeMatcher.MatchesOrParentMatches(filepath.ToSlash(relPath))
	if err != nil {
		return false, fmt.Errorf("match %q: %w", relPath, err)
	}
	return excluded, nil
}

// Reads the pattern lines of a marker file.
//
// Blank lines and "#" comments are skipped. Returns ok=false when the
// file does not exist.
func readLines(path string) (lines []string, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, true, nil
}
