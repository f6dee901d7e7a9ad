package assembly

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// Pass IDs distinguishing the two resolutions of a build cycle.
const (
	PassProduction = "docker"  // Materializes files for the context archive.
	PassTracking   = "tracker" // Records file correlations only.
)

// Default mount point for assembly content inside the image.
const DefaultTargetDir = "/bale"

// The resolver could not produce an assembly.
var ErrResolution = errors.New("assembly resolution failed")

// Packaging mode for the resolved assembly.
type Mode int

const (
	// Files are placed individually in the context.
	ModeDir Mode = iota

	// Files are first packed into an inner tar archive.
	ModeTar

	// Files are first packed into an inner gzip-compressed tar archive.
	ModeTarGz

	// Files are first packed into an inner zip archive.
	ModeZip
)

// Parses a packaging mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "dir":
		return ModeDir, nil
	case "tar":
		return ModeTar, nil
	case "tgz", "tar.gz":
		return ModeTarGz, nil
	case "zip":
		return ModeZip, nil
	default:
		return ModeDir, fmt.Errorf("unknown assembly mode %q", s)
	}
}

// Returns true when the mode packs the assembly into an inner archive
// before placement in the context.
func (m Mode) IsArchive() bool {
	return m != ModeDir
}

// Returns the file extension of the inner archive for this mode.
func (m Mode) Extension() string {
	switch m {
	case ModeTar:
		return "tar"
	case ModeTarGz:
		return "tar.gz"
	case ModeZip:
		return "zip"
	default:
		return ""
	}
}

func (m Mode) String() string {
	switch m {
	case ModeDir:
		return "dir"
	case ModeTar:
		return "tar"
	case ModeTarGz:
		return "tgz"
	case ModeZip:
		return "zip"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Policy for normalizing file permissions in the packaged assembly.
type PermissionMode int

const (
	// Original file modes are preserved bit-for-bit.
	PermKeep PermissionMode = iota

	// Every regular file gets its executable bit forced on.
	PermExec

	// Exec normalization only on platforms whose filesystems do not
	// track an executable bit natively.
	PermAuto
)

// Parses a permission mode name.
func ParsePermissionMode(s string) (PermissionMode, error) {
	switch s {
	case "", "keep":
		return PermKeep, nil
	case "exec":
		return PermExec, nil
	case "auto":
		return PermAuto, nil
	default:
		return PermKeep, fmt.Errorf("unknown permission mode %q", s)
	}
}

// Returns true when this policy requires forcing the executable bit on
// the current platform.
func (p PermissionMode) NormalizeExec() bool {
	return p == PermExec || (p == PermAuto && runtime.GOOS == "windows")
}

func (p PermissionMode) String() string {
	switch p {
	case PermKeep:
		return "keep"
	case PermExec:
		return "exec"
	case PermAuto:
		return "auto"
	default:
		return fmt.Sprintf("permissions(%d)", int(p))
	}
}

// Declares how the assembly for a build is resolved and packaged.
//
// Exactly one of Inline, Descriptor, or DescriptorRef supplies the
// content; a Config with none of them set contributes no content and the
// build runs in recipe-only mode.
type Config struct {
	Inline        *Spec          // Inline assembly definition.
	Descriptor    string         // Path to an assembly descriptor file.
	DescriptorRef string         // Well-known descriptor identifier.
	TargetDir     string         // Mount point inside the image; defaults to [DefaultTargetDir].
	Mode          Mode           // Packaging mode.
	User          string         // User (or "user:group") owning the unpacked files.
	Permissions   PermissionMode // Permission-normalization policy.
	ExportTarget  bool           // Whether TargetDir is also declared as an image volume.
}

// Returns true when the configuration names any content source.
func (c *Config) HasSource() bool {
	return c != nil && (c.Inline != nil || c.Descriptor != "" || c.DescriptorRef != "")
}

// Returns the configured mount point, falling back to the default.
func (c *Config) Target() string {
	if c == nil || c.TargetDir == "" {
		return DefaultTargetDir
	}
	return c.TargetDir
}

// One resolved file: a source on disk and its destination path relative
// to the assembly root.
type Entry struct {
	Source string
	Dest   string
}

// A resolved assembly: the concrete file list for one pass.
//
// The ID is carried for diagnostics and tracking correlation only.
// Entries are immutable once produced.
type Assembly struct {
	ID      string
	Entries []Entry
}

// Describes one resolution request.
type Source struct {
	ProjectDir   string  // Root for resolving relative item sources.
	ArtifactFile string  // Packaged build artifact substituted for the artifact token.
	Config       *Config // Assembly declaration to resolve.
	PassID       string  // [PassProduction] or [PassTracking].
}

// Produces resolved assemblies from a resolution request.
//
// Implementations must apply identical filter rules regardless of the
// pass ID, so production and tracking passes agree on the reported path
// set. A request that cannot be resolved fails with an error wrapping
// [ErrResolution].
type Resolver interface {
	Resolve(ctx context.Context, src Source) ([]*Assembly, error)
}
