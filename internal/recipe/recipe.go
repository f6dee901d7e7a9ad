package recipe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Fixed filename of the generated recipe inside the output directory and
// the context archive.
const FileName = "Dockerfile"

var (
	// The recipe is missing required configuration.
	ErrInvalid = errors.New("invalid recipe configuration")

	// The mandatory base image was never set.
	ErrNoBaseImage = fmt.Errorf("%w: no base image configured", ErrInvalid)
)

// Content-inclusion instruction for the resolved assembly.
type contentInstruction struct {
	srcDir    string // Context subdirectory holding the assembly.
	targetDir string // Mount point inside the image.
	owner     string // User (or "user:group") owning the files, empty to keep root.
	volume    bool   // Whether targetDir is also exported as a volume.
}

// Accumulates the instructions of a generated recipe.
//
// Setters chain and may be called in any order; the document is
// validated when content is produced. The base image is mandatory.
type Builder struct {
	baseImage  string
	maintainer string
	env        map[string]string
	labels     map[string]string
	ports      []string
	runCmds    []string
	volumes    []string
	user       string
	workdir    string
	health     *HealthCheck
	content    *contentInstruction
	entrypoint *Arguments
	cmd        *Arguments
	shellCmd   string
	optimise   bool
}

// Creates an empty recipe builder.
func New() *Builder {
	return &Builder{
		env:    make(map[string]string),
		labels: make(map[string]string),
	}
}

// Sets the mandatory base image.
func (b *Builder) From(image string) *Builder {
	b.baseImage = image
	return b
}

// Sets the maintainer.
func (b *Builder) Maintainer(m string) *Builder {
	b.maintainer = m
	return b
}

// Merges environment variables into the recipe.
func (b *Builder) Env(env map[string]string) *Builder {
	for k, v := range env {
		b.env[k] = v
	}
	return b
}

// Merges labels into the recipe.
func (b *Builder) Labels(labels map[string]string) *Builder {
	for k, v := range labels {
		b.labels[k] = v
	}
	return b
}

// Declares exposed ports (e.g., "8080", "53/udp").
func (b *Builder) Expose(ports ...string) *Builder {
	b.ports = append(b.ports, ports...)
	return b
}

// Appends run commands, one instruction each unless optimised.
func (b *Builder) Run(cmds ...string) *Builder {
	b.runCmds = append(b.runCmds, cmds...)
	return b
}

// Declares image volumes.
func (b *Builder) Volumes(volumes ...string) *Builder {
	b.volumes = append(b.volumes, volumes...)
	return b
}

// Sets the user the image runs as.
func (b *Builder) User(user string) *Builder {
	b.user = user
	return b
}

// Sets the working directory.
func (b *Builder) Workdir(dir string) *Builder {
	b.workdir = dir
	return b
}

// Sets the health-check declaration.
func (b *Builder) HealthCheck(h *HealthCheck) *Builder {
	b.health = h
	return b
}

// Sets the single content-inclusion instruction for the resolved
// assembly: the context subdirectory to copy, the mount point, the
// owning user, and whether the mount point is exported as a volume.
func (b *Builder) Add(srcDir, targetDir, owner string, exportVolume bool) *Builder {
	b.content = &contentInstruction{
		srcDir:    srcDir,
		targetDir: targetDir,
		owner:     owner,
		volume:    exportVolume,
	}
	return b
}

// Sets the entrypoint in exec form.
func (b *Builder) Entrypoint(args *Arguments) *Builder {
	b.entrypoint = args
	return b
}

// Sets the command in exec form. Takes precedence over [Builder.CmdShell].
func (b *Builder) Cmd(args *Arguments) *Builder {
	b.cmd = args
	return b
}

// Sets the command from a legacy shell-form string.
//
// The string is wrapped into exec form when the document is produced. A
// structured command set via [Builder.Cmd] wins when both are present.
func (b *Builder) CmdShell(cmd string) *Builder {
	b.shellCmd = cmd
	return b
}

// Requests coalescing of adjacent run instructions into one.
func (b *Builder) Optimise() *Builder {
	b.optimise = true
	return b
}

// Produces the serialized recipe document.
func (b *Builder) Content() ([]byte, error) {
	if b.baseImage == "" {
		return nil, ErrNoBaseImage
	}

	var doc strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&doc, format+"\n", args...)
	}

	line("FROM %s", b.baseImage)
	if b.maintainer != "" {
		line("MAINTAINER %s", b.maintainer)
	}

	for _, k := range sortedKeys(b.env) {
		line("ENV %s=%s", k, quoteValue(b.env[k]))
	}
	for _, k := range sortedKeys(b.labels) {
		line("LABEL %s=%s", k, quoteValue(b.labels[k]))
	}

	if len(b.ports) > 0 {
		line("EXPOSE %s", strings.Join(b.ports, " "))
	}

	for _, cmd := range b.runInstructions() {
		line("RUN %s", cmd)
	}

	if b.content != nil {
		line("COPY %s %s", b.content.srcDir, b.content.targetDir)
		if b.content.owner != "" {
			line("RUN chown -R %s %s", b.content.owner, b.content.targetDir)
		}
		if b.content.volume {
			line("VOLUME [%q]", b.content.targetDir)
		}
	}

	for _, v := range b.volumes {
		line("VOLUME [%q]", v)
	}

	if b.workdir != "" {
		line("WORKDIR %s", b.workdir)
	}
	if b.user != "" {
		line("USER %s", b.user)
	}

	if b.health != nil {
		instruction, err := b.health.instruction()
		if err != nil {
			return nil, err
		}
		line("%s", instruction)
	}

	if b.entrypoint != nil {
		line("ENTRYPOINT %s", b.entrypoint.String())
	}
	if cmd := b.effectiveCmd(); cmd != nil {
		line("CMD %s", cmd.String())
	}

	return []byte(doc.String()), nil
}

// Serializes the recipe to its fixed filename in dir.
func (b *Builder) Write(dir string) error {
	content, err := b.Content()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write recipe %s: %w", path, err)
	}
	return nil
}

// Returns the run instructions to emit, coalesced when optimised.
//
// The run block is contiguous by construction, so joining it never moves
// an instruction across the content inclusion.
func (b *Builder) runInstructions() []string {
	if !b.optimise || len(b.runCmds) <= 1 {
		return b.runCmds
	}
	return []string{strings.Join(b.runCmds, " && ")}
}

// Resolves the effective command: structured form wins over the legacy
// shell form.
func (b *Builder) effectiveCmd() *Arguments {
	if b.cmd != nil {
		return b.cmd
	}
	if b.shellCmd != "" {
		return ParseShell(b.shellCmd)
	}
	return nil
}

// Quotes a value when it contains whitespace.
func quoteValue(v string) string {
	if strings.ContainsAny(v, " \t") {
		return fmt.Sprintf("%q", v)
	}
	return v
}

// Returns map keys in sorted order for deterministic output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
