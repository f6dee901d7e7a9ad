package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/balerhq/baler/internal/archive"
	"github.com/balerhq/baler/internal/assembly"
	"github.com/balerhq/baler/internal/ignore"
	"github.com/balerhq/baler/internal/paths"
	"github.com/balerhq/baler/internal/recipe"
)

// Base filename of the context archive; the compression suffix is
// appended.
const archiveBaseName = "docker-build"

// Controls one context build.
type Options struct {
	ImageName    string  // Image name, used to derive the working directories.
	ProjectDir   string  // Root for resolving the recipe file and assembly sources.
	BuildRoot    string  // Build root override; empty selects the default.
	ArtifactFile string  // Packaged build artifact for the assembly artifact token.
	Config       *Config // Build configuration.
}

// Declares how the image is built.
type Config struct {
	RecipeFile string // User-supplied recipe file; empty selects generated mode.

	From        string
	Maintainer  string
	Env         map[string]string
	Labels      map[string]string
	Ports       []string
	RunCmds     []string
	Volumes     []string
	User        string
	Workdir     string
	HealthCheck *recipe.HealthCheck
	Entrypoint  *recipe.Arguments
	Cmd         *recipe.Arguments
	ShellCmd    string // Legacy shell-form command; Cmd wins when both are set.
	Optimise    bool

	Compression archive.Compression
	Assembly    *assembly.Config
}

// Returned after a successful context build.
type Result struct {
	Archive      string // Path to the context archive.
	InnerArchive string // Path to the packed assembly archive, when an archive mode was used.
}

// Adds content to the context archive, possibly wrapping the writer.
//
// Exactly one content customizer is active per build; wrappers perform
// their own work and then delegate to the wrapped customizer.
type Customizer func(*archive.Writer) (*archive.Writer, error)

// Recipe source for a build, decided once per invocation.
type recipeSource int

const (
	// No assembly and no user recipe file; a recipe is generated
	// without a content-inclusion instruction.
	noAssembly recipeSource = iota

	// The configured recipe file's parent directory supplies the
	// context, filtered by its marker files.
	userRecipeDir

	// A recipe is generated from the configuration alongside the
	// resolved assembly.
	generatedRecipe
)

func (s recipeSource) String() string {
	switch s {
	case userRecipeDir:
		return "recipe-dir"
	case generatedRecipe:
		return "generated"
	default:
		return "no-assembly"
	}
}

// Decides the recipe source from the configuration.
//
// The transition is a pure function of "is a recipe file explicitly
// configured"; it is evaluated once and never changes after archive
// creation begins.
func decideSource(cfg *Config) recipeSource {
	if cfg.RecipeFile != "" {
		return userRecipeDir
	}
	if cfg.Assembly.HasSource() {
		return generatedRecipe
	}
	return noAssembly
}

// Builds the full context archive for an image.
//
// Working directories are derived from the image name, the assembly (if
// configured) is resolved and materialized into the staging output
// directory, the recipe source is decided, and the archive is written to
// the temporary root with the configured compression. The caller owns
// cleanup of the working directories.
func Run(ctx context.Context, resolver assembly.Resolver, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("%w: no build configuration", ErrConfiguration)
	}
	if opts.ImageName == "" {
		return nil, fmt.Errorf("%w: no image name", ErrConfiguration)
	}

	dirs := paths.ForImage(opts.BuildRoot, opts.ImageName)
	if err := dirs.Create(); err != nil {
		return nil, err
	}

	source := decideSource(cfg)
	slog.Debug("building context",
		"image", opts.ImageName,
		"output", dirs.Output,
		"source", source,
	)

	result := &Result{}

	if cfg.Assembly.HasSource() {
		inner, err := materializeAssembly(ctx, resolver, opts, dirs)
		if err != nil {
			return nil, err
		}
		result.InnerArchive = inner
	}

	customizer, err := contentCustomizer(source, opts, dirs)
	if err != nil {
		return nil, err
	}

	if cfg.Assembly != nil && cfg.Assembly.Permissions.NormalizeExec() {
		customizer = normalizePermissions(customizer)
	}

	archivePath, err := writeArchive(cfg, dirs, customizer, result.InnerArchive)
	if err != nil {
		return nil, err
	}
	result.Archive = archivePath

	slog.Info("context archive created", "image", opts.ImageName, "archive", archivePath)
	return result, nil
}

// Resolves an assembly request, requiring exactly one resolved assembly.
func ResolveAssembly(ctx context.Context, resolver assembly.Resolver, src assembly.Source) (*assembly.Assembly, error) {
	if resolver == nil {
		return nil, fmt.Errorf("%w: assembly configured but no resolver supplied", ErrConfiguration)
	}

	assemblies, err := resolver.Resolve(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	if len(assemblies) != 1 {
		return nil, fmt.Errorf("%w: exactly one assembly can be used for the build context (got %d)",
			ErrConfiguration, len(assemblies))
	}
	return assemblies[0], nil
}

// Resolves the assembly with the production pass ID and stages its files
// under the content directory. Archive modes additionally pack the
// staged files into an inner archive; the inner archive path is returned
// for later reference as the packaged artifact.
func materializeAssembly(ctx context.Context, resolver assembly.Resolver, opts Options, dirs paths.Dirs) (string, error) {
	cfg := opts.Config.Assembly

	resolved, err := ResolveAssembly(ctx, resolver, assembly.Source{
		ProjectDir:   opts.ProjectDir,
		ArtifactFile: opts.ArtifactFile,
		Config:       cfg,
		PassID:       assembly.PassProduction,
	})
	if err != nil {
		return "", err
	}

	contentDir := dirs.ContentDir()
	if err := paths.CleanDir(contentDir); err != nil {
		return "", err
	}

	for _, entry := range resolved.Entries {
		dest := filepath.Join(contentDir, filepath.FromSlash(entry.Dest))
		if err := archive.CopyFile(entry.Source, dest); err != nil {
			return "", fmt.Errorf("%w: stage assembly entry: %w", paths.ErrFileSystemOperation, err)
		}
	}
	slog.Debug("assembly materialized", "entries", len(resolved.Entries), "dir", contentDir)

	if !cfg.Mode.IsArchive() {
		return "", nil
	}

	inner := filepath.Join(dirs.Output, paths.ContentDirName+"."+cfg.Mode.Extension())
	if err := archive.Pack(contentDir, inner, cfg.Mode); err != nil {
		return "", err
	}
	slog.Debug("assembly packed", "archive", inner, "mode", cfg.Mode)
	return inner, nil
}

// Builds the content customizer for the decided recipe source.
func contentCustomizer(source recipeSource, opts Options, dirs paths.Dirs) (Customizer, error) {
	if source == userRecipeDir {
		return userRecipeCustomizer(opts)
	}
	return generatedRecipeCustomizer(source, opts, dirs)
}

// Content customizer for user-supplied recipe directories: validates the
// configured recipe file and adds its entire parent directory as a file
// set filtered by the directory's marker files.
func userRecipeCustomizer(opts Options) (Customizer, error) {
	recipeFile := opts.Config.RecipeFile
	if !filepath.IsAbs(recipeFile) {
		recipeFile = filepath.Join(opts.ProjectDir, recipeFile)
	}

	if _, err := os.Stat(recipeFile); err != nil {
		return nil, fmt.Errorf("%w: configured recipe file %q doesn't exist (resolved to %q)",
			ErrConfiguration, opts.Config.RecipeFile, recipeFile)
	}

	verifyRecipeFile(recipeFile, opts.Config)

	dir := filepath.Dir(recipeFile)
	return func(w *archive.Writer) (*archive.Writer, error) {
		rules, err := ignore.Load(dir)
		if err != nil {
			return nil, err
		}
		if err := w.AddFileSet(archive.FileSet{Dir: dir, Rules: rules}); err != nil {
			return nil, err
		}
		return w, nil
	}, nil
}

// Content customizer for generated recipes: writes the recipe into the
// staging output directory and adds just that file under its fixed name.
func generatedRecipeCustomizer(source recipeSource, opts Options, dirs paths.Dirs) (Customizer, error) {
	builder, err := recipeBuilder(source, opts.Config)
	if err != nil {
		return nil, err
	}
	if err := builder.Write(dirs.Output); err != nil {
		return nil, fmt.Errorf("%w: cannot create recipe in %s: %w", ErrConfiguration, dirs.Output, err)
	}

	generated := filepath.Join(dirs.Output, recipe.FileName)
	return func(w *archive.Writer) (*archive.Writer, error) {
		if err := w.AddFile(generated, recipe.FileName); err != nil {
			return nil, err
		}
		return w, nil
	}, nil
}

// Wraps a content customizer with executable-bit normalization.
//
// Forcing the bit silently changes file metadata, so the wrapper warns
// through the logger before delegating.
func normalizePermissions(next Customizer) Customizer {
	return func(w *archive.Writer) (*archive.Writer, error) {
		slog.Warn("assembly permissions are normalized: all files in the context get the executable bit set")
		w.ForceExec(true)
		return next(w)
	}
}

// Assembles a recipe builder from the build configuration.
func recipeBuilder(source recipeSource, cfg *Config) (*recipe.Builder, error) {
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: no base image configured for the generated recipe", ErrConfiguration)
	}

	b := recipe.New().
		Env(cfg.Env).
		Labels(cfg.Labels).
		Expose(cfg.Ports...).
		Run(cfg.RunCmds...).
		Volumes(cfg.Volumes...).
		User(cfg.User)

	if cfg.Maintainer != "" {
		b.Maintainer(cfg.Maintainer)
	}
	if cfg.Workdir != "" {
		b.Workdir(cfg.Workdir)
	}

	if source == generatedRecipe {
		a := cfg.Assembly
		b.Add(paths.ContentDirName, a.Target(), a.User, a.ExportTarget)
	}

	b.From(cfg.From)

	if cfg.HealthCheck != nil {
		b.HealthCheck(cfg.HealthCheck)
	}
	if cfg.Cmd != nil {
		b.Cmd(cfg.Cmd)
	} else if cfg.ShellCmd != "" {
		b.CmdShell(cfg.ShellCmd)
	}
	if cfg.Entrypoint != nil {
		b.Entrypoint(cfg.Entrypoint)
	}
	if cfg.Optimise {
		b.Optimise()
	}

	return b, nil
}

// Creates the context archive and applies the customizer chain followed
// by the staged assembly content.
func writeArchive(cfg *Config, dirs paths.Dirs, customizer Customizer, innerArchive string) (string, error) {
	path := filepath.Join(dirs.TemporaryRoot, archiveBaseName+"."+cfg.Compression.Suffix())

	base, err := archive.Create(path, cfg.Compression)
	if err != nil {
		return "", err
	}

	w, err := customizer(base)
	if err != nil {
		base.Close()
		return "", err
	}

	if cfg.Assembly.HasSource() {
		if cfg.Assembly.Mode.IsArchive() {
			err = w.AddArchived(innerArchive, paths.ContentDirName, cfg.Assembly.Mode)
		} else {
			err = w.AddFileSet(archive.FileSet{Dir: dirs.ContentDir(), Prefix: paths.ContentDirName})
		}
		if err != nil {
			w.Close()
			return "", err
		}
	}

	if err := w.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Placeholder for recipe-content verification.
//
// TODO: warn when a user-supplied recipe never references the assembly
// content directory (a COPY/ADD of the content token), since such builds
// silently drop the assembly.
func verifyRecipeFile(recipeFile string, cfg *Config) {
}
