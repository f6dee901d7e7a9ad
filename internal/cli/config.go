package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/balerhq/baler/internal/archive"
	"github.com/balerhq/baler/internal/assembly"
	"github.com/balerhq/baler/internal/build"
	"github.com/balerhq/baler/internal/recipe"
)

// Default name of the build configuration file, looked up in the
// context directory.
const DefaultConfigFile = "baler.yaml"

// On-disk build configuration.
//
// Mirrors [build.Config] with string-typed enumerations so the file
// stays readable; Load converts and validates.
type configFile struct {
	Image      string `yaml:"image"`
	RecipeFile string `yaml:"recipe-file"`

	From        string            `yaml:"from"`
	Maintainer  string            `yaml:"maintainer"`
	Env         map[string]string `yaml:"env"`
	Labels      map[string]string `yaml:"labels"`
	Ports       []string          `yaml:"ports"`
	Run         []string          `yaml:"run"`
	Volumes     []string          `yaml:"volumes"`
	User        string            `yaml:"user"`
	Workdir     string            `yaml:"workdir"`
	Entrypoint  []string          `yaml:"entrypoint"`
	Cmd         []string          `yaml:"cmd"`
	ShellCmd    string            `yaml:"shell-cmd"`
	Optimise    bool              `yaml:"optimise"`
	HealthCheck *healthFile       `yaml:"healthcheck"`

	Compression string        `yaml:"compression"`
	Artifact    string        `yaml:"artifact"`
	Assembly    *assemblyFile `yaml:"assembly"`
}

type healthFile struct {
	None        bool     `yaml:"none"`
	Cmd         []string `yaml:"cmd"`
	Interval    string   `yaml:"interval"`
	Timeout     string   `yaml:"timeout"`
	StartPeriod string   `yaml:"start-period"`
	Retries     int      `yaml:"retries"`
}

type assemblyFile struct {
	TargetDir    string     `yaml:"target-dir"`
	Mode         string     `yaml:"mode"`
	User         string     `yaml:"user"`
	Permissions  string     `yaml:"permissions"`
	ExportTarget bool       `yaml:"export-target"`
	Descriptor   string     `yaml:"descriptor"`
	Items        []itemFile `yaml:"items"`
}

type itemFile struct {
	Source   string   `yaml:"source"`
	Dest     string   `yaml:"dest"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// Reads a build configuration file and converts it into build options.
//
// The context directory becomes the project directory for resolving the
// recipe file and assembly sources.
func Load(path, contextDir string) (build.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return build.Options{}, fmt.Errorf("%w: read %s: %w", build.ErrConfiguration, path, err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return build.Options{}, fmt.Errorf("%w: parse %s: %w", build.ErrConfiguration, path, err)
	}

	return file.options(contextDir)
}

func (f *configFile) options(contextDir string) (build.Options, error) {
	if f.Image == "" {
		return build.Options{}, fmt.Errorf("%w: no image name configured", build.ErrConfiguration)
	}

	compression, err := archive.ParseCompression(f.Compression)
	if err != nil {
		return build.Options{}, fmt.Errorf("%w: %w", build.ErrConfiguration, err)
	}

	cfg := &build.Config{
		RecipeFile:  f.RecipeFile,
		From:        f.From,
		Maintainer:  f.Maintainer,
		Env:         f.Env,
		Labels:      f.Labels,
		Ports:       f.Ports,
		RunCmds:     f.Run,
		Volumes:     f.Volumes,
		User:        f.User,
		Workdir:     f.Workdir,
		ShellCmd:    f.ShellCmd,
		Optimise:    f.Optimise,
		Compression: compression,
	}
	if len(f.Entrypoint) > 0 {
		cfg.Entrypoint = recipe.Args(f.Entrypoint...)
	}
	if len(f.Cmd) > 0 {
		cfg.Cmd = recipe.Args(f.Cmd...)
	}
	if f.HealthCheck != nil {
		check := &recipe.HealthCheck{
			None:        f.HealthCheck.None,
			Interval:    f.HealthCheck.Interval,
			Timeout:     f.HealthCheck.Timeout,
			StartPeriod: f.HealthCheck.StartPeriod,
			Retries:     f.HealthCheck.Retries,
		}
		if len(f.HealthCheck.Cmd) > 0 {
			check.Cmd = recipe.Args(f.HealthCheck.Cmd...)
		}
		cfg.HealthCheck = check
	}

	if f.Assembly != nil {
		cfg.Assembly, err = f.Assembly.config()
		if err != nil {
			return build.Options{}, err
		}
	}

	return build.Options{
		ImageName:    f.Image,
		ProjectDir:   contextDir,
		ArtifactFile: f.Artifact,
		Config:       cfg,
	}, nil
}

func (a *assemblyFile) config() (*assembly.Config, error) {
	mode, err := assembly.ParseMode(a.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", build.ErrConfiguration, err)
	}
	perms, err := assembly.ParsePermissionMode(a.Permissions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", build.ErrConfiguration, err)
	}

	cfg := &assembly.Config{
		TargetDir:    a.TargetDir,
		Mode:         mode,
		User:         a.User,
		Permissions:  perms,
		ExportTarget: a.ExportTarget,
		Descriptor:   a.Descriptor,
	}
	if len(a.Items) > 0 {
		spec := &assembly.Spec{}
		for _, item := range a.Items {
			spec.Items = append(spec.Items, assembly.Item{
				Source:   item.Source,
				Dest:     item.Dest,
				Includes: item.Includes,
				Excludes: item.Excludes,
			})
		}
		cfg.Inline = spec
	}
	return cfg, nil
}
