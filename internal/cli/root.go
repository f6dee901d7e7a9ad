package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/balerhq/baler/internal"
)

// Represents the root command for the baler CLI.
var RootCmd struct {
	Quiet     bool       `short:"q" help:"Suppress informational output."`
	Verbose   bool       `short:"v" help:"Enable verbose output."`
	Debug     bool       `short:"d" help:"Enable debug output."`
	BuildRoot string     `short:"r" help:"Override the default build root directory." placeholder:"DIR"`
	Build     BuildCmd   `cmd:"" help:"Assemble a build context archive."`
	Track     TrackCmd   `cmd:"" help:"Watch assembly sources and emit changed-files archives."`
	Version   VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The baler build-context assembler.\n\nStages assembly content, generates or validates the recipe, and packs everything into a context archive for the container engine."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelWarn
	}

	verbose := RootCmd.Verbose || internal.IsVerbose()

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:     level,
		NoColor:   !isatty(os.Stderr),
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler).WithGroup(internal.Name))
}

// Whether the given file is an interactive terminal.
func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
