// Parses flags and configures logging for the baler CLI.
//
// The CLI accepts the following global flags:
//
//	-q, --quiet        Suppress informational output.
//	-v, --verbose      Enable verbose output.
//	-d, --debug        Enable debug output.
//	-r, --build-root   Build root directory.
//
// Flags override build-time defaults set via linker flags. After parsing,
// the global logger is reconfigured to reflect the final level before the
// selected command runs.
package cli
