package internal

import (
	"strconv"
	"sync/atomic"
)

// Output-mode toggles, seeded from linker flags and queried by the CLI
// when it configures the logger.
var (
	quietMode   atomic.Bool
	debugMode   atomic.Bool
	verboseMode atomic.Bool
)

// Seeds the toggles from the raw ldflags values.
//
// Unset or unparsable values leave a toggle off. Command-line flags are
// combined with these at logger configuration time; they are defaults,
// not overrides.
func init() {
	seed(&quietMode, rawQuiet)
	seed(&debugMode, rawDebug)
	seed(&verboseMode, rawVerbose)
}

func seed(b *atomic.Bool, raw string) {
	if v, err := strconv.ParseBool(raw); err == nil {
		b.Store(v)
	}
}

// Returns true if the build defaults to quiet output.
func IsQuiet() bool {
	return quietMode.Load()
}

// Returns true if the build defaults to debug output.
func IsDebug() bool {
	return debugMode.Load()
}

// Returns true if the build defaults to verbose output.
func IsVerbose() bool {
	return verboseMode.Load()
}
