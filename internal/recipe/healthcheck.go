package recipe

import (
	"fmt"
	"strings"
)

// Health-check declaration for the generated recipe.
//
// Either None disables any inherited health check, or Cmd supplies the
// probe command with optional timing parameters (duration strings such
// as "30s").
type HealthCheck struct {
	None        bool
	Cmd         *Arguments
	Interval    string
	Timeout     string
	StartPeriod string
	Retries     int
}

// Serializes the health check as a single instruction line.
func (h *HealthCheck) instruction() (string, error) {
	if h.None {
		return "HEALTHCHECK NONE", nil
	}
	if h.Cmd == nil || len(h.Cmd.Exec) == 0 {
		return "", fmt.Errorf("%w: health check has no command", ErrInvalid)
	}

	var b strings.Builder
	b.WriteString("HEALTHCHECK")
	if h.Interval != "" {
		fmt.Fprintf(&b, " --interval=%s", h.Interval)
	}
	if h.Timeout != "" {
		fmt.Fprintf(&b, " --timeout=%s", h.Timeout)
	}
	if h.StartPeriod != "" {
		fmt.Fprintf(&b, " --start-period=%s", h.StartPeriod)
	}
	if h.Retries > 0 {
		fmt.Fprintf(&b, " --retries=%d", h.Retries)
	}
	b.WriteString(" CMD ")
	b.WriteString(h.Cmd.String())
	return b.String(), nil
}
