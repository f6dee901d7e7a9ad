package recipe

import "strings"

// Entrypoint or command arguments in exec (structured) form.
type Arguments struct {
	Exec []string
}

// Builds arguments from an explicit exec-form list.
func Args(args ...string) *Arguments {
	return &Arguments{Exec: args}
}

// Wraps a shell-form command string into exec form.
//
// The string is split on unescaped whitespace; a backslash escapes the
// following character. Quoting is not interpreted.
func ParseShell(s string) *Arguments {
	var (
		args    []string
		current strings.Builder
		escaped bool
	)

	flush := func() {
		if current.Len() > 0 {
			args = append(args, current.String())
			current.Reset()
		}
	}

	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ' ' || r == '\t':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return &Arguments{Exec: args}
}

// Serializes the arguments as a JSON-style exec-form array.
func (a *Arguments) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, arg := range a.Exec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(escapeArg(arg))
		b.WriteByte('"')
	}
	b.WriteByte(']')
	return b.String()
}

// Escapes backslashes and double quotes for exec-form serialization.
func escapeArg(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
