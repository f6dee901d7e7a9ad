package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func contentLines(t *testing.T, b *Builder) []string {
	t.Helper()
	content, err := b.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func TestMinimalRecipe(t *testing.T) {
	lines := contentLines(t, New().From("scratch").Run("echo hi"))

	want := []string{
		"FROM scratch",
		"RUN echo hi",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestMissingBaseImage(t *testing.T) {
	_, err := New().Run("echo hi").Content()
	if !errors.Is(err, ErrNoBaseImage) {
		t.Fatalf("err = %v, want ErrNoBaseImage", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, should wrap ErrInvalid", err)
	}
}

func TestFullRecipeOrder(t *testing.T) {
	b := New().
		From("alpine:3.20").
		Maintainer("ops@example.com").
		Env(map[string]string{"B": "2", "A": "1"}).
		Labels(map[string]string{"team": "build"}).
		Expose("8080", "53/udp").
		Run("apk add curl", "adduser -D app").
		Add("bale", "/app", "app", true).
		Volumes("/data").
		Workdir("/app").
		User("app").
		HealthCheck(&HealthCheck{Cmd: Args("curl", "-f", "http://localhost:8080"), Interval: "30s", Retries: 3}).
		Entrypoint(Args("/app/run")).
		Cmd(Args("--serve"))

	lines := contentLines(t, b)
	want := []string{
		"FROM alpine:3.20",
		"MAINTAINER ops@example.com",
		"ENV A=1",
		"ENV B=2",
		"LABEL team=build",
		"EXPOSE 8080 53/udp",
		"RUN apk add curl",
		"RUN adduser -D app",
		"COPY bale /app",
		"RUN chown -R app /app",
		`VOLUME ["/app"]`,
		`VOLUME ["/data"]`,
		"WORKDIR /app",
		"USER app",
		`HEALTHCHECK --interval=30s --retries=3 CMD ["curl","-f","http://localhost:8080"]`,
		`ENTRYPOINT ["/app/run"]`,
		`CMD ["--serve"]`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestOptimiseCoalescesRuns(t *testing.T) {
	b := New().From("alpine").Run("a", "b", "c").Optimise()
	lines := contentLines(t, b)

	var runs []string
	for _, l := range lines {
		if strings.HasPrefix(l, "RUN ") {
			runs = append(runs, l)
		}
	}
	if len(runs) != 1 {
		t.Fatalf("got %d RUN instructions, want 1: %q", len(runs), runs)
	}
	if runs[0] != "RUN a && b && c" {
		t.Fatalf("RUN = %q, want %q", runs[0], "RUN a && b && c")
	}
}

func TestStructuredCmdWinsOverShell(t *testing.T) {
	b := New().From("alpine").Cmd(Args("structured")).CmdShell("legacy form")
	lines := contentLines(t, b)

	last := lines[len(lines)-1]
	if last != `CMD ["structured"]` {
		t.Fatalf("CMD = %q, want structured form to win", last)
	}
}

func TestShellCmdWrapped(t *testing.T) {
	b := New().From("alpine").CmdShell("echo hello world")
	lines := contentLines(t, b)

	last := lines[len(lines)-1]
	if last != `CMD ["echo","hello","world"]` {
		t.Fatalf("CMD = %q, want wrapped exec form", last)
	}
}

func TestParseShell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple",
			input: "echo hi",
			want:  []string{"echo", "hi"},
		},
		{
			name:  "collapsed whitespace",
			input: "echo   hi\tthere",
			want:  []string{"echo", "hi", "there"},
		},
		{
			name:  "escaped space",
			input: `cat My\ File.txt`,
			want:  []string{"cat", "My File.txt"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseShell(tt.input).Exec
			if len(got) != len(tt.want) {
				t.Fatalf("args = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("args = %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestArgumentsString(t *testing.T) {
	a := Args("sh", "-c", `say "hi"`)
	want := `["sh","-c","say \"hi\""]`
	if got := a.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestHealthCheckNone(t *testing.T) {
	b := New().From("alpine").HealthCheck(&HealthCheck{None: true})
	lines := contentLines(t, b)
	if lines[len(lines)-1] != "HEALTHCHECK NONE" {
		t.Fatalf("last line = %q, want HEALTHCHECK NONE", lines[len(lines)-1])
	}
}

func TestHealthCheckWithoutCommand(t *testing.T) {
	_, err := New().From("alpine").HealthCheck(&HealthCheck{}).Content()
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestEnvQuoting(t *testing.T) {
	b := New().From("alpine").Env(map[string]string{"GREETING": "hello world"})
	lines := contentLines(t, b)
	if lines[1] != `ENV GREETING="hello world"` {
		t.Fatalf("ENV line = %q", lines[1])
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	if err := New().From("scratch").Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "FROM scratch\n" {
		t.Fatalf("content = %q", b)
	}
}

func TestWriteInvalid(t *testing.T) {
	if err := New().Write(t.TempDir()); !errors.Is(err, ErrNoBaseImage) {
		t.Fatalf("err = %v, want ErrNoBaseImage", err)
	}
}
