package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain name",
			input: "app",
			want:  "app",
		},
		{
			name:  "repo and tag",
			input: "myorg/app:1.0",
			want:  "myorg-app-1.0",
		},
		{
			name:  "registry with port",
			input: "registry.example.com:5000/app",
			want:  "registry.example.com-5000-app",
		},
		{
			name:  "kept punctuation",
			input: "a.b_c-d",
			want:  "a.b_c-d",
		},
		{
			name:  "spaces and stars",
			input: "a b*c",
			want:  "a-b-c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestForImage(t *testing.T) {
	d := ForImage("/build-root", "myorg/app:1.0")

	wantOutput := filepath.Join("/build-root", "myorg-app-1.0", "build")
	if d.Output != wantOutput {
		t.Fatalf("Output = %q, want %q", d.Output, wantOutput)
	}

	wantTmp := filepath.Join("/build-root", "myorg-app-1.0", "tmp")
	if d.TemporaryRoot != wantTmp {
		t.Fatalf("TemporaryRoot = %q, want %q", d.TemporaryRoot, wantTmp)
	}

	wantContent := filepath.Join(wantOutput, "bale")
	if d.ContentDir() != wantContent {
		t.Fatalf("ContentDir = %q, want %q", d.ContentDir(), wantContent)
	}

	wantChanged := filepath.Join(wantTmp, "changed-files")
	if d.ChangedFilesDir() != wantChanged {
		t.Fatalf("ChangedFilesDir = %q, want %q", d.ChangedFilesDir(), wantChanged)
	}
}

func TestForImageDefaultRoot(t *testing.T) {
	d := ForImage("", "app")
	if d.Output == "" || d.TemporaryRoot == "" {
		t.Fatalf("empty directories from default root: %+v", d)
	}
	rel, err := filepath.Rel(Root(), d.Output)
	if err != nil || rel == "" || rel[0] == '.' {
		t.Fatalf("Output %q not under default root %q", d.Output, Root())
	}
}

func TestCreate(t *testing.T) {
	root := t.TempDir()
	d := ForImage(root, "app")

	if err := d.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, dir := range []string{d.Output, d.TemporaryRoot} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}

	// Creating again must be a no-op.
	if err := d.Create(); err != nil {
		t.Fatalf("second Create: %v", err)
	}
}

func TestCleanDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")

	// Missing directory is created.
	if err := CleanDir(dir); err != nil {
		t.Fatalf("CleanDir on missing dir: %v", err)
	}

	stale := filepath.Join(dir, "stale.txt")
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	if err := CleanDir(dir); err != nil {
		t.Fatalf("CleanDir on populated dir: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("directory not emptied, %d entries remain", len(entries))
	}
}
