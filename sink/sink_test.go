package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSink_WriteAndUniquify(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileSink(dir)

	p1, err := fs.Write("export.json", []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p1) != "export.json" {
		t.Fatalf("first write = %q", p1)
	}

	p2, err := fs.Write("export.json", []byte(`{"a":2}`))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p2) != "export (1).json" {
		t.Fatalf("second write = %q", p2)
	}

	p3, err := fs.Write("export.json", []byte(`{"a":3}`))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p3) != "export (2).json" {
		t.Fatalf("third write = %q", p3)
	}

	data, err := os.ReadFile(p1)
	if err != nil || string(data) != `{"a":1}` {
		t.Fatalf("first file overwritten: %q err=%v", data, err)
	}
}

func TestFileSink_CreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deep")
	fs := NewFileSink(dir)
	if _, err := fs.Write("x.md", []byte("# x")); err != nil {
		t.Fatal(err)
	}
}

func TestFileSink_StripsDirectoryEscape(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileSink(dir)
	p, err := fs.Write("../../evil.md", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(p) != dir {
		t.Fatalf("wrote outside root: %q", p)
	}
}

func TestGuessMime(t *testing.T) {
	cases := map[string]string{
		"a.md":    "text/markdown",
		"a.json":  "application/json",
		"a.html":  "text/html",
		"a.diff":  "text/x-diff",
		"a.patch": "text/x-diff",
		"a.log":   "text/plain",
	}
	for name, want := range cases {
		if got := GuessMime(name); got != want {
			t.Errorf("GuessMime(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if s.BaseFolder != filepath.Join("Documents", "codex_archive") {
		t.Fatalf("base folder = %q", s.BaseFolder)
	}
	if s.DefaultFormat != "json" {
		t.Fatalf("default format = %q", s.DefaultFormat)
	}
	if s.IncludeLogsByDefault {
		t.Fatal("logs should be opt-in")
	}
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := "base_folder: /exports\ndefault_format: md\ninclude_logs_by_default: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.BaseFolder != "/exports" || s.DefaultFormat != "md" || !s.IncludeLogsByDefault {
		t.Fatalf("settings = %+v", s)
	}
	if s.Root() != "/exports" {
		t.Fatalf("root = %q", s.Root())
	}
}

func TestLoadSettings_BadFormatFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("default_format: xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.DefaultFormat != "json" {
		t.Fatalf("format = %q", s.DefaultFormat)
	}
	if !strings.Contains(s.BaseFolder, "codex_archive") {
		t.Fatalf("base folder = %q", s.BaseFolder)
	}
}
