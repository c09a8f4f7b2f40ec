package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParsePos(t *testing.T) {
	tests := []struct {
		in        string
		line, col int
		wantErr   bool
	}{
		{"0:0", 0, 0, false},
		{"3:12", 3, 12, false},
		{"12", 0, 0, true},
		{"a:1", 0, 0, true},
		{"1:b", 0, 0, true},
		{"-1:0", 0, 0, true},
	}
	for _, tt := range tests {
		line, col, err := parsePos(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePos(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if line != tt.line || col != tt.col {
			t.Errorf("parsePos(%q) = %d:%d, want %d:%d", tt.in, line, col, tt.line, tt.col)
		}
	}
}

func TestLanguageFromPath(t *testing.T) {
	tests := map[string]string{
		"main.py":        "python",
		"src/app.JS":     "javascript",
		"web/index.tsx":  "typescript",
		"README.md":      "",
		"Makefile":       "",
		"scripts/run.sh": "shellscript",
	}
	for path, want := range tests {
		if got := languageFromPath(path); got != want {
			t.Errorf("languageFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestInsertAt(t *testing.T) {
	if got := insertAt("let x = ;", 8, "42"); got != "let x = 42;" {
		t.Errorf("unexpected result %q", got)
	}
	if got := insertAt("abc", 3, "d"); got != "abcd" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestRenderPlain(t *testing.T) {
	var b strings.Builder
	render(&b, false, "line one\nconsole.log(", "42);")
	if b.String() != "42);" {
		t.Errorf("expected verbatim completion, got %q", b.String())
	}
}

func TestRenderTerminal(t *testing.T) {
	var b strings.Builder
	render(&b, true, "line one\nconsole.log(", "42);")
	got := b.String()
	if strings.Contains(got, "line one") {
		t.Errorf("expected only the cursor line, got %q", got)
	}
	if !strings.Contains(got, "console.log(") || !strings.Contains(got, "42);") {
		t.Errorf("expected lead and completion, got %q", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Errorf("expected trailing newline, got %q", got)
	}
}

func TestRunWritesCompletion(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"response\":\"42\"}\n{\"response\":\"\",\"done\":true}\n"))
	}))
	defer ollama.Close()

	t.Setenv("CODELET_CONFIG_DIR", t.TempDir())
	t.Setenv("CODELET_ENDPOINT", ollama.URL)
	t.Setenv("CODELET_MODEL", "")

	path := filepath.Join(t.TempDir(), "app.js")
	os.WriteFile(path, []byte("let x = ;\n"), 0644)

	if err := run(path, "", "0:8", true); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "let x = 42;\n" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestRunUnsupportedLanguage(t *testing.T) {
	t.Setenv("CODELET_CONFIG_DIR", t.TempDir())

	path := filepath.Join(t.TempDir(), "main.rs")
	os.WriteFile(path, []byte("fn main() {}\n"), 0644)

	err := run(path, "", "", false)
	if err == nil || !strings.Contains(err.Error(), "unsupported_language") {
		t.Errorf("expected unsupported_language error, got %v", err)
	}
}

func TestRunUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("hello"), 0644)

	if err := run(path, "", "", false); err == nil {
		t.Error("expected error for unknown extension")
	}
}

func TestRunWriteNeedsFile(t *testing.T) {
	if err := run("-", "python", "", true); err == nil {
		t.Error("expected error for -w with stdin")
	}
}
