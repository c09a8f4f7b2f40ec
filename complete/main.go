// Command codelet-complete requests a single completion for a file and
// prints it, or inserts it in place with -w.
//
// Usage:
//
//	codelet-complete -pos 3:12 app.js       # completion at line 3, column 12
//	codelet-complete -w main.py              # insert at end of file
//	cat app.ts | codelet-complete -lang typescript -
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"

	codelet "github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/generate"
)

func main() {
	lang := flag.String("lang", "", "language identifier (default: from file extension)")
	pos := flag.String("pos", "", "cursor position as line:column, zero-based (default: end of file)")
	write := flag.Bool("w", false, "insert the completion into the file")
	verbose := flag.Bool("verbose", false, "log prompts and stream details to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: codelet-complete [-lang id] [-pos line:col] [-w] file|-")
		os.Exit(2)
	}
	path := flag.Arg(0)

	if err := run(path, *lang, *pos, *write); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(path, lang, pos string, write bool) error {
	if write && path == "-" {
		return errors.New("-w needs a file, not stdin")
	}

	text, err := readSource(path)
	if err != nil {
		return err
	}

	if lang == "" {
		lang = languageFromPath(path)
		if lang == "" {
			return fmt.Errorf("cannot infer language of %s, use -lang", path)
		}
	}

	cursor := len(text)
	if pos != "" {
		line, col, err := parsePos(pos)
		if err != nil {
			return err
		}
		cursor = codelet.OffsetAt(text, line, col)
	}

	req := &codelet.Request{
		RequestID:  1,
		Text:       text,
		CursorPos:  cursor,
		LanguageID: lang,
	}
	if path != "-" {
		if abs, err := filepath.Abs(path); err == nil {
			req.Path = abs
		}
	}

	engine := generate.NewEngine(nil)
	defer engine.Close()

	resp := engine.Complete(context.Background(), req)
	if resp.Error != nil {
		return fmt.Errorf("[%s] %s", resp.Error.Code, resp.Error.Message)
	}
	if resp.Completion == "" {
		fmt.Fprintln(os.Stderr, "no completions available")
		return nil
	}

	if write {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		updated := insertAt(text, req.CursorPos, resp.Completion)
		if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}

	render(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), text[:req.CursorPos], resp.Completion)
	return nil
}

func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var extLanguages = map[string]string{
	".py":  "python",
	".pyi": "python",
	".js":  "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "typescript",
	".go":  "go",
	".rs":  "rust",
	".sh":  "shellscript",
}

// languageFromPath maps a file extension to an editor language identifier.
func languageFromPath(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

// parsePos parses a zero-based "line:column" position.
func parsePos(s string) (line, col int, err error) {
	ls, cs, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid position %q, want line:column", s)
	}
	line, err = strconv.Atoi(ls)
	if err != nil || line < 0 {
		return 0, 0, fmt.Errorf("invalid line in %q", s)
	}
	col, err = strconv.Atoi(cs)
	if err != nil || col < 0 {
		return 0, 0, fmt.Errorf("invalid column in %q", s)
	}
	return line, col, nil
}

// insertAt inserts completion into text at byte offset off.
func insertAt(text string, off int, completion string) string {
	return text[:off] + completion + text[off:]
}
