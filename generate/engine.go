// Package generate turns editor requests into model completions.
package generate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	codelet "github.com/Paranoid-AF/codelet"
	defaults "github.com/Paranoid-AF/codelet/default"
	"github.com/Paranoid-AF/codelet/metrics"
	"github.com/Paranoid-AF/codelet/redact"
	"github.com/Paranoid-AF/codelet/stream"
)

// failureMessage is shown to the user for any transport or stream failure;
// the underlying error is logged instead.
const failureMessage = "failed to fetch completion"

// Completer sends a prompt to the model and returns the accumulated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, stream.Stats, error)
}

// Engine filters requests, builds prompts and maps completion outcomes
// to responses.
type Engine struct {
	completer    Completer
	projects     *ProjectCache // nil when project context is disabled
	config       *codelet.Config
	customPrompt string // loaded custom prompt template (empty = use default)
	metrics      *metrics.Recorder
}

// NewEngine creates an engine from the user's configuration.
// rec may be nil.
func NewEngine(rec *metrics.Recorder) *Engine {
	cfg, err := codelet.LoadConfig()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = codelet.DefaultConfig()
	}

	customPrompt := loadCustomPrompt()
	if customPrompt == "" {
		slog.Debug("no custom prompt, using built-in default")
	}

	dispatcher := NewDispatcher(
		NewHTTPClient(codelet.Timeout(cfg)),
		codelet.ResolveEndpoint(cfg),
		codelet.ResolveModel(cfg),
	)

	e := NewEngineWithCompleter(cfg, dispatcher, rec)
	e.customPrompt = customPrompt
	return e
}

// NewEngineWithCompleter creates an engine with a custom Completer.
func NewEngineWithCompleter(cfg *codelet.Config, completer Completer, rec *metrics.Recorder) *Engine {
	e := &Engine{
		completer: completer,
		config:    cfg,
		metrics:   rec,
	}
	if codelet.ContextEnabled(cfg) {
		e.projects = NewProjectCache(time.Duration(cfg.Context.TTLMinutes) * time.Minute)
	}
	return e
}

// loadCustomPrompt loads a custom prompt template.
// Returns empty string if no custom prompt exists.
func loadCustomPrompt() string {
	promptPath := codelet.PromptPath()
	data, err := os.ReadFile(promptPath)
	if err != nil {
		return ""
	}
	slog.Info("loaded custom prompt", "path", promptPath)
	return string(data)
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *codelet.Config { return e.config }

// Close releases resources held by the engine.
func (e *Engine) Close() {
	if e.projects != nil {
		e.projects.Close()
	}
}

// Complete processes a completion request and returns a response.
func (e *Engine) Complete(ctx context.Context, req *codelet.Request) *codelet.Response {
	if !codelet.LanguageSupported(e.config, req.LanguageID) {
		e.metrics.Completion(metrics.OutcomeUnsupported, 0)
		return &codelet.Response{
			Error: &codelet.Error{
				Code:    codelet.CodeUnsupportedLanguage,
				Message: "language not supported for completion: " + req.LanguageID,
			},
		}
	}

	if req.CursorPos < 0 {
		return &codelet.Response{
			Error: &codelet.Error{
				Code:    codelet.CodeInvalidRequest,
				Message: "cursor_pos must not be negative",
			},
		}
	}
	if req.CursorPos > len(req.Text) {
		req.CursorPos = len(req.Text)
	}

	prompt := e.BuildPrompt(req)
	slog.Debug("prompt", "language", req.LanguageID, "path", req.Path, "prompt", prompt)

	start := time.Now()
	text, stats, err := e.completer.Complete(ctx, prompt)
	elapsed := time.Since(start)
	e.metrics.Stream(stats)

	if err != nil {
		slog.Error("completion error", "error", err, "language", req.LanguageID, "elapsed", elapsed)
		e.metrics.Completion(metrics.OutcomeError, elapsed)
		return &codelet.Response{
			Error: &codelet.Error{
				Code:    codelet.CodeAPIError,
				Message: failureMessage,
			},
		}
	}

	if text == "" {
		slog.Debug("no completion", "elapsed", elapsed, "lines", stats.Lines)
		e.metrics.Completion(metrics.OutcomeEmpty, elapsed)
		return &codelet.Response{}
	}

	e.metrics.Completion(metrics.OutcomeOK, elapsed)
	return &codelet.Response{Completion: text}
}

// PromptData holds the data passed to the prompt template.
type PromptData struct {
	Before     string // document text before the cursor
	After      string // document text after the cursor
	LanguageID string
	Path       string
	FileName   string
	Project    *ProjectContext // nil unless project context is enabled and found
}

var promptFuncs = template.FuncMap{
	"trimSpace": strings.TrimSpace,
	"lastLines": func(n int, s string) string {
		lines := strings.Split(s, "\n")
		if len(lines) > n {
			lines = lines[len(lines)-n:]
		}
		return strings.Join(lines, "\n")
	},
}

// BuildPrompt renders the prompt template for req. The default template is
// the document text before the cursor.
func (e *Engine) BuildPrompt(req *codelet.Request) string {
	data := PromptData{
		Before:     req.Text[:req.CursorPos],
		After:      req.Text[req.CursorPos:],
		LanguageID: req.LanguageID,
		Path:       req.Path,
	}
	if req.Path != "" {
		data.FileName = filepath.Base(req.Path)
	}
	if codelet.RedactSecretsEnabled(e.config) {
		data.Before = redact.Text(req.LanguageID, data.Before)
		data.After = redact.Text(req.LanguageID, data.After)
	}
	if e.projects != nil {
		data.Project = e.projects.Lookup(req.Path)
	}

	tmplSrc := e.customPrompt
	if tmplSrc == "" {
		tmplSrc = defaults.DefaultPrompt
	}
	tmplSrc = defaults.TemplateSource(tmplSrc)

	t, err := template.New("prompt").Funcs(promptFuncs).Parse(tmplSrc)
	if err != nil {
		slog.Warn("failed to parse prompt template, falling back to default", "error", err)
		t = defaultTemplate()
	}

	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		slog.Warn("failed to execute prompt template, falling back to default", "error", err)
		buf.Reset()
		defaultTemplate().Execute(&buf, data)
	}
	return buf.String()
}

func defaultTemplate() *template.Template {
	return template.Must(template.New("prompt").Funcs(promptFuncs).Parse(defaults.TemplateSource(defaults.DefaultPrompt)))
}
