// Package redact masks secrets in source text before it is sent to a model.
package redact

import (
	"bytes"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// shellLanguages are editor language ids whose text is parsed as shell.
var shellLanguages = map[string]bool{
	"shellscript": true,
	"bash":        true,
	"sh":          true,
	"zsh":         true,
}

// safeVars are environment variables that are non-sensitive and useful context.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "LOGNAME": true,
	"TMPDIR": true, "XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true,
	"XDG_RUNTIME_DIR": true, "GOPATH": true, "GOROOT": true,
	"NODE_ENV": true, "VIRTUAL_ENV": true, "PYTHONPATH": true,
}

// Mask replaces redacted values.
const Mask = "***"

// reSecretName matches identifiers that usually hold credentials.
var reSecretName = regexp.MustCompile(`(?i)(secret|token|passw(or)?d|api_?key|access_?key|private_?key|credential)`)

// Text redacts secrets in text according to the document language.
// Shell documents are redacted on their syntax tree; everything else uses
// assignment patterns.
func Text(languageID, text string) string {
	if shellLanguages[languageID] {
		return Shell(text)
	}
	return Assignments(text)
}

// Shell replaces the values assigned to secret-looking variables in a shell
// script. Scripts that do not parse, which is common for prompts cut at the
// cursor, fall back to Assignments. Unchanged scripts are returned as-is so
// the printer never reformats them.
func Shell(script string) string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(script), "")
	if err != nil {
		return Assignments(script)
	}

	changed := false
	syntax.Walk(prog, func(node syntax.Node) bool {
		if n, ok := node.(*syntax.Assign); ok {
			if n.Name != nil && n.Value != nil && !safeVars[n.Name.Value] && reSecretName.MatchString(n.Name.Value) {
				n.Value.Parts = []syntax.WordPart{&syntax.Lit{Value: Mask}}
				changed = true
			}
		}
		return true
	})
	if !changed {
		return script
	}

	var buf bytes.Buffer
	printer := syntax.NewPrinter(syntax.Indent(0))
	if err := printer.Print(&buf, prog); err != nil {
		return Assignments(script)
	}
	out := buf.String()
	if !strings.HasSuffix(script, "\n") {
		out = strings.TrimRight(out, "\n")
	}
	return out
}

var (
	// NAME = "value", NAME: 'value', NAME := "value"
	reQuotedAssign = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)(\s*(?::=|=|:)\s*)("[^"\n]*"|'[^'\n]*'|` + "`[^`\\n]*`" + `)`)
	// NAME=value (env files, shell)
	reBareAssign = regexp.MustCompile(`(?m)^(\s*(?:export\s+)?)([A-Za-z_][A-Za-z0-9_]*)=([^\s"'` + "`" + `]+)`)
)

// Assignments masks string literals assigned to secret-looking names.
// The surrounding quotes are kept so the result still reads as code.
func Assignments(text string) string {
	text = reQuotedAssign.ReplaceAllStringFunc(text, func(m string) string {
		parts := reQuotedAssign.FindStringSubmatch(m)
		name, op, lit := parts[1], parts[2], parts[3]
		if safeVars[name] || !reSecretName.MatchString(name) {
			return m
		}
		q := lit[:1]
		return name + op + q + Mask + q
	})

	return reBareAssign.ReplaceAllStringFunc(text, func(m string) string {
		parts := reBareAssign.FindStringSubmatch(m)
		prefix, name := parts[1], parts[2]
		if safeVars[name] || !reSecretName.MatchString(name) {
			return m
		}
		return prefix + name + "=" + Mask
	})
}
