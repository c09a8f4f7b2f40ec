// Package defaults embeds the default prompt template and configuration.
package defaults

import (
	_ "embed"
	"strings"
)

//go:embed default_prompt.md
var DefaultPrompt string

//go:embed default_config.json
var DefaultConfigJSON []byte

// TemplateSource strips the single trailing newline that editors add to
// template files, so it does not end up in every prompt.
func TemplateSource(src string) string {
	src = strings.TrimSuffix(src, "\n")
	return strings.TrimSuffix(src, "\r")
}
