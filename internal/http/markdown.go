package http

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// Chart references in exported reports are bare file names; rewrite them to
// the static mount before rendering.
var imageRefPattern = regexp.MustCompile(`\]\(([\w.-]+\.png)\)`)

// renderMarkdown converts an exported report to HTML.
func renderMarkdown(source []byte) (template.HTML, error) {
	source = imageRefPattern.ReplaceAll(source, []byte(`](/reports/$1)`))

	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
