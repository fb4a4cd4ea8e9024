// Package assets embeds the editor page, its client JavaScript and CSS, and
// the help text
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed client/*
var clientFS embed.FS

//go:embed help.md
var helpMarkdown []byte

// ClientFS returns the embedded client files
func ClientFS() fs.FS {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetClientJS returns the editor JavaScript
func GetClientJS() ([]byte, error) {
	return clientFS.ReadFile("client/tinkerpen.js")
}

// GetClientCSS returns the editor stylesheet
func GetClientCSS() ([]byte, error) {
	return clientFS.ReadFile("client/tinkerpen.css")
}

// EditorPage holds the values injected into the editor page.
type EditorPage struct {
	Title     string
	SessionID string
}

var (
	editorOnce sync.Once
	editorTmpl *template.Template
	editorErr  error
)

// RenderEditor renders the editor page for one session.
func RenderEditor(page EditorPage) ([]byte, error) {
	editorOnce.Do(func() {
		editorTmpl, editorErr = template.ParseFS(clientFS, "client/editor.html")
	})
	if editorErr != nil {
		return nil, fmt.Errorf("parse editor page: %w", editorErr)
	}

	var buf bytes.Buffer
	if err := editorTmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render editor page: %w", err)
	}
	return buf.Bytes(), nil
}

// HelpMarkdown returns the raw help text.
func HelpMarkdown() []byte {
	return helpMarkdown
}

// RenderHelp converts the help text to a standalone HTML page.
func RenderHelp(title string) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)

	var body bytes.Buffer
	if err := md.Convert(helpMarkdown, &body); err != nil {
		return nil, fmt.Errorf("render help: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%s help</title>
  <link rel="stylesheet" href="/assets/tinkerpen.css">
</head>
<body class="help">
<article style="max-width: 48rem; margin: 2rem auto; padding: 0 1rem;">
%s</article>
</body>
</html>
`, template.HTMLEscapeString(title), body.String())
	return buf.Bytes(), nil
}
