package tinkerpen

import "strings"

// AssembleInline builds the compact document used by the preview surface.
// Fragments are inserted verbatim; nothing is escaped or validated, so
// malformed input yields a malformed document that the browser renders as
// best it can.
func AssembleInline(f Fragments) string {
	var b strings.Builder
	b.Grow(len(f.HTML) + len(f.CSS) + len(f.JS) + 96)

	b.WriteString("<!DOCTYPE html><html><head><style>")
	b.WriteString(f.CSS)
	b.WriteString("</style></head>\n<body>")
	b.WriteString(f.HTML)
	b.WriteString("<script>")
	b.WriteString(f.JS)
	b.WriteString("</script></body></html>")

	return b.String()
}

// AssemblePretty builds the human readable document used for copy and
// export. Each fragment sits on its own line region, byte for byte.
func AssemblePretty(f Fragments) string {
	var b strings.Builder
	b.Grow(len(f.HTML) + len(f.CSS) + len(f.JS) + 320)

	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString("<html lang=\"en\">\n")
	b.WriteString("<head>\n")
	b.WriteString("  <meta charset=\"UTF-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("  <title>Live Preview</title>\n")
	b.WriteString("  <style>\n")
	b.WriteString(f.CSS)
	b.WriteString("\n  </style>\n")
	b.WriteString("</head>\n")
	b.WriteString("<body>\n")
	b.WriteString(f.HTML)
	b.WriteString("\n  <script>\n")
	b.WriteString(f.JS)
	b.WriteString("\n  </script>\n")
	b.WriteString("</body>\n")
	b.WriteString("</html>\n")

	return b.String()
}
