package output

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in model output is kept by goldmark and cleaned by the UGC
// policy afterwards, so tables and links survive and scripts do not.
var (
	gfm = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	ugc = bluemonday.UGCPolicy()
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
pre { background: #f6f8fa; padding: 0.75rem; overflow-x: auto; }
code { font-family: ui-monospace, monospace; }
</style>
</head>
<body>
%s
</body>
</html>
`

// HTMLPage renders a review.md document as a standalone HTML page.
func HTMLPage(title, markdown string) string {
	return fmt.Sprintf(pageTemplate, html.EscapeString(title), renderBody(markdown))
}

// renderBody is the sanitised page body for markdown.
func renderBody(markdown string) string {
	if markdown == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := gfm.Convert([]byte(markdown), &buf); err != nil {
		return "<pre>" + html.EscapeString(markdown) + "</pre>"
	}
	return ugc.Sanitize(buf.String())
}
