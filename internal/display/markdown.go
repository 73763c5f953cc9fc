package display

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Raw HTML in model output is dropped; goldmark escapes it unless WithUnsafe is set.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders text as HTML. On a render failure the text is shown escaped.
func Markdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>") //nolint:gosec // escaped above
	}
	return template.HTML(buf.String()) //nolint:gosec // goldmark output without raw HTML passthrough
}
