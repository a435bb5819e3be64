// Package markdown renders the bilingual Markdown report to HTML.
package markdown

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const reportCSS = `body{font-family:system-ui,sans-serif;max-width:60rem;margin:2rem auto;line-height:1.5}
blockquote[dir=rtl],.ar{font-family:"Amiri","Noto Naskh Arabic",serif;font-size:1.15em}
table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.25rem .5rem}`

func newParser() *parser.Parser {
	return parser.NewWithExtensions(parser.CommonExtensions | parser.Attributes | parser.Footnotes)
}

// ToHTML renders an HTML fragment.
func ToHTML(md []byte) string {
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	return string(markdown.Render(newParser().Parse(md), renderer))
}

// Page renders a complete standalone HTML document with an inline style
// sheet suited to mixed Arabic and English text.
func Page(title string, md []byte) []byte {
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.HrefTargetBlank | html.CompletePage,
		Head:  []byte("<style>" + reportCSS + "</style>\n"),
	})
	return markdown.Render(newParser().Parse(md), renderer)
}
