package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is a core.Container backed by a goquery selection.
type Element struct {
	sel *goquery.Selection
}

// NewElement wraps sel. Mutations apply to every node in the selection.
func NewElement(sel *goquery.Selection) *Element {
	return &Element{sel: sel}
}

// SetMarkup replaces the children with parsed markup.
func (e *Element) SetMarkup(markup string) {
	e.sel.SetHtml(markup)
}

// SetPreformatted replaces the children with a single <pre> holding text.
func (e *Element) SetPreformatted(text string) {
	e.sel.SetHtml("<pre></pre>")
	e.sel.ChildrenFiltered("pre").SetText(text)
}

// HTML returns the inner markup of the first node.
func (e *Element) HTML() (string, error) {
	return e.sel.Html()
}

// previewContainerID is the id of the element a Page renders into.
const previewContainerID = "preview"

const pageTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>%s</title>
<style>
html, body { margin: 0; height: 100%%; }
#preview { height: 100%%; overflow: auto; }
#preview pre { padding: 1rem; white-space: pre-wrap; }
</style>
</head>
<body><div id="preview"></div></body>
</html>`

// Page is a standalone HTML document with one preview container.
type Page struct {
	doc *goquery.Document
}

// NewPage builds an empty preview page.
func NewPage(title string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fmt.Sprintf(pageTemplate, html.EscapeString(title))))
	if err != nil {
		return nil, fmt.Errorf("parsing preview page: %w", err)
	}
	return &Page{doc: doc}, nil
}

// Container returns the preview container.
func (p *Page) Container() *Element {
	return NewElement(p.doc.Find("#" + previewContainerID))
}

// HTML serializes the whole page.
func (p *Page) HTML() (string, error) {
	return p.doc.Html()
}
