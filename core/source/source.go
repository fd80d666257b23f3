// Package source turns an input document into the markdown a template
// renders. Markdown passes through; HTML is reduced to its main content
// and converted.
package source

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are removed before conversion.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header",
	"iframe", "video", "audio", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
}

// IsHTML reports whether name looks like an HTML document.
func IsHTML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

// Prepare returns the markdown for the document called name.
func Prepare(name string, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !IsHTML(name) {
		return string(data), nil
	}
	content, err := Extract(string(data))
	if err != nil {
		return "", err
	}
	return ToMarkdown(content)
}

// Extract strips noise from a full HTML page and returns the best content
// container (<main>, then <article>, then <body>) as an HTML fragment.
func Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	for _, tag := range []string{"main", "article", "body"} {
		if sel := doc.Find(tag); sel.Length() > 0 {
			out, err := goquery.OuterHtml(sel.First())
			if err != nil {
				return "", fmt.Errorf("serializing content: %w", err)
			}
			return out, nil
		}
	}
	return "", fmt.Errorf("no content container found in HTML")
}

// ToMarkdown converts an HTML fragment into markdown.
func ToMarkdown(html string) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return markdown, nil
}
