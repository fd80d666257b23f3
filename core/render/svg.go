// Package render — SVG output.
// A single tall page of <text> lines; good enough for inline previews.
package render

import (
	"fmt"
	"html"
	"strings"
)

const (
	svgWidth     = 800
	svgMargin    = 32
	svgBodySize  = 14
	svgCodeSize  = 12
	svgWrapWidth = 90 // characters per body line
)

// renderSVG converts blocks into an SVG document.
func renderSVG(blocks []block) []byte {
	var body strings.Builder
	y := svgMargin

	line := func(x, size int, weight, family, text string) {
		y += size + size/2
		fmt.Fprintf(&body, `<text x="%d" y="%d" font-family="%s" font-size="%d" font-weight="%s" xml:space="preserve">%s</text>`+"\n",
			x, y, family, size, weight, html.EscapeString(text))
	}

	for _, b := range blocks {
		x := svgMargin + b.depth*20
		switch b.kind {
		case blockHeading:
			size := int(headingSizes[b.level] * 1.4)
			if size == 0 {
				size = svgBodySize
			}
			y += size / 2
			for _, l := range wrap(b.text, svgWrapWidth*svgBodySize/size) {
				line(x, size, "bold", "Helvetica, Arial, sans-serif", l)
			}
		case blockCode:
			for _, l := range strings.Split(b.text, "\n") {
				line(x, svgCodeSize, "normal", "Courier, monospace", l)
			}
			y += svgCodeSize / 2
		case blockRule:
			y += svgBodySize
			fmt.Fprintf(&body, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#b4b4b4"/>`+"\n",
				svgMargin, y, svgWidth-svgMargin, y)
		default:
			for _, l := range wrap(b.text, svgWrapWidth-b.depth*3) {
				line(x, svgBodySize, "normal", "Helvetica, Arial, sans-serif", l)
			}
			if b.kind == blockParagraph {
				y += svgBodySize / 2
			}
		}
	}
	height := y + svgMargin

	var out strings.Builder
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		svgWidth, height, svgWidth, height)
	fmt.Fprintf(&out, `<rect width="100%%" height="100%%" fill="#ffffff"/>`+"\n")
	out.WriteString(body.String())
	out.WriteString("</svg>\n")
	return []byte(out.String())
}

// wrap splits text into lines of at most width runes, breaking on spaces.
// Explicit newlines are kept.
func wrap(text string, width int) []string {
	if width < 10 {
		width = 10
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, w := range words[1:] {
			if len([]rune(current))+1+len([]rune(w)) > width {
				lines = append(lines, current)
				current = w
				continue
			}
			current += " " + w
		}
		lines = append(lines, current)
	}
	return lines
}
