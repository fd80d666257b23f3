package render

import (
	"strings"
)

// renderText lays blocks out as plain text. Headings are underlined,
// code is indented, and list nesting is kept.
func renderText(blocks []block) []byte {
	var b strings.Builder
	for i, blk := range blocks {
		indent := strings.Repeat("  ", blk.depth)
		switch blk.kind {
		case blockHeading:
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(blk.text + "\n")
			underline := "-"
			if blk.level == 1 {
				underline = "="
			}
			b.WriteString(strings.Repeat(underline, len([]rune(blk.text))) + "\n\n")
		case blockCode:
			for _, line := range strings.Split(blk.text, "\n") {
				b.WriteString(indent + "    " + line + "\n")
			}
			b.WriteString("\n")
		case blockListItem:
			for _, line := range strings.Split(blk.text, "\n") {
				b.WriteString(indent + line + "\n")
			}
			if i+1 == len(blocks) || blocks[i+1].kind != blockListItem {
				b.WriteString("\n")
			}
		case blockRule:
			b.WriteString(strings.Repeat("-", 40) + "\n\n")
		default:
			for _, line := range wrap(blk.text, 78-len(indent)) {
				b.WriteString(indent + line + "\n")
			}
			b.WriteString("\n")
		}
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n")
}
