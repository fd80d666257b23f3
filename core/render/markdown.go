// Package render provides the built-in document engine.
// This file reduces Markdown to a flat list of blocks that every output
// format lays out in its own way.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockCode
	blockListItem
	blockRule
)

// block is one laid-out unit. depth counts list and quote nesting.
type block struct {
	kind  blockKind
	level int
	depth int
	text  string
}

var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func markdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParserInstance
}

// parseBlocks parses markdown into blocks in document order.
func parseBlocks(markdown string) []block {
	source := []byte(markdown)
	doc := markdownParser().Parser().Parse(text.NewReader(source))
	c := &blockCollector{source: source}
	c.children(doc, 0)
	return c.blocks
}

type blockCollector struct {
	source []byte
	blocks []block
}

func (c *blockCollector) children(parent ast.Node, depth int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		c.node(n, depth)
	}
}

func (c *blockCollector) node(n ast.Node, depth int) {
	switch node := n.(type) {
	case *ast.Heading:
		c.add(block{kind: blockHeading, level: node.Level, depth: depth, text: c.inline(node)})
	case *ast.Paragraph, *ast.TextBlock:
		c.add(block{kind: blockParagraph, depth: depth, text: c.inline(node)})
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		c.add(block{kind: blockCode, depth: depth, text: c.lines(node)})
	case *ast.List:
		c.list(node, depth)
	case *ast.Blockquote:
		c.children(node, depth+1)
	case *ast.ThematicBreak:
		c.add(block{kind: blockRule, depth: depth})
	case *extast.Table:
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, c.inline(cell))
			}
			c.add(block{kind: blockParagraph, depth: depth, text: strings.Join(cells, " | ")})
		}
	}
}

func (c *blockCollector) list(list *ast.List, depth int) {
	index := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "•"
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d.", index)
			index++
		}
		first := true
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				t := c.inline(child)
				if first {
					t = marker + " " + t
					first = false
				}
				c.add(block{kind: blockListItem, depth: depth + 1, text: t})
			default:
				c.node(child, depth+1)
			}
		}
		if first {
			c.add(block{kind: blockListItem, depth: depth + 1, text: marker})
		}
	}
}

func (c *blockCollector) add(b block) {
	if b.kind != blockRule && b.kind != blockCode && strings.TrimSpace(b.text) == "" {
		return
	}
	c.blocks = append(c.blocks, b)
}

// inline flattens the inline content of n to plain text.
func (c *blockCollector) inline(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(c.source))
			switch {
			case t.HardLineBreak():
				b.WriteByte('\n')
			case t.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.Label(c.source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// lines returns the raw content of a code block.
func (c *blockCollector) lines(n ast.Node) string {
	var b strings.Builder
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(c.source))
	}
	return strings.TrimRight(b.String(), "\n")
}

// title returns the first heading, if any.
func title(blocks []block) string {
	for _, b := range blocks {
		if b.kind == blockHeading {
			return b.text
		}
	}
	return ""
}
