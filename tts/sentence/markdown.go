package sentence

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PlainText extracts speakable text from a markdown document. Code blocks
// and raw HTML are dropped, links are read by their text, and headings,
// paragraphs and list items end as sentences.
func PlainText(markdown string) string {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var buf bytes.Buffer
	walkNode(doc, reader.Source(), &buf)

	return strings.TrimSpace(buf.String())
}

// walkNode recursively walks the AST and extracts text content.
func walkNode(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte(' ')
		}
		return

	case *ast.CodeSpan:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return

	case *ast.AutoLink:
		buf.Write(n.Label(source))
		return

	case *ast.Heading, *ast.Paragraph, *ast.ListItem:
		walkChildren(n, source, buf)
		endSentence(buf)
		return

	case *ast.ThematicBreak:
		endSentence(buf)
		return
	}

	walkChildren(node, source, buf)
}

func walkChildren(node ast.Node, source []byte, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walkNode(c, source, buf)
	}
}

// endSentence terminates the text written so far with a period unless it
// already ends with punctuation, and leaves exactly one trailing space.
func endSentence(buf *bytes.Buffer) {
	trimmed := bytes.TrimRightFunc(buf.Bytes(), unicode.IsSpace)
	buf.Truncate(len(trimmed))
	if len(trimmed) == 0 {
		return
	}

	last := len(trimmed)
	for last > 0 {
		r, size := utf8.DecodeLastRune(trimmed[:last])
		if !isCloser(r) {
			if !isTerminator(r) && r != ':' && r != ';' {
				buf.WriteByte('.')
			}
			break
		}
		last -= size
	}
	buf.WriteByte(' ')
}
