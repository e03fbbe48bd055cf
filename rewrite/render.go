package rewrite

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Param: true, atom.Source: true,
	atom.Track: true, atom.Wbr: true,
}

// RenderPretty serializes a parsed document with one node per line and
// single-space indentation, dropping insignificant whitespace. The output
// is stable: pretty-printing an already pretty document reproduces it byte
// for byte.
func RenderPretty(root *html.Node) []byte {
	var buf bytes.Buffer
	renderNode(&buf, root, 0)
	return buf.Bytes()
}

func renderNode(buf *bytes.Buffer, n *html.Node, depth int) {
	indent := strings.Repeat(" ", depth)

	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(buf, c, depth)
		}
	case html.DoctypeNode:
		buf.WriteString("<!DOCTYPE " + n.Data + ">\n")
	case html.CommentNode:
		buf.WriteString(indent + "<!--" + n.Data + "-->\n")
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return
		}
		if n.Parent != nil && rawTextElement(n.Parent.DataAtom) {
			buf.WriteString(indent + text + "\n")
			return
		}
		buf.WriteString(indent + html.EscapeString(text) + "\n")
	case html.ElementNode:
		buf.WriteString(indent + "<" + n.Data)
		for _, a := range n.Attr {
			buf.WriteString(" " + a.Key + `="` + html.EscapeString(a.Val) + `"`)
		}
		if voidElements[n.DataAtom] && n.FirstChild == nil {
			buf.WriteString("/>\n")
			return
		}
		buf.WriteString(">\n")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(buf, c, depth+1)
		}
		buf.WriteString(indent + "</" + n.Data + ">\n")
	}
}

// rawTextElement reports whether children are raw text that must not be
// entity-escaped.
func rawTextElement(a atom.Atom) bool {
	return a == atom.Script || a == atom.Style
}
