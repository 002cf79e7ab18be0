package evaluate

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

// Agent answers are Markdown. Raw HTML is passed through so the text
// extraction below can drop the tags.
var markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe()))

// PlainText renders a Markdown answer and returns its visible text with
// whitespace collapsed. On a rendering failure the answer is returned with
// whitespace collapsed.
func PlainText(answer string) string {
	if answer == "" {
		return ""
	}
	var rendered bytes.Buffer
	if err := markdown.Convert([]byte(answer), &rendered); err != nil {
		return collapseSpace(answer)
	}
	doc, err := html.Parse(&rendered)
	if err != nil {
		return collapseSpace(answer)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) {
			sb.WriteByte(' ')
		}
	}
	walk(doc)
	return collapseSpace(sb.String())
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "li", "br", "tr", "td", "th", "pre", "blockquote", "div",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "table", "hr":
		return true
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
