package extract

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// defaultNSPrefix is the synthetic prefix bound to the document's default
// namespace so unprefixed elements stay addressable from XPath.
const defaultNSPrefix = "ns"

func extractXPath(body []byte, path string) (any, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("response body is not valid XML: %w", err)
	}

	expr, err := xpath.CompileWithNS(path, namespaces(doc))
	if err != nil {
		return nil, fmt.Errorf("invalid XPath %q: %w", path, err)
	}

	nodes := xmlquery.QuerySelectorAll(doc, expr)
	switch len(nodes) {
	case 0:
		return nil, notFound(path, "no match")
	case 1:
		return nodes[0].InnerText(), nil
	default:
		values := make([]any, len(nodes))
		for i, n := range nodes {
			values[i] = n.InnerText()
		}
		return values, nil
	}
}

// namespaces collects every namespace declaration in the document. The
// default (unprefixed) namespace is rebound to defaultNSPrefix; the first
// declaration of a prefix wins.
func namespaces(doc *xmlquery.Node) map[string]string {
	ns := make(map[string]string)
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		if n.Type == xmlquery.ElementNode {
			for _, attr := range n.Attr {
				switch {
				case attr.Name.Local == "xmlns" && attr.Name.Space == "":
					if _, ok := ns[defaultNSPrefix]; !ok {
						ns[defaultNSPrefix] = attr.Value
					}
				case attr.Name.Space == "xmlns":
					if _, ok := ns[attr.Name.Local]; !ok {
						ns[attr.Name.Local] = attr.Value
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return ns
}
