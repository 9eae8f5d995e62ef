// Package walk builds a generic element tree from a token stream, so it can
// be diffed against an independent parse of the same document for
// conformance testing.
package walk

import (
	"fmt"

	"github.com/kastellan/xtokenizer"
)

// Attr is one name/value pair on an Element.
type Attr struct {
	Name  string
	Value string
}

// Element is a format-agnostic node: a tag name, its attributes in document
// order, its text content (concatenated across any Text tokens directly
// inside it), and its child elements in document order.
type Element struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Element
}

// Walk drives tok to completion and returns the root elements of the
// document (normally exactly one, for a well-formed document), or an error
// if the tokenizer records a fatal error.
func Walk(tok *xtokenizer.Tokenizer) ([]*Element, error) {
	var roots []*Element
	var stack []*Element
	var pendingAttrName string

	var tk xtokenizer.Token
	for tok.NextToken(&tk) {
		switch tk.Type {
		case xtokenizer.DocumentStart, xtokenizer.DocumentEnd:
			// no node to build
		case xtokenizer.StartTag:
			el := &Element{Name: string(tk.Data)}
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Children = append(top.Children, el)
			} else {
				roots = append(roots, el)
			}
			stack = append(stack, el)
		case xtokenizer.AttributeName:
			pendingAttrName = string(tk.Data)
		case xtokenizer.AttributeValue:
			top := stack[len(stack)-1]
			top.Attrs = append(top.Attrs, Attr{Name: pendingAttrName, Value: string(tk.Data)})
			pendingAttrName = ""
		case xtokenizer.Text:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Text += string(tk.Data)
			}
		case xtokenizer.EndTag, xtokenizer.EmptyTag:
			// A StartTag is always emitted before EmptyTag for the same
			// element, so the node to pop is already on the stack in
			// both cases.
			stack = stack[:len(stack)-1]
		case xtokenizer.Error:
			return roots, fmt.Errorf("walk: %s at %+v: %s", tk.Err.Code, tk.Err.Pos, tk.Err.Message())
		}
	}
	return roots, nil
}
