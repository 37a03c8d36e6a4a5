// Package xmlpos reads XML documents into a small element tree in which every
// element remembers where its start tag appeared in the source.
package xmlpos

import (
	"encoding/xml"
	"fmt"
)

// Position is a location within a source document. Line and Column are
// 1-based when known and zero otherwise.
type Position struct {
	Line   int
	Column int
	Source string
}

// At returns a position with no line information inside source.
func At(source string) Position {
	return Position{Source: source}
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Source, p.Line, p.Column)
}

// Attr is a single attribute. Name is the qualified name as written
// (for example "id" or "xml:lang").
type Attr struct {
	Name  string
	Value string
}

// Element is a parsed XML element.
type Element struct {
	// Name holds the prefix (not the namespace URI) in Space, as written in
	// the source document.
	Name     xml.Name
	Attrs    []Attr
	Children []*Element
	Pos      Position

	text []byte
}

// Tag returns the qualified tag name, e.g. "dc:title".
func (e *Element) Tag() string {
	return qualified(e.Name)
}

// LocalName returns the tag name without any prefix.
func (e *Element) LocalName() string {
	return e.Name.Local
}

// Attr returns the value of the named attribute and whether it was present.
// An attribute written as name="" is present with an empty value.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// Text returns the concatenated character data of the element and all of its
// descendants, in document order.
func (e *Element) Text() string {
	return string(e.text)
}

// ChildrenNamed returns the direct children whose local name is local.
func (e *Element) ChildrenNamed(local string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// Document is a parsed XML document.
type Document struct {
	Source string
	Root   *Element
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
