package xmlpos

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// ParsingError reports a document that is not well-formed.
type ParsingError struct {
	Position Position
	Msg      string
	Err      error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Position, e.Msg)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

// Read parses the document in r. source names the document in positions and
// errors. Read does not close r.
//
// Tokens are read without namespace translation so that element and attribute
// names keep the prefixes they were written with.
func Read(source string, r io.Reader) (*Document, error) {
	d := xml.NewDecoder(r)
	d.Strict = true
	d.CharsetReader = charset.NewReaderLabel

	var (
		stack []*Element
		root  *Element
	)

	for {
		line, column := d.InputPos()
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, tokenizerError(source, d, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && root != nil {
				return nil, syntaxError(source, line, column,
					fmt.Sprintf("unexpected element <%s> after the root element", qualified(t.Name)))
			}
			el := &Element{
				Name: t.Name,
				Pos:  Position{Line: line, Column: column, Source: source},
			}
			if len(t.Attr) > 0 {
				el.Attrs = make([]Attr, 0, len(t.Attr))
				for _, a := range t.Attr {
					el.Attrs = append(el.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
				}
			}
			stack = append(stack, el)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, syntaxError(source, line, column,
					fmt.Sprintf("unexpected end element </%s>", qualified(t.Name)))
			}
			el := stack[len(stack)-1]
			if el.Name != t.Name {
				return nil, syntaxError(source, line, column,
					fmt.Sprintf("element <%s> closed by </%s>", el.Tag(), qualified(t.Name)))
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = el
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, el)
			parent.text = append(parent.text, el.text...)

		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.text = append(top.text, t...)
				continue
			}
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, syntaxError(source, line, column, "character data outside the root element")
			}
		}
	}

	if len(stack) > 0 {
		line, column := d.InputPos()
		return nil, syntaxError(source, line, column,
			fmt.Sprintf("unexpected end of document: element <%s> is not closed", stack[len(stack)-1].Tag()))
	}
	if root == nil {
		return nil, syntaxError(source, 0, 0, "document has no root element")
	}

	return &Document{Source: source, Root: root}, nil
}

func syntaxError(source string, line, column int, msg string) *ParsingError {
	return &ParsingError{
		Position: Position{Line: line, Column: column, Source: source},
		Msg:      msg,
		Err:      &xml.SyntaxError{Msg: msg, Line: line},
	}
}

// tokenizerError converts a decoder failure. Syntax errors carry the
// decoder's position; anything else (a failing reader, an unknown charset)
// has no meaningful position.
func tokenizerError(source string, d *xml.Decoder, err error) *ParsingError {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		line, column := d.InputPos()
		if se.Line != line {
			column = 0
		}
		return &ParsingError{
			Position: Position{Line: se.Line, Column: column, Source: source},
			Msg:      se.Msg,
			Err:      err,
		}
	}
	return &ParsingError{
		Position: Position{Source: source},
		Msg:      err.Error(),
		Err:      err,
	}
}
