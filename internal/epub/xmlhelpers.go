package epub

import (
	"errors"

	"github.com/yuanying/epubparse/internal/diag"
	"github.com/yuanying/epubparse/internal/xmlpos"
)

// The following errors abort the smallest enclosing unit (a package or the
// container). Their diagnostics have already been emitted when returned.
var (
	errMissingElement = errors.New("epub: required element missing")
	errNotWellFormed  = errors.New("epub: document is not well-formed")
	errInvalidPackage = errors.New("epub: package document rejected")
)

// requireChild returns the only direct child of el named name. Any other
// count is reported and yields false.
func requireChild(log *diag.Logger, el *xmlpos.Element, name string) (*xmlpos.Element, bool) {
	found := el.ChildrenNamed(name)
	if len(found) != 1 {
		log.ElementError(el, diag.MsgRequireNode, name, el.Tag(), len(found))
		return nil, false
	}
	return found[0], true
}

// requireChildStrict is requireChild for elements without which parsing
// cannot continue at all.
func requireChildStrict(log *diag.Logger, el *xmlpos.Element, name string) (*xmlpos.Element, error) {
	child, ok := requireChild(log, el, name)
	if !ok {
		return nil, errMissingElement
	}
	return child, nil
}

// requireChildren returns every direct child of el named name, failing with
// errMissingElement when there are none.
func requireChildren(log *diag.Logger, el *xmlpos.Element, name string) ([]*xmlpos.Element, error) {
	found := el.ChildrenNamed(name)
	if len(found) == 0 {
		log.ElementError(el, diag.MsgRequireNodes, name, el.Tag(), 0)
		return nil, errMissingElement
	}
	return found, nil
}

// requireAttr returns the named attribute of el, reporting its absence.
func requireAttr(log *diag.Logger, el *xmlpos.Element, name string) (string, bool) {
	v, ok := el.Attr(name)
	if !ok {
		log.ElementError(el, diag.MsgRequireAttribute, name, el.Tag())
	}
	return v, ok
}

func optionalAttr(el *xmlpos.Element, name string) Optional {
	v, ok := el.Attr(name)
	return Optional{Value: v, Valid: ok}
}
