package elsa

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownType      = errors.New("unknown shape type")
	ErrChildRejected    = errors.New("container rejected child")
	ErrShapeLimit       = errors.New("shape limit reached")
	ErrNotFound         = errors.New("shape not found")
	ErrMalformedPayload = errors.New("malformed clipboard payload")
	ErrNothingToExport  = errors.New("nothing to export")
)

// DanglingReferenceError reports an id link that does not resolve to a live shape.
type DanglingReferenceError struct {
	From  string // shape holding the reference
	Field string // container, fromShape or toShape
	ID    string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("shape %s: %s %q does not resolve", e.From, e.Field, e.ID)
}
