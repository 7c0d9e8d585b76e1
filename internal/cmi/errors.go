package cmi

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes data model failures.
//
// Kinds are deliberately session-agnostic: the same kind maps to different
// numeric SCORM codes depending on whether the failing call was a read or a
// write. That mapping lives in the rte package.
type ErrorKind string

const (
	// KindUndefined indicates the path matches no schema entry, including
	// malformed collection indices.
	KindUndefined ErrorKind = "UNDEFINED_ELEMENT"

	// KindUnimplemented indicates a recognized but unsupported optional
	// element.
	KindUnimplemented ErrorKind = "UNIMPLEMENTED_ELEMENT"

	// KindNotInitialized indicates a read of an element that has neither a
	// schema default nor a prior write.
	KindNotInitialized ErrorKind = "VALUE_NOT_INITIALIZED"

	// KindReadOnly indicates a write to a read-only element.
	KindReadOnly ErrorKind = "READ_ONLY_ELEMENT"

	// KindWriteOnly indicates a read of a write-only element.
	KindWriteOnly ErrorKind = "WRITE_ONLY_ELEMENT"

	// KindWriteOnce indicates a second write with a different value to a
	// write-once element (e.g. an objective id).
	KindWriteOnce ErrorKind = "WRITE_ONCE_ELEMENT"

	// KindTypeMismatch indicates the value fails the element's type or
	// format check.
	KindTypeMismatch ErrorKind = "TYPE_MISMATCH"

	// KindOutOfRange indicates a well-formed value outside the element's
	// declared range.
	KindOutOfRange ErrorKind = "VALUE_OUT_OF_RANGE"

	// KindDependency indicates a collection entry was created through an
	// element other than the entry's key element (e.g. writing
	// cmi.interactions.0.result before cmi.interactions.0.id).
	KindDependency ErrorKind = "DEPENDENCY_NOT_ESTABLISHED"

	// KindIndexOutOfOrder indicates a collection write targeting an index
	// greater than the current count.
	KindIndexOutOfOrder ErrorKind = "INDEX_OUT_OF_ORDER"
)

// Error is the data model's only error type.
// The Element field always holds the path exactly as the caller supplied it.
type Error struct {
	Kind    ErrorKind
	Element string
	Detail  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Element, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Element)
}

// IsKind reports whether err is a *cmi.Error with the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf returns the kind of a *cmi.Error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func newError(kind ErrorKind, element, detail string) *Error {
	return &Error{Kind: kind, Element: element, Detail: detail}
}
