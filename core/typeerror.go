package core

import (
	"fmt"
)

// TypeErrorKind tags a TypeError with the rule it violated.
type TypeErrorKind int

const (
	UnboundVariable TypeErrorKind = iota
	UniverseViolation
	TypeMismatch
	AnnotationMismatch
	NotAFunction
	NotARecord
	NotAUnion
	MissingField
	DuplicateLabel
	MissingHandler
	UnusedHandler
	HandlerMismatch
	InvalidPredicate
	MismatchedBranches
	MismatchedListElements
	InvalidListType
	MissingAnnotation
	FieldCollision
	InvalidOperands
	AssertionFailed
	UnresolvedImport
)

func (k TypeErrorKind) String() string {
	switch k {
	case UnboundVariable:
		return "unbound variable"
	case UniverseViolation:
		return "universe violation"
	case TypeMismatch:
		return "type mismatch"
	case AnnotationMismatch:
		return "annotation mismatch"
	case NotAFunction:
		return "not a function"
	case NotARecord:
		return "not a record"
	case NotAUnion:
		return "not a union"
	case MissingField:
		return "missing field"
	case DuplicateLabel:
		return "duplicate label"
	case MissingHandler:
		return "missing handler"
	case UnusedHandler:
		return "unused handler"
	case HandlerMismatch:
		return "handler mismatch"
	case InvalidPredicate:
		return "invalid predicate"
	case MismatchedBranches:
		return "mismatched branches"
	case MismatchedListElements:
		return "mismatched list elements"
	case InvalidListType:
		return "invalid list type"
	case MissingAnnotation:
		return "missing annotation"
	case FieldCollision:
		return "field collision"
	case InvalidOperands:
		return "invalid operands"
	case AssertionFailed:
		return "assertion failed"
	case UnresolvedImport:
		return "unresolved import"
	}
	return "type error"
}

// TypeError reports the first violation found in a subtree. Offender is the
// narrowest subterm the rule failed on; Span, when present, is the nearest
// enclosing source span on the path from the root.
type TypeError struct {
	Kind     TypeErrorKind
	Offender Term
	Detail   string
	Span     *Span
}

func (e *TypeError) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Span != nil {
		msg = fmt.Sprintf("%s:%d:%d: %s", e.Span.File, e.Span.Start.Line, e.Span.Start.Column, msg)
	}
	return msg
}

func mistyped(kind TypeErrorKind, offender Term, format string, args ...any) error {
	return &TypeError{Kind: kind, Offender: offender, Detail: fmt.Sprintf(format, args...)}
}
