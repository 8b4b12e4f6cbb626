// Package core implements the semantics engine of the language: the
// expression representation, de Bruijn variable operations, the normalizer
// and the bidirectional type checker.
//
// Every operation in this package is a pure function over immutable terms.
// Terms are never mutated after construction; normalization and substitution
// build new trees, sharing unchanged subtrees. Concurrent use on independent
// inputs needs no synchronization.
package core

import (
	"math/big"
)

// ---------------------------------------------------------------------------
// Source positions
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code. Spans are diagnostic payload only:
// every semantic operation ignores them.
type Span struct {
	File  string
	Start Position
	End   Position
}

// ---------------------------------------------------------------------------
// Terms
// ---------------------------------------------------------------------------

// Term is the interface implemented by all expression variants. The set of
// variants is closed; every operation in this package matches it
// exhaustively.
type Term interface {
	term() // marker method
}

// Universe is one of the three predicative type-of-types levels.
type Universe int

const (
	Type Universe = iota
	Kind
	Sort
)

func (u Universe) String() string {
	switch u {
	case Type:
		return "Type"
	case Kind:
		return "Kind"
	case Sort:
		return "Sort"
	}
	return "<invalid universe>"
}

// Builtin is one of the closed catalogue of named builtins.
type Builtin string

// Var is a variable occurrence. Name is kept for display only; the pair
// (Name, Index) is what carries meaning: Index counts enclosing binders of
// the same name, innermost first.
type Var struct {
	Name  string
	Index int
}

// Lambda is an anonymous function λ(Label : Type) → Body.
type Lambda struct {
	Label string
	Type  Term
	Body  Term
}

// Pi is a function type ∀(Label : Domain) → Codomain.
type Pi struct {
	Label    string
	Domain   Term
	Codomain Term
}

// App is a function application.
type App struct {
	Fn  Term
	Arg Term
}

// Let binds a single name in its body. Chains of bindings are represented as
// nested Lets, each scoping only its own tail. Annotation may be nil.
type Let struct {
	Label      string
	Annotation Term
	Value      Term
	Body       Term
}

// Annot is a type annotation Expr : Annotation.
type Annot struct {
	Expr       Term
	Annotation Term
}

// BoolLit is a boolean literal.
type BoolLit bool

// If is the conditional eliminator for Bool.
type If struct {
	Cond Term
	T    Term
	F    Term
}

// NaturalLit is an arbitrary-precision non-negative integer literal.
// The big.Int is owned by the literal and must not be mutated.
type NaturalLit struct {
	Value *big.Int
}

// IntegerLit is an arbitrary-precision signed integer literal.
type IntegerLit struct {
	Value *big.Int
}

// DoubleLit is an IEEE-754 double literal. Equality for hashing compares the
// raw bit pattern, so NaN payloads are significant there even though the ≡
// operator follows IEEE comparison.
type DoubleLit float64

// Chunk is one interpolated piece of a text literal: a literal prefix
// followed by an interpolated expression.
type Chunk struct {
	Prefix string
	Expr   Term
}

// TextLit is a text literal with zero or more interpolations and a literal
// suffix.
type TextLit struct {
	Chunks []Chunk
	Suffix string
}

// EmptyList is an empty list literal carrying its full declared type,
// usually App{List, T}.
type EmptyList struct {
	Type Term
}

// NonEmptyList is a list literal with at least one element. The element type
// is recovered by inference, never declared.
type NonEmptyList struct {
	Elements []Term
}

// Some wraps a present optional value.
type Some struct {
	Value Term
}

// RecordType maps field labels to field types. Label uniqueness is
// structural: the map representation cannot hold duplicates, and the decoder
// rejects wire forms that try.
type RecordType map[string]Term

// RecordLit maps field labels to field values.
type RecordLit map[string]Term

// UnionType maps alternative labels to payload types; a nil value marks an
// alternative without payload.
type UnionType map[string]Term

// Field projects one field out of a record, or selects a constructor out of
// a union type.
type Field struct {
	Record Term
	Label  string
}

// Project builds a sub-record from an explicit label set.
type Project struct {
	Record Term
	Labels []string
}

// ProjectType builds a sub-record from the label set of a record type.
type ProjectType struct {
	Record   Term
	Selector Term
}

// Merge dispatches a union (or optional) scrutinee to a handler record.
// Annotation may be nil.
type Merge struct {
	Handler    Term
	Union      Term
	Annotation Term
}

// ToMap converts a homogeneous record to a list of {mapKey, mapValue}
// entries. Annotation may be nil; it is required when the record is empty.
type ToMap struct {
	Record     Term
	Annotation Term
}

// With replaces the value at a field path inside a record, creating
// intermediate records as needed.
type With struct {
	Record Term
	Path   []string
	Value  Term
}

// Assert checks a type-level equivalence at type-checking time.
type Assert struct {
	Annotation Term
}

// OpCode identifies a binary operator. The numeric values are the wire
// opcodes and must not be reordered.
type OpCode int

const (
	OrOp OpCode = iota
	AndOp
	EqOp
	NeOp
	PlusOp
	TimesOp
	TextAppendOp
	ListAppendOp
	CombineOp       // ∧  recursive record merge, right wins on conflict
	PreferOp        // ⫽  shallow right-biased record override
	CombineTypesOp  // ⩓  recursive record type merge
	ImportAltOp     // ?  import fallback, resolved before normalization
	EquivOp         // ≡  type-checked but never reduced
)

func (o OpCode) String() string {
	switch o {
	case OrOp:
		return "||"
	case AndOp:
		return "&&"
	case EqOp:
		return "=="
	case NeOp:
		return "!="
	case PlusOp:
		return "+"
	case TimesOp:
		return "*"
	case TextAppendOp:
		return "++"
	case ListAppendOp:
		return "#"
	case CombineOp:
		return "∧"
	case PreferOp:
		return "⫽"
	case CombineTypesOp:
		return "⩓"
	case ImportAltOp:
		return "?"
	case EquivOp:
		return "≡"
	}
	return "<invalid op>"
}

// Op is a binary operator application.
type Op struct {
	OpCode OpCode
	L      Term
	R      Term
}

// Note wraps a term with its source span. Every semantic operation strips
// Notes; they survive only long enough to decorate diagnostics.
type Note struct {
	Span Span
	Expr Term
}

func (Universe) term()     {}
func (Builtin) term()      {}
func (Var) term()          {}
func (Lambda) term()       {}
func (Pi) term()           {}
func (App) term()          {}
func (Let) term()          {}
func (Annot) term()        {}
func (BoolLit) term()      {}
func (If) term()           {}
func (NaturalLit) term()   {}
func (IntegerLit) term()   {}
func (DoubleLit) term()    {}
func (TextLit) term()      {}
func (EmptyList) term()    {}
func (NonEmptyList) term() {}
func (Some) term()         {}
func (RecordType) term()   {}
func (RecordLit) term()    {}
func (UnionType) term()    {}
func (Field) term()        {}
func (Project) term()      {}
func (ProjectType) term()  {}
func (Merge) term()        {}
func (ToMap) term()        {}
func (With) term()         {}
func (Assert) term()       {}
func (Op) term()           {}
func (Note) term()         {}
func (Import) term()       {}

// ---------------------------------------------------------------------------
// Construction helpers
// ---------------------------------------------------------------------------

// NewNatural builds a natural literal from a machine word.
func NewNatural(n uint64) NaturalLit {
	return NaturalLit{Value: new(big.Int).SetUint64(n)}
}

// NewInteger builds an integer literal from a machine word.
func NewInteger(n int64) IntegerLit {
	return IntegerLit{Value: big.NewInt(n)}
}

// PlainText builds a text literal without interpolations.
func PlainText(s string) TextLit {
	return TextLit{Suffix: s}
}

// Apply left-associates fn onto each argument in turn.
func Apply(fn Term, args ...Term) Term {
	out := fn
	for _, a := range args {
		out = App{Fn: out, Arg: a}
	}
	return out
}

// MkVar builds the innermost variable occurrence for a name.
func MkVar(name string) Var {
	return Var{Name: name}
}

// StripNotes removes every source-span wrapper from a term. The result is
// semantically identical to the input.
func StripNotes(t Term) Term {
	if n, ok := t.(Note); ok {
		return StripNotes(n.Expr)
	}
	return rebuild(t, StripNotes)
}
