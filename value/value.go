// Package value bridges normal-form terms to tagged Go values. It is the
// read-only host view of an evaluated configuration: a consumer normalizes
// a term with the core and then walks the Value tree instead of pattern
// matching on expression structs.
package value

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/godhall/godhall/core"
)

// Kind discriminates the variants of Value.
type Kind int

const (
	BoolKind Kind = iota
	NaturalKind
	IntegerKind
	DoubleKind
	TextKind
	ListKind
	SomeKind
	NoneKind
	RecordKind
	UnionKind
	FunctionKind
)

func (k Kind) String() string {
	switch k {
	case BoolKind:
		return "Bool"
	case NaturalKind:
		return "Natural"
	case IntegerKind:
		return "Integer"
	case DoubleKind:
		return "Double"
	case TextKind:
		return "Text"
	case ListKind:
		return "List"
	case SomeKind:
		return "Some"
	case NoneKind:
		return "None"
	case RecordKind:
		return "Record"
	case UnionKind:
		return "Union"
	case FunctionKind:
		return "Function"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a single evaluated result. Exactly the fields implied by Kind
// are populated; everything else is the zero value.
type Value struct {
	Kind Kind

	Bool    bool
	Natural *big.Int
	Integer *big.Int
	Double  float64
	Text    string

	// List elements, in order.
	Elements []Value
	// Payload of a Some value or of a union alternative that carries one.
	Payload *Value
	// Record fields.
	Fields map[string]Value
	// Selected union alternative.
	Tag string

	// Function is the underlying lambda for FunctionKind values. Callers
	// apply it with core.Apply and core.Normalize.
	Function core.Term
}

// Labels returns the record's field names in sorted order.
func (v Value) Labels() []string {
	labels := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// FromTerm converts a beta-normal term into its host view. It fails on
// terms that are not values: free variables, stuck applications, types,
// and anything else a fully evaluated closed configuration cannot contain.
func FromTerm(t core.Term) (Value, error) {
	switch v := core.StripNotes(t).(type) {
	case core.BoolLit:
		return Value{Kind: BoolKind, Bool: bool(v)}, nil
	case core.NaturalLit:
		return Value{Kind: NaturalKind, Natural: v.Value}, nil
	case core.IntegerLit:
		return Value{Kind: IntegerKind, Integer: v.Value}, nil
	case core.DoubleLit:
		return Value{Kind: DoubleKind, Double: float64(v)}, nil
	case core.TextLit:
		if len(v.Chunks) != 0 {
			return Value{}, fmt.Errorf("text literal still has interpolations")
		}
		return Value{Kind: TextKind, Text: v.Suffix}, nil
	case core.EmptyList:
		return Value{Kind: ListKind, Elements: []Value{}}, nil
	case core.NonEmptyList:
		elems := make([]Value, len(v.Elements))
		for i, e := range v.Elements {
			ev, err := FromTerm(e)
			if err != nil {
				return Value{}, fmt.Errorf("list element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return Value{Kind: ListKind, Elements: elems}, nil
	case core.Some:
		inner, err := FromTerm(v.Value)
		if err != nil {
			return Value{}, fmt.Errorf("Some payload: %w", err)
		}
		return Value{Kind: SomeKind, Payload: &inner}, nil
	case core.RecordLit:
		fields := make(map[string]Value, len(v))
		for k, f := range v {
			fv, err := FromTerm(f)
			if err != nil {
				return Value{}, fmt.Errorf("field %s: %w", k, err)
			}
			fields[k] = fv
		}
		return Value{Kind: RecordKind, Fields: fields}, nil
	case core.Lambda:
		return Value{Kind: FunctionKind, Function: v}, nil
	case core.Field:
		// A field selection surviving normalization is a payload-free
		// union constructor.
		if _, ok := core.StripNotes(v.Record).(core.UnionType); ok {
			return Value{Kind: UnionKind, Tag: v.Label}, nil
		}
	case core.App:
		// None T is the empty optional; Field{UnionType} applied to a
		// value is a selected alternative with a payload.
		switch fn := core.StripNotes(v.Fn).(type) {
		case core.Builtin:
			if fn == core.None {
				return Value{Kind: NoneKind}, nil
			}
		case core.Field:
			if _, ok := core.StripNotes(fn.Record).(core.UnionType); ok {
				payload, err := FromTerm(v.Arg)
				if err != nil {
					return Value{}, fmt.Errorf("union payload %s: %w", fn.Label, err)
				}
				return Value{Kind: UnionKind, Tag: fn.Label, Payload: &payload}, nil
			}
		}
	}
	return Value{}, fmt.Errorf("term %T is not a value", core.StripNotes(t))
}
