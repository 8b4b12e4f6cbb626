package core

import (
	"errors"
	"testing"
)

func inferOK(t *testing.T, term Term) Term {
	t.Helper()
	ty, err := TypeOf(term)
	if err != nil {
		t.Fatalf("TypeOf(%v): %v", term, err)
	}
	return ty
}

func inferFail(t *testing.T, term Term, kind TypeErrorKind) {
	t.Helper()
	_, err := TypeOf(term)
	if err == nil {
		t.Fatalf("TypeOf(%v) succeeded, want %v error", term, kind)
	}
	var te *TypeError
	if !errors.As(err, &te) {
		t.Fatalf("TypeOf(%v) returned %T, want *TypeError", term, err)
	}
	if te.Kind != kind {
		t.Fatalf("TypeOf(%v) failed with %v, want %v: %v", term, te.Kind, kind, te)
	}
}

func TestInferLiterals(t *testing.T) {
	cases := []struct {
		name string
		in   Term
		want Term
	}{
		{"bool", BoolLit(true), Bool},
		{"natural", NewNatural(4), Natural},
		{"integer", NewInteger(-4), Integer},
		{"double", DoubleLit(1.5), Double},
		{"text", PlainText("hi"), Text},
		{"type of Type", Type, Kind},
		{"type of Kind", Kind, Sort},
		{"builtin", Natural, Type},
		{"list type constructor", List, Pi{Label: "_", Domain: Type, Codomain: Type}},
		{"some", Some{Value: NewNatural(1)}, App{Fn: Optional, Arg: Natural}},
		{
			"empty list",
			EmptyList{Type: App{Fn: List, Arg: Natural}},
			App{Fn: List, Arg: Natural},
		},
		{
			"non-empty list",
			NonEmptyList{Elements: []Term{NewNatural(1), NewNatural(2)}},
			App{Fn: List, Arg: Natural},
		},
		{
			"record literal",
			RecordLit{"a": NewNatural(1), "t": PlainText("x")},
			RecordType{"a": Natural, "t": Text},
		},
		{"record type", RecordType{"a": Natural}, Type},
		{"union type", UnionType{"L": Natural, "E": nil}, Type},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := inferOK(t, tc.in)
			if !judgmentallyEqual(got, tc.want) {
				t.Errorf("TypeOf(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestInferFunctions(t *testing.T) {
	succ := Lambda{Label: "x", Type: Natural, Body: Op{
		OpCode: PlusOp, L: MkVar("x"), R: NewNatural(1),
	}}

	got := inferOK(t, succ)
	want := Pi{Label: "x", Domain: Natural, Codomain: Natural}
	if !judgmentallyEqual(got, want) {
		t.Fatalf("TypeOf(succ) = %v, want %v", got, want)
	}

	if ty := inferOK(t, App{Fn: succ, Arg: NewNatural(1)}); !judgmentallyEqual(ty, Term(Natural)) {
		t.Errorf("application type = %v, want Natural", ty)
	}

	// Dependent codomain: the applied type substitutes the argument.
	id := Lambda{Label: "a", Type: Type, Body: Lambda{
		Label: "x", Type: MkVar("a"), Body: MkVar("x"),
	}}
	ty := inferOK(t, Apply(id, Natural))
	if !judgmentallyEqual(ty, Term(Pi{Label: "x", Domain: Natural, Codomain: Natural})) {
		t.Errorf("TypeOf(id Natural) = %v, want Natural -> Natural", ty)
	}

	letTerm := Let{Label: "n", Annotation: Natural, Value: NewNatural(1), Body: Op{
		OpCode: PlusOp, L: MkVar("n"), R: NewNatural(1),
	}}
	if ty := inferOK(t, letTerm); !judgmentallyEqual(ty, Term(Natural)) {
		t.Errorf("TypeOf(let) = %v, want Natural", ty)
	}
}

func TestInferUniverses(t *testing.T) {
	// Type -> Type lives in Kind.
	f := Pi{Label: "_", Domain: Type, Codomain: Type}
	if ty := inferOK(t, f); !judgmentallyEqual(ty, Term(Kind)) {
		t.Errorf("TypeOf(Type -> Type) = %v, want Kind", ty)
	}
	// Impredicative collapse: a kind-polymorphic value type is still a Type.
	g := Pi{Label: "a", Domain: Kind, Codomain: Natural}
	if ty := inferOK(t, g); !judgmentallyEqual(ty, Term(Type)) {
		t.Errorf("TypeOf(Kind -> Natural) = %v, want Type", ty)
	}
	inferFail(t, Term(Sort), UniverseViolation)
}

func TestInferErrors(t *testing.T) {
	cases := []struct {
		name string
		in   Term
		kind TypeErrorKind
	}{
		{"unbound variable", MkVar("x"), UnboundVariable},
		{"index out of range", Lambda{Label: "x", Type: Natural, Body: Var{Name: "x", Index: 1}}, UnboundVariable},
		{
			"argument mismatch",
			App{
				Fn:  Lambda{Label: "x", Type: Natural, Body: MkVar("x")},
				Arg: PlainText("no"),
			},
			TypeMismatch,
		},
		{"apply non-function", App{Fn: NewNatural(1), Arg: NewNatural(2)}, NotAFunction},
		{
			"annotation mismatch",
			Annot{Expr: NewNatural(1), Annotation: Bool},
			AnnotationMismatch,
		},
		{
			"let annotation mismatch",
			Let{Label: "x", Annotation: Bool, Value: NewNatural(1), Body: MkVar("x")},
			AnnotationMismatch,
		},
		{
			"if over non-bool",
			If{Cond: NewNatural(1), T: NewNatural(1), F: NewNatural(2)},
			InvalidPredicate,
		},
		{
			"if branch mismatch",
			If{Cond: BoolLit(true), T: NewNatural(1), F: PlainText("x")},
			MismatchedBranches,
		},
		{
			"heterogeneous list",
			NonEmptyList{Elements: []Term{NewNatural(1), PlainText("x")}},
			MismatchedListElements,
		},
		{
			"missing record field",
			Field{Record: RecordLit{"a": NewNatural(1)}, Label: "b"},
			MissingField,
		},
		{
			"project unknown label",
			Project{Record: RecordLit{"a": NewNatural(1)}, Labels: []string{"z"}},
			MissingField,
		},
		{
			"merge missing handler",
			Merge{
				Handler: RecordLit{},
				Union: App{
					Fn:  Field{Record: UnionType{"L": Natural}, Label: "L"},
					Arg: NewNatural(1),
				},
			},
			MissingHandler,
		},
		{
			"merge unused handler",
			Merge{
				Handler: RecordLit{
					"L": Lambda{Label: "n", Type: Natural, Body: MkVar("n")},
					"X": NewNatural(0),
				},
				Union: App{
					Fn:  Field{Record: UnionType{"L": Natural}, Label: "L"},
					Arg: NewNatural(1),
				},
			},
			UnusedHandler,
		},
		{
			"empty merge needs annotation",
			Lambda{Label: "u", Type: UnionType{}, Body: Merge{
				Handler: RecordLit{}, Union: MkVar("u"),
			}},
			MissingAnnotation,
		},
		{
			"empty merge annotation must be a type",
			Lambda{Label: "u", Type: UnionType{}, Body: Merge{
				Handler: RecordLit{}, Union: MkVar("u"), Annotation: NewNatural(5),
			}},
			TypeMismatch,
		},
		{
			"operator operand type",
			Op{OpCode: PlusOp, L: NewNatural(1), R: PlainText("x")},
			InvalidOperands,
		},
		{
			"equivalence on types",
			Op{OpCode: EquivOp, L: Natural, R: Natural},
			InvalidOperands,
		},
		{
			"failed assertion",
			Assert{Annotation: Op{OpCode: EquivOp, L: NewNatural(1), R: NewNatural(2)}},
			AssertionFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inferFail(t, tc.in, tc.kind)
		})
	}
}

func TestInferMerge(t *testing.T) {
	handler := RecordLit{
		"Left":  Lambda{Label: "n", Type: Natural, Body: MkVar("n")},
		"Right": Lambda{Label: "b", Type: Bool, Body: NewNatural(0)},
	}
	scrutinee := App{
		Fn:  Field{Record: UnionType{"Left": Natural, "Right": Bool}, Label: "Left"},
		Arg: NewNatural(3),
	}
	ty := inferOK(t, Merge{Handler: handler, Union: scrutinee})
	if !judgmentallyEqual(ty, Term(Natural)) {
		t.Errorf("merge type = %v, want Natural", ty)
	}

	optional := Merge{
		Handler: RecordLit{
			"None": NewNatural(0),
			"Some": Lambda{Label: "n", Type: Natural, Body: MkVar("n")},
		},
		Union: Some{Value: NewNatural(2)},
	}
	if ty := inferOK(t, optional); !judgmentallyEqual(ty, Term(Natural)) {
		t.Errorf("optional merge type = %v, want Natural", ty)
	}
}

func TestInferAssert(t *testing.T) {
	ok := Assert{Annotation: Op{
		OpCode: EquivOp,
		L: App{
			Fn:  Lambda{Label: "x", Type: Natural, Body: MkVar("x")},
			Arg: NewNatural(1),
		},
		R: NewNatural(1),
	}}
	ty := inferOK(t, ok)
	if _, isOp := ty.(Op); !isOp {
		t.Errorf("assert type = %v, want the equivalence itself", ty)
	}
}

func TestInferUnionConstructor(t *testing.T) {
	u := UnionType{"L": Natural, "E": nil}
	ty := inferOK(t, Field{Record: u, Label: "L"})
	want := Pi{Label: "L", Domain: Natural, Codomain: u}
	if !judgmentallyEqual(ty, Term(want)) {
		t.Errorf("constructor type = %v, want %v", ty, want)
	}
	if ty := inferOK(t, Field{Record: u, Label: "E"}); !judgmentallyEqual(ty, Term(u)) {
		t.Errorf("empty constructor type = %v, want the union", ty)
	}
}

// Normalization preserves types: a term and its normal form infer
// definitionally equal types.
func TestSubjectReduction(t *testing.T) {
	terms := []Term{
		App{
			Fn: Lambda{Label: "x", Type: Natural, Body: Op{
				OpCode: PlusOp, L: MkVar("x"), R: NewNatural(1),
			}},
			Arg: NewNatural(2),
		},
		Let{Label: "r", Value: RecordLit{"a": NewNatural(1)}, Body: Field{
			Record: MkVar("r"), Label: "a",
		}},
		Merge{
			Handler: RecordLit{
				"None": PlainText("empty"),
				"Some": Lambda{Label: "t", Type: Text, Body: MkVar("t")},
			},
			Union: Some{Value: PlainText("x")},
		},
		If{Cond: BoolLit(false), T: NewNatural(1), F: NewNatural(2)},
	}
	for _, tm := range terms {
		before := inferOK(t, tm)
		after := inferOK(t, Normalize(tm))
		if !judgmentallyEqual(before, after) {
			t.Errorf("type changed under normalization of %v: %v then %v", tm, before, after)
		}
	}
}

func TestContextShadowing(t *testing.T) {
	// \(x : Natural) -> \(x : Bool) -> x@1 picks the outer binding.
	term := Lambda{Label: "x", Type: Natural, Body: Lambda{
		Label: "x", Type: Bool, Body: Var{Name: "x", Index: 1},
	}}
	ty := inferOK(t, term)
	want := Pi{Label: "x", Domain: Natural, Codomain: Pi{
		Label: "x", Domain: Bool, Codomain: Natural,
	}}
	if !judgmentallyEqual(ty, Term(want)) {
		t.Errorf("TypeOf = %v, want %v", ty, want)
	}
}
