package core

// ---------------------------------------------------------------------------
// The closed builtin catalogue. Each builtin has a fixed arity (the number
// of arguments its reduction rule consumes) and a type signature given in
// typecheck.go. Applications of a builtin to fewer or insufficiently literal
// arguments stay stuck, which is itself a valid normal form.
// ---------------------------------------------------------------------------

const (
	Bool     Builtin = "Bool"
	Natural  Builtin = "Natural"
	Integer  Builtin = "Integer"
	Double   Builtin = "Double"
	Text     Builtin = "Text"
	List     Builtin = "List"
	Optional Builtin = "Optional"
	None     Builtin = "None"

	NaturalBuild     Builtin = "Natural/build"
	NaturalFold      Builtin = "Natural/fold"
	NaturalIsZero    Builtin = "Natural/isZero"
	NaturalEven      Builtin = "Natural/even"
	NaturalOdd       Builtin = "Natural/odd"
	NaturalToInteger Builtin = "Natural/toInteger"
	NaturalShow      Builtin = "Natural/show"
	NaturalSubtract  Builtin = "Natural/subtract"

	IntegerToDouble Builtin = "Integer/toDouble"
	IntegerShow     Builtin = "Integer/show"
	IntegerNegate   Builtin = "Integer/negate"
	IntegerClamp    Builtin = "Integer/clamp"

	DoubleShow Builtin = "Double/show"

	TextShow    Builtin = "Text/show"
	TextReplace Builtin = "Text/replace"

	ListBuild   Builtin = "List/build"
	ListFold    Builtin = "List/fold"
	ListLength  Builtin = "List/length"
	ListHead    Builtin = "List/head"
	ListLast    Builtin = "List/last"
	ListIndexed Builtin = "List/indexed"
	ListReverse Builtin = "List/reverse"

	OptionalBuild Builtin = "Optional/build"
	OptionalFold  Builtin = "Optional/fold"
)

// builtinArities maps each reducible builtin to the number of applied
// arguments its rule consumes. Ground types and type constructors reduce
// nothing and are absent.
var builtinArities = map[Builtin]int{
	NaturalBuild:     1,
	NaturalFold:      4,
	NaturalIsZero:    1,
	NaturalEven:      1,
	NaturalOdd:       1,
	NaturalToInteger: 1,
	NaturalShow:      1,
	NaturalSubtract:  2,
	IntegerToDouble:  1,
	IntegerShow:      1,
	IntegerNegate:    1,
	IntegerClamp:     1,
	DoubleShow:       1,
	TextShow:         1,
	TextReplace:      3,
	ListBuild:        2,
	ListFold:         5,
	ListLength:       2,
	ListHead:         2,
	ListLast:         2,
	ListIndexed:      2,
	ListReverse:      2,
	OptionalBuild:    2,
	OptionalFold:     5,
}

// builtinNames is the catalogue used by the decoder to tell builtin
// identifiers apart from free variables.
var builtinNames = map[string]Builtin{}

func init() {
	for _, b := range []Builtin{
		Bool, Natural, Integer, Double, Text, List, Optional, None,
		NaturalBuild, NaturalFold, NaturalIsZero, NaturalEven, NaturalOdd,
		NaturalToInteger, NaturalShow, NaturalSubtract,
		IntegerToDouble, IntegerShow, IntegerNegate, IntegerClamp,
		DoubleShow, TextShow, TextReplace,
		ListBuild, ListFold, ListLength, ListHead, ListLast, ListIndexed,
		ListReverse, OptionalBuild, OptionalFold,
	} {
		builtinNames[string(b)] = b
	}
}

// LookupBuiltin resolves a name against the builtin catalogue.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtinNames[name]
	return b, ok
}
