package core

// Type signatures for the builtin catalogue, written as Pi chains over the
// fold/build Church encodings.

func fn(domain, codomain Term) Pi {
	return Pi{Label: "_", Domain: domain, Codomain: codomain}
}

// naturalFoldType is ∀(natural : Type) → ∀(succ : natural → natural) →
// ∀(zero : natural) → natural, the Church encoding both Natural/fold and
// Natural/build share.
func naturalFoldType() Term {
	natural := Var{Name: "natural"}
	return Pi{
		Label:  "natural",
		Domain: Type,
		Codomain: Pi{
			Label:  "succ",
			Domain: fn(natural, natural),
			Codomain: Pi{
				Label:    "zero",
				Domain:   natural,
				Codomain: natural,
			},
		},
	}
}

// listFoldType is the Church list over element type a (a free variable here,
// bound by the enclosing Pi in the builtin's signature).
func listFoldType() Term {
	a := Var{Name: "a"}
	list := Var{Name: "list"}
	return Pi{
		Label:  "list",
		Domain: Type,
		Codomain: Pi{
			Label:  "cons",
			Domain: fn(a, fn(list, list)),
			Codomain: Pi{
				Label:    "nil",
				Domain:   list,
				Codomain: list,
			},
		},
	}
}

func optionalFoldType() Term {
	a := Var{Name: "a"}
	optional := Var{Name: "optional"}
	return Pi{
		Label:  "optional",
		Domain: Type,
		Codomain: Pi{
			Label:  "just",
			Domain: fn(a, optional),
			Codomain: Pi{
				Label:    "nothing",
				Domain:   optional,
				Codomain: optional,
			},
		},
	}
}

// builtinType gives the type of each builtin, or false for a name outside
// the catalogue.
func builtinType(b Builtin) (Term, bool) {
	a := Var{Name: "a"}
	forallA := func(codomain Term) Term {
		return Pi{Label: "a", Domain: Type, Codomain: codomain}
	}
	listA := App{Fn: List, Arg: a}
	optionalA := App{Fn: Optional, Arg: a}

	switch b {
	case Bool, Natural, Integer, Double, Text:
		return Type, true
	case List, Optional:
		return fn(Type, Type), true
	case None:
		return forallA(optionalA), true

	case NaturalBuild:
		return fn(naturalFoldType(), Natural), true
	case NaturalFold:
		return fn(Natural, naturalFoldType()), true
	case NaturalIsZero, NaturalEven, NaturalOdd:
		return fn(Natural, Bool), true
	case NaturalShow:
		return fn(Natural, Text), true
	case NaturalToInteger:
		return fn(Natural, Integer), true
	case NaturalSubtract:
		return fn(Natural, fn(Natural, Natural)), true

	case IntegerToDouble:
		return fn(Integer, Double), true
	case IntegerShow:
		return fn(Integer, Text), true
	case IntegerNegate:
		return fn(Integer, Integer), true
	case IntegerClamp:
		return fn(Integer, Natural), true

	case DoubleShow:
		return fn(Double, Text), true

	case TextShow:
		return fn(Text, Text), true
	case TextReplace:
		return Pi{Label: "needle", Domain: Text,
			Codomain: Pi{Label: "replacement", Domain: Text,
				Codomain: fn(Text, Text)}}, true

	case ListBuild:
		return forallA(fn(listFoldType(), listA)), true
	case ListFold:
		return forallA(fn(listA, listFoldType())), true
	case ListLength:
		return forallA(fn(listA, Natural)), true
	case ListHead, ListLast:
		return forallA(fn(listA, optionalA)), true
	case ListIndexed:
		entry := RecordType{"index": Natural, "value": a}
		return forallA(fn(listA, App{Fn: List, Arg: entry})), true
	case ListReverse:
		return forallA(fn(listA, listA)), true

	case OptionalBuild:
		return forallA(fn(optionalFoldType(), optionalA)), true
	case OptionalFold:
		return forallA(fn(optionalA, optionalFoldType())), true
	}
	return nil, false
}
