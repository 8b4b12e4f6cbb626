package core

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Per-builtin reduction rules. applyBuiltin is consulted by normalizeApp
// once a builtin is saturated; a false return leaves the application stuck,
// which is a perfectly good normal form.
// ---------------------------------------------------------------------------

func applyBuiltin(b Builtin, args []Term) (Term, bool) {
	switch b {
	case NaturalIsZero:
		if n, ok := args[0].(NaturalLit); ok {
			return BoolLit(n.Value.Sign() == 0), true
		}
	case NaturalEven:
		if n, ok := args[0].(NaturalLit); ok {
			return BoolLit(n.Value.Bit(0) == 0), true
		}
	case NaturalOdd:
		if n, ok := args[0].(NaturalLit); ok {
			return BoolLit(n.Value.Bit(0) == 1), true
		}
	case NaturalShow:
		if n, ok := args[0].(NaturalLit); ok {
			return PlainText(n.Value.String()), true
		}
	case NaturalToInteger:
		if n, ok := args[0].(NaturalLit); ok {
			return IntegerLit{Value: new(big.Int).Set(n.Value)}, true
		}
	case NaturalSubtract:
		return naturalSubtract(args[0], args[1])
	case NaturalFold:
		return naturalFold(args[0], args[2], args[3])
	case NaturalBuild:
		succ := Lambda{
			Label: "x",
			Type:  Natural,
			Body:  Op{OpCode: PlusOp, L: Var{Name: "x"}, R: NewNatural(1)},
		}
		return Normalize(Apply(args[0], Natural, succ, NewNatural(0))), true

	case IntegerShow:
		if n, ok := args[0].(IntegerLit); ok {
			if n.Value.Sign() >= 0 {
				return PlainText("+" + n.Value.String()), true
			}
			return PlainText(n.Value.String()), true
		}
	case IntegerNegate:
		if n, ok := args[0].(IntegerLit); ok {
			return IntegerLit{Value: new(big.Int).Neg(n.Value)}, true
		}
	case IntegerClamp:
		if n, ok := args[0].(IntegerLit); ok {
			if n.Value.Sign() < 0 {
				return NewNatural(0), true
			}
			return NaturalLit{Value: new(big.Int).Set(n.Value)}, true
		}
	case IntegerToDouble:
		if n, ok := args[0].(IntegerLit); ok {
			f, _ := new(big.Float).SetInt(n.Value).Float64()
			return DoubleLit(f), true
		}

	case DoubleShow:
		if d, ok := args[0].(DoubleLit); ok {
			return PlainText(FormatDouble(float64(d))), true
		}

	case TextShow:
		if t, ok := args[0].(TextLit); ok && len(t.Chunks) == 0 {
			return PlainText(escapeText(t.Suffix)), true
		}
	case TextReplace:
		return textReplace(args[0], args[1], args[2])

	case ListLength:
		switch l := args[1].(type) {
		case EmptyList:
			return NewNatural(0), true
		case NonEmptyList:
			return NewNatural(uint64(len(l.Elements))), true
		}
	case ListHead:
		switch l := args[1].(type) {
		case EmptyList:
			return App{Fn: None, Arg: args[0]}, true
		case NonEmptyList:
			return Some{Value: l.Elements[0]}, true
		}
	case ListLast:
		switch l := args[1].(type) {
		case EmptyList:
			return App{Fn: None, Arg: args[0]}, true
		case NonEmptyList:
			return Some{Value: l.Elements[len(l.Elements)-1]}, true
		}
	case ListReverse:
		switch l := args[1].(type) {
		case EmptyList:
			return l, true
		case NonEmptyList:
			n := len(l.Elements)
			elems := make([]Term, n)
			for i, e := range l.Elements {
				elems[n-1-i] = e
			}
			return NonEmptyList{Elements: elems}, true
		}
	case ListIndexed:
		return listIndexed(args[0], args[1])
	case ListFold:
		return listFold(args[1], args[3], args[4])
	case ListBuild:
		return listBuild(args[0], args[1]), true

	case OptionalFold:
		switch o := args[1].(type) {
		case Some:
			return Normalize(App{Fn: args[3], Arg: o.Value}), true
		case App:
			if hb, ok := o.Fn.(Builtin); ok && hb == None {
				return args[4], true
			}
		}
	case OptionalBuild:
		a := args[0]
		just := Lambda{Label: "a", Type: a, Body: Some{Value: Var{Name: "a"}}}
		nothing := App{Fn: None, Arg: a}
		return Normalize(Apply(args[1], App{Fn: Optional, Arg: a}, just, nothing)), true
	}
	return nil, false
}

func naturalSubtract(x, n Term) (Term, bool) {
	xl, xok := x.(NaturalLit)
	nl, nok := n.(NaturalLit)
	switch {
	case xok && nok:
		diff := new(big.Int).Sub(nl.Value, xl.Value)
		if diff.Sign() < 0 {
			return NewNatural(0), true
		}
		return NaturalLit{Value: diff}, true
	case xok && xl.Value.Sign() == 0:
		return n, true
	case nok && nl.Value.Sign() == 0:
		return NewNatural(0), true
	case normalEquivalent(x, n):
		return NewNatural(0), true
	}
	return nil, false
}

func naturalFold(count, succ, zero Term) (Term, bool) {
	n, ok := count.(NaturalLit)
	if !ok {
		return nil, false
	}
	acc := zero
	for i := new(big.Int).Set(n.Value); i.Sign() > 0; i.Sub(i, big.NewInt(1)) {
		acc = Normalize(App{Fn: succ, Arg: acc})
	}
	return acc, true
}

func listIndexed(elemType, list Term) (Term, bool) {
	entry := RecordType{"index": Natural, "value": elemType}
	switch l := list.(type) {
	case EmptyList:
		return EmptyList{Type: App{Fn: List, Arg: entry}}, true
	case NonEmptyList:
		elems := make([]Term, len(l.Elements))
		for i, e := range l.Elements {
			elems[i] = RecordLit{"index": NewNatural(uint64(i)), "value": e}
		}
		return NonEmptyList{Elements: elems}, true
	}
	return nil, false
}

func listFold(list, cons, nilValue Term) (Term, bool) {
	switch l := list.(type) {
	case EmptyList:
		return nilValue, true
	case NonEmptyList:
		acc := nilValue
		for i := len(l.Elements) - 1; i >= 0; i-- {
			acc = Normalize(Apply(cons, l.Elements[i], acc))
		}
		return acc, true
	}
	return nil, false
}

func listBuild(elemType, g Term) Term {
	cons := Lambda{
		Label: "a",
		Type:  elemType,
		Body: Lambda{
			Label: "as",
			Type:  App{Fn: List, Arg: Shift(1, Var{Name: "a"}, elemType)},
			Body: Op{
				OpCode: ListAppendOp,
				L:      NonEmptyList{Elements: []Term{Var{Name: "a"}}},
				R:      Var{Name: "as"},
			},
		},
	}
	empty := EmptyList{Type: App{Fn: List, Arg: elemType}}
	return Normalize(Apply(g, App{Fn: List, Arg: elemType}, cons, empty))
}

func textReplace(needle, replacement, haystack Term) (Term, bool) {
	nl, ok := needle.(TextLit)
	if !ok || len(nl.Chunks) != 0 {
		return nil, false
	}
	if nl.Suffix == "" {
		return haystack, true
	}
	hl, ok := haystack.(TextLit)
	if !ok || len(hl.Chunks) != 0 {
		return nil, false
	}
	if rl, ok := replacement.(TextLit); ok && len(rl.Chunks) == 0 {
		return PlainText(strings.ReplaceAll(hl.Suffix, nl.Suffix, rl.Suffix)), true
	}
	// Abstract replacement: splice it in as interpolation.
	parts := strings.Split(hl.Suffix, nl.Suffix)
	out := TextLit{Suffix: parts[len(parts)-1]}
	for _, p := range parts[:len(parts)-1] {
		out.Chunks = append(out.Chunks, Chunk{Prefix: p, Expr: replacement})
	}
	return normalizeTextLit(out), true
}

// FormatDouble renders a double the way Double/show does: shortest
// round-tripping decimal, always with a fractional part or exponent.
func FormatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// escapeText renders a string as a double-quoted literal, escaping
// everything Text/show must escape.
func escapeText(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '$':
			sb.WriteString(`\u0024`)
		default:
			if r < 0x20 {
				sb.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
