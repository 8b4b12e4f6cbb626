package core

import (
	"math"
)

// ---------------------------------------------------------------------------
// Alpha-equivalence.
//
// Display names of bound variables are cosmetic. AlphaNormalize renames every
// binder to "_", after which plain structural equality decides
// alpha-equivalence. This is the sole notion of "same term" used internally.
// ---------------------------------------------------------------------------

// AlphaNormalize renames every binder in t to "_", adjusting indices so the
// result is semantically identical to the input.
func AlphaNormalize(t Term) Term {
	switch t := t.(type) {
	case Lambda:
		return Lambda{
			Label: "_",
			Type:  AlphaNormalize(t.Type),
			Body:  AlphaNormalize(renameToUnderscore(t.Label, t.Body)),
		}
	case Pi:
		return Pi{
			Label:    "_",
			Domain:   AlphaNormalize(t.Domain),
			Codomain: AlphaNormalize(renameToUnderscore(t.Label, t.Codomain)),
		}
	case Let:
		out := Let{
			Label: "_",
			Value: AlphaNormalize(t.Value),
			Body:  AlphaNormalize(renameToUnderscore(t.Label, t.Body)),
		}
		if t.Annotation != nil {
			out.Annotation = AlphaNormalize(t.Annotation)
		}
		return out
	default:
		return rebuild(t, AlphaNormalize)
	}
}

// renameToUnderscore rewrites body so that the variable bound immediately
// outside it as `label` is referred to as "_" instead.
func renameToUnderscore(label string, body Term) Term {
	if label == "_" {
		return body
	}
	b := Shift(1, Var{Name: "_"}, body)
	b = Subst(Var{Name: label}, Var{Name: "_"}, b)
	return Shift(-1, Var{Name: label}, b)
}

// AlphaEquivalent reports whether two terms are equal up to renaming of
// bound variables. Source spans are ignored; literal content, indices and
// labels are compared exactly. Doubles compare by bit pattern, so NaN is
// alpha-equivalent to an identically encoded NaN.
func AlphaEquivalent(a, b Term) bool {
	return equalTerms(AlphaNormalize(StripNotes(a)), AlphaNormalize(StripNotes(b)))
}

// equalTerms is exact structural equality of note-free terms.
func equalTerms(a, b Term) bool {
	switch a := a.(type) {
	case Universe:
		b, ok := b.(Universe)
		return ok && a == b
	case Builtin:
		b, ok := b.(Builtin)
		return ok && a == b
	case Var:
		b, ok := b.(Var)
		return ok && a == b
	case Lambda:
		b, ok := b.(Lambda)
		return ok && a.Label == b.Label && equalTerms(a.Type, b.Type) && equalTerms(a.Body, b.Body)
	case Pi:
		b, ok := b.(Pi)
		return ok && a.Label == b.Label && equalTerms(a.Domain, b.Domain) && equalTerms(a.Codomain, b.Codomain)
	case App:
		b, ok := b.(App)
		return ok && equalTerms(a.Fn, b.Fn) && equalTerms(a.Arg, b.Arg)
	case Let:
		b, ok := b.(Let)
		return ok && a.Label == b.Label &&
			equalOptional(a.Annotation, b.Annotation) &&
			equalTerms(a.Value, b.Value) && equalTerms(a.Body, b.Body)
	case Annot:
		b, ok := b.(Annot)
		return ok && equalTerms(a.Expr, b.Expr) && equalTerms(a.Annotation, b.Annotation)
	case BoolLit:
		b, ok := b.(BoolLit)
		return ok && a == b
	case If:
		b, ok := b.(If)
		return ok && equalTerms(a.Cond, b.Cond) && equalTerms(a.T, b.T) && equalTerms(a.F, b.F)
	case NaturalLit:
		b, ok := b.(NaturalLit)
		return ok && a.Value.Cmp(b.Value) == 0
	case IntegerLit:
		b, ok := b.(IntegerLit)
		return ok && a.Value.Cmp(b.Value) == 0
	case DoubleLit:
		b, ok := b.(DoubleLit)
		return ok && math.Float64bits(float64(a)) == math.Float64bits(float64(b))
	case TextLit:
		b, ok := b.(TextLit)
		if !ok || a.Suffix != b.Suffix || len(a.Chunks) != len(b.Chunks) {
			return false
		}
		for i := range a.Chunks {
			if a.Chunks[i].Prefix != b.Chunks[i].Prefix ||
				!equalTerms(a.Chunks[i].Expr, b.Chunks[i].Expr) {
				return false
			}
		}
		return true
	case EmptyList:
		b, ok := b.(EmptyList)
		return ok && equalTerms(a.Type, b.Type)
	case NonEmptyList:
		b, ok := b.(NonEmptyList)
		if !ok || len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !equalTerms(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	case Some:
		b, ok := b.(Some)
		return ok && equalTerms(a.Value, b.Value)
	case RecordType:
		b, ok := b.(RecordType)
		return ok && equalFields(a, b)
	case RecordLit:
		b, ok := b.(RecordLit)
		return ok && equalFields(a, b)
	case UnionType:
		b, ok := b.(UnionType)
		if !ok || len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, present := b[k]
			if !present {
				return false
			}
			if (av == nil) != (bv == nil) {
				return false
			}
			if av != nil && !equalTerms(av, bv) {
				return false
			}
		}
		return true
	case Field:
		b, ok := b.(Field)
		return ok && a.Label == b.Label && equalTerms(a.Record, b.Record)
	case Project:
		b, ok := b.(Project)
		if !ok || len(a.Labels) != len(b.Labels) || !equalTerms(a.Record, b.Record) {
			return false
		}
		for i := range a.Labels {
			if a.Labels[i] != b.Labels[i] {
				return false
			}
		}
		return true
	case ProjectType:
		b, ok := b.(ProjectType)
		return ok && equalTerms(a.Record, b.Record) && equalTerms(a.Selector, b.Selector)
	case Merge:
		b, ok := b.(Merge)
		return ok && equalTerms(a.Handler, b.Handler) && equalTerms(a.Union, b.Union) &&
			equalOptional(a.Annotation, b.Annotation)
	case ToMap:
		b, ok := b.(ToMap)
		return ok && equalTerms(a.Record, b.Record) && equalOptional(a.Annotation, b.Annotation)
	case With:
		b, ok := b.(With)
		if !ok || len(a.Path) != len(b.Path) {
			return false
		}
		for i := range a.Path {
			if a.Path[i] != b.Path[i] {
				return false
			}
		}
		return equalTerms(a.Record, b.Record) && equalTerms(a.Value, b.Value)
	case Assert:
		b, ok := b.(Assert)
		return ok && equalTerms(a.Annotation, b.Annotation)
	case Op:
		b, ok := b.(Op)
		return ok && a.OpCode == b.OpCode && equalTerms(a.L, b.L) && equalTerms(a.R, b.R)
	case Import:
		// Unresolved imports never compare equal; they have no semantics yet.
		return false
	}
	return false
}

func equalOptional(a, b Term) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || equalTerms(a, b)
}

func equalFields(a, b map[string]Term) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !equalTerms(av, bv) {
			return false
		}
	}
	return true
}
