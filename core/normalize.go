package core

import (
	"math/big"
	"sort"
)

// ---------------------------------------------------------------------------
// Normalization.
//
// Normalize rewrites a term to its unique normal form by exhaustively
// applying beta, let, projection, merge, builtin and operator rules. It is
// pure, idempotent and deterministic, and terminates on any input that
// passed type checking. Calling it on unchecked input voids both guarantees.
// ---------------------------------------------------------------------------

// Normalize reduces t to normal form. The input must be import-free and
// well-typed.
func Normalize(t Term) Term {
	switch t := t.(type) {
	case Universe, Builtin, Var, BoolLit, NaturalLit, IntegerLit, DoubleLit:
		return t
	case Note:
		return Normalize(t.Expr)
	case Annot:
		return Normalize(t.Expr)
	case Lambda:
		return Lambda{Label: t.Label, Type: Normalize(t.Type), Body: Normalize(t.Body)}
	case Pi:
		return Pi{Label: t.Label, Domain: Normalize(t.Domain), Codomain: Normalize(t.Codomain)}
	case App:
		return normalizeApp(t)
	case Let:
		return Normalize(bindingSubst(t.Label, t.Value, t.Body))
	case If:
		return normalizeIf(t)
	case TextLit:
		return normalizeTextLit(t)
	case EmptyList:
		return EmptyList{Type: Normalize(t.Type)}
	case NonEmptyList:
		elems := make([]Term, len(t.Elements))
		for i, e := range t.Elements {
			elems[i] = Normalize(e)
		}
		return NonEmptyList{Elements: elems}
	case Some:
		return Some{Value: Normalize(t.Value)}
	case RecordType:
		return rebuild(t, Normalize)
	case RecordLit:
		return rebuild(t, Normalize)
	case UnionType:
		return rebuild(t, Normalize)
	case Field:
		record := Normalize(t.Record)
		if lit, ok := record.(RecordLit); ok {
			return lit[t.Label]
		}
		return Field{Record: record, Label: t.Label}
	case Project:
		return normalizeProject(t)
	case ProjectType:
		selector := Normalize(t.Selector)
		if rt, ok := selector.(RecordType); ok {
			labels := make([]string, 0, len(rt))
			for k := range rt {
				labels = append(labels, k)
			}
			sort.Strings(labels)
			return normalizeProject(Project{Record: t.Record, Labels: labels})
		}
		return ProjectType{Record: Normalize(t.Record), Selector: selector}
	case Merge:
		return normalizeMerge(t)
	case ToMap:
		return normalizeToMap(t)
	case With:
		return normalizeWith(t)
	case Assert:
		return Assert{Annotation: Normalize(t.Annotation)}
	case Op:
		return normalizeOp(t)
	case Import:
		// Imports are resolved before normalization; leaving one in place is
		// a caller bug, but the normalizer has nothing to reduce here.
		return t
	}
	panic("Normalize: unhandled term variant")
}

// normalEquivalent decides judgmental equality of two already-normalized
// terms.
func normalEquivalent(a, b Term) bool {
	return equalTerms(AlphaNormalize(a), AlphaNormalize(b))
}

func normalizeApp(t App) Term {
	fn := Normalize(t.Fn)
	arg := Normalize(t.Arg)
	if lam, ok := fn.(Lambda); ok {
		return Normalize(bindingSubst(lam.Label, arg, lam.Body))
	}
	stuck := App{Fn: fn, Arg: arg}
	head, args := spine(stuck)
	if b, ok := head.(Builtin); ok {
		if arity, reducible := builtinArities[b]; reducible && len(args) == arity {
			if out, ok := applyBuiltin(b, args); ok {
				return out
			}
		}
	}
	return stuck
}

// spine unwinds nested applications into a head and its argument list.
func spine(t Term) (Term, []Term) {
	var args []Term
	for {
		app, ok := t.(App)
		if !ok {
			break
		}
		args = append([]Term{app.Arg}, args...)
		t = app.Fn
	}
	return t, args
}

func normalizeIf(t If) Term {
	cond := Normalize(t.Cond)
	thenB := Normalize(t.T)
	elseB := Normalize(t.F)
	if b, ok := cond.(BoolLit); ok {
		if bool(b) {
			return thenB
		}
		return elseB
	}
	if tb, ok := thenB.(BoolLit); ok {
		if fb, ok := elseB.(BoolLit); ok && bool(tb) && !bool(fb) {
			return cond
		}
	}
	if normalEquivalent(thenB, elseB) {
		return thenB
	}
	return If{Cond: cond, T: thenB, F: elseB}
}

func normalizeTextLit(t TextLit) Term {
	var out TextLit
	pending := ""
	push := func(s string) { pending += s }
	interpolate := func(e Term) {
		out.Chunks = append(out.Chunks, Chunk{Prefix: pending, Expr: e})
		pending = ""
	}

	for _, c := range t.Chunks {
		push(c.Prefix)
		e := Normalize(c.Expr)
		if inner, ok := e.(TextLit); ok {
			for _, ic := range inner.Chunks {
				push(ic.Prefix)
				interpolate(ic.Expr)
			}
			push(inner.Suffix)
		} else {
			interpolate(e)
		}
	}
	push(t.Suffix)
	out.Suffix = pending

	// A lone interpolation with no surrounding text reduces to the
	// interpolated term itself.
	if len(out.Chunks) == 1 && out.Chunks[0].Prefix == "" && out.Suffix == "" {
		return out.Chunks[0].Expr
	}
	return out
}

func normalizeProject(t Project) Term {
	record := Normalize(t.Record)
	labels := make([]string, len(t.Labels))
	copy(labels, t.Labels)
	sort.Strings(labels)
	if lit, ok := record.(RecordLit); ok {
		out := RecordLit{}
		for _, l := range labels {
			out[l] = lit[l]
		}
		return out
	}
	if len(labels) == 0 {
		return RecordLit{}
	}
	return Project{Record: record, Labels: labels}
}

func normalizeMerge(t Merge) Term {
	handler := Normalize(t.Handler)
	union := Normalize(t.Union)

	if h, ok := handler.(RecordLit); ok {
		switch u := union.(type) {
		case Field:
			// Payload-free alternative: the handler value is the result.
			if _, ok := u.Record.(UnionType); ok {
				return h[u.Label]
			}
		case App:
			if f, ok := u.Fn.(Field); ok {
				if _, ok := f.Record.(UnionType); ok {
					return Normalize(App{Fn: h[f.Label], Arg: u.Arg})
				}
			}
			if b, ok := u.Fn.(Builtin); ok && b == None {
				return h["None"]
			}
		case Some:
			return Normalize(App{Fn: h["Some"], Arg: u.Value})
		}
	}
	out := Merge{Handler: handler, Union: union}
	if t.Annotation != nil {
		out.Annotation = Normalize(t.Annotation)
	}
	return out
}

func normalizeToMap(t ToMap) Term {
	record := Normalize(t.Record)
	if lit, ok := record.(RecordLit); ok {
		if len(lit) == 0 {
			return EmptyList{Type: Normalize(t.Annotation)}
		}
		keys := make([]string, 0, len(lit))
		for k := range lit {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		elems := make([]Term, 0, len(keys))
		for _, k := range keys {
			elems = append(elems, RecordLit{
				"mapKey":   PlainText(k),
				"mapValue": lit[k],
			})
		}
		return NonEmptyList{Elements: elems}
	}
	out := ToMap{Record: record}
	if t.Annotation != nil {
		out.Annotation = Normalize(t.Annotation)
	}
	return out
}

func normalizeWith(t With) Term {
	record := Normalize(t.Record)
	value := Normalize(t.Value)
	if lit, ok := record.(RecordLit); ok {
		return updatePath(lit, t.Path, value)
	}
	path := make([]string, len(t.Path))
	copy(path, t.Path)
	return With{Record: record, Path: path, Value: value}
}

// updatePath replaces the value at path inside a record literal, creating
// intermediate records where the path descends through absent or non-record
// fields.
func updatePath(lit RecordLit, path []string, value Term) RecordLit {
	out := RecordLit{}
	for k, v := range lit {
		out[k] = v
	}
	if len(path) == 1 {
		out[path[0]] = value
		return out
	}
	inner, ok := out[path[0]].(RecordLit)
	if !ok {
		inner = RecordLit{}
	}
	out[path[0]] = updatePath(inner, path[1:], value)
	return out
}

func normalizeOp(t Op) Term {
	if t.OpCode == ImportAltOp {
		// The resolver eliminates fallbacks; if one reaches the normalizer
		// the left branch has already succeeded.
		return Normalize(t.L)
	}
	l := Normalize(t.L)
	r := Normalize(t.R)
	switch t.OpCode {
	case OrOp:
		if lb, ok := l.(BoolLit); ok {
			if bool(lb) {
				return BoolLit(true)
			}
			return r
		}
		if rb, ok := r.(BoolLit); ok {
			if bool(rb) {
				return BoolLit(true)
			}
			return l
		}
		if normalEquivalent(l, r) {
			return l
		}
	case AndOp:
		if lb, ok := l.(BoolLit); ok {
			if bool(lb) {
				return r
			}
			return BoolLit(false)
		}
		if rb, ok := r.(BoolLit); ok {
			if bool(rb) {
				return l
			}
			return BoolLit(false)
		}
		if normalEquivalent(l, r) {
			return l
		}
	case EqOp:
		if lb, ok := l.(BoolLit); ok && bool(lb) {
			return r
		}
		if rb, ok := r.(BoolLit); ok && bool(rb) {
			return l
		}
		if normalEquivalent(l, r) {
			return BoolLit(true)
		}
	case NeOp:
		if lb, ok := l.(BoolLit); ok && !bool(lb) {
			return r
		}
		if rb, ok := r.(BoolLit); ok && !bool(rb) {
			return l
		}
		if normalEquivalent(l, r) {
			return BoolLit(false)
		}
	case PlusOp:
		ln, lok := l.(NaturalLit)
		rn, rok := r.(NaturalLit)
		switch {
		case lok && rok:
			return NaturalLit{Value: new(big.Int).Add(ln.Value, rn.Value)}
		case lok && ln.Value.Sign() == 0:
			return r
		case rok && rn.Value.Sign() == 0:
			return l
		}
	case TimesOp:
		ln, lok := l.(NaturalLit)
		rn, rok := r.(NaturalLit)
		switch {
		case lok && rok:
			return NaturalLit{Value: new(big.Int).Mul(ln.Value, rn.Value)}
		case lok && ln.Value.Sign() == 0:
			return NewNatural(0)
		case rok && rn.Value.Sign() == 0:
			return NewNatural(0)
		case lok && ln.Value.Cmp(big.NewInt(1)) == 0:
			return r
		case rok && rn.Value.Cmp(big.NewInt(1)) == 0:
			return l
		}
	case TextAppendOp:
		return normalizeTextLit(TextLit{Chunks: []Chunk{{Expr: l}, {Expr: r}}})
	case ListAppendOp:
		if _, ok := l.(EmptyList); ok {
			return r
		}
		if _, ok := r.(EmptyList); ok {
			return l
		}
		ll, lok := l.(NonEmptyList)
		rl, rok := r.(NonEmptyList)
		if lok && rok {
			elems := make([]Term, 0, len(ll.Elements)+len(rl.Elements))
			elems = append(elems, ll.Elements...)
			elems = append(elems, rl.Elements...)
			return NonEmptyList{Elements: elems}
		}
	case CombineOp:
		ll, lok := l.(RecordLit)
		rl, rok := r.(RecordLit)
		switch {
		case lok && len(ll) == 0:
			return r
		case rok && len(rl) == 0:
			return l
		case lok && rok:
			return deepMergeLits(ll, rl)
		}
	case PreferOp:
		ll, lok := l.(RecordLit)
		rl, rok := r.(RecordLit)
		switch {
		case lok && len(ll) == 0:
			return r
		case rok && len(rl) == 0:
			return l
		case lok && rok:
			out := RecordLit{}
			for k, v := range ll {
				out[k] = v
			}
			for k, v := range rl {
				out[k] = v
			}
			return out
		}
		if normalEquivalent(l, r) {
			return l
		}
	case CombineTypesOp:
		lt, lok := l.(RecordType)
		rt, rok := r.(RecordType)
		switch {
		case lok && len(lt) == 0:
			return r
		case rok && len(rt) == 0:
			return l
		case lok && rok:
			return combineRecordTypes(lt, rt)
		}
	case EquivOp:
		// Equivalence is checked, never reduced.
	}
	return Op{OpCode: t.OpCode, L: l, R: r}
}

// deepMergeLits implements ∧ on record literals: shared labels whose values
// are both records merge recursively; on any other collision the right value
// wins.
func deepMergeLits(l, r RecordLit) RecordLit {
	out := RecordLit{}
	for k, v := range l {
		out[k] = v
	}
	for k, rv := range r {
		if lv, ok := out[k]; ok {
			lr, lok := lv.(RecordLit)
			rr, rok := rv.(RecordLit)
			if lok && rok {
				out[k] = deepMergeLits(lr, rr)
				continue
			}
		}
		out[k] = rv
	}
	return out
}

// combineRecordTypes implements ⩓: recursive union of two record types.
// Collisions between non-record member types are caught by the type checker;
// here the right side wins so normalization stays total.
func combineRecordTypes(l, r RecordType) RecordType {
	out := RecordType{}
	for k, v := range l {
		out[k] = v
	}
	for k, rv := range r {
		if lv, ok := out[k]; ok {
			lr, lok := lv.(RecordType)
			rr, rok := rv.(RecordType)
			if lok && rok {
				out[k] = combineRecordTypes(lr, rr)
				continue
			}
		}
		out[k] = rv
	}
	return out
}
