package core

// ---------------------------------------------------------------------------
// De Bruijn variable operations.
//
// Variables are (name, index) pairs: the index counts enclosing binders of
// the same name, innermost first. Shift and Subst are the two primitives
// everything else (beta reduction, let elimination, alpha normalization,
// context lookup) is built from.
// ---------------------------------------------------------------------------

// rebuild applies f to every immediate subterm of t, reconstructing t.
// It is only safe for transformations that do not care about binders.
// MapChildren applies f to every immediate subterm of t and rebuilds t
// with the results. Leaves are returned unchanged. It does not recurse;
// callers drive their own traversal through f.
func MapChildren(t Term, f func(Term) Term) Term {
	return rebuild(t, f)
}

func rebuild(t Term, f func(Term) Term) Term {
	switch t := t.(type) {
	case Universe, Builtin, Var, BoolLit, NaturalLit, IntegerLit, DoubleLit, Import:
		return t
	case Lambda:
		return Lambda{Label: t.Label, Type: f(t.Type), Body: f(t.Body)}
	case Pi:
		return Pi{Label: t.Label, Domain: f(t.Domain), Codomain: f(t.Codomain)}
	case App:
		return App{Fn: f(t.Fn), Arg: f(t.Arg)}
	case Let:
		out := Let{Label: t.Label, Value: f(t.Value), Body: f(t.Body)}
		if t.Annotation != nil {
			out.Annotation = f(t.Annotation)
		}
		return out
	case Annot:
		return Annot{Expr: f(t.Expr), Annotation: f(t.Annotation)}
	case If:
		return If{Cond: f(t.Cond), T: f(t.T), F: f(t.F)}
	case TextLit:
		chunks := make([]Chunk, len(t.Chunks))
		for i, c := range t.Chunks {
			chunks[i] = Chunk{Prefix: c.Prefix, Expr: f(c.Expr)}
		}
		return TextLit{Chunks: chunks, Suffix: t.Suffix}
	case EmptyList:
		return EmptyList{Type: f(t.Type)}
	case NonEmptyList:
		elems := make([]Term, len(t.Elements))
		for i, e := range t.Elements {
			elems[i] = f(e)
		}
		return NonEmptyList{Elements: elems}
	case Some:
		return Some{Value: f(t.Value)}
	case RecordType:
		return RecordType(rebuildFields(t, f))
	case RecordLit:
		return RecordLit(rebuildFields(t, f))
	case UnionType:
		out := make(map[string]Term, len(t))
		for k, v := range t {
			if v == nil {
				out[k] = nil
			} else {
				out[k] = f(v)
			}
		}
		return UnionType(out)
	case Field:
		return Field{Record: f(t.Record), Label: t.Label}
	case Project:
		labels := make([]string, len(t.Labels))
		copy(labels, t.Labels)
		return Project{Record: f(t.Record), Labels: labels}
	case ProjectType:
		return ProjectType{Record: f(t.Record), Selector: f(t.Selector)}
	case Merge:
		out := Merge{Handler: f(t.Handler), Union: f(t.Union)}
		if t.Annotation != nil {
			out.Annotation = f(t.Annotation)
		}
		return out
	case ToMap:
		out := ToMap{Record: f(t.Record)}
		if t.Annotation != nil {
			out.Annotation = f(t.Annotation)
		}
		return out
	case With:
		path := make([]string, len(t.Path))
		copy(path, t.Path)
		return With{Record: f(t.Record), Path: path, Value: f(t.Value)}
	case Assert:
		return Assert{Annotation: f(t.Annotation)}
	case Op:
		return Op{OpCode: t.OpCode, L: f(t.L), R: f(t.R)}
	case Note:
		return Note{Span: t.Span, Expr: f(t.Expr)}
	}
	panic("rebuild: unhandled term variant")
}

func rebuildFields(m map[string]Term, f func(Term) Term) map[string]Term {
	out := make(map[string]Term, len(m))
	for k, v := range m {
		out[k] = f(v)
	}
	return out
}

// Shift adjusts by d the index of every free occurrence of a variable named
// v.Name whose index is at least v.Index. Bound occurrences are untouched.
func Shift(d int, v Var, t Term) Term {
	switch t := t.(type) {
	case Var:
		if t.Name == v.Name && t.Index >= v.Index {
			return Var{Name: t.Name, Index: t.Index + d}
		}
		return t
	case Lambda:
		body := Shift(d, bumpCutoff(v, t.Label), t.Body)
		return Lambda{Label: t.Label, Type: Shift(d, v, t.Type), Body: body}
	case Pi:
		cod := Shift(d, bumpCutoff(v, t.Label), t.Codomain)
		return Pi{Label: t.Label, Domain: Shift(d, v, t.Domain), Codomain: cod}
	case Let:
		out := Let{
			Label: t.Label,
			Value: Shift(d, v, t.Value),
			Body:  Shift(d, bumpCutoff(v, t.Label), t.Body),
		}
		if t.Annotation != nil {
			out.Annotation = Shift(d, v, t.Annotation)
		}
		return out
	default:
		return rebuild(t, func(s Term) Term { return Shift(d, v, s) })
	}
}

// bumpCutoff raises the shift cutoff when descending under a binder that
// shadows the shifted name.
func bumpCutoff(v Var, label string) Var {
	if label == v.Name {
		return Var{Name: v.Name, Index: v.Index + 1}
	}
	return v
}

// Subst replaces every free occurrence of v in t with c, shifting c as the
// substitution crosses binders so that no free variable of c is captured.
func Subst(v Var, c Term, t Term) Term {
	switch t := t.(type) {
	case Var:
		if t == v {
			return c
		}
		return t
	case Lambda:
		return Lambda{
			Label: t.Label,
			Type:  Subst(v, c, t.Type),
			Body:  Subst(bumpCutoff(v, t.Label), Shift(1, Var{Name: t.Label}, c), t.Body),
		}
	case Pi:
		return Pi{
			Label:    t.Label,
			Domain:   Subst(v, c, t.Domain),
			Codomain: Subst(bumpCutoff(v, t.Label), Shift(1, Var{Name: t.Label}, c), t.Codomain),
		}
	case Let:
		out := Let{
			Label: t.Label,
			Value: Subst(v, c, t.Value),
			Body:  Subst(bumpCutoff(v, t.Label), Shift(1, Var{Name: t.Label}, c), t.Body),
		}
		if t.Annotation != nil {
			out.Annotation = Subst(v, c, t.Annotation)
		}
		return out
	default:
		return rebuild(t, func(s Term) Term { return Subst(v, c, s) })
	}
}

// occursFree reports whether variable v occurs free in t.
func occursFree(v Var, t Term) bool {
	found := false
	var walk func(v Var, t Term)
	walk = func(v Var, t Term) {
		if found {
			return
		}
		switch t := t.(type) {
		case Var:
			if t == v {
				found = true
			}
		case Lambda:
			walk(v, t.Type)
			walk(bumpCutoff(v, t.Label), t.Body)
		case Pi:
			walk(v, t.Domain)
			walk(bumpCutoff(v, t.Label), t.Codomain)
		case Let:
			if t.Annotation != nil {
				walk(v, t.Annotation)
			}
			walk(v, t.Value)
			walk(bumpCutoff(v, t.Label), t.Body)
		default:
			rebuild(t, func(s Term) Term {
				walk(v, s)
				return s
			})
		}
	}
	walk(v, t)
	return found
}

// bindingSubst eliminates the binder named label by substituting value for
// its variable: the beta/let rule shared by the normalizer and the checker.
func bindingSubst(label string, value, body Term) Term {
	v := Var{Name: label}
	substituted := Subst(v, Shift(1, v, value), body)
	return Shift(-1, v, substituted)
}
