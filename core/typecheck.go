package core

import (
	"sort"
)

// ---------------------------------------------------------------------------
// Bidirectional type checking over the three-universe hierarchy
// Type : Kind : Sort. Definitional equality is decided by normalizing both
// sides and comparing up to alpha-equivalence. Checking stops at the first
// violation and reports the narrowest offending subterm.
// ---------------------------------------------------------------------------

// TypeOf infers the type of a closed term.
func TypeOf(t Term) (Term, error) {
	return Infer(EmptyContext(), t)
}

// Check verifies that t has the expected type under ctx.
func Check(ctx Context, t Term, expected Term) error {
	actual, err := Infer(ctx, t)
	if err != nil {
		return err
	}
	if !judgmentallyEqual(actual, expected) {
		return mistyped(TypeMismatch, t, "expected %s but found %s",
			Render(expected), Render(actual))
	}
	return nil
}

// judgmentallyEqual decides definitional equality.
func judgmentallyEqual(a, b Term) bool {
	return normalEquivalent(Normalize(a), Normalize(b))
}

// axiom gives the type of a universe; Sort is the untypeable top.
func axiom(u Universe) (Universe, error) {
	switch u {
	case Type:
		return Kind, nil
	case Kind:
		return Sort, nil
	}
	return 0, mistyped(UniverseViolation, u, "Sort has no type")
}

// functionCheck combines the universes of a function type's domain and
// codomain. Functions returning terms are terms regardless of what they
// range over; otherwise the bigger universe wins.
func functionCheck(in, out Universe) Universe {
	if out == Type {
		return Type
	}
	if in > out {
		return in
	}
	return out
}

// inferUniverse infers the type of t and requires it to be a universe.
func inferUniverse(ctx Context, t Term) (Universe, error) {
	k, err := Infer(ctx, t)
	if err != nil {
		return 0, err
	}
	if u, ok := Normalize(k).(Universe); ok {
		return u, nil
	}
	return 0, mistyped(UniverseViolation, t, "%s is not a type, kind or sort", Render(t))
}

// Infer computes the type of t under ctx. The returned type is not
// necessarily normalized.
func Infer(ctx Context, t Term) (Term, error) {
	switch t := t.(type) {
	case Note:
		typ, err := Infer(ctx, t.Expr)
		if te, ok := err.(*TypeError); ok && te.Span == nil {
			span := t.Span
			te.Span = &span
		}
		return typ, err

	case Universe:
		k, err := axiom(t)
		if err != nil {
			return nil, err
		}
		return k, nil

	case Var:
		if typ, ok := ctx.Lookup(t.Name, t.Index); ok {
			return typ, nil
		}
		return nil, mistyped(UnboundVariable, t, "%s@%d", t.Name, t.Index)

	case Builtin:
		if typ, ok := builtinType(t); ok {
			return typ, nil
		}
		return nil, mistyped(UnboundVariable, t, "unknown builtin %s", string(t))

	case Lambda:
		if _, err := inferUniverse(ctx, t.Type); err != nil {
			return nil, err
		}
		inner := ctx.Extend(t.Label, t.Type)
		bodyType, err := Infer(inner, t.Body)
		if err != nil {
			return nil, err
		}
		// Validate the resulting function type's universe.
		if _, err := inferUniverse(inner, bodyType); err != nil {
			return nil, err
		}
		return Pi{Label: t.Label, Domain: t.Type, Codomain: bodyType}, nil

	case Pi:
		kIn, err := inferUniverse(ctx, t.Domain)
		if err != nil {
			return nil, err
		}
		kOut, err := inferUniverse(ctx.Extend(t.Label, t.Domain), t.Codomain)
		if err != nil {
			return nil, err
		}
		return functionCheck(kIn, kOut), nil

	case App:
		fnType, err := Infer(ctx, t.Fn)
		if err != nil {
			return nil, err
		}
		pi, ok := Normalize(fnType).(Pi)
		if !ok {
			return nil, mistyped(NotAFunction, t.Fn, "cannot apply %s", Render(t.Fn))
		}
		argType, err := Infer(ctx, t.Arg)
		if err != nil {
			return nil, err
		}
		if !judgmentallyEqual(pi.Domain, argType) {
			return nil, mistyped(TypeMismatch, t.Arg, "expected %s but found %s",
				Render(Normalize(pi.Domain)), Render(Normalize(argType)))
		}
		return bindingSubst(pi.Label, t.Arg, pi.Codomain), nil

	case Let:
		valueType, err := Infer(ctx, t.Value)
		if err != nil {
			return nil, err
		}
		if t.Annotation != nil {
			if !judgmentallyEqual(t.Annotation, valueType) {
				return nil, mistyped(AnnotationMismatch, t.Value,
					"let annotation %s does not match inferred %s",
					Render(t.Annotation), Render(valueType))
			}
		}
		return Infer(ctx, bindingSubst(t.Label, t.Value, t.Body))

	case Annot:
		if t.Annotation != Term(Sort) {
			if _, err := Infer(ctx, t.Annotation); err != nil {
				return nil, err
			}
		}
		actual, err := Infer(ctx, t.Expr)
		if err != nil {
			return nil, err
		}
		if !judgmentallyEqual(t.Annotation, actual) {
			return nil, mistyped(AnnotationMismatch, t.Expr,
				"annotated %s but inferred %s", Render(t.Annotation), Render(actual))
		}
		return t.Annotation, nil

	case BoolLit:
		return Bool, nil
	case NaturalLit:
		return Natural, nil
	case IntegerLit:
		return Integer, nil
	case DoubleLit:
		return Double, nil

	case TextLit:
		for _, c := range t.Chunks {
			if err := Check(ctx, c.Expr, Text); err != nil {
				return nil, err
			}
		}
		return Text, nil

	case If:
		condType, err := Infer(ctx, t.Cond)
		if err != nil {
			return nil, err
		}
		if !judgmentallyEqual(condType, Bool) {
			return nil, mistyped(InvalidPredicate, t.Cond,
				"if predicate has type %s, not Bool", Render(condType))
		}
		thenType, err := Infer(ctx, t.T)
		if err != nil {
			return nil, err
		}
		elseType, err := Infer(ctx, t.F)
		if err != nil {
			return nil, err
		}
		if !judgmentallyEqual(thenType, elseType) {
			return nil, mistyped(MismatchedBranches, t,
				"then has type %s, else has type %s", Render(thenType), Render(elseType))
		}
		return thenType, nil

	case EmptyList:
		if _, err := inferUniverse(ctx, t.Type); err != nil {
			return nil, err
		}
		listType := Normalize(t.Type)
		if app, ok := listType.(App); ok {
			if b, ok := app.Fn.(Builtin); ok && b == List {
				return listType, nil
			}
		}
		return nil, mistyped(InvalidListType, t.Type,
			"empty list annotated %s, not a List type", Render(t.Type))

	case NonEmptyList:
		elemType, err := Infer(ctx, t.Elements[0])
		if err != nil {
			return nil, err
		}
		if k, err := inferUniverse(ctx, elemType); err != nil {
			return nil, err
		} else if k != Type {
			return nil, mistyped(InvalidListType, t.Elements[0],
				"list elements must be terms")
		}
		for i, e := range t.Elements[1:] {
			et, err := Infer(ctx, e)
			if err != nil {
				return nil, err
			}
			if !judgmentallyEqual(elemType, et) {
				return nil, mistyped(MismatchedListElements, e,
					"element %d has type %s, expected %s", i+1, Render(et), Render(elemType))
			}
		}
		return App{Fn: List, Arg: elemType}, nil

	case Some:
		valueType, err := Infer(ctx, t.Value)
		if err != nil {
			return nil, err
		}
		if k, err := inferUniverse(ctx, valueType); err != nil {
			return nil, err
		} else if k != Type {
			return nil, mistyped(UniverseViolation, t.Value,
				"Some payload must be a term")
		}
		return App{Fn: Optional, Arg: valueType}, nil

	case RecordType:
		max := Type
		for _, label := range sortedLabels(t) {
			k, err := inferUniverse(ctx, t[label])
			if err != nil {
				return nil, err
			}
			if k > max {
				max = k
			}
		}
		return max, nil

	case RecordLit:
		fieldTypes := RecordType{}
		for _, label := range sortedLabels(t) {
			fieldType, err := Infer(ctx, t[label])
			if err != nil {
				return nil, err
			}
			fieldTypes[label] = fieldType
		}
		return fieldTypes, nil

	case UnionType:
		max := Type
		for _, label := range sortedLabels(t) {
			if t[label] == nil {
				continue
			}
			k, err := inferUniverse(ctx, t[label])
			if err != nil {
				return nil, err
			}
			if k > max {
				max = k
			}
		}
		return max, nil

	case Field:
		return inferField(ctx, t)

	case Project:
		return inferProject(ctx, t)

	case ProjectType:
		selector := Normalize(t.Selector)
		wanted, ok := selector.(RecordType)
		if !ok {
			return nil, mistyped(NotARecord, t.Selector,
				"projection selector %s is not a record type", Render(t.Selector))
		}
		recordType, err := inferRecordType(ctx, t.Record)
		if err != nil {
			return nil, err
		}
		for _, label := range sortedLabels(wanted) {
			actual, ok := recordType[label]
			if !ok {
				return nil, mistyped(MissingField, t.Record, "no field %q to project", label)
			}
			if !judgmentallyEqual(actual, wanted[label]) {
				return nil, mistyped(TypeMismatch, t,
					"projected field %q has type %s, selector wants %s",
					label, Render(actual), Render(wanted[label]))
			}
		}
		return wanted, nil

	case Merge:
		return inferMerge(ctx, t)

	case ToMap:
		return inferToMap(ctx, t)

	case With:
		return inferWith(ctx, t)

	case Assert:
		if err := Check(ctx, t.Annotation, Type); err != nil {
			return nil, err
		}
		annot := Normalize(t.Annotation)
		equiv, ok := annot.(Op)
		if !ok || equiv.OpCode != EquivOp {
			return nil, mistyped(TypeMismatch, t.Annotation,
				"assert needs an equivalence, found %s", Render(annot))
		}
		if !normalEquivalent(equiv.L, equiv.R) {
			return nil, mistyped(AssertionFailed, t.Annotation,
				"%s is not %s", Render(equiv.L), Render(equiv.R))
		}
		return annot, nil

	case Op:
		return inferOp(ctx, t)

	case Import:
		return nil, mistyped(UnresolvedImport, t, "%s", t.String())
	}
	panic("Infer: unhandled term variant")
}

func sortedLabels(m map[string]Term) []string {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// inferRecordType infers t's type and requires it to normalize to a record
// type.
func inferRecordType(ctx Context, t Term) (RecordType, error) {
	typ, err := Infer(ctx, t)
	if err != nil {
		return nil, err
	}
	rt, ok := Normalize(typ).(RecordType)
	if !ok {
		return nil, mistyped(NotARecord, t, "%s has type %s", Render(t), Render(typ))
	}
	return rt, nil
}

func inferField(ctx Context, t Field) (Term, error) {
	typ, err := Infer(ctx, t.Record)
	if err != nil {
		return nil, err
	}
	switch recordType := Normalize(typ).(type) {
	case RecordType:
		fieldType, ok := recordType[t.Label]
		if !ok {
			return nil, mistyped(MissingField, t.Record, "no field %q", t.Label)
		}
		return fieldType, nil
	case Universe:
		// Selecting from a union type yields a constructor.
		union, ok := Normalize(t.Record).(UnionType)
		if !ok {
			return nil, mistyped(NotARecord, t.Record,
				"cannot select %q from %s", t.Label, Render(t.Record))
		}
		payload, ok := union[t.Label]
		if !ok {
			return nil, mistyped(MissingField, t.Record, "no alternative %q", t.Label)
		}
		if payload == nil {
			return union, nil
		}
		return Pi{
			Label:    t.Label,
			Domain:   payload,
			Codomain: Shift(1, Var{Name: t.Label}, union),
		}, nil
	default:
		return nil, mistyped(NotARecord, t.Record,
			"cannot select %q from %s", t.Label, Render(t.Record))
	}
}

func inferProject(ctx Context, t Project) (Term, error) {
	recordType, err := inferRecordType(ctx, t.Record)
	if err != nil {
		return nil, err
	}
	out := RecordType{}
	for _, label := range t.Labels {
		if _, dup := out[label]; dup {
			return nil, mistyped(DuplicateLabel, t, "label %q projected twice", label)
		}
		fieldType, ok := recordType[label]
		if !ok {
			return nil, mistyped(MissingField, t.Record, "no field %q to project", label)
		}
		out[label] = fieldType
	}
	return out, nil
}

func inferMerge(ctx Context, t Merge) (Term, error) {
	handlerType, err := inferRecordType(ctx, t.Handler)
	if err != nil {
		return nil, err
	}

	scrutineeType, err := Infer(ctx, t.Union)
	if err != nil {
		return nil, err
	}
	var alternatives UnionType
	switch st := Normalize(scrutineeType).(type) {
	case UnionType:
		alternatives = st
	case App:
		if b, ok := st.Fn.(Builtin); ok && b == Optional {
			alternatives = UnionType{"None": nil, "Some": st.Arg}
			break
		}
		return nil, mistyped(NotAUnion, t.Union, "%s has type %s", Render(t.Union), Render(st))
	default:
		return nil, mistyped(NotAUnion, t.Union, "%s has type %s", Render(t.Union), Render(st))
	}

	for _, label := range sortedLabels(handlerType) {
		if _, ok := alternatives[label]; !ok {
			return nil, mistyped(UnusedHandler, t.Handler, "handler %q matches no alternative", label)
		}
	}
	for _, label := range sortedLabels(alternatives) {
		if _, ok := handlerType[label]; !ok {
			return nil, mistyped(MissingHandler, t.Handler, "no handler for %q", label)
		}
	}

	var resultType Term
	for _, label := range sortedLabels(alternatives) {
		var out Term
		if payload := alternatives[label]; payload == nil {
			out = handlerType[label]
		} else {
			pi, ok := Normalize(handlerType[label]).(Pi)
			if !ok {
				return nil, mistyped(HandlerMismatch, t.Handler,
					"handler %q must be a function, has type %s",
					label, Render(handlerType[label]))
			}
			if !judgmentallyEqual(pi.Domain, payload) {
				return nil, mistyped(HandlerMismatch, t.Handler,
					"handler %q wants %s, alternative carries %s",
					label, Render(pi.Domain), Render(payload))
			}
			if occursFree(Var{Name: pi.Label}, pi.Codomain) {
				return nil, mistyped(HandlerMismatch, t.Handler,
					"handler %q output type depends on its argument", label)
			}
			out = Shift(-1, Var{Name: pi.Label}, pi.Codomain)
		}
		if resultType == nil {
			resultType = out
		} else if !judgmentallyEqual(resultType, out) {
			return nil, mistyped(HandlerMismatch, t.Handler,
				"handler %q returns %s, others return %s",
				label, Render(out), Render(resultType))
		}
	}

	if resultType == nil {
		if t.Annotation == nil {
			return nil, mistyped(MissingAnnotation, t,
				"merge of an empty union needs a result type annotation")
		}
		if err := Check(ctx, t.Annotation, Type); err != nil {
			return nil, err
		}
		resultType = t.Annotation
	}
	if t.Annotation != nil && !judgmentallyEqual(t.Annotation, resultType) {
		return nil, mistyped(AnnotationMismatch, t,
			"merge annotated %s but produces %s", Render(t.Annotation), Render(resultType))
	}
	return resultType, nil
}

func inferToMap(ctx Context, t ToMap) (Term, error) {
	recordType, err := inferRecordType(ctx, t.Record)
	if err != nil {
		return nil, err
	}

	var valueType Term
	for _, label := range sortedLabels(recordType) {
		fieldType := recordType[label]
		if valueType == nil {
			valueType = fieldType
		} else if !judgmentallyEqual(valueType, fieldType) {
			return nil, mistyped(MismatchedListElements, t.Record,
				"toMap field %q has type %s, expected %s",
				label, Render(fieldType), Render(valueType))
		}
	}

	if valueType == nil {
		if t.Annotation == nil {
			return nil, mistyped(MissingAnnotation, t,
				"toMap of an empty record needs a type annotation")
		}
		if _, err := toMapValueType(t.Annotation); err != nil {
			return nil, err
		}
		return t.Annotation, nil
	}
	if k, err := inferUniverse(ctx, valueType); err != nil {
		return nil, err
	} else if k != Type {
		return nil, mistyped(UniverseViolation, t.Record, "toMap values must be terms")
	}

	result := App{Fn: List, Arg: RecordType{"mapKey": Text, "mapValue": valueType}}
	if t.Annotation != nil && !judgmentallyEqual(t.Annotation, result) {
		return nil, mistyped(AnnotationMismatch, t,
			"toMap annotated %s but produces %s", Render(t.Annotation), Render(result))
	}
	return result, nil
}

// toMapValueType validates the shape List {mapKey : Text, mapValue : T} and
// extracts T.
func toMapValueType(annotation Term) (Term, error) {
	malformed := func() error {
		return mistyped(AnnotationMismatch, annotation,
			"toMap annotation must be List {mapKey : Text, mapValue : T}")
	}
	app, ok := Normalize(annotation).(App)
	if !ok {
		return nil, malformed()
	}
	if b, ok := app.Fn.(Builtin); !ok || b != List {
		return nil, malformed()
	}
	entry, ok := app.Arg.(RecordType)
	if !ok || len(entry) != 2 {
		return nil, malformed()
	}
	key, ok := entry["mapKey"]
	if !ok || !judgmentallyEqual(key, Text) {
		return nil, malformed()
	}
	value, ok := entry["mapValue"]
	if !ok {
		return nil, malformed()
	}
	return value, nil
}

func inferWith(ctx Context, t With) (Term, error) {
	recordType, err := inferRecordType(ctx, t.Record)
	if err != nil {
		return nil, err
	}
	valueType, err := Infer(ctx, t.Value)
	if err != nil {
		return nil, err
	}
	return updateTypePath(recordType, t.Path, valueType, t)
}

func updateTypePath(rt RecordType, path []string, valueType Term, offender Term) (Term, error) {
	out := RecordType{}
	for k, v := range rt {
		out[k] = v
	}
	if len(path) == 1 {
		out[path[0]] = valueType
		return out, nil
	}
	inner := RecordType{}
	if existing, ok := out[path[0]]; ok {
		nested, ok := Normalize(existing).(RecordType)
		if !ok {
			return nil, mistyped(NotARecord, offender,
				"with path descends through non-record field %q", path[0])
		}
		inner = nested
	}
	updated, err := updateTypePath(inner, path[1:], valueType, offender)
	if err != nil {
		return nil, err
	}
	out[path[0]] = updated
	return out, nil
}

// checkOperand verifies one operand of a fixed-type operator, naming the
// offending side on mismatch.
func checkOperand(ctx Context, operand Term, want Builtin, op OpCode, side string) error {
	typ, err := Infer(ctx, operand)
	if err != nil {
		return err
	}
	if !judgmentallyEqual(typ, want) {
		return mistyped(InvalidOperands, operand,
			"%s operand of %s has type %s, expected %s", side, op, Render(typ), string(want))
	}
	return nil
}

func inferOp(ctx Context, t Op) (Term, error) {
	operandType := func(want Builtin) (Term, error) {
		if err := checkOperand(ctx, t.L, want, t.OpCode, "left"); err != nil {
			return nil, err
		}
		if err := checkOperand(ctx, t.R, want, t.OpCode, "right"); err != nil {
			return nil, err
		}
		return want, nil
	}

	switch t.OpCode {
	case OrOp, AndOp, EqOp, NeOp:
		return operandType(Bool)
	case PlusOp, TimesOp:
		return operandType(Natural)
	case TextAppendOp:
		return operandType(Text)

	case ListAppendOp:
		leftType, err := Infer(ctx, t.L)
		if err != nil {
			return nil, err
		}
		rightType, err := Infer(ctx, t.R)
		if err != nil {
			return nil, err
		}
		if !isListType(Normalize(leftType)) {
			return nil, mistyped(InvalidOperands, t.L,
				"left operand of # has type %s, expected a List", Render(leftType))
		}
		if !judgmentallyEqual(leftType, rightType) {
			return nil, mistyped(InvalidOperands, t.R,
				"cannot append %s to %s", Render(rightType), Render(leftType))
		}
		return leftType, nil

	case CombineOp:
		leftType, err := inferRecordType(ctx, t.L)
		if err != nil {
			return nil, err
		}
		rightType, err := inferRecordType(ctx, t.R)
		if err != nil {
			return nil, err
		}
		return combineRecordTypes(leftType, rightType), nil

	case PreferOp:
		leftType, err := inferRecordType(ctx, t.L)
		if err != nil {
			return nil, err
		}
		rightType, err := inferRecordType(ctx, t.R)
		if err != nil {
			return nil, err
		}
		out := RecordType{}
		for k, v := range leftType {
			out[k] = v
		}
		for k, v := range rightType {
			out[k] = v
		}
		return out, nil

	case CombineTypesOp:
		kL, err := inferUniverse(ctx, t.L)
		if err != nil {
			return nil, err
		}
		left, ok := Normalize(t.L).(RecordType)
		if !ok {
			return nil, mistyped(NotARecord, t.L, "left operand of ⩓ is not a record type")
		}
		kR, err := inferUniverse(ctx, t.R)
		if err != nil {
			return nil, err
		}
		right, ok := Normalize(t.R).(RecordType)
		if !ok {
			return nil, mistyped(NotARecord, t.R, "right operand of ⩓ is not a record type")
		}
		if err := checkTypeCombineCollisions(left, right, t); err != nil {
			return nil, err
		}
		if kL > kR {
			return kL, nil
		}
		return kR, nil

	case ImportAltOp:
		return Infer(ctx, t.L)

	case EquivOp:
		leftType, err := Infer(ctx, t.L)
		if err != nil {
			return nil, err
		}
		rightType, err := Infer(ctx, t.R)
		if err != nil {
			return nil, err
		}
		if k, err := inferUniverse(ctx, leftType); err != nil {
			return nil, err
		} else if k != Type {
			return nil, mistyped(InvalidOperands, t.L, "≡ compares terms only")
		}
		if !judgmentallyEqual(leftType, rightType) {
			return nil, mistyped(InvalidOperands, t,
				"cannot compare %s with %s", Render(leftType), Render(rightType))
		}
		return Type, nil
	}
	return nil, mistyped(InvalidOperands, t, "unknown operator")
}

func isListType(t Term) bool {
	app, ok := t.(App)
	if !ok {
		return false
	}
	b, ok := app.Fn.(Builtin)
	return ok && b == List
}

// checkTypeCombineCollisions rejects ⩓ operands whose shared labels carry
// non-record types.
func checkTypeCombineCollisions(l, r RecordType, offender Term) error {
	for _, label := range sortedLabels(l) {
		rv, shared := r[label]
		if !shared {
			continue
		}
		lr, lok := Normalize(l[label]).(RecordType)
		rr, rok := Normalize(rv).(RecordType)
		if !lok || !rok {
			return mistyped(FieldCollision, offender, "field %q present on both sides", label)
		}
		if err := checkTypeCombineCollisions(lr, rr, offender); err != nil {
			return err
		}
	}
	return nil
}
