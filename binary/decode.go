package binary

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/godhall/godhall/core"
)

// DecodeErrorKind classifies a malformed wire form.
type DecodeErrorKind int

const (
	// BadTag is an unknown expression tag or builtin name.
	BadTag DecodeErrorKind = iota
	// BadArity is a tagged sequence with the wrong number of children.
	BadArity
	// Truncated is a byte buffer that ends mid-value.
	Truncated
	// Malformed is any other structural violation, trailing garbage
	// included.
	Malformed
)

func (k DecodeErrorKind) String() string {
	switch k {
	case BadTag:
		return "bad tag"
	case BadArity:
		return "bad arity"
	case Truncated:
		return "truncated"
	}
	return "malformed"
}

// DecodeError reports why a byte sequence is not a valid encoded term.
// Decoding never panics; every rejection comes back as one of these.
type DecodeError struct {
	Kind   DecodeErrorKind
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s: %s", e.Kind, e.Detail)
}

func decodeErr(kind DecodeErrorKind, format string, args ...any) error {
	return &DecodeError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

var decMode cbor.DecMode

func init() {
	opts := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthForbidden,
		MaxNestedLevels: 65535,
		DefaultMapType:  reflect.TypeOf(map[string]any{}),
	}
	dm, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("binary: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// Decode parses a canonical byte form back into a term. It is the total
// inverse of Encode on well-formed input and returns a DecodeError on
// anything else.
func Decode(data []byte) (core.Term, error) {
	var raw any
	if err := decMode.Unmarshal(data, &raw); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, decodeErr(Truncated, "%v", err)
		}
		return nil, decodeErr(Malformed, "%v", err)
	}
	return unbox(raw)
}

func unbox(raw any) (core.Term, error) {
	switch v := raw.(type) {
	case bool:
		return core.BoolLit(v), nil
	case float64:
		return core.DoubleLit(v), nil
	case float32:
		return core.DoubleLit(v), nil
	case uint64:
		return core.Var{Name: "_", Index: int(v)}, nil
	case string:
		switch v {
		case "Type":
			return core.Type, nil
		case "Kind":
			return core.Kind, nil
		case "Sort":
			return core.Sort, nil
		}
		if b, ok := core.LookupBuiltin(v); ok {
			return b, nil
		}
		return nil, decodeErr(BadTag, "unknown builtin %q", v)
	case []any:
		return unboxSeq(v)
	}
	return nil, decodeErr(Malformed, "unexpected %T at expression position", raw)
}

func unboxSeq(seq []any) (core.Term, error) {
	if len(seq) == 0 {
		return nil, decodeErr(BadArity, "empty sequence")
	}
	// A sequence starting with a string is a named variable.
	if name, ok := seq[0].(string); ok {
		if len(seq) != 2 {
			return nil, decodeErr(BadArity, "variable wants 2 elements, got %d", len(seq))
		}
		index, ok := seq[1].(uint64)
		if !ok {
			return nil, decodeErr(Malformed, "variable index is %T", seq[1])
		}
		if name == "_" {
			return nil, decodeErr(Malformed, "variable named _ must be encoded bare")
		}
		return core.Var{Name: name, Index: int(index)}, nil
	}

	tag, ok := seq[0].(uint64)
	if !ok {
		return nil, decodeErr(BadTag, "tag is %T, not an integer", seq[0])
	}
	args := seq[1:]

	switch tag {
	case tagApp:
		if len(args) < 2 {
			return nil, decodeErr(BadArity, "application wants a function and arguments")
		}
		fn, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		for _, a := range args[1:] {
			arg, err := unbox(a)
			if err != nil {
				return nil, err
			}
			fn = core.App{Fn: fn, Arg: arg}
		}
		return fn, nil

	case tagLambda, tagPi:
		label := "_"
		if len(args) == 3 {
			l, ok := args[0].(string)
			if !ok {
				return nil, decodeErr(Malformed, "binder label is %T", args[0])
			}
			if l == "_" {
				return nil, decodeErr(Malformed, "binder label _ must be omitted")
			}
			label = l
			args = args[1:]
		}
		if len(args) != 2 {
			return nil, decodeErr(BadArity, "binder wants 2 or 3 elements")
		}
		domain, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		body, err := unbox(args[1])
		if err != nil {
			return nil, err
		}
		if tag == tagLambda {
			return core.Lambda{Label: label, Type: domain, Body: body}, nil
		}
		return core.Pi{Label: label, Domain: domain, Codomain: body}, nil

	case tagOp:
		if len(args) != 3 {
			return nil, decodeErr(BadArity, "operator wants 3 elements, got %d", len(args))
		}
		code, ok := args[0].(uint64)
		if !ok || code > uint64(core.EquivOp) {
			return nil, decodeErr(BadTag, "unknown operator code %v", args[0])
		}
		l, err := unbox(args[1])
		if err != nil {
			return nil, err
		}
		r, err := unbox(args[2])
		if err != nil {
			return nil, err
		}
		return core.Op{OpCode: core.OpCode(code), L: l, R: r}, nil

	case tagList:
		if len(args) == 0 {
			return nil, decodeErr(BadArity, "list wants at least a type or elements")
		}
		if args[0] == nil {
			if len(args) < 2 {
				return nil, decodeErr(BadArity, "untyped list literal cannot be empty")
			}
			elems := make([]core.Term, len(args)-1)
			for i, a := range args[1:] {
				e, err := unbox(a)
				if err != nil {
					return nil, err
				}
				elems[i] = e
			}
			return core.NonEmptyList{Elements: elems}, nil
		}
		if len(args) != 1 {
			return nil, decodeErr(BadArity, "typed empty list wants 1 element")
		}
		elemType, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		return core.EmptyList{Type: core.App{Fn: core.List, Arg: elemType}}, nil

	case tagEmptyList:
		if len(args) != 1 {
			return nil, decodeErr(BadArity, "empty list wants 1 element")
		}
		listType, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		return core.EmptyList{Type: listType}, nil

	case tagSome:
		if len(args) != 2 || args[0] != nil {
			return nil, decodeErr(BadArity, "Some wants [5, null, value]")
		}
		value, err := unbox(args[1])
		if err != nil {
			return nil, err
		}
		return core.Some{Value: value}, nil

	case tagMerge:
		if len(args) != 2 && len(args) != 3 {
			return nil, decodeErr(BadArity, "merge wants 2 or 3 elements, got %d", len(args))
		}
		handler, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		union, err := unbox(args[1])
		if err != nil {
			return nil, err
		}
		out := core.Merge{Handler: handler, Union: union}
		if len(args) == 3 {
			if out.Annotation, err = unbox(args[2]); err != nil {
				return nil, err
			}
		}
		return out, nil

	case tagRecordType, tagRecordLit:
		if len(args) != 1 {
			return nil, decodeErr(BadArity, "record wants 1 element, got %d", len(args))
		}
		fields, err := unboxFields(args[0])
		if err != nil {
			return nil, err
		}
		if tag == tagRecordType {
			return core.RecordType(fields), nil
		}
		return core.RecordLit(fields), nil

	case tagUnionType:
		if len(args) != 1 {
			return nil, decodeErr(BadArity, "union wants 1 element, got %d", len(args))
		}
		raw, ok := args[0].(map[string]any)
		if !ok {
			return nil, decodeErr(Malformed, "union alternatives are %T", args[0])
		}
		out := core.UnionType{}
		for k, v := range raw {
			if v == nil {
				out[k] = nil
				continue
			}
			t, err := unbox(v)
			if err != nil {
				return nil, err
			}
			out[k] = t
		}
		return out, nil

	case tagField:
		if len(args) != 2 {
			return nil, decodeErr(BadArity, "field wants 2 elements, got %d", len(args))
		}
		record, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		label, ok := args[1].(string)
		if !ok {
			return nil, decodeErr(Malformed, "field label is %T", args[1])
		}
		return core.Field{Record: record, Label: label}, nil

	case tagProject:
		if len(args) < 1 {
			return nil, decodeErr(BadArity, "projection wants a record")
		}
		record, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		if len(args) == 2 {
			if sel, ok := args[1].([]any); ok {
				if len(sel) != 1 {
					return nil, decodeErr(BadArity, "type projection wants 1 selector")
				}
				selector, err := unbox(sel[0])
				if err != nil {
					return nil, err
				}
				return core.ProjectType{Record: record, Selector: selector}, nil
			}
		}
		labels := make([]string, len(args)-1)
		for i, a := range args[1:] {
			l, ok := a.(string)
			if !ok {
				return nil, decodeErr(Malformed, "projection label is %T", a)
			}
			labels[i] = l
		}
		return core.Project{Record: record, Labels: labels}, nil

	case tagIf:
		if len(args) != 3 {
			return nil, decodeErr(BadArity, "if wants 3 elements, got %d", len(args))
		}
		cond, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		thenB, err := unbox(args[1])
		if err != nil {
			return nil, err
		}
		elseB, err := unbox(args[2])
		if err != nil {
			return nil, err
		}
		return core.If{Cond: cond, T: thenB, F: elseB}, nil

	case tagNatural:
		if len(args) != 1 {
			return nil, decodeErr(BadArity, "natural wants 1 element, got %d", len(args))
		}
		n, err := unboxBig(args[0])
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 {
			return nil, decodeErr(Malformed, "negative natural %s", n)
		}
		return core.NaturalLit{Value: n}, nil

	case tagInteger:
		if len(args) != 1 {
			return nil, decodeErr(BadArity, "integer wants 1 element, got %d", len(args))
		}
		n, err := unboxBig(args[0])
		if err != nil {
			return nil, err
		}
		return core.IntegerLit{Value: n}, nil

	case tagText:
		if len(args) == 0 || len(args)%2 == 0 {
			return nil, decodeErr(BadArity, "text literal must alternate string, expression")
		}
		var out core.TextLit
		for i := 0; i < len(args)-1; i += 2 {
			prefix, ok := args[i].(string)
			if !ok {
				return nil, decodeErr(Malformed, "text chunk is %T", args[i])
			}
			expr, err := unbox(args[i+1])
			if err != nil {
				return nil, err
			}
			out.Chunks = append(out.Chunks, core.Chunk{Prefix: prefix, Expr: expr})
		}
		suffix, ok := args[len(args)-1].(string)
		if !ok {
			return nil, decodeErr(Malformed, "text suffix is %T", args[len(args)-1])
		}
		out.Suffix = suffix
		return out, nil

	case tagAssert:
		if len(args) != 1 {
			return nil, decodeErr(BadArity, "assert wants 1 element, got %d", len(args))
		}
		annotation, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		return core.Assert{Annotation: annotation}, nil

	case tagAnnot:
		if len(args) != 2 {
			return nil, decodeErr(BadArity, "annotation wants 2 elements, got %d", len(args))
		}
		expr, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		annotation, err := unbox(args[1])
		if err != nil {
			return nil, err
		}
		return core.Annot{Expr: expr, Annotation: annotation}, nil

	case tagToMap:
		if len(args) != 1 && len(args) != 2 {
			return nil, decodeErr(BadArity, "toMap wants 1 or 2 elements, got %d", len(args))
		}
		record, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		out := core.ToMap{Record: record}
		if len(args) == 2 {
			if out.Annotation, err = unbox(args[1]); err != nil {
				return nil, err
			}
		}
		return out, nil

	case tagWith:
		if len(args) != 3 {
			return nil, decodeErr(BadArity, "with wants 3 elements, got %d", len(args))
		}
		record, err := unbox(args[0])
		if err != nil {
			return nil, err
		}
		rawPath, ok := args[1].([]any)
		if !ok || len(rawPath) == 0 {
			return nil, decodeErr(Malformed, "with path is %T", args[1])
		}
		path := make([]string, len(rawPath))
		for i, p := range rawPath {
			s, ok := p.(string)
			if !ok {
				return nil, decodeErr(Malformed, "with path element is %T", p)
			}
			path[i] = s
		}
		value, err := unbox(args[2])
		if err != nil {
			return nil, err
		}
		return core.With{Record: record, Path: path, Value: value}, nil

	case tagLet:
		if len(args) < 4 || (len(args)-1)%3 != 0 {
			return nil, decodeErr(BadArity, "let wants triples of label, annotation, value plus a body")
		}
		body, err := unbox(args[len(args)-1])
		if err != nil {
			return nil, err
		}
		for i := len(args) - 4; i >= 0; i -= 3 {
			label, ok := args[i].(string)
			if !ok {
				return nil, decodeErr(Malformed, "let label is %T", args[i])
			}
			let := core.Let{Label: label, Body: body}
			if args[i+1] != nil {
				if let.Annotation, err = unbox(args[i+1]); err != nil {
					return nil, err
				}
			}
			if let.Value, err = unbox(args[i+2]); err != nil {
				return nil, err
			}
			body = let
		}
		return body, nil

	case tagImport:
		return unboxImport(args)
	}
	return nil, decodeErr(BadTag, "unknown expression tag %d", tag)
}

func unboxFields(raw any) (map[string]core.Term, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, decodeErr(Malformed, "record fields are %T", raw)
	}
	out := make(map[string]core.Term, len(fields))
	for k, v := range fields {
		t, err := unbox(v)
		if err != nil {
			return nil, err
		}
		out[k] = t
	}
	return out, nil
}

func unboxBig(raw any) (*big.Int, error) {
	switch v := raw.(type) {
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case *big.Int:
		return new(big.Int).Set(v), nil
	}
	return nil, decodeErr(Malformed, "number is %T", raw)
}

func unboxImport(args []any) (core.Term, error) {
	if len(args) < 3 {
		return nil, decodeErr(BadArity, "import wants at least hash, mode and scheme")
	}
	out := core.Import{}
	if args[0] != nil {
		hash, ok := args[0].([]byte)
		if !ok {
			return nil, decodeErr(Malformed, "import hash is %T", args[0])
		}
		if len(hash) != 34 || hash[0] != 0x12 || hash[1] != 0x20 {
			return nil, decodeErr(Malformed, "import hash is not a sha256 multihash")
		}
		out.Hash = hash
	}
	mode, ok := args[1].(uint64)
	if !ok || mode > uint64(core.Location) {
		return nil, decodeErr(Malformed, "unknown import mode %v", args[1])
	}
	out.Mode = core.ImportMode(mode)

	scheme, ok := args[2].(uint64)
	if !ok {
		return nil, decodeErr(Malformed, "import scheme is %T", args[2])
	}
	rest := args[3:]
	switch scheme {
	case schemeHTTP, schemeHTTPS:
		if len(rest) < 3 {
			return nil, decodeErr(BadArity, "remote import wants headers, authority and path")
		}
		if rest[0] != nil {
			return nil, decodeErr(Malformed, "import headers are not supported")
		}
		authority, ok := rest[1].(string)
		if !ok {
			return nil, decodeErr(Malformed, "import authority is %T", rest[1])
		}
		remote := core.Remote{Authority: authority}
		if scheme == schemeHTTPS {
			remote.Scheme = core.HTTPS
		}
		pathParts := rest[2:]
		if q := pathParts[len(pathParts)-1]; q != nil {
			query, ok := q.(string)
			if !ok {
				return nil, decodeErr(Malformed, "import query is %T", q)
			}
			remote.Query = query
			remote.HasQuery = true
		}
		for _, p := range pathParts[:len(pathParts)-1] {
			s, ok := p.(string)
			if !ok {
				return nil, decodeErr(Malformed, "import path element is %T", p)
			}
			remote.Path = append(remote.Path, s)
		}
		out.Fetchable = remote
	case schemeAbsolute, schemeHere, schemeParent, schemeHome:
		local := core.Local{}
		switch scheme {
		case schemeHere:
			local.Prefix = core.HerePath
		case schemeParent:
			local.Prefix = core.ParentPath
		case schemeHome:
			local.Prefix = core.HomePath
		}
		for _, p := range rest {
			s, ok := p.(string)
			if !ok {
				return nil, decodeErr(Malformed, "import path element is %T", p)
			}
			local.Components = append(local.Components, s)
		}
		out.Fetchable = local
	case schemeEnv:
		if len(rest) != 1 {
			return nil, decodeErr(BadArity, "env import wants a variable name")
		}
		name, ok := rest[0].(string)
		if !ok {
			return nil, decodeErr(Malformed, "env variable name is %T", rest[0])
		}
		out.Fetchable = core.Env{Name: name}
	case schemeMissing:
		if len(rest) != 0 {
			return nil, decodeErr(BadArity, "missing import takes no arguments")
		}
		out.Fetchable = core.Missing{}
	default:
		return nil, decodeErr(BadTag, "unknown import scheme %d", scheme)
	}
	return out, nil
}
