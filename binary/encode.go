// Package binary implements the canonical wire format and the semantic hash.
//
// Terms are encoded as CBOR with a fixed tag+arity layout per variant,
// in canonical mode so that encoding is deterministic: two terms produce the
// same bytes exactly when they are alpha-equivalent. Hashing a term first
// normalizes and alpha-normalizes it, so the digest is an identity for the
// term's whole equivalence class.
package binary

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/godhall/godhall/core"
)

// Expression tags. The values are the wire format and must never change
// meaning; adding tags is fine, reassigning them breaks every stored hash.
const (
	tagApp         = 0
	tagLambda      = 1
	tagPi          = 2
	tagOp          = 3
	tagList        = 4
	tagSome        = 5
	tagMerge       = 6
	tagRecordType  = 7
	tagRecordLit   = 8
	tagField       = 9
	tagProject     = 10
	tagUnionType   = 11
	tagIf          = 14
	tagNatural     = 15
	tagInteger     = 16
	tagText        = 18
	tagAssert      = 19
	tagImport      = 24
	tagLet         = 25
	tagAnnot       = 26
	tagToMap       = 27
	tagEmptyList   = 28
	tagWith        = 29
)

var encMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.ShortestFloat = cbor.ShortestFloat16
	opts.NaNConvert = cbor.NaNConvert7e00
	opts.InfConvert = cbor.InfConvertFloat16
	opts.BigIntConvert = cbor.BigIntConvertShortest
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("binary: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Encode serializes a term to its canonical byte form. The input should be
// normalized and alpha-normalized when byte equality is meant to coincide
// with semantic equality; Encode itself performs no normalization beyond
// dropping source spans.
func Encode(t core.Term) ([]byte, error) {
	b, err := box(t)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("binary: marshal: %w", err)
	}
	return data, nil
}

// box converts a term to the CBOR-shaped value tree the codec marshals.
func box(t core.Term) (any, error) {
	switch t := t.(type) {
	case core.Note:
		return box(t.Expr)

	case core.Universe:
		return t.String(), nil

	case core.Builtin:
		return string(t), nil

	case core.Var:
		if t.Name == "_" {
			return uint64(t.Index), nil
		}
		return []any{t.Name, uint64(t.Index)}, nil

	case core.App:
		head, args := t.Fn, []core.Term{t.Arg}
		for {
			app, ok := head.(core.App)
			if !ok {
				break
			}
			args = append([]core.Term{app.Arg}, args...)
			head = app.Fn
		}
		out := []any{tagApp}
		if err := appendBoxed(&out, head); err != nil {
			return nil, err
		}
		for _, a := range args {
			if err := appendBoxed(&out, a); err != nil {
				return nil, err
			}
		}
		return out, nil

	case core.Lambda:
		if t.Label == "_" {
			return boxSeq(tagLambda, t.Type, t.Body)
		}
		out := []any{tagLambda, t.Label}
		if err := appendBoxed(&out, t.Type, t.Body); err != nil {
			return nil, err
		}
		return out, nil

	case core.Pi:
		if t.Label == "_" {
			return boxSeq(tagPi, t.Domain, t.Codomain)
		}
		out := []any{tagPi, t.Label}
		if err := appendBoxed(&out, t.Domain, t.Codomain); err != nil {
			return nil, err
		}
		return out, nil

	case core.Op:
		out := []any{tagOp, int(t.OpCode)}
		if err := appendBoxed(&out, t.L, t.R); err != nil {
			return nil, err
		}
		return out, nil

	case core.BoolLit:
		return bool(t), nil

	case core.If:
		return boxSeq(tagIf, t.Cond, t.T, t.F)

	case core.NaturalLit:
		return []any{tagNatural, new(big.Int).Set(t.Value)}, nil

	case core.IntegerLit:
		return []any{tagInteger, new(big.Int).Set(t.Value)}, nil

	case core.DoubleLit:
		return float64(t), nil

	case core.TextLit:
		out := []any{tagText}
		for _, c := range t.Chunks {
			out = append(out, c.Prefix)
			if err := appendBoxed(&out, c.Expr); err != nil {
				return nil, err
			}
		}
		out = append(out, t.Suffix)
		return out, nil

	case core.EmptyList:
		if app, ok := t.Type.(core.App); ok {
			if b, ok := app.Fn.(core.Builtin); ok && b == core.List {
				return boxSeq(tagList, app.Arg)
			}
		}
		return boxSeq(tagEmptyList, t.Type)

	case core.NonEmptyList:
		out := []any{tagList, nil}
		for _, e := range t.Elements {
			if err := appendBoxed(&out, e); err != nil {
				return nil, err
			}
		}
		return out, nil

	case core.Some:
		b, err := box(t.Value)
		if err != nil {
			return nil, err
		}
		return []any{tagSome, nil, b}, nil

	case core.RecordType:
		return boxFields(tagRecordType, t)

	case core.RecordLit:
		return boxFields(tagRecordLit, t)

	case core.UnionType:
		fields := make(map[string]any, len(t))
		for k, v := range t {
			if v == nil {
				fields[k] = nil
				continue
			}
			b, err := box(v)
			if err != nil {
				return nil, err
			}
			fields[k] = b
		}
		return []any{tagUnionType, fields}, nil

	case core.Field:
		out := []any{tagField}
		if err := appendBoxed(&out, t.Record); err != nil {
			return nil, err
		}
		return append(out, t.Label), nil

	case core.Project:
		out := []any{tagProject}
		if err := appendBoxed(&out, t.Record); err != nil {
			return nil, err
		}
		for _, l := range t.Labels {
			out = append(out, l)
		}
		return out, nil

	case core.ProjectType:
		record, err := box(t.Record)
		if err != nil {
			return nil, err
		}
		selector, err := box(t.Selector)
		if err != nil {
			return nil, err
		}
		return []any{tagProject, record, []any{selector}}, nil

	case core.Merge:
		if t.Annotation != nil {
			return boxSeq(tagMerge, t.Handler, t.Union, t.Annotation)
		}
		return boxSeq(tagMerge, t.Handler, t.Union)

	case core.ToMap:
		if t.Annotation != nil {
			return boxSeq(tagToMap, t.Record, t.Annotation)
		}
		return boxSeq(tagToMap, t.Record)

	case core.With:
		record, err := box(t.Record)
		if err != nil {
			return nil, err
		}
		value, err := box(t.Value)
		if err != nil {
			return nil, err
		}
		path := make([]any, len(t.Path))
		for i, p := range t.Path {
			path[i] = p
		}
		return []any{tagWith, record, path, value}, nil

	case core.Assert:
		return boxSeq(tagAssert, t.Annotation)

	case core.Annot:
		return boxSeq(tagAnnot, t.Expr, t.Annotation)

	case core.Let:
		out := []any{tagLet}
		body := core.Term(t)
		for {
			let, ok := body.(core.Let)
			if !ok {
				break
			}
			out = append(out, let.Label)
			if let.Annotation == nil {
				out = append(out, nil)
			} else if err := appendBoxed(&out, let.Annotation); err != nil {
				return nil, err
			}
			if err := appendBoxed(&out, let.Value); err != nil {
				return nil, err
			}
			body = let.Body
		}
		if err := appendBoxed(&out, body); err != nil {
			return nil, err
		}
		return out, nil

	case core.Import:
		return boxImport(t)
	}
	return nil, fmt.Errorf("binary: cannot encode %T", t)
}

func boxSeq(tag int, terms ...core.Term) (any, error) {
	out := []any{tag}
	if err := appendBoxed(&out, terms...); err != nil {
		return nil, err
	}
	return out, nil
}

func appendBoxed(out *[]any, terms ...core.Term) error {
	for _, t := range terms {
		b, err := box(t)
		if err != nil {
			return err
		}
		*out = append(*out, b)
	}
	return nil
}

func boxFields(tag int, m map[string]core.Term) (any, error) {
	fields := make(map[string]any, len(m))
	for k, v := range m {
		b, err := box(v)
		if err != nil {
			return nil, err
		}
		fields[k] = b
	}
	return []any{tag, fields}, nil
}

// Import scheme codes in the wire format.
const (
	schemeHTTP     = 0
	schemeHTTPS    = 1
	schemeAbsolute = 2
	schemeHere     = 3
	schemeParent   = 4
	schemeHome     = 5
	schemeEnv      = 6
	schemeMissing  = 7
)

func boxImport(imp core.Import) (any, error) {
	var hash any
	if imp.Hash != nil {
		hash = imp.Hash
	}
	out := []any{tagImport, hash, int(imp.Mode)}

	switch f := imp.Fetchable.(type) {
	case core.Remote:
		scheme := schemeHTTP
		if f.Scheme == core.HTTPS {
			scheme = schemeHTTPS
		}
		out = append(out, scheme, nil, f.Authority)
		for _, p := range f.Path {
			out = append(out, p)
		}
		if f.HasQuery {
			out = append(out, f.Query)
		} else {
			out = append(out, nil)
		}
	case core.Local:
		scheme := schemeAbsolute
		switch f.Prefix {
		case core.HerePath:
			scheme = schemeHere
		case core.ParentPath:
			scheme = schemeParent
		case core.HomePath:
			scheme = schemeHome
		}
		out = append(out, scheme)
		for _, c := range f.Components {
			out = append(out, c)
		}
	case core.Env:
		out = append(out, schemeEnv, f.Name)
	case core.Missing:
		out = append(out, schemeMissing)
	default:
		return nil, fmt.Errorf("binary: cannot encode import %T", f)
	}
	return out, nil
}
