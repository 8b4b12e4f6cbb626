package binary

import (
	"bytes"
	"errors"
	"testing"

	"github.com/godhall/godhall/core"
)

// roundTrip decodes the encoding of term and checks the result encodes
// back to the same bytes. Byte equality is the right notion here: it
// covers imports, which judgmental equality deliberately never equates.
func roundTrip(t *testing.T, term core.Term) core.Term {
	t.Helper()
	data, err := Encode(term)
	if err != nil {
		t.Fatalf("Encode(%v): %v", term, err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(Encode(%v)): %v", term, err)
	}
	again, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode(%v): %v", decoded, err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("round trip changed encoding of %v:\n  % X\n  % X", term, data, again)
	}
	return decoded
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		term core.Term
	}{
		{"bare variable", core.Var{Name: "_", Index: 3}},
		{"named variable", core.Var{Name: "x", Index: 1}},
		{"universe", core.Kind},
		{"builtin", core.NaturalFold},
		{"bool", core.BoolLit(true)},
		{"natural", core.NewNatural(42)},
		{"integer", core.NewInteger(-42)},
		{"double", core.DoubleLit(3.25)},
		{"text", core.PlainText("hello")},
		{
			"interpolated text",
			core.TextLit{
				Chunks: []core.Chunk{{Prefix: "a", Expr: core.MkVar("x")}},
				Suffix: "b",
			},
		},
		{
			"lambda",
			core.Lambda{Label: "x", Type: core.Natural, Body: core.MkVar("x")},
		},
		{
			"underscore lambda",
			core.Lambda{Label: "_", Type: core.Natural, Body: core.MkVar("_")},
		},
		{
			"pi",
			core.Pi{Label: "a", Domain: core.Type, Codomain: core.MkVar("a")},
		},
		{
			"application spine",
			core.Apply(core.MkVar("f"), core.NewNatural(1), core.NewNatural(2)),
		},
		{
			"let chain",
			core.Let{Label: "x", Annotation: core.Natural, Value: core.NewNatural(1), Body: core.Let{
				Label: "y", Value: core.NewNatural(2), Body: core.Op{
					OpCode: core.PlusOp, L: core.MkVar("x"), R: core.MkVar("y"),
				},
			}},
		},
		{
			"annotation",
			core.Annot{Expr: core.NewNatural(1), Annotation: core.Natural},
		},
		{
			"if",
			core.If{Cond: core.BoolLit(true), T: core.NewNatural(1), F: core.NewNatural(2)},
		},
		{
			"typed empty list",
			core.EmptyList{Type: core.App{Fn: core.List, Arg: core.Natural}},
		},
		{
			"abstract empty list",
			core.EmptyList{Type: core.MkVar("t")},
		},
		{
			"non-empty list",
			core.NonEmptyList{Elements: []core.Term{core.NewNatural(1), core.NewNatural(2)}},
		},
		{"some", core.Some{Value: core.NewNatural(1)}},
		{
			"record literal",
			core.RecordLit{"a": core.NewNatural(1), "b": core.PlainText("x")},
		},
		{
			"record type",
			core.RecordType{"a": core.Natural},
		},
		{
			"union type",
			core.UnionType{"L": core.Natural, "E": nil},
		},
		{
			"field",
			core.Field{Record: core.MkVar("r"), Label: "a"},
		},
		{
			"projection",
			core.Project{Record: core.MkVar("r"), Labels: []string{"a", "b"}},
		},
		{
			"projection by type",
			core.ProjectType{Record: core.MkVar("r"), Selector: core.RecordType{"a": core.Natural}},
		},
		{
			"merge with annotation",
			core.Merge{
				Handler:    core.RecordLit{},
				Union:      core.MkVar("u"),
				Annotation: core.Natural,
			},
		},
		{
			"toMap",
			core.ToMap{Record: core.MkVar("r")},
		},
		{
			"with",
			core.With{Record: core.MkVar("r"), Path: []string{"a", "b"}, Value: core.NewNatural(1)},
		},
		{
			"assert",
			core.Assert{Annotation: core.Op{OpCode: core.EquivOp, L: core.NewNatural(1), R: core.NewNatural(1)}},
		},
		{
			"operator",
			core.Op{OpCode: core.CombineOp, L: core.MkVar("a"), R: core.MkVar("b")},
		},
		{
			"local import",
			core.Import{Fetchable: core.Local{
				Prefix:     core.HerePath,
				Components: []string{"pkg", "config"},
			}},
		},
		{
			"remote import with query",
			core.Import{Fetchable: core.Remote{
				Scheme:    core.HTTPS,
				Authority: "example.com",
				Path:      []string{"a", "b"},
				Query:     "x=1",
				HasQuery:  true,
			}},
		},
		{
			"env import as text",
			core.Import{Fetchable: core.Env{Name: "HOME"}, Mode: core.RawText},
		},
		{
			"missing import",
			core.Import{Fetchable: core.Missing{}},
		},
		{
			"pinned import",
			core.Import{
				Fetchable: core.Local{Prefix: core.ParentPath, Components: []string{"x"}},
				Hash:      append([]byte{0x12, 0x20}, bytes.Repeat([]byte{0xAB}, 32)...),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			roundTrip(t, tc.term)
		})
	}
}

// Round-tripping must be exact, not just up to alpha equivalence:
// binder names survive the codec.
func TestRoundTripKeepsNames(t *testing.T) {
	term := core.Lambda{Label: "count", Type: core.Natural, Body: core.MkVar("count")}
	got := roundTrip(t, term)
	lam, ok := got.(core.Lambda)
	if !ok {
		t.Fatalf("decoded %T, want Lambda", got)
	}
	if lam.Label != "count" {
		t.Errorf("binder label = %q, want %q", lam.Label, "count")
	}
}

// Tiny known encodings, fixed by the wire format.
func TestEncodeKnownBytes(t *testing.T) {
	cases := []struct {
		name string
		term core.Term
		want []byte
	}{
		{"variable zero", core.Var{Name: "_", Index: 0}, []byte{0x00}},
		{"true", core.BoolLit(true), []byte{0xF5}},
		{"natural one", core.NewNatural(1), []byte{0x82, 0x0F, 0x01}},
		{"builtin name", core.Bool, []byte{0x64, 'B', 'o', 'o', 'l'}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.term)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("Encode(%v) = % X, want % X", tc.term, got, tc.want)
			}
		})
	}
}

// Notes never reach the wire.
func TestEncodeStripsNotes(t *testing.T) {
	span := core.Span{Start: core.Position{Line: 1}, End: core.Position{Line: 1}}
	noted := core.Note{Span: span, Expr: core.NewNatural(1)}
	a, err := Encode(noted)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode(core.NewNatural(1))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("noted term encoded differently: % X vs % X", a, b)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, err := Encode(core.NewNatural(1))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	mustMarshal := func(v any) []byte {
		data, err := encMode.Marshal(v)
		if err != nil {
			t.Fatalf("marshal fixture: %v", err)
		}
		return data
	}

	cases := []struct {
		name string
		data []byte
		kind DecodeErrorKind
	}{
		{"empty input", nil, Truncated},
		{"truncated", valid[:len(valid)-1], Truncated},
		{"trailing garbage", append(append([]byte{}, valid...), 0x00), Malformed},
		{"unknown tag", mustMarshal([]any{uint64(99)}), BadTag},
		{"unknown builtin", mustMarshal("Natural/frob"), BadTag},
		{"operator arity", mustMarshal([]any{uint64(3), uint64(0)}), BadArity},
		{"operator code", mustMarshal([]any{uint64(3), uint64(13), uint64(0), uint64(0)}), BadTag},
		{"negative natural", mustMarshal([]any{uint64(15), int64(-1)}), Malformed},
		{"empty sequence", mustMarshal([]any{}), BadArity},
		{"map at top level", mustMarshal(map[string]any{"a": uint64(0)}), Malformed},
		{"bad import scheme", mustMarshal([]any{uint64(24), nil, uint64(0), uint64(9)}), BadTag},
		{"short import hash", mustMarshal([]any{uint64(24), []byte{0x12}, uint64(0), uint64(7)}), Malformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			if err == nil {
				t.Fatalf("Decode(% X) succeeded, want %v error", tc.data, tc.kind)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Decode returned %T, want *DecodeError: %v", err, err)
			}
			if de.Kind != tc.kind {
				t.Errorf("Decode(% X) failed with %v, want %v: %v", tc.data, de.Kind, tc.kind, de)
			}
		})
	}
}

func TestDecodeRejectsDuplicateKeys(t *testing.T) {
	// {8, {"a": 0, "a": 1}} with a duplicated map key, hand-assembled
	// since the encoder cannot produce one.
	data := []byte{
		0x82, 0x08, // [8, ...]
		0xA2,             // map of 2 pairs
		0x61, 'a', 0x00, // "a": 0
		0x61, 'a', 0x01, // "a": 1
	}
	if _, err := Decode(data); err == nil {
		t.Fatal("Decode accepted a record with duplicate labels")
	}
}
