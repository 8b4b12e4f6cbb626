package binary

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/godhall/godhall/core"
)

func TestSemanticHashInvariance(t *testing.T) {
	redex := core.App{
		Fn: core.Lambda{Label: "x", Type: core.Natural, Body: core.Op{
			OpCode: core.PlusOp, L: core.MkVar("x"), R: core.NewNatural(1),
		}},
		Arg: core.NewNatural(2),
	}
	value := core.NewNatural(3)

	a, err := SemanticHash(redex)
	if err != nil {
		t.Fatalf("SemanticHash(redex): %v", err)
	}
	b, err := SemanticHash(value)
	if err != nil {
		t.Fatalf("SemanticHash(value): %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("redex and its value hash differently: %s vs %s", FormatHash(a), FormatHash(b))
	}

	renamedA := core.Lambda{Label: "x", Type: core.Natural, Body: core.MkVar("x")}
	renamedB := core.Lambda{Label: "y", Type: core.Natural, Body: core.MkVar("y")}
	ha, _ := SemanticHash(renamedA)
	hb, _ := SemanticHash(renamedB)
	if !bytes.Equal(ha, hb) {
		t.Errorf("alpha-equivalent lambdas hash differently")
	}

	hc, _ := SemanticHash(core.NewNatural(4))
	if bytes.Equal(a, hc) {
		t.Errorf("distinct values share a hash")
	}
}

func TestHashFormat(t *testing.T) {
	h, err := SemanticHash(core.BoolLit(true))
	if err != nil {
		t.Fatalf("SemanticHash: %v", err)
	}
	if len(h) != 34 || h[0] != 0x12 || h[1] != 0x20 {
		t.Fatalf("hash is not a sha256 multihash: % X", h)
	}

	s := FormatHash(h)
	if !strings.HasPrefix(s, "sha256:") || len(s) != len("sha256:")+64 {
		t.Fatalf("FormatHash = %q", s)
	}
	parsed, err := ParseHash(s)
	if err != nil {
		t.Fatalf("ParseHash(%q): %v", s, err)
	}
	if !bytes.Equal(parsed, h) {
		t.Errorf("ParseHash(FormatHash(h)) = % X, want % X", parsed, h)
	}

	for _, bad := range []string{"", "sha256:", "md5:" + strings.Repeat("0", 64), "sha256:" + strings.Repeat("g", 64)} {
		if _, err := ParseHash(bad); err == nil {
			t.Errorf("ParseHash(%q) succeeded", bad)
		}
	}
}

// TestGoldenHashes verifies that known expressions produce expected hashes.
// If the golden files don't exist, they are created (first run).
// This prevents accidental format drift.
func TestGoldenHashes(t *testing.T) {
	cases := []struct {
		name string
		term core.Term
	}{
		{
			name: "natural_literal",
			term: core.NewNatural(42),
		},
		{
			name: "identity_function",
			term: core.Lambda{Label: "x", Type: core.Natural, Body: core.MkVar("x")},
		},
		{
			name: "record_of_mixed_fields",
			term: core.RecordLit{
				"port":    core.NewNatural(8080),
				"host":    core.PlainText("localhost"),
				"debug":   core.BoolLit(false),
				"timeout": core.Some{Value: core.NewNatural(30)},
			},
		},
		{
			name: "beta_redex",
			term: core.App{
				Fn: core.Lambda{Label: "n", Type: core.Natural, Body: core.Op{
					OpCode: core.TimesOp, L: core.MkVar("n"), R: core.MkVar("n"),
				}},
				Arg: core.NewNatural(6),
			},
		},
		{
			name: "union_value",
			term: core.App{
				Fn: core.Field{
					Record: core.UnionType{"Port": core.Natural, "Unix": core.Text},
					Label:  "Port",
				},
				Arg: core.NewNatural(443),
			},
		},
	}

	goldenDir := filepath.Join("testdata")
	if err := os.MkdirAll(goldenDir, 0o755); err != nil {
		t.Fatalf("create testdata dir: %v", err)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := SemanticHash(tc.term)
			if err != nil {
				t.Fatalf("SemanticHash: %v", err)
			}
			got := hex.EncodeToString(hash)

			goldenPath := filepath.Join(goldenDir, tc.name+".hash")
			want, err := os.ReadFile(goldenPath)
			if os.IsNotExist(err) {
				if err := os.WriteFile(goldenPath, []byte(got+"\n"), 0o644); err != nil {
					t.Fatalf("write golden file: %v", err)
				}
				t.Logf("created golden file %s", goldenPath)
				return
			}
			if err != nil {
				t.Fatalf("read golden file: %v", err)
			}
			if got != strings.TrimSpace(string(want)) {
				t.Errorf("hash drifted from golden file %s:\n  got  %s\n  want %s",
					goldenPath, got, strings.TrimSpace(string(want)))
			}
		})
	}
}
