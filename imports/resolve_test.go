package imports

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/godhall/godhall/binary"
	"github.com/godhall/godhall/core"
)

// mapFetcher serves canned content keyed by the target's string form.
type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(ctx context.Context, target core.Fetchable) ([]byte, error) {
	data, ok := m[target.String()]
	if !ok {
		return nil, ErrUnsupported
	}
	return data, nil
}

func encode(t *testing.T, term core.Term) []byte {
	t.Helper()
	data, err := binary.Encode(term)
	if err != nil {
		t.Fatalf("Encode(%v): %v", term, err)
	}
	return data
}

func envImport(name string) core.Import {
	return core.Import{Fetchable: core.Env{Name: name}}
}

func TestResolveSubstitutesImports(t *testing.T) {
	r := NewResolverWith(nil, mapFetcher{
		"env:ONE": encode(t, core.NewNatural(1)),
	})

	term := core.Op{OpCode: core.PlusOp, L: envImport("ONE"), R: core.NewNatural(2)}
	resolved, err := r.Resolve(context.Background(), term)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := core.Normalize(resolved); !core.AlphaEquivalent(got, core.NewNatural(3)) {
		t.Errorf("normalized result = %v, want 3", got)
	}
}

func TestResolveNormalizesImportedExpressions(t *testing.T) {
	redex := core.App{
		Fn:  core.Lambda{Label: "x", Type: core.Natural, Body: core.MkVar("x")},
		Arg: core.NewNatural(7),
	}
	r := NewResolverWith(nil, mapFetcher{"env:REDEX": encode(t, redex)})

	resolved, err := r.Resolve(context.Background(), core.Term(envImport("REDEX")))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !core.AlphaEquivalent(resolved, core.NewNatural(7)) {
		t.Errorf("import site received %v, want the normal form 7", resolved)
	}
}

func TestResolveTransitive(t *testing.T) {
	inner := core.NewNatural(5)
	outer := core.Op{OpCode: core.TimesOp, L: envImport("INNER"), R: core.NewNatural(2)}
	r := NewResolverWith(nil, mapFetcher{
		"env:OUTER": encode(t, outer),
		"env:INNER": encode(t, inner),
	})

	resolved, err := r.Resolve(context.Background(), core.Term(envImport("OUTER")))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !core.AlphaEquivalent(resolved, core.NewNatural(10)) {
		t.Errorf("resolved = %v, want 10", resolved)
	}
}

func TestResolveRejectsIllTypedImport(t *testing.T) {
	bad := core.App{Fn: core.NewNatural(1), Arg: core.NewNatural(2)}
	r := NewResolverWith(nil, mapFetcher{"env:BAD": encode(t, bad)})

	if _, err := r.Resolve(context.Background(), core.Term(envImport("BAD"))); err == nil {
		t.Fatal("Resolve accepted an ill-typed import")
	}
}

func TestResolveCycle(t *testing.T) {
	r := NewResolverWith(nil, mapFetcher{
		"env:A": encode(t, envImport("B")),
		"env:B": encode(t, envImport("A")),
	})

	_, err := r.Resolve(context.Background(), core.Term(envImport("A")))
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("Resolve = %v, want ErrCycle", err)
	}
}

func TestResolveHashPinning(t *testing.T) {
	content := core.NewNatural(9)
	goodHash, err := binary.SemanticHash(content)
	if err != nil {
		t.Fatalf("SemanticHash: %v", err)
	}
	fetcher := mapFetcher{"env:PINNED": encode(t, content)}
	r := NewResolverWith(nil, fetcher)

	pinned := core.Import{Fetchable: core.Env{Name: "PINNED"}, Hash: goodHash}
	resolved, err := r.Resolve(context.Background(), core.Term(pinned))
	if err != nil {
		t.Fatalf("Resolve with matching hash: %v", err)
	}
	if !core.AlphaEquivalent(resolved, content) {
		t.Errorf("resolved = %v, want 9", resolved)
	}

	// A matching resolution is cached under its hash; the fetcher is no
	// longer consulted.
	delete(fetcher, "env:PINNED")
	if _, err := r.Resolve(context.Background(), core.Term(pinned)); err != nil {
		t.Errorf("Resolve after cache fill: %v", err)
	}

	wrong := make([]byte, len(goodHash))
	copy(wrong, goodHash)
	wrong[len(wrong)-1] ^= 0xFF
	mismatched := core.Import{Fetchable: core.Env{Name: "OTHER"}, Hash: wrong}
	r2 := NewResolverWith(nil, mapFetcher{"env:OTHER": encode(t, content)})
	if _, err := r2.Resolve(context.Background(), core.Term(mismatched)); !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("Resolve with wrong hash = %v, want ErrHashMismatch", err)
	}
}

func TestResolveAlternative(t *testing.T) {
	r := NewResolverWith(nil, mapFetcher{
		"env:PRESENT": encode(t, core.NewNatural(1)),
	})

	term := core.Op{
		OpCode: core.ImportAltOp,
		L:      core.Import{Fetchable: core.Missing{}},
		R:      envImport("PRESENT"),
	}
	resolved, err := r.Resolve(context.Background(), term)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !core.AlphaEquivalent(resolved, core.NewNatural(1)) {
		t.Errorf("resolved = %v, want the fallback value", resolved)
	}

	// Left branch wins when it resolves.
	term.L = envImport("PRESENT")
	term.R = core.Import{Fetchable: core.Missing{}}
	if _, err := r.Resolve(context.Background(), term); err != nil {
		t.Errorf("Resolve with healthy left branch: %v", err)
	}

	both := core.Op{
		OpCode: core.ImportAltOp,
		L:      core.Import{Fetchable: core.Missing{}},
		R:      core.Import{Fetchable: core.Missing{}},
	}
	if _, err := r.Resolve(context.Background(), both); err == nil {
		t.Error("Resolve succeeded with both alternatives missing")
	}
}

func TestResolveRawText(t *testing.T) {
	r := NewResolverWith(nil, mapFetcher{"env:GREETING": []byte("hello world")})

	imp := core.Import{Fetchable: core.Env{Name: "GREETING"}, Mode: core.RawText}
	resolved, err := r.Resolve(context.Background(), core.Term(imp))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	text, ok := resolved.(core.TextLit)
	if !ok || text.Suffix != "hello world" {
		t.Errorf("resolved = %v, want the raw text literal", resolved)
	}
}

func TestResolveLocation(t *testing.T) {
	r := NewResolverWith(nil)

	imp := core.Import{
		Fetchable: core.Env{Name: "UNSET_EITHER_WAY"},
		Mode:      core.Location,
	}
	resolved, err := r.Resolve(context.Background(), core.Term(imp))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	app, ok := resolved.(core.App)
	if !ok {
		t.Fatalf("location = %T, want a union application", resolved)
	}
	field, ok := app.Fn.(core.Field)
	if !ok || field.Label != "Environment" {
		t.Errorf("location selects %v, want Environment", app.Fn)
	}
}

func TestResolveFileImport(t *testing.T) {
	dir := t.TempDir()
	leafPath := filepath.Join(dir, "leaf.dhallb")
	if err := os.WriteFile(leafPath, encode(t, core.NewNatural(4)), 0o644); err != nil {
		t.Fatalf("write leaf: %v", err)
	}
	midPath := filepath.Join(dir, "sub", "mid.dhallb")
	if err := os.MkdirAll(filepath.Dir(midPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// mid.dhallb imports ../leaf.dhallb, relative to its own directory.
	mid := core.Import{Fetchable: core.Local{
		Prefix:     core.ParentPath,
		Components: []string{"leaf.dhallb"},
	}}
	if err := os.WriteFile(midPath, encode(t, mid), 0o644); err != nil {
		t.Fatalf("write mid: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Dir = dir
	r := NewResolver(cfg, nil)

	root := core.Import{Fetchable: core.Local{
		Prefix:     core.HerePath,
		Components: []string{"sub", "mid.dhallb"},
	}}
	resolved, err := r.Resolve(context.Background(), core.Term(root))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !core.AlphaEquivalent(resolved, core.NewNatural(4)) {
		t.Errorf("resolved = %v, want 4", resolved)
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	hash := []byte{0x12, 0x20, 1, 2, 3}

	if _, found, err := c.Get(ctx, hash); err != nil || found {
		t.Fatalf("Get on empty cache = found=%v err=%v", found, err)
	}
	if err := c.Put(ctx, hash, []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, found, err := c.Get(ctx, hash)
	if err != nil || !found || string(data) != "payload" {
		t.Fatalf("Get = %q found=%v err=%v", data, found, err)
	}
}

func TestFindConfig(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	toml := `
[cache]
path = "store.db"

[fetch]
allow-env = true
allow-remote = true
http-timeout = "5s"
`
	if err := os.WriteFile(filepath.Join(dir, "godhall.toml"), []byte(toml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if !cfg.Fetch.AllowRemote {
		t.Error("allow-remote not loaded")
	}
	if cfg.HTTPTimeout().Seconds() != 5 {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout())
	}
	if want := filepath.Join(dir, "store.db"); cfg.CachePath() != want {
		t.Errorf("CachePath = %q, want %q", cfg.CachePath(), want)
	}
}

func TestNewResolverHTTPTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fetch.AllowRemote = true
	cfg.Fetch.HTTPTimeout = "7s"

	r := NewResolver(cfg, nil)
	var remote *HTTPFetcher
	for _, f := range r.fetchers {
		if h, ok := f.(*HTTPFetcher); ok {
			remote = h
		}
	}
	if remote == nil {
		t.Fatal("allow-remote did not install an HTTP fetcher")
	}
	if remote.Client == nil {
		t.Fatal("HTTP fetcher has no client")
	}
	if remote.Client.Timeout != 7*time.Second {
		t.Errorf("client timeout = %v, want 7s", remote.Client.Timeout)
	}
}
