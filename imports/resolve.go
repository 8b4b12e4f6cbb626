package imports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/godhall/godhall/binary"
	"github.com/godhall/godhall/core"
)

var log = commonlog.GetLogger("godhall.imports")

// ErrCycle is reported when an import transitively imports itself.
var ErrCycle = errors.New("import cycle")

// ErrHashMismatch is reported when a fetched expression does not match
// the integrity hash pinned on the import.
var ErrHashMismatch = errors.New("import hash mismatch")

// ErrForbidden is reported when configuration disallows an import kind.
var ErrForbidden = errors.New("import kind forbidden by configuration")

// Resolver substitutes resolved, type-checked normal forms for the
// import placeholders in an expression. Each import is fetched, decoded,
// resolved recursively, checked in an empty context and normalized; the
// import site receives the normal form.
type Resolver struct {
	fetchers []Fetcher
	cache    Cache
	config   *Config
}

// NewResolver builds a resolver from the given configuration. The
// fetcher set honors the config's allow flags; cache may be nil to run
// with only an in-process memory cache.
func NewResolver(config *Config, cache Cache) *Resolver {
	if config == nil {
		config = DefaultConfig()
	}
	fetchers := []Fetcher{&FileFetcher{Root: config.Dir}}
	if config.Fetch.AllowEnv {
		fetchers = append(fetchers, EnvFetcher{})
	}
	if config.Fetch.AllowRemote {
		client := &http.Client{Timeout: config.HTTPTimeout()}
		fetchers = append(fetchers, &HTTPFetcher{Client: client})
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{fetchers: fetchers, cache: cache, config: config}
}

// NewResolverWith builds a resolver over an explicit fetcher list,
// bypassing configuration policy. Used by tests and embedders.
func NewResolverWith(cache Cache, fetchers ...Fetcher) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{fetchers: fetchers, cache: cache, config: DefaultConfig()}
}

// resolution carries the per-call state: the chain of in-flight imports
// for cycle detection and the directory local paths are relative to.
type resolution struct {
	stack []string
	dir   string
}

func (s *resolution) push(target string) error {
	for _, t := range s.stack {
		if t == target {
			return fmt.Errorf("%w: %s", ErrCycle,
				strings.Join(append(s.stack, target), " -> "))
		}
	}
	s.stack = append(s.stack, target)
	return nil
}

func (s *resolution) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

// Resolve replaces every import in t with its resolved normal form.
// Alternative imports (the ? operator) are decided here: the right
// branch is consulted only when the left branch fails to resolve.
func (r *Resolver) Resolve(ctx context.Context, t core.Term) (core.Term, error) {
	state := &resolution{dir: r.config.Dir}
	if state.dir == "" {
		state.dir = "."
	}
	return r.resolve(ctx, t, state)
}

func (r *Resolver) resolve(ctx context.Context, t core.Term, state *resolution) (core.Term, error) {
	switch v := t.(type) {
	case core.Import:
		return r.resolveImport(ctx, v, state)
	case core.Note:
		inner, err := r.resolve(ctx, v.Expr, state)
		if err != nil {
			return nil, err
		}
		return core.Note{Span: v.Span, Expr: inner}, nil
	case core.Op:
		if v.OpCode == core.ImportAltOp {
			left, leftErr := r.resolve(ctx, v.L, state)
			if leftErr == nil {
				return left, nil
			}
			log.Debugf("alternative import: left branch failed: %v", leftErr)
			right, rightErr := r.resolve(ctx, v.R, state)
			if rightErr != nil {
				return nil, fmt.Errorf("both alternatives failed: %v; %w", leftErr, rightErr)
			}
			return right, nil
		}
	}

	var firstErr error
	out := core.MapChildren(t, func(child core.Term) core.Term {
		if firstErr != nil {
			return child
		}
		resolved, err := r.resolve(ctx, child, state)
		if err != nil {
			firstErr = err
			return child
		}
		return resolved
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (r *Resolver) resolveImport(ctx context.Context, imp core.Import, state *resolution) (core.Term, error) {
	if _, ok := imp.Fetchable.(core.Missing); ok && imp.Mode != core.Location {
		return nil, fmt.Errorf("cannot resolve %s", imp)
	}
	if imp.Mode == core.Location {
		return locationTerm(imp.Fetchable), nil
	}

	if imp.Hash != nil {
		if data, found, err := r.cache.Get(ctx, imp.Hash); err != nil {
			log.Errorf("cache lookup for %s: %v", imp, err)
		} else if found {
			cached, err := binary.Decode(data)
			if err == nil {
				log.Debugf("cache hit for %s", binary.FormatHash(imp.Hash))
				return cached, nil
			}
			log.Errorf("corrupt cache entry for %s: %v", binary.FormatHash(imp.Hash), err)
		}
	}

	target := canonicalTarget(imp.Fetchable, state.dir)
	if err := state.push(target); err != nil {
		return nil, err
	}
	defer state.pop()

	data, err := r.fetch(ctx, imp.Fetchable, state)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", imp, err)
	}

	var resolved core.Term
	if imp.Mode == core.RawText {
		resolved = core.PlainText(string(data))
	} else {
		decoded, err := binary.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", imp, err)
		}
		childState := &resolution{stack: state.stack, dir: importDir(imp.Fetchable, state.dir)}
		decoded, err = r.resolve(ctx, decoded, childState)
		if err != nil {
			return nil, err
		}
		if _, err := core.TypeOf(decoded); err != nil {
			return nil, fmt.Errorf("resolving %s: %w", imp, err)
		}
		resolved = core.Normalize(decoded)
	}

	hash, err := binary.SemanticHash(resolved)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", imp, err)
	}
	if imp.Hash != nil && !bytes.Equal(hash, imp.Hash) {
		return nil, fmt.Errorf("%w for %s: want %s, got %s", ErrHashMismatch,
			imp.Fetchable, binary.FormatHash(imp.Hash), binary.FormatHash(hash))
	}

	if encoded, err := binary.Encode(core.AlphaNormalize(resolved)); err == nil {
		if err := r.cache.Put(ctx, hash, encoded); err != nil {
			log.Errorf("cache store for %s: %v", imp, err)
		}
	}
	return resolved, nil
}

func (r *Resolver) fetch(ctx context.Context, target core.Fetchable, state *resolution) ([]byte, error) {
	if local, ok := target.(core.Local); ok {
		target = rebaseLocal(local, state.dir)
	}
	for _, f := range r.fetchers {
		data, err := f.Fetch(ctx, target)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		return data, err
	}
	return nil, fmt.Errorf("%w: %s", ErrForbidden, target)
}

// rebaseLocal anchors a relative path at the directory of the importing
// expression, so transitive imports resolve against their own file.
func rebaseLocal(local core.Local, dir string) core.Local {
	switch local.Prefix {
	case core.AbsolutePath, core.HomePath:
		return local
	}
	joined := filepath.ToSlash(filepath.Join(dir, joinPrefix(local)))
	components := strings.Split(joined, "/")
	if strings.HasPrefix(joined, "/") {
		return core.Local{Prefix: core.AbsolutePath, Components: components[1:]}
	}
	return core.Local{Prefix: core.HerePath, Components: components}
}

func joinPrefix(local core.Local) string {
	parts := filepath.Join(local.Components...)
	if local.Prefix == core.ParentPath {
		return filepath.Join("..", parts)
	}
	return parts
}

// canonicalTarget is the cycle-detection key: the same file reached via
// different relative spellings must map to the same string.
func canonicalTarget(target core.Fetchable, dir string) string {
	if local, ok := target.(core.Local); ok {
		return rebaseLocal(local, dir).String()
	}
	return target.String()
}

func importDir(target core.Fetchable, dir string) string {
	local, ok := target.(core.Local)
	if !ok {
		return dir
	}
	rebased := rebaseLocal(local, dir)
	path := filepath.Join(rebased.Components...)
	if rebased.Prefix == core.AbsolutePath {
		path = string(filepath.Separator) + path
	}
	return filepath.Dir(path)
}

// locationTerm is the value of an import in as Location mode: a
// description of where the import points, never its content.
func locationTerm(target core.Fetchable) core.Term {
	locationType := core.UnionType{
		"Local":       core.Text,
		"Remote":      core.Text,
		"Environment": core.Text,
		"Missing":     nil,
	}
	switch f := target.(type) {
	case core.Local:
		return core.App{
			Fn:  core.Field{Record: locationType, Label: "Local"},
			Arg: core.PlainText(f.String()),
		}
	case core.Remote:
		return core.App{
			Fn:  core.Field{Record: locationType, Label: "Remote"},
			Arg: core.PlainText(f.String()),
		}
	case core.Env:
		return core.App{
			Fn:  core.Field{Record: locationType, Label: "Environment"},
			Arg: core.PlainText(f.Name),
		}
	}
	return core.Field{Record: locationType, Label: "Missing"}
}
