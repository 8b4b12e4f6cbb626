package imports

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/godhall/godhall/core"
)

// Fetcher retrieves the raw bytes behind one import target. For code
// imports the bytes are the binary wire form of an expression; for
// as Text imports they are taken verbatim.
type Fetcher interface {
	// Fetch returns the content of the target, or an error when the
	// fetcher does not handle this kind of target or the target is
	// unreachable.
	Fetch(ctx context.Context, target core.Fetchable) ([]byte, error)
}

// ErrUnsupported is returned by a fetcher handed a target kind it does
// not serve.
var ErrUnsupported = fmt.Errorf("unsupported import target")

// FileFetcher reads local imports from the filesystem.
type FileFetcher struct {
	// Root anchors here-relative and parent-relative paths. Empty means
	// the process working directory.
	Root string
}

func (f *FileFetcher) Fetch(ctx context.Context, target core.Fetchable) ([]byte, error) {
	local, ok := target.(core.Local)
	if !ok {
		return nil, ErrUnsupported
	}
	path, err := f.path(local)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, nil
}

func (f *FileFetcher) path(local core.Local) (string, error) {
	parts := filepath.Join(local.Components...)
	switch local.Prefix {
	case core.AbsolutePath:
		return string(filepath.Separator) + parts, nil
	case core.HomePath:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot resolve ~: %w", err)
		}
		return filepath.Join(home, parts), nil
	case core.ParentPath:
		return filepath.Join(f.root(), "..", parts), nil
	}
	return filepath.Join(f.root(), parts), nil
}

func (f *FileFetcher) root() string {
	if f.Root != "" {
		return f.Root
	}
	return "."
}

// EnvFetcher reads env imports from the process environment.
type EnvFetcher struct{}

func (EnvFetcher) Fetch(ctx context.Context, target core.Fetchable) ([]byte, error) {
	env, ok := target.(core.Env)
	if !ok {
		return nil, ErrUnsupported
	}
	value, found := os.LookupEnv(env.Name)
	if !found {
		return nil, fmt.Errorf("environment variable %s is not set", env.Name)
	}
	return []byte(value), nil
}

// HTTPFetcher retrieves remote imports over http and https.
type HTTPFetcher struct {
	Client *http.Client
}

// MaxRemoteSize bounds the size of a fetched remote expression.
const MaxRemoteSize = 32 << 20

func (f *HTTPFetcher) Fetch(ctx context.Context, target core.Fetchable) ([]byte, error) {
	remote, ok := target.(core.Remote)
	if !ok {
		return nil, ErrUnsupported
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL(remote), nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", remote, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxRemoteSize+1))
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", remote, err)
	}
	if len(data) > MaxRemoteSize {
		return nil, fmt.Errorf("fetching %s: response exceeds %d bytes", remote, MaxRemoteSize)
	}
	return data, nil
}

func remoteURL(r core.Remote) string {
	u := url.URL{
		Scheme: "http",
		Host:   r.Authority,
		Path:   "/" + strings.Join(r.Path, "/"),
	}
	if r.Scheme == core.HTTPS {
		u.Scheme = "https"
	}
	if r.HasQuery {
		u.RawQuery = r.Query
	}
	return u.String()
}
