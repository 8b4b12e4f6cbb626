package core

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Unresolved imports
//
// An Import node is the "embedded" slot of the tree: it exists only between
// parsing and import resolution. The resolver replaces every Import with the
// checked, normalized tree of the imported content; the type checker and
// normalizer reject any Import that survives that far.
// ---------------------------------------------------------------------------

// ImportMode selects how fetched content is interpreted.
type ImportMode int

const (
	// Code elaborates the fetched content through the full pipeline.
	Code ImportMode = iota
	// RawText bypasses elaboration and yields the content as a text literal.
	RawText
	// Location yields a description of the import instead of fetching it.
	Location
)

// Fetchable identifies where an import's content comes from. The concrete
// kinds are part of the term grammar; actually fetching is the resolver's
// concern, not this package's.
type Fetchable interface {
	fmt.Stringer
	fetchable() // marker method
}

// FilePrefix anchors a local import path.
type FilePrefix int

const (
	AbsolutePath FilePrefix = iota
	HerePath
	ParentPath
	HomePath
)

// Local is a filesystem import.
type Local struct {
	Prefix     FilePrefix
	Components []string
}

// Scheme is the protocol of a remote import.
type Scheme int

const (
	HTTP Scheme = iota
	HTTPS
)

// Remote is a network import.
type Remote struct {
	Scheme    Scheme
	Authority string
	Path      []string
	Query     string
	HasQuery  bool
}

// Env imports the value of an environment variable.
type Env struct {
	Name string
}

// Missing always fails to resolve; it is useful only on the left of the
// import-fallback operator.
type Missing struct{}

func (Local) fetchable()   {}
func (Remote) fetchable()  {}
func (Env) fetchable()     {}
func (Missing) fetchable() {}

func (l Local) String() string {
	var prefix string
	switch l.Prefix {
	case AbsolutePath:
		prefix = ""
	case HerePath:
		prefix = "."
	case ParentPath:
		prefix = ".."
	case HomePath:
		prefix = "~"
	}
	return prefix + "/" + strings.Join(l.Components, "/")
}

func (r Remote) String() string {
	scheme := "http"
	if r.Scheme == HTTPS {
		scheme = "https"
	}
	url := scheme + "://" + r.Authority + "/" + strings.Join(r.Path, "/")
	if r.HasQuery {
		url += "?" + r.Query
	}
	return url
}

func (e Env) String() string { return "env:" + e.Name }

func (Missing) String() string { return "missing" }

// Import is an unresolved import placeholder. Hash, when non-nil, is the
// user-pinned multihash (0x12 0x20 ∥ sha256) the resolver must verify
// against the imported content's semantic hash.
type Import struct {
	Fetchable Fetchable
	Hash      []byte
	Mode      ImportMode
}

func (i Import) String() string {
	s := i.Fetchable.String()
	if i.Hash != nil {
		s += fmt.Sprintf(" sha256:%x", i.Hash[2:])
	}
	switch i.Mode {
	case RawText:
		s += " as Text"
	case Location:
		s += " as Location"
	}
	return s
}
