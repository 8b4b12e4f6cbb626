package binary

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/godhall/godhall/core"
)

// Multihash header for a 32-byte SHA-256 digest.
const (
	multihashSHA256 = 0x12
	multihashLen    = 0x20
)

// SemanticHash computes the content hash of a term. The term is
// beta-normalized, alpha-normalized and canonically encoded before
// hashing, so two terms with the same semantics produce the same hash
// regardless of variable names, redexes or source positions.
//
// The result is a multihash: 0x12 0x20 followed by the 32-byte SHA-256
// digest, 34 bytes in total. It is the value checked against an
// import's integrity hash.
func SemanticHash(t core.Term) ([]byte, error) {
	data, err := Encode(core.AlphaNormalize(core.Normalize(core.StripNotes(t))))
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(data)
	out := make([]byte, 0, 2+sha256.Size)
	out = append(out, multihashSHA256, multihashLen)
	return append(out, digest[:]...), nil
}

// FormatHash renders a multihash in the "sha256:<hex>" form used by
// protected imports.
func FormatHash(hash []byte) string {
	if len(hash) == 2+sha256.Size && hash[0] == multihashSHA256 && hash[1] == multihashLen {
		return "sha256:" + hex.EncodeToString(hash[2:])
	}
	return hex.EncodeToString(hash)
}

// ParseHash parses the "sha256:<hex>" form back into a multihash.
func ParseHash(s string) ([]byte, error) {
	const prefix = "sha256:"
	if len(s) != len(prefix)+2*sha256.Size || s[:len(prefix)] != prefix {
		return nil, fmt.Errorf("malformed hash %q, want sha256:<64 hex digits>", s)
	}
	digest, err := hex.DecodeString(s[len(prefix):])
	if err != nil {
		return nil, fmt.Errorf("malformed hash %q: %w", s, err)
	}
	out := make([]byte, 0, 2+sha256.Size)
	out = append(out, multihashSHA256, multihashLen)
	return append(out, digest...), nil
}
