package query

import (
	"net/url"
	"strings"
)

// Key identifies a read request. Two reads with equal keys share cache state
// and in-flight execution, so a key must always map to one result type.
type Key []string

// NewKey builds a key from its parts.
func NewKey(parts ...string) Key {
	return Key(parts)
}

// String joins the path-escaped key parts with "/". This is the form matched
// by invalidation patterns. Escaping keeps a "/" or glob character inside a
// part from reading as a separator or wildcard.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
