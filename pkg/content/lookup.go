package content

import "strings"

// Lookup is the result of reading one field out of scraped markup. A value
// that was not there carries the path that was tried instead.
type Lookup[T any] struct {
	Value T
	Path  string
	ok    bool
}

// Found wraps a present value read from path.
func Found[T any](path string, v T) Lookup[T] {
	return Lookup[T]{Value: v, Path: path, ok: true}
}

// Missing records that nothing was found at path.
func Missing[T any](path string) Lookup[T] {
	return Lookup[T]{Path: path}
}

// OK reports whether the value was found.
func (l Lookup[T]) OK() bool {
	return l.ok
}

// Or returns the value, or def when it is missing.
func (l Lookup[T]) Or(def T) T {
	if l.ok {
		return l.Value
	}
	return def
}

// text looks up trimmed text, treating blank text as missing.
func text(path, s string) Lookup[string] {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing[string](path)
	}
	return Found(path, s)
}
