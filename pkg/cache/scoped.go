package cache

// ScopedKeyer wraps a Keyer with a prefix so that several projects can
// share one cache directory without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "project:firmware:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// If inner is nil, the default keyer is used.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ResolveKey generates a prefixed key for an include lookup.
func (k *ScopedKeyer) ResolveKey(path string, opts []string, stamp string) string {
	return k.prefix + k.inner.ResolveKey(path, opts, stamp)
}
