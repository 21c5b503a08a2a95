package cache

// ScopedKeyer wraps a Keyer with a prefix, typically the build version, so
// that entries written by one release are never served by another.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), buildinfo.Version+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SolveKey generates a prefixed solver result key.
func (k *ScopedKeyer) SolveKey(engine, requestHash string) string {
	return k.prefix + k.inner.SolveKey(engine, requestHash)
}
