package cache

// ScopedKeyer wraps a Keyer with a prefix, for deployments where several
// environments share one Redis instance.
//
// Example usage:
//
//	staging := NewScopedKeyer(NewDefaultKeyer(), "staging:")
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

// PredictionKey generates a prefixed key for oracle predictions.
func (k *ScopedKeyer) PredictionKey(oracleURL, framesDigest string, interval int) string {
	return k.prefix + k.inner.PredictionKey(oracleURL, framesDigest, interval)
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(adjacencyHash string) string {
	return k.prefix + k.inner.LayoutKey(adjacencyHash)
}
