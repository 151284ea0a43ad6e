package cache

// ScopedKeyer prefixes every key of an inner Keyer. The server uses it to
// keep one ledger per client id in a shared backend:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "client:"+id+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, falling back to the default layout when inner
// is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ExportKey returns the prefixed export key.
func (k *ScopedKeyer) ExportKey(rootHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(rootHash, opts)
}

// LedgerKey returns the prefixed ledger key.
func (k *ScopedKeyer) LedgerKey(name string) string {
	return k.prefix + k.inner.LedgerKey(name)
}
