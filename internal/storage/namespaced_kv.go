package storage

import "context"

// NamespacedKV scopes every key of an underlying store under a prefix, so
// several sessions can share one backend.
type NamespacedKV struct {
	kv     KV
	prefix string
}

// Namespace returns kv with keys written as "<ns>:<key>".
func Namespace(kv KV, ns string) *NamespacedKV {
	return &NamespacedKV{kv: kv, prefix: ns + ":"}
}

// Get returns the stored value or ErrNotFound.
func (n *NamespacedKV) Get(ctx context.Context, key string) (string, error) {
	return n.kv.Get(ctx, n.prefix+key)
}

// Set stores value under key.
func (n *NamespacedKV) Set(ctx context.Context, key, value string) error {
	return n.kv.Set(ctx, n.prefix+key, value)
}

// Delete removes keys.
func (n *NamespacedKV) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, n.prefix+k)
	}
	return n.kv.Delete(ctx, full...)
}
