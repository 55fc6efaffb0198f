// Package ledger defines the composite-key record store the market engines
// run against, together with the monotonic sequences that number entities.
package ledger

// Prefix is a fixed short byte tag naming one field of an entity kind.
// Records are addressed by (prefix, identity) so unrelated entity kinds can
// share a single store without colliding.
type Prefix string

// Key returns the composite store key for identity under p.
func (p Prefix) Key(identity []byte) []byte {
	k := make([]byte, 0, len(p)+len(identity))
	k = append(k, p...)
	k = append(k, identity...)
	return k
}

// Store is the minimal record store interface.
//
// Contract:
// - Put MUST overwrite atomically.
// - Get MUST return ErrNotFound when the key is absent; a present key with an
//   empty value is not absent.
// - Delete MUST be a no-op for absent keys. Deleting an entity means deleting
//   each of its prefixed fields explicitly; the store performs no cascading.
// - Values are raw bytes; callers own (de)serialization.
// - The surrounding request processor serializes access; implementations need
//   not be safe for concurrent use unless documented otherwise.
type Store interface {
	Put(prefix Prefix, identity, value []byte) error
	Get(prefix Prefix, identity []byte) ([]byte, error)
	Delete(prefix Prefix, identity []byte) error
	Has(prefix Prefix, identity []byte) bool
}
