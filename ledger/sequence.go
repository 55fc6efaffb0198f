package ledger

import "encoding/binary"

// Sequence is a monotonic entity counter persisted in a Store.
//
// IDs are dense and start at 1; Next is the only way to allocate one, so the
// invariant is enforced in exactly one place. The zero ID is never issued and
// can safely mean "no entity".
type Sequence struct {
	store Store
	key   Prefix
}

// NewSequence binds a counter stored under (key, nil).
func NewSequence(store Store, key Prefix) *Sequence {
	return &Sequence{store: store, key: key}
}

// Current returns the number of IDs allocated so far (0 when none).
func (s *Sequence) Current() (uint64, error) {
	b, err := s.store.Get(s.key, nil)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return DecodeUint64(b)
}

// Next allocates and persists the next ID.
func (s *Sequence) Next() (uint64, error) {
	cur, err := s.Current()
	if err != nil {
		return 0, err
	}
	next := cur + 1
	if err := s.store.Put(s.key, nil, EncodeUint64(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// InRange reports whether id names an allocated entity: 1 <= id <= Current.
func (s *Sequence) InRange(id uint64) (bool, error) {
	cur, err := s.Current()
	if err != nil {
		return false, err
	}
	return id >= 1 && id <= cur, nil
}

// EncodeUint64 returns the canonical 8-byte big-endian encoding used for all
// numeric record values.
func EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// DecodeUint64 decodes a canonical 8-byte big-endian value.
func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, ErrCorruptValue
	}
	return binary.BigEndian.Uint64(b), nil
}
