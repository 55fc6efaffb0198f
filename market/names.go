package market

import (
	"xdao.co/descimarket/identity"
)

// MaxNameLength bounds registered names, in bytes.
const MaxNameLength = 64

// Name is the registry record projection for one registered name.
type Name struct {
	Name      string
	Owner     identity.Address
	CID       string
	Price     uint64
	CreatedAt uint64
	UpdatedAt uint64
}

func checkName(name string) error {
	if len(name) == 0 {
		return newError(KindInvalidArgument, "name: must not be empty")
	}
	if len(name) > MaxNameLength {
		return newError(KindInvalidArgument, "name: longer than 64 bytes")
	}
	return nil
}

// RegisterName claims a name for the sender. Uniqueness is enforced here and
// only here: a second register of the same name fails with InvalidState no
// matter who calls.
func (m *Market) RegisterName(sender identity.Address, name, cid string, price uint64) ([]Event, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if cid == "" {
		return nil, newError(KindInvalidArgument, "register: content reference must not be empty")
	}
	key := []byte(name)
	if m.store.Has(prefNameOwner, key) {
		return nil, newError(KindInvalidState, "register: name already registered")
	}

	now := uint64(m.now().Unix())
	if err := m.put(prefNameOwner, key, sender.Bytes()); err != nil {
		return nil, err
	}
	if err := m.put(prefNameCID, key, []byte(cid)); err != nil {
		return nil, err
	}
	if err := m.putUint64(prefNamePrice, key, price); err != nil {
		return nil, err
	}
	if err := m.putUint64(prefNameCreated, key, now); err != nil {
		return nil, err
	}
	if err := m.putUint64(prefNameUpdated, key, now); err != nil {
		return nil, err
	}

	return []Event{{Key: "REGISTERED", Value: name + ":" + sender.String()}}, nil
}

// Name returns the full record projection.
func (m *Market) Name(name string) (*Name, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	key := []byte(name)
	if !m.store.Has(prefNameOwner, key) {
		return nil, newError(KindNotFound, "name: not registered")
	}

	rec := &Name{Name: name}
	var err error
	if rec.Owner, err = m.getAddress(prefNameOwner, key); err != nil {
		return nil, err
	}
	cid, err := m.store.Get(prefNameCID, key)
	if err != nil {
		return nil, wrapError(KindInternal, "name: store read failed", err)
	}
	rec.CID = string(cid)
	if rec.Price, err = m.getUint64(prefNamePrice, key); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = m.getUint64(prefNameCreated, key); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = m.getUint64(prefNameUpdated, key); err != nil {
		return nil, err
	}
	return rec, nil
}

// ResolveName is a pure read; results come back exclusively as audit events.
func (m *Market) ResolveName(name string) ([]Event, error) {
	rec, err := m.Name(name)
	if err != nil {
		return nil, err
	}
	return []Event{
		ev("OWNER", rec.Owner),
		ev("CID", rec.CID),
		ev("PRICE", rec.Price),
		ev("TIMESTAMP", rec.UpdatedAt),
	}, nil
}

// UpdateName overwrites the mutable fields; owner only.
func (m *Market) UpdateName(sender identity.Address, name, cid string, price uint64) ([]Event, error) {
	if cid == "" {
		return nil, newError(KindInvalidArgument, "update: content reference must not be empty")
	}
	rec, err := m.ownedName(sender, name)
	if err != nil {
		return nil, err
	}
	key := []byte(rec.Name)
	if err := m.put(prefNameCID, key, []byte(cid)); err != nil {
		return nil, err
	}
	if err := m.putUint64(prefNamePrice, key, price); err != nil {
		return nil, err
	}
	if err := m.putUint64(prefNameUpdated, key, uint64(m.now().Unix())); err != nil {
		return nil, err
	}
	return []Event{ev("UPDATED", rec.Name)}, nil
}

// TransferName hands the name to a new owner, who must be a well-formed
// non-zero identity.
func (m *Market) TransferName(sender identity.Address, name string, newOwner identity.Address) ([]Event, error) {
	if newOwner.IsZero() {
		return nil, newError(KindInvalidArgument, "transfer: new owner must not be the zero address")
	}
	rec, err := m.ownedName(sender, name)
	if err != nil {
		return nil, err
	}
	key := []byte(rec.Name)
	if err := m.put(prefNameOwner, key, newOwner.Bytes()); err != nil {
		return nil, err
	}
	if err := m.putUint64(prefNameUpdated, key, uint64(m.now().Unix())); err != nil {
		return nil, err
	}
	return []Event{{Key: "TRANSFERRED", Value: rec.Name + ":" + newOwner.String()}}, nil
}

// DeleteName removes every field under the name. Registry space is metered
// and reusable, so unlike escrows the record is removed entirely, with no
// audit trail beyond the emitted event.
func (m *Market) DeleteName(sender identity.Address, name string) ([]Event, error) {
	rec, err := m.ownedName(sender, name)
	if err != nil {
		return nil, err
	}
	key := []byte(rec.Name)
	// Each prefixed field is deleted explicitly; the store does not cascade.
	if err := m.store.Delete(prefNameOwner, key); err != nil {
		return nil, wrapError(KindInternal, "delete: store delete failed", err)
	}
	if err := m.store.Delete(prefNameCID, key); err != nil {
		return nil, wrapError(KindInternal, "delete: store delete failed", err)
	}
	if err := m.store.Delete(prefNamePrice, key); err != nil {
		return nil, wrapError(KindInternal, "delete: store delete failed", err)
	}
	if err := m.store.Delete(prefNameCreated, key); err != nil {
		return nil, wrapError(KindInternal, "delete: store delete failed", err)
	}
	if err := m.store.Delete(prefNameUpdated, key); err != nil {
		return nil, wrapError(KindInternal, "delete: store delete failed", err)
	}
	return []Event{ev("DELETED", rec.Name)}, nil
}

// NameExists never errors for a well-formed name; absence reports as 0.
func (m *Market) NameExists(name string) ([]Event, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	v := "0"
	if m.store.Has(prefNameOwner, []byte(name)) {
		v = "1"
	}
	return []Event{{Key: "EXISTS", Value: name + ":" + v}}, nil
}

func (m *Market) ownedName(sender identity.Address, name string) (*Name, error) {
	rec, err := m.Name(name)
	if err != nil {
		return nil, err
	}
	if rec.Owner != sender {
		return nil, newError(KindUnauthorized, "name: caller is not the owner")
	}
	return rec, nil
}
