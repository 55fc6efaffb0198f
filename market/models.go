package market

import (
	"xdao.co/descimarket/identity"
	"xdao.co/descimarket/ledger"
)

// Model is the registry record projection for one published model.
type Model struct {
	ID        uint64
	CID       string
	Publisher identity.Address
	License   string
	CreatedAt uint64
	UpdatedAt uint64
}

func modelID(id uint64) []byte { return ledger.EncodeUint64(id) }

// PublishModel registers a model under the next sequential ID.
//
// Models are append-only numbered, so no uniqueness check is needed; the
// content reference is opaque to the core but must be non-empty.
func (m *Market) PublishModel(sender identity.Address, cid, license string) (uint64, []Event, error) {
	if cid == "" {
		return 0, nil, newError(KindInvalidArgument, "publish_model: content reference must not be empty")
	}

	id, err := m.models.Next()
	if err != nil {
		return 0, nil, wrapError(KindInternal, "publish_model: id allocation failed", err)
	}
	key := modelID(id)
	now := uint64(m.now().Unix())

	if err := m.put(prefModelCID, key, []byte(cid)); err != nil {
		return 0, nil, err
	}
	if err := m.put(prefModelPub, key, sender.Bytes()); err != nil {
		return 0, nil, err
	}
	if err := m.put(prefModelLicense, key, []byte(license)); err != nil {
		return 0, nil, err
	}
	if err := m.putUint64(prefModelCreated, key, now); err != nil {
		return 0, nil, err
	}
	if err := m.putUint64(prefModelUpdated, key, now); err != nil {
		return 0, nil, err
	}

	events := []Event{
		ev("MODEL_ID", id),
		ev("CID", cid),
		ev("PUBLISHER", sender),
	}
	return id, events, nil
}

// Model returns the full record projection for id.
func (m *Market) Model(id uint64) (*Model, error) {
	key := modelID(id)
	if !m.store.Has(prefModelCID, key) {
		return nil, newError(KindNotFound, "model: no such record")
	}

	rec := &Model{ID: id}
	cid, err := m.store.Get(prefModelCID, key)
	if err != nil {
		return nil, wrapError(KindInternal, "model: store read failed", err)
	}
	rec.CID = string(cid)
	if rec.Publisher, err = m.getAddress(prefModelPub, key); err != nil {
		return nil, err
	}
	lic, err := m.store.Get(prefModelLicense, key)
	if err != nil {
		return nil, wrapError(KindInternal, "model: store read failed", err)
	}
	rec.License = string(lic)
	if rec.CreatedAt, err = m.getUint64(prefModelCreated, key); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = m.getUint64(prefModelUpdated, key); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetModel is a pure read; results come back exclusively as audit events.
func (m *Market) GetModel(id uint64) ([]Event, error) {
	ok, err := m.models.InRange(id)
	if err != nil {
		return nil, wrapError(KindInternal, "model: counter read failed", err)
	}
	if !ok {
		return nil, newError(KindInvalidArgument, "get_model: id out of range")
	}
	rec, err := m.Model(id)
	if err != nil {
		return nil, err
	}
	return []Event{
		ev("MODEL_ID", rec.ID),
		ev("CID", rec.CID),
		ev("PUBLISHER", rec.Publisher),
		ev("LICENSE", rec.License),
	}, nil
}

// ModelExists never errors for a well-formed ID; absence reports as 0.
func (m *Market) ModelExists(id uint64) ([]Event, error) {
	exists := m.store.Has(prefModelCID, modelID(id))
	v := "0"
	if exists {
		v = "1"
	}
	return []Event{{Key: "EXISTS", Value: itoa(id) + ":" + v}}, nil
}

// UpdateModel overwrites the mutable fields. Only the current publisher may
// update; identity (the ID) is immutable once created.
func (m *Market) UpdateModel(sender identity.Address, id uint64, cid, license string) ([]Event, error) {
	if cid == "" {
		return nil, newError(KindInvalidArgument, "update_model: content reference must not be empty")
	}
	rec, err := m.ownedModel(sender, id)
	if err != nil {
		return nil, err
	}
	key := modelID(rec.ID)
	if err := m.put(prefModelCID, key, []byte(cid)); err != nil {
		return nil, err
	}
	if err := m.put(prefModelLicense, key, []byte(license)); err != nil {
		return nil, err
	}
	if err := m.putUint64(prefModelUpdated, key, uint64(m.now().Unix())); err != nil {
		return nil, err
	}
	return []Event{ev("MODEL_UPDATED", rec.ID)}, nil
}

// TransferModel hands the record to a new publisher, who must be a
// well-formed non-zero identity.
func (m *Market) TransferModel(sender identity.Address, id uint64, newPublisher identity.Address) ([]Event, error) {
	if newPublisher.IsZero() {
		return nil, newError(KindInvalidArgument, "transfer_model: new publisher must not be the zero address")
	}
	rec, err := m.ownedModel(sender, id)
	if err != nil {
		return nil, err
	}
	key := modelID(rec.ID)
	if err := m.put(prefModelPub, key, newPublisher.Bytes()); err != nil {
		return nil, err
	}
	if err := m.putUint64(prefModelUpdated, key, uint64(m.now().Unix())); err != nil {
		return nil, err
	}
	return []Event{{Key: "MODEL_TRANSFERRED", Value: itoa(rec.ID) + ":" + newPublisher.String()}}, nil
}

func (m *Market) ownedModel(sender identity.Address, id uint64) (*Model, error) {
	rec, err := m.Model(id)
	if err != nil {
		return nil, err
	}
	if rec.Publisher != sender {
		return nil, newError(KindUnauthorized, "model: caller is not the publisher")
	}
	return rec, nil
}
