// Package market implements the on-ledger core of the DeSci model
// marketplace: the escrow engine, the model registry, and the name registry,
// all running against a shared composite-key record store.
//
// The package assumes the surrounding request processor has already
// authenticated the sender and serializes requests; it does no locking and
// never blocks. Every operation is a bounded sequence of store reads and
// writes plus at most one settlement transfer, and any precondition failure
// aborts the whole request with no state change.
package market

import (
	"time"

	"xdao.co/descimarket/identity"
	"xdao.co/descimarket/ledger"
)

// DefaultFee is the flat protocol fee, in microunits, deducted from every
// escrow payout. It is a flat subtraction, not a percentage.
const DefaultFee = 1000

// RefundTimeout is the grace period after which anyone may refund a pending
// escrow on the buyer's behalf.
const RefundTimeout = 7 * 24 * time.Hour

// Config configures a Market.
type Config struct {
	Store      ledger.Store
	Settlement Settlement

	// Fee overrides DefaultFee when non-zero.
	Fee uint64

	// Now overrides time.Now; tests inject it to drive timeout refunds.
	Now func() time.Time
}

// Market owns the escrow and registry engines.
type Market struct {
	store   ledger.Store
	settle  Settlement
	fee     uint64
	now     func() time.Time
	custody identity.Address

	escrows *ledger.Sequence
	models  *ledger.Sequence
}

func New(cfg Config) (*Market, error) {
	if cfg.Store == nil {
		return nil, newError(KindInternal, "market: store is required")
	}
	if cfg.Settlement == nil {
		return nil, newError(KindInternal, "market: settlement authority is required")
	}
	fee := cfg.Fee
	if fee == 0 {
		fee = DefaultFee
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Market{
		store:   cfg.Store,
		settle:  cfg.Settlement,
		fee:     fee,
		now:     now,
		custody: identity.Custody(),
		escrows: ledger.NewSequence(cfg.Store, prefEscrowCount),
		models:  ledger.NewSequence(cfg.Store, prefModelCount),
	}, nil
}

// Custody returns the custodial account all escrowed funds are held under.
func (m *Market) Custody() identity.Address { return m.custody }

// Fee returns the flat protocol fee in microunits.
func (m *Market) Fee() uint64 { return m.fee }

// FeeAccrued returns the total fee remainder retained in custody across all
// terminal escrows.
func (m *Market) FeeAccrued() (uint64, error) {
	v, err := m.getUint64(prefFeeAccrued, nil)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}

func (m *Market) getUint64(prefix ledger.Prefix, identity []byte) (uint64, error) {
	b, err := m.store.Get(prefix, identity)
	if err != nil {
		if ledger.IsNotFound(err) {
			return 0, newError(KindNotFound, "market: record not found")
		}
		return 0, wrapError(KindInternal, "market: store read failed", err)
	}
	v, err := ledger.DecodeUint64(b)
	if err != nil {
		return 0, wrapError(KindInternal, "market: corrupt numeric record", err)
	}
	return v, nil
}

func (m *Market) getAddress(prefix ledger.Prefix, id []byte) (identity.Address, error) {
	b, err := m.store.Get(prefix, id)
	if err != nil {
		if ledger.IsNotFound(err) {
			return identity.Zero, newError(KindNotFound, "market: record not found")
		}
		return identity.Zero, wrapError(KindInternal, "market: store read failed", err)
	}
	a, err := identity.FromBytes(b)
	if err != nil {
		return identity.Zero, wrapError(KindInternal, "market: corrupt address record", err)
	}
	return a, nil
}

func (m *Market) putUint64(prefix ledger.Prefix, id []byte, v uint64) error {
	if err := m.store.Put(prefix, id, ledger.EncodeUint64(v)); err != nil {
		return wrapError(KindInternal, "market: store write failed", err)
	}
	return nil
}

func (m *Market) put(prefix ledger.Prefix, id, v []byte) error {
	if err := m.store.Put(prefix, id, v); err != nil {
		return wrapError(KindInternal, "market: store write failed", err)
	}
	return nil
}
