package market

import (
	"fmt"
	"time"

	"xdao.co/descimarket/identity"
	"xdao.co/descimarket/ledger"
)

// EscrowStatus is the lifecycle state of an escrow.
//
// The only legal transitions are Pending -> Released and Pending -> Refunded.
// Terminal statuses are never left; any operation against a terminal escrow
// fails with InvalidState.
type EscrowStatus uint64

const (
	EscrowPending  EscrowStatus = 0
	EscrowReleased EscrowStatus = 1
	EscrowRefunded EscrowStatus = 2
)

func (s EscrowStatus) String() string {
	switch s {
	case EscrowPending:
		return "Pending"
	case EscrowReleased:
		return "Released"
	case EscrowRefunded:
		return "Refunded"
	default:
		return fmt.Sprintf("EscrowStatus(%d)", uint64(s))
	}
}

// Escrow is the full record projection. Escrow records are never deleted;
// terminal records remain as the audit trail.
type Escrow struct {
	ID        uint64
	ModelID   uint64
	Buyer     identity.Address
	Publisher identity.Address
	Amount    uint64
	Status    EscrowStatus
	CreatedAt uint64 // unix seconds

	// Exactly one is non-zero once the escrow is terminal.
	ReleasedAt uint64
	RefundedAt uint64
}

func escrowID(id uint64) []byte { return ledger.EncodeUint64(id) }

// CreateEscrow locks buyer funds against a purchase of modelID and returns
// the new escrow's ID.
//
// Preconditions, checked in order; the first failure aborts the request with
// no state change:
//  1. pay declares an inbound payment of exactly price to the custody account
//     (the gateway commits payment and creation as one atomic unit).
//  2. price > 0.
//  3. publisher is a well-formed non-zero identity.
func (m *Market) CreateEscrow(sender identity.Address, modelID uint64, publisher identity.Address, price uint64, pay *Payment) (uint64, []Event, error) {
	if pay == nil {
		return 0, nil, newError(KindPaymentMismatch, "create_escrow: missing grouped payment")
	}
	if pay.Receiver != m.custody {
		return 0, nil, newError(KindPaymentMismatch, "create_escrow: payment receiver is not the custody account")
	}
	if pay.Amount != price {
		return 0, nil, newError(KindPaymentMismatch, "create_escrow: payment amount does not match price")
	}
	if price == 0 {
		return 0, nil, newError(KindInvalidArgument, "create_escrow: price must be positive")
	}
	if publisher.IsZero() {
		return 0, nil, newError(KindInvalidArgument, "create_escrow: publisher must not be the zero address")
	}

	id, err := m.escrows.Next()
	if err != nil {
		return 0, nil, wrapError(KindInternal, "create_escrow: id allocation failed", err)
	}
	key := escrowID(id)
	createdAt := uint64(m.now().Unix())

	if err := m.putUint64(prefEscrowModel, key, modelID); err != nil {
		return 0, nil, err
	}
	if err := m.put(prefEscrowBuyer, key, sender.Bytes()); err != nil {
		return 0, nil, err
	}
	if err := m.put(prefEscrowPub, key, publisher.Bytes()); err != nil {
		return 0, nil, err
	}
	if err := m.putUint64(prefEscrowAmount, key, price); err != nil {
		return 0, nil, err
	}
	if err := m.putUint64(prefEscrowStatus, key, uint64(EscrowPending)); err != nil {
		return 0, nil, err
	}
	if err := m.putUint64(prefEscrowCreated, key, createdAt); err != nil {
		return 0, nil, err
	}

	events := []Event{
		ev("ESCROW_ID", id),
		ev("MODEL_ID", modelID),
		ev("BUYER", sender),
		ev("AMOUNT", price),
	}
	return id, events, nil
}

// ReleasePayment pays the publisher and closes the escrow.
//
// The terminal status is persisted before the settlement transfer is issued.
// If settlement rejects, the status write is compensated so the request as a
// whole has no effect.
func (m *Market) ReleasePayment(sender identity.Address, id uint64) ([]Event, error) {
	esc, err := m.pendingEscrow(id)
	if err != nil {
		return nil, err
	}
	if sender != esc.Publisher {
		return nil, newError(KindUnauthorized, "release_payment: caller is not the escrow publisher")
	}

	return m.settleEscrow(esc, EscrowReleased, esc.Publisher, "RELEASED")
}

// RefundPayment returns the funds to the buyer and closes the escrow.
//
// Authorization is a disjunction: the buyer may refund at any time, and once
// RefundTimeout has elapsed since creation anyone may trigger the refund on
// the buyer's behalf (funds must never be permanently stuck).
func (m *Market) RefundPayment(sender identity.Address, id uint64) ([]Event, error) {
	esc, err := m.pendingEscrow(id)
	if err != nil {
		return nil, err
	}
	if sender != esc.Buyer {
		deadline := time.Unix(int64(esc.CreatedAt), 0).Add(RefundTimeout)
		if !m.now().After(deadline) {
			return nil, newError(KindUnauthorized, "refund_payment: caller is not the buyer and the refund timeout has not elapsed")
		}
	}

	return m.settleEscrow(esc, EscrowRefunded, esc.Buyer, "REFUNDED")
}

// pendingEscrow loads an escrow and enforces the shared release/refund
// preconditions: id in range, status Pending, amount > 0.
func (m *Market) pendingEscrow(id uint64) (*Escrow, error) {
	ok, err := m.escrows.InRange(id)
	if err != nil {
		return nil, wrapError(KindInternal, "escrow: counter read failed", err)
	}
	if !ok {
		return nil, newError(KindInvalidArgument, "escrow: id out of range")
	}
	esc, err := m.Escrow(id)
	if err != nil {
		return nil, err
	}
	if esc.Status != EscrowPending {
		return nil, newError(KindInvalidState, "escrow: not pending")
	}
	if esc.Amount == 0 {
		return nil, newError(KindInvalidState, "escrow: zero amount")
	}
	return esc, nil
}

// settleEscrow flips the escrow to its terminal status, then issues the
// settlement transfer of amount minus the flat fee. Write-before-transfer is
// the reentrancy guard and must not be reordered.
func (m *Market) settleEscrow(esc *Escrow, terminal EscrowStatus, payee identity.Address, eventKey string) ([]Event, error) {
	key := escrowID(esc.ID)
	stampPrefix := prefEscrowReleased
	if terminal == EscrowRefunded {
		stampPrefix = prefEscrowRefunded
	}
	stampedAt := uint64(m.now().Unix())

	if err := m.putUint64(prefEscrowStatus, key, uint64(terminal)); err != nil {
		return nil, err
	}
	if err := m.putUint64(stampPrefix, key, stampedAt); err != nil {
		// Restore Pending so the request has no effect.
		_ = m.putUint64(prefEscrowStatus, key, uint64(EscrowPending))
		return nil, err
	}

	// Flat deduction; payouts never underflow past zero.
	payout := uint64(0)
	if esc.Amount > m.fee {
		payout = esc.Amount - m.fee
	}

	if err := m.settle.Transfer(m.custody, payee, payout); err != nil {
		// Settlement rejected: compensate the terminal write so the whole
		// request is a zero-effect failure.
		_ = m.store.Delete(stampPrefix, key)
		_ = m.putUint64(prefEscrowStatus, key, uint64(EscrowPending))
		return nil, wrapError(KindInternal, "escrow: settlement transfer rejected", err)
	}

	accrued, err := m.FeeAccrued()
	if err != nil {
		return nil, err
	}
	if err := m.putUint64(prefFeeAccrued, nil, accrued+(esc.Amount-payout)); err != nil {
		return nil, err
	}

	events := []Event{
		ev(eventKey, esc.ID),
		ev("PAYOUT", payout),
		ev("RECIPIENT", payee),
	}
	return events, nil
}

// Escrow returns the full record projection for id.
func (m *Market) Escrow(id uint64) (*Escrow, error) {
	key := escrowID(id)
	if !m.store.Has(prefEscrowStatus, key) {
		return nil, newError(KindNotFound, "escrow: no such record")
	}

	esc := &Escrow{ID: id}
	var err error
	if esc.ModelID, err = m.getUint64(prefEscrowModel, key); err != nil {
		return nil, err
	}
	if esc.Buyer, err = m.getAddress(prefEscrowBuyer, key); err != nil {
		return nil, err
	}
	if esc.Publisher, err = m.getAddress(prefEscrowPub, key); err != nil {
		return nil, err
	}
	if esc.Amount, err = m.getUint64(prefEscrowAmount, key); err != nil {
		return nil, err
	}
	status, err := m.getUint64(prefEscrowStatus, key)
	if err != nil {
		return nil, err
	}
	esc.Status = EscrowStatus(status)
	if esc.CreatedAt, err = m.getUint64(prefEscrowCreated, key); err != nil {
		return nil, err
	}
	if m.store.Has(prefEscrowReleased, key) {
		if esc.ReleasedAt, err = m.getUint64(prefEscrowReleased, key); err != nil {
			return nil, err
		}
	}
	if m.store.Has(prefEscrowRefunded, key) {
		if esc.RefundedAt, err = m.getUint64(prefEscrowRefunded, key); err != nil {
			return nil, err
		}
	}
	return esc, nil
}

// GetEscrowStatus is a pure read; its only side effect is the audit emission.
func (m *Market) GetEscrowStatus(id uint64) ([]Event, error) {
	ok, err := m.escrows.InRange(id)
	if err != nil {
		return nil, wrapError(KindInternal, "escrow: counter read failed", err)
	}
	if !ok {
		return nil, newError(KindInvalidArgument, "get_escrow_status: id out of range")
	}
	esc, err := m.Escrow(id)
	if err != nil {
		return nil, err
	}
	return []Event{
		ev("MODEL_ID", esc.ModelID),
		ev("BUYER", esc.Buyer),
		ev("PRICE", esc.Amount),
		ev("STATUS", esc.Status),
		ev("PUBLISHER", esc.Publisher),
	}, nil
}

// GetEscrowCount reports how many escrows have ever been created.
func (m *Market) GetEscrowCount() ([]Event, error) {
	cur, err := m.escrows.Current()
	if err != nil {
		return nil, wrapError(KindInternal, "escrow: counter read failed", err)
	}
	return []Event{ev("COUNT", cur)}, nil
}
