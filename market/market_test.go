package market_test

import (
	"testing"
	"time"

	"xdao.co/descimarket/identity"
	"xdao.co/descimarket/ledger/memledger"
	"xdao.co/descimarket/market"
	"xdao.co/descimarket/settlement"
)

const testFee = 1000

// clock is a controllable time source for timeout-refund scenarios.
type clock struct{ at time.Time }

func (c *clock) now() time.Time            { return c.at }
func (c *clock) advance(d time.Duration)   { c.at = c.at.Add(d) }
func (c *clock) advanceSecs(s int64)       { c.advance(time.Duration(s) * time.Second) }

type harness struct {
	mkt   *market.Market
	bank  *settlement.Bank
	clock *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c := &clock{at: time.Unix(1_700_000_000, 0)}
	bank := settlement.NewBank()
	mkt, err := market.New(market.Config{
		Store:      memledger.New(),
		Settlement: bank,
		Fee:        testFee,
		Now:        c.now,
	})
	if err != nil {
		t.Fatalf("market.New: %v", err)
	}
	return &harness{mkt: mkt, bank: bank, clock: c}
}

// rejectingSettlement stands in for an authority that refuses every transfer.
type rejectingSettlement struct{}

func (rejectingSettlement) Transfer(_, _ identity.Address, _ uint64) error {
	return errTransferRejected
}

var errTransferRejected = &market.Error{Kind: market.KindInternal, Message: "settlement rejected"}

func newRejectingHarnessStore(t *testing.T, c *clock) *harness {
	t.Helper()
	mkt, err := market.New(market.Config{
		Store:      memledger.New(),
		Settlement: rejectingSettlement{},
		Fee:        testFee,
		Now:        c.now,
	})
	if err != nil {
		t.Fatalf("market.New: %v", err)
	}
	return &harness{mkt: mkt, clock: c}
}

func addr(b byte) identity.Address {
	var a identity.Address
	for i := range a {
		a[i] = b
	}
	return a
}

// pay funds the buyer and returns the matching payment declaration, moving
// the funds into custody the way the gateway would.
func (h *harness) pay(t *testing.T, buyer identity.Address, amount uint64) *market.Payment {
	t.Helper()
	if err := h.bank.Mint(buyer, amount); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := h.bank.Transfer(buyer, h.mkt.Custody(), amount); err != nil {
		t.Fatalf("fund custody: %v", err)
	}
	return &market.Payment{Amount: amount, Receiver: h.mkt.Custody()}
}

// createEscrow is the happy-path creation helper used across scenarios.
func (h *harness) createEscrow(t *testing.T, buyer, publisher identity.Address, modelID, price uint64) uint64 {
	t.Helper()
	id, _, err := h.mkt.CreateEscrow(buyer, modelID, publisher, price, h.pay(t, buyer, price))
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	return id
}

func wantKind(t *testing.T, err error, kind market.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !market.IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v (kind %q)", kind, err, market.KindOf(err))
	}
}

func findEvent(events []market.Event, key string) (string, bool) {
	for _, e := range events {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}
