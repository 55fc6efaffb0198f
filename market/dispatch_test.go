package market_test

import (
	"strconv"
	"testing"

	"xdao.co/descimarket/market"
)

func submit(h *harness, req market.Request) ([]market.Event, error) {
	return h.mkt.Submit(req)
}

func TestSubmitRequiresSender(t *testing.T) {
	h := newHarness(t)
	_, err := submit(h, market.Request{Method: "get_escrow_count"})
	wantKind(t, err, market.KindUnauthorized)
}

func TestSubmitRejectsUnknownMethod(t *testing.T) {
	h := newHarness(t)
	_, err := submit(h, market.Request{Method: "drain_custody", Sender: addr(1)})
	wantKind(t, err, market.KindInvalidArgument)
}

func TestSubmitRejectsStrayPayment(t *testing.T) {
	h := newHarness(t)
	buyer := addr(1)
	pay := h.pay(t, buyer, 500)
	_, err := submit(h, market.Request{
		Method:  "get_escrow_count",
		Sender:  buyer,
		Payment: pay,
	})
	wantKind(t, err, market.KindPaymentMismatch)
}

func TestSubmitArgumentShapes(t *testing.T) {
	h := newHarness(t)
	sender := addr(1)

	cases := []struct {
		method string
		args   []string
	}{
		{"create_escrow", []string{"1", "2"}},
		{"create_escrow", []string{"x", addr(2).String(), "100"}},
		{"create_escrow", []string{"1", "not-an-address", "100"}},
		{"release_payment", nil},
		{"release_payment", []string{"abc"}},
		{"refund_payment", []string{"1", "2"}},
		{"get_escrow_status", []string{"-1"}},
		{"get_escrow_count", []string{"1"}},
		{"publish_model", []string{"cid"}},
		{"get_model", []string{"3.5"}},
		{"update_model", []string{"1", "cid"}},
		{"transfer_model", []string{"1", "not-an-address"}},
		{"register", []string{"n", "cid", "notanumber"}},
		{"resolve", nil},
		{"update", []string{"n", "cid"}},
		{"transfer", []string{"n", "zzz!"}},
		{"delete", []string{"a", "b"}},
		{"exists", nil},
	}
	for _, tc := range cases {
		_, err := submit(h, market.Request{Method: tc.method, Args: tc.args, Sender: sender})
		if !market.IsKind(err, market.KindInvalidArgument) {
			t.Errorf("%s %v: got %v (kind %q), want InvalidArgument",
				tc.method, tc.args, err, market.KindOf(err))
		}
	}
}

func TestSubmitPublishModelPublisherMustMatchSender(t *testing.T) {
	h := newHarness(t)
	sender, other := addr(1), addr(2)

	_, err := submit(h, market.Request{
		Method: "publish_model",
		Args:   []string{demoCID, other.String(), "MIT"},
		Sender: sender,
	})
	wantKind(t, err, market.KindUnauthorized)

	events, err := submit(h, market.Request{
		Method: "publish_model",
		Args:   []string{demoCID, sender.String(), "MIT"},
		Sender: sender,
	})
	if err != nil {
		t.Fatalf("publish_model: %v", err)
	}
	if v, _ := findEvent(events, "MODEL_ID"); v != "1" {
		t.Fatalf("MODEL_ID event: got %q", v)
	}
}

// TestSubmitEscrowLifecycle drives the purchase flow purely through the
// string-typed request surface, the way the gateway does.
func TestSubmitEscrowLifecycle(t *testing.T) {
	h := newHarness(t)
	buyer, publisher := addr(1), addr(2)
	const price = 2_000_000

	if _, err := submit(h, market.Request{
		Method: "publish_model",
		Args:   []string{demoCID, publisher.String(), "MIT"},
		Sender: publisher,
	}); err != nil {
		t.Fatalf("publish_model: %v", err)
	}

	events, err := submit(h, market.Request{
		Method:  "create_escrow",
		Args:    []string{"1", publisher.String(), strconv.Itoa(price)},
		Sender:  buyer,
		Payment: h.pay(t, buyer, price),
	})
	if err != nil {
		t.Fatalf("create_escrow: %v", err)
	}
	if v, _ := findEvent(events, "ESCROW_ID"); v != "1" {
		t.Fatalf("ESCROW_ID event: got %q", v)
	}

	events, err = submit(h, market.Request{
		Method: "get_escrow_status",
		Args:   []string{"1"},
		Sender: addr(9),
	})
	if err != nil {
		t.Fatalf("get_escrow_status: %v", err)
	}
	if v, _ := findEvent(events, "STATUS"); v != "Pending" {
		t.Fatalf("STATUS event: got %q", v)
	}

	events, err = submit(h, market.Request{
		Method: "release_payment",
		Args:   []string{"1"},
		Sender: publisher,
	})
	if err != nil {
		t.Fatalf("release_payment: %v", err)
	}
	if v, _ := findEvent(events, "RELEASED"); v != "1" {
		t.Fatalf("RELEASED event: got %q", v)
	}
	if got := h.bank.Balance(publisher); got != price-testFee {
		t.Fatalf("publisher balance: got %d want %d", got, price-testFee)
	}
}

func TestSubmitNameLifecycle(t *testing.T) {
	h := newHarness(t)
	owner, next := addr(1), addr(2)

	steps := []struct {
		sender market.Request
		key    string
		want   string
	}{
		{market.Request{Method: "register", Args: []string{"smith.desci", demoCID, "1000000"}, Sender: owner},
			"REGISTERED", "smith.desci:" + owner.String()},
		{market.Request{Method: "resolve", Args: []string{"smith.desci"}, Sender: addr(9)},
			"OWNER", owner.String()},
		{market.Request{Method: "update", Args: []string{"smith.desci", demoCID2, "2000000"}, Sender: owner},
			"UPDATED", "smith.desci"},
		{market.Request{Method: "transfer", Args: []string{"smith.desci", next.String()}, Sender: owner},
			"TRANSFERRED", "smith.desci:" + next.String()},
		{market.Request{Method: "exists", Args: []string{"smith.desci"}, Sender: addr(9)},
			"EXISTS", "smith.desci:1"},
		{market.Request{Method: "delete", Args: []string{"smith.desci"}, Sender: next},
			"DELETED", "smith.desci"},
		{market.Request{Method: "exists", Args: []string{"smith.desci"}, Sender: addr(9)},
			"EXISTS", "smith.desci:0"},
	}
	for _, s := range steps {
		events, err := submit(h, s.sender)
		if err != nil {
			t.Fatalf("%s: %v", s.sender.Method, err)
		}
		if v, ok := findEvent(events, s.key); !ok || v != s.want {
			t.Fatalf("%s: %s event got %q ok=%v want %q", s.sender.Method, s.key, v, ok, s.want)
		}
	}
}
