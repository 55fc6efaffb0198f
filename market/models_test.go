package market_test

import (
	"testing"

	"xdao.co/descimarket/market"
)

const (
	demoCID  = "bafkreidemoabc123"
	demoCID2 = "bafkreidemoxyz789"
)

func TestPublishModelAssignsDenseIDs(t *testing.T) {
	h := newHarness(t)
	pub := addr(1)

	for want := uint64(1); want <= 3; want++ {
		id, _, err := h.mkt.PublishModel(pub, demoCID, "MIT")
		if err != nil {
			t.Fatalf("PublishModel: %v", err)
		}
		if id != want {
			t.Fatalf("model id: got %d want %d", id, want)
		}
	}
}

func TestPublishModelRejectsEmptyCID(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.mkt.PublishModel(addr(1), "", "MIT")
	wantKind(t, err, market.KindInvalidArgument)
}

func TestPublishModelEmitsAuditEvents(t *testing.T) {
	h := newHarness(t)
	pub := addr(1)
	id, events, err := h.mkt.PublishModel(pub, demoCID, "CC-BY-4.0")
	if err != nil {
		t.Fatalf("PublishModel: %v", err)
	}
	if v, ok := findEvent(events, "MODEL_ID"); !ok || v != "1" {
		t.Fatalf("MODEL_ID event: got %q ok=%v", v, ok)
	}
	if v, ok := findEvent(events, "CID"); !ok || v != demoCID {
		t.Fatalf("CID event: got %q ok=%v", v, ok)
	}
	if v, ok := findEvent(events, "PUBLISHER"); !ok || v != pub.String() {
		t.Fatalf("PUBLISHER event: got %q ok=%v", v, ok)
	}
	_ = id
}

func TestGetModelProjection(t *testing.T) {
	h := newHarness(t)
	pub := addr(1)
	id, _, err := h.mkt.PublishModel(pub, demoCID, "MIT")
	if err != nil {
		t.Fatalf("PublishModel: %v", err)
	}

	events, err := h.mkt.GetModel(id)
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if v, _ := findEvent(events, "LICENSE"); v != "MIT" {
		t.Fatalf("LICENSE event: got %q", v)
	}
	if v, _ := findEvent(events, "PUBLISHER"); v != pub.String() {
		t.Fatalf("PUBLISHER event: got %q", v)
	}

	_, err = h.mkt.GetModel(id + 1)
	wantKind(t, err, market.KindInvalidArgument)
	_, err = h.mkt.GetModel(0)
	wantKind(t, err, market.KindInvalidArgument)
}

func TestModelExistsReportsWithoutError(t *testing.T) {
	h := newHarness(t)

	events, err := h.mkt.ModelExists(42)
	if err != nil {
		t.Fatalf("ModelExists: %v", err)
	}
	if v, _ := findEvent(events, "EXISTS"); v != "42:0" {
		t.Fatalf("EXISTS event: got %q want 42:0", v)
	}

	id, _, err := h.mkt.PublishModel(addr(1), demoCID, "MIT")
	if err != nil {
		t.Fatalf("PublishModel: %v", err)
	}
	events, err = h.mkt.ModelExists(id)
	if err != nil {
		t.Fatalf("ModelExists: %v", err)
	}
	if v, _ := findEvent(events, "EXISTS"); v != "1:1" {
		t.Fatalf("EXISTS event: got %q want 1:1", v)
	}
}

func TestUpdateModelOwnerOnly(t *testing.T) {
	h := newHarness(t)
	pub, stranger := addr(1), addr(9)
	id, _, err := h.mkt.PublishModel(pub, demoCID, "MIT")
	if err != nil {
		t.Fatalf("PublishModel: %v", err)
	}

	_, err = h.mkt.UpdateModel(stranger, id, demoCID2, "Apache-2.0")
	wantKind(t, err, market.KindUnauthorized)

	h.clock.advanceSecs(60)
	if _, err := h.mkt.UpdateModel(pub, id, demoCID2, "Apache-2.0"); err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}

	rec, err := h.mkt.Model(id)
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	if rec.CID != demoCID2 || rec.License != "Apache-2.0" {
		t.Fatalf("update not applied: cid=%q license=%q", rec.CID, rec.License)
	}
	if rec.UpdatedAt != rec.CreatedAt+60 {
		t.Fatalf("updated_at: got %d want %d", rec.UpdatedAt, rec.CreatedAt+60)
	}
}

func TestTransferModelChangesPublisher(t *testing.T) {
	h := newHarness(t)
	pub, next := addr(1), addr(2)
	id, _, err := h.mkt.PublishModel(pub, demoCID, "MIT")
	if err != nil {
		t.Fatalf("PublishModel: %v", err)
	}

	_, err = h.mkt.TransferModel(pub, id, addr(0))
	wantKind(t, err, market.KindInvalidArgument)

	events, err := h.mkt.TransferModel(pub, id, next)
	if err != nil {
		t.Fatalf("TransferModel: %v", err)
	}
	if v, _ := findEvent(events, "MODEL_TRANSFERRED"); v != "1:"+next.String() {
		t.Fatalf("MODEL_TRANSFERRED event: got %q", v)
	}

	// The old publisher no longer controls the record.
	_, err = h.mkt.UpdateModel(pub, id, demoCID2, "MIT")
	wantKind(t, err, market.KindUnauthorized)
	if _, err := h.mkt.UpdateModel(next, id, demoCID2, "MIT"); err != nil {
		t.Fatalf("UpdateModel by new publisher: %v", err)
	}
}
