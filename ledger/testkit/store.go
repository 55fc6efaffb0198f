// Package testkit provides a conformance suite shared by ledger.Store
// implementations.
package testkit

import (
	"bytes"
	"testing"

	"xdao.co/descimarket/ledger"
)

// NewStore constructs a fresh, empty Store instance for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) ledger.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("owner_", []byte("smith.desci"), []byte{1, 2, 3}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get("owner_", []byte("smith.desci"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, []byte{1, 2, 3}) {
			t.Fatalf("Get bytes mismatch: %v", got)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("cid_", []byte("a"), []byte("old")); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := s.Put("cid_", []byte("a"), []byte("new")); err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		got, err := s.Get("cid_", []byte("a"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "new" {
			t.Fatalf("overwrite lost: got %q", got)
		}
	})

	t.Run("GetMissingIsNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get("owner_", []byte("missing"))
		if !ledger.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("PrefixesDoNotCollide", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("cid_", []byte("x"), []byte("c")); err != nil {
			t.Fatalf("Put cid_ failed: %v", err)
		}
		if err := s.Put("owner_", []byte("x"), []byte("o")); err != nil {
			t.Fatalf("Put owner_ failed: %v", err)
		}
		got, err := s.Get("cid_", []byte("x"))
		if err != nil || string(got) != "c" {
			t.Fatalf("cid_ read: got %q err=%v", got, err)
		}
		got, err = s.Get("owner_", []byte("x"))
		if err != nil || string(got) != "o" {
			t.Fatalf("owner_ read: got %q err=%v", got, err)
		}
	})

	t.Run("EmptyValueIsPresent", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("lic_", []byte("m"), nil); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !s.Has("lic_", []byte("m")) {
			t.Fatalf("Has returned false for empty value")
		}
		got, err := s.Get("lic_", []byte("m"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("want empty value, got %v", got)
		}
	})

	t.Run("DeleteRemovesOneField", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("cid_", []byte("x"), []byte("c")); err != nil {
			t.Fatalf("Put cid_ failed: %v", err)
		}
		if err := s.Put("owner_", []byte("x"), []byte("o")); err != nil {
			t.Fatalf("Put owner_ failed: %v", err)
		}
		if err := s.Delete("cid_", []byte("x")); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if s.Has("cid_", []byte("x")) {
			t.Fatalf("cid_ still present after Delete")
		}
		if !s.Has("owner_", []byte("x")) {
			t.Fatalf("Delete cascaded to owner_")
		}
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		s := newStore(t)
		if err := s.Delete("cid_", []byte("never")); err != nil {
			t.Fatalf("Delete missing: %v", err)
		}
	})

	t.Run("RejectEmptyPrefix", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("", []byte("x"), []byte("v")); err == nil {
			t.Fatalf("Put with empty prefix should fail")
		}
		if s.Has("", []byte("x")) {
			t.Fatalf("Has with empty prefix should be false")
		}
	})

	t.Run("NilIdentityIsAKey", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put("escrow_count", nil, []byte{0, 0, 0, 0, 0, 0, 0, 1}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get("escrow_count", nil)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got) != 8 || got[7] != 1 {
			t.Fatalf("counter read mismatch: %v", got)
		}
	})
}

// RunSequenceConformance checks Sequence behavior on top of a Store.
func RunSequenceConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("SequenceStartsAtOne", func(t *testing.T) {
		s := newStore(t)
		seq := ledger.NewSequence(s, "model_count")
		cur, err := seq.Current()
		if err != nil || cur != 0 {
			t.Fatalf("Current: got %d err=%v", cur, err)
		}
		id, err := seq.Next()
		if err != nil || id != 1 {
			t.Fatalf("Next: got %d err=%v", id, err)
		}
	})

	t.Run("SequenceIsDense", func(t *testing.T) {
		s := newStore(t)
		seq := ledger.NewSequence(s, "escrow_count")
		for want := uint64(1); want <= 5; want++ {
			id, err := seq.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if id != want {
				t.Fatalf("Next: got %d want %d", id, want)
			}
		}
		ok, err := seq.InRange(5)
		if err != nil || !ok {
			t.Fatalf("InRange(5): %v %v", ok, err)
		}
		ok, err = seq.InRange(6)
		if err != nil || ok {
			t.Fatalf("InRange(6) should be false")
		}
		ok, err = seq.InRange(0)
		if err != nil || ok {
			t.Fatalf("InRange(0) should be false")
		}
	})
}
