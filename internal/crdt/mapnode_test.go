package crdt

import "testing"

func TestLiveMapTombstoneAndSize(t *testing.T) {
	doc := NewStorageDocument()
	m := NewLiveMap()
	doc.Mutate(func(root *LiveObject) {
		root.Set("scores", m)
	})
	doc.Mutate(func(root *LiveObject) {
		m.Set("alice", 10)
		m.Set("bob", 20)
	})
	if got := m.Size(); got != 2 {
		t.Fatalf("Size() = %d, want 2", got)
	}
	doc.Mutate(func(root *LiveObject) {
		m.Delete("alice")
	})
	if got := m.Size(); got != 1 {
		t.Fatalf("Size() after delete = %d, want 1 (tombstones must not count)", got)
	}
	if _, ok := m.Get("alice"); ok {
		t.Fatal("Get(alice) should not see a tombstoned entry")
	}
	m.Compact()
	if _, ok := m.entries["alice"]; ok {
		t.Fatal("Compact should drop the tombstone entirely")
	}
}

func TestLiveMapReviveAfterDelete(t *testing.T) {
	doc := NewStorageDocument()
	m := NewLiveMap()
	doc.Mutate(func(root *LiveObject) {
		root.Set("tags", m)
	})
	doc.Mutate(func(root *LiveObject) { m.Set("a", 1) })
	doc.Mutate(func(root *LiveObject) { m.Delete("a") })
	doc.Mutate(func(root *LiveObject) { m.Set("a", 2) })
	if got := m.Size(); got != 1 {
		t.Fatalf("Size() after revive = %d, want 1", got)
	}
	v, ok := m.Get("a")
	if !ok || v != 2 {
		t.Fatalf("Get(a) = %v, %v, want 2, true", v, ok)
	}
}

func TestLiveMapApplyRemoteClockGuard(t *testing.T) {
	m := NewLiveMap()
	m.entries["k"] = &mapEntry{value: 1, clock: 10}
	m.live = 1

	if m.applyRemote(Op{Kind: OpSet, Key: "k", Value: 2, Clock: 3}) {
		t.Fatal("a stale clock must be rejected")
	}
	if !m.applyRemote(Op{Kind: OpSet, Key: "k", Value: 2, Clock: 11}) {
		t.Fatal("a newer clock must be accepted")
	}
	v, _ := m.Get("k")
	if v != 2 {
		t.Fatalf("Get(k) = %v, want 2", v)
	}
}
