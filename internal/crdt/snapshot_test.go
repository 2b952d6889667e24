package crdt

import "testing"

func TestSnapshotRoundTrip(t *testing.T) {
	doc := NewStorageDocument()
	profile := NewLiveObject()
	tags := NewLiveMap()
	todos := NewLiveList()
	doc.Mutate(func(root *LiveObject) {
		root.Set("profile", profile)
		root.Set("tags", tags)
		root.Set("todos", todos)
	})
	doc.Mutate(func(root *LiveObject) {
		profile.Set("name", "alice")
		tags.Set("color", "blue")
		todos.InsertAt(0, "buy milk")
	})

	snap := doc.Serialize()
	restored := NewStorageDocumentFromSnapshot(snap)

	got, ok := restored.Root().Get("profile")
	if !ok {
		t.Fatal("restored root missing profile")
	}
	restoredProfile, ok := got.(*LiveObject)
	if !ok {
		t.Fatalf("profile should rebuild as *LiveObject, got %T", got)
	}
	name, ok := restoredProfile.Get("name")
	if !ok || name != "alice" {
		t.Fatalf("profile.name = %v, %v, want alice, true", name, ok)
	}

	got, ok = restored.Root().Get("todos")
	if !ok {
		t.Fatal("restored root missing todos")
	}
	restoredTodos, ok := got.(*LiveList)
	if !ok {
		t.Fatalf("todos should rebuild as *LiveList, got %T", got)
	}
	if vals := restoredTodos.Values(); len(vals) != 1 || vals[0] != "buy milk" {
		t.Fatalf("todos.Values() = %v, want [buy milk]", vals)
	}
}

func TestSnapshotRestoresClockPastHighWaterMark(t *testing.T) {
	doc := NewStorageDocument()
	doc.Mutate(func(root *LiveObject) {
		root.Set("a", 1)
		root.Set("b", 2)
	})
	before := doc.Clock()

	snap := doc.Serialize()
	restored := NewStorageDocumentFromSnapshot(snap)

	if restored.Clock() < before {
		t.Fatalf("restored clock %d should be at least %d", restored.Clock(), before)
	}

	restored.Mutate(func(root *LiveObject) {
		root.Set("c", 3)
	})
	v, ok := restored.Root().Get("c")
	if !ok || v != 3 {
		t.Fatalf("Get(c) = %v, %v, want 3, true", v, ok)
	}
}

func TestApplySnapshotPreservesRootIdentity(t *testing.T) {
	doc := NewStorageDocument()
	root := doc.Root()
	doc.Mutate(func(root *LiveObject) {
		root.Set("x", 1)
	})

	other := NewStorageDocument()
	other.Mutate(func(root *LiveObject) {
		root.Set("y", 2)
	})

	doc.ApplySnapshot(other.Serialize())

	if doc.Root() != root {
		t.Fatal("ApplySnapshot must rehydrate the existing root in place, not swap it for a new one")
	}
	if _, ok := root.Get("y"); !ok {
		t.Fatal("root should now reflect the snapshot's fields")
	}
	if _, ok := root.Get("x"); ok {
		t.Fatal("root's prior fields should be replaced, not merged")
	}
}
