package crdt

import "testing"

func TestHistoryBatchingUndoesAsOneUnit(t *testing.T) {
	doc := NewStorageDocument()
	doc.Mutate(func(root *LiveObject) {
		root.Set("a", 1)
		root.Set("b", 2)
		root.Set("c", 3)
	})
	if !doc.History().Undo() {
		t.Fatal("Undo should succeed")
	}
	for _, k := range []string{"a", "b", "c"} {
		if _, ok := doc.Root().Get(k); ok {
			t.Fatalf("field %q should have been undone along with the rest of its batch", k)
		}
	}
	if doc.History().CanUndo() {
		t.Fatal("a single three-field Mutate should produce exactly one undo step")
	}
}

func TestHistoryUndoRedoRoundTrip(t *testing.T) {
	doc := NewStorageDocument()
	doc.Mutate(func(root *LiveObject) { root.Set("x", 1) })
	doc.Mutate(func(root *LiveObject) { root.Set("x", 2) })

	doc.History().Undo()
	v, _ := doc.Root().Get("x")
	if v != 1 {
		t.Fatalf("after one Undo, x = %v, want 1", v)
	}

	doc.History().Undo()
	if _, ok := doc.Root().Get("x"); ok {
		t.Fatal("after two Undos, x should not exist")
	}

	doc.History().Redo()
	v, _ = doc.Root().Get("x")
	if v != 1 {
		t.Fatalf("after one Redo, x = %v, want 1", v)
	}

	doc.History().Redo()
	v, _ = doc.Root().Get("x")
	if v != 2 {
		t.Fatalf("after second Redo, x = %v, want 2", v)
	}
	if doc.History().CanRedo() {
		t.Fatal("redo stack should be empty after replaying every step")
	}
}

func TestHistoryFreshEditClearsRedoStack(t *testing.T) {
	doc := NewStorageDocument()
	doc.Mutate(func(root *LiveObject) { root.Set("x", 1) })
	doc.History().Undo()
	if !doc.History().CanRedo() {
		t.Fatal("expected a pending redo after Undo")
	}
	doc.Mutate(func(root *LiveObject) { root.Set("y", 1) })
	if doc.History().CanRedo() {
		t.Fatal("a fresh local edit must invalidate any pending redo")
	}
}

func TestHistoryOnChangeFiresOnPushAndPop(t *testing.T) {
	doc := NewStorageDocument()
	fired := 0
	unsub := doc.History().OnChange(func() { fired++ })
	defer unsub()

	doc.Mutate(func(root *LiveObject) { root.Set("x", 1) })
	if fired != 1 {
		t.Fatalf("fired = %d after one Mutate, want 1", fired)
	}
	doc.History().Undo()
	if fired != 2 {
		t.Fatalf("fired = %d after Undo, want 2", fired)
	}
	doc.History().Redo()
	if fired != 3 {
		t.Fatalf("fired = %d after Redo, want 3", fired)
	}
}

func TestMutateAsServerBypassesHistory(t *testing.T) {
	doc := NewStorageDocument()
	doc.MutateAsServer(func(root *LiveObject) {
		root.Set("serverField", "value")
	})
	if doc.History().CanUndo() {
		t.Fatal("server-originated mutations must not populate the undo stack")
	}
	v, ok := doc.Root().Get("serverField")
	if !ok || v != "value" {
		t.Fatalf("Get(serverField) = %v, %v, want value, true", v, ok)
	}
}
