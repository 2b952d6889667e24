package crdt

import "testing"

func TestLiveListInsertOrder(t *testing.T) {
	doc := NewStorageDocument()
	list := NewLiveList()
	doc.Mutate(func(root *LiveObject) {
		root.Set("todos", list)
	})
	doc.Mutate(func(root *LiveObject) {
		list.InsertAt(0, "first")
		list.InsertAt(1, "second")
		list.InsertAt(1, "middle")
	})
	got := list.Values()
	want := []string{"first", "middle", "second"}
	if len(got) != len(want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLiveListDeleteTombstonesAndUndo(t *testing.T) {
	doc := NewStorageDocument()
	list := NewLiveList()
	doc.Mutate(func(root *LiveObject) { root.Set("items", list) })
	doc.Mutate(func(root *LiveObject) { list.InsertAt(0, "a") })
	if got := list.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}

	id := list.items[0].id
	doc.Mutate(func(root *LiveObject) { list.Delete(id) })
	if got := list.Len(); got != 0 {
		t.Fatalf("Len() after Delete = %d, want 0", got)
	}

	if !doc.History().Undo() {
		t.Fatal("Undo should succeed")
	}
	if got := list.Len(); got != 1 {
		t.Fatalf("Len() after Undo = %d, want 1", got)
	}
	if got := list.Values()[0]; got != "a" {
		t.Fatalf("Values()[0] after undo = %v, want a", got)
	}
}

func TestLiveListMove(t *testing.T) {
	doc := NewStorageDocument()
	list := NewLiveList()
	doc.Mutate(func(root *LiveObject) { root.Set("items", list) })
	doc.Mutate(func(root *LiveObject) {
		list.InsertAt(0, "a")
		list.InsertAt(1, "b")
		list.InsertAt(2, "c")
	})
	id := list.items[0].id // "a"
	doc.Mutate(func(root *LiveObject) { list.Move(id, 2) })
	got := list.Values()
	want := []string{"b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}
}

func TestLiveListApplyRemoteIdempotent(t *testing.T) {
	doc := NewStorageDocument()
	list := NewLiveList()
	doc.Mutate(func(root *LiveObject) { root.Set("items", list) })

	op := Op{Kind: OpListInsert, ID: "item-1", Position: "m", Value: "hello", Clock: 5}
	if !list.applyRemote(op) {
		t.Fatal("first apply of a remote insert should succeed")
	}
	if list.applyRemote(op) {
		t.Fatal("re-applying the same insert op must be a no-op (same id already present)")
	}
	if got := list.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}
