package crdt

import "testing"

func TestLiveObjectSetGet(t *testing.T) {
	doc := NewStorageDocument()
	doc.Mutate(func(root *LiveObject) {
		root.Set("name", "alice")
	})
	v, ok := doc.Root().Get("name")
	if !ok || v != "alice" {
		t.Fatalf("Get(name) = %v, %v, want alice, true", v, ok)
	}
}

func TestLiveObjectApplyRemoteClockGuard(t *testing.T) {
	doc := NewStorageDocument()
	doc.root.mu.Lock()
	doc.root.fields["x"] = &objectField{value: "new", clock: 10}
	doc.root.mu.Unlock()

	applied := doc.root.applyRemote(Op{Kind: OpSet, Path: nil, Key: "x", Value: "stale", Clock: 5})
	if applied {
		t.Fatal("applyRemote with a lower clock must be rejected")
	}
	v, _ := doc.root.Get("x")
	if v != "new" {
		t.Fatalf("stale remote op must not overwrite; got %v", v)
	}

	applied = doc.root.applyRemote(Op{Kind: OpSet, Path: nil, Key: "x", Value: "newer", Clock: 11})
	if !applied {
		t.Fatal("applyRemote with a higher clock must be accepted")
	}
	v, _ = doc.root.Get("x")
	if v != "newer" {
		t.Fatalf("Get(x) = %v, want newer", v)
	}
}

func TestLiveObjectDeleteAndUndo(t *testing.T) {
	doc := NewStorageDocument()
	doc.Mutate(func(root *LiveObject) {
		root.Set("name", "alice")
	})
	doc.Mutate(func(root *LiveObject) {
		root.Delete("name")
	})
	if _, ok := doc.Root().Get("name"); ok {
		t.Fatal("name should be deleted")
	}
	if !doc.History().Undo() {
		t.Fatal("Undo should succeed")
	}
	v, ok := doc.Root().Get("name")
	if !ok || v != "alice" {
		t.Fatalf("Undo of Delete should restore alice, got %v, %v", v, ok)
	}
}

func TestLiveObjectNestedAttach(t *testing.T) {
	doc := NewStorageDocument()
	child := NewLiveObject()
	doc.Mutate(func(root *LiveObject) {
		root.Set("profile", child)
	})
	got, ok := doc.Root().Get("profile")
	if !ok {
		t.Fatal("profile should be set")
	}
	obj, ok := got.(*LiveObject)
	if !ok {
		t.Fatalf("profile should be a *LiveObject, got %T", got)
	}
	if want := []string{"profile"}; !stringsEqual(obj.Path(), want) {
		t.Fatalf("Path() = %v, want %v", obj.Path(), want)
	}
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
