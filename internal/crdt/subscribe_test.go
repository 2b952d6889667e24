package crdt

import "testing"

func TestSubscribeShallowOnlyFiresOwnMutation(t *testing.T) {
	doc := NewStorageDocument()
	child := NewLiveObject()
	doc.Mutate(func(root *LiveObject) { root.Set("child", child) })

	rootFired := 0
	unsub := doc.Subscribe(false, func(path []string) { rootFired++ })
	defer unsub()

	doc.Mutate(func(root *LiveObject) { child.Set("x", 1) })
	if rootFired != 0 {
		t.Fatalf("shallow root subscriber fired %d times for a child mutation, want 0", rootFired)
	}

	doc.Mutate(func(root *LiveObject) { root.Set("y", 2) })
	if rootFired != 1 {
		t.Fatalf("shallow root subscriber fired %d times for its own mutation, want 1", rootFired)
	}
}

func TestSubscribeDeepFiresForDescendantMutation(t *testing.T) {
	doc := NewStorageDocument()
	child := NewLiveObject()
	doc.Mutate(func(root *LiveObject) { root.Set("child", child) })

	deepFired := 0
	unsub := doc.Subscribe(true, func(path []string) { deepFired++ })
	defer unsub()

	doc.Mutate(func(root *LiveObject) { child.Set("x", 1) })
	if deepFired != 1 {
		t.Fatalf("deep root subscriber fired %d times for a descendant mutation, want 1", deepFired)
	}
}

func TestUnsubscribeStopsFurtherNotifications(t *testing.T) {
	doc := NewStorageDocument()
	fired := 0
	unsub := doc.Subscribe(true, func(path []string) { fired++ })
	doc.Mutate(func(root *LiveObject) { root.Set("a", 1) })
	unsub()
	doc.Mutate(func(root *LiveObject) { root.Set("b", 2) })
	if fired != 1 {
		t.Fatalf("fired = %d after unsubscribe, want 1", fired)
	}
}
