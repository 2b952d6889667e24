package livestate

import "testing"

func TestStoreSetRejectsStaleTimestamp(t *testing.T) {
	s := NewStore()
	s.Set("color", "blue", 100, "user-1", false)
	entry, accepted := s.Set("color", "red", 50, "user-2", false)
	if accepted {
		t.Fatal("a write with an older timestamp must be rejected")
	}
	if entry.Value != "blue" {
		t.Fatalf("Value = %v, want blue (stale write must not overwrite)", entry.Value)
	}
}

func TestStoreSetAcceptsNewerTimestamp(t *testing.T) {
	s := NewStore()
	s.Set("color", "blue", 100, "user-1", false)
	entry, accepted := s.Set("color", "red", 200, "user-2", false)
	if !accepted {
		t.Fatal("a write with a newer timestamp must be accepted")
	}
	if entry.Value != "red" || entry.UserID != "user-2" {
		t.Fatalf("entry = %+v, want red/user-2", entry)
	}
}

func TestStoreMergeShallowMergesObjects(t *testing.T) {
	s := NewStore()
	s.Set("prefs", map[string]interface{}{"theme": "dark", "fontSize": 12}, 100, "user-1", false)
	entry, accepted := s.Set("prefs", map[string]interface{}{"fontSize": 14}, 200, "user-1", true)
	if !accepted {
		t.Fatal("expected the merge write to be accepted")
	}
	merged, ok := entry.Value.(map[string]interface{})
	if !ok {
		t.Fatalf("Value should still be a map, got %T", entry.Value)
	}
	if merged["theme"] != "dark" {
		t.Fatalf("merge should preserve untouched keys, got %v", merged["theme"])
	}
	if merged["fontSize"] != 14 {
		t.Fatalf("merge should overwrite touched keys, got %v", merged["fontSize"])
	}
}

func TestStoreMergeIgnoredForNonObjectValues(t *testing.T) {
	s := NewStore()
	s.Set("count", 1, 100, "user-1", false)
	entry, accepted := s.Set("count", 2, 200, "user-1", true)
	if !accepted {
		t.Fatal("expected the write to be accepted")
	}
	if entry.Value != 2 {
		t.Fatalf("non-object values should be replaced outright, got %v", entry.Value)
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Set("a", 1, 1, "user-1", false)
	snap := s.Snapshot()
	snap["b"] = Entry{Value: 2, Timestamp: 2, UserID: "user-2"}
	if _, ok := s.Get("b"); ok {
		t.Fatal("mutating a Snapshot map must not affect the store")
	}
}
