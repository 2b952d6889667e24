package crdt

import "testing"

func TestGenerateKeyBetweenBootstrap(t *testing.T) {
	if got := generateKeyBetween("", ""); got != fractionalBootstrap {
		t.Fatalf("generateKeyBetween(\"\", \"\") = %q, want %q", got, fractionalBootstrap)
	}
}

func TestGenerateKeyBetweenOrdering(t *testing.T) {
	a := generateKeyBetween("", "")
	b := generateKeyBetween(a, "")
	if !(a < b) {
		t.Fatalf("key generated after %q should sort after it, got %q", a, b)
	}
	c := generateKeyBetween("", a)
	if !(c < a) {
		t.Fatalf("key generated before %q should sort before it, got %q", a, c)
	}
	mid := generateKeyBetween(c, a)
	if !(c < mid && mid < a) {
		t.Fatalf("generateKeyBetween(%q, %q) = %q, want strictly between", c, a, mid)
	}
}

func TestGenerateNKeysBetweenStrictlyIncreasing(t *testing.T) {
	lo := generateKeyBetween("", "")
	hi := generateKeyBetween(lo, "")
	keys := generateNKeysBetween(lo, hi, 5)
	if len(keys) != 5 {
		t.Fatalf("len(keys) = %d, want 5", len(keys))
	}
	prev := lo
	for i, k := range keys {
		if !(prev < k) {
			t.Fatalf("keys[%d] = %q is not greater than previous %q", i, k, prev)
		}
		if !(k < hi) {
			t.Fatalf("keys[%d] = %q is not less than upper bound %q", i, k, hi)
		}
		prev = k
	}
}

func TestGenerateKeyBetweenNeverReturnsEndpoint(t *testing.T) {
	a := generateKeyBetween("", "")
	b := generateKeyBetween(a, "")
	mid := generateKeyBetween(a, b)
	if mid == a || mid == b {
		t.Fatalf("generateKeyBetween(%q, %q) returned an endpoint: %q", a, b, mid)
	}
}

// TestKeyBeforeSurvivesAlphabetMinimum exercises repeatedly inserting at
// the head of a list until keyBefore runs past the single-digit minimum
// ("0"), the boundary case keyBefore's len(b)<=1 branch used to mishandle
// by falling back to fractionalBootstrap (which sorts after "0", not
// before it).
func TestKeyBeforeSurvivesAlphabetMinimum(t *testing.T) {
	key := fractionalBootstrap
	for i := 0; i < 200; i++ {
		next := keyBefore(key)
		if !(next < key) {
			t.Fatalf("iteration %d: keyBefore(%q) = %q, want strictly less than %q", i, key, next, key)
		}
		key = next
	}
}

func TestKeyBeforeAtMinimumDigit(t *testing.T) {
	got := keyBefore("0")
	if !(got < "0") {
		t.Fatalf("keyBefore(%q) = %q, want strictly less than %q", "0", got, "0")
	}
	if got == fractionalBootstrap {
		t.Fatalf("keyBefore(%q) fell back to bootstrap %q, which does not sort before it", "0", fractionalBootstrap)
	}
}
