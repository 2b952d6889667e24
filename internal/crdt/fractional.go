package crdt

// fractionalAlphabet is the ordered digit set used for LiveList positions.
// It is deliberately ASCII-ascending (digits, then uppercase, then
// lowercase) so plain Go string comparison already matches digit order —
// no custom comparator is needed anywhere a position is sorted.
const fractionalAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const fractionalBase = len(fractionalAlphabet)

// fractionalBootstrap is the bootstrap digit used when neither endpoint is
// given; see SPEC_FULL.md's Open Questions for why 'a' (not the numeric
// midpoint of the alphabet) was chosen.
const fractionalBootstrap = "a"

func digitIndex(c byte) int {
	for i := 0; i < fractionalBase; i++ {
		if fractionalAlphabet[i] == c {
			return i
		}
	}
	return 0
}

// generateKeyBetween returns a position string strictly between a and b.
// Either bound may be "" to mean unbounded (no predecessor / no successor).
// It never returns a or b themselves.
func generateKeyBetween(a, b string) string {
	switch {
	case a == "" && b == "":
		return fractionalBootstrap
	case a == "":
		return keyBefore(b)
	case b == "":
		return keyAfter(a)
	default:
		return keyBetween(a, b)
	}
}

// generateNKeysBetween returns n strictly increasing positions, all
// strictly between a and b.
func generateNKeysBetween(a, b string, n int) []string {
	keys := make([]string, 0, n)
	lo := a
	for i := 0; i < n; i++ {
		k := generateKeyBetween(lo, b)
		keys = append(keys, k)
		lo = k
	}
	return keys
}

func keyAfter(a string) string {
	return a + greaterSuffix("", 0)
}

func keyBefore(b string) string {
	i := 0
	for i < len(b) {
		d := digitIndex(b[i])
		if d > 0 {
			return b[:i] + string(fractionalAlphabet[d-1])
		}
		i++
	}
	if len(b) > 1 {
		return b[:len(b)-1]
	}
	// b is a single digit at fractionalAlphabet's minimum (e.g. "0", or an
	// earlier underflow byte): there is no smaller digit to substitute and
	// nothing left to truncate, so descend below the alphabet itself
	// rather than falling back to fractionalBootstrap, which would sort
	// after b and corrupt ordering.
	return string(nextUnderflowDigit(b)) + fractionalBootstrap
}

// nextUnderflowDigit returns a byte strictly below fractionalAlphabet[0]
// and below b's own leading byte (if b already is one of these sentinels),
// so repeated head-inserts keep sorting correctly long after the visible
// alphabet is exhausted. Each underflow buys another full alphabet's
// worth of keyBefore calls via the bootstrap digit appended after it.
func nextUnderflowDigit(b string) byte {
	ceiling := byte(fractionalAlphabet[0])
	if len(b) > 0 && b[0] < ceiling {
		ceiling = b[0]
	}
	if ceiling == 0 {
		ceiling = 1
	}
	return ceiling - 1
}

func keyBetween(a, b string) string {
	var result []byte
	i := 0
	for {
		ac := 0
		if i < len(a) {
			ac = digitIndex(a[i])
		}
		if i >= len(b) {
			return string(result) + greaterSuffix(a, i)
		}
		bc := digitIndex(b[i])
		if ac < bc {
			if bc-ac >= 2 {
				mid := ac + (bc-ac)/2
				return string(result) + string(fractionalAlphabet[mid])
			}
			result = append(result, fractionalAlphabet[ac])
			return string(result) + greaterSuffix(a, i+1)
		}
		result = append(result, fractionalAlphabet[ac])
		i++
	}
}

// greaterSuffix returns a suffix to append after s[:i] so that the combined
// string is strictly greater than s.
func greaterSuffix(s string, i int) string {
	var buf []byte
	for {
		if i >= len(s) {
			mid := fractionalBase / 2
			buf = append(buf, fractionalAlphabet[mid])
			return string(buf)
		}
		d := digitIndex(s[i])
		if d < fractionalBase-1 {
			buf = append(buf, fractionalAlphabet[d+1])
			return string(buf)
		}
		buf = append(buf, fractionalAlphabet[d])
		i++
	}
}
