// Package natsort compares strings the way humans read them: runs of digits
// are compared by numeric value, so "Student 2" orders before "Student 10".
package natsort

import "strings"

// Less reports whether a orders before b under case-insensitive,
// numeric-aware comparison.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Compare returns -1, 0 or 1 ordering a relative to b.
func Compare(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			na, ni := readNumber(a, i)
			nb, nj := readNumber(b, j)
			if c := compareNumber(na, nb); c != 0 {
				return c
			}
			i, j = ni, nj
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}

	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	default:
		return 0
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// readNumber returns the digit run starting at i, leading zeros stripped,
// and the index just past it.
func readNumber(s string, i int) (string, int) {
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	num := strings.TrimLeft(s[start:i], "0")
	if num == "" {
		num = "0"
	}
	return num, i
}

// compareNumber compares two non-negative integers given as plain digit
// strings without leading zeros. Length decides first, then lexicographic.
func compareNumber(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
