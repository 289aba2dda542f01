package space

import (
	"strings"

	"github.com/maruel/natural"
)

// NaturalCompare compares a and b case-insensitively with runs of digits
// compared as integers, so "Desk 9" sorts before "Desk 10".
func NaturalCompare(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}

// NaturalLess reports whether a sorts before b in natural order.
func NaturalLess(a, b string) bool {
	return NaturalCompare(a, b) < 0
}
