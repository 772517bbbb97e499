// Package cursor implements the opaque, totally ordered position tokens that
// mark how far a replica has synchronized.
//
// Cursors minted by this package are UTC timestamps in a fixed-width RFC 3339
// layout with nine fractional digits, so their byte order equals their time
// order. Any other string ("c0", "local-bootstrap", "") is a foreign cursor
// and sorts below every minted one.
package cursor

import (
	"strings"
	"time"
)

// Layout is the textual form of minted cursors.
const Layout = "2006-01-02T15:04:05.000000000Z07:00"

// Order compares two cursors. Compare returns -1, 0 or +1.
type Order interface {
	Compare(a, b string) int
}

// TimeOrder orders cursors in [Layout]; foreign cursors compare equal to each
// other and below every minted cursor.
type TimeOrder struct{}

// Compare implements [Order].
func (TimeOrder) Compare(a, b string) int {
	ta, okA := Parse(a)
	tb, okB := Parse(b)

	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}

	return ta.Compare(tb)
}

// Parse returns the instant encoded by c. ok is false for foreign cursors.
func Parse(c string) (t time.Time, ok bool) {
	if len(c) != len(Layout)-len("Z07:00")+1 || !strings.HasSuffix(c, "Z") {
		return time.Time{}, false
	}

	t, err := time.Parse(Layout, c)
	if err != nil {
		return time.Time{}, false
	}

	return t.UTC(), true
}

// Format renders t as a cursor.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// IsMinted reports whether c was produced by [Format].
func IsMinted(c string) bool {
	_, ok := Parse(c)
	return ok
}

// AtOrAfter reports whether c is at or after since. A foreign since admits
// every cursor.
func AtOrAfter(c, since string) bool {
	return TimeOrder{}.Compare(c, since) >= 0
}
