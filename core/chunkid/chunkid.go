// Package chunkid orders and formats chapter and chunk identifiers.
//
// Identifiers are strings on disk ("01", "12", "00", "back", "title"), so every
// consumer that needs them in reading order goes through Order rather than
// comparing the strings.
package chunkid

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Sentinel chunk identifiers.
const (
	// Front is the chunk holding content before the first verse of a chapter.
	Front = "00"
	// Back is the back-matter chunk.
	Back = "back"
)

// Sort keys for the sentinel buckets.
const (
	// Unknown is the key of any non-numeric identifier other than "back".
	Unknown = -1
	// FrontOrder places "00" after every numbered chunk.
	FrontOrder = math.MaxInt32 - 1
	// BackOrder places "back" last.
	BackOrder = math.MaxInt32
)

// padWidth is the zero-pad width of numeric identifiers below 100.
const padWidth = 2

// Order maps a chunk identifier to its sort key. It never fails: anything
// that is not a recognised sentinel or a number lands in the Unknown bucket.
func Order(id string) int {
	switch {
	case id == Front:
		return FrontOrder
	case strings.EqualFold(id, Back):
		return BackOrder
	}
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return Unknown
	}
	return n
}

// ChapterOrder maps a chapter identifier to its sort key. Unlike Order, "00"
// is chapter zero (front matter) and sorts first among the numbers.
func ChapterOrder(id string) int {
	if strings.EqualFold(id, Back) {
		return BackOrder
	}
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return Unknown
	}
	return n
}

// Less reports whether chunk a sorts before chunk b. Ties on the key fall
// back to the string so the order is total.
func Less(a, b string) bool {
	oa, ob := Order(a), Order(b)
	if oa != ob {
		return oa < ob
	}
	return a < b
}

// Sort sorts chunk identifiers in place.
func Sort(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })
}

// SortChapters sorts chapter identifiers in place.
func SortChapters(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		oi, oj := ChapterOrder(ids[i]), ChapterOrder(ids[j])
		if oi != oj {
			return oi < oj
		}
		return ids[i] < ids[j]
	})
}

// IsNumeric reports whether id is a plain non-negative integer.
func IsNumeric(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FileName returns the on-disk name for a chapter or chunk identifier:
// numeric ids below 100 are zero-padded to two digits, everything else is
// used verbatim.
func FileName(id string) string {
	if !IsNumeric(id) {
		return id
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return id
	}
	return FromInt(n)
}

// FromInt formats a verse or chapter number as an identifier.
func FromInt(n int) string {
	s := strconv.Itoa(n)
	if len(s) < padWidth {
		s = strings.Repeat("0", padWidth-len(s)) + s
	}
	return s
}
