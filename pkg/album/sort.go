package album

import (
	"slices"
	"strings"
)

// Sort puts pictures in canonical order: dated pictures first by capture time,
// then undated pictures by path. Pictures taken at the same instant are ordered
// by path.
func Sort(pics []*Picture) {
	slices.SortFunc(pics, compare)
}

func compare(a, b *Picture) int {
	switch {
	case !a.HasDate() && !b.HasDate():
		return strings.Compare(a.Path, b.Path)
	case !b.HasDate():
		return -1
	case !a.HasDate():
		return 1
	}

	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}
