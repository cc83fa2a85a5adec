package album

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a picture is not part of an album.
var ErrNotFound = errors.New("picture not found")

// Sibling returns the picture next to current in canonical order: the
// following one when direction is positive, the preceding one otherwise.
// Navigation wraps around at both ends.
func (a *Album) Sibling(current string, direction int) (*Picture, error) {
	i := a.index(current)
	if i < 0 {
		return nil, fmt.Errorf("%q in album %q: %w", current, a.Name, ErrNotFound)
	}

	step := -1
	if direction > 0 {
		step = 1
	}

	n := len(a.Pictures)
	return a.Pictures[(i+step+n)%n], nil
}
