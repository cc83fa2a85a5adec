package viewer

import "strings"

// Event is a navigation input: Hashchange, KeyPress, Swipe or Back.
type Event interface {
	event()
}

// Hashchange reports a new location token, with or without a leading '#'.
type Hashchange struct {
	Token string
}

// Key is a key code.
type Key int

const (
	KeyEscape Key = 27
	KeyLeft   Key = 37
	KeyRight  Key = 39
)

// KeyPress reports a released key.
type KeyPress struct {
	Code Key
}

// SwipeDirection is the direction a finger moved.
type SwipeDirection int

const (
	SwipeLeft SwipeDirection = iota
	SwipeRight
)

// Swipe reports a swipe gesture over the picture.
type Swipe struct {
	Direction SwipeDirection
}

// Back asks to leave the picture being viewed.
type Back struct{}

func (Hashchange) event() {}
func (KeyPress) event()   {}
func (Swipe) event()      {}
func (Back) event()       {}

func (h Hashchange) token() string {
	return strings.TrimPrefix(h.Token, "#")
}
