// Package viewer is the navigation state machine of the gallery viewer.
//
// A Session owns the router, the current album and the picture being viewed.
// Every change of location goes through a token dispatch; input events are
// translated into tokens and never mutate viewer state directly.
package viewer

import (
	"context"

	"github.com/tstromberg/ramme/pkg/album"
)

// Mode is the coarse UI layout.
type Mode string

const (
	ModeMain   Mode = "main"
	ModeViewer Mode = "viewer"
)

// BrowseView selects how an album is laid out.
type BrowseView struct {
	Map bool
}

// Renderer displays what the session decides to show.
type Renderer interface {
	SetMode(m Mode)
	// Browse shows an album; a nil album is the root of the gallery.
	Browse(a *album.Album, v BrowseView)
	ShowPicture(a *album.Album, p *album.Picture, url string)
	// Oops shows a visible notice about a resource that failed to load.
	Oops(msg string)
}

// Fetcher loads albums. Returned albums are already enriched and ordered.
type Fetcher interface {
	Album(ctx context.Context, name string) (*album.Album, error)
}
