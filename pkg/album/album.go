// Package album holds the gallery data model: pictures, their canonical order, and neighbors.
package album

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tstromberg/ramme/pkg/exif"
)

// Picture is a single picture within an album.
type Picture struct {
	Path     string        `json:"path"`
	Metadata exif.Metadata `json:"metadata,omitempty"`

	// Date is the original capture time; zero when unknown. A capture time of
	// exactly 0001-01-01 00:00:00 UTC is indistinguishable from unknown.
	Date time.Time `json:"-"`
	// GPS is nil when the picture carries no usable coordinates.
	GPS *exif.Coords `json:"-"`
}

// HasDate reports whether a capture time was derived for the picture, that
// is whether Date is non-zero.
func (p *Picture) HasDate() bool {
	return !p.Date.IsZero()
}

// Document is an album as exchanged between the gallery server and the viewer.
type Document struct {
	Name       string     `json:"name"`
	Cover      string     `json:"cover,omitempty"`
	HasSubdirs bool       `json:"hasSubdirs"`
	Pictures   []*Picture `json:"pictures"`
}

// Info describes an album within an album index.
type Info struct {
	Name       string `json:"name"`
	Cover      string `json:"cover"`
	HasSubdirs bool   `json:"hasSubdirs"`
}

// Album is an enriched, ordered album. It must not be modified once built.
type Album struct {
	Name       string
	Cover      string
	HasSubdirs bool
	Pictures   []*Picture
}

// New enriches the pictures of d and puts them in canonical order.
// EXIF dates are interpreted in loc.
func New(d *Document, loc *time.Location) *Album {
	pics := make([]*Picture, 0, len(d.Pictures))
	for _, p := range d.Pictures {
		if p == nil {
			continue
		}
		pics = append(pics, p)
	}

	Enrich(pics, loc)
	Sort(pics)

	return &Album{
		Name:       d.Name,
		Cover:      d.Cover,
		HasSubdirs: d.HasSubdirs,
		Pictures:   pics,
	}
}

// Decode reads an album document and builds an Album from it.
func Decode(r io.Reader, loc *time.Location) (*Album, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return New(&d, loc), nil
}

// Title returns the last component of the album name.
func (a *Album) Title() string {
	return a.Name[strings.LastIndexByte(a.Name, '/')+1:]
}

// Picture returns the picture with the given path.
func (a *Album) Picture(path string) (*Picture, bool) {
	i := a.index(path)
	if i < 0 {
		return nil, false
	}
	return a.Pictures[i], true
}

func (a *Album) index(path string) int {
	for i, p := range a.Pictures {
		if p.Path == path {
			return i
		}
	}
	return -1
}
