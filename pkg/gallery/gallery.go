// Package gallery serves albums of pictures from a directory tree.
package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/tstromberg/ramme/pkg/album"
	"github.com/tstromberg/ramme/pkg/exif"
)

var (
	ErrBadName  = errors.New("invalid name")
	ErrNotFound = errors.New("not found")
)

// Config holds configuration for a gallery.
type Config struct {
	Root     string
	CacheDir string
	// Quality is the JPEG quality of generated thumbnails.
	Quality int
}

// MetadataReader reads the EXIF metadata of a picture.
type MetadataReader interface {
	Metadata(path string) (map[string]string, error)
}

// Gallery answers album queries for the pictures below a root directory.
type Gallery struct {
	c      *Config
	md     MetadataReader
	thumbs *Thumbnailer
}

// New returns a gallery reading metadata through md.
func New(c *Config, md MetadataReader) *Gallery {
	return &Gallery{
		c:      c,
		md:     md,
		thumbs: NewThumbnailer(c.Root, c.CacheDir, c.Quality),
	}
}

// Thumbnailer returns the thumbnail cache of the gallery.
func (g *Gallery) Thumbnailer() *Thumbnailer {
	return g.thumbs
}

// Index lists the albums directly below name; "" lists the top-level albums.
func (g *Gallery) Index(name string) ([]album.Info, error) {
	name, dir, err := g.resolve(name)
	if err != nil {
		return nil, err
	}

	subdirs, err := listDirs(dir)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", name, err)
	}

	is := []album.Info{}
	for _, d := range subdirs {
		rel := path.Join(name, d)

		cover, err := g.cover(rel)
		if err != nil {
			klog.Errorf("Cannot lookup cover for album %q: %v", rel, err)
		}

		sub, err := hasSubdirs(filepath.Join(dir, d))
		if err != nil {
			klog.Errorf("Cannot determine if album %q has subdirectories: %v", rel, err)
		}

		is = append(is, album.Info{Name: rel, Cover: cover, HasSubdirs: sub})
	}

	return is, nil
}

// Show returns the pictures of an album along with their metadata.
func (g *Gallery) Show(name string) (*album.Document, error) {
	name, dir, err := g.resolve(name)
	if err != nil {
		return nil, err
	}
	klog.Infof("Loading album %q", name)

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return nil, fmt.Errorf("album %q: %w", name, ErrNotFound)
	}

	ps, err := listPictures(dir, false)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", name, err)
	}

	d := &album.Document{
		Name:     name,
		Pictures: make([]*album.Picture, 0, len(ps)),
	}

	if d.Cover, err = g.cover(name); err != nil {
		klog.Errorf("Cannot lookup cover for album %q: %v", name, err)
	}
	if d.HasSubdirs, err = hasSubdirs(dir); err != nil {
		klog.Errorf("Cannot determine if album %q has subdirectories: %v", name, err)
	}

	for _, p := range ps {
		fp := filepath.Join(dir, filepath.FromSlash(p))
		md, err := g.md.Metadata(fp)
		if err != nil {
			klog.Errorf("Cannot read metadata for file %q: %v", fp, err)
			md = map[string]string{}
		}

		em := make(exif.Metadata, len(md))
		for k, v := range md {
			em[k] = v
		}
		d.Pictures = append(d.Pictures, &album.Picture{Path: p, Metadata: em})
	}

	return d, nil
}

// Thumbnail returns the path of an up-to-date thumbnail for an album-relative picture.
func (g *Gallery) Thumbnail(rel string, size album.Size) (string, error) {
	rel, src, err := g.resolve(rel)
	if err != nil {
		return "", err
	}
	if !isPicture(rel) {
		return "", fmt.Errorf("%q is not a picture: %w", rel, ErrNotFound)
	}
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%q: %w", rel, ErrNotFound)
	}
	return g.thumbs.Thumbnail(rel, size)
}

// cover picks a random picture of the album, looking into subalbums when the
// album has no pictures of its own.
func (g *Gallery) cover(name string) (string, error) {
	ps, err := listPictures(filepath.Join(g.c.Root, filepath.FromSlash(name)), true)
	if err != nil {
		return "", err
	}
	if len(ps) == 0 {
		return "", nil
	}
	return path.Join(name, ps[rand.IntN(len(ps))]), nil
}

// resolve cleans an album-relative name and maps it below the root.
func (g *Gallery) resolve(name string) (string, string, error) {
	n := strings.Trim(name, "/")
	if n == "" {
		return "", g.c.Root, nil
	}
	if !fs.ValidPath(n) {
		return "", "", fmt.Errorf("%q: %w", name, ErrBadName)
	}
	return n, filepath.Join(g.c.Root, filepath.FromSlash(n)), nil
}
