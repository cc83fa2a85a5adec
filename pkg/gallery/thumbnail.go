package gallery

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"

	"github.com/tstromberg/ramme/pkg/album"
)

// ErrUnknownSize is returned for thumbnail size classes that do not exist.
var ErrUnknownSize = errors.New("unknown thumbnail size")

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 75

// ThumbSizes is the bounding box, in pixels, of each thumbnail size class.
var ThumbSizes = map[album.Size]int{
	album.Small: 200,
	album.Large: 1600,
}

// Thumbnailer maintains a cache of resized pictures.
type Thumbnailer struct {
	root     string
	cacheDir string
	quality  int
}

// NewThumbnailer returns a thumbnailer for pictures below root, cached in cacheDir.
func NewThumbnailer(root string, cacheDir string, quality int) *Thumbnailer {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Thumbnailer{root: root, cacheDir: cacheDir, quality: quality}
}

func cacheKey(rel string, px int) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s/%d", rel, px)))
	return hex.EncodeToString(h[:])
}

// Path returns where the thumbnail of rel is cached.
func (t *Thumbnailer) Path(rel string, size album.Size) (string, error) {
	px, ok := ThumbSizes[size]
	if !ok {
		return "", fmt.Errorf("%q: %w", size, ErrUnknownSize)
	}
	return filepath.Join(t.cacheDir, cacheKey(rel, px)+".jpg"), nil
}

// Thumbnail returns the path of the thumbnail of rel, creating it when it is
// missing or older than the picture.
func (t *Thumbnailer) Thumbnail(rel string, size album.Size) (string, error) {
	dest, err := t.Path(rel, size)
	if err != nil {
		return "", err
	}
	src := filepath.Join(t.root, filepath.FromSlash(rel))

	sst, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat: %w", err)
	}

	dst, err := os.Stat(dest)
	if err == nil && !sst.ModTime().After(dst.ModTime()) && dst.Size() > 0 {
		klog.V(2).Infof("%s is up to date", dest)
		return dest, nil
	}

	if err := os.MkdirAll(t.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	if err := t.create(src, dest, ThumbSizes[size]); err != nil {
		return "", fmt.Errorf("create thumb for %s: %w", rel, err)
	}
	return dest, nil
}

// create writes a thumbnail of src that fits in a px box. The result is
// renamed into place so that readers never see a partial file.
func (t *Thumbnailer) create(src string, dest string, px int) error {
	img, err := imgio.Open(src)
	if err != nil {
		return fmt.Errorf("imgio.Open: %w", err)
	}

	tmp, err := os.CreateTemp(t.cacheDir, ".thumb-*")
	if err != nil {
		return fmt.Errorf("temp: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	b := img.Bounds()
	if fits(b, px) && isJPEG(src) {
		klog.V(1).Infof("copying %s: %dx%d fits in %d", src, b.Dx(), b.Dy(), px)
		if err := copy.Copy(src, tmpPath); err != nil {
			return fmt.Errorf("copy: %w", err)
		}
	} else if err := createThumb(img, tmpPath, px, t.quality); err != nil {
		return err
	}

	return os.Rename(tmpPath, dest)
}

func createThumb(i image.Image, path string, px int, quality int) error {
	x, y := scale(i.Bounds(), px)
	klog.Infof("creating %dx%d thumb: %s - %+v", x, y, path, i.Bounds())

	if x == 0 || y == 0 {
		return fmt.Errorf("empty image: %+v", i.Bounds())
	}

	rimg := transform.Resize(i, x, y, transform.Lanczos)
	if err := imgio.Save(path, rimg, imgio.JPEGEncoder(quality)); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// scale returns the dimensions of b shrunk to fit a px box, keeping the aspect ratio.
func scale(b image.Rectangle, px int) (int, int) {
	w, h := b.Dx(), b.Dy()
	if fits(b, px) || w == 0 || h == 0 {
		return w, h
	}
	if w >= h {
		return px, max(1, h*px/w)
	}
	return max(1, w*px/h), px
}

func fits(b image.Rectangle, px int) bool {
	return b.Dx() <= px && b.Dy() <= px
}

func isJPEG(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".jpeg"
}

// Forget removes every cached thumbnail of rel.
func (t *Thumbnailer) Forget(rel string) {
	for size := range ThumbSizes {
		p, err := t.Path(rel, size)
		if err != nil {
			continue
		}
		if err := os.Remove(p); err == nil {
			klog.V(1).Infof("removed %s thumbnail of %s", size, rel)
		} else if !errors.Is(err, os.ErrNotExist) {
			klog.Warningf("unable to remove %s: %v", p, err)
		}
	}
}
