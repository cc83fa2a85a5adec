package gallery

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// ImageExts are the file extensions served as pictures.
var ImageExts = []string{".jpg", ".jpeg", ".png"}

func isPicture(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range ImageExts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// readDir reads the entries of dir; a missing dir has no entries.
func readDir(dir string) (godirwalk.Dirents, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return godirwalk.ReadDirents(dir, nil)
}

// listPictures returns the pictures in dir, relative to it and sorted by name.
// With recurse, a directory holding no pictures is searched through its subdirectories.
func listPictures(dir string, recurse bool) ([]string, error) {
	des, err := readDir(dir)
	if err != nil {
		return nil, err
	}

	ps := []string{}
	subdirs := []string{}
	for _, de := range des {
		if hidden(de.Name()) {
			continue
		}
		if de.IsDir() {
			subdirs = append(subdirs, de.Name())
			continue
		}
		if isPicture(de.Name()) {
			ps = append(ps, de.Name())
		}
	}

	if len(ps) == 0 && recurse {
		for _, sd := range subdirs {
			sps, err := listPictures(filepath.Join(dir, sd), true)
			if err != nil {
				klog.Warningf("skipping %s: %v", sd, err)
				continue
			}
			for _, p := range sps {
				ps = append(ps, path.Join(sd, p))
			}
		}
	}

	slices.Sort(ps)
	return ps, nil
}

// listDirs returns the visible subdirectories of dir, sorted by name.
func listDirs(dir string) ([]string, error) {
	des, err := readDir(dir)
	if err != nil {
		return nil, err
	}

	ds := []string{}
	for _, de := range des {
		if de.IsDir() && !hidden(de.Name()) {
			ds = append(ds, de.Name())
		}
	}
	slices.Sort(ds)
	return ds, nil
}

func hasSubdirs(dir string) (bool, error) {
	ds, err := listDirs(dir)
	return len(ds) > 0, err
}

// walkDirs calls fn for root and every visible directory below it.
func walkDirs(root string, fn func(dir string) error) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(p string, de *godirwalk.Dirent) error {
			if p != root && hidden(de.Name()) {
				return godirwalk.SkipThis
			}
			if !de.IsDir() {
				return nil
			}
			return fn(p)
		},
	})
}
