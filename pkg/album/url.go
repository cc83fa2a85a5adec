package album

import "strings"

// Size is a thumbnail size class.
type Size string

const (
	Small Size = "small"
	Large Size = "large"
)

// PictureURL returns the request path of a picture thumbnail. parts are joined
// with "/", typically an album name followed by a picture path. Empty parts,
// such as the root album name, are skipped.
func PictureURL(size Size, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return "/thumbnails/" + string(size) + "/" + strings.Join(kept, "/")
}
