package gallery

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"

	"github.com/tstromberg/ramme/pkg/exif"
)

// exifKeys maps exiftool tag names to the metadata keys served to viewers.
var exifKeys = map[string]string{
	"ExifVersion":             "Exif.Photo.ExifVersion",
	"Make":                    "Exif.Image.Make",
	"Model":                   "Exif.Image.Model",
	"DateTimeOriginal":        exif.DateTimeOriginal,
	"ExposureTime":            "Exif.Photo.ExposureTime",
	"ShutterSpeedValue":       "Exif.Photo.ShutterSpeedValue",
	"FNumber":                 "Exif.Photo.FNumber",
	"ApertureValue":           "Exif.Photo.ApertureValue",
	"ExposureCompensation":    "Exif.Photo.ExposureBiasValue",
	"Flash":                   "Exif.Photo.Flash",
	"FocalLength":             "Exif.Photo.FocalLength",
	"FocalLengthIn35mmFormat": "Exif.Photo.FocalLengthIn35mmFilm",
	"SubjectDistance":         "Exif.Photo.SubjectDistance",
	"ISO":                     "Exif.Photo.ISOSpeedRatings",
	"ExposureProgram":         "Exif.Photo.ExposureProgram",
	"MeteringMode":            "Exif.Photo.MeteringMode",
	"ImageWidth":              "Exif.Image.ImageWidth",
	"ExifImageWidth":          "Exif.Photo.PixelXDimension",
	"ImageHeight":             "Exif.Image.ImageLength",
	"ExifImageHeight":         "Exif.Photo.PixelYDimension",
	"Copyright":               "Exif.Image.Copyright",
	"UserComment":             "Exif.Photo.UserComment",
	"GPSAltitudeRef":          "Exif.GPSInfo.GPSAltitudeRef",
	"GPSAltitude":             "Exif.GPSInfo.GPSAltitude",
}

var gpsKeys = []struct {
	tag    string
	key    string
	refKey string
}{
	{tag: "GPSLatitude", key: exif.GPSLatitude, refKey: exif.GPSLatitudeRef},
	{tag: "GPSLongitude", key: exif.GPSLongitude, refKey: exif.GPSLongitudeRef},
}

// dmsRe matches exiftool's default coordinate rendering: 40 deg 26' 46.30" N
var dmsRe = regexp.MustCompile(`^(\d+(?:\.\d+)?) deg (\d+(?:\.\d+)?)' (\d+(?:\.\d+)?)"(?: ([NSEW]))?$`)

// ExifTool reads metadata with an exiftool subprocess.
type ExifTool struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

// NewExifTool starts exiftool.
func NewExifTool() (*ExifTool, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &ExifTool{et: et}, nil
}

// Metadata returns the metadata of the picture at path.
func (e *ExifTool) Metadata(path string) (map[string]string, error) {
	e.mu.Lock()
	fis := e.et.ExtractMetadata(path)
	e.mu.Unlock()

	if len(fis) == 0 {
		return nil, fmt.Errorf("extract %q: no result", path)
	}
	fi := fis[0]
	if fi.Err != nil {
		return nil, fmt.Errorf("extract fail for %q: %w", path, fi.Err)
	}

	for k, v := range fi.Fields {
		klog.V(3).Infof("%q=%v", k, v)
	}
	return convertFields(fi.Fields), nil
}

// Close stops exiftool.
func (e *ExifTool) Close() error {
	return e.et.Close()
}

// convertFields turns exiftool fields into metadata keyed the way viewers
// expect, with GPS coordinates as degree/minute/second rationals.
func convertFields(fields map[string]interface{}) map[string]string {
	md := map[string]string{}
	for tag, key := range exifKeys {
		if v, ok := fields[tag]; ok && v != nil {
			md[key] = fmt.Sprint(v)
		}
	}

	for _, g := range gpsKeys {
		raw, ok := fields[g.tag].(string)
		if !ok {
			continue
		}

		dms, ref, err := parseDMS(raw)
		if err != nil {
			klog.V(1).Infof("%s: %v", g.tag, err)
			continue
		}
		if ref == "" {
			ref = refLetter(fields[g.tag+"Ref"])
		}

		md[g.key] = dms
		if ref != "" {
			md[g.refKey] = ref
		}
	}

	return md
}

// parseDMS converts `40 deg 26' 46.30" N` into "40/1 26/1 4630/100" and "N".
func parseDMS(s string) (string, string, error) {
	m := dmsRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", fmt.Errorf("unrecognized coordinate %q", s)
	}

	var sec float64
	if _, err := fmt.Sscan(m[3], &sec); err != nil {
		return "", "", fmt.Errorf("seconds %q: %w", m[3], err)
	}

	return fmt.Sprintf("%s/1 %s/1 %d/100", m[1], m[2], int64(math.Round(sec*100))), m[4], nil
}

// refLetter reduces a hemisphere reference such as "North" to its letter.
func refLetter(v interface{}) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return ""
	}
	switch l := strings.ToUpper(s[:1]); l {
	case "N", "S", "E", "W":
		return l
	}
	return ""
}
