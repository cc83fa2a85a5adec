// Package exif turns raw EXIF key/value metadata into typed dates and coordinates.
package exif

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Metadata keys, as emitted by the gallery server.
const (
	DateTimeOriginal = "Exif.Photo.DateTimeOriginal"
	GPSLatitude      = "Exif.GPSInfo.GPSLatitude"
	GPSLatitudeRef   = "Exif.GPSInfo.GPSLatitudeRef"
	GPSLongitude     = "Exif.GPSInfo.GPSLongitude"
	GPSLongitudeRef  = "Exif.GPSInfo.GPSLongitudeRef"
)

var (
	ErrMissing     = errors.New("missing")
	ErrNotString   = errors.New("not a string")
	ErrDateLength  = errors.New("invalid length")
	ErrInvalidDate = errors.New("invalid date")
	ErrRational    = errors.New("invalid rational")
	ErrCoordinate  = errors.New("invalid coordinate")
	ErrReference   = errors.New("invalid reference")
)

// dateLen is len("2013:11:13 11:14:12").
const dateLen = 19

// Coords is a latitude/longitude pair in signed decimal degrees.
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Metadata is raw metadata as supplied upstream: values are strings or arrays.
type Metadata map[string]any

// String returns the string value stored under key.
func (m Metadata) String(key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%s: %w", key, ErrMissing)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: %w (%T)", key, ErrNotString, v)
	}
	return s, nil
}

// Date returns the original capture time, interpreted in loc.
func (m Metadata) Date(loc *time.Location) (time.Time, error) {
	raw, err := m.String(DateTimeOriginal)
	if err != nil {
		return time.Time{}, err
	}
	return ParseDate(raw, loc)
}

// GPS returns the picture coordinates. A latitude or longitude of exactly 0 is
// reported as missing: zero is indistinguishable from "unset" upstream.
func (m Metadata) GPS() (*Coords, error) {
	lat, err := m.coordinate(GPSLatitude, GPSLatitudeRef)
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}
	lon, err := m.coordinate(GPSLongitude, GPSLongitudeRef)
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}
	if lat == 0 || lon == 0 {
		return nil, fmt.Errorf("zero coordinate: %w", ErrMissing)
	}
	return &Coords{Lat: lat, Lon: lon}, nil
}

func (m Metadata) coordinate(key string, refKey string) (float64, error) {
	raw, err := m.String(key)
	if err != nil {
		return 0, err
	}
	v, err := ParseCoordinate(raw)
	if err != nil {
		return 0, err
	}
	// a missing or array-valued reference is just another bad reference
	ref, _ := m.String(refKey)
	return ApplyRef(v, ref)
}

// ParseDate parses an EXIF timestamp of the form "2013:11:13 11:14:12".
// Fields are read by position; the separators are not checked.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if len(raw) != dateLen {
		return time.Time{}, fmt.Errorf("%q: %w", raw, ErrDateLength)
	}
	if loc == nil {
		loc = time.Local
	}

	var f [6]int
	for i, span := range [6][2]int{{0, 4}, {5, 7}, {8, 10}, {11, 13}, {14, 16}, {17, 19}} {
		n, err := strconv.Atoi(raw[span[0]:span[1]])
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("%q: %w", raw, ErrInvalidDate)
		}
		f[i] = n
	}

	year, month, day, hour, minute, sec := f[0], time.Month(f[1]), f[2], f[3], f[4], f[5]

	// time.Date normalizes overflow (month 13, Feb 30, ...); reject instead.
	// The check runs in UTC, which has no DST gaps to shift wall clocks.
	u := time.Date(year, month, day, hour, minute, sec, 0, time.UTC)
	if u.Year() != year || u.Month() != month || u.Day() != day ||
		u.Hour() != hour || u.Minute() != minute || u.Second() != sec {
		return time.Time{}, fmt.Errorf("%q: %w", raw, ErrInvalidDate)
	}

	// Times skipped by a DST change in loc are shifted rather than rejected.
	return time.Date(year, month, day, hour, minute, sec, 0, loc), nil
}

// ParseRational parses an EXIF rational such as "2964/100".
func ParseRational(s string) (float64, error) {
	num, denom, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("%q: %w", s, ErrRational)
	}
	a, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrRational)
	}
	b, err := strconv.ParseFloat(denom, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrRational)
	}

	v := a / b
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q: %w", s, ErrRational)
	}
	return v, nil
}

// ParseCoordinate parses a "deg min sec" triple of rationals into decimal degrees.
func ParseCoordinate(raw string) (float64, error) {
	parts := strings.Split(raw, " ")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%q: %w", raw, ErrCoordinate)
	}

	var dms [3]float64
	for i, p := range parts {
		v, err := ParseRational(p)
		if err != nil {
			return 0, fmt.Errorf("coordinate %q: %w", raw, err)
		}
		dms[i] = v
	}

	return dms[0] + dms[1]/60 + dms[2]/3600, nil
}

// ApplyRef signs a coordinate according to its hemisphere reference.
func ApplyRef(v float64, ref string) (float64, error) {
	switch ref {
	case "N", "E":
		return v, nil
	case "S", "W":
		return -v, nil
	}
	return 0, fmt.Errorf("%q: %w", ref, ErrReference)
}
