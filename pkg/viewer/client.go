package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/ramme/pkg/album"
)

// Client fetches albums from a gallery server.
type Client struct {
	base string
	loc  *time.Location
	hc   *http.Client
}

// NewClient returns a client for the gallery at base. EXIF dates of fetched
// albums are interpreted in loc.
func NewClient(base string, loc *time.Location) *Client {
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		loc:  loc,
		hc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Album fetches, enriches and orders the named album.
func (c *Client) Album(ctx context.Context, name string) (*album.Album, error) {
	body, err := c.get(ctx, "/albums/"+escapePath(name))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	a, err := album.Decode(body, c.loc)
	if err != nil {
		return nil, fmt.Errorf("album %q: %w", name, err)
	}
	return a, nil
}

// Index fetches the albums directly below name; "" lists the top-level albums.
func (c *Client) Index(ctx context.Context, name string) ([]album.Info, error) {
	body, err := c.get(ctx, "/index/"+escapePath(name))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var is []album.Info
	if err := json.NewDecoder(body).Decode(&is); err != nil {
		return nil, fmt.Errorf("index %q: decode: %w", name, err)
	}
	return is, nil
}

func (c *Client) get(ctx context.Context, path string) (io.ReadCloser, error) {
	u := c.base + path
	klog.V(1).Infof("GET %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: %s", u, resp.Status)
	}
	return resp.Body, nil
}

// escapePath escapes each segment of a slash-separated name.
func escapePath(name string) string {
	segs := strings.Split(name, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
