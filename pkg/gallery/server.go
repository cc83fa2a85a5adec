package gallery

import (
	"encoding/json"
	"errors"
	"net/http"

	"k8s.io/klog/v2"

	"github.com/tstromberg/ramme/pkg/album"
)

// Server exposes a gallery over HTTP.
type Server struct {
	g *Gallery
}

// NewServer creates a new server.
func NewServer(g *Gallery) *Server {
	return &Server{g: g}
}

// Handler routes album, index and thumbnail requests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /albums/{name...}", s.AlbumHandler())
	mux.HandleFunc("GET /index/{name...}", s.IndexHandler())
	mux.HandleFunc("GET /thumbnails/{size}/{path...}", s.ThumbnailHandler())
	return mux
}

// AlbumHandler serves an album with the metadata of its pictures.
func (s *Server) AlbumHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.g.Show(r.PathValue("name"))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, d)
	}
}

// IndexHandler serves the albums below an album.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		klog.Infof("Navigating album %q", name)

		is, err := s.g.Index(name)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, is)
	}
}

// ThumbnailHandler serves a picture thumbnail.
func (s *Server) ThumbnailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.g.Thumbnail(r.PathValue("path"), album.Size(r.PathValue("size")))
		if err != nil {
			fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, p)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("encode response: %v", err)
	}
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrBadName):
		code = http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownSize):
		code = http.StatusNotFound
	}

	if code == http.StatusInternalServerError {
		klog.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		klog.V(1).Infof("%s %s: %v", r.Method, r.URL.Path, err)
	}
	http.Error(w, err.Error(), code)
}
