package viewer

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/tstromberg/ramme/pkg/album"
	"github.com/tstromberg/ramme/pkg/route"
)

// Session is the navigation state of one viewer. All methods must be called
// from the goroutine running Run.
type Session struct {
	fetcher  Fetcher
	renderer Renderer
	router   *route.Router
	baseURL  string

	location string
	mode     Mode

	// album is the only cached album; it is replaced, never modified.
	album   *album.Album
	pending *request
	results chan result

	// picture being viewed
	shown    *album.Album
	filename string
	back     *route.Route
}

type request struct {
	name   string
	then   func(*album.Album)
	cancel context.CancelFunc
}

type result struct {
	req   *request
	album *album.Album
	err   error
}

// Option configures a Session.
type Option func(*Session)

// WithBaseURL prefixes picture URLs handed to the renderer.
func WithBaseURL(u string) Option {
	return func(s *Session) {
		s.baseURL = strings.TrimSuffix(u, "/")
	}
}

// New returns a session rendering albums from f onto r.
func New(f Fetcher, r Renderer, opts ...Option) *Session {
	s := &Session{
		fetcher:  f,
		renderer: r,
		results:  make(chan result),
	}
	s.router = route.New(route.Table{
		route.Browse: s.action(s.browse),
		route.View:   s.action(s.view),
	})
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run processes events in arrival order until ctx is done or events is
// closed. Once events is closed, Run returns after the outstanding album load,
// if any, has been shown.
func (s *Session) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			s.abandon()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return s.drain(ctx)
			}
			s.Handle(ctx, ev)
		case r := <-s.results:
			s.complete(r)
		}
	}
}

func (s *Session) drain(ctx context.Context) error {
	for s.pending != nil {
		select {
		case <-ctx.Done():
			s.abandon()
			return ctx.Err()
		case r := <-s.results:
			s.complete(r)
		}
	}
	return nil
}

// Handle processes a single event.
func (s *Session) Handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case Hashchange:
		s.navigate(ctx, e.token())
	case KeyPress:
		if s.filename == "" {
			return
		}
		switch e.Code {
		case KeyEscape:
			s.goBack(ctx)
		case KeyLeft:
			s.viewSibling(ctx, -1)
		case KeyRight:
			s.viewSibling(ctx, 1)
		}
	case Swipe:
		if s.filename == "" {
			return
		}
		if e.Direction == SwipeRight {
			s.viewSibling(ctx, -1)
		} else {
			s.viewSibling(ctx, 1)
		}
	case Back:
		s.goBack(ctx)
	default:
		klog.Warningf("unhandled event: %T", ev)
	}
}

// Location returns the token of the current location.
func (s *Session) Location() string {
	return s.location
}

// Route returns the current route, or nil before the first navigation.
func (s *Session) Route() *route.Route {
	return s.router.Route()
}

// Album returns the cached album, if any.
func (s *Session) Album() *album.Album {
	return s.album
}

// Viewing returns the album and filename of the picture being viewed.
func (s *Session) Viewing() (*album.Album, string) {
	return s.shown, s.filename
}

// navigate dispatches token; unrecognized tokens leave the location as it was.
func (s *Session) navigate(ctx context.Context, token string) {
	prev := s.location
	s.location = token
	if !s.router.Dispatch(ctx, token) {
		s.location = prev
	}
}

// action wraps a handler so that every dispatch abandons any outstanding album load.
func (s *Session) action(h route.Handler) route.Handler {
	return func(ctx context.Context, param string, opts route.Options) {
		s.abandon()
		h(ctx, param, opts)
	}
}

// abandon cancels the outstanding album load, if any.
func (s *Session) abandon() {
	if s.pending == nil {
		return
	}
	klog.V(1).Infof("abandoning load of album %q", s.pending.name)
	s.pending.cancel()
	s.pending = nil
}

func (s *Session) setMode(m Mode) {
	if s.mode == m {
		return
	}
	s.mode = m
	s.renderer.SetMode(m)
}

func (s *Session) browse(ctx context.Context, name string, opts route.Options) {
	s.setMode(ModeMain)
	s.shown = nil
	s.filename = ""

	v := BrowseView{Map: opts.Has(route.MapOption)}
	if name == "" {
		s.renderer.Browse(nil, v)
		return
	}

	s.load(ctx, name, func(a *album.Album) {
		s.renderer.Browse(a, v)
	})
}

func (s *Session) view(ctx context.Context, param string, _ route.Options) {
	s.setMode(ModeViewer)

	name, filename := splitPicture(param)
	if filename == "" {
		klog.Warningf("view: no picture in %q", param)
		return
	}
	prev := s.router.Previous()

	s.load(ctx, name, func(a *album.Album) {
		p, ok := a.Picture(filename)
		if !ok {
			s.renderer.Oops(fmt.Sprintf("Cannot find %s in album %s", filename, a.Name))
			return
		}

		s.shown = a
		s.filename = filename
		if prev != nil && prev.Action != route.View {
			s.back = prev
		}
		s.renderer.ShowPicture(a, p, s.baseURL+album.PictureURL(album.Large, a.Name, filename))
	})
}

// load calls then with the named album, fetching it unless it is cached.
func (s *Session) load(ctx context.Context, name string, then func(*album.Album)) {
	if s.album != nil && s.album.Name == name {
		then(s.album)
		return
	}

	lctx, cancel := context.WithCancel(ctx)
	req := &request{name: name, then: then, cancel: cancel}
	s.pending = req
	klog.V(1).Infof("loading album %q", name)

	go func() {
		a, err := s.fetcher.Album(lctx, name)
		select {
		case s.results <- result{req: req, album: a, err: err}:
		case <-lctx.Done():
		}
	}()
}

func (s *Session) complete(r result) {
	if r.req != s.pending {
		klog.V(1).Infof("discarding stale result for album %q", r.req.name)
		return
	}
	s.pending = nil
	r.req.cancel()

	if r.err != nil {
		klog.Errorf("load album %q: %v", r.req.name, r.err)
		s.renderer.Oops(fmt.Sprintf("Cannot load album %s: %v", r.req.name, r.err))
		return
	}

	s.album = r.album
	r.req.then(r.album)
}

func (s *Session) viewSibling(ctx context.Context, direction int) {
	if s.shown == nil {
		return
	}

	p, err := s.shown.Sibling(s.filename, direction)
	if err != nil {
		klog.Errorf("sibling: %v", err)
		return
	}

	s.navigate(ctx, route.Encode(route.Route{
		Action: route.View,
		Param:  joinPicture(s.shown.Name, p.Path),
	}))
}

func (s *Session) goBack(ctx context.Context) {
	if s.shown == nil {
		s.navigate(ctx, "")
		return
	}

	if s.back != nil {
		tok := route.Encode(*s.back)
		s.back = nil
		s.navigate(ctx, tok)
		return
	}

	s.navigate(ctx, route.Encode(route.Route{Action: route.Browse, Param: s.shown.Name}))
}

// splitPicture splits a view param into album name and filename at the last '/'.
func splitPicture(param string) (string, string) {
	i := strings.LastIndexByte(param, '/')
	if i < 0 {
		return "", param
	}
	return param[:i], param[i+1:]
}

func joinPicture(name string, path string) string {
	if name == "" {
		return path
	}
	return name + "/" + path
}
