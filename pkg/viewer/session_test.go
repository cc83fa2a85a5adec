package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tstromberg/ramme/pkg/album"
)

type fakeRenderer struct {
	calls []string
}

func (r *fakeRenderer) SetMode(m Mode) {
	r.calls = append(r.calls, "mode "+string(m))
}

func (r *fakeRenderer) Browse(a *album.Album, v BrowseView) {
	name := "<root>"
	if a != nil {
		name = a.Name
	}
	r.calls = append(r.calls, fmt.Sprintf("browse %s map=%v", name, v.Map))
}

func (r *fakeRenderer) ShowPicture(a *album.Album, p *album.Picture, url string) {
	r.calls = append(r.calls, fmt.Sprintf("show %s %s %s", a.Name, p.Path, url))
}

func (r *fakeRenderer) Oops(msg string) {
	r.calls = append(r.calls, "oops "+msg)
}

func (r *fakeRenderer) take() []string {
	c := r.calls
	r.calls = nil
	return c
}

type fakeFetcher struct {
	mu      sync.Mutex
	albums  map[string]*album.Album
	gates   map[string]chan struct{}
	fetched []string
	// aborted receives the names of fetches canceled while gated
	aborted chan string
}

func (f *fakeFetcher) Album(ctx context.Context, name string) (*album.Album, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, name)
	gate := f.gates[name]
	a, ok := f.albums[name]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			f.aborted <- name
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return a, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func testAlbum(name string, paths ...string) *album.Album {
	d := &album.Document{Name: name}
	for _, p := range paths {
		d.Pictures = append(d.Pictures, &album.Picture{Path: p})
	}
	return album.New(d, time.UTC)
}

func newFetcher(as ...*album.Album) *fakeFetcher {
	f := &fakeFetcher{
		albums:  map[string]*album.Album{},
		gates:   map[string]chan struct{}{},
		aborted: make(chan string, 16),
	}
	for _, a := range as {
		f.albums[a.Name] = a
	}
	return f
}

// settle completes the outstanding album fetch on the calling goroutine,
// discarding stale results that arrive first.
func settle(t *testing.T, s *Session) {
	t.Helper()
	for s.pending != nil {
		select {
		case r := <-s.results:
			s.complete(r)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for album fetch")
		}
	}
}

func waitAborted(t *testing.T, f *fakeFetcher, want string) {
	t.Helper()
	select {
	case got := <-f.aborted:
		if got != want {
			t.Errorf("aborted fetch of %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("fetch of %q was never canceled", want)
	}
}

func check(t *testing.T, r *fakeRenderer, want ...string) {
	t.Helper()
	if diff := cmp.Diff(want, r.take()); diff != "" {
		t.Errorf("renderer calls mismatch (-want +got):\n%s", diff)
	}
}

func TestBrowse(t *testing.T) {
	ctx := context.Background()
	f := newFetcher(testAlbum("2013/trip", "a.jpg"))
	r := &fakeRenderer{}
	s := New(f, r)

	s.Handle(ctx, Hashchange{Token: ""})
	check(t, r, "mode main", "browse <root> map=false")

	s.Handle(ctx, Hashchange{Token: "#browse,map:2013/trip"})
	settle(t, s)
	check(t, r, "browse 2013/trip map=true")

	if s.Location() != "browse,map:2013/trip" {
		t.Errorf("Location() = %q", s.Location())
	}

	// cached: no second fetch
	s.Handle(ctx, Hashchange{Token: "browse:2013/trip"})
	check(t, r, "browse 2013/trip map=false")
	if n := f.count(); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
}

func TestUnknownTokenKeepsState(t *testing.T) {
	ctx := context.Background()
	r := &fakeRenderer{}
	s := New(newFetcher(), r)

	s.Handle(ctx, Hashchange{Token: ""})
	r.take()

	s.Handle(ctx, Hashchange{Token: "#browse,map"})
	r.take()

	s.Handle(ctx, Hashchange{Token: "frobnicate:x"})
	check(t, r)
	if got := s.Route(); got == nil || got.Action != "browse" || !got.Options.Has("map") {
		t.Errorf("Route() = %+v, want browse root with map", got)
	}
	if got := s.Location(); got != "browse,map" {
		t.Errorf("Location() = %q, want browse,map", got)
	}
}

func TestViewAndSiblings(t *testing.T) {
	ctx := context.Background()
	f := newFetcher(testAlbum("trip", "p0.jpg", "p1.jpg", "p2.jpg"))
	r := &fakeRenderer{}
	s := New(f, r, WithBaseURL("http://gallery:8080/"))

	s.Handle(ctx, Hashchange{Token: "view:trip/p2.jpg"})
	settle(t, s)
	check(t, r, "mode viewer", "show trip p2.jpg http://gallery:8080/thumbnails/large/trip/p2.jpg")

	s.Handle(ctx, KeyPress{Code: KeyRight})
	check(t, r, "show trip p0.jpg http://gallery:8080/thumbnails/large/trip/p0.jpg")
	if s.Location() != "view:trip/p0.jpg" {
		t.Errorf("Location() = %q, want view:trip/p0.jpg", s.Location())
	}

	s.Handle(ctx, KeyPress{Code: KeyLeft})
	check(t, r, "show trip p2.jpg http://gallery:8080/thumbnails/large/trip/p2.jpg")

	s.Handle(ctx, Swipe{Direction: SwipeLeft})
	check(t, r, "show trip p0.jpg http://gallery:8080/thumbnails/large/trip/p0.jpg")

	s.Handle(ctx, Swipe{Direction: SwipeRight})
	check(t, r, "show trip p2.jpg http://gallery:8080/thumbnails/large/trip/p2.jpg")

	if n := f.count(); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}

	a, fn := s.Viewing()
	if a == nil || a.Name != "trip" || fn != "p2.jpg" {
		t.Errorf("Viewing() = %v, %q", a, fn)
	}
}

func TestRootAlbumPictures(t *testing.T) {
	ctx := context.Background()
	r := &fakeRenderer{}
	s := New(newFetcher(testAlbum("", "a.jpg", "b.jpg")), r)

	s.Handle(ctx, Hashchange{Token: "view:a.jpg"})
	settle(t, s)
	check(t, r, "mode viewer", "show  a.jpg /thumbnails/large/a.jpg")

	s.Handle(ctx, KeyPress{Code: KeyRight})
	if s.Location() != "view:b.jpg" {
		t.Errorf("Location() = %q, want view:b.jpg", s.Location())
	}
}

func TestKeysIgnoredWhileBrowsing(t *testing.T) {
	ctx := context.Background()
	f := newFetcher(testAlbum("trip", "p0.jpg", "p1.jpg"))
	r := &fakeRenderer{}
	s := New(f, r)

	s.Handle(ctx, Hashchange{Token: "browse:trip"})
	settle(t, s)
	r.take()

	for _, ev := range []Event{KeyPress{Code: KeyRight}, KeyPress{Code: KeyEscape}, Swipe{Direction: SwipeLeft}} {
		s.Handle(ctx, ev)
	}
	check(t, r)
	if s.Location() != "browse:trip" {
		t.Errorf("Location() = %q", s.Location())
	}

	// leaving a picture restores browsing behavior
	s.Handle(ctx, Hashchange{Token: "view:trip/p0.jpg"})
	s.Handle(ctx, Hashchange{Token: "browse:trip"})
	r.take()
	s.Handle(ctx, KeyPress{Code: KeyRight})
	check(t, r)
}

func TestGoBack(t *testing.T) {
	ctx := context.Background()

	t.Run("returns to remembered route", func(t *testing.T) {
		r := &fakeRenderer{}
		s := New(newFetcher(testAlbum("trip", "p0.jpg", "p1.jpg")), r)

		s.Handle(ctx, Hashchange{Token: "browse,map:trip"})
		settle(t, s)
		s.Handle(ctx, Hashchange{Token: "view:trip/p0.jpg"})
		s.Handle(ctx, KeyPress{Code: KeyRight})
		s.Handle(ctx, KeyPress{Code: KeyRight})
		r.take()

		s.Handle(ctx, KeyPress{Code: KeyEscape})
		check(t, r, "mode main", "browse trip map=true")
		if s.Location() != "browse,map:trip" {
			t.Errorf("Location() = %q", s.Location())
		}
	})

	t.Run("falls back to the album", func(t *testing.T) {
		r := &fakeRenderer{}
		s := New(newFetcher(testAlbum("a/b", "p0.jpg")), r)

		s.Handle(ctx, Hashchange{Token: "view:a/b/p0.jpg"})
		settle(t, s)
		r.take()

		s.Handle(ctx, Back{})
		check(t, r, "mode main", "browse a/b map=false")
		if s.Location() != "browse:a/b" {
			t.Errorf("Location() = %q", s.Location())
		}
	})

	t.Run("views reached from views remember nothing", func(t *testing.T) {
		r := &fakeRenderer{}
		s := New(newFetcher(testAlbum("trip", "p0.jpg", "p1.jpg")), r)

		s.Handle(ctx, Hashchange{Token: "view:trip/p0.jpg"})
		settle(t, s)
		s.Handle(ctx, Hashchange{Token: "view:trip/p1.jpg"})
		s.Handle(ctx, Back{})
		if s.Location() != "browse:trip" {
			t.Errorf("Location() = %q, want browse:trip", s.Location())
		}
	})

	t.Run("nothing viewed goes to the root", func(t *testing.T) {
		r := &fakeRenderer{}
		s := New(newFetcher(), r)
		s.Handle(ctx, Back{})
		check(t, r, "mode main", "browse <root> map=false")
		if s.Location() != "" {
			t.Errorf("Location() = %q", s.Location())
		}
	})
}

func TestMissingPicture(t *testing.T) {
	ctx := context.Background()
	r := &fakeRenderer{}
	s := New(newFetcher(testAlbum("trip", "p0.jpg")), r)

	s.Handle(ctx, Hashchange{Token: "view:trip/gone.jpg"})
	settle(t, s)
	check(t, r, "mode viewer", "oops Cannot find gone.jpg in album trip")

	if a, fn := s.Viewing(); a != nil || fn != "" {
		t.Errorf("Viewing() = %v, %q; want nothing", a, fn)
	}
	// no picture shown, so arrows do nothing
	s.Handle(ctx, KeyPress{Code: KeyRight})
	check(t, r)
}

func TestFetchFailure(t *testing.T) {
	ctx := context.Background()
	r := &fakeRenderer{}
	s := New(newFetcher(), r)

	s.Handle(ctx, Hashchange{Token: "browse:nope"})
	settle(t, s)
	check(t, r, "mode main", "oops Cannot load album nope: 404 Not Found")

	if got := s.Route(); got == nil || got.Param != "nope" {
		t.Errorf("Route() = %+v, want the failed route to stay current", got)
	}
	if s.Album() != nil {
		t.Errorf("Album() = %v, want nil", s.Album())
	}
}

func TestStaleFetchDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFetcher(testAlbum("slow", "s.jpg"), testAlbum("fast", "f.jpg"))
	f.gates["slow"] = make(chan struct{})
	r := &fakeRenderer{}
	s := New(f, r)

	s.Handle(ctx, Hashchange{Token: "browse:slow"})
	slow := s.pending
	s.Handle(ctx, Hashchange{Token: "browse:fast"})
	settle(t, s)
	check(t, r, "mode main", "browse fast map=false")
	waitAborted(t, f, "slow")

	// a result for the abandoned load is ignored even if it gets through
	s.complete(result{req: slow, album: testAlbum("slow", "s.jpg")})
	check(t, r)

	if got := s.Album(); got.Name != "fast" {
		t.Errorf("Album() = %q, want fast", got.Name)
	}
}

func TestStaleFetchAfterRoot(t *testing.T) {
	ctx := context.Background()
	f := newFetcher(testAlbum("slow", "s.jpg"))
	f.gates["slow"] = make(chan struct{})
	r := &fakeRenderer{}
	s := New(f, r)

	s.Handle(ctx, Hashchange{Token: "view:slow/s.jpg"})
	s.Handle(ctx, Hashchange{Token: ""})
	waitAborted(t, f, "slow")
	settle(t, s)

	check(t, r, "mode viewer", "mode main", "browse <root> map=false")
	if s.Album() != nil {
		t.Errorf("Album() = %v, want nil", s.Album())
	}
}

type chanRenderer struct {
	fakeRenderer
	out chan string
}

func (r *chanRenderer) Browse(a *album.Album, v BrowseView) {
	r.fakeRenderer.Browse(a, v)
	r.send()
}

func (r *chanRenderer) ShowPicture(a *album.Album, p *album.Picture, url string) {
	r.fakeRenderer.ShowPicture(a, p, url)
	r.send()
}

// send forwards the latest call, dropping mode changes recorded before it.
func (r *chanRenderer) send() {
	c := r.take()
	r.out <- c[len(c)-1]
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &chanRenderer{out: make(chan string, 16)}
	s := New(newFetcher(testAlbum("trip", "p0.jpg", "p1.jpg")), r)

	events := make(chan Event)
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, events) }()

	wait := func(want string) {
		t.Helper()
		select {
		case got := <-r.out:
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	events <- Hashchange{Token: "browse:trip"}
	wait("browse trip map=false")
	events <- Hashchange{Token: "view:trip/p1.jpg"}
	wait("show trip p1.jpg /thumbnails/large/trip/p1.jpg")
	events <- KeyPress{Code: KeyRight}
	wait("show trip p0.jpg /thumbnails/large/trip/p0.jpg")
	events <- KeyPress{Code: KeyEscape}
	wait("browse trip map=false")

	close(events)
	if err := <-errc; err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(newFetcher(), &fakeRenderer{})

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, make(chan Event)) }()
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestRunFinishesLoadAfterClose(t *testing.T) {
	f := newFetcher(testAlbum("slow", "s.jpg"), testAlbum("trip", "a.jpg"))
	f.gates["slow"] = make(chan struct{})
	r := &fakeRenderer{}
	s := New(f, r)

	events := make(chan Event, 2)
	events <- Hashchange{Token: "browse:slow"}
	events <- Hashchange{Token: "browse:trip"}
	close(events)

	if err := s.Run(context.Background(), events); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	check(t, r, "mode main", "browse trip map=false")
	if s.pending != nil {
		t.Errorf("load of %q still pending", s.pending.name)
	}
	waitAborted(t, f, "slow")
}

func TestRunCanceledAbandonsLoad(t *testing.T) {
	f := newFetcher(testAlbum("slow", "s.jpg"))
	f.gates["slow"] = make(chan struct{})
	s := New(f, &fakeRenderer{})

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 1)
	events <- Hashchange{Token: "browse:slow"}
	close(events)

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, events) }()
	waitUntil(t, func() bool { return f.count() == 1 })
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	waitAborted(t, f, "slow")
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out")
		}
		time.Sleep(time.Millisecond)
	}
}
