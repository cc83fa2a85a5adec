// rammenav browses a ramme gallery from the terminal. Each line read from
// stdin is a navigation event:
//
//	#token, go token     follow a location token
//	left, right, esc     arrow and escape keys
//	swipe left|right     swipe gestures
//	back                 leave the picture being viewed
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/tstromberg/ramme/pkg/album"
	"github.com/tstromberg/ramme/pkg/config"
	"github.com/tstromberg/ramme/pkg/viewer"
)

var (
	serverURL  = flag.String("server", "", "base URL of the gallery server")
	configPath = flag.String("config", "", "additional TOML config file")
	tz         = flag.String("tz", "", "timezone picture dates are interpreted in (default local)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		klog.Exitf("config: %v", err)
	}
	vc := cfg.Viewer
	if *serverURL != "" {
		vc.Server = *serverURL
	}
	if *tz != "" {
		vc.Timezone = *tz
	}

	if vc.Server == "" {
		vc.Server = "http://" + config.DefaultAddr
	}
	loc, err := vc.Location()
	if err != nil {
		klog.Exitf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := viewer.NewClient(vc.Server, loc)
	r := &textRenderer{w: os.Stdout, index: c, now: time.Now}
	s := viewer.New(c, r, viewer.WithBaseURL(vc.Server))

	events := make(chan viewer.Event)
	go readEvents(ctx, os.Stdin, events)

	// start at the gallery root
	s.Handle(ctx, viewer.Hashchange{})

	if err := s.Run(ctx, events); err != nil && ctx.Err() == nil {
		klog.Exitf("run: %v", err)
	}
}

// readEvents sends an event per recognized line of in, closing events at EOF.
func readEvents(ctx context.Context, in io.Reader, events chan<- viewer.Event) {
	defer close(events)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		ev, err := parseLine(sc.Text())
		if err != nil {
			klog.Warningf("%v", err)
			continue
		}
		if ev == nil {
			continue
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil {
		klog.Errorf("read: %v", err)
	}
}

// parseLine turns a line of input into an event; blank lines yield nil.
func parseLine(line string) (viewer.Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	if strings.HasPrefix(line, "#") {
		return viewer.Hashchange{Token: line}, nil
	}

	f := strings.Fields(line)
	switch strings.ToLower(f[0]) {
	case "go":
		tok := ""
		if len(f) > 1 {
			tok = strings.TrimSpace(strings.TrimPrefix(line, f[0]))
		}
		return viewer.Hashchange{Token: tok}, nil
	case "left":
		return viewer.KeyPress{Code: viewer.KeyLeft}, nil
	case "right":
		return viewer.KeyPress{Code: viewer.KeyRight}, nil
	case "esc", "escape":
		return viewer.KeyPress{Code: viewer.KeyEscape}, nil
	case "back", "quit":
		return viewer.Back{}, nil
	case "swipe":
		if len(f) == 2 {
			switch strings.ToLower(f[1]) {
			case "left":
				return viewer.Swipe{Direction: viewer.SwipeLeft}, nil
			case "right":
				return viewer.Swipe{Direction: viewer.SwipeRight}, nil
			}
		}
	}
	return nil, fmt.Errorf("unrecognized input: %q", line)
}

type indexer interface {
	Index(ctx context.Context, name string) ([]album.Info, error)
}

// textRenderer prints what the session shows.
type textRenderer struct {
	w     io.Writer
	index indexer
	now   func() time.Time
}

func (t *textRenderer) SetMode(m viewer.Mode) {
	klog.V(1).Infof("mode: %s", m)
}

func (t *textRenderer) Browse(a *album.Album, v viewer.BrowseView) {
	name := ""
	if a != nil {
		name = a.Name
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	subs, err := t.index.Index(ctx, name)
	if err != nil {
		klog.Errorf("index %q: %v", name, err)
	}

	if a == nil {
		fmt.Fprintln(t.w, "== albums ==")
	} else {
		fmt.Fprintf(t.w, "== %s (%d pictures) ==\n", a.Title(), len(a.Pictures))
	}
	for _, s := range subs {
		fmt.Fprintf(t.w, "  [%s]\n", s.Name)
	}
	if a == nil {
		return
	}

	for _, p := range a.Pictures {
		if v.Map {
			if p.GPS == nil {
				continue
			}
			fmt.Fprintf(t.w, "  %s @ %.5f,%.5f\n", p.Path, p.GPS.Lat, p.GPS.Lon)
			continue
		}
		fmt.Fprintf(t.w, "  %s%s\n", p.Path, t.when(p))
	}
}

func (t *textRenderer) ShowPicture(a *album.Album, p *album.Picture, url string) {
	fmt.Fprintf(t.w, "-> %s/%s%s\n   %s\n", a.Title(), p.Path, t.when(p), url)
}

func (t *textRenderer) Oops(msg string) {
	fmt.Fprintf(t.w, "!! %s\n", msg)
}

func (t *textRenderer) when(p *album.Picture) string {
	if !p.HasDate() {
		return ""
	}
	return fmt.Sprintf(" (%s, %s)", p.Date.Format("2006-01-02 15:04"), humanize.RelTime(p.Date, t.now(), "ago", "from now"))
}
