package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tstromberg/ramme/pkg/config"
	"github.com/tstromberg/ramme/pkg/gallery"
)

var (
	rootDir    = flag.String("root", "", "Location of the album directory tree")
	cacheDir   = flag.String("cache", "", "Location of the thumbnail cache")
	addr       = flag.String("addr", "", "host:port to bind to (default "+config.DefaultAddr+")")
	watchFlag  = flag.Bool("watch", false, "watch the album tree and drop stale metadata and thumbnails")
	configPath = flag.String("config", "", "additional TOML config file")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		klog.Exitf("config: %v", err)
	}
	sc := cfg.Server

	// flags override config files
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			sc.Root = *rootDir
		case "cache":
			sc.CacheDir = *cacheDir
		case "addr":
			sc.Addr = *addr
		case "watch":
			sc.Watch = *watchFlag
		}
	})

	if sc.Root == "" {
		klog.Exitf("--root is a required flag")
	}

	et, err := gallery.NewExifTool()
	if err != nil {
		klog.Exitf("exiftool: %v", err)
	}
	defer et.Close()

	md := gallery.NewCache(et)
	g := gallery.New(&gallery.Config{
		Root:     sc.Root,
		CacheDir: sc.ThumbnailDir(),
		Quality:  sc.Quality,
	}, md)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)

	if sc.Watch {
		w, err := gallery.NewWatcher(sc.Root, md, g.Thumbnailer())
		if err != nil {
			klog.Exitf("watch: %v", err)
		}
		eg.Go(func() error {
			return w.Run(ctx)
		})
	}

	eg.Go(func() error {
		return serve(ctx, gallery.NewServer(g).Handler(), sc.Addr)
	})

	if err := eg.Wait(); err != nil {
		klog.Errorf("%v", err)
		os.Exit(1)
	}
}

// serve serves h via HTTP until ctx is done
func serve(ctx context.Context, h http.Handler, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			klog.Warningf("shutdown: %v", err)
		}
	}()

	klog.Infof("Listening on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
