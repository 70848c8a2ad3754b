package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/pinchzoom/internal/cache"
	"github.com/recera/pinchzoom/internal/imagestore"
)

type serveOptions struct {
	port      int
	host      string
	imagesDir string
	wasmPath  string
	live      bool
	noWatch   bool
}

func newServeCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an image gallery with zoom widgets",
		Long: `Serves every image below the images directory as a zoomable widget.
Thumbnails are generated on demand and cached; the directory is watched and
changed images are picked up without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from config, 8080)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from config, localhost)")
	cmd.Flags().StringVarP(&opts.imagesDir, "images", "i", "", "Image directory (default from config, ./images)")
	cmd.Flags().StringVar(&opts.wasmPath, "wasm", "public/client.wasm", "Path to the compiled WASM client")
	cmd.Flags().BoolVar(&opts.live, "live", false, "Drive widgets from server-side zoom sessions")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not watch the image directory")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// CLI takes precedence over the config file
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.imagesDir != "" {
		cfg.Server.ImagesDir = opts.imagesDir
	}
	if cmd.Flags().Changed("live") {
		cfg.Server.Live = opts.live
	}

	cacheCfg, err := cfg.Cache.Options()
	if err != nil {
		return err
	}
	thumbCache, err := cache.New(cacheCfg)
	if err != nil {
		log.Printf("⚠️  Failed to initialize thumbnail cache: %v", err)
		// Continue without cache
		thumbCache = nil
	} else {
		defer thumbCache.Close()
	}

	store, err := imagestore.Open(cfg.Server.ImagesDir, thumbCache, cfg.Thumbnails.Options())
	if err != nil {
		return err
	}
	log.Printf("🖼️  Indexed %d images in %s", len(store.List()), store.Dir())

	if !opts.noWatch {
		watcher, err := imagestore.NewWatcher(store, imagestore.DefaultDebounce, func(names []string) {
			log.Printf("🔄 Updated: %v", names)
		})
		if err != nil {
			log.Printf("⚠️  File watching disabled: %v", err)
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	g := newGallery(store, cfg, opts.wasmPath)
	defer g.live.Close()

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           g.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("✨ Gallery running at http://%s\n", addr)
		if cfg.Server.Live {
			log.Println("🔌 Live zoom sessions enabled")
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down gallery...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
