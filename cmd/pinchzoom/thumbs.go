package main

import (
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/recera/pinchzoom/internal/cache"
	"github.com/recera/pinchzoom/internal/imagestore"
)

func newThumbsCommand() *cobra.Command {
	var clearFirst bool

	cmd := &cobra.Command{
		Use:   "thumbs [dir]",
		Short: "Pre-generate thumbnails into the cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir := cfg.Server.ImagesDir
			if len(args) == 1 {
				dir = args[0]
			}

			cacheCfg, err := cfg.Cache.Options()
			if err != nil {
				return err
			}
			c, err := cache.New(cacheCfg)
			if err != nil {
				return err
			}
			defer c.Close()

			if clearFirst {
				if err := c.Clear(); err != nil {
					return err
				}
				log.Println("🧹 Cache cleared")
			}

			store, err := imagestore.Open(dir, c, cfg.Thumbnails.Options())
			if err != nil {
				return err
			}

			built, failed := 0, 0
			for _, img := range store.List() {
				if _, err := store.Thumbnail(img.Name); err != nil {
					log.Printf("❌ %s: %v", img.Name, err)
					failed++
					continue
				}
				built++
			}

			stats := c.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d thumbnails ready (%d failed), cache %s in %d entries, %d hits\n",
				built, failed, humanize.Bytes(uint64(stats.TotalSize)), stats.EntryCount, stats.Hits)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearFirst, "clear", false, "Clear the cache first")
	return cmd
}
