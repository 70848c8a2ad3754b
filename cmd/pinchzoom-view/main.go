// Command pinchzoom-view opens an image in a window with drag, wheel,
// double-click and touch zoom.
package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recera/pinchzoom/internal/desktop"
	"github.com/recera/pinchzoom/internal/imagestore"
	"github.com/recera/pinchzoom/pkg/zoom"
)

func main() {
	var width int
	var step float64
	var status bool

	cmd := &cobra.Command{
		Use:   "pinchzoom-view <image>",
		Short: "Zoom into an image in a desktop window",
		Long: `Opens the image stretched to the window. Drag to pan, scroll to zoom
around the cursor, double-click to toggle full resolution, R to reset.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := imagestore.DescribeFile(args[0])
			if err != nil {
				return err
			}
			src, err := decode(info.Path)
			if err != nil {
				return err
			}

			game := desktop.NewGame(desktop.Config{
				Title:      "pinchzoom - " + filepath.Base(info.Path),
				Viewport:   fitWidth(info.Metrics, width),
				ScaleStep:  step,
				ShowStatus: status,
			}, src)
			return game.Run()
		},
	}

	cmd.Flags().IntVarP(&width, "width", "w", 800, "Window width; the height follows the image aspect ratio")
	cmd.Flags().Float64Var(&step, "step", zoom.DefaultScaleStep, "Scale change per wheel notch")
	cmd.Flags().BoolVar(&status, "status", true, "Show the transform in the corner")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// fitWidth sizes the window to width, keeping the image aspect ratio
func fitWidth(m zoom.ImageMetrics, width int) zoom.ViewportMetrics {
	if width <= 0 {
		width = 800
	}
	w := float64(width)
	h := w
	if m.NaturalWidth > 0 {
		h = float64(int(w*m.NaturalHeight/m.NaturalWidth + 0.5))
	}
	if h < 1 {
		h = 1
	}
	return zoom.ViewportMetrics{Width: w, Height: h}
}
