package main

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/recera/pinchzoom/internal/imagestore"
	"github.com/recera/pinchzoom/internal/ui"
	"github.com/recera/pinchzoom/pkg/zoom"
)

func newPlayCommand() *cobra.Command {
	var viewport, imageSize string

	cmd := &cobra.Command{
		Use:   "play [image]",
		Short: "Drive the zoom controller from the keyboard",
		Long: `Opens a terminal playground. With an image argument its natural size is
used; otherwise --image sets the size.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			vp, err := parseSize(viewport)
			if err != nil {
				return err
			}

			title := imageSize
			var natural zoom.ImageMetrics
			if len(args) == 1 {
				img, err := imagestore.DescribeFile(args[0])
				if err != nil {
					return err
				}
				natural = img.Metrics
				title = filepath.Base(img.Path)
			} else {
				size, err := parseSize(imageSize)
				if err != nil {
					return err
				}
				natural = zoom.ImageMetrics{NaturalWidth: size.Width, NaturalHeight: size.Height}
			}

			model := ui.NewModel(title, zoom.Metrics{Viewport: vp, Image: natural},
				zoom.GestureConfig{ScaleStep: cfg.Zoom.ScaleStep})
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&viewport, "viewport", "400x300", "Viewport size as WIDTHxHEIGHT")
	cmd.Flags().StringVar(&imageSize, "image", "1600x1200", "Natural image size when no file is given")
	return cmd
}
