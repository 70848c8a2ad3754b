package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"seehuhn.de/go/geom/vec"

	"github.com/recera/pinchzoom/internal/imagestore"
	"github.com/recera/pinchzoom/pkg/zoom"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e2e8f0"))
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3b82f6")).MarginBottom(1)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
)

func newInspectCommand() *cobra.Command {
	var viewport string

	cmd := &cobra.Command{
		Use:   "inspect <image>",
		Short: "Show how an image zooms inside a viewport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vp, err := parseSize(viewport)
			if err != nil {
				return err
			}
			img, err := imagestore.DescribeFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderInspect(img, vp))
			return nil
		},
	}

	cmd.Flags().StringVar(&viewport, "viewport", "400x300", "Viewport size as WIDTHxHEIGHT")
	return cmd
}

// zoomPreview is the controller's answer for one image and viewport
type zoomPreview struct {
	limit     float64
	minX      float64
	minY      float64
	doubleTap zoom.Transform
	zoomable  bool
}

func preview(img imagestore.Image, vp zoom.ViewportMetrics) zoomPreview {
	ctrl := zoom.New(zoom.GestureConfig{}, zoom.StaticMetrics(zoom.Metrics{Viewport: vp, Image: img.Metrics}))
	ctrl.OnImageLoad()

	p := zoomPreview{limit: ctrl.ScaleLimit(), zoomable: ctrl.ScaleLimit() > 1}
	ctrl.OnDoubleTap(vec.Vec2{X: vp.Width / 2, Y: vp.Height / 2})
	p.doubleTap = ctrl.GetTransform()
	p.minX, p.minY = ctrl.PanLimits()
	return p
}

func renderInspect(img imagestore.Image, vp zoom.ViewportMetrics) string {
	p := preview(img, vp)

	rows := [][2]string{
		{"Format", img.Format},
		{"Natural size", fmt.Sprintf("%.0f × %.0f", img.Metrics.NaturalWidth, img.Metrics.NaturalHeight)},
		{"File size", humanize.Bytes(uint64(img.Size))},
		{"Modified", humanize.Time(img.ModTime)},
		{"Viewport", fmt.Sprintf("%.0f × %.0f", vp.Width, vp.Height)},
		{"Scale limit", fmt.Sprintf("%.2f", p.limit)},
	}
	if p.zoomable {
		rows = append(rows,
			[2]string{"Pan range", fmt.Sprintf("x %.0f..0, y %.0f..0", p.minX, p.minY)},
			[2]string{"Double tap", p.doubleTap.CSS()},
		)
	}

	var b strings.Builder
	b.WriteString(headStyle.Render(img.Name))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(labelStyle.Render(row[0]))
		b.WriteString(valueStyle.Render(row[1]))
		b.WriteString("\n")
	}
	if !p.zoomable {
		b.WriteString(warnStyle.Render("Image is not larger than the viewport; zoom gestures are ignored."))
		b.WriteString("\n")
	}
	return b.String()
}
