package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/recera/pinchzoom/internal/replay"
	"github.com/recera/pinchzoom/pkg/zoom"
)

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Run a gesture script and print every emitted transform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := replay.ParseFile(args[0])
			if err != nil {
				return err
			}
			emissions, err := script.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEmissions(script, emissions))
			return nil
		},
	}
}

func renderEmissions(script *replay.Script, emissions []replay.Emission) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STEP", "LINE", "EVENT", "X", "Y", "SCALE", "ANIMATED")

	for _, e := range emissions {
		step := script.Steps[e.Step]
		t.Row(
			strconv.Itoa(e.Step),
			strconv.Itoa(step.Line),
			describeEvent(step.Event),
			strconv.FormatFloat(e.Transform.X, 'f', -1, 64),
			strconv.FormatFloat(e.Transform.Y, 'f', -1, 64),
			strconv.FormatFloat(e.Transform.Scale, 'f', -1, 64),
			strconv.FormatBool(e.Animated),
		)
	}
	return t.String()
}

func describeEvent(ev zoom.Event) string {
	switch e := ev.(type) {
	case zoom.Pan:
		return fmt.Sprintf("pan %g,%g", e.DeltaX, e.DeltaY)
	case zoom.PinchStart:
		return fmt.Sprintf("pinchstart %g,%g", e.Focal.X, e.Focal.Y)
	case zoom.Pinch:
		return fmt.Sprintf("pinch %g", e.Scale)
	case zoom.DoubleTap:
		return fmt.Sprintf("doubletap %g,%g", e.At.X, e.At.Y)
	case zoom.ImageLoad:
		return "load"
	case zoom.ResetView:
		return "reset"
	}
	return fmt.Sprintf("%T", ev)
}
