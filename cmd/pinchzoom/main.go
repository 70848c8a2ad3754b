package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/pinchzoom/cmd/pinchzoom/internal/config"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// projectDir holds pinchzoom.toml; set by the --dir persistent flag
var projectDir string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "pinchzoom",
		Short: "pinchzoom - pan, pinch and double-tap zoom for large images",
		Long: `pinchzoom serves galleries of high resolution images with touch zoom
widgets, and ships tools to inspect images, replay gesture scripts and play
with the zoom controller in the terminal.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Directory containing "+config.FileName)

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newReplayCommand())
	rootCmd.AddCommand(newPlayCommand())
	rootCmd.AddCommand(newThumbsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads pinchzoom.toml, falling back to defaults when it cannot
// be parsed. Values that parse but are out of range are an error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(projectDir)
	if err != nil {
		log.Printf("⚠️  Failed to load %s: %v (using defaults)\n", config.FileName, err)
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.FileName, err)
	}
	return cfg, nil
}
