package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/recera/pinchzoom/pkg/zoom"
)

// parseSize parses "WxH" into viewport metrics
func parseSize(s string) (zoom.ViewportMetrics, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return zoom.ViewportMetrics{}, fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil || width <= 0 {
		return zoom.ViewportMetrics{}, fmt.Errorf("invalid width in %q", s)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil || height <= 0 {
		return zoom.ViewportMetrics{}, fmt.Errorf("invalid height in %q", s)
	}
	return zoom.ViewportMetrics{Width: width, Height: height}, nil
}
