package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/pinchzoom/pkg/zoom"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    zoom.ViewportMetrics
		wantErr bool
	}{
		{in: "400x300", want: zoom.ViewportMetrics{Width: 400, Height: 300}},
		{in: " 1920X1080 ", want: zoom.ViewportMetrics{Width: 1920, Height: 1080}},
		{in: "12.5x8", want: zoom.ViewportMetrics{Width: 12.5, Height: 8}},
		{in: "400", wantErr: true},
		{in: "0x300", wantErr: true},
		{in: "400x-1", wantErr: true},
		{in: "wide x tall", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
