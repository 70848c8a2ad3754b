//go:build !js || !wasm

package imagezoom

// Widget is only functional in WASM builds
type Widget struct{}

// Attach is stubbed out for non-WASM builds and returns nil
func Attach(_ any, _ *Options) *Widget {
	return nil
}
