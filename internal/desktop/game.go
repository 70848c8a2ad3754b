//go:build !noebiten

package desktop

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"seehuhn.de/go/geom/vec"

	"github.com/recera/pinchzoom/pkg/zoom"
)

// ErrClosed is returned from Run when the window was closed with Escape
var ErrClosed = errors.New("viewer closed")

var background = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}

// Config holds viewer window configuration
type Config struct {
	Title     string
	Viewport  zoom.ViewportMetrics
	ScaleStep float64
	// ShowStatus draws the current transform in the corner
	ShowStatus bool
}

// Game implements ebiten.Game for one zoomable image
type Game struct {
	config   Config
	img      *ebiten.Image
	natural  zoom.ImageMetrics
	ctrl     *zoom.Controller
	gestures *Gestures
	tween    *Tween
	now      func() time.Time

	mu       sync.Mutex
	resetKey bool
}

// NewGame creates a viewer for src. The image counts as loaded at once.
func NewGame(config Config, src image.Image) *Game {
	b := src.Bounds()
	g := &Game{
		config:   config,
		img:      ebiten.NewImageFromImage(src),
		natural:  zoom.ImageMetrics{NaturalWidth: float64(b.Dx()), NaturalHeight: float64(b.Dy())},
		gestures: NewGestures(),
		tween:    NewTween(),
		now:      time.Now,
	}

	g.ctrl = zoom.New(zoom.GestureConfig{ScaleStep: config.ScaleStep}, zoom.MetricsFunc(g.metrics))
	g.ctrl.OnTransformChange(func(x, y, scale float64, animated bool) {
		g.tween.Set(zoom.Transform{X: x, Y: y, Scale: scale}, animated, g.now())
	})
	g.ctrl.OnImageLoad()
	return g
}

// metrics reports the window as the viewport. The image is stretched to
// the window at scale 1, like the browser widget does with its container.
func (g *Game) metrics() zoom.Metrics {
	return zoom.Metrics{
		Viewport: g.config.Viewport,
		Image:    g.natural,
	}
}

// Update implements ebiten.Game.Update
func (g *Game) Update() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ErrClosed
	}

	// Reset on key release so holding R does not repeat
	pressed := ebiten.IsKeyPressed(ebiten.KeyR)
	if g.resetKey && !pressed {
		g.ctrl.Reset()
	}
	g.resetKey = pressed

	for _, ev := range g.gestures.Update(g.poll()) {
		g.ctrl.Handle(ev)
	}
	return nil
}

// poll reads mouse, wheel and touch state for this frame
func (g *Game) poll() Sample {
	mx, my := ebiten.CursorPosition()
	_, wy := ebiten.Wheel()

	var touches []vec.Vec2
	for _, id := range ebiten.AppendTouchIDs(nil) {
		tx, ty := ebiten.TouchPosition(id)
		touches = append(touches, vec.Vec2{X: float64(tx), Y: float64(ty)})
	}

	return Sample{
		Time:    g.now(),
		Cursor:  vec.Vec2{X: float64(mx), Y: float64(my)},
		Pressed: ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		WheelY:  wy,
		Touches: touches,
	}
}

// Draw implements ebiten.Game.Draw
func (g *Game) Draw(screen *ebiten.Image) {
	g.mu.Lock()
	defer g.mu.Unlock()

	screen.Fill(background)

	t := g.tween.At(g.now())
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(g.config.Viewport.Width/g.natural.NaturalWidth, g.config.Viewport.Height/g.natural.NaturalHeight)
	op.GeoM.Scale(t.Scale, t.Scale)
	op.GeoM.Translate(t.X, t.Y)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(g.img, op)

	if g.config.ShowStatus {
		target := g.tween.Target()
		ebitenutil.DebugPrint(screen, fmt.Sprintf("x %.0f  y %.0f  scale %.2f / %.2f\nR reset  Esc quit",
			target.X, target.Y, target.Scale, g.ctrl.ScaleLimit()))
	}
}

// Layout implements ebiten.Game.Layout
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return int(g.config.Viewport.Width), int(g.config.Viewport.Height)
}

// Run opens the window and blocks until it is closed
func (g *Game) Run() error {
	ebiten.SetWindowSize(int(g.config.Viewport.Width), int(g.config.Viewport.Height))
	ebiten.SetWindowTitle(g.config.Title)

	log.Printf("[Viewer] %s: %.0fx%.0f, scale limit %.2f", g.config.Title,
		g.natural.NaturalWidth, g.natural.NaturalHeight, g.ctrl.ScaleLimit())

	err := ebiten.RunGame(g)
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}
