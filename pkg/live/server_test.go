package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recera/pinchzoom/pkg/zoom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	srv := NewServer("/live/", zoom.GestureConfig{})
	mux := http.NewServeMux()
	mux.Handle("/live/", srv)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/live/"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	messageType, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, messageType)
	return data
}

func readTransform(t *testing.T, ws *websocket.Conn) (zoom.Transform, bool) {
	t.Helper()
	_, tr, animated, err := DecodeTransform(readFrame(t, ws))
	require.NoError(t, err)
	return tr, animated
}

func send(t *testing.T, ws *websocket.Conn, data []byte) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, data))
}

func sendGesture(t *testing.T, ws *websocket.Conn, ev zoom.Event) {
	t.Helper()
	data, err := EncodeGesture(ev)
	require.NoError(t, err)
	send(t, ws, data)
}

var testMetrics = zoom.Metrics{
	Viewport: zoom.ViewportMetrics{Width: 200, Height: 200},
	Image:    zoom.ImageMetrics{NaturalWidth: 800, NaturalHeight: 800},
}

func TestServer_RequiresSessionID(t *testing.T) {
	_, url := startServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SessionDrivesController(t *testing.T) {
	srv, url := startServer(t)
	ws := dial(t, url+"abc")

	hello, err := DecodeControl(readFrame(t, ws))
	require.NoError(t, err)
	assert.Equal(t, Control{Message: ControlHello}, hello)

	send(t, ws, EncodeMetrics(testMetrics))
	tr, animated := readTransform(t, ws)
	assert.Equal(t, zoom.Identity, tr)
	assert.False(t, animated)

	sendGesture(t, ws, zoom.DoubleTap{At: vec.Vec2{X: 50, Y: 50}})
	tr, animated = readTransform(t, ws)
	assert.Equal(t, zoom.Transform{X: -150, Y: -150, Scale: 4}, tr)
	assert.True(t, animated)

	sendGesture(t, ws, zoom.Pan{DeltaX: 30, DeltaY: -600})
	tr, animated = readTransform(t, ws)
	assert.Equal(t, zoom.Transform{X: -160, Y: 0, Scale: 4}, tr)
	assert.False(t, animated)

	session, ok := srv.Session("abc")
	require.True(t, ok)
	assert.Equal(t, tr, session.Transform())
}

func TestServer_GesturesBeforeMetricsAreIgnored(t *testing.T) {
	_, url := startServer(t)
	ws := dial(t, url+"early")
	readFrame(t, ws)

	sendGesture(t, ws, zoom.DoubleTap{At: vec.Vec2{X: 50, Y: 50}})
	send(t, ws, EncodeMetrics(testMetrics))

	// The first transform is the load emission, not the double tap
	tr, _ := readTransform(t, ws)
	assert.Equal(t, zoom.Identity, tr)
}

func TestServer_MirrorsSessionAcrossConnections(t *testing.T) {
	_, url := startServer(t)
	presenter := dial(t, url+"shared")
	readFrame(t, presenter)

	send(t, presenter, EncodeMetrics(testMetrics))
	readTransform(t, presenter)
	sendGesture(t, presenter, zoom.DoubleTap{At: vec.Vec2{X: 10, Y: 20}})
	readTransform(t, presenter)

	// A late follower gets HELLO and then the current view
	follower := dial(t, url+"shared")
	hello, err := DecodeControl(readFrame(t, follower))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), hello.Seq)
	tr, animated := readTransform(t, follower)
	assert.Equal(t, zoom.Transform{X: -30, Y: -60, Scale: 4}, tr)
	assert.False(t, animated)

	// Follower gestures reach the presenter too
	sendGesture(t, follower, zoom.ResetView{})
	got, _ := readTransform(t, presenter)
	assert.Equal(t, zoom.Identity, got)
	got, _ = readTransform(t, follower)
	assert.Equal(t, zoom.Identity, got)
}

func TestServer_SessionsAreIndependent(t *testing.T) {
	srv, url := startServer(t)
	a := dial(t, url+"a")
	b := dial(t, url+"b")
	readFrame(t, a)
	readFrame(t, b)

	send(t, a, EncodeMetrics(testMetrics))
	readTransform(t, a)
	sendGesture(t, a, zoom.DoubleTap{At: vec.Vec2{X: 50, Y: 50}})
	readTransform(t, a)

	sb, ok := srv.Session("b")
	require.True(t, ok)
	assert.Equal(t, zoom.Identity, sb.Transform())
	assert.Equal(t, 2, srv.Len())
}

func TestServer_PingPong(t *testing.T) {
	_, url := startServer(t)
	ws := dial(t, url+"p")
	readFrame(t, ws)

	send(t, ws, EncodeControl(Control{Message: ControlPing}))

	ctl, err := DecodeControl(readFrame(t, ws))
	require.NoError(t, err)
	assert.Equal(t, ControlPong, ctl.Message)
}

func TestServer_RemovesIdleSession(t *testing.T) {
	srv, url := startServer(t)
	ws := dial(t, url+"gone")
	readFrame(t, ws)
	require.Equal(t, 1, srv.Len())

	ws.Close()

	assert.Eventually(t, func() bool { return srv.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

// detach removes a connection the way leave does, without a socket to close
func detach(session *Session, c *connection) {
	session.mu.Lock()
	delete(session.conns, c)
	session.mu.Unlock()
}

func TestServer_AttachKeepsSessionRegistered(t *testing.T) {
	srv := NewServer("/live/", zoom.GestureConfig{})

	first, c1 := srv.attach("shared", nil)
	detach(first, c1)

	// A second connection joins before the first one's cleanup runs
	second, c2 := srv.attach("shared", nil)
	require.Same(t, first, second)
	srv.removeIfIdle(first)

	got, ok := srv.Session("shared")
	require.True(t, ok, "a session with a connection must not be removed")
	assert.Same(t, first, got)

	detach(second, c2)
	srv.removeIfIdle(second)
	assert.Equal(t, 0, srv.Len())
}

func TestServer_AttachRacesWithRemoval(t *testing.T) {
	srv := NewServer("/live/", zoom.GestureConfig{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				session, c := srv.attach("busy", nil)
				if got, ok := srv.Session("busy"); !ok || got != session {
					t.Errorf("attached to an unregistered session")
					return
				}
				detach(session, c)
				srv.removeIfIdle(session)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, srv.Len())
}
