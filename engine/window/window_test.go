package window

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	polls  int
	open   int
	titles []string
	closed bool
}

func (f *fakePlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor { return &wgpu.SurfaceDescriptor{} }
func (f *fakePlatform) alive() bool { return !f.closed && f.polls < f.open }
func (f *fakePlatform) setTitle(title string) { f.titles = append(f.titles, title) }
func (f *fakePlatform) close() { f.closed = true }

func (f *fakePlatform) poll() bool {
	f.polls++
	return f.polls <= f.open
}

func TestKeyState(t *testing.T) {
	w := newEngineWindow()
	var downs, ups []Key
	w.SetKeyDownCallback(func(k Key) { downs = append(downs, k) })
	w.SetKeyUpCallback(func(k Key) { ups = append(ups, k) })

	w.handleKey(KeyW, true)
	w.handleKey(KeyW, true)
	assert.True(t, w.KeyPressed(KeyW))
	assert.False(t, w.KeyPressed(KeyS))

	w.handleKey(KeyW, false)
	assert.False(t, w.KeyPressed(KeyW))

	assert.Equal(t, []Key{KeyW}, downs, "a held key reports one press")
	assert.Equal(t, []Key{KeyW}, ups)
}

func TestDragReportsDeltasWhileHeld(t *testing.T) {
	w := newEngineWindow()
	var deltas [][2]float32
	w.SetDragCallback(func(dx, dy float32) { deltas = append(deltas, [2]float32{dx, dy}) })

	w.handleCursor(10, 10)
	w.handleLeftButton(true, 10, 10)
	w.handleCursor(15, 8)
	w.handleCursor(15, 8)
	w.handleCursor(12, 20)
	w.handleLeftButton(false, 12, 20)
	w.handleCursor(50, 50)

	assert.Equal(t, [][2]float32{{5, -2}, {-3, 12}}, deltas)
}

func TestTitleIsAppliedOnce(t *testing.T) {
	w := newEngineWindow(WithTitle("first"))
	assert.Equal(t, "first", w.Title())

	_, ok := w.pendingTitle()
	assert.False(t, ok)

	w.SetTitle("second")
	title, ok := w.pendingTitle()
	assert.True(t, ok)
	assert.Equal(t, "second", title)

	_, ok = w.pendingTitle()
	assert.False(t, ok)
}

func TestResizeAndClose(t *testing.T) {
	w := newEngineWindow(WithSize(640, 480))
	assert.Equal(t, 640, w.Width())

	var got [2]int
	w.SetResizeCallback(func(width, height int) { got = [2]int{width, height} })
	w.handleResize(800, 600)
	assert.Equal(t, [2]int{800, 600}, got)
	assert.Equal(t, 600, w.Height())

	w.RequestClose()
	assert.False(t, w.IsRunning())
}

func TestInitialSizeIsClamped(t *testing.T) {
	w := newEngineWindow(WithSizeLimits(400, 300, 1024, 768), WithSize(2000, 100))
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 300, w.Height())

	w = newEngineWindow(WithSize(0, -1))
	assert.Equal(t, 1600, w.Width())
	assert.Equal(t, 900, w.Height())
}

func TestProcessMessagesAppliesTitleAndStopsOnClose(t *testing.T) {
	w := newEngineWindow()
	assert.Nil(t, w.SurfaceDescriptor())
	require.Error(t, w.Close())

	fake := &fakePlatform{open: 3}
	w.native = fake
	updates := 0
	w.SetUpdateCallback(func() {
		updates++
		if updates == 1 {
			w.SetTitle("renamed")
		}
	})

	w.ProcessMessages()
	assert.Equal(t, 3, updates)
	assert.Equal(t, []string{"renamed"}, fake.titles)
	assert.NotNil(t, w.SurfaceDescriptor())

	require.NoError(t, w.Close())
	assert.True(t, fake.closed)
	assert.False(t, w.IsRunning())
}
