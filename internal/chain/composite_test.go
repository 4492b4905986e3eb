package chain

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"doodle-chain/internal/store"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, fill func(x, y int) color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func requireNear(t *testing.T, want color.RGBA, got color.Color) {
	t.Helper()
	r, g, b, _ := got.RGBA()
	channels := [][2]int{{int(want.R), int(r >> 8)}, {int(want.G), int(g >> 8)}, {int(want.B), int(b >> 8)}}
	for _, c := range channels {
		diff := c[0] - c[1]
		if diff < -24 || diff > 24 {
			t.Fatalf("expected color near %v, got r=%d g=%d b=%d", want, r>>8, g>>8, b>>8)
		}
	}
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func halfRedLayer(t *testing.T, w, h int) []byte {
	return encodePNG(t, w, h, func(x, _ int) color.Color {
		if x < w/2 {
			return red
		}
		return color.Transparent
	})
}

func TestCompositeImageWithoutBaseReturnsLayer(t *testing.T) {
	layer := halfRedLayer(t, 8, 8)
	out, err := CompositeImage(layer, nil, DefaultCompositeOptions())
	require.NoError(t, err)
	require.Equal(t, layer, out)
}

func TestCompositeImageShowsBaseThroughTransparency(t *testing.T) {
	layer := halfRedLayer(t, 64, 32)
	base := encodePNG(t, 16, 8, func(int, int) color.Color { return blue })

	out, err := CompositeImage(layer, base, CompositeOptions{MaxWidth: 1000, Quality: 95})
	require.NoError(t, err)

	img := decodeJPEG(t, out)
	require.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())
	requireNear(t, red, img.At(12, 16))
	requireNear(t, blue, img.At(52, 16))
}

func TestCompositeImageFlattensOnWhite(t *testing.T) {
	layer := encodePNG(t, 32, 32, func(int, int) color.Color { return color.Transparent })
	base := encodePNG(t, 32, 32, func(int, int) color.Color { return color.Transparent })

	out, err := CompositeImage(layer, base, CompositeOptions{MaxWidth: 1000, Quality: 95})
	require.NoError(t, err)
	requireNear(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, decodeJPEG(t, out).At(16, 16))
}

func TestCompositeImageDownscalesWideImages(t *testing.T) {
	layer := halfRedLayer(t, 200, 50)
	base := encodePNG(t, 200, 50, func(int, int) color.Color { return blue })

	out, err := CompositeImage(layer, base, CompositeOptions{MaxWidth: 100, Quality: 40})
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 100, 25), decodeJPEG(t, out).Bounds())
}

func TestCompositeImageRejectsGarbage(t *testing.T) {
	_, err := CompositeImage(nil, []byte("x"), DefaultCompositeOptions())
	require.ErrorIs(t, err, ErrEmptyLayer)

	_, err = CompositeImage([]byte("not an image"), halfRedLayer(t, 4, 4), DefaultCompositeOptions())
	require.Error(t, err)
}

func TestContributeCompositesOverParent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := NewManager(st, nil)
	m.Composite = CompositeOptions{MaxWidth: 1000, Quality: 95}

	base := encodePNG(t, 40, 20, func(int, int) color.Color { return blue })
	root, err := m.Contribute(ctx, "", "ada", base, false)
	require.NoError(t, err)
	require.Equal(t, base, root.Image)
	require.Equal(t, root.ID, root.Root)

	child, err := m.Contribute(ctx, root.ID, "bob", halfRedLayer(t, 40, 20), false)
	require.NoError(t, err)
	require.Equal(t, root.ID, child.Parent)
	require.Equal(t, 2, child.TailLength)
	img := decodeJPEG(t, child.Image)
	requireNear(t, red, img.At(8, 10))
	requireNear(t, blue, img.At(32, 10))
}

func TestContributeWithVanishedParentStartsChain(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore(), nil)

	layer := halfRedLayer(t, 8, 8)
	doodle, err := m.Contribute(ctx, "missing", "ada", layer, true)
	require.NoError(t, err)
	require.False(t, doodle.HasParent())
	require.Equal(t, 1, doodle.TailLength)
	require.Equal(t, doodle.ID, doodle.Root)
	require.True(t, doodle.InGame)
}
