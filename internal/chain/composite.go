package chain

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	DefaultMaxWidth = 1000
	DefaultQuality  = 40
)

var ErrEmptyLayer = errors.New("layer image is empty")

type CompositeOptions struct {
	MaxWidth int
	Quality  int
}

func DefaultCompositeOptions() CompositeOptions {
	return CompositeOptions{MaxWidth: DefaultMaxWidth, Quality: DefaultQuality}
}

// CompositeImage draws newLayer over base and encodes the result as JPEG.
// The base is scaled to the layer's size and shows through wherever the
// layer is transparent. Without a base, newLayer is returned as is.
func CompositeImage(newLayer, base []byte, opts CompositeOptions) ([]byte, error) {
	if len(newLayer) == 0 {
		return nil, ErrEmptyLayer
	}
	if len(base) == 0 {
		return newLayer, nil
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}

	top, _, err := image.Decode(bytes.NewReader(newLayer))
	if err != nil {
		return nil, fmt.Errorf("decode layer: %w", err)
	}
	bottom, _, err := image.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("decode base: %w", err)
	}

	bounds := top.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), bottom, bottom.Bounds(), draw.Over, nil)
	draw.Draw(canvas, canvas.Bounds(), top, bounds.Min, draw.Over)

	var out image.Image = canvas
	if canvas.Bounds().Dx() > opts.MaxWidth {
		height := canvas.Bounds().Dy() * opts.MaxWidth / canvas.Bounds().Dx()
		if height < 1 {
			height = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, opts.MaxWidth, height))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}
	return buf.Bytes(), nil
}
