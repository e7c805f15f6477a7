package output

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/icza/mjpeg"

	"bactosim/internal/core"
	"bactosim/internal/render"
)

// Movie records colony rasters as an MJPEG AVI, one frame per call to Add.
type Movie struct {
	w, h    int
	scale   int
	palette []color.RGBA
	writer  mjpeg.AviWriter
	buf     bytes.Buffer
	opts    jpeg.Options
	img     *image.RGBA
	frames  int
}

// NewMovie creates path for rasters of w*h pixels, each upscaled by scale.
func NewMovie(path string, w, h, scale, fps int, palette []color.RGBA) (*Movie, error) {
	if scale <= 0 {
		scale = 1
	}
	if fps <= 0 {
		fps = 10
	}
	aw, err := mjpeg.New(path, int32(w*scale), int32(h*scale), int32(fps))
	if err != nil {
		return nil, fmt.Errorf("create movie: %w", err)
	}
	return &Movie{
		w:       w,
		h:       h,
		scale:   scale,
		palette: palette,
		writer:  aw,
		opts:    jpeg.Options{Quality: 75},
		img:     image.NewRGBA(image.Rect(0, 0, w*scale, h*scale)),
	}, nil
}

// Add encodes one raster as a JPEG frame.
func (m *Movie) Add(g *core.ByteGrid) error {
	if g.W != m.w || g.H != m.h {
		return fmt.Errorf("frame %dx%d does not match movie %dx%d", g.W, g.H, m.w, m.h)
	}
	src := render.Image(g, m.palette)
	upscale(m.img, src, m.scale)
	m.buf.Reset()
	if err := jpeg.Encode(&m.buf, m.img, &m.opts); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := m.writer.AddFrame(m.buf.Bytes()); err != nil {
		return fmt.Errorf("add frame: %w", err)
	}
	m.frames++
	return nil
}

// Frames returns the number of frames written.
func (m *Movie) Frames() int { return m.frames }

// Close finalises the AVI index.
func (m *Movie) Close() error { return m.writer.Close() }

func upscale(dst, src *image.RGBA, k int) {
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := src.RGBAAt(x, y)
			for dy := 0; dy < k; dy++ {
				for dx := 0; dx < k; dx++ {
					dst.SetRGBA(x*k+dx, y*k+dy, c)
				}
			}
		}
	}
}
