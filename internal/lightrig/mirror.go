package lightrig

import (
	"fmt"
	"image"
	"io"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// Mirror pushes rig frames to a physical or terminal LED strip. A Mirror
// without a drawer discards frames.
type Mirror struct {
	drawer display.Drawer
	closer io.Closer
	Kind   string
}

// NewMirror wraps an already opened drawer.
func NewMirror(d display.Drawer, kind string) *Mirror {
	return &Mirror{drawer: d, Kind: kind}
}

// NewSPIMirror drives WS2812-style LEDs over an open SPI port.
func NewSPIMirror(p spi.Port, pixels int) (*Mirror, error) {
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: pixels,
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &Mirror{drawer: d, Kind: "spi"}, nil
}

// Open picks an output by kind: "spi" (falls back to the terminal when no
// port is found), "screen", or "none".
func Open(kind, port string, pixels int, log zerolog.Logger) (*Mirror, error) {
	switch kind {
	case "", "none":
		return &Mirror{Kind: "none"}, nil
	case "screen":
		return NewMirror(screen.New(pixels), "screen"), nil
	case "spi":
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host init: %w", err)
		}
		pc, err := spireg.Open(port)
		if err != nil {
			log.Warn().Err(err).Str("port", port).Msg("no SPI port; mirroring lights to the terminal")
			return NewMirror(screen.New(pixels), "screen"), nil
		}
		m, err := NewSPIMirror(pc, pixels)
		if err != nil {
			_ = pc.Close()
			return nil, err
		}
		m.closer = pc
		return m, nil
	default:
		return nil, fmt.Errorf("unknown light mirror %q", kind)
	}
}

// Draw writes one frame, stretched to the strip when the scene has a
// different number of lights than the strip was sized for.
func (m *Mirror) Draw(img *image.NRGBA) error {
	if m == nil || m.drawer == nil {
		return nil
	}
	b := m.drawer.Bounds()
	return m.drawer.Draw(b, fit(img, b), image.Point{})
}

func fit(img *image.NRGBA, b image.Rectangle) *image.NRGBA {
	if img.Bounds().Size() == b.Size() || img.Bounds().Empty() {
		return img
	}
	dst := image.NewNRGBA(b)
	xdraw.NearestNeighbor.Scale(dst, b, img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// String names the underlying device.
func (m *Mirror) String() string {
	if m == nil || m.drawer == nil {
		return "none"
	}
	return m.drawer.String()
}

// Close blanks the strip and releases the port.
func (m *Mirror) Close() error {
	if m == nil || m.drawer == nil {
		return nil
	}
	err := m.drawer.Halt()
	if m.closer != nil {
		if cerr := m.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
