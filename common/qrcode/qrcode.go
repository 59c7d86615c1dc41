package qrcode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Options controls how a QR code is rasterized
type Options struct {
	Width  int    // output width and height in pixels
	Margin *int   // quiet zone in modules; nil means 1
	Dark   string // #rrggbb
	Light  string // #rrggbb
}

// DefaultOptions matches the invitation QR codes: 300px, 1 module margin, black on white
func DefaultOptions() Options {
	margin := 1
	return Options{Width: 300, Margin: &margin, Dark: "#000000", Light: "#ffffff"}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Margin == nil || *o.Margin < 0 {
		o.Margin = def.Margin
	}
	if o.Dark == "" {
		o.Dark = def.Dark
	}
	if o.Light == "" {
		o.Light = def.Light
	}
	return o
}

// Render encodes text as a PNG QR code. Output is a pure function of text and opts.
func Render(text string, opts Options) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("qr content cannot be empty")
	}
	opts = opts.withDefaults()

	dark, err := ParseHexColor(opts.Dark)
	if err != nil {
		return nil, err
	}
	light, err := ParseHexColor(opts.Light)
	if err != nil {
		return nil, err
	}

	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	qr.DisableBorder = true
	bitmap := qr.Bitmap()

	margin := *opts.Margin
	modules := len(bitmap) + 2*margin
	size := opts.Width
	if size < modules {
		size = modules
	}

	img := image.NewPaletted(image.Rect(0, 0, size, size), color.Palette{light, dark})
	for y := 0; y < size; y++ {
		my := y*modules/size - margin
		for x := 0; x < size; x++ {
			mx := x*modules/size - margin
			if my >= 0 && my < len(bitmap) && mx >= 0 && mx < len(bitmap) && bitmap[my][mx] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI wraps PNG bytes as a data:image/png;base64 URI
func DataURI(pngBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

// RenderDataURI renders text and returns it as a data URI
func RenderDataURI(text string, opts Options) (string, error) {
	png, err := Render(text, opts)
	if err != nil {
		return "", err
	}
	return DataURI(png), nil
}

// ParseHexColor parses #rrggbb (the leading # is optional)
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
