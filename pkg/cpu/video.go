package cpu

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// Palette used when the framebuffer is turned into an image.
var (
	ColorOff = color.RGBA{R: 0x10, G: 0x18, B: 0x10, A: 0xFF}
	ColorOn  = color.RGBA{R: 0x9B, G: 0xE8, B: 0x6C, A: 0xFF}
)

// FramebufferRGBA decodes the display into a DisplayWidth×DisplayHeight
// RGBA8888 byte slice.
func (c *CPU) FramebufferRGBA() []byte {
	pixels := make([]byte, DisplaySize*4)
	for i, p := range c.Display {
		col := ColorOff
		if p != 0 {
			col = ColorOn
		}
		pixels[i*4+0] = col.R
		pixels[i*4+1] = col.G
		pixels[i*4+2] = col.B
		pixels[i*4+3] = col.A
	}
	return pixels
}

// FramebufferImage returns the display as an *image.RGBA.
func (c *CPU) FramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    c.FramebufferRGBA(),
		Stride: DisplayWidth * 4,
		Rect:   image.Rect(0, 0, DisplayWidth, DisplayHeight),
	}
}

// ScaledImage returns the display enlarged by scale with hard pixel edges.
func (c *CPU) ScaledImage(scale int) *image.RGBA {
	src := c.FramebufferImage()
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, DisplayWidth*scale, DisplayHeight*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Screenshot encodes the display as a PNG.
func (c *CPU) Screenshot(w io.Writer, scale int) error {
	return png.Encode(w, c.ScaledImage(scale))
}

// SaveScreenshot writes a PNG of the display to filename.
func (c *CPU) SaveScreenshot(filename string, scale int) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Screenshot(f, scale)
}
