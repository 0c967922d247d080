// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package screen2d implements a 2D display.Drawer that renders into the
// terminal using ANSI color codes.
//
// Useful to watch a sensor driven visualization without an actual panel
// wired up. Every pixel is printed as two block characters side by side
// since terminal cells are roughly twice as tall as wide.
package screen2d

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	// X and Y are the size in pixels. Values below 1 fall back to 32.
	X int
	Y int
	// Palette maps colors onto the terminal's. Defaults to
	// ansi256.Default.
	Palette *ansi256.Palette
	// W receives the frames. Defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

// Dev is a pixel panel emulator that repaints into the console.
type Dev struct {
	w       io.Writer
	bounds  image.Rectangle
	palette ansi256.Palette

	pixels *image.NRGBA
	buf    bytes.Buffer
	frames int
}

// New returns a Dev that displays at the console, one colored block
// character per pixel.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	x, y := opts.X, opts.Y
	if x < 1 {
		x = 32
	}
	if y < 1 {
		y = 32
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	bounds := image.Rectangle{Max: image.Point{X: x, Y: y}}
	return &Dev{
		w:       w,
		bounds:  bounds,
		palette: *p,
		pixels:  image.NewNRGBA(bounds),
	}
}

func (d *Dev) String() string {
	return "Screen2D"
}

// Halt implements conn.Resource.
//
// It restores the terminal colors so the shell is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// Write accepts a stream of raw RGB pixels in row major order and paints
// it to the console.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != 3*d.bounds.Dx()*d.bounds.Dy() {
		return 0, errors.New("screen2d: invalid RGB stream length")
	}
	i := 0
	for y := 0; y < d.bounds.Dy(); y++ {
		for x := 0; x < d.bounds.Dx(); x++ {
			d.pixels.SetNRGBA(x, y, color.NRGBA{R: pixels[i], G: pixels[i+1], B: pixels[i+2], A: 255})
			i += 3
		}
	}
	return d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.bounds
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.bounds)
	draw.Draw(d.pixels, r, src, sp, draw.Src)
	_, err := d.refresh()
	return err
}

func (d *Dev) refresh() (int, error) {
	// Designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.frames > 0 {
		// Walk back up over the previous frame and repaint in place.
		fmt.Fprintf(&d.buf, "\033[%dA", d.bounds.Dy())
	}
	for y := 0; y < d.bounds.Dy(); y++ {
		_, _ = d.buf.WriteString("\r\033[0m")
		for x := 0; x < d.bounds.Dx(); x++ {
			b := d.palette.Block(d.pixels.NRGBAAt(x, y))
			_, _ = io.WriteString(&d.buf, b)
			_, _ = io.WriteString(&d.buf, b)
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.frames++
	_, err := d.buf.WriteTo(d.w)
	return 3 * d.bounds.Dx() * d.bounds.Dy(), err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
