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

// Package level renders accelerometer samples as a bubble level.
//
// The output is a plain image.Image, so it can go to a terminal emulator,
// a PNG file or any display.Drawer.
package level

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/lis302dl"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Opts represents the options available for the renderer.
type Opts struct {
	// Size is the edge of the square canvas in pixels.
	Size int
	// Rings is how many guide rings to draw around the center.
	Rings int
	// FullScale is the acceleration that puts the bubble on the outer
	// ring.
	FullScale lis302dl.Acceleration
	// FontSize is the height of the numeric readout in points. 0 leaves
	// the readout out, which is the right call for tiny canvases.
	FontSize float64

	_ struct{}
}

// DefaultOpts renders a 240 pixel canvas with three rings, a 1g full scale
// and a readout.
var DefaultOpts = Opts{
	Size:      240,
	Rings:     3,
	FullScale: lis302dl.G,
	FontSize:  11,
}

// Renderer draws bubble level frames.
type Renderer struct {
	size  int
	rings int
	full  float64
	face  font.Face
}

// New returns a Renderer. A nil opts selects DefaultOpts.
func New(opts *Opts) (*Renderer, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	r := &Renderer{
		size:  opts.Size,
		rings: opts.Rings,
		full:  opts.FullScale.Gravity(),
	}
	if r.size <= 0 {
		r.size = DefaultOpts.Size
	}
	if r.rings <= 0 {
		r.rings = DefaultOpts.Rings
	}
	if r.full <= 0 {
		r.full = 1
	}
	if opts.FontSize > 0 {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("level: %v", err)
		}
		r.face = truetype.NewFace(f, &truetype.Options{Size: opts.FontSize})
	}
	return r, nil
}

// Bounds is the size of the frames Render produces.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.size, r.size)
}

// Render draws one frame. The bubble tracks the X and Y components of the
// gravity vector and is clamped to the outer ring.
func (r *Renderer) Render(s lis302dl.Sample) image.Image {
	size := float64(r.size)
	c := size / 2
	radius := size * 0.44
	dc := gg.NewContext(r.size, r.size)
	dc.SetRGB(0.06, 0.08, 0.10)
	dc.Clear()

	dc.SetRGB(0.20, 0.42, 0.28)
	dc.SetLineWidth(1)
	for i := 1; i <= r.rings; i++ {
		dc.DrawCircle(c, c, radius*float64(i)/float64(r.rings))
		dc.Stroke()
	}
	dc.DrawLine(c-radius, c, c+radius, c)
	dc.Stroke()
	dc.DrawLine(c, c-radius, c, c+radius)
	dc.Stroke()

	// Screen Y grows downwards, board Y away from the viewer.
	gx := clamp(s.X.Gravity() / r.full)
	gy := clamp(s.Y.Gravity() / r.full)
	bubble := size * 0.05
	if bubble < 1 {
		bubble = 1
	}
	dc.SetRGB(0.95, 0.78, 0.12)
	dc.DrawCircle(c+gx*radius, c-gy*radius, bubble)
	dc.Fill()

	if r.face != nil {
		dc.SetFontFace(r.face)
		dc.SetRGB(0.86, 0.86, 0.86)
		dc.DrawString(s.String(), 4, size-6)
	}
	return dc.Image()
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
