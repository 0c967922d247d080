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

// lis302dl-level shows a LIS302DL as a bubble level.
//
// By default it animates in the terminal. With -png it writes a single
// frame to a file, with -http it streams frames to a browser the way IP
// cameras stream motion JPEG.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/lis302dl"
	"github.com/google/lis302dl/level"
	"github.com/google/lis302dl/screen2d"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func mainImpl() error {
	spiID := flag.String("spi", "", "SPI port to use, the first available when empty")
	csName := flag.String("cs", "", "GPIO acting as chip select when the port has none")
	interval := flag.Duration("interval", 50*time.Millisecond, "time between frames")
	httpAddr := flag.String("http", "", "address to serve frames on instead of drawing")
	pngPath := flag.String("png", "", "write a single frame to this file and exit")
	size := flag.Int("size", 240, "edge in pixels of -png and -http frames")
	cols := flag.Int("cols", 48, "width of the terminal canvas in characters")
	rows := flag.Int("rows", 24, "height of the terminal canvas in rows")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected arguments")
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	p, err := spireg.Open(*spiID)
	if err != nil {
		return err
	}
	defer p.Close()
	opts := lis302dl.DefaultOpts
	if *csName != "" {
		pin := gpioreg.ByName(*csName)
		if pin == nil {
			return fmt.Errorf("no GPIO named %q", *csName)
		}
		opts.CS = pin
	}
	d, err := lis302dl.New(p, &opts)
	if err != nil {
		return err
	}

	switch {
	case *pngPath != "":
		return writePNG(d, *pngPath, *size)
	case *httpAddr != "":
		return serveHTTP(d, *httpAddr, *size, *interval)
	}
	return drawTerminal(d, *cols, *rows, *interval)
}

func writePNG(d *lis302dl.Dev, path string, size int) error {
	ro := level.DefaultOpts
	ro.Size = size
	r, err := level.New(&ro)
	if err != nil {
		return err
	}
	// Let the device refresh the output registers once.
	time.Sleep(10 * time.Millisecond)
	var s lis302dl.Sample
	if err := d.Sense(&s); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, r.Render(s)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return d.Halt()
}

func drawTerminal(d *lis302dl.Dev, cols, rows int, interval time.Duration) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return errors.New("stdout is not a terminal, use -png or -http")
	}
	// screen2d prints two characters per pixel.
	w := cols / 2
	if w < 8 || rows < 8 {
		return errors.New("terminal canvas is too small")
	}
	scr := screen2d.New(&screen2d.Opts{X: w, Y: rows})
	side := rows
	if w < side {
		side = w
	}
	r, err := level.New(&level.Opts{Size: side, Rings: 2})
	if err != nil {
		return err
	}
	dst := image.Rect((w-side)/2, (rows-side)/2, (w-side)/2+side, (rows-side)/2+side)
	c, err := d.SenseContinuous(interval)
	if err != nil {
		return err
	}
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	for {
		select {
		case <-stop:
			if err := d.Halt(); err != nil {
				return err
			}
			return scr.Halt()
		case s, ok := <-c:
			if !ok {
				return scr.Halt()
			}
			if err := scr.Draw(dst, r.Render(s), image.Point{}); err != nil {
				return err
			}
		}
	}
}

func serveHTTP(d *lis302dl.Dev, addr string, size int, interval time.Duration) error {
	ro := level.DefaultOpts
	ro.Size = size
	r, err := level.New(&ro)
	if err != nil {
		return err
	}
	srv := newFrameServer()
	errs := make(chan error, 1)
	go func() {
		errs <- http.ListenAndServe(addr, srv)
	}()
	c, err := d.SenseContinuous(interval)
	if err != nil {
		return err
	}
	fmt.Printf("serving on http://%s\n", addr)
	for {
		select {
		case err := <-errs:
			return err
		case s, ok := <-c:
			if !ok {
				return nil
			}
			if err := srv.publish(r.Render(s)); err != nil {
				return err
			}
		}
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "lis302dl-level: %s.\n", err)
		os.Exit(1)
	}
}

// frameServer pushes the latest rendering to every connected client.
// /frame serves a snapshot, /stream a multipart stream of PNGs.
type frameServer struct {
	mu      sync.Mutex
	frame   []byte
	clients map[chan []byte]struct{}
}

func newFrameServer() *frameServer {
	return &frameServer{clients: map[chan []byte]struct{}{}}
}

func (f *frameServer) publish(img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	b := buf.Bytes()
	f.mu.Lock()
	f.frame = b
	for c := range f.clients {
		// Slow clients skip frames instead of stalling the loop.
		select {
		case c <- b:
		default:
		}
	}
	f.mu.Unlock()
	return nil
}

func (f *frameServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, indexPage)
	case "/frame":
		f.mu.Lock()
		b := f.frame
		f.mu.Unlock()
		if b == nil {
			http.Error(w, "no frame yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(b)
	case "/stream":
		f.stream(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *frameServer) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	c := make(chan []byte, 1)
	f.mu.Lock()
	f.clients[c] = struct{}{}
	if f.frame != nil {
		c <- f.frame
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.clients, c)
		f.mu.Unlock()
	}()
	const boundary = "frame"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	for {
		select {
		case <-r.Context().Done():
			return
		case b := <-c:
			fmt.Fprintf(w, "--%s\r\nContent-Type: image/png\r\nContent-Length: %d\r\n\r\n", boundary, len(b))
			if _, err := w.Write(b); err != nil {
				return
			}
			_, _ = io.WriteString(w, "\r\n")
			flusher.Flush()
		}
	}
}

const indexPage = `<!DOCTYPE html>
<title>lis302dl level</title>
<style>body{background:#111;margin:0;display:flex;height:100vh;align-items:center;justify-content:center}</style>
<img src="/stream" alt="bubble level">
`
