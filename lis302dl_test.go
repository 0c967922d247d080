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

package lis302dl

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

// initOps is the transaction sequence New runs: the identity check followed
// by the CTRL_REG1 write.
func initOps(ctrl1 byte) []conntest.IO {
	return []conntest.IO{
		{W: []byte{0x8F, 0x00}, R: []byte{0x00, 0x3B}},
		{W: []byte{0x20, ctrl1}, R: []byte{0x00, 0x00}},
	}
}

func playbackDev(t *testing.T, opts *Opts, ops []conntest.IO) (*Dev, *spitest.Playback) {
	t.Helper()
	pb := &spitest.Playback{Playback: conntest.Playback{Ops: ops, DontPanic: true}}
	d, err := New(pb, opts)
	if err != nil {
		t.Fatal(err)
	}
	return d, pb
}

func TestNew(t *testing.T) {
	for _, test := range []struct {
		name    string
		opts    *Opts
		ops     []conntest.IO
		wantErr bool
	}{
		{
			name: "default configuration",
			ops:  initOps(0xC7),
		},
		{
			name: "power down at 100Hz over ±8g without Z",
			opts: &Opts{Mode: PowerDown, Range: Range8G, Rate: Rate100Hz, DisableZ: true},
			ops:  initOps(0x23),
		},
		{
			name:    "invalid data rate",
			opts:    &Opts{Rate: DataRate(9)},
			wantErr: true,
		},
		{
			name:    "transaction error",
			wantErr: true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			pb := &spitest.Playback{Playback: conntest.Playback{Ops: test.ops, DontPanic: true}}
			defer pb.Close()
			d, err := New(pb, test.opts)
			if test.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(d.String(), "lis302dl{") {
				t.Errorf("String() = %q", d.String())
			}
		})
	}
}

func TestNewWrongDevice(t *testing.T) {
	pb := &spitest.Playback{Playback: conntest.Playback{
		Ops:       []conntest.IO{{W: []byte{0x8F, 0x00}, R: []byte{0x00, 0x12}}},
		DontPanic: true,
	}}
	defer pb.Close()
	_, err := New(pb, nil)
	var wrong *WrongDeviceError
	if !errors.As(err, &wrong) {
		t.Fatalf("got %v, want *WrongDeviceError", err)
	}
	if wrong.ID != 0x12 {
		t.Errorf("ID = 0x%02X, want 0x12", wrong.ID)
	}
	if got, want := err.Error(), "lis302dl: unexpected device ID 0x12, want 0x3B"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestSense(t *testing.T) {
	for _, test := range []struct {
		name string
		opts *Opts
		ops  []conntest.IO
		want Sample
	}{
		{
			name: "level at ±2g",
			ops: append(initOps(0xC7), conntest.IO{
				W: []byte{0xE9, 0x00, 0x00, 0x00, 0x00, 0x00},
				R: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x40},
			}),
			want: Sample{Z: 1150 * MilliG},
		},
		{
			name: "tilted at ±2g",
			ops: append(initOps(0xC7), conntest.IO{
				W: []byte{0xE9, 0x00, 0x00, 0x00, 0x00, 0x00},
				R: []byte{0x00, 0x20, 0x00, 0xE0, 0x00, 0x40},
			}),
			want: Sample{X: 575 * MilliG, Y: -575 * MilliG, Z: 1150 * MilliG},
		},
		{
			name: "same counts weigh four times more at ±8g",
			opts: &Opts{Mode: Active, Range: Range8G, Rate: Rate400Hz},
			ops: append(initOps(0xE7), conntest.IO{
				W: []byte{0xE9, 0x00, 0x00, 0x00, 0x00, 0x00},
				R: []byte{0x00, 0x10, 0x00, 0x00, 0x00, 0x10},
			}),
			want: Sample{X: 1150 * MilliG, Z: 1150 * MilliG},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			d, pb := playbackDev(t, test.opts, test.ops)
			var s Sample
			if err := d.Sense(&s); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, s); diff != "" {
				t.Errorf("unexpected sample (-want +got):\n%s", diff)
			}
			if err := pb.Close(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestSenseRaw(t *testing.T) {
	d, pb := playbackDev(t, nil, append(initOps(0xC7), conntest.IO{
		W: []byte{0xE9, 0x00, 0x00, 0x00, 0x00, 0x00},
		R: []byte{0x00, 0x7F, 0x00, 0x80, 0x00, 0xFF},
	}))
	var r RawSample
	if err := d.SenseRaw(&r); err != nil {
		t.Fatal(err)
	}
	if want := (RawSample{X: 127, Y: -128, Z: -1}); r != want {
		t.Errorf("SenseRaw() = %s, want %s", r, want)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPrecision(t *testing.T) {
	d, pb := playbackDev(t, nil, append(initOps(0xC7),
		conntest.IO{W: []byte{0x20, 0xE7}, R: []byte{0x00, 0x00}},
	))
	var p Sample
	d.Precision(&p)
	if p.X != sensitivity2G || p.Y != sensitivity2G || p.Z != sensitivity2G {
		t.Errorf("Precision() = %s at ±2g", p)
	}
	if err := d.SetRange(Range8G); err != nil {
		t.Fatal(err)
	}
	d.Precision(&p)
	if p.X != sensitivity8G || p.Y != sensitivity8G || p.Z != sensitivity8G {
		t.Errorf("Precision() = %s at ±8g", p)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStatus(t *testing.T) {
	d, pb := playbackDev(t, nil, append(initOps(0xC7),
		conntest.IO{W: []byte{0xA7, 0x00}, R: []byte{0x00, 0x09}},
	))
	s, err := d.Status()
	if err != nil {
		t.Fatal(err)
	}
	if !s.DataReady() {
		t.Error("DataReady() = false")
	}
	if s.Overrun() {
		t.Error("Overrun() = true")
	}
	if !s.DataReadyX() || s.DataReadyY() || s.DataReadyZ() {
		t.Errorf("per axis ready flags of 0x%02X decoded wrong", byte(s))
	}
	if s.OverrunX() || s.OverrunY() || s.OverrunZ() {
		t.Errorf("per axis overrun flags of 0x%02X decoded wrong", byte(s))
	}
	if got, want := s.String(), "ready:true overrun:false"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConfiguration(t *testing.T) {
	d, pb := playbackDev(t, nil, append(initOps(0xC7),
		conntest.IO{W: []byte{0x20, 0xE7}, R: []byte{0x00, 0x00}}, // ±8g
		conntest.IO{W: []byte{0x20, 0x67}, R: []byte{0x00, 0x00}}, // 100Hz
		conntest.IO{W: []byte{0x20, 0x27}, R: []byte{0x00, 0x00}}, // power down
		conntest.IO{W: []byte{0x20, 0x25}, R: []byte{0x00, 0x00}}, // X and Z only
		conntest.IO{W: []byte{0x20, 0x35}, R: []byte{0x00, 0x00}}, // self test +
		conntest.IO{W: []byte{0x20, 0x25}, R: []byte{0x00, 0x00}}, // self test off
		conntest.IO{W: []byte{0xA0, 0x00}, R: []byte{0x00, 0x25}},
		conntest.IO{W: []byte{0xA0, 0x00}, R: []byte{0x00, 0x25}},
		conntest.IO{W: []byte{0xA0, 0x00}, R: []byte{0x00, 0x25}},
	))
	if err := d.SetRange(Range8G); err != nil {
		t.Fatal(err)
	}
	// Programming the value already in effect must not touch the device.
	if err := d.SetRange(Range8G); err != nil {
		t.Fatal(err)
	}
	if err := d.SetDataRate(Rate100Hz); err != nil {
		t.Fatal(err)
	}
	if err := d.SetPowerMode(PowerDown); err != nil {
		t.Fatal(err)
	}
	if err := d.EnableAxes(true, false, true); err != nil {
		t.Fatal(err)
	}
	if err := d.SetSelfTest(SelfTestPositive); err != nil {
		t.Fatal(err)
	}
	if err := d.SetSelfTest(SelfTestOff); err != nil {
		t.Fatal(err)
	}
	if r, err := d.Range(); err != nil || r != Range8G {
		t.Errorf("Range() = %s, %v, want %s", r, err, Range8G)
	}
	if r, err := d.DataRate(); err != nil || r != Rate100Hz {
		t.Errorf("DataRate() = %s, %v, want %s", r, err, Rate100Hz)
	}
	if m, err := d.PowerMode(); err != nil || m != PowerDown {
		t.Errorf("PowerMode() = %s, %v, want %s", m, err, PowerDown)
	}
	if err := d.SetRange(Range(3)); err == nil {
		t.Error("SetRange(3) did not fail")
	}
	if err := d.SetDataRate(DataRate(3)); err == nil {
		t.Error("SetDataRate(3) did not fail")
	}
	if err := d.SetPowerMode(PowerMode(3)); err == nil {
		t.Error("SetPowerMode(3) did not fail")
	}
	if err := d.SetSelfTest(SelfTestMode(5)); err == nil {
		t.Error("SetSelfTest(5) did not fail")
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReset(t *testing.T) {
	d, pb := playbackDev(t, nil, append(initOps(0xC7),
		conntest.IO{W: []byte{0xA1, 0x00}, R: []byte{0x00, 0x00}},
		conntest.IO{W: []byte{0x21, 0x40}, R: []byte{0x00, 0x00}},
	))
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestHalt(t *testing.T) {
	d, pb := playbackDev(t, nil, append(initOps(0xC7),
		conntest.IO{W: []byte{0x20, 0x87}, R: []byte{0x00, 0x00}},
	))
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	// Halting an already halted device is a no-op.
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSenseContinuous(t *testing.T) {
	d, pb := playbackDev(t, nil, append(initOps(0xC7),
		conntest.IO{
			W: []byte{0xE9, 0x00, 0x00, 0x00, 0x00, 0x00},
			R: []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03},
		},
		conntest.IO{
			W: []byte{0xE9, 0x00, 0x00, 0x00, 0x00, 0x00},
			R: []byte{0x00, 0x04, 0x00, 0x05, 0x00, 0x06},
		},
		conntest.IO{W: []byte{0x20, 0x87}, R: []byte{0x00, 0x00}},
	))
	if _, err := d.SenseContinuous(time.Millisecond); !errors.Is(err, ErrTooFast) {
		t.Fatalf("got %v, want ErrTooFast", err)
	}
	c, err := d.SenseContinuous(50 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.SenseContinuous(50 * time.Millisecond); !errors.Is(err, ErrSensing) {
		t.Fatalf("got %v, want ErrSensing", err)
	}
	got := []Sample{<-c, <-c}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	want := []Sample{
		{X: scale(1, sensitivity2G), Y: scale(2, sensitivity2G), Z: scale(3, sensitivity2G)},
		{X: scale(4, sensitivity2G), Y: scale(5, sensitivity2G), Z: scale(6, sensitivity2G)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected samples (-want +got):\n%s", diff)
	}
	if _, ok := <-c; ok {
		t.Error("channel still open after Halt")
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSenseContinuousPowersUp(t *testing.T) {
	opts := &Opts{Mode: PowerDown, Range: Range2G, Rate: Rate400Hz}
	d, pb := playbackDev(t, opts, append(initOps(0x87),
		conntest.IO{W: []byte{0x20, 0xC7}, R: []byte{0x00, 0x00}},
		conntest.IO{
			W: []byte{0xE9, 0x00, 0x00, 0x00, 0x00, 0x00},
			R: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x40},
		},
		conntest.IO{W: []byte{0x20, 0x87}, R: []byte{0x00, 0x00}},
	))
	c, err := d.SenseContinuous(50 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	s := <-c
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if s.Z != 1150*MilliG {
		t.Errorf("Z = %s, want 1.15g", s.Z)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

// csPin records every level driven on the chip select line.
type csPin struct {
	gpiotest.Pin
	levels []gpio.Level
}

func (p *csPin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return p.Pin.Out(l)
}

func TestChipSelect(t *testing.T) {
	cs := &csPin{Pin: gpiotest.Pin{N: "CS"}}
	opts := DefaultOpts
	opts.CS = cs
	pb := &spitest.Playback{Playback: conntest.Playback{Ops: initOps(0xC7), DontPanic: true}}
	if _, err := New(pb, &opts); err != nil {
		t.Fatal(err)
	}
	want := []gpio.Level{gpio.Low, gpio.High, gpio.Low, gpio.High}
	if diff := cmp.Diff(want, cs.levels); diff != "" {
		t.Errorf("chip select sequence (-want +got):\n%s", diff)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestChipSelectReleasedOnError(t *testing.T) {
	cs := &csPin{Pin: gpiotest.Pin{N: "CS"}}
	opts := DefaultOpts
	opts.CS = cs
	pb := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	defer pb.Close()
	if _, err := New(pb, &opts); err == nil {
		t.Fatal("expected an error")
	}
	// The line must not be left asserted after a failed transaction.
	want := []gpio.Level{gpio.Low, gpio.High}
	if diff := cmp.Diff(want, cs.levels); diff != "" {
		t.Errorf("chip select sequence (-want +got):\n%s", diff)
	}
}
