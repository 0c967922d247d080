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
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// PowerMode selects between the powered down and measuring states.
type PowerMode byte

const (
	PowerDown PowerMode = 0
	Active    PowerMode = 1
)

func (p PowerMode) String() string {
	if p == Active {
		return "active"
	}
	return "power down"
}

// Range selects the measurement range of the device.
type Range byte

const (
	// Range2G measures ±2g nominal (±2.3g typical span), 18mg per count.
	Range2G Range = 0
	// Range8G measures ±8g nominal (±9.2g typical span), 72mg per count.
	Range8G Range = 1
)

func (r Range) String() string {
	if r == Range8G {
		return "±8g"
	}
	return "±2g"
}

func (r Range) sensitivity() Acceleration {
	if r == Range8G {
		return sensitivity8G
	}
	return sensitivity2G
}

// DataRate selects the output data rate.
type DataRate byte

const (
	Rate100Hz DataRate = 0
	Rate400Hz DataRate = 1
)

// Frequency returns the rate at which the device refreshes the output
// registers.
func (r DataRate) Frequency() physic.Frequency {
	if r == Rate400Hz {
		return 400 * physic.Hertz
	}
	return 100 * physic.Hertz
}

// period returns the time between two refreshes of the output registers.
func (r DataRate) period() time.Duration {
	if r == Rate400Hz {
		return 2500 * time.Microsecond
	}
	return 10 * time.Millisecond
}

func (r DataRate) String() string {
	return r.Frequency().String()
}

// Opts holds the configuration programmed by New.
type Opts struct {
	// Mode is the power mode to start in.
	Mode PowerMode
	// Range is the measurement range to start with.
	Range Range
	// Rate is the output data rate to start with.
	Rate DataRate
	// DisableX, DisableY and DisableZ leave individual axes out of the
	// measurement loop. A disabled axis keeps its last output value.
	DisableX bool
	DisableY bool
	DisableZ bool
	// CS is driven low around every transaction for SPI ports that do not
	// manage a chip select line in hardware. Leave nil for ports that do,
	// which is the common case.
	CS gpio.PinOut
}

// DefaultOpts measures at 400Hz over the ±2g range with all axes enabled.
var DefaultOpts = Opts{
	Mode:  Active,
	Range: Range2G,
	Rate:  Rate400Hz,
}

// spiFrequency is deliberately conservative. The device tops out at 10MHz
// but is usually on the end of jumper leads.
const spiFrequency = physic.MegaHertz

// Dev is a handle to a LIS302DL accelerometer on an SPI port.
//
// It is safe for concurrent use.
type Dev struct {
	c  spi.Conn
	cs gpio.PinOut

	mu    sync.Mutex
	ctrl1 byte // shadow of CTRL_REG1; the driver is its only writer
	stop  chan struct{}
	wg    sync.WaitGroup
}

// New opens a handle to a LIS302DL on the given SPI port and programs the
// configuration in opts. A nil opts selects DefaultOpts.
//
// The device identity is verified through WHO_AM_I before anything is
// written; a mismatch returns a *WrongDeviceError.
func New(p spi.Port, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := validatePowerMode(opts.Mode); err != nil {
		return nil, err
	}
	if err := validateRange(opts.Range); err != nil {
		return nil, err
	}
	if err := validateDataRate(opts.Rate); err != nil {
		return nil, err
	}
	c, err := p.Connect(spiFrequency, spi.Mode3, 8)
	if err != nil {
		return nil, fmt.Errorf("lis302dl: %v", err)
	}
	d := &Dev{c: c, cs: opts.CS}
	id, err := d.readRegister(regWhoAmI)
	if err != nil {
		return nil, err
	}
	if id != deviceID {
		return nil, &WrongDeviceError{ID: id}
	}
	ctrl1 := byte(0)
	if !opts.DisableX {
		ctrl1 |= ctrl1XEnable
	}
	if !opts.DisableY {
		ctrl1 |= ctrl1YEnable
	}
	if !opts.DisableZ {
		ctrl1 |= ctrl1ZEnable
	}
	if opts.Mode == Active {
		ctrl1 |= ctrl1Active
	}
	if opts.Range == Range8G {
		ctrl1 |= ctrl1ScaleMask
	}
	if opts.Rate == Rate400Hz {
		ctrl1 |= ctrl1RateMask
	}
	if err := d.writeRegister(regCtrl1, ctrl1); err != nil {
		return nil, err
	}
	d.ctrl1 = ctrl1
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("lis302dl{%s}", d.c)
}

// Sense reads the three axes and scales the counts to the configured range.
func (d *Dev) Sense(s *Sample) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := d.readRaw()
	if err != nil {
		return err
	}
	sens := d.sensitivity()
	s.X = scale(raw.X, sens)
	s.Y = scale(raw.Y, sens)
	s.Z = scale(raw.Z, sens)
	return nil
}

// SenseRaw reads the three axes as raw two's complement counts.
func (d *Dev) SenseRaw(r *RawSample) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := d.readRaw()
	if err != nil {
		return err
	}
	*r = raw
	return nil
}

// SenseContinuous reads the device at the given interval until Halt is
// called, dropping readings when the channel is not drained fast enough.
// The interval may not be shorter than the output data rate period. A
// powered down device is woken up first.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, ErrSensing
	}
	if interval < d.rateLocked().period() {
		return nil, ErrTooFast
	}
	if d.ctrl1&ctrl1Active == 0 {
		// Without this the loop would hand out the same frozen registers
		// over and over.
		if err := d.updateCtrl1(d.ctrl1 | ctrl1Active); err != nil {
			return nil, err
		}
	}
	d.stop = make(chan struct{})
	d.wg.Add(1)
	out := make(chan Sample, 16)
	go d.senseLoop(interval, d.stop, out)
	return out, nil
}

func (d *Dev) senseLoop(interval time.Duration, stop <-chan struct{}, out chan<- Sample) {
	defer d.wg.Done()
	defer close(out)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			var s Sample
			if err := d.Sense(&s); err != nil {
				continue
			}
			select {
			case out <- s:
			default:
			}
		}
	}
}

// Precision sets each axis of s to the size of one output count at the
// configured range.
func (d *Dev) Precision(s *Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sens := d.sensitivity()
	s.X, s.Y, s.Z = sens, sens, sens
}

// Status mirrors the STATUS_REG flags.
type Status byte

// DataReady returns whether a new sample is available on all enabled axes.
func (s Status) DataReady() bool {
	return byte(s)&statusZYXReady != 0
}

// DataReadyX, DataReadyY and DataReadyZ report the per axis flags.
func (s Status) DataReadyX() bool { return byte(s)&statusXReady != 0 }
func (s Status) DataReadyY() bool { return byte(s)&statusYReady != 0 }
func (s Status) DataReadyZ() bool { return byte(s)&statusZReady != 0 }

// Overrun returns whether a sample was overwritten before being read.
func (s Status) Overrun() bool {
	return byte(s)&statusZYXOverrun != 0
}

// OverrunX, OverrunY and OverrunZ report the per axis flags.
func (s Status) OverrunX() bool { return byte(s)&statusXOverrun != 0 }
func (s Status) OverrunY() bool { return byte(s)&statusYOverrun != 0 }
func (s Status) OverrunZ() bool { return byte(s)&statusZOverrun != 0 }

func (s Status) String() string {
	return fmt.Sprintf("ready:%t overrun:%t", s.DataReady(), s.Overrun())
}

// Status reads the new data and overrun flags.
func (d *Dev) Status() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readRegister(regStatus)
	return Status(v), err
}

// PowerMode reads the power mode back from the device.
func (d *Dev) PowerMode() (PowerMode, error) {
	v, err := d.refreshCtrl1()
	if err != nil {
		return 0, err
	}
	if v&ctrl1Active != 0 {
		return Active, nil
	}
	return PowerDown, nil
}

// Range reads the measurement range back from the device.
func (d *Dev) Range() (Range, error) {
	v, err := d.refreshCtrl1()
	if err != nil {
		return 0, err
	}
	if v&ctrl1ScaleMask != 0 {
		return Range8G, nil
	}
	return Range2G, nil
}

// DataRate reads the output data rate back from the device.
func (d *Dev) DataRate() (DataRate, error) {
	v, err := d.refreshCtrl1()
	if err != nil {
		return 0, err
	}
	if v&ctrl1RateMask != 0 {
		return Rate400Hz, nil
	}
	return Rate100Hz, nil
}

// SetPowerMode switches between power down and active measurement.
func (d *Dev) SetPowerMode(m PowerMode) error {
	if err := validatePowerMode(m); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ctrl1 := d.ctrl1 &^ ctrl1Active
	if m == Active {
		ctrl1 |= ctrl1Active
	}
	return d.updateCtrl1(ctrl1)
}

// SetRange switches the measurement range. Subsequent Sense calls scale
// with the new sensitivity.
func (d *Dev) SetRange(r Range) error {
	if err := validateRange(r); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ctrl1 := d.ctrl1 &^ ctrl1ScaleMask
	if r == Range8G {
		ctrl1 |= ctrl1ScaleMask
	}
	return d.updateCtrl1(ctrl1)
}

// SetDataRate switches the output data rate.
func (d *Dev) SetDataRate(r DataRate) error {
	if err := validateDataRate(r); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ctrl1 := d.ctrl1 &^ ctrl1RateMask
	if r == Rate400Hz {
		ctrl1 |= ctrl1RateMask
	}
	return d.updateCtrl1(ctrl1)
}

// EnableAxes selects which axes take part in the measurement loop. A
// disabled axis keeps its last output value.
func (d *Dev) EnableAxes(x, y, z bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctrl1 := d.ctrl1 &^ (ctrl1XEnable | ctrl1YEnable | ctrl1ZEnable)
	if x {
		ctrl1 |= ctrl1XEnable
	}
	if y {
		ctrl1 |= ctrl1YEnable
	}
	if z {
		ctrl1 |= ctrl1ZEnable
	}
	return d.updateCtrl1(ctrl1)
}

// SelfTestMode drives the electrostatic self test actuation.
type SelfTestMode byte

const (
	SelfTestOff SelfTestMode = iota
	// SelfTestPositive actuates the seismic mass in the positive direction.
	SelfTestPositive
	// SelfTestNegative actuates the seismic mass in the negative direction.
	SelfTestNegative
)

// SetSelfTest engages or releases the self test actuation. While engaged
// the outputs shift by the actuation offsets listed in the datasheet, so
// comparing readings taken with the actuation on and off exercises the
// complete measurement chain. The two directions are mutually exclusive.
func (d *Dev) SetSelfTest(m SelfTestMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctrl1 := d.ctrl1 &^ (ctrl1SelfTestP | ctrl1SelfTestM)
	switch m {
	case SelfTestOff:
	case SelfTestPositive:
		ctrl1 |= ctrl1SelfTestP
	case SelfTestNegative:
		ctrl1 |= ctrl1SelfTestM
	default:
		return fmt.Errorf("lis302dl: invalid self test mode %d", m)
	}
	return d.updateCtrl1(ctrl1)
}

// Reset reloads the factory calibration from the internal memory and waits
// for the device to settle. The configuration registers are unaffected.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readRegister(regCtrl2)
	if err != nil {
		return err
	}
	if err := d.writeRegister(regCtrl2, v|ctrl2Boot); err != nil {
		return err
	}
	// The boot sequence copies the calibration coefficients and the bit
	// clears itself. Turn-on time is the natural bound to wait for.
	time.Sleep(3 * time.Millisecond)
	return nil
}

// Halt stops a continuous read if one is in progress and powers the device
// down. Implements conn.Resource. The handle stays usable afterwards;
// restore with SetPowerMode or SenseContinuous.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateCtrl1(d.ctrl1 &^ ctrl1Active)
}

// tx runs one full duplex transaction, wrapped in a chip select assertion
// when the port does not handle the line itself. The pin is deasserted even
// when the transfer fails.
func (d *Dev) tx(w, r []byte) error {
	if d.cs == nil {
		return d.c.Tx(w, r)
	}
	if err := d.cs.Out(gpio.Low); err != nil {
		return err
	}
	err := d.c.Tx(w, r)
	if err2 := d.cs.Out(gpio.High); err == nil {
		err = err2
	}
	return err
}

func (d *Dev) readRegister(reg byte) (byte, error) {
	w := []byte{reg | spiRead, 0}
	r := make([]byte, 2)
	if err := d.tx(w, r); err != nil {
		return 0, fmt.Errorf("lis302dl: read 0x%02X: %v", reg, err)
	}
	return r[1], nil
}

// readRegisters fills buf from consecutive registers starting at reg using
// the auto increment addressing mode.
func (d *Dev) readRegisters(reg byte, buf []byte) error {
	w := make([]byte, len(buf)+1)
	w[0] = reg | spiRead | spiAutoIncrement
	r := make([]byte, len(buf)+1)
	if err := d.tx(w, r); err != nil {
		return fmt.Errorf("lis302dl: read 0x%02X+%d: %v", reg, len(buf), err)
	}
	copy(buf, r[1:])
	return nil
}

func (d *Dev) writeRegister(reg, value byte) error {
	w := []byte{reg, value}
	r := make([]byte, 2)
	if err := d.tx(w, r); err != nil {
		return fmt.Errorf("lis302dl: write 0x%02X: %v", reg, err)
	}
	return nil
}

// readRaw reads the three output registers in one burst. Callers hold d.mu.
func (d *Dev) readRaw() (RawSample, error) {
	var buf [5]byte
	if err := d.readRegisters(regOutX, buf[:]); err != nil {
		return RawSample{}, err
	}
	// OUT_X, OUT_Y and OUT_Z are separated by reserved addresses, so the
	// burst over 0x29..0x2D lands the axes at offsets 0, 2 and 4.
	return RawSample{X: int8(buf[0]), Y: int8(buf[2]), Z: int8(buf[4])}, nil
}

// updateCtrl1 writes CTRL_REG1 and the shadow, skipping no-op writes.
// Callers hold d.mu.
func (d *Dev) updateCtrl1(ctrl1 byte) error {
	if ctrl1 == d.ctrl1 {
		return nil
	}
	if err := d.writeRegister(regCtrl1, ctrl1); err != nil {
		return err
	}
	d.ctrl1 = ctrl1
	return nil
}

// refreshCtrl1 reads CTRL_REG1 back from the device and refreshes the
// shadow.
func (d *Dev) refreshCtrl1() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readRegister(regCtrl1)
	if err != nil {
		return 0, err
	}
	d.ctrl1 = v
	return v, nil
}

// sensitivity returns the nano-g value of one count at the configured
// range. Callers hold d.mu.
func (d *Dev) sensitivity() Acceleration {
	return d.rangeLocked().sensitivity()
}

// rangeLocked derives the range from the shadow. Callers hold d.mu.
func (d *Dev) rangeLocked() Range {
	if d.ctrl1&ctrl1ScaleMask != 0 {
		return Range8G
	}
	return Range2G
}

// rateLocked derives the data rate from the shadow. Callers hold d.mu.
func (d *Dev) rateLocked() DataRate {
	if d.ctrl1&ctrl1RateMask != 0 {
		return Rate400Hz
	}
	return Rate100Hz
}

func validatePowerMode(m PowerMode) error {
	switch m {
	case PowerDown, Active:
		return nil
	}
	return fmt.Errorf("lis302dl: invalid power mode %d", m)
}

func validateRange(r Range) error {
	switch r {
	case Range2G, Range8G:
		return nil
	}
	return fmt.Errorf("lis302dl: invalid range %d", r)
}

func validateDataRate(r DataRate) error {
	switch r {
	case Rate100Hz, Rate400Hz:
		return nil
	}
	return fmt.Errorf("lis302dl: invalid data rate %d", r)
}

var _ conn.Resource = &Dev{}
