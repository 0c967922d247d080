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
	"time"
)

// HighPassCutoff selects the corner frequency of the high-pass filter as a
// fraction of the output data rate.
type HighPassCutoff byte

const (
	// CutoffODRDiv50 puts the corner at ODR/50: 2Hz at 100Hz, 8Hz at
	// 400Hz.
	CutoffODRDiv50 HighPassCutoff = iota
	CutoffODRDiv100
	CutoffODRDiv200
	CutoffODRDiv400
)

// HighPassConfig selects which signal paths run through the high-pass
// filter.
type HighPassConfig struct {
	// Data filters the samples delivered through the output registers and
	// Sense.
	Data bool
	// Motion1 and Motion2 filter the inputs of the two motion detection
	// units.
	Motion1 bool
	Motion2 bool
	// Cutoff selects the corner frequency.
	Cutoff HighPassCutoff
}

// SetHighPass routes signal paths through the high-pass filter. A nil or
// zero config restores the unfiltered paths.
func (d *Dev) SetHighPass(cfg *HighPassConfig) error {
	if cfg == nil {
		cfg = &HighPassConfig{}
	}
	if cfg.Cutoff > CutoffODRDiv400 {
		return fmt.Errorf("lis302dl: invalid high-pass cutoff %d", cfg.Cutoff)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readRegister(regCtrl2)
	if err != nil {
		return err
	}
	v &^= ctrl2FilterData | ctrl2FilterFFWU1 | ctrl2FilterFFWU2 | ctrl2CutoffMask
	if cfg.Data {
		v |= ctrl2FilterData
	}
	if cfg.Motion1 {
		v |= ctrl2FilterFFWU1
	}
	if cfg.Motion2 {
		v |= ctrl2FilterFFWU2
	}
	v |= byte(cfg.Cutoff) & ctrl2CutoffMask
	return d.writeRegister(regCtrl2, v)
}

// ResetHighPass zeroes the filter state so it settles on the current
// acceleration instantly instead of converging over many samples.
func (d *Dev) ResetHighPass() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.readRegister(regHPFilterReset)
	return err
}

// MotionConfig arms one of the two free-fall/wake-up detection units.
type MotionConfig struct {
	// RequireAll fires only when every enabled condition holds at once.
	// Combined with the low conditions on all axes this is the free-fall
	// detector. The default fires on any single condition, which is the
	// wake-up detector.
	RequireAll bool
	// Latch holds a detected event until MotionSource is read.
	Latch bool
	// XLow, YLow and ZLow fire while the axis magnitude is below
	// Threshold, the high counterparts while above.
	XLow, XHigh bool
	YLow, YHigh bool
	ZLow, ZHigh bool
	// Threshold is the compare level. It is quantized to one output count
	// at the current range and must fit the 7 bit threshold register.
	Threshold Acceleration
	// Decrement makes the duration counter count down when the condition
	// drops instead of restarting from zero.
	Decrement bool
	// Duration is the minimum time the condition must hold before the
	// event fires. It is quantized to the output data rate period and
	// must fit the 8 bit duration register.
	Duration time.Duration
}

// SetMotionDetect programs and arms motion detection unit 1 or 2. The unit
// watches the unfiltered signal unless routed through the high-pass filter
// with SetHighPass. A nil or zero config disarms the unit.
//
// Threshold quantization follows the range configured at call time;
// changing the range afterwards rescales the armed threshold along with
// it.
func (d *Dev) SetMotionDetect(unit int, cfg *MotionConfig) error {
	regCfg, _, regThs, regDur, err := motionRegs(unit)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = &MotionConfig{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ths, err := thresholdCounts(cfg.Threshold, d.sensitivity())
	if err != nil {
		return err
	}
	dur, err := durationCounts(cfg.Duration, d.rateLocked().period())
	if err != nil {
		return err
	}
	if cfg.Decrement {
		ths |= ffwuThsDecrement
	}
	if err := d.writeRegister(regThs, ths); err != nil {
		return err
	}
	if err := d.writeRegister(regDur, dur); err != nil {
		return err
	}
	// The configuration register arms the unit, so it is written last.
	v := byte(0)
	if cfg.RequireAll {
		v |= ffwuCfgAnd
	}
	if cfg.Latch {
		v |= ffwuCfgLatch
	}
	if cfg.XLow {
		v |= ffwuCfgXLow
	}
	if cfg.XHigh {
		v |= ffwuCfgXHigh
	}
	if cfg.YLow {
		v |= ffwuCfgYLow
	}
	if cfg.YHigh {
		v |= ffwuCfgYHigh
	}
	if cfg.ZLow {
		v |= ffwuCfgZLow
	}
	if cfg.ZHigh {
		v |= ffwuCfgZHigh
	}
	return d.writeRegister(regCfg, v)
}

// MotionEvent reports which conditions of a motion detection unit fired.
type MotionEvent struct {
	// Active is the combined event flag of the unit.
	Active      bool
	XLow, XHigh bool
	YLow, YHigh bool
	ZLow, ZHigh bool
}

func (m MotionEvent) String() string {
	return fmt.Sprintf("active:%t x:%s y:%s z:%s",
		m.Active,
		lowHigh(m.XLow, m.XHigh),
		lowHigh(m.YLow, m.YHigh),
		lowHigh(m.ZLow, m.ZHigh))
}

func lowHigh(low, high bool) string {
	switch {
	case low && high:
		return "low+high"
	case low:
		return "low"
	case high:
		return "high"
	}
	return "-"
}

// MotionSource reads and decodes the event source of motion detection unit
// 1 or 2. Reading clears a latched event.
func (d *Dev) MotionSource(unit int) (MotionEvent, error) {
	_, regSrc, _, _, err := motionRegs(unit)
	if err != nil {
		return MotionEvent{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readRegister(regSrc)
	if err != nil {
		return MotionEvent{}, err
	}
	return MotionEvent{
		Active: v&ffwuSrcActive != 0,
		XLow:   v&ffwuCfgXLow != 0,
		XHigh:  v&ffwuCfgXHigh != 0,
		YLow:   v&ffwuCfgYLow != 0,
		YHigh:  v&ffwuCfgYHigh != 0,
		ZLow:   v&ffwuCfgZLow != 0,
		ZHigh:  v&ffwuCfgZHigh != 0,
	}, nil
}

func motionRegs(unit int) (cfg, src, ths, dur byte, err error) {
	switch unit {
	case 1:
		return regFFWUCfg1, regFFWUSrc1, regFFWUThs1, regFFWUDuration1, nil
	case 2:
		return regFFWUCfg2, regFFWUSrc2, regFFWUThs2, regFFWUDuration2, nil
	}
	return 0, 0, 0, 0, fmt.Errorf("lis302dl: invalid motion detection unit %d", unit)
}

// ClickConfig arms the click detection unit.
type ClickConfig struct {
	// Latch holds a detected click until ClickSource is read.
	Latch bool
	// SingleX through DoubleZ select which axes detect single and double
	// clicks.
	SingleX, DoubleX bool
	SingleY, DoubleY bool
	SingleZ, DoubleZ bool
	// ThresholdX, ThresholdY and ThresholdZ are the per axis shock
	// levels, quantized to 0.5g steps up to 7.5g.
	ThresholdX Acceleration
	ThresholdY Acceleration
	ThresholdZ Acceleration
	// TimeLimit is the longest a shock may stay above threshold to count
	// as a click, quantized to 0.5ms steps.
	TimeLimit time.Duration
	// Latency is the dead time after a click before a second one is
	// looked for, quantized to 1ms steps.
	Latency time.Duration
	// Window is how long after the latency the second click of a double
	// click may arrive, quantized to 1ms steps.
	Window time.Duration
}

// SetClickDetect programs and arms the click detection unit. A nil or zero
// config disarms it.
func (d *Dev) SetClickDetect(cfg *ClickConfig) error {
	if cfg == nil {
		cfg = &ClickConfig{}
	}
	x, err := clickThreshold(cfg.ThresholdX)
	if err != nil {
		return err
	}
	y, err := clickThreshold(cfg.ThresholdY)
	if err != nil {
		return err
	}
	z, err := clickThreshold(cfg.ThresholdZ)
	if err != nil {
		return err
	}
	tl, err := durationCounts(cfg.TimeLimit, 500*time.Microsecond)
	if err != nil {
		return err
	}
	lat, err := durationCounts(cfg.Latency, time.Millisecond)
	if err != nil {
		return err
	}
	win, err := durationCounts(cfg.Window, time.Millisecond)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeRegister(regClickThsYX, y<<4|x); err != nil {
		return err
	}
	if err := d.writeRegister(regClickThsZ, z); err != nil {
		return err
	}
	if err := d.writeRegister(regClickTimeLim, tl); err != nil {
		return err
	}
	if err := d.writeRegister(regClickLatency, lat); err != nil {
		return err
	}
	if err := d.writeRegister(regClickWindow, win); err != nil {
		return err
	}
	v := byte(0)
	if cfg.Latch {
		v |= clickCfgLatch
	}
	if cfg.SingleX {
		v |= clickCfgSingleX
	}
	if cfg.DoubleX {
		v |= clickCfgDoubleX
	}
	if cfg.SingleY {
		v |= clickCfgSingleY
	}
	if cfg.DoubleY {
		v |= clickCfgDoubleY
	}
	if cfg.SingleZ {
		v |= clickCfgSingleZ
	}
	if cfg.DoubleZ {
		v |= clickCfgDoubleZ
	}
	return d.writeRegister(regClickCfg, v)
}

// ClickEvent reports which click conditions fired.
type ClickEvent struct {
	// Active is the combined event flag of the unit.
	Active           bool
	SingleX, DoubleX bool
	SingleY, DoubleY bool
	SingleZ, DoubleZ bool
}

// ClickSource reads and decodes the click event source. Reading clears a
// latched event.
func (d *Dev) ClickSource() (ClickEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readRegister(regClickSrc)
	if err != nil {
		return ClickEvent{}, err
	}
	return ClickEvent{
		Active:  v&clickSrcActive != 0,
		SingleX: v&clickCfgSingleX != 0,
		DoubleX: v&clickCfgDoubleX != 0,
		SingleY: v&clickCfgSingleY != 0,
		DoubleY: v&clickCfgDoubleY != 0,
		SingleZ: v&clickCfgSingleZ != 0,
		DoubleZ: v&clickCfgDoubleZ != 0,
	}, nil
}

// InterruptSelect routes an internal event source to an interrupt pin.
type InterruptSelect byte

const (
	InterruptNone       InterruptSelect = 0
	InterruptMotion1    InterruptSelect = 1
	InterruptMotion2    InterruptSelect = 2
	InterruptMotion1Or2 InterruptSelect = 3
	InterruptDataReady  InterruptSelect = 4
	InterruptClick      InterruptSelect = 7
)

// InterruptConfig programs the two interrupt pins.
type InterruptConfig struct {
	// ActiveLow inverts both pins.
	ActiveLow bool
	// OpenDrain switches both pins from push-pull to open drain.
	OpenDrain bool
	// Int1 and Int2 select the event routed to each pin.
	Int1 InterruptSelect
	Int2 InterruptSelect
}

// SetInterrupts programs polarity, drive and routing of the two interrupt
// pins. A nil or zero config restores push-pull, active high pins with
// nothing routed.
func (d *Dev) SetInterrupts(cfg *InterruptConfig) error {
	if cfg == nil {
		cfg = &InterruptConfig{}
	}
	if err := validateInterrupt(cfg.Int1); err != nil {
		return err
	}
	if err := validateInterrupt(cfg.Int2); err != nil {
		return err
	}
	v := byte(cfg.Int1) & ctrl3IntMask
	v |= (byte(cfg.Int2) & ctrl3IntMask) << ctrl3Int2Shift
	if cfg.ActiveLow {
		v |= ctrl3ActiveLow
	}
	if cfg.OpenDrain {
		v |= ctrl3OpenDrain
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeRegister(regCtrl3, v)
}

func validateInterrupt(s InterruptSelect) error {
	switch s {
	case InterruptNone, InterruptMotion1, InterruptMotion2, InterruptMotion1Or2,
		InterruptDataReady, InterruptClick:
		return nil
	}
	return fmt.Errorf("lis302dl: invalid interrupt selection %d", s)
}

// thresholdCounts quantizes a to multiples of one output count, rounding
// to nearest.
func thresholdCounts(a, sensitivity Acceleration) (byte, error) {
	if a < 0 {
		return 0, fmt.Errorf("lis302dl: negative threshold %s", a)
	}
	c := (int64(a) + int64(sensitivity)/2) / int64(sensitivity)
	if c > int64(ffwuThsMask) {
		return 0, fmt.Errorf("lis302dl: threshold %s does not fit the current range", a)
	}
	return byte(c), nil
}

// clickThreshold quantizes a to the fixed 0.5g steps of the click unit,
// rounding to nearest.
func clickThreshold(a Acceleration) (byte, error) {
	if a < 0 {
		return 0, fmt.Errorf("lis302dl: negative threshold %s", a)
	}
	step := 500 * MilliG
	c := (int64(a) + int64(step)/2) / int64(step)
	if c > 0x0F {
		return 0, fmt.Errorf("lis302dl: click threshold %s is above 7.5g", a)
	}
	return byte(c), nil
}

// durationCounts quantizes t to multiples of step, rounding to nearest.
func durationCounts(t, step time.Duration) (byte, error) {
	if t < 0 {
		return 0, fmt.Errorf("lis302dl: negative duration %s", t)
	}
	c := (int64(t) + int64(step)/2) / int64(step)
	if c > 0xFF {
		return 0, fmt.Errorf("lis302dl: duration %s is out of range", t)
	}
	return byte(c), nil
}
