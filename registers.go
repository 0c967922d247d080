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

// Register map of the LIS302DL. Addresses not listed are reserved and must
// not be written.
const (
	regWhoAmI        byte = 0x0F // Device identification, reads 0x3B
	regCtrl1         byte = 0x20 // Data rate, power mode, full scale, self test, axis enables
	regCtrl2         byte = 0x21 // SPI mode, reboot, high-pass filter
	regCtrl3         byte = 0x22 // Interrupt polarity, drive and routing
	regHPFilterReset byte = 0x23 // Dummy read zeroes the high-pass filter
	regStatus        byte = 0x27 // New data and overrun flags
	regOutX          byte = 0x29 // X axis output, two's complement
	regOutY          byte = 0x2B // Y axis output, two's complement
	regOutZ          byte = 0x2D // Z axis output, two's complement
	regFFWUCfg1      byte = 0x30 // Free-fall/wake-up unit 1 axis and logic configuration
	regFFWUSrc1      byte = 0x31 // Free-fall/wake-up unit 1 event source, read clears latch
	regFFWUThs1      byte = 0x32 // Free-fall/wake-up unit 1 threshold
	regFFWUDuration1 byte = 0x33 // Free-fall/wake-up unit 1 minimum event duration
	regFFWUCfg2      byte = 0x34 // Free-fall/wake-up unit 2 axis and logic configuration
	regFFWUSrc2      byte = 0x35 // Free-fall/wake-up unit 2 event source, read clears latch
	regFFWUThs2      byte = 0x36 // Free-fall/wake-up unit 2 threshold
	regFFWUDuration2 byte = 0x37 // Free-fall/wake-up unit 2 minimum event duration
	regClickCfg      byte = 0x38 // Click detection axis configuration
	regClickSrc      byte = 0x39 // Click event source, read clears latch
	regClickThsYX    byte = 0x3B // Click thresholds, Y high nibble, X low nibble
	regClickThsZ     byte = 0x3C // Click threshold, Z low nibble
	regClickTimeLim  byte = 0x3D // Maximum duration of a click, 0.5ms steps
	regClickLatency  byte = 0x3E // Dead time between clicks, 1ms steps
	regClickWindow   byte = 0x3F // Window for the second click, 1ms steps
)

// The first byte of every SPI transaction carries the register address in
// the low 6 bits plus two flags.
const (
	spiRead          byte = 0x80 // Read transaction
	spiAutoIncrement byte = 0x40 // Address increments after every data byte
)

// CTRL_REG1 bits.
const (
	ctrl1RateMask  byte = 0x80 // 0: 100Hz, 1: 400Hz
	ctrl1Active    byte = 0x40 // 0: power down, 1: active
	ctrl1ScaleMask byte = 0x20 // 0: ±2g, 1: ±8g
	ctrl1SelfTestP byte = 0x10
	ctrl1SelfTestM byte = 0x08
	ctrl1ZEnable   byte = 0x04
	ctrl1YEnable   byte = 0x02
	ctrl1XEnable   byte = 0x01
)

// CTRL_REG2 bits.
const (
	ctrl2SPI3Wire    byte = 0x80 // 3-wire SPI, not supported by this driver
	ctrl2Boot        byte = 0x40 // Reload calibration from internal memory, self clearing
	ctrl2FilterData  byte = 0x10 // Route high-pass filtered data to the output registers
	ctrl2FilterFFWU2 byte = 0x08
	ctrl2FilterFFWU1 byte = 0x04
	ctrl2CutoffMask  byte = 0x03
)

// CTRL_REG3 bits.
const (
	ctrl3ActiveLow byte = 0x80 // Interrupt lines are active low
	ctrl3OpenDrain byte = 0x40 // Interrupt lines are open drain
	ctrl3Int2Shift uint = 3    // I2CFG2..0
	ctrl3IntMask   byte = 0x07 // I1CFG2..0
)

// STATUS_REG bits.
const (
	statusZYXOverrun byte = 0x80
	statusZOverrun   byte = 0x40
	statusYOverrun   byte = 0x20
	statusXOverrun   byte = 0x10
	statusZYXReady   byte = 0x08
	statusZReady     byte = 0x04
	statusYReady     byte = 0x02
	statusXReady     byte = 0x01
)

// FF_WU_CFG bits. FF_WU_SRC uses the same axis layout with bit 6 as the
// global "interrupt active" flag.
const (
	ffwuCfgAnd   byte = 0x80 // AND combination of enabled events instead of OR
	ffwuCfgLatch byte = 0x40 // Latch the interrupt until the source register is read
	ffwuCfgZHigh byte = 0x20
	ffwuCfgZLow  byte = 0x10
	ffwuCfgYHigh byte = 0x08
	ffwuCfgYLow  byte = 0x04
	ffwuCfgXHigh byte = 0x02
	ffwuCfgXLow  byte = 0x01

	ffwuSrcActive byte = 0x40

	ffwuThsDecrement byte = 0x80 // Duration counter decrements instead of resetting
	ffwuThsMask      byte = 0x7F
)

// CLICK_CFG bits. CLICK_SRC uses the same layout with bit 6 as the global
// "interrupt active" flag.
const (
	clickCfgLatch   byte = 0x40
	clickCfgDoubleZ byte = 0x20
	clickCfgSingleZ byte = 0x10
	clickCfgDoubleY byte = 0x08
	clickCfgSingleY byte = 0x04
	clickCfgDoubleX byte = 0x02
	clickCfgSingleX byte = 0x01

	clickSrcActive byte = 0x40
)

// deviceID is the value WHO_AM_I reads on a genuine LIS302DL.
const deviceID byte = 0x3B
