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
	"strings"
)

// Acceleration is a measurement of proper acceleration as felt by the
// sensor, stored as an int64 fixed point value in nano standard gravity.
//
// periph.io/x/conn/v3/physic does not define an acceleration quantity, so
// this package declares one following the same conventions as the physic
// unit types.
type Acceleration int64

const (
	NanoG  Acceleration = 1
	MicroG Acceleration = 1000 * NanoG
	MilliG Acceleration = 1000 * MicroG
	G      Acceleration = 1000 * MilliG
)

// Gravity returns the value as a floating point multiple of standard
// gravity.
func (a Acceleration) Gravity() float64 {
	return float64(a) / float64(G)
}

func (a Acceleration) String() string {
	return nanoAsString(int64(a)) + "g"
}

// Sensitivity of one output count for each measurement range: the typical
// measured span (±2.3g and ±9.2g) over the 8 bit output. 4.6g/256 and
// 18.4g/256 are exact in nano standard gravity, and land on the 18mg and
// 72mg per digit the datasheet quotes.
const (
	sensitivity2G Acceleration = 17968750 * NanoG
	sensitivity8G Acceleration = 71875000 * NanoG
)

// Sample is a decoded three axis acceleration measurement.
type Sample struct {
	X Acceleration
	Y Acceleration
	Z Acceleration
}

func (s Sample) String() string {
	return fmt.Sprintf("X:%s Y:%s Z:%s", s.X, s.Y, s.Z)
}

// RawSample is a three axis measurement as read from the output registers,
// one two's complement count per axis.
type RawSample struct {
	X int8
	Y int8
	Z int8
}

func (r RawSample) String() string {
	return fmt.Sprintf("X:%d Y:%d Z:%d", r.X, r.Y, r.Z)
}

// scale converts raw counts to an acceleration at the given sensitivity.
func scale(count int8, sensitivity Acceleration) Acceleration {
	return Acceleration(count) * sensitivity
}

// nanoAsString formats a nano unit fixed point value with an SI prefix, in
// the manner of the physic package formatters. Up to three decimals are
// printed, trailing zeros are dropped.
func nanoAsString(v int64) string {
	if v == 0 {
		return "0"
	}
	sign := ""
	if v < 0 {
		if v == -9223372036854775808 {
			v++
		}
		sign = "-"
		v = -v
	}
	prefix := ""
	base := int64(1)
	switch {
	case v >= 1000000000:
		base = 1000000000
	case v >= 1000000:
		prefix, base = "m", 1000000
	case v >= 1000:
		prefix, base = "µ", 1000
	default:
		prefix = "n"
	}
	whole := v / base
	frac := (v%base*1000 + base/2) / base
	if frac >= 1000 {
		whole++
		frac = 0
	}
	if frac == 0 {
		return fmt.Sprintf("%s%d%s", sign, whole, prefix)
	}
	dec := strings.TrimRight(fmt.Sprintf("%03d", frac), "0")
	return fmt.Sprintf("%s%d.%s%s", sign, whole, dec, prefix)
}
