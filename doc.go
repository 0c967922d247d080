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

// Package lis302dl controls an STMicroelectronics LIS302DL three axis MEMS
// accelerometer over SPI.
//
// The device measures ±2g or ±8g at 100Hz or 400Hz with 8 bit precision.
// Beyond plain readings it detects free-fall, wake-up and single or double
// click events with independently programmable detection units, and routes
// any of them to two interrupt pins.
//
// The device also speaks I²C and 3 wire SPI; this driver only implements
// the 4 wire SPI interface.
//
// Datasheet
//
// https://www.st.com/resource/en/datasheet/lis302dl.pdf
package lis302dl
