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

// lis302dl-read reads a LIS302DL accelerometer and prints the samples.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/lis302dl"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func mainImpl() error {
	spiID := flag.String("spi", "", "SPI port to use, the first available when empty")
	csName := flag.String("cs", "", "GPIO acting as chip select when the port has none")
	rate := flag.Int("rate", 400, "output data rate in Hz, 100 or 400")
	g8 := flag.Bool("g8", false, "measure over ±8g instead of ±2g")
	interval := flag.Duration("interval", 100*time.Millisecond, "time between readings")
	count := flag.Int("n", 0, "number of readings, 0 to run until interrupted")
	raw := flag.Bool("raw", false, "print raw counts instead of accelerations")
	status := flag.Bool("status", false, "print the status flags with every reading")
	selfTest := flag.Bool("selftest", false, "run the electrostatic self test and exit")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected arguments")
	}

	opts := lis302dl.DefaultOpts
	switch *rate {
	case 400:
	case 100:
		opts.Rate = lis302dl.Rate100Hz
	default:
		return fmt.Errorf("unsupported data rate %dHz", *rate)
	}
	if *g8 {
		opts.Range = lis302dl.Range8G
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	p, err := spireg.Open(*spiID)
	if err != nil {
		return err
	}
	defer p.Close()
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

	if *selfTest {
		return runSelfTest(d)
	}
	if *raw {
		return readRaw(d, *interval, *count, *status)
	}
	c, err := d.SenseContinuous(*interval)
	if err != nil {
		return err
	}
	for i := 0; *count == 0 || i < *count; i++ {
		s := <-c
		if *status {
			st, err := d.Status()
			if err != nil {
				return err
			}
			fmt.Printf("%s  [%s]\n", s, st)
		} else {
			fmt.Println(s)
		}
	}
	return d.Halt()
}

func readRaw(d *lis302dl.Dev, interval time.Duration, count int, status bool) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for i := 0; count == 0 || i < count; i++ {
		var r lis302dl.RawSample
		if err := d.SenseRaw(&r); err != nil {
			return err
		}
		if status {
			st, err := d.Status()
			if err != nil {
				return err
			}
			fmt.Printf("%s  [%s]\n", r, st)
		} else {
			fmt.Println(r)
		}
		<-t.C
	}
	return d.Halt()
}

// runSelfTest compares readings taken with the actuation off and on. On a
// good part the outputs shift by the actuation offsets from the datasheet,
// well clear of the noise floor.
func runSelfTest(d *lis302dl.Dev) error {
	settled := func() (lis302dl.Sample, error) {
		time.Sleep(30 * time.Millisecond)
		var s lis302dl.Sample
		err := d.Sense(&s)
		return s, err
	}
	base, err := settled()
	if err != nil {
		return err
	}
	if err := d.SetSelfTest(lis302dl.SelfTestPositive); err != nil {
		return err
	}
	actuated, err := settled()
	if err != nil {
		return err
	}
	if err := d.SetSelfTest(lis302dl.SelfTestOff); err != nil {
		return err
	}
	fmt.Printf("baseline: %s\n", base)
	fmt.Printf("actuated: %s\n", actuated)
	fmt.Printf("shift:    X:%s Y:%s Z:%s\n", actuated.X-base.X, actuated.Y-base.Y, actuated.Z-base.Z)
	return d.Halt()
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "lis302dl-read: %s.\n", err)
		os.Exit(1)
	}
}
