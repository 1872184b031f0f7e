package display

import (
	"github.com/warthog618/go-gpiocdev"
)

// Pin is the narrow capability the HUB-75 render loop needs from each
// of its logical output lines. The concrete MCU family decides how
// Set reaches the hardware; the driver depends on nothing else.
type Pin interface {
	Set(high bool) error
}

// gpiocdevPin adapts one requested gpiocdev.Line to Pin.
type gpiocdevPin struct {
	line *gpiocdev.Line
}

func (p gpiocdevPin) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return p.line.SetValue(v)
}

// HUB75PinOffsets names the gpiochip line offset backing each of the
// panel's thirteen-plus logical pins: six color lines (two RGB
// triples, one per scanned half), clock, latch, output-enable, and
// however many row-address lines the panel needs.
type HUB75PinOffsets struct {
	R1, G1, B1                 int
	R2, G2, B2                 int
	Clock, Latch, OutputEnable int
	Address                    []int
}

// OpenGpiocdevPins requests every offset in offsets as an output line
// on chip and returns the assembled HUB75Pins plus a closer that
// releases all of them.
func OpenGpiocdevPins(chip string, offsets HUB75PinOffsets) (HUB75Pins, func() error, error) {
	var lines []*gpiocdev.Line
	closeAll := func() error {
		var firstErr error
		for _, l := range lines {
			if err := l.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	open := func(offset int) (Pin, error) {
		line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
		if err != nil {
			closeAll()
			return nil, err
		}
		lines = append(lines, line)
		return gpiocdevPin{line: line}, nil
	}

	var pins HUB75Pins
	var err error
	for _, target := range []struct {
		dst    *Pin
		offset int
	}{
		{&pins.R1, offsets.R1}, {&pins.G1, offsets.G1}, {&pins.B1, offsets.B1},
		{&pins.R2, offsets.R2}, {&pins.G2, offsets.G2}, {&pins.B2, offsets.B2},
		{&pins.Clock, offsets.Clock}, {&pins.Latch, offsets.Latch}, {&pins.OutputEnable, offsets.OutputEnable},
	} {
		if *target.dst, err = open(target.offset); err != nil {
			return HUB75Pins{}, nil, err
		}
	}
	for _, off := range offsets.Address {
		pin, err := open(off)
		if err != nil {
			return HUB75Pins{}, nil, err
		}
		pins.Address = append(pins.Address, pin)
	}

	return pins, closeAll, nil
}
