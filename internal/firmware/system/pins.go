package system

import (
	"github.com/warthog618/go-gpiocdev"
)

// gpiocdevOutputPin adapts a requested output gpiocdev.Line to Pin.
type gpiocdevOutputPin struct {
	line *gpiocdev.Line
}

func (p gpiocdevOutputPin) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return p.line.SetValue(v)
}

// gpiocdevInputPin adapts a requested input gpiocdev.Line to InputPin.
type gpiocdevInputPin struct {
	line *gpiocdev.Line
}

func (p gpiocdevInputPin) Read() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// OpenGpiocdevOutputPin requests offset on chip as an output line.
func OpenGpiocdevOutputPin(chip string, offset int) (Pin, func() error, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, nil, err
	}
	return gpiocdevOutputPin{line: line}, line.Close, nil
}

// OpenGpiocdevInputPin requests offset on chip as an input line, with
// a pull-up so an unpressed button reads high.
func OpenGpiocdevInputPin(chip string, offset int) (InputPin, func() error, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, nil, err
	}
	return gpiocdevInputPin{line: line}, line.Close, nil
}
