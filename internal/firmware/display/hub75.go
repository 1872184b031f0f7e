package display

import (
	"fmt"
	"sync"
)

// HUB75Pins is the fixed set of thirteen-plus logical output lines a
// HUB75 driver needs. This takes the place of the per-MCU-family
// pin-type template the original firmware used: the concrete MCU
// family picks a Pin implementation, and the driver below depends on
// nothing but the capability set.
type HUB75Pins struct {
	R1, G1, B1   Pin
	R2, G2, B2   Pin
	Clock        Pin
	Latch        Pin
	OutputEnable Pin
	Address      []Pin // address lines, least significant first
}

// pwmSteps is the number of software-PWM brightness steps a frame is
// split into.
const pwmSteps = 1 << 4

// HUB75Driver renders an RGB555 pixel buffer onto a two-sub-panel
// HUB75 matrix using software brightness PWM: each frame is scanned
// pwmSteps times, and a channel stays lit only while its intensity
// exceeds the current step.
type HUB75Driver struct {
	pins HUB75Pins
	rows int
	cols int

	mu     sync.Mutex
	pixels [][]uint16 // rows x cols, RGB555
}

// NewHUB75Driver allocates a driver for a rows x cols panel scanned
// as two halves (row r and row r+rows/2 driven together).
func NewHUB75Driver(pins HUB75Pins, rows, cols int) *HUB75Driver {
	pixels := make([][]uint16, rows)
	for i := range pixels {
		pixels[i] = make([]uint16, cols)
	}
	return &HUB75Driver{pins: pins, rows: rows, cols: cols, pixels: pixels}
}

// SetRow overwrites one row of the pixel buffer. It is the only
// mutation the display command handler performs; render and command
// handling can run concurrently because both only ever hold mu for a
// single row's worth of work.
func (d *HUB75Driver) SetRow(row int, values []uint16) error {
	if row < 0 || row >= d.rows {
		return fmt.Errorf("firmware/display: row %d out of range for %dx%d panel", row, d.cols, d.rows)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.pixels[row], values)
	return nil
}

// RenderFrame drives one full software-PWM frame: every address line
// value is scanned pwmSteps times, each time shifting out the whole
// row pair and pulsing latch and output-enable once.
func (d *HUB75Driver) RenderFrame() error {
	halfRows := d.rows / 2
	for step := 0; step < pwmSteps; step++ {
		for addr := 0; addr < halfRows; addr++ {
			top, bottom := d.rowPair(addr)

			for col := 0; col < d.cols; col++ {
				if err := d.shiftColumn(top[col], bottom[col], step); err != nil {
					return err
				}
				if err := d.pulse(d.pins.Clock); err != nil {
					return err
				}
			}
			if err := d.setAddress(addr); err != nil {
				return err
			}
			// Output must be disabled while the new row latches, or the
			// panel briefly shows the previous row's data at the new
			// address (ghosting).
			if err := d.pins.OutputEnable.Set(true); err != nil {
				return err
			}
			if err := d.pulse(d.pins.Latch); err != nil {
				return err
			}
			if err := d.pins.OutputEnable.Set(false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *HUB75Driver) rowPair(addr int) (top, bottom []uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	top = append([]uint16(nil), d.pixels[addr]...)
	bottom = append([]uint16(nil), d.pixels[addr+d.rows/2]...)
	return top, bottom
}

func (d *HUB75Driver) setAddress(addr int) error {
	for i, pin := range d.pins.Address {
		if err := pin.Set(addr&(1<<uint(i)) != 0); err != nil {
			return err
		}
	}
	return nil
}

func (d *HUB75Driver) pulse(pin Pin) error {
	if err := pin.Set(true); err != nil {
		return err
	}
	return pin.Set(false)
}

func (d *HUB75Driver) shiftColumn(top, bottom uint16, step int) error {
	tr, tg, tb := unpackRGB555(top)
	br, bg, bb := unpackRGB555(bottom)
	for _, c := range []struct {
		pin       Pin
		intensity int
	}{
		{d.pins.R1, tr}, {d.pins.G1, tg}, {d.pins.B1, tb},
		{d.pins.R2, br}, {d.pins.G2, bg}, {d.pins.B2, bb},
	} {
		if err := c.pin.Set(c.intensity > step); err != nil {
			return err
		}
	}
	return nil
}

// unpackRGB555 splits a big-endian-packed RGB555 value into its three
// 5-bit channels.
func unpackRGB555(p uint16) (r, g, b int) {
	r = int((p >> 10) & 0x1F)
	g = int((p >> 5) & 0x1F)
	b = int(p & 0x1F)
	return
}
