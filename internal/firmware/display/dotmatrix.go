// Package display implements the two concrete panel drivers behind
// the coprocessor's display command handler: a daisy-chained
// MAX7219-style monocolor dot-matrix panel over SPI, and a two-panel
// HUB-75 RGB matrix over GPIO.
package display

import (
	"fmt"

	"periph.io/x/periph/conn"
)

// MAX7219-style control registers. Every chained chip understands the
// same register set; only the data byte differs per chip.
const (
	regNoOp        = 0x00
	regDigit0      = 0x01 // rows 1..7 follow sequentially from here
	regDecodeMode  = 0x09
	regIntensity   = 0x0A
	regScanLimit   = 0x0B
	regShutdown    = 0x0C
	regDisplayTest = 0x0F
)

const (
	modulesStacked = 2 // two 8x32 modules stacked to make a 16-row panel
	rowsPerModule  = 8
	chipsPerModule = 4 // each module is itself four daisy-chained 8x8 chips
	totalChips     = modulesStacked * chipsPerModule
	PanelRows      = modulesStacked * rowsPerModule
	PanelCols      = chipsPerModule * 8
)

// DotMatrixDriver drives the full daisy chain over a single SPI
// connection. Every Tx call addresses all eight chained chips at
// once: chips that aren't relevant to the current operation are sent
// a no-op pair so the shift register still has the right number of
// bytes to latch correctly.
type DotMatrixDriver struct {
	conn conn.Conn
}

// NewDotMatrixDriver wraps an already-opened SPI connection.
func NewDotMatrixDriver(c conn.Conn) *DotMatrixDriver {
	return &DotMatrixDriver{conn: c}
}

// Init runs the fixed startup sequence every chip in the chain needs:
// disable test mode, scan all 8 digits, disable BCD decode, set a
// fixed brightness, then leave shutdown mode.
func (d *DotMatrixDriver) Init() error {
	steps := []struct{ reg, data byte }{
		{regDisplayTest, 0x00},
		{regScanLimit, 0x07},
		{regDecodeMode, 0x00},
		{regIntensity, 0x03},
		{regShutdown, 0x01},
	}
	for _, s := range steps {
		if err := d.broadcast(s.reg, s.data); err != nil {
			return fmt.Errorf("firmware/display: dot-matrix init: %w", err)
		}
	}
	return nil
}

func (d *DotMatrixDriver) broadcast(reg, data byte) error {
	w := make([]byte, 0, 2*totalChips)
	for i := 0; i < totalChips; i++ {
		w = append(w, reg, data)
	}
	return d.conn.Tx(w, nil)
}

// WriteRow pushes one row's packed on/off bits out to the chip(s)
// that own it. Rows 0..7 belong to the first stacked module, 8..15 to
// the second; within a module, bits is one byte per chained chip
// (PanelCols/8 bytes), MSB first per column.
func (d *DotMatrixDriver) WriteRow(row uint8, bits []byte) error {
	if int(row) >= PanelRows {
		return fmt.Errorf("firmware/display: row %d out of range for %d-row panel", row, PanelRows)
	}
	module := int(row) / rowsPerModule
	digit := regDigit0 + byte(int(row)%rowsPerModule)

	w := make([]byte, 0, 2*totalChips)
	// Chips are addressed in daisy-chain shift order: data for the
	// chip furthest from the controller must be shifted in first so it
	// arrives at the right position once every chip has latched.
	for chip := totalChips - 1; chip >= 0; chip-- {
		if chip/chipsPerModule != module {
			w = append(w, regNoOp, 0x00)
			continue
		}
		byteIdx := chip % chipsPerModule
		var data byte
		if byteIdx < len(bits) {
			data = bits[byteIdx]
		}
		w = append(w, digit, data)
	}
	return d.conn.Tx(w, nil)
}
