package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePin records every Set call.
type fakePin struct {
	sets []bool
}

func (p *fakePin) Set(high bool) error {
	p.sets = append(p.sets, high)
	return nil
}

func newFakeHUB75Pins(addressLines int) (HUB75Pins, map[string]*fakePin) {
	named := map[string]*fakePin{
		"r1": {}, "g1": {}, "b1": {},
		"r2": {}, "g2": {}, "b2": {},
		"clock": {}, "latch": {}, "oe": {},
	}
	pins := HUB75Pins{
		R1: named["r1"], G1: named["g1"], B1: named["b1"],
		R2: named["r2"], G2: named["g2"], B2: named["b2"],
		Clock: named["clock"], Latch: named["latch"], OutputEnable: named["oe"],
	}
	for i := 0; i < addressLines; i++ {
		addr := &fakePin{}
		named[addrKey(i)] = addr
		pins.Address = append(pins.Address, addr)
	}
	return pins, named
}

func addrKey(i int) string {
	return "addr" + string(rune('A'+i))
}

func TestHUB75SetRowRejectsOutOfRange(t *testing.T) {
	pins, _ := newFakeHUB75Pins(1)
	d := NewHUB75Driver(pins, 4, 2)
	assert.Error(t, d.SetRow(-1, nil))
	assert.Error(t, d.SetRow(4, nil))
}

func TestHUB75SetRowThenRenderReadsBackBuffer(t *testing.T) {
	pins, _ := newFakeHUB75Pins(1)
	d := NewHUB75Driver(pins, 4, 2)
	require.NoError(t, d.SetRow(0, []uint16{0x7FFF, 0}))
	require.NoError(t, d.SetRow(2, []uint16{0, 0x7FFF}))

	require.NoError(t, d.RenderFrame())
}

func TestHUB75RenderFramePulsesClockOncePerColumnPerStep(t *testing.T) {
	pins, named := newFakeHUB75Pins(1)
	cols := 3
	d := NewHUB75Driver(pins, 2, cols)

	require.NoError(t, d.RenderFrame())

	// one row pair (rows 0/1 -> address 0), pwmSteps scans, cols pulses each
	assert.Len(t, named["clock"].sets, pwmSteps*cols*2)
	assert.Len(t, named["latch"].sets, pwmSteps*2)
}

func TestHUB75ShiftColumnLightsChannelOnlyAboveStepThreshold(t *testing.T) {
	pins, named := newFakeHUB75Pins(0)
	d := NewHUB75Driver(pins, 2, 1)

	// full-intensity red (0x1F << 10), everything else off
	require.NoError(t, d.SetRow(0, []uint16{0x1F << 10}))
	require.NoError(t, d.RenderFrame())

	// Intensity 0x1F exceeds every PWM step (0..15), so R1 must have
	// been set high; G1 must never be.
	var sawHigh bool
	for _, v := range named["r1"].sets {
		if v {
			sawHigh = true
		}
	}
	assert.True(t, sawHigh)
	for _, v := range named["g1"].sets {
		assert.False(t, v)
	}
}
