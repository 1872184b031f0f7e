package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSPIConn records every Tx call's write buffer as its own copy,
// standing in for a real periph.io SPI port.
type fakeSPIConn struct {
	writes [][]byte
}

func (c *fakeSPIConn) Tx(w, r []byte) error {
	c.writes = append(c.writes, append([]byte(nil), w...))
	return nil
}

func TestDotMatrixInitWritesFixedStartupSequence(t *testing.T) {
	fake := &fakeSPIConn{}
	d := NewDotMatrixDriver(fake)
	require.NoError(t, d.Init())

	require.Len(t, fake.writes, 5)
	for _, w := range fake.writes {
		assert.Len(t, w, 2*totalChips)
	}
	// Every byte pair in the final ("leave shutdown") step must carry
	// the same register and data for every chained chip.
	last := fake.writes[len(fake.writes)-1]
	for i := 0; i < totalChips; i++ {
		assert.Equal(t, byte(regShutdown), last[2*i])
		assert.Equal(t, byte(0x01), last[2*i+1])
	}
}

func TestDotMatrixWriteRowAddressesOnlyOwningModule(t *testing.T) {
	fake := &fakeSPIConn{}
	d := NewDotMatrixDriver(fake)

	require.NoError(t, d.WriteRow(0, []byte{0x01, 0x02, 0x03, 0x04}))
	require.Len(t, fake.writes, 1)

	w := fake.writes[0]
	require.Len(t, w, 2*totalChips)
	for chip := 0; chip < totalChips; chip++ {
		reg := w[2*(totalChips-1-chip)]
		if chip < chipsPerModule {
			assert.Equal(t, byte(regDigit0), reg)
		} else {
			assert.Equal(t, byte(regNoOp), reg)
		}
	}
}

func TestDotMatrixWriteRowRejectsOutOfRangeRow(t *testing.T) {
	fake := &fakeSPIConn{}
	d := NewDotMatrixDriver(fake)
	assert.Error(t, d.WriteRow(PanelRows, nil))
}
