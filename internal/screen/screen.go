// Package screen implements the host-side authoritative pixel store:
// a dirty-row tracked grid of RGB555 cells mediating between guest
// bitmap writes and the per-row wire updates the render path emits.
package screen

import (
	"fmt"
	"sync"

	"github.com/ssnover/megabit/internal/mgerr"
	"github.com/ssnover/megabit/internal/wire"
)

// Palette maps boolean drawing onto concrete RGB555 colors for
// monocolor apps.
type Palette struct {
	On  uint16
	Off uint16
}

// Row is a snapshot of one row's cells plus its dirty flag, returned
// by GetRow/GetRowRGB.
type Row struct {
	Cells []uint16
	Dirty bool
}

// Buffer is the process-internal mutable screen state. Dimensions are
// immutable once constructed. All operations are safe for concurrent
// use; the mutex is uncontended in practice since only the capability
// host and the render path touch it.
type Buffer struct {
	mu      sync.Mutex
	width   int
	height  int
	kind    wire.PixelKind
	cells   [][]uint16
	dirty   []bool
	palette Palette
}

// New constructs a Buffer of the given dimensions, initialized to all
// Off-palette (or zero, for RGB) cells.
func New(width, height int, kind wire.PixelKind) *Buffer {
	cells := make([][]uint16, height)
	for i := range cells {
		cells[i] = make([]uint16, width)
	}
	return &Buffer{
		width:  width,
		height: height,
		kind:   kind,
		cells:  cells,
		dirty:  make([]bool, height),
	}
}

// Width and Height are the buffer's immutable dimensions.
func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Kind reports whether the buffer is operating as monocolor or RGB555.
func (b *Buffer) Kind() wire.PixelKind { return b.kind }

func (b *Buffer) inBounds(row, col int) bool {
	return row >= 0 && row < b.height && col >= 0 && col < b.width
}

// SetCell palette-maps a boolean value and stores it, setting the
// row's dirty flag iff the resulting color differs from what was
// there before.
func (b *Buffer) SetCell(row, col int, on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inBounds(row, col) {
		return fmt.Errorf("%w: cell (%d,%d) out of bounds for %dx%d buffer", mgerr.ErrRangeViolation, row, col, b.width, b.height)
	}
	color := b.palette.Off
	if on {
		color = b.palette.On
	}
	b.setCellLocked(row, col, color)
	return nil
}

// SetCellRGB directly stores a 16-bit RGB555 value, setting the row's
// dirty flag iff the value differs from what was there before.
func (b *Buffer) SetCellRGB(row, col int, color uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inBounds(row, col) {
		return fmt.Errorf("%w: cell (%d,%d) out of bounds for %dx%d buffer", mgerr.ErrRangeViolation, row, col, b.width, b.height)
	}
	b.setCellLocked(row, col, color)
	return nil
}

func (b *Buffer) setCellLocked(row, col int, color uint16) {
	if b.cells[row][col] == color {
		return
	}
	b.cells[row][col] = color
	b.dirty[row] = true
}

// SetPalette replaces the monocolor palette and marks every row
// dirty, since previously-drawn "on" pixels must repaint under the
// new color.
func (b *Buffer) SetPalette(on, off uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.palette = Palette{On: on, Off: off}
	for i := range b.dirty {
		b.dirty[i] = true
	}
}

// Palette returns the buffer's current palette.
func (b *Buffer) Palette() Palette {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.palette
}

// GetRow returns a copy of a row's cells and its current dirty flag.
func (b *Buffer) GetRow(row int) (Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if row < 0 || row >= b.height {
		return Row{}, fmt.Errorf("%w: row %d out of bounds for height %d", mgerr.ErrRangeViolation, row, b.height)
	}
	cells := make([]uint16, b.width)
	copy(cells, b.cells[row])
	return Row{Cells: cells, Dirty: b.dirty[row]}, nil
}

// GetRowRGB is an alias for GetRow kept to mirror spec.go §4.5's
// naming of both the monocolor and RGB accessors; the representation
// is identical since cells always store RGB555 internally.
func (b *Buffer) GetRowRGB(row int) (Row, error) { return b.GetRow(row) }

// ClearDirtyStatus resets all rows' dirty flags to clean.
func (b *Buffer) ClearDirtyStatus() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.dirty {
		b.dirty[i] = false
	}
}

// WriteRegion performs a bulk write of packed monocolor bits into the
// sub-rectangle (x,y)-(x+w,y+h). packed is row-major, MSB-first within
// each byte, ceil(w/8) bytes per row.
func (b *Buffer) WriteRegion(x, y, w, h int, packed []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > b.width || y+h > b.height {
		return fmt.Errorf("%w: region (%d,%d)+(%d,%d) out of bounds for %dx%d buffer", mgerr.ErrRangeViolation, x, y, w, h, b.width, b.height)
	}
	stride := (w + 7) / 8
	if len(packed) < stride*h {
		return fmt.Errorf("%w: region payload too short: want %d bytes, got %d", mgerr.ErrRangeViolation, stride*h, len(packed))
	}
	for row := 0; row < h; row++ {
		rowBits := packed[row*stride : (row+1)*stride]
		for col := 0; col < w; col++ {
			byteIdx := col / 8
			bitIdx := uint(7 - col%8)
			on := (rowBits[byteIdx]>>bitIdx)&1 != 0
			color := b.palette.Off
			if on {
				color = b.palette.On
			}
			b.setCellLocked(y+row, x+col, color)
		}
	}
	return nil
}

// WriteRegionRGB performs a bulk write of RGB555 pixels (big-endian
// pairs) into the sub-rectangle (x,y)-(x+w,y+h).
func (b *Buffer) WriteRegionRGB(x, y, w, h int, packed []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > b.width || y+h > b.height {
		return fmt.Errorf("%w: region (%d,%d)+(%d,%d) out of bounds for %dx%d buffer", mgerr.ErrRangeViolation, x, y, w, h, b.width, b.height)
	}
	if len(packed) < 2*w*h {
		return fmt.Errorf("%w: region payload too short: want %d bytes, got %d", mgerr.ErrRangeViolation, 2*w*h, len(packed))
	}
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			idx := 2 * (row*w + col)
			color := uint16(packed[idx])<<8 | uint16(packed[idx+1])
			b.setCellLocked(y+row, x+col, color)
		}
	}
	return nil
}
