// Command game-of-life is a Megabit app that seeds a fixed pattern (two
// gliders and a blinker) in setup and advances Conway's Game of Life by
// one generation on every tick. It is meant to be compiled with TinyGo's
// wasm target, not run directly:
//
//	tinygo build -o example-apps/game-of-life/game-of-life.wasm -target=wasi ./example-apps/game-of-life
package main

import "unsafe"

//go:wasm-module env
//export write_region
func writeRegion(x, y, w, h, ptr, length uint32)

//go:wasm-module env
//export render
func render(ptr, length uint32)

//go:wasm-module env
//export set_monocolor_palette
func setMonocolorPalette(on, off uint32)

//go:wasm-module env
//export get_display_info
func getDisplayInfo(outPtr uint32)

//go:wasm-module env
//export kv_read
func kvRead(keyPtr, keyLen, outPtr, outCap uint32) uint32

//go:wasm-module env
//export kv_write
func kvWrite(keyPtr, keyLen, valPtr, valLen uint32)

//go:wasm-module env
//export log
func hostLog(level, linePtr, lineLen uint32)

var (
	width, height int
	stride        int
	board, scratch []bool
	packed         []byte
	dirtyRows      []byte
	generation     uint32
)

const generationKey = "generation"

//export setup
func setup() {
	var info [9]byte
	getDisplayInfo(ptrOf(info[:]))
	width = int(beUint32(info[0:4]))
	height = int(beUint32(info[4:8]))
	stride = (width + 7) / 8

	board = make([]bool, width*height)
	scratch = make([]bool, width*height)
	packed = make([]byte, stride*height)
	dirtyRows = make([]byte, height)
	for i := range dirtyRows {
		dirtyRows[i] = byte(i)
	}

	setMonocolorPalette(0x7FFF, 0x0000)
	seedGlider(0, 0)
	seedGlider(width/2, height/2)
	seedBlinker(2, height - 4)

	generation = resumeGeneration()
	drawBoard()
	logLine("game-of-life: board seeded")
}

//export run
func run() {
	step()
	drawBoard()
	generation++
	persistGeneration(generation)
}

// step advances board by one generation into scratch under toroidal
// wraparound, then swaps the two buffers.
func step() {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			n := liveNeighbors(x, y)
			alive := board[y*width+x]
			scratch[y*width+x] = (alive && (n == 2 || n == 3)) || (!alive && n == 3)
		}
	}
	board, scratch = scratch, board
}

func liveNeighbors(x, y int) int {
	count := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := (x + dx + width) % width
			ny := (y + dy + height) % height
			if board[ny*width+nx] {
				count++
			}
		}
	}
	return count
}

// drawBoard packs the live board into write_region's row-stride,
// MSB-first format and pushes the whole region in one call.
func drawBoard() {
	for i := range packed {
		packed[i] = 0
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !board[y*width+x] {
				continue
			}
			byteIdx := y*stride + x/8
			bitIdx := uint(7 - x%8)
			packed[byteIdx] |= 1 << bitIdx
		}
	}
	writeRegion(0, 0, uint32(width), uint32(height), ptrOf(packed), uint32(len(packed)))
	render(ptrOf(dirtyRows), uint32(len(dirtyRows)))
}

func seedGlider(ox, oy int) {
	cells := [][2]int{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}
	for _, c := range cells {
		setCell(ox+c[0], oy+c[1])
	}
}

func seedBlinker(ox, oy int) {
	for i := 0; i < 3; i++ {
		setCell(ox+i, oy)
	}
}

func setCell(x, y int) {
	if x < 0 || y < 0 || x >= width || y >= height {
		return
	}
	board[y*width+x] = true
}

// resumeGeneration reads back a previously persisted generation
// counter, starting fresh at zero when nothing has been stored yet.
func resumeGeneration() uint32 {
	key := []byte(generationKey)
	var out [4]byte
	n := kvRead(ptrOf(key), uint32(len(key)), ptrOf(out[:]), uint32(len(out)))
	if n != uint32(len(out)) {
		return 0
	}
	return beUint32(out[:])
}

func persistGeneration(gen uint32) {
	key := []byte(generationKey)
	var val [4]byte
	putBeUint32(val[:], gen)
	kvWrite(ptrOf(key), uint32(len(key)), ptrOf(val[:]), uint32(len(val)))
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBeUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func ptrOf(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}

func logLine(msg string) {
	b := []byte(msg)
	hostLog(2 /* LevelInfo */, ptrOf(b), uint32(len(b)))
}

func main() {}
