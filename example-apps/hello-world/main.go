// Command hello-world is a minimal Megabit app: it draws a fixed
// smiley-face bitmap once in setup and re-renders it every tick. It
// is meant to be compiled with TinyGo's wasm target, not run
// directly:
//
//	tinygo build -o example-apps/hello-world/hello-world.wasm -target=wasi ./example-apps/hello-world
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
//export log
func hostLog(level, linePtr, lineLen uint32)

const (
	width  = 8
	height = 8
)

// smiley is a row-stride-packed, MSB-first 8x8 bitmap: one byte per
// row, matching write_region's monocolor payload format.
var smiley = [height]byte{
	0b00111100,
	0b01000010,
	0b10100101,
	0b10000001,
	0b10100101,
	0b10011001,
	0b01000010,
	0b00111100,
}

var allRows [height]byte

func init() {
	for i := range allRows {
		allRows[i] = byte(i)
	}
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

//export setup
func setup() {
	setMonocolorPalette(0x7FFF, 0x0000)
	writeRegion(0, 0, width, height, ptrOf(smiley[:]), uint32(len(smiley)))
	logLine("hello-world: smiley drawn")
}

//export run
func run() {
	render(ptrOf(allRows[:]), uint32(len(allRows)))
}

func main() {}
