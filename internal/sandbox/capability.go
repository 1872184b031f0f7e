package sandbox

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/ssnover/megabit/internal/hostconn"
	"github.com/ssnover/megabit/internal/mgerr"
	"github.com/ssnover/megabit/internal/screen"
	"github.com/ssnover/megabit/internal/wire"
	"github.com/ssnover/megabit/pkg/log"
)

// Capabilities is the set of host functions imported into exactly one
// running app's WASM instance. It holds that app's screen buffer
// handle, its own key-value store, the shared transport facade, and
// the console event publisher.
type Capabilities struct {
	appName string
	screen  *screen.Buffer
	conn    *hostconn.Conn
	kv      *kvStore
	events  EventPublisher
	log     log.Logger
}

func newCapabilities(appName string, buf *screen.Buffer, conn *hostconn.Conn, events EventPublisher, logger log.Logger) *Capabilities {
	if events == nil {
		events = noopEventPublisher{}
	}
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Capabilities{
		appName: appName,
		screen:  buf,
		conn:    conn,
		kv:      newKvStore(),
		events:  events,
		log:     logger.With("app", appName),
	}
}

// instantiateHostModule registers every capability import under the
// "env" module name, the one the guest-side SDK links against.
func (c *Capabilities) instantiateHostModule(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	return rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(c.writeRegion).Export("write_region").
		NewFunctionBuilder().WithFunc(c.writeRegionRGB).Export("write_region_rgb").
		NewFunctionBuilder().WithFunc(c.render).Export("render").
		NewFunctionBuilder().WithFunc(c.setMonocolorPalette).Export("set_monocolor_palette").
		NewFunctionBuilder().WithFunc(c.getDisplayInfo).Export("get_display_info").
		NewFunctionBuilder().WithFunc(c.kvRead).Export("kv_read").
		NewFunctionBuilder().WithFunc(c.kvWrite).Export("kv_write").
		NewFunctionBuilder().WithFunc(c.logLine).Export("log").
		Instantiate(ctx)
}

// mustOK panics (trapping the calling guest instance) when a
// capability's underlying operation failed. Host function failures
// are not recoverable by guest code, matching the scheduler's
// trap-abandons-the-app policy.
func mustOK(err error) {
	if err != nil {
		panic(err)
	}
}

func mustStatus(status wire.Status, err error) {
	mustOK(err)
	if status != wire.StatusSuccess {
		panic(fmt.Errorf("%w: firmware returned %s", mgerr.ErrCommandFailure, status))
	}
}

func readMemory(mod api.Module, ptr, length uint32) []byte {
	buf, ok := mod.Memory().Read(ptr, length)
	if !ok {
		panic(fmt.Errorf("sandbox: guest memory read out of range: ptr=%d len=%d", ptr, length))
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}

func writeMemory(mod api.Module, ptr uint32, data []byte) {
	if !mod.Memory().Write(ptr, data) {
		panic(fmt.Errorf("sandbox: guest memory write out of range: ptr=%d len=%d", ptr, len(data)))
	}
}

// writeRegion is the monocolor region-write import: a bit-packed,
// row-stride, MSB-first payload matching screen.Buffer.WriteRegion.
func (c *Capabilities) writeRegion(_ context.Context, mod api.Module, x, y, w, h, ptr, length uint32) {
	data := readMemory(mod, ptr, length)
	mustOK(c.screen.WriteRegion(int(x), int(y), int(w), int(h), data))
}

// writeRegionRGB is the RGB555 region-write import: big-endian pixel
// pairs, row-major, matching screen.Buffer.WriteRegionRGB.
func (c *Capabilities) writeRegionRGB(_ context.Context, mod api.Module, x, y, w, h, ptr, length uint32) {
	data := readMemory(mod, ptr, length)
	mustOK(c.screen.WriteRegionRGB(int(x), int(y), int(w), int(h), data))
}

// render walks the row numbers at (ptr, length), sends a wire row
// update for each dirty one in the buffer's current pixel kind,
// clears dirty flags, commits the render, and publishes a console
// event. Any firmware failure along the way traps the guest — there
// is no buffered retry.
func (c *Capabilities) render(_ context.Context, mod api.Module, ptr, length uint32) {
	rows := readMemory(mod, ptr, length)
	palette := c.screen.Palette()

	for _, rowByte := range rows {
		row := int(rowByte)
		if c.screen.Kind() == wire.PixelKindRGB555 {
			r, err := c.screen.GetRowRGB(row)
			mustOK(err)
			if !r.Dirty {
				continue
			}
			status, err := c.conn.UpdateRowRgb(uint8(row), r.Cells)
			mustStatus(status, err)
			continue
		}

		r, err := c.screen.GetRow(row)
		mustOK(err)
		if !r.Dirty {
			continue
		}
		bits, bitLength := packMonocolorRow(r.Cells, palette)
		status, err := c.conn.UpdateRow(uint8(row), bitLength, bits)
		mustStatus(status, err)
	}

	c.screen.ClearDirtyStatus()
	status, err := c.conn.RequestCommitRender()
	mustStatus(status, err)
	c.events.PublishCommitRender(c.appName)
}

// packMonocolorRow packs a row of resolved RGB555 cells back into the
// boolean bitfield UpdateRow carries, using equality with the current
// on-color to recover the bit a guest last drew.
func packMonocolorRow(cells []uint16, palette screen.Palette) ([]byte, uint8) {
	bits := make([]byte, (len(cells)+7)/8)
	for i, cell := range cells {
		if cell == palette.On {
			bits[i/8] |= 1 << uint(7-i%8)
		}
	}
	return bits, uint8(len(cells))
}

func (c *Capabilities) setMonocolorPalette(_ context.Context, _ api.Module, on, off uint32) {
	c.screen.SetPalette(uint16(on), uint16(off))
	status, err := c.conn.SetMonocolorPalette(uint16(on))
	mustStatus(status, err)
}

func (c *Capabilities) getDisplayInfo(_ context.Context, mod api.Module, outPtr uint32) {
	out := make([]byte, 9)
	binary.BigEndian.PutUint32(out[0:], uint32(c.screen.Width()))
	binary.BigEndian.PutUint32(out[4:], uint32(c.screen.Height()))
	out[8] = byte(c.screen.Kind())
	writeMemory(mod, outPtr, out)
}

// kvRead copies at most outCap bytes of the stored value into the
// guest's buffer at outPtr and returns the value's true length, so a
// guest can detect truncation and re-call with a bigger buffer.
func (c *Capabilities) kvRead(_ context.Context, mod api.Module, keyPtr, keyLen, outPtr, outCap uint32) uint32 {
	key := string(readMemory(mod, keyPtr, keyLen))
	value := c.kv.read(key)
	n := uint32(len(value))
	writeN := n
	if writeN > outCap {
		writeN = outCap
	}
	writeMemory(mod, outPtr, value[:writeN])
	return n
}

func (c *Capabilities) kvWrite(_ context.Context, mod api.Module, keyPtr, keyLen, valPtr, valLen uint32) {
	key := string(readMemory(mod, keyPtr, keyLen))
	value := readMemory(mod, valPtr, valLen)
	c.kv.write(key, value)
}

func (c *Capabilities) logLine(_ context.Context, mod api.Module, level uint32, linePtr, lineLen uint32) {
	line := string(readMemory(mod, linePtr, lineLen))
	c.log.Log(log.Level(level), line)
}
