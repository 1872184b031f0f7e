// Package hostconn provides the typed request/reply API the rest of
// the host runtime (and, through internal/sandbox, guest apps) uses
// to talk to the coprocessor. Every method builds the request frame,
// submits it to the transport writer, and blocks on the inbox for the
// matching reply predicate with no timeout — the synchronous facade
// spec §4.4 calls for. Go has no colored async/await split, so unlike
// the original design there is a single blocking API here rather than
// separate awaitable/blocking method pairs: every Conn method already
// behaves like the "blocking flavor" the sandbox bridge needs, since
// an ordinary Go method call blocks only the calling goroutine.
package hostconn

import (
	"fmt"

	"github.com/ssnover/megabit/internal/mgerr"
	"github.com/ssnover/megabit/internal/transport"
	"github.com/ssnover/megabit/internal/wire"
)

// Conn is a thin request/reply facade over a transport.Transport.
type Conn struct {
	tr *transport.Transport
}

// New wraps an already-running transport.Transport.
func New(tr *transport.Transport) *Conn {
	return &Conn{tr: tr}
}

// request submits req and waits indefinitely for the first inbox
// entry matching want's opcode, received after submission.
func (c *Conn) request(req wire.Message, want wire.Opcode) (wire.Message, error) {
	if err := c.tr.Send(req); err != nil {
		return nil, fmt.Errorf("%w: %v", mgerr.ErrNotConnected, err)
	}
	reply, err := c.tr.Inbox().WaitForMessage(func(m wire.Message) bool {
		return m.Opcode() == want
	}, 0)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// UpdateRow sends a monocolor row update and returns its status.
func (c *Conn) UpdateRow(row, bitLength uint8, bits []byte) (wire.Status, error) {
	reply, err := c.request(wire.UpdateRow{Row: row, BitLength: bitLength, Bits: bits},
		wire.Opcode{Major: wire.MajorDisplay, Minor: wire.MinorUpdateRowResponse})
	if err != nil {
		return 0, err
	}
	return reply.(wire.UpdateRowResponse).Status, nil
}

// UpdateRowRgb sends an RGB555 row update and returns its status.
func (c *Conn) UpdateRowRgb(row uint8, pixels []uint16) (wire.Status, error) {
	reply, err := c.request(wire.UpdateRowRgb{Row: row, Length: uint8(len(pixels)), Pixels: pixels},
		wire.Opcode{Major: wire.MajorDisplay, Minor: wire.MinorUpdateRowRgbResponse})
	if err != nil {
		return 0, err
	}
	return reply.(wire.UpdateRowRgbResponse).Status, nil
}

// GetDisplayInfo requests the coprocessor's display dimensions and
// pixel kind.
func (c *Conn) GetDisplayInfo() (wire.GetDisplayInfoResponse, error) {
	reply, err := c.request(wire.GetDisplayInfo{},
		wire.Opcode{Major: wire.MajorDisplay, Minor: wire.MinorGetDisplayInfoResp})
	if err != nil {
		return wire.GetDisplayInfoResponse{}, err
	}
	return reply.(wire.GetDisplayInfoResponse), nil
}

// RequestCommitRender asks the coprocessor to present the frame
// assembled by preceding row updates.
func (c *Conn) RequestCommitRender() (wire.Status, error) {
	reply, err := c.request(wire.RequestCommitRender{},
		wire.Opcode{Major: wire.MajorDisplay, Minor: wire.MinorCommitRenderResponse})
	if err != nil {
		return 0, err
	}
	return reply.(wire.CommitRenderResponse).Status, nil
}

// SetMonocolorPalette sends the monocolor on-color to the coprocessor
// and returns its status. The firmware stores and acknowledges the
// value; its row updates do not draw with it.
func (c *Conn) SetMonocolorPalette(color uint16) (wire.Status, error) {
	reply, err := c.request(wire.SetMonocolorPalette{Color: color},
		wire.Opcode{Major: wire.MajorDisplay, Minor: wire.MinorSetMonocolorPaletteRe})
	if err != nil {
		return 0, err
	}
	return reply.(wire.SetMonocolorPaletteResponse).Status, nil
}

// SetSingleCell updates one cell directly.
func (c *Conn) SetSingleCell(row, col, value uint8) (wire.Status, error) {
	reply, err := c.request(wire.SetSingleCell{Row: row, Col: col, Value: value},
		wire.Opcode{Major: wire.MajorDisplay, Minor: wire.MinorSetSingleCellResponse})
	if err != nil {
		return 0, err
	}
	return reply.(wire.SetSingleCellResponse).Status, nil
}

// SetLedState sets the coprocessor's debug LED override to state.
func (c *Conn) SetLedState(state uint8) (wire.Status, error) {
	reply, err := c.request(wire.SetLedState{NewState: state},
		wire.Opcode{Major: wire.MajorSystem, Minor: wire.MinorSetLedStateResponse})
	if err != nil {
		return 0, err
	}
	return reply.(wire.SetLedStateResponse).Status, nil
}

// SetRgbState sets the coprocessor's status RGB LED.
func (c *Conn) SetRgbState(r, g, b uint8) (wire.Status, error) {
	reply, err := c.request(wire.SetRgbState{R: r, G: g, B: b},
		wire.Opcode{Major: wire.MajorSystem, Minor: wire.MinorSetRgbStateResponse})
	if err != nil {
		return 0, err
	}
	return reply.(wire.SetRgbStateResponse).Status, nil
}

// ButtonPresses returns a predicate matching unsolicited button-press
// events, for use with the underlying transport's inbox directly (the
// event listener needs this; it is not a request/reply pair).
func ButtonPresses(m wire.Message) bool {
	_, ok := m.(wire.ReportButtonPress)
	return ok
}
