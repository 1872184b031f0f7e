package display

import (
	"github.com/ssnover/megabit/internal/firmware/router"
	"github.com/ssnover/megabit/internal/wire"
	"github.com/ssnover/megabit/pkg/log"
)

// CommandHandler drains a Router's display queue and applies each
// command to exactly one of the two concrete panel drivers — whichever
// one this coprocessor binary was built against — replying with the
// matching *Response for every command it processes.
//
// Mono and RGB are mutually exclusive: a given coprocessor firmware
// targets one panel kind, so exactly one of the two fields is set.
type CommandHandler struct {
	mono *DotMatrixDriver
	rgb  *HUB75Driver

	palette  uint16
	monoRows [PanelRows][]byte // last-written row bits, for SetSingleCell's read-modify-write

	log log.Logger
}

// NewMonoCommandHandler builds a handler bound to a dot-matrix driver.
func NewMonoCommandHandler(driver *DotMatrixDriver, logger log.Logger) *CommandHandler {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &CommandHandler{mono: driver, log: logger}
}

// NewRgbCommandHandler builds a handler bound to a HUB-75 driver.
func NewRgbCommandHandler(driver *HUB75Driver, logger log.Logger) *CommandHandler {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &CommandHandler{rgb: driver, log: logger}
}

// Run drains rt.Display until the channel closes (the router's stream
// was lost), replying to each command over resp.
func (h *CommandHandler) Run(rt *router.Router, resp *router.Responder) {
	for msg := range rt.Display {
		switch m := msg.(type) {
		case wire.UpdateRow:
			h.handleUpdateRow(resp, m)
		case router.RowRgbCommand:
			h.handleUpdateRowRgb(rt, resp, m)
		case wire.SetMonocolorPalette:
			h.palette = m.Color
			h.reply(resp, wire.SetMonocolorPaletteResponse{Status: wire.StatusSuccess})
		case wire.SetSingleCell:
			h.handleSetSingleCell(resp, m)
		default:
			h.log.Warnf("firmware/display: unexpected command on display queue: %T", msg)
		}
	}
}

func (h *CommandHandler) handleUpdateRow(resp *router.Responder, m wire.UpdateRow) {
	status := wire.StatusFailure
	if h.mono != nil {
		if err := h.mono.WriteRow(m.Row, m.Bits); err != nil {
			h.log.Errorf("firmware/display: UpdateRow: %v", err)
		} else {
			status = wire.StatusSuccess
			if int(m.Row) < len(h.monoRows) {
				h.monoRows[m.Row] = append([]byte(nil), m.Bits...)
			}
		}
	}
	h.reply(resp, wire.UpdateRowResponse{Status: status})
}

func (h *CommandHandler) handleUpdateRowRgb(rt *router.Router, resp *router.Responder, m router.RowRgbCommand) {
	pixels := rt.TakeRowRgbPixels()
	status := wire.StatusFailure
	if h.rgb != nil {
		if err := h.rgb.SetRow(int(m.Row), pixels); err != nil {
			h.log.Errorf("firmware/display: UpdateRowRgb: %v", err)
		} else {
			status = wire.StatusSuccess
		}
	}
	h.reply(resp, wire.UpdateRowRgbResponse{Status: status})
}

// handleSetSingleCell flips one bit of the last-written row and
// rewrites the whole row; it only applies to the monocolor panel.
func (h *CommandHandler) handleSetSingleCell(resp *router.Responder, m wire.SetSingleCell) {
	status := wire.StatusFailure
	if h.mono != nil && int(m.Row) < len(h.monoRows) {
		bits := append([]byte(nil), h.monoRows[m.Row]...)
		byteIdx := int(m.Col) / 8
		bitIdx := 7 - uint(int(m.Col)%8)
		for len(bits) <= byteIdx {
			bits = append(bits, 0)
		}
		if m.Value != 0 {
			bits[byteIdx] |= 1 << bitIdx
		} else {
			bits[byteIdx] &^= 1 << bitIdx
		}
		if err := h.mono.WriteRow(m.Row, bits); err != nil {
			h.log.Errorf("firmware/display: SetSingleCell: %v", err)
		} else {
			status = wire.StatusSuccess
			h.monoRows[m.Row] = bits
		}
	}
	h.reply(resp, wire.SetSingleCellResponse{Status: status})
}

func (h *CommandHandler) reply(resp *router.Responder, msg wire.Message) {
	if err := resp.Send(msg); err != nil {
		h.log.Errorf("firmware/display: failed to send reply: %v", err)
	}
}
