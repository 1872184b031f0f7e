package wire

import (
	"encoding/binary"
	"fmt"
)

// Status is the outcome byte carried by every reply message.
type Status uint8

const (
	StatusSuccess    Status = 0
	StatusFailure    Status = 1
	StatusInProgress Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusInProgress:
		return "in-progress"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// PixelKind reports whether a display reports monocolor or RGB555
// pixels.
type PixelKind uint8

const (
	PixelKindMonocolor PixelKind = 0
	PixelKindRGB555    PixelKind = 1
)

// Message is any request or reply body that can be framed on the
// wire. Opcode identifies the concrete type so Parse can dispatch.
type Message interface {
	Opcode() Opcode
	encodeBody() []byte
}

// EncodeMessage serializes a Message to its opcode-prefixed wire body. The
// byte-stuffing and sentinel framing of Encode/Decode in stuffing.go
// is applied on top of this by the transport layer.
func EncodeMessage(m Message) []byte {
	op := m.Opcode()
	body := m.encodeBody()
	out := make([]byte, 2+len(body))
	out[0] = byte(op.Major)
	out[1] = byte(op.Minor)
	copy(out[2:], body)
	return out
}

// Parse decodes a raw (already de-stuffed) frame body into a typed
// Message. An unrecognized opcode returns ErrUnknownOpcode so callers
// (the firmware router) can silently drop it per spec §3.
func Parse(raw []byte) (Message, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("wire: frame too short: %d bytes", len(raw))
	}
	op := Opcode{Major(raw[0]), Minor(raw[1])}
	body := raw[2:]

	switch op {
	case (Opcode{MajorDisplay, MinorUpdateRow}):
		return parseUpdateRow(body)
	case (Opcode{MajorDisplay, MinorUpdateRowResponse}):
		return parseStatusOnly(body, func(s Status) Message { return UpdateRowResponse{s} })
	case (Opcode{MajorDisplay, MinorUpdateRowRgb}):
		return parseUpdateRowRgb(body)
	case (Opcode{MajorDisplay, MinorUpdateRowRgbResponse}):
		return parseStatusOnly(body, func(s Status) Message { return UpdateRowRgbResponse{s} })
	case (Opcode{MajorDisplay, MinorGetDisplayInfo}):
		return GetDisplayInfo{}, nil
	case (Opcode{MajorDisplay, MinorGetDisplayInfoResp}):
		return parseGetDisplayInfoResponse(body)
	case (Opcode{MajorDisplay, MinorRequestCommitRender}):
		return RequestCommitRender{}, nil
	case (Opcode{MajorDisplay, MinorCommitRenderResponse}):
		return parseStatusOnly(body, func(s Status) Message { return CommitRenderResponse{s} })
	case (Opcode{MajorDisplay, MinorSetMonocolorPalette}):
		return parseSetMonocolorPalette(body)
	case (Opcode{MajorDisplay, MinorSetMonocolorPaletteRe}):
		return parseStatusOnly(body, func(s Status) Message { return SetMonocolorPaletteResponse{s} })
	case (Opcode{MajorDisplay, MinorSetSingleCell}):
		return parseSetSingleCell(body)
	case (Opcode{MajorDisplay, MinorSetSingleCellResponse}):
		return parseStatusOnly(body, func(s Status) Message { return SetSingleCellResponse{s} })
	case (Opcode{MajorSystem, MinorSetLedState}):
		return parseSetLedState(body)
	case (Opcode{MajorSystem, MinorSetLedStateResponse}):
		return parseStatusOnly(body, func(s Status) Message { return SetLedStateResponse{s} })
	case (Opcode{MajorSystem, MinorSetRgbState}):
		return parseSetRgbState(body)
	case (Opcode{MajorSystem, MinorSetRgbStateResponse}):
		return parseStatusOnly(body, func(s Status) Message { return SetRgbStateResponse{s} })
	case (Opcode{MajorSystem, MinorReportButtonPress}):
		return ReportButtonPress{}, nil
	case (Opcode{MajorSystem, MinorPing}):
		return Ping{}, nil
	case (Opcode{MajorSystem, MinorPingResponse}):
		return PingResponse{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOpcode, op)
	}
}

func parseStatusOnly(body []byte, ctor func(Status) Message) (Message, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("wire: status body too short")
	}
	return ctor(Status(body[0])), nil
}

// --- A0 00/01 UpdateRow ---

type UpdateRow struct {
	Row       uint8
	BitLength uint8
	Bits      []byte // packed bitfield, ceil(BitLength/8) bytes
}

func (UpdateRow) Opcode() Opcode { return Opcode{MajorDisplay, MinorUpdateRow} }
func (m UpdateRow) encodeBody() []byte {
	out := make([]byte, 2+len(m.Bits))
	out[0] = m.Row
	out[1] = m.BitLength
	copy(out[2:], m.Bits)
	return out
}
func parseUpdateRow(body []byte) (Message, error) {
	if len(body) < 2 {
		return nil, fmt.Errorf("wire: UpdateRow body too short")
	}
	return UpdateRow{Row: body[0], BitLength: body[1], Bits: append([]byte(nil), body[2:]...)}, nil
}

type UpdateRowResponse struct{ Status Status }

func (UpdateRowResponse) Opcode() Opcode        { return Opcode{MajorDisplay, MinorUpdateRowResponse} }
func (m UpdateRowResponse) encodeBody() []byte { return []byte{byte(m.Status)} }

// --- A0 02/03 UpdateRowRgb ---

type UpdateRowRgb struct {
	Row    uint8
	Length uint8
	Pixels []uint16 // big-endian RGB555 values, Length entries
}

func (UpdateRowRgb) Opcode() Opcode { return Opcode{MajorDisplay, MinorUpdateRowRgb} }
func (m UpdateRowRgb) encodeBody() []byte {
	out := make([]byte, 2+2*len(m.Pixels))
	out[0] = m.Row
	out[1] = m.Length
	for i, p := range m.Pixels {
		binary.BigEndian.PutUint16(out[2+2*i:], p)
	}
	return out
}
func parseUpdateRowRgb(body []byte) (Message, error) {
	if len(body) < 2 {
		return nil, fmt.Errorf("wire: UpdateRowRgb body too short")
	}
	row, length := body[0], body[1]
	rest := body[2:]
	if len(rest) != int(length)*2 {
		return nil, fmt.Errorf("wire: UpdateRowRgb length mismatch: declared %d, got %d bytes", length, len(rest))
	}
	pixels := make([]uint16, length)
	for i := range pixels {
		pixels[i] = binary.BigEndian.Uint16(rest[2*i:])
	}
	return UpdateRowRgb{Row: row, Length: length, Pixels: pixels}, nil
}

type UpdateRowRgbResponse struct{ Status Status }

func (UpdateRowRgbResponse) Opcode() Opcode { return Opcode{MajorDisplay, MinorUpdateRowRgbResponse} }
func (m UpdateRowRgbResponse) encodeBody() []byte { return []byte{byte(m.Status)} }

// --- A0 04/05 GetDisplayInfo ---

type GetDisplayInfo struct{}

func (GetDisplayInfo) Opcode() Opcode        { return Opcode{MajorDisplay, MinorGetDisplayInfo} }
func (GetDisplayInfo) encodeBody() []byte { return nil }

type GetDisplayInfoResponse struct {
	Width  uint32
	Height uint32
	Kind   PixelKind
}

func (GetDisplayInfoResponse) Opcode() Opcode { return Opcode{MajorDisplay, MinorGetDisplayInfoResp} }
func (m GetDisplayInfoResponse) encodeBody() []byte {
	out := make([]byte, 9)
	binary.BigEndian.PutUint32(out[0:], m.Width)
	binary.BigEndian.PutUint32(out[4:], m.Height)
	out[8] = byte(m.Kind)
	return out
}
func parseGetDisplayInfoResponse(body []byte) (Message, error) {
	if len(body) < 9 {
		return nil, fmt.Errorf("wire: GetDisplayInfoResponse body too short")
	}
	return GetDisplayInfoResponse{
		Width:  binary.BigEndian.Uint32(body[0:]),
		Height: binary.BigEndian.Uint32(body[4:]),
		Kind:   PixelKind(body[8]),
	}, nil
}

// --- A0 06/07 RequestCommitRender ---

type RequestCommitRender struct{}

func (RequestCommitRender) Opcode() Opcode        { return Opcode{MajorDisplay, MinorRequestCommitRender} }
func (RequestCommitRender) encodeBody() []byte { return nil }

type CommitRenderResponse struct{ Status Status }

func (CommitRenderResponse) Opcode() Opcode { return Opcode{MajorDisplay, MinorCommitRenderResponse} }
func (m CommitRenderResponse) encodeBody() []byte { return []byte{byte(m.Status)} }

// --- A0 08/09 SetMonocolorPalette ---

type SetMonocolorPalette struct{ Color uint16 }

func (SetMonocolorPalette) Opcode() Opcode { return Opcode{MajorDisplay, MinorSetMonocolorPalette} }
func (m SetMonocolorPalette) encodeBody() []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, m.Color)
	return out
}
func parseSetMonocolorPalette(body []byte) (Message, error) {
	if len(body) < 2 {
		return nil, fmt.Errorf("wire: SetMonocolorPalette body too short")
	}
	return SetMonocolorPalette{Color: binary.BigEndian.Uint16(body)}, nil
}

type SetMonocolorPaletteResponse struct{ Status Status }

func (SetMonocolorPaletteResponse) Opcode() Opcode {
	return Opcode{MajorDisplay, MinorSetMonocolorPaletteRe}
}
func (m SetMonocolorPaletteResponse) encodeBody() []byte { return []byte{byte(m.Status)} }

// --- A0 50/51 SetSingleCell ---

type SetSingleCell struct{ Row, Col, Value uint8 }

func (SetSingleCell) Opcode() Opcode { return Opcode{MajorDisplay, MinorSetSingleCell} }
func (m SetSingleCell) encodeBody() []byte { return []byte{m.Row, m.Col, m.Value} }
func parseSetSingleCell(body []byte) (Message, error) {
	if len(body) < 3 {
		return nil, fmt.Errorf("wire: SetSingleCell body too short")
	}
	return SetSingleCell{Row: body[0], Col: body[1], Value: body[2]}, nil
}

type SetSingleCellResponse struct{ Status Status }

func (SetSingleCellResponse) Opcode() Opcode { return Opcode{MajorDisplay, MinorSetSingleCellResponse} }
func (m SetSingleCellResponse) encodeBody() []byte { return []byte{byte(m.Status)} }

// --- DE 00/01 SetLedState ---

type SetLedState struct{ NewState uint8 }

func (SetLedState) Opcode() Opcode { return Opcode{MajorSystem, MinorSetLedState} }
func (m SetLedState) encodeBody() []byte { return []byte{m.NewState} }
func parseSetLedState(body []byte) (Message, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("wire: SetLedState body too short")
	}
	return SetLedState{NewState: body[0]}, nil
}

type SetLedStateResponse struct{ Status Status }

func (SetLedStateResponse) Opcode() Opcode { return Opcode{MajorSystem, MinorSetLedStateResponse} }
func (m SetLedStateResponse) encodeBody() []byte { return []byte{byte(m.Status)} }

// --- DE 02/03 SetRgbState ---

type SetRgbState struct{ R, G, B uint8 }

func (SetRgbState) Opcode() Opcode { return Opcode{MajorSystem, MinorSetRgbState} }
func (m SetRgbState) encodeBody() []byte { return []byte{m.R, m.G, m.B} }
func parseSetRgbState(body []byte) (Message, error) {
	if len(body) < 3 {
		return nil, fmt.Errorf("wire: SetRgbState body too short")
	}
	return SetRgbState{R: body[0], G: body[1], B: body[2]}, nil
}

type SetRgbStateResponse struct{ Status Status }

func (SetRgbStateResponse) Opcode() Opcode { return Opcode{MajorSystem, MinorSetRgbStateResponse} }
func (m SetRgbStateResponse) encodeBody() []byte { return []byte{byte(m.Status)} }

// --- DE 04 ReportButtonPress (unsolicited) ---

type ReportButtonPress struct{}

func (ReportButtonPress) Opcode() Opcode        { return Opcode{MajorSystem, MinorReportButtonPress} }
func (ReportButtonPress) encodeBody() []byte { return nil }

// --- DE FE/FF Ping ---

type Ping struct{}

func (Ping) Opcode() Opcode        { return Opcode{MajorSystem, MinorPing} }
func (Ping) encodeBody() []byte { return nil }

type PingResponse struct{}

func (PingResponse) Opcode() Opcode        { return Opcode{MajorSystem, MinorPingResponse} }
func (PingResponse) encodeBody() []byte { return nil }
