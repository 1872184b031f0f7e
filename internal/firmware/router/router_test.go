package router

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssnover/megabit/internal/wire"
)

func newTestRouter(t *testing.T, cfg DisplayConfig) (*Router, net.Conn) {
	t.Helper()
	hostSide, firmwareSide := net.Pipe()
	t.Cleanup(func() { hostSide.Close() })

	resp := NewResponder(firmwareSide)
	rt := New(firmwareSide, resp, cfg, nil)
	go rt.Run()
	return rt, hostSide
}

func sendFrame(t *testing.T, conn net.Conn, msg wire.Message) {
	t.Helper()
	_, err := conn.Write(wire.Encode(wire.EncodeMessage(msg)))
	require.NoError(t, err)
}

func readReply(t *testing.T, conn net.Conn) wire.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	var reservoir wire.Reservoir
	for {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		reservoir.Append(buf[:n])
		if frame, ok := reservoir.Next(); ok {
			msg, err := wire.Parse(frame)
			require.NoError(t, err)
			return msg
		}
	}
}

func TestRouterAnswersPingInline(t *testing.T) {
	_, conn := newTestRouter(t, DisplayConfig{})
	sendFrame(t, conn, wire.Ping{})
	assert.Equal(t, wire.PingResponse{}, readReply(t, conn))
}

func TestRouterAnswersGetDisplayInfoWithStaticConfig(t *testing.T) {
	_, conn := newTestRouter(t, DisplayConfig{Width: 32, Height: 16, Kind: wire.PixelKindRGB555})
	sendFrame(t, conn, wire.GetDisplayInfo{})
	reply := readReply(t, conn)
	assert.Equal(t, wire.GetDisplayInfoResponse{Width: 32, Height: 16, Kind: wire.PixelKindRGB555}, reply)
}

func TestRouterAnswersRequestCommitRenderInline(t *testing.T) {
	_, conn := newTestRouter(t, DisplayConfig{})
	sendFrame(t, conn, wire.RequestCommitRender{})
	assert.Equal(t, wire.CommitRenderResponse{Status: wire.StatusSuccess}, readReply(t, conn))
}

func TestRouterRoutesUpdateRowToDisplayQueue(t *testing.T) {
	rt, conn := newTestRouter(t, DisplayConfig{})
	sendFrame(t, conn, wire.UpdateRow{Row: 3, BitLength: 8, Bits: []byte{0xAA}})

	select {
	case msg := <-rt.Display:
		assert.Equal(t, wire.UpdateRow{Row: 3, BitLength: 8, Bits: []byte{0xAA}}, msg)
	case <-time.After(time.Second):
		t.Fatal("UpdateRow never reached the display queue")
	}
}

func TestRouterRoutesSetLedStateToSystemQueue(t *testing.T) {
	rt, conn := newTestRouter(t, DisplayConfig{})
	sendFrame(t, conn, wire.SetLedState{NewState: 1})

	select {
	case msg := <-rt.System:
		assert.Equal(t, wire.SetLedState{NewState: 1}, msg)
	case <-time.After(time.Second):
		t.Fatal("SetLedState never reached the system queue")
	}
}

func TestRouterSplitsUpdateRowRgbIntoCommandAndScratchHandoff(t *testing.T) {
	rt, conn := newTestRouter(t, DisplayConfig{})
	pixels := []uint16{0x1111, 0x2222, 0x3333}
	sendFrame(t, conn, wire.UpdateRowRgb{Row: 5, Length: 3, Pixels: pixels})

	select {
	case msg := <-rt.Display:
		cmd, ok := msg.(RowRgbCommand)
		require.True(t, ok)
		assert.Equal(t, RowRgbCommand{Row: 5, Length: 3}, cmd)
	case <-time.After(time.Second):
		t.Fatal("RowRgbCommand never reached the display queue")
	}

	assert.Equal(t, pixels, rt.TakeRowRgbPixels())
}

func TestRouterDropsUnparseableFrameAndContinues(t *testing.T) {
	rt, conn := newTestRouter(t, DisplayConfig{})
	// A lone sentinel decodes as an empty frame, which wire.Parse
	// rejects as too short; the router drops it and keeps going.
	_, err := conn.Write([]byte{0x00})
	require.NoError(t, err)

	sendFrame(t, conn, wire.Ping{})
	assert.Equal(t, wire.PingResponse{}, readReply(t, conn))
}
