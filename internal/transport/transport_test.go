package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ssnover/megabit/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoopback() (io.ReadWriteCloser, io.ReadWriteCloser) {
	a, b := net.Pipe()
	return a, b
}

func TestPingLivenessWithinWatchdogInterval(t *testing.T) {
	hostSide, peerSide := newLoopback()
	defer hostSide.Close()
	defer peerSide.Close()

	tr := New(hostSide, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Run(ctx)
	defer tr.Close()

	buf := make([]byte, 64)
	peerSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := peerSide.Read(buf)
	require.NoError(t, err)

	var reservoir wire.Reservoir
	reservoir.Append(buf[:n])
	frame, ok := reservoir.Next()
	require.True(t, ok)

	msg, err := wire.Parse(frame)
	require.NoError(t, err)
	assert.Equal(t, wire.Ping{}, msg)
}

func TestPingResponseNeverEnqueued(t *testing.T) {
	hostSide, peerSide := newLoopback()
	defer hostSide.Close()
	defer peerSide.Close()

	tr := New(hostSide, nil)
	tr.Run(context.Background())
	defer tr.Close()

	go func() {
		stuffed := wire.Encode(wire.EncodeMessage(wire.PingResponse{}))
		peerSide.Write(stuffed)
	}()

	_, err := tr.Inbox().WaitForMessage(func(m wire.Message) bool { return true }, 200*time.Millisecond)
	assert.ErrorContains(t, err, "no message")
}

func TestReplyCorrelationUnderInterleaving(t *testing.T) {
	hostSide, peerSide := newLoopback()
	defer hostSide.Close()
	defer peerSide.Close()

	tr := New(hostSide, nil)
	tr.Run(context.Background())
	defer tr.Close()

	// A waiter only sees entries received after its own call started, so
	// all three waiters are blocked before the peer writes anything.
	type result struct {
		msg wire.Message
		err error
	}
	wait := func(pred func(wire.Message) bool) <-chan result {
		ch := make(chan result, 1)
		go func() {
			msg, err := tr.Inbox().WaitForMessage(pred, time.Second)
			ch <- result{msg: msg, err: err}
		}()
		return ch
	}
	aCh := wait(func(m wire.Message) bool {
		_, ok := m.(wire.UpdateRowResponse)
		return ok
	})
	bCh := wait(func(m wire.Message) bool {
		_, ok := m.(wire.UpdateRowRgbResponse)
		return ok
	})
	buttonCh := wait(func(m wire.Message) bool {
		_, ok := m.(wire.ReportButtonPress)
		return ok
	})
	time.Sleep(20 * time.Millisecond)

	go func() {
		write := func(m wire.Message) {
			peerSide.Write(wire.Encode(wire.EncodeMessage(m)))
		}
		write(wire.ReportButtonPress{})
		write(wire.UpdateRowResponse{Status: wire.StatusSuccess})
		write(wire.UpdateRowRgbResponse{Status: wire.StatusSuccess})
	}()

	aReply := <-aCh
	require.NoError(t, aReply.err)
	assert.Equal(t, wire.UpdateRowResponse{Status: wire.StatusSuccess}, aReply.msg)

	bReply := <-bCh
	require.NoError(t, bReply.err)
	assert.Equal(t, wire.UpdateRowRgbResponse{Status: wire.StatusSuccess}, bReply.msg)

	buttonMsg := <-buttonCh
	require.NoError(t, buttonMsg.err)
	assert.Equal(t, wire.ReportButtonPress{}, buttonMsg.msg)
}

func TestSendAfterCloseReturnsNotConnected(t *testing.T) {
	hostSide, peerSide := newLoopback()
	defer peerSide.Close()

	tr := New(hostSide, nil)
	tr.Run(context.Background())
	require.NoError(t, tr.Close())

	err := tr.Send(wire.Ping{})
	assert.ErrorContains(t, err, "not connected")
}
