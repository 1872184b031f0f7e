// Package transport owns the duplex byte stream shared by the host
// and firmware: byte-stuffed packetization over a UART or TCP stream,
// with writer/reader cooperative loops, a liveness watchdog, and the
// receive-side inbox (see inbox.go).
package transport

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/ssnover/megabit/internal/mgerr"
	"github.com/ssnover/megabit/internal/wire"
	"github.com/ssnover/megabit/pkg/log"
)

// Transport is the single reader and single writer of an underlying
// byte stream. It never yields that stream to any other owner.
type Transport struct {
	stream io.ReadWriteCloser
	log    log.Logger

	outbound chan wire.Message
	inbox    *Inbox

	closeOnce sync.Once
	done      chan struct{}
}

// New wraps stream in a Transport. Call Run to start its cooperative
// loops.
func New(stream io.ReadWriteCloser, logger log.Logger) *Transport {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Transport{
		stream: stream,
		log:    logger,
		// 256 deep rather than truly unbounded: Send still blocks once
		// full instead of dropping, it just needs an implausible backlog
		// (256 unacknowledged frames from one guest-paced producer) to
		// do so.
		outbound: make(chan wire.Message, 256),
		inbox:    NewInbox(),
		done:     make(chan struct{}),
	}
}

// Inbox returns the transport's receive inbox.
func (t *Transport) Inbox() *Inbox { return t.inbox }

// Run starts the writer, reader, and watchdog loops. It returns
// immediately; the writer and reader loops run until the stream is
// lost or Close is called, and ctx stops only the watchdog loop.
func (t *Transport) Run(ctx context.Context) {
	go t.writerLoop()
	go t.readerLoop()
	go t.watchdogLoop(ctx)
}

// Send submits msg for transmission. Frames are written in submission
// order; cancellation of an in-flight send is not supported — the
// write either completes or the transport is considered lost.
func (t *Transport) Send(msg wire.Message) error {
	select {
	case <-t.done:
		return mgerr.ErrNotConnected
	default:
	}
	select {
	case t.outbound <- msg:
		return nil
	case <-t.done:
		return mgerr.ErrNotConnected
	}
}

// Close tears down the transport: the done channel is closed (so the
// writer loop exits without draining queued messages and later Sends
// return ErrNotConnected), the stream is closed, and the inbox is
// marked closed so blocked waiters wake with ErrTransportLost.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.stream.Close()
		t.inbox.Close()
	})
	return err
}

func (t *Transport) writerLoop() {
	for {
		select {
		case msg, ok := <-t.outbound:
			if !ok {
				return
			}
			raw := wire.EncodeMessage(msg)
			stuffed := wire.Encode(raw)
			if _, err := t.stream.Write(stuffed); err != nil {
				t.log.Errorf("transport: write failed, connection lost: %v", err)
				t.Close()
				return
			}
		case <-t.done:
			return
		}
	}
}

func (t *Transport) readerLoop() {
	buf := make([]byte, 4096)
	var reservoir wire.Reservoir
	for {
		n, err := t.stream.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.log.Errorf("transport: read failed, connection lost: %v", err)
			}
			t.Close()
			return
		}
		reservoir.Append(buf[:n])
		for {
			frame, ok := reservoir.Next()
			if !ok {
				break
			}
			msg, perr := wire.Parse(frame)
			if perr != nil {
				// Protocol-corrupt: dropped silently per spec §7.
				t.log.Debugf("transport: dropping unparseable frame: %v", perr)
				continue
			}
			t.inbox.Post(msg)
		}
	}
}

func (t *Transport) watchdogLoop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		timer := timeAfter(pingInterval)
		select {
		case <-timer:
			if err := t.Send(wire.Ping{}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		case <-t.done:
			return
		}
	}
}
