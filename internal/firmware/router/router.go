// Package router implements the coprocessor side of the wire
// protocol: a single reader decoding byte-stuffed frames off the
// shared USB-CDC-style stream, inline replies for the handful of
// commands that never touch a peripheral, and two bounded queues
// feeding the display and system command handlers.
package router

import (
	"io"
	"sync"

	"github.com/ssnover/megabit/internal/wire"
	"github.com/ssnover/megabit/pkg/log"
)

// Queue depths bound how far the display and system handlers can lag
// the reader before Run blocks waiting for space; no command is ever
// dropped.
const (
	DisplayQueueCapacity = 8
	SystemQueueCapacity  = 2
)

// DisplayConfig is the static panel geometry the router answers
// GetDisplayInfo with, without involving the display handler.
type DisplayConfig struct {
	Width  uint32
	Height uint32
	Kind   wire.PixelKind
}

// RowRgbCommand is the lightweight command enqueued for an
// UpdateRowRgb request: the row index and length travel on Display,
// while the (potentially large) pixel payload is handed off
// separately through TakeRowRgbPixels so the queue entry itself stays
// small.
type RowRgbCommand struct {
	Row    uint8
	Length uint8
}

// Responder serializes every outbound frame — command replies and
// unsolicited events alike — behind one mutex so two goroutines can
// never interleave their writes mid-frame.
type Responder struct {
	mu     sync.Mutex
	stream io.Writer
}

// NewResponder wraps stream for serialized frame writes.
func NewResponder(stream io.Writer) *Responder {
	return &Responder{stream: stream}
}

// Send byte-stuffs and writes msg atomically with respect to any
// other Send call.
func (r *Responder) Send(msg wire.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.stream.Write(wire.Encode(wire.EncodeMessage(msg)))
	return err
}

// Router is the single reader of the coprocessor's USB endpoint. It
// decodes frames and either answers them inline (Ping,
// GetDisplayInfo, RequestCommitRender — none of which touch a
// peripheral) or routes them onto Display or System for their
// respective command handlers to process and reply to themselves.
type Router struct {
	stream io.Reader
	resp   *Responder
	cfg    DisplayConfig
	log    log.Logger

	// Display and System carry either a wire.Message or a
	// RowRgbCommand; the handler draining each type-switches on both.
	Display chan interface{}
	System  chan interface{}

	// rowRgb is a capacity-1 handoff: the reader blocks submitting a
	// new UpdateRowRgb payload until the display handler has taken the
	// previous one, so a single shared buffer never needs copying
	// twice before it is consumed.
	rowRgb chan []uint16
}

// New builds a Router over an already-open stream. cfg is the static
// display geometry reported to GetDisplayInfo.
func New(stream io.Reader, resp *Responder, cfg DisplayConfig, logger log.Logger) *Router {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Router{
		stream:  stream,
		resp:    resp,
		cfg:     cfg,
		log:     logger,
		Display: make(chan interface{}, DisplayQueueCapacity),
		System:  make(chan interface{}, SystemQueueCapacity),
		rowRgb:  make(chan []uint16, 1),
	}
}

// Run decodes frames until the stream errors, then closes Display and
// System so their handlers can exit their own loops.
func (rt *Router) Run() {
	defer close(rt.Display)
	defer close(rt.System)

	buf := make([]byte, 4096)
	var reservoir wire.Reservoir
	for {
		n, err := rt.stream.Read(buf)
		if err != nil {
			rt.log.Debugf("firmware/router: stream closed: %v", err)
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
				rt.log.Debugf("firmware/router: dropping unparseable frame: %v", perr)
				continue
			}
			rt.dispatch(msg)
		}
	}
}

func (rt *Router) dispatch(msg wire.Message) {
	switch m := msg.(type) {
	case wire.Ping:
		rt.reply(wire.PingResponse{})
	case wire.GetDisplayInfo:
		rt.reply(wire.GetDisplayInfoResponse{Width: rt.cfg.Width, Height: rt.cfg.Height, Kind: rt.cfg.Kind})
	case wire.RequestCommitRender:
		rt.reply(wire.CommitRenderResponse{Status: wire.StatusSuccess})
	case wire.UpdateRowRgb:
		rt.rowRgb <- m.Pixels
		rt.enqueue(rt.Display, RowRgbCommand{Row: m.Row, Length: m.Length})
	case wire.UpdateRow, wire.SetMonocolorPalette, wire.SetSingleCell:
		rt.enqueue(rt.Display, msg)
	case wire.SetLedState, wire.SetRgbState:
		rt.enqueue(rt.System, msg)
	default:
		rt.log.Warnf("firmware/router: no route for opcode of %T", msg)
	}
}

// enqueue blocks until the queue has room. Producers awaiting space
// rather than commands being dropped is load-bearing: UpdateRowRgb
// already pushed its pixel payload into the capacity-1 rowRgb handoff
// before reaching here, and nothing else will ever drain that channel
// if this command were dropped instead of delivered.
func (rt *Router) enqueue(q chan interface{}, payload interface{}) {
	q <- payload
}

func (rt *Router) reply(msg wire.Message) {
	if err := rt.resp.Send(msg); err != nil {
		rt.log.Errorf("firmware/router: failed to send reply: %v", err)
	}
}

// TakeRowRgbPixels blocks until a pixel payload submitted alongside a
// RowRgbCommand is available, then returns it. The display handler
// must call this exactly once per RowRgbCommand it dequeues.
func (rt *Router) TakeRowRgbPixels() []uint16 {
	return <-rt.rowRgb
}
