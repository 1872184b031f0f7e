package console

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/ssnover/megabit/pkg/log"
)

// inboundQueueCapacity bounds how many not-yet-dispatched inbound
// console messages can queue before a Client starts dropping its own.
const inboundQueueCapacity = 32

// Hub accepts TCP connections on the console control channel. It
// broadcasts outbound ConsoleMessage events to every connected
// client and funnels every client's inbound messages onto a single
// ordered Inbound channel for a Listener to drain.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	Inbound    chan Message

	log log.Logger
}

// NewHub constructs an idle Hub; call Serve to start accepting
// connections.
func NewHub(logger log.Logger) *Hub {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		Inbound:    make(chan Message, inboundQueueCapacity),
		log:        logger,
	}
}

// Serve listens on addr and accepts console connections until ctx is
// cancelled, at which point the listener is closed and Serve returns
// nil.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.ServeListener(ctx, ln)
}

// ServeListener accepts console connections on an already-bound
// listener until ctx is cancelled. Split out from Serve so tests can
// bind an ephemeral port and learn its address before accepting.
func (h *Hub) ServeListener(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go h.run(ctx)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		c := &Client{hub: h, conn: conn, Send: make(chan []byte, sendQueueCapacity), log: h.log}
		h.register <- c
		go c.readPump()
		go c.writePump()
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
			}
			h.mu.Unlock()
		case raw := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.Send <- raw:
				default:
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish encodes msg and broadcasts it to every connected client; a
// full broadcast queue drops the message rather than blocking the
// caller (typically the capability host, mid render()).
func (h *Hub) Publish(msg Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorf("console: failed to encode outbound message: %v", err)
		return
	}
	select {
	case h.broadcast <- raw:
	default:
		h.log.Warnf("console: broadcast queue full, dropping %q", msg.Msg)
	}
}

// PublishCommitRender implements sandbox.EventPublisher.
func (h *Hub) PublishCommitRender(app string) {
	h.Publish(newMessage(MsgCommitRender, commitRenderData{App: app}))
}
