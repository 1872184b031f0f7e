package console

import (
	"encoding/json"
	"net"

	"github.com/ssnover/megabit/pkg/log"
)

// sendQueueCapacity bounds a client's outbound backlog; a slow or
// wedged console drops further broadcasts rather than stalling the
// hub's single broadcasting goroutine.
const sendQueueCapacity = 256

// Client is one connected console: a TCP connection plus its own
// outbound send queue, pumped by two goroutines mirroring the
// read/write pump split used elsewhere in the module for duplex
// network endpoints.
type Client struct {
	hub  *Hub
	conn net.Conn
	Send chan []byte
	log  log.Logger
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	scanner := newFrameScanner(c.conn)
	for {
		raw, err := scanner.next()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Warnf("console: dropping malformed message: %v", err)
			continue
		}
		select {
		case c.hub.Inbound <- msg:
		default:
			c.log.Warnf("console: inbound queue full, dropping %q", msg.Msg)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for raw := range c.Send {
		if _, err := c.conn.Write(raw); err != nil {
			return
		}
	}
}
