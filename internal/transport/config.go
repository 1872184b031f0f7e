package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.bug.st/serial"
)

// Kind tags which underlying byte stream a Config dials.
type Kind int

const (
	KindTCP Kind = iota
	KindSerial
)

// Config is the tagged configuration selecting a UART or TCP stream,
// per spec §4.2/§6.
type Config struct {
	Kind       Kind
	TCPAddr    string
	SerialPath string
	BaudRate   int
}

// DefaultBaudRate is the UART rate specified in spec §6: 230400 8N1.
const DefaultBaudRate = 230400

// ParseTarget implements the host CLI's transport-selection rule: the
// argument is parsed first as a socket address, else treated as a
// filesystem path to a serial device.
func ParseTarget(arg string) Config {
	if _, _, err := net.SplitHostPort(arg); err == nil {
		return Config{Kind: KindTCP, TCPAddr: arg}
	}
	return Config{Kind: KindSerial, SerialPath: arg, BaudRate: DefaultBaudRate}
}

// Dial opens the underlying byte stream described by cfg.
func Dial(ctx context.Context, cfg Config) (io.ReadWriteCloser, error) {
	switch cfg.Kind {
	case KindTCP:
		d := net.Dialer{}
		conn, err := d.DialContext(ctx, "tcp", cfg.TCPAddr)
		if err != nil {
			return nil, fmt.Errorf("transport: dial tcp %s: %w", cfg.TCPAddr, err)
		}
		return conn, nil
	case KindSerial:
		mode := &serial.Mode{
			BaudRate: cfg.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(cfg.SerialPath, mode)
		if err != nil {
			return nil, fmt.Errorf("transport: open serial %s: %w", cfg.SerialPath, err)
		}
		return port, nil
	default:
		return nil, fmt.Errorf("transport: unknown config kind %d", cfg.Kind)
	}
}

// pingInterval is the watchdog cadence from spec §4.2.
const pingInterval = 333 * time.Millisecond
