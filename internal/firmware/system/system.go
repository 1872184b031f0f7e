// Package system implements the coprocessor's system-core
// responsibilities: the debounced button reporter, the debug LED
// blinker and its override, and the command handler answering
// SetLedState/SetRgbState off the router's system queue.
package system

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ssnover/megabit/internal/firmware/router"
	"github.com/ssnover/megabit/internal/wire"
	"github.com/ssnover/megabit/pkg/log"
)

const (
	buttonDebounce   = 50 * time.Millisecond
	debugLedInterval = 1000 * time.Millisecond
)

// Pin is the GPIO output capability this package needs: set a line
// high or low. The button line is read through InputPin instead.
type Pin interface {
	Set(high bool) error
}

// InputPin additionally supports reading back a line's level, for the
// button reporter.
type InputPin interface {
	Read() (bool, error)
}

// Flags holds three independent pieces of system-core state: whether
// the debug LED is under host override, what state that override
// demands, and whether the system core has latched an unrecoverable
// error.
type Flags struct {
	debugLedOverridden    atomic.Bool
	debugLedOverrideState atomic.Bool
	errorState            atomic.Bool
}

func (f *Flags) SetDebugLedOverride(overridden, state bool) {
	f.debugLedOverridden.Store(overridden)
	f.debugLedOverrideState.Store(state)
}

func (f *Flags) DebugLedOverride() (overridden, state bool) {
	return f.debugLedOverridden.Load(), f.debugLedOverrideState.Load()
}

func (f *Flags) SetErrorState(v bool) { f.errorState.Store(v) }
func (f *Flags) ErrorState() bool     { return f.errorState.Load() }

// ButtonReporter polls an input pin, debounces its transitions, and
// reports each confirmed press to the host over resp. A failed report
// latches flags' error state and drives the status LED red, the same
// way the system core gives up on a wedged host connection.
type ButtonReporter struct {
	pin   InputPin
	resp  *router.Responder
	flags *Flags
	rgb   RgbPins
	log   log.Logger
}

func NewButtonReporter(pin InputPin, resp *router.Responder, flags *Flags, rgb RgbPins, logger log.Logger) *ButtonReporter {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &ButtonReporter{pin: pin, resp: resp, flags: flags, rgb: rgb, log: logger}
}

// Run polls the button line until ctx is cancelled. A press is
// reported only once it has read as pressed continuously across a
// full debounce window, so switch bounce never produces duplicate
// ReportButtonPress frames.
func (b *ButtonReporter) Run(ctx context.Context) {
	const pollInterval = 5 * time.Millisecond
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var pressedSince time.Time
	reported := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pressed, err := b.pin.Read()
			if err != nil {
				b.log.Errorf("firmware/system: button read failed: %v", err)
				continue
			}
			if !pressed {
				pressedSince = time.Time{}
				reported = false
				continue
			}
			if pressedSince.IsZero() {
				pressedSince = time.Now()
				continue
			}
			if !reported && time.Since(pressedSince) >= buttonDebounce {
				reported = true
				if err := b.resp.Send(wire.ReportButtonPress{}); err != nil {
					b.log.Errorf("firmware/system: failed to report button press: %v", err)
					b.flags.SetErrorState(true)
					if rgbErr := b.rgb.Set(true, false, false); rgbErr != nil {
						b.log.Errorf("firmware/system: failed to set status LED after button report error: %v", rgbErr)
					}
				}
			}
		}
	}
}

// DebugLedBlinker toggles an LED at a fixed interval unless the host
// has overridden it via SetLedState, in which case it holds the
// override's state instead.
type DebugLedBlinker struct {
	pin   Pin
	flags *Flags
	log   log.Logger
}

func NewDebugLedBlinker(pin Pin, flags *Flags, logger log.Logger) *DebugLedBlinker {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &DebugLedBlinker{pin: pin, flags: flags, log: logger}
}

// Run blinks the LED until ctx is cancelled.
func (d *DebugLedBlinker) Run(ctx context.Context) {
	ticker := time.NewTicker(debugLedInterval)
	defer ticker.Stop()

	on := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if overridden, state := d.flags.DebugLedOverride(); overridden {
				if err := d.pin.Set(state); err != nil {
					d.log.Errorf("firmware/system: debug LED set failed: %v", err)
				}
				continue
			}
			on = !on
			if err := d.pin.Set(on); err != nil {
				d.log.Errorf("firmware/system: debug LED set failed: %v", err)
			}
		}
	}
}

// RgbPins is the three-channel LED the host drives with SetRgbState.
// A coprocessor variant that doesn't wire a status LED leaves the
// fields nil; Set treats that as a no-op for the missing channel
// rather than a programming error.
type RgbPins struct {
	R, G, B Pin
}

func (p RgbPins) Set(r, g, b bool) error {
	for _, c := range []struct {
		pin   Pin
		value bool
	}{{p.R, r}, {p.G, g}, {p.B, b}} {
		if c.pin == nil {
			continue
		}
		if err := c.pin.Set(c.value); err != nil {
			return err
		}
	}
	return nil
}

// CommandHandler drains the router's system queue, applies each
// command to the debug LED override flags or the status RGB LED, and
// replies with the matching *Response.
type CommandHandler struct {
	rt    *router.Router
	flags *Flags
	rgb   RgbPins
	log   log.Logger
}

func NewCommandHandler(rt *router.Router, flags *Flags, rgb RgbPins, logger log.Logger) *CommandHandler {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &CommandHandler{rt: rt, flags: flags, rgb: rgb, log: logger}
}

// Run drains rt.System until the channel is closed (the router's
// stream was lost).
func (h *CommandHandler) Run(resp *router.Responder) {
	for msg := range h.rt.System {
		switch m := msg.(type) {
		case wire.SetLedState:
			h.flags.SetDebugLedOverride(true, m.NewState != 0)
			h.send(resp, wire.SetLedStateResponse{Status: wire.StatusSuccess})
		case wire.SetRgbState:
			status := wire.StatusSuccess
			if err := h.applyRgb(m); err != nil {
				h.log.Errorf("firmware/system: SetRgbState: %v", err)
				status = wire.StatusFailure
			}
			h.send(resp, wire.SetRgbStateResponse{Status: status})
		default:
			h.log.Warnf("firmware/system: unexpected command on system queue: %T", msg)
		}
	}
}

func (h *CommandHandler) applyRgb(m wire.SetRgbState) error {
	return h.rgb.Set(m.R != 0, m.G != 0, m.B != 0)
}

func (h *CommandHandler) send(resp *router.Responder, msg wire.Message) {
	if err := resp.Send(msg); err != nil {
		h.log.Errorf("firmware/system: failed to send reply: %v", err)
	}
}
