package system

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssnover/megabit/internal/firmware/router"
	"github.com/ssnover/megabit/internal/wire"
)

type fakePin struct {
	sets []bool
}

func (p *fakePin) Set(high bool) error {
	p.sets = append(p.sets, high)
	return nil
}

type scriptedInputPin struct {
	values []bool
	idx    int
}

func (p *scriptedInputPin) Read() (bool, error) {
	if p.idx >= len(p.values) {
		return p.values[len(p.values)-1], nil
	}
	v := p.values[p.idx]
	p.idx++
	return v, nil
}

func TestFlagsDebugLedOverrideRoundTrips(t *testing.T) {
	var f Flags
	overridden, state := f.DebugLedOverride()
	assert.False(t, overridden)
	assert.False(t, state)

	f.SetDebugLedOverride(true, true)
	overridden, state = f.DebugLedOverride()
	assert.True(t, overridden)
	assert.True(t, state)
}

func TestButtonReporterDebouncesBeforeReporting(t *testing.T) {
	hostSide, firmwareSide := net.Pipe()
	defer hostSide.Close()
	defer firmwareSide.Close()

	resp := router.NewResponder(firmwareSide)
	pin := &scriptedInputPin{values: []bool{true}}
	reporter := NewButtonReporter(pin, resp, &Flags{}, RgbPins{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	reportCh := make(chan struct{}, 1)
	go func() {
		buf := make([]byte, 64)
		var reservoir wire.Reservoir
		hostSide.SetReadDeadline(time.Now().Add(time.Second))
		for {
			n, err := hostSide.Read(buf)
			if err != nil {
				return
			}
			reservoir.Append(buf[:n])
			if frame, ok := reservoir.Next(); ok {
				if msg, err := wire.Parse(frame); err == nil {
					if _, ok := msg.(wire.ReportButtonPress); ok {
						reportCh <- struct{}{}
						return
					}
				}
			}
		}
	}()

	go reporter.Run(ctx)

	select {
	case <-reportCh:
	case <-time.After(time.Second):
		t.Fatal("button press was never reported")
	}
}

func TestButtonReporterLatchesErrorAndSetsRedOnSendFailure(t *testing.T) {
	_, firmwareSide := net.Pipe()
	firmwareSide.Close() // any Send over this stream now fails

	resp := router.NewResponder(firmwareSide)
	pin := &scriptedInputPin{values: []bool{true}}
	flags := &Flags{}
	r, g, b := &fakePin{}, &fakePin{}, &fakePin{}
	reporter := NewButtonReporter(pin, resp, flags, RgbPins{R: r, G: g, B: b}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	reporter.Run(ctx)

	assert.True(t, flags.ErrorState())
	require.NotEmpty(t, r.sets)
	assert.True(t, r.sets[len(r.sets)-1])
	require.NotEmpty(t, g.sets)
	assert.False(t, g.sets[len(g.sets)-1])
	require.NotEmpty(t, b.sets)
	assert.False(t, b.sets[len(b.sets)-1])
}

func TestDebugLedBlinkerExitsOnCancel(t *testing.T) {
	pin := &fakePin{}
	var flags Flags
	flags.SetDebugLedOverride(true, true)

	blinker := NewDebugLedBlinker(pin, &flags, nil)
	ctx, cancel := context.WithCancel(context.Background())

	// The ticker interval is 1s and ctx is cancelled at once, so no tick
	// fires; this only asserts Run with an override set exits promptly.
	done := make(chan struct{})
	go func() {
		blinker.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blinker did not exit after cancellation")
	}
}

func TestCommandHandlerSetLedStateSetsOverrideAndReplies(t *testing.T) {
	hostSide, firmwareSide := net.Pipe()
	defer hostSide.Close()
	defer firmwareSide.Close()

	resp := router.NewResponder(firmwareSide)
	rt := router.New(firmwareSide, resp, router.DisplayConfig{}, nil)
	var flags Flags
	handler := NewCommandHandler(rt, &flags, RgbPins{R: &fakePin{}, G: &fakePin{}, B: &fakePin{}}, nil)

	go rt.Run()
	go handler.Run(resp)

	_, err := hostSide.Write(wire.Encode(wire.EncodeMessage(wire.SetLedState{NewState: 1})))
	require.NoError(t, err)

	hostSide.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 64)
	var reservoir wire.Reservoir
	for {
		n, err := hostSide.Read(buf)
		require.NoError(t, err)
		reservoir.Append(buf[:n])
		if frame, ok := reservoir.Next(); ok {
			msg, err := wire.Parse(frame)
			require.NoError(t, err)
			assert.Equal(t, wire.SetLedStateResponse{Status: wire.StatusSuccess}, msg)
			break
		}
	}

	overridden, state := flags.DebugLedOverride()
	assert.True(t, overridden)
	assert.True(t, state)
}
