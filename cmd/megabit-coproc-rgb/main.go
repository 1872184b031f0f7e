// Command megabit-coproc-rgb simulates the coprocessor firmware for a
// two-panel HUB-75 RGB matrix: it answers the wire protocol over a
// serial connection and drives the panel over a bank of GPIO lines.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"go.bug.st/serial"

	"github.com/ssnover/megabit/internal/firmware/display"
	"github.com/ssnover/megabit/internal/firmware/router"
	"github.com/ssnover/megabit/internal/firmware/system"
	"github.com/ssnover/megabit/internal/wire"
	"github.com/ssnover/megabit/pkg/log"
)

const (
	panelRows = 32
	panelCols = 64
)

func main() {
	port := flag.String("port", "/dev/ttyACM1", "serial port the host is attached to")
	baud := flag.Int("baud", 115200, "serial baud rate")
	gpioChip := flag.String("gpio-chip", "gpiochip0", "GPIO chardev chip for the HUB-75 and system lines")
	buttonPin := flag.Int("button-pin", 17, "GPIO line offset for the next-app button")
	debugLedPin := flag.Int("debug-led-pin", 27, "GPIO line offset for the debug LED")

	offsets, addrPins := bindHUB75Flags()
	flag.Parse()
	for _, p := range addrPins {
		offsets.Address = append(offsets.Address, *p)
	}

	logger := log.New()

	pins, closePins, err := display.OpenGpiocdevPins(*gpioChip, *offsets)
	if err != nil {
		logger.Errorf("megabit-coproc-rgb: opening HUB-75 pins: %v", err)
		os.Exit(1)
	}
	defer closePins()

	driver := display.NewHUB75Driver(pins, panelRows, panelCols)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	go renderLoop(ctx, driver, logger.With("component", "render"))

	stream, err := serial.Open(*port, &serial.Mode{BaudRate: *baud})
	if err != nil {
		logger.Errorf("megabit-coproc-rgb: opening %s: %v", *port, err)
		os.Exit(1)
	}

	resp := router.NewResponder(stream)
	rt := router.New(stream, resp, router.DisplayConfig{
		Width:  panelCols,
		Height: panelRows,
		Kind:   wire.PixelKindRGB555,
	}, logger.With("component", "router"))

	displayHandler := display.NewRgbCommandHandler(driver, logger.With("component", "display"))
	go displayHandler.Run(rt, resp)

	var flags system.Flags
	sysHandler := system.NewCommandHandler(rt, &flags, system.RgbPins{}, logger.With("component", "system"))
	go sysHandler.Run(resp)

	if debugLed, closeLed, err := system.OpenGpiocdevOutputPin(*gpioChip, *debugLedPin); err != nil {
		logger.Errorf("megabit-coproc-rgb: opening debug LED pin: %v", err)
	} else {
		defer closeLed()
		go system.NewDebugLedBlinker(debugLed, &flags, logger.With("component", "debug-led")).Run(ctx)
	}

	if button, closeButton, err := system.OpenGpiocdevInputPin(*gpioChip, *buttonPin); err != nil {
		logger.Errorf("megabit-coproc-rgb: opening button pin: %v", err)
	} else {
		defer closeButton()
		go system.NewButtonReporter(button, resp, &flags, system.RgbPins{}, logger.With("component", "button")).Run(ctx)
	}

	rt.Run()
}

// renderLoop drives the panel continuously; a host UpdateRowRgb
// command only ever mutates (through SetRow) the pixel buffer that
// RenderFrame reads from.
func renderLoop(ctx context.Context, driver *display.HUB75Driver, logger log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := driver.RenderFrame(); err != nil {
			logger.Errorf("megabit-coproc-rgb: render frame: %v", err)
		}
	}
}

// bindHUB75Flags registers every HUB-75 pin flag and returns the
// offsets struct (ready to use except for Address) plus the five
// address-line flag targets, which must be read only after
// flag.Parse has run.
func bindHUB75Flags() (*display.HUB75PinOffsets, [5]*int) {
	offsets := &display.HUB75PinOffsets{}
	flag.IntVar(&offsets.R1, "r1-pin", 5, "GPIO line offset for R1")
	flag.IntVar(&offsets.G1, "g1-pin", 6, "GPIO line offset for G1")
	flag.IntVar(&offsets.B1, "b1-pin", 13, "GPIO line offset for B1")
	flag.IntVar(&offsets.R2, "r2-pin", 12, "GPIO line offset for R2")
	flag.IntVar(&offsets.G2, "g2-pin", 16, "GPIO line offset for G2")
	flag.IntVar(&offsets.B2, "b2-pin", 20, "GPIO line offset for B2")
	flag.IntVar(&offsets.Clock, "clock-pin", 21, "GPIO line offset for the clock")
	flag.IntVar(&offsets.Latch, "latch-pin", 26, "GPIO line offset for latch")
	flag.IntVar(&offsets.OutputEnable, "oe-pin", 19, "GPIO line offset for output-enable")

	var addrPins [5]*int
	names := [5]string{"addr-a-pin", "addr-b-pin", "addr-c-pin", "addr-d-pin", "addr-e-pin"}
	defaults := [5]int{2, 3, 4, 14, 15}
	for i := range addrPins {
		addrPins[i] = flag.Int(names[i], defaults[i], "GPIO line offset for address bit "+string(rune('A'+i)))
	}
	return offsets, addrPins
}
