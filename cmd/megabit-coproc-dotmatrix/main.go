// Command megabit-coproc-dotmatrix simulates the coprocessor firmware
// for a monocolor daisy-chained dot-matrix panel: it answers the wire
// protocol over a serial connection and drives the panel over SPI.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"go.bug.st/serial"

	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"github.com/ssnover/megabit/internal/firmware/display"
	"github.com/ssnover/megabit/internal/firmware/router"
	"github.com/ssnover/megabit/internal/firmware/system"
	"github.com/ssnover/megabit/internal/wire"
	"github.com/ssnover/megabit/pkg/log"
)

func main() {
	port := flag.String("port", "/dev/ttyACM1", "serial port the host is attached to")
	baud := flag.Int("baud", 115200, "serial baud rate")
	spiPort := flag.String("spi", "", "SPI port name (empty selects periph's default)")
	gpioChip := flag.String("gpio-chip", "gpiochip0", "GPIO chardev chip for the button and status LEDs")
	buttonPin := flag.Int("button-pin", 17, "GPIO line offset for the next-app button")
	debugLedPin := flag.Int("debug-led-pin", 27, "GPIO line offset for the debug LED")
	rgbRPin := flag.Int("rgb-r-pin", 22, "GPIO line offset for the status LED's red channel")
	rgbGPin := flag.Int("rgb-g-pin", 23, "GPIO line offset for the status LED's green channel")
	rgbBPin := flag.Int("rgb-b-pin", 24, "GPIO line offset for the status LED's blue channel")
	flag.Parse()

	logger := log.New()

	if _, err := host.Init(); err != nil {
		logger.Errorf("megabit-coproc-dotmatrix: periph host init: %v", err)
		os.Exit(1)
	}

	spiConn, err := openSPI(*spiPort)
	if err != nil {
		logger.Errorf("megabit-coproc-dotmatrix: opening SPI port: %v", err)
		os.Exit(1)
	}

	driver := display.NewDotMatrixDriver(spiConn)
	if err := driver.Init(); err != nil {
		logger.Errorf("megabit-coproc-dotmatrix: panel init: %v", err)
		os.Exit(1)
	}

	stream, err := serial.Open(*port, &serial.Mode{BaudRate: *baud})
	if err != nil {
		logger.Errorf("megabit-coproc-dotmatrix: opening %s: %v", *port, err)
		os.Exit(1)
	}

	resp := router.NewResponder(stream)
	rt := router.New(stream, resp, router.DisplayConfig{
		Width:  display.PanelCols,
		Height: display.PanelRows,
		Kind:   wire.PixelKindMonocolor,
	}, logger.With("component", "router"))

	displayHandler := display.NewMonoCommandHandler(driver, logger.With("component", "display"))
	go displayHandler.Run(rt, resp)

	rgbPins, closeRgb, err := openRgbPins(*gpioChip, *rgbRPin, *rgbGPin, *rgbBPin)
	if err != nil {
		logger.Errorf("megabit-coproc-dotmatrix: opening status LED pins: %v", err)
		os.Exit(1)
	}
	defer closeRgb()

	var flags system.Flags
	sysHandler := system.NewCommandHandler(rt, &flags, rgbPins, logger.With("component", "system"))
	go sysHandler.Run(resp)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if debugLed, closeLed, err := system.OpenGpiocdevOutputPin(*gpioChip, *debugLedPin); err != nil {
		logger.Errorf("megabit-coproc-dotmatrix: opening debug LED pin: %v", err)
	} else {
		defer closeLed()
		go system.NewDebugLedBlinker(debugLed, &flags, logger.With("component", "debug-led")).Run(ctx)
	}

	if button, closeButton, err := system.OpenGpiocdevInputPin(*gpioChip, *buttonPin); err != nil {
		logger.Errorf("megabit-coproc-dotmatrix: opening button pin: %v", err)
	} else {
		defer closeButton()
		go system.NewButtonReporter(button, resp, &flags, rgbPins, logger.With("component", "button")).Run(ctx)
	}

	rt.Run()
}

func openRgbPins(chip string, r, g, b int) (system.RgbPins, func() error, error) {
	rPin, closeR, err := system.OpenGpiocdevOutputPin(chip, r)
	if err != nil {
		return system.RgbPins{}, nil, err
	}
	gPin, closeG, err := system.OpenGpiocdevOutputPin(chip, g)
	if err != nil {
		closeR()
		return system.RgbPins{}, nil, err
	}
	bPin, closeB, err := system.OpenGpiocdevOutputPin(chip, b)
	if err != nil {
		closeR()
		closeG()
		return system.RgbPins{}, nil, err
	}
	return system.RgbPins{R: rPin, G: gPin, B: bPin}, func() error {
		closeR()
		closeG()
		return closeB()
	}, nil
}

// openSPI opens name (or periph's default port if empty) at 1MHz,
// mode 0, 8 bits per word — a conservative clock safe for a
// breadboarded daisy chain.
func openSPI(name string) (conn.Conn, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, err
	}
	return port.Connect(1*physic.MegaHertz, spi.Mode0, 8)
}
