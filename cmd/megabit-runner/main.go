// Command megabit-runner is the host process: it opens the serial or
// TCP connection to the coprocessor, loads every app under -apps, and
// rotates between them under the scheduler, console control channel,
// and button-press events.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ssnover/megabit/internal/console"
	"github.com/ssnover/megabit/internal/hostconn"
	"github.com/ssnover/megabit/internal/sandbox"
	"github.com/ssnover/megabit/internal/scheduler"
	"github.com/ssnover/megabit/internal/screen"
	"github.com/ssnover/megabit/internal/transport"
	"github.com/ssnover/megabit/pkg/log"
)

func main() {
	defaultApps := os.Getenv("MEGABIT_APPS_DIR")
	if defaultApps == "" {
		defaultApps = "./apps"
		if home, err := os.UserHomeDir(); err == nil {
			defaultApps = filepath.Join(home, ".megabit", "apps")
		}
	}
	port := flag.String("port", "/dev/ttyACM0", "coprocessor address: host:port for TCP, otherwise a serial device path")
	baud := flag.Int("baud", 115200, "serial baud rate")
	appsDir := flag.String("apps", defaultApps, "directory of app subdirectories, each with a manifest.json (default $MEGABIT_APPS_DIR, else ~/.megabit/apps)")
	consoleAddr := flag.String("console", "127.0.0.1:7878", "address the console control channel listens on")
	flag.Parse()

	logger := log.New()

	cfg := transport.ParseTarget(*port)
	if cfg.Kind == transport.KindSerial {
		cfg.BaudRate = *baud
	}
	stream, err := transport.Dial(context.Background(), cfg)
	if err != nil {
		logger.Errorf("megabit-runner: opening %s: %v", *port, err)
		os.Exit(1)
	}

	tr := transport.New(stream, logger.With("component", "transport"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	tr.Run(ctx)

	conn := hostconn.New(tr)
	info, err := conn.GetDisplayInfo()
	if err != nil {
		logger.Errorf("megabit-runner: GetDisplayInfo: %v", err)
		os.Exit(1)
	}
	buf := screen.New(int(info.Width), int(info.Height), info.Kind)

	hub := console.NewHub(logger.With("component", "console"))

	manifests, err := sandbox.DiscoverManifests(*appsDir)
	if err != nil {
		logger.Errorf("megabit-runner: discovering apps under %s: %v", *appsDir, err)
		os.Exit(1)
	}
	if len(manifests) == 0 {
		logger.Errorf("megabit-runner: no apps found under %s", *appsDir)
		os.Exit(1)
	}

	var apps []scheduler.App
	for _, m := range manifests {
		app, err := sandbox.Load(ctx, m, buf, conn, hub, logger.With("app", m.Name))
		if err != nil {
			logger.Errorf("megabit-runner: loading app %q: %v", m.Name, err)
			continue
		}
		apps = append(apps, app)
	}
	if len(apps) == 0 {
		logger.Errorf("megabit-runner: every app failed to load")
		os.Exit(1)
	}

	sched := scheduler.New(apps, logger.With("component", "scheduler"))
	listener := console.NewListener(tr.Inbox(), hub, sched, logger.With("component", "listener"))

	go func() {
		if err := hub.Serve(ctx, *consoleAddr); err != nil {
			logger.Errorf("megabit-runner: console hub stopped: %v", err)
		}
	}()
	go listener.Run(ctx)

	if err := sched.Run(ctx); err != nil {
		logger.Errorf("megabit-runner: scheduler stopped: %v", err)
		os.Exit(1)
	}
	fmt.Println("megabit-runner: exiting")
}
