package console

import (
	"context"

	"github.com/ssnover/megabit/internal/hostconn"
	"github.com/ssnover/megabit/internal/scheduler"
	"github.com/ssnover/megabit/internal/transport"
	"github.com/ssnover/megabit/pkg/log"
)

// Listener aggregates two event sources into the scheduler's single
// ordered event queue: button-press reports off the transport inbox,
// and playback-control messages off a console Hub.
type Listener struct {
	inbox *transport.Inbox
	hub   *Hub
	sched *scheduler.Scheduler
	log   log.Logger
}

// NewListener builds a Listener over an already-running transport
// inbox and console hub.
func NewListener(inbox *transport.Inbox, hub *Hub, sched *scheduler.Scheduler, logger log.Logger) *Listener {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Listener{inbox: inbox, hub: hub, sched: sched, log: logger}
}

// Run blocks, translating events from both sources into scheduler
// requests until ctx is cancelled or the transport is lost. The button
// watcher checks ctx only between inbox waits, so after cancellation
// it can outlive Run until the inbox next delivers or closes.
func (l *Listener) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer cancel()
		l.watchButtons(ctx)
	}()
	l.watchConsole(ctx)
}

func (l *Listener) watchButtons(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, err := l.inbox.WaitForMessage(hostconn.ButtonPresses, 0)
		if err != nil {
			return
		}
		l.sched.Post(scheduler.NextAppRequest)
	}
}

func (l *Listener) watchConsole(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-l.hub.Inbound:
			l.dispatch(msg)
		}
	}
}

func (l *Listener) dispatch(msg Message) {
	switch msg.Msg {
	case MsgNextApp:
		l.sched.Post(scheduler.NextAppRequest)
	case MsgPreviousApp:
		l.sched.Post(scheduler.PreviousAppRequest)
	case MsgPauseRendering:
		l.sched.Post(scheduler.PauseRequest)
	case MsgResumeRendering:
		l.sched.Post(scheduler.ResumeRequest)
	default:
		l.log.Debugf("console: ignoring unhandled message %q", msg.Msg)
	}
}
