package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssnover/megabit/internal/scheduler"
	"github.com/ssnover/megabit/internal/transport"
	"github.com/ssnover/megabit/internal/wire"
)

// stubApp is a minimal scheduler.App for Listener dispatch tests.
type stubApp struct{ name string }

func (a stubApp) Name() string                 { return a.name }
func (a stubApp) RefreshPeriod() time.Duration { return 5 * time.Millisecond }
func (a stubApp) Setup(context.Context) error  { return nil }
func (a stubApp) Run(context.Context) error    { return nil }

func TestListenerDispatchNextAppAdvancesScheduler(t *testing.T) {
	sched := scheduler.New([]scheduler.App{stubApp{name: "a"}, stubApp{name: "b"}}, nil)
	l := NewListener(nil, nil, sched, nil)

	l.dispatch(Message{Msg: MsgNextApp})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, sched.Run(ctx))
	assert.Equal(t, "b", sched.CurrentApp())
}

func TestListenerDispatchRepeatedPauseIsIdempotent(t *testing.T) {
	sched := scheduler.New([]scheduler.App{stubApp{name: "a"}}, nil)
	l := NewListener(nil, nil, sched, nil)

	l.dispatch(Message{Msg: MsgPauseRendering})
	l.dispatch(Message{Msg: MsgPauseRendering})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, sched.Run(ctx))
	assert.True(t, sched.Paused())
}

func TestListenerWatchButtonsPostsNextApp(t *testing.T) {
	inbox := transport.NewInbox()
	defer inbox.Close()

	sched := scheduler.New([]scheduler.App{stubApp{name: "a"}, stubApp{name: "b"}}, nil)
	l := NewListener(inbox, NewHub(nil), sched, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	go l.watchButtons(ctx)

	time.Sleep(10 * time.Millisecond)
	inbox.Post(wire.ReportButtonPress{})

	time.Sleep(20 * time.Millisecond)
	runCtx, runCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer runCancel()
	require.NoError(t, sched.Run(runCtx))
	assert.Equal(t, "b", sched.CurrentApp())
}
