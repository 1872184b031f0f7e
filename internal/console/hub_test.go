package console

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestHub(t *testing.T) (*Hub, net.Addr) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go hub.ServeListener(ctx, ln)
	return hub, ln.Addr()
}

func TestHubBroadcastsPublishedMessageToClient(t *testing.T) {
	hub, addr := startTestHub(t)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	// give the accept goroutine a moment to register the client
	time.Sleep(20 * time.Millisecond)

	hub.PublishCommitRender("clock")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	reader := bufio.NewReader(conn)
	scanner := newFrameScanner(reader)
	raw, err := scanner.next()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, MsgCommitRender, msg.Msg)

	var data commitRenderData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "clock", data.App)
}

func TestHubForwardsClientMessageToInbound(t *testing.T) {
	hub, addr := startTestHub(t)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"msg":"NextApp"}`))
	require.NoError(t, err)

	select {
	case msg := <-hub.Inbound:
		assert.Equal(t, MsgNextApp, msg.Msg)
	case <-time.After(time.Second):
		t.Fatal("inbound message never arrived")
	}
}
