package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/tinyrc/pkg/link"
)

func TestWebsocketLink(t *testing.T) {
	server := httptest.NewServer(Handler(func(p *link.Pipe) {
		p.SetReceiver(link.HandlePayloadFunc(func(payload []byte) {
			p.Send(append([]byte("echo "), payload...))
		}))
		p.Run(context.Background())
	}))
	defer server.Close()

	client, err := Dial("ws" + strings.TrimPrefix(server.URL, "http"))
	require.NoError(t, err)
	recvCh := make(chan string, 1)
	client.SetReceiver(link.HandlePayloadFunc(func(payload []byte) {
		recvCh <- string(payload)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	require.NoError(t, client.Send([]byte("s\n")))
	select {
	case msg := <-recvCh:
		require.Equal(t, "echo s\n", msg)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("receive timeout")
	}
}
