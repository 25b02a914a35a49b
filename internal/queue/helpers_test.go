package queue

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// setupTestNATS starts an embedded JetStream-enabled NATS server
func setupTestNATS(t *testing.T) string {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns.ClientURL()
}

// collect gathers delivered messages on a channel for assertions
func collect(buffer int) (MessageHandler, <-chan Message) {
	ch := make(chan Message, buffer)
	return func(msg Message) error {
		ch <- msg
		return nil
	}, ch
}

func waitMessage(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
		return Message{}
	}
}
