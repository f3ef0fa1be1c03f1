package hermes

import (
	"net"
	"testing"
)

func TestConnect_Unreachable(t *testing.T) {
	// Reserve a port, then free it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client, err := Connect("nats://"+addr, "", discardLogger())
	if err == nil {
		client.Close()
		t.Fatal("expected an error when no NATS server is listening")
	}
}
