package feed

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSplitDatagram(t *testing.T) {
	tests := []struct {
		payload string
		want    []string
	}{
		{"$HEHDT,123.4,T*1A\r\n", []string{"$HEHDT,123.4,T*1A"}},
		{"one\ntwo\n", []string{"one", "two"}},
		{"bare line", []string{"bare line"}},
		{"\r\n\r\n", nil},
		{"", nil},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, splitDatagram(tc.payload)); diff != "" {
			t.Errorf("splitDatagram(%q) mismatch (-want +got):\n%s", tc.payload, diff)
		}
	}
}

func TestUDPSourceReceivesLines(t *testing.T) {
	src, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 4)
	errCh := make(chan error, 1)
	go func() {
		errCh <- src.Run(ctx, lines)
	}()

	conn, err := net.Dial("udp", src.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("$PUHAW,UVH,1.2,-0.5,270.0\r\n$HEHDT,123.4,T*1A\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for i, want := range []string{"$PUHAW,UVH,1.2,-0.5,270.0", "$HEHDT,123.4,T*1A"} {
		select {
		case got := <-lines:
			if got != want {
				t.Errorf("line %d = %q, want %q", i, got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for line %d", i)
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Run to stop after cancellation")
	}
}
