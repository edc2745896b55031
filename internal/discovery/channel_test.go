package discovery_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/monokrome/foiacquire-sub003/internal/discovery"
)

func TestChannel_SendRecvRoundTrips(t *testing.T) {
	ch := discovery.NewChannel(2)
	ctx := context.Background()
	want := url.URL{Scheme: "https", Host: "example.com", Path: "/a.pdf"}

	if err := ch.Send(ctx, want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, ok, err := ch.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if !ok {
		t.Fatal("Recv: ok = false, want true")
	}
	if got != want {
		t.Errorf("Recv() = %v, want %v", got, want)
	}
}

func TestChannel_RecvAfterCloseReturnsNotOK(t *testing.T) {
	ch := discovery.NewChannel(1)
	ch.Close()

	_, ok, err := ch.Recv(context.Background())
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if ok {
		t.Error("Recv: ok = true after Close, want false")
	}
}

func TestChannel_SendBlocksUntilContextCancelled(t *testing.T) {
	ch := discovery.NewChannel(1)
	ctx := context.Background()
	if err := ch.Send(ctx, url.URL{Path: "/fills-buffer"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := ch.Send(cctx, url.URL{Path: "/blocked"}); err == nil {
		t.Error("Send: expected context deadline error on full channel, got nil")
	}
}
