package eventbus

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSendAndNextRoundtrip(t *testing.T) {
	b := New(4)
	b.Send(Tick{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev, err := b.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, ok := ev.(Tick); !ok {
		t.Fatalf("got %T, want Tick", ev)
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	b := New(1)
	b.Send(Tick{})
	b.Send(Tick{}) // should be dropped, not block

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := b.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	if _, err := b.Next(ctx2); err == nil {
		t.Fatalf("expected timeout, channel should be empty after one drop")
	}
}

func TestNextRespectsContextCancellation(t *testing.T) {
	b := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Next(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
