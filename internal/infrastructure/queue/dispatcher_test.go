package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []domain.Notification
	fail  map[string]bool
	block chan struct{}
}

func (s *recordingSender) Send(_ context.Context, n domain.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[n.Recipient] {
		return errors.New("provider down")
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, n := range s.sent {
		out[i] = n.Recipient + ":" + n.Data["seq"]
	}
	return out
}

func TestDispatcher_DeliversInOrderPerRecipient(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(3, sender, zerolog.Nop())
	d.Start()

	for _, seq := range []string{"1", "2", "3"} {
		d.Notify(context.Background(), domain.Notification{Kind: domain.NotifyMessageToUser, Recipient: "a@example.com", Data: map[string]string{"seq": seq}})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	got := sender.recipients()
	want := []string{"a@example.com:1", "a@example.com:2", "a@example.com:3"}
	if len(got) != len(want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivered %v, want %v", got, want)
		}
	}
}

func TestDispatcher_FailuresDoNotStopWorker(t *testing.T) {
	sender := &recordingSender{fail: map[string]bool{"bad@example.com": true}}
	d := NewDispatcher(1, sender, zerolog.Nop())
	d.Start()

	d.Notify(context.Background(), domain.Notification{Recipient: "bad@example.com"})
	d.Notify(context.Background(), domain.Notification{Recipient: "good@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := sender.recipients(); len(got) != 1 || got[0] != "good@example.com:" {
		t.Fatalf("unexpected deliveries %v", got)
	}
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(1, sender, zerolog.Nop())
	d.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			d.Notify(context.Background(), domain.Notification{Recipient: "a@example.com"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Notify blocked on a full queue")
	}

	close(sender.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestDispatcher_NotifyAfterShutdown(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(1, sender, zerolog.Nop())
	d.Start()
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	d.Notify(context.Background(), domain.Notification{Recipient: "a@example.com"})
	if len(sender.recipients()) != 0 {
		t.Fatalf("notification delivered after shutdown")
	}
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
