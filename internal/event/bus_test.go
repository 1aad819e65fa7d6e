package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/readyrun/readyrun/pkg/plugin"
	"go.uber.org/zap"
)

func TestPublish_DeliversToTopicSubscribers(t *testing.T) {
	b := NewBus(zap.NewNop())

	var got []string
	b.Subscribe("trainlog.entry.appended", func(_ context.Context, e plugin.Event) {
		got = append(got, e.Topic)
	})

	err := b.Publish(context.Background(), plugin.Event{
		Topic:  "trainlog.entry.appended",
		Source: "trainlog",
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(got) != 1 || got[0] != "trainlog.entry.appended" {
		t.Errorf("handler calls = %v, want one call for trainlog.entry.appended", got)
	}
}

func TestPublish_SkipsOtherTopics(t *testing.T) {
	b := NewBus(zap.NewNop())

	called := false
	b.Subscribe("readiness.evaluated", func(_ context.Context, _ plugin.Event) {
		called = true
	})

	_ = b.Publish(context.Background(), plugin.Event{Topic: "trainlog.entry.appended"})
	if called {
		t.Error("handler for readiness.evaluated fired on trainlog topic")
	}
}

func TestPublish_StampsTimestamp(t *testing.T) {
	b := NewBus(zap.NewNop())

	var ts time.Time
	b.Subscribe("t", func(_ context.Context, e plugin.Event) {
		ts = e.Timestamp
	})
	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})
	if ts.IsZero() {
		t.Error("Publish() did not stamp a zero timestamp")
	}
}

func TestSubscribeAll_SeesEveryTopic(t *testing.T) {
	b := NewBus(zap.NewNop())

	var topics []string
	b.SubscribeAll(func(_ context.Context, e plugin.Event) {
		topics = append(topics, e.Topic)
	})

	_ = b.Publish(context.Background(), plugin.Event{Topic: "a"})
	_ = b.Publish(context.Background(), plugin.Event{Topic: "b"})

	if len(topics) != 2 {
		t.Fatalf("wildcard handler saw %d events, want 2", len(topics))
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := NewBus(zap.NewNop())

	count := 0
	unsub := b.Subscribe("t", func(_ context.Context, _ plugin.Event) {
		count++
	})

	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})
	unsub()
	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})

	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
}

func TestPublish_RecoversHandlerPanic(t *testing.T) {
	b := NewBus(zap.NewNop())

	b.Subscribe("t", func(_ context.Context, _ plugin.Event) {
		panic("boom")
	})

	after := false
	b.Subscribe("t", func(_ context.Context, _ plugin.Event) {
		after = true
	})

	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})
	if !after {
		t.Error("panicking handler prevented later handlers from running")
	}
}

func TestPublishAsync_DeliversEventually(t *testing.T) {
	b := NewBus(zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	b.Subscribe("t", func(_ context.Context, _ plugin.Event) {
		wg.Done()
	})

	b.PublishAsync(context.Background(), plugin.Event{Topic: "t"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async event not delivered within 2s")
	}
}
